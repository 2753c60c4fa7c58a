package feed

import "github.com/jacentio/chirp/monitoring"

const (
	defaultMaxTextLength = 280
	defaultMaxPageSize   = 25
)

// Config holds service configuration.
type Config struct {
	// MaxTextLength is the maximum post length in runes (default: 280).
	MaxTextLength int

	// MaxPageSize is the largest accepted timeline page (default: 25).
	MaxPageSize int32

	// IDs generates post ids (default: ULIDs).
	IDs IDGenerator

	// Clock stamps posts, likes and follows (default: wall clock, UTC).
	Clock Clock

	// Metrics receives operation outcomes. Optional.
	Metrics *monitoring.Metrics
}

// DefaultConfig returns a Config with default limits.
func DefaultConfig() Config {
	return Config{
		MaxTextLength: defaultMaxTextLength,
		MaxPageSize:   defaultMaxPageSize,
	}
}

func (c *Config) validate() {
	if c.MaxTextLength <= 0 {
		c.MaxTextLength = defaultMaxTextLength
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = defaultMaxPageSize
	}
	if c.IDs == nil {
		c.IDs = NewULIDGenerator()
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
}
