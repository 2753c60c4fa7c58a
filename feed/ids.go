package feed

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// timestampLayout is RFC 3339 with millisecond precision, always in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// IDGenerator produces post ids. Ids must sort in creation order.
type IDGenerator interface {
	NewID(t time.Time) (string, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ULIDGenerator generates ULIDs with monotonic entropy, so ids created within
// the same millisecond still sort in creation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator returns a generator seeded from crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID implements IDGenerator.
func (g *ULIDGenerator) NewID(t time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
