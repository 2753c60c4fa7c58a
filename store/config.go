package store

import "github.com/jacentio/chirp/internal/shard"

// Config holds configuration for the Store.
type Config struct {
	// ProfilesTable holds one profile/counter record per user.
	// Default: "chirp_profiles"
	ProfilesTable string

	// TweetsTable holds one record per post.
	// Default: "chirp_tweets"
	TweetsTable string

	// TimelinesTable is the timeline index (owner + tweetId).
	// Default: "chirp_timelines"
	TimelinesTable string

	// LikesTable is the like ledger (userId + tweetId).
	// Default: "chirp_likes"
	LikesTable string

	// FollowsTable is the follow ledger (userId + otherUserId).
	// Default: "chirp_follows"
	FollowsTable string

	// FollowersTable is the sharded follower index used by fan-out.
	// Default: "chirp_followers"
	FollowersTable string

	// NumShards is the number of shards per followee in the follower index.
	// Higher values spread writes for users with many followers but require
	// more parallel queries during fan-out.
	// Default: 1 (no sharding, single query)
	// Max: 256
	NumShards int
}

// DefaultConfig returns sensible defaults for small datasets.
func DefaultConfig() Config {
	return Config{
		ProfilesTable:  "chirp_profiles",
		TweetsTable:    "chirp_tweets",
		TimelinesTable: "chirp_timelines",
		LikesTable:     "chirp_likes",
		FollowsTable:   "chirp_follows",
		FollowersTable: "chirp_followers",
		NumShards:      1,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	def := DefaultConfig()
	if c.ProfilesTable == "" {
		c.ProfilesTable = def.ProfilesTable
	}
	if c.TweetsTable == "" {
		c.TweetsTable = def.TweetsTable
	}
	if c.TimelinesTable == "" {
		c.TimelinesTable = def.TimelinesTable
	}
	if c.LikesTable == "" {
		c.LikesTable = def.LikesTable
	}
	if c.FollowsTable == "" {
		c.FollowsTable = def.FollowsTable
	}
	if c.FollowersTable == "" {
		c.FollowersTable = def.FollowersTable
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > shard.MaxShards {
		c.NumShards = shard.MaxShards
	}
}
