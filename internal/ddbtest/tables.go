package ddbtest

import "github.com/jacentio/chirp/store"

// CreateTables registers every table named in cfg with its key schema.
func (c *Client) CreateTables(cfg store.Config) {
	c.CreateTable(cfg.ProfilesTable, "id", "")
	c.CreateTable(cfg.TweetsTable, "id", "")
	c.CreateTable(cfg.TimelinesTable, "owner", "tweetId")
	c.CreateTable(cfg.LikesTable, "userId", "tweetId")
	c.CreateTable(cfg.FollowsTable, "userId", "otherUserId")
	c.CreateTable(cfg.FollowersTable, "pk", "followerId")
}
