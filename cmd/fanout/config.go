package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/jacentio/chirp/store"
)

// fanoutConfig is the Lambda configuration.
type fanoutConfig struct {
	Store store.Config

	// PushgatewayURL receives the metrics after every invocation. Empty
	// disables pushing.
	PushgatewayURL string
}

// loadConfig reads the configuration from the environment. A .env file
// in the working directory is loaded first when present; variables already
// set take precedence. Unset table names fall back to store.DefaultConfig.
func loadConfig(envFile string) (fanoutConfig, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fanoutConfig{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := fanoutConfig{PushgatewayURL: os.Getenv("CHIRP_PUSHGATEWAY_URL")}
	cfg.Store = store.Config{
		ProfilesTable:  os.Getenv("CHIRP_PROFILES_TABLE"),
		TweetsTable:    os.Getenv("CHIRP_TWEETS_TABLE"),
		TimelinesTable: os.Getenv("CHIRP_TIMELINES_TABLE"),
		LikesTable:     os.Getenv("CHIRP_LIKES_TABLE"),
		FollowsTable:   os.Getenv("CHIRP_FOLLOWS_TABLE"),
		FollowersTable: os.Getenv("CHIRP_FOLLOWERS_TABLE"),
	}

	if v := os.Getenv("CHIRP_NUM_SHARDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fanoutConfig{}, fmt.Errorf("parse CHIRP_NUM_SHARDS: %w", err)
		}
		cfg.Store.NumShards = n
	}

	return cfg, nil
}
