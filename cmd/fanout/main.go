// Command fanout is the Lambda entrypoint for the tweets table stream. It
// writes each new post onto the home timelines of its creator's followers.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/chirp/monitoring"
	"github.com/jacentio/chirp/store"
	"github.com/jacentio/chirp/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	s := store.New(dynamodb.NewFromConfig(awsCfg), cfg.Store)
	handler := stream.NewHandler(s, logger, monitoring.New(reg))

	storeCfg := s.Config()
	logger.Info("starting fan-out handler",
		"tweetsTable", storeCfg.TweetsTable,
		"timelinesTable", storeCfg.TimelinesTable,
		"followersTable", storeCfg.FollowersTable,
		"numShards", storeCfg.NumShards,
		"pushgateway", cfg.PushgatewayURL,
	)

	handle := streamHandler(handler.HandlePostFanout)
	if cfg.PushgatewayURL != "" {
		handle = pushAfter(handle, newPusher(cfg.PushgatewayURL, reg), logger)
	}
	lambda.Start(handle)
}
