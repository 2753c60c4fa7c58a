package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// pushJob is the Pushgateway job the fan-out metrics are grouped under.
const pushJob = "chirp_fanout"

type streamHandler func(context.Context, events.DynamoDBEvent) error

type pusher interface {
	PushContext(ctx context.Context) error
}

// newPusher pushes everything g gathers to url. Each execution environment
// gets its own group so concurrent instances do not overwrite each other.
func newPusher(url string, g prometheus.Gatherer) *push.Pusher {
	p := push.New(url, pushJob).Gatherer(g)
	if instance := os.Getenv("AWS_LAMBDA_LOG_STREAM_NAME"); instance != "" {
		p = p.Grouping("instance", instance)
	}
	return p
}

// pushAfter pushes metrics once handle returns. A failed push is logged and
// does not fail the batch.
func pushAfter(handle streamHandler, p pusher, logger *slog.Logger) streamHandler {
	return func(ctx context.Context, event events.DynamoDBEvent) error {
		err := handle(ctx, event)
		if pushErr := p.PushContext(ctx); pushErr != nil {
			logger.Warn("failed to push metrics", "error", pushErr)
		}
		return err
	}
}
