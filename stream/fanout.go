// Package stream provides DynamoDB Streams handlers for follower fan-out.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/chirp/monitoring"
	"github.com/jacentio/chirp/store"
)

// Handler copies new posts onto their creator's followers' home timelines.
type Handler struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new stream handler. logger and metrics may be nil.
func NewHandler(s *store.Store, logger *slog.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:   s,
		logger:  logger,
		metrics: metrics,
	}
}

// HandlePostFanout processes the tweets table stream. The table must stream
// new images. Every record is processed in order; a failure returns the error
// so the batch is redelivered. Replays rewrite the same timeline entries.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandlePostFanout(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	h.metrics.ObserveStreamRecord(record.EventName)

	// Posts are immutable; only creation fans out.
	if record.EventName != string(events.DynamoDBOperationTypeInsert) {
		return nil
	}

	post, ok := postFromImage(record.Change.NewImage)
	if !ok {
		h.logger.Warn("skipping record without post identity",
			"eventID", record.EventID,
		)
		return nil
	}

	followers, err := h.store.QueryFollowers(ctx, post.Creator)
	if err != nil {
		return fmt.Errorf("query followers of %s: %w", post.Creator, err)
	}

	entries := make([]store.TimelineEntry, 0, len(followers))
	for _, follower := range followers {
		if follower == post.Creator {
			continue
		}
		entries = append(entries, store.NewTimelineEntry(store.HomeTimeline, follower, post))
	}

	if err := h.store.PutTimelineEntries(ctx, entries); err != nil {
		return fmt.Errorf("fan out post %s: %w", post.ID, err)
	}
	h.metrics.ObserveFanout(len(entries))

	h.logger.Info("post fanned out",
		"postId", post.ID,
		"creator", post.Creator,
		"followers", len(entries),
	)
	return nil
}

// postFromImage reads a post from a stream image. It reports false when the
// id or creator is missing.
func postFromImage(image map[string]events.DynamoDBAttributeValue) (store.Post, bool) {
	post := store.Post{
		Kind:      store.PostKind(getStringAttr(image, "__typename")),
		ID:        getStringAttr(image, "id"),
		Creator:   getStringAttr(image, "creator"),
		Text:      getStringAttr(image, "text"),
		CreatedAt: getStringAttr(image, "createdAt"),
		Replies:   getNumberAttr(image, "replies"),
		Likes:     getNumberAttr(image, "likes"),
		Retweets:  getNumberAttr(image, "retweets"),
	}
	return post, post.ID != "" && post.Creator != ""
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
