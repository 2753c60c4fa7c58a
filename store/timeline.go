package store

import (
	"context"
	"fmt"
	"maps"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TimelineQuery defines one page read of a timeline.
type TimelineQuery struct {
	Timeline Timeline
	UserID   string

	// Limit is the maximum number of entries to return. Must be positive.
	Limit int32

	// Cursor resumes after the page that returned it. Empty starts at the newest entry.
	Cursor string
}

// TimelinePage is one page of timeline entries, newest first.
type TimelinePage struct {
	Entries []TimelineEntry

	// NextCursor resumes after the last entry. Empty on the final page.
	NextCursor string
}

// QueryTimeline reads one page of a timeline in descending sort-key order.
//
// One entry beyond Limit is requested so that NextCursor is only set when a
// further entry exists.
func (s *Store) QueryTimeline(ctx context.Context, q TimelineQuery) (*TimelinePage, error) {
	if q.Limit < 1 {
		return nil, fmt.Errorf("query timeline: limit must be positive, got %d", q.Limit)
	}

	owner := q.Timeline.Ref(q.UserID)
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.config.TimelinesTable),
		KeyConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": stringAttr(owner),
		},
		ScanIndexForward: aws.Bool(false),
	}

	if q.Cursor != "" {
		after, err := DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = timelineKey(owner, after)
	}

	want := int(q.Limit) + 1
	var raw []map[string]types.AttributeValue
	for len(raw) < want {
		input.Limit = aws.Int32(int32(want - len(raw)))
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, transient(err)
		}
		raw = append(raw, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = maps.Clone(result.LastEvaluatedKey)
	}

	var entries []TimelineEntry
	if err := attributevalue.UnmarshalListOfMaps(raw, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal timeline entries: %w", err)
	}

	page := &TimelinePage{Entries: entries}
	if len(entries) > int(q.Limit) {
		page.Entries = entries[:q.Limit]
		page.NextCursor = EncodeCursor(page.Entries[len(page.Entries)-1].TweetID)
	}
	return page, nil
}

// PutTimelineEntries writes entries with batched puts. Puts overwrite an
// existing entry with the same key, so replays are harmless.
func (s *Store) PutTimelineEntries(ctx context.Context, entries []TimelineEntry) error {
	for start := 0; start < len(entries); start += maxBatchWriteItems {
		end := min(start+maxBatchWriteItems, len(entries))

		requests := make([]types.WriteRequest, 0, end-start)
		for _, entry := range entries[start:end] {
			item, err := attributevalue.MarshalMap(entry)
			if err != nil {
				return fmt.Errorf("marshal timeline entry: %w", err)
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		pending := map[string][]types.WriteRequest{s.config.TimelinesTable: requests}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return fmt.Errorf("%w: batch write on %s left unprocessed items", ErrTransient, s.config.TimelinesTable)
			}
			result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: pending,
			})
			if err != nil {
				return transient(err)
			}
			pending = result.UnprocessedItems
		}
	}
	return nil
}
