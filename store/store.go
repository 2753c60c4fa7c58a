package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// maxBatchGetKeys is the DynamoDB BatchGetItem request limit.
	maxBatchGetKeys = 100

	// maxBatchWriteItems is the DynamoDB BatchWriteItem request limit.
	maxBatchWriteItems = 25

	// maxBatchAttempts bounds how often unprocessed batch items are resubmitted.
	maxBatchAttempts = 5
)

// API is the subset of the DynamoDB client used by Store.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store provides the DynamoDB operations of the feed core.
// It is safe for concurrent use; all coordination happens in DynamoDB.
type Store struct {
	client API
	config Config
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// CreateProfile stores a new profile with zeroed counters.
// Returns ErrProfileExists if a profile with the same ID exists.
func (s *Store) CreateProfile(ctx context.Context, profile Profile) error {
	profile.TweetsCount = 0
	profile.LikesCount = 0
	profile.FollowersCount = 0
	profile.FollowingCount = 0

	item, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.ProfilesTable),
		Item:                item,
		ConditionExpression: aws.String(NotExistsCondition("id")),
	})
	return mapConditionalError(err, ErrProfileExists)
}

// GetProfile retrieves a profile by user ID.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var profile Profile
	if err := s.getItem(ctx, s.config.ProfilesTable, profileKey(id), ErrProfileNotFound, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetPost retrieves a post by ID.
func (s *Store) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	if err := s.getItem(ctx, s.config.TweetsTable, postKey(id), ErrPostNotFound, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// BatchGetPosts retrieves posts by ID, preserving the order of ids.
// IDs without a stored post are skipped.
func (s *Store) BatchGetPosts(ctx context.Context, ids []string) ([]Post, error) {
	keys := make([]PK, len(ids))
	for i, id := range ids {
		keys[i] = postKey(id)
	}

	raw, err := s.batchGet(ctx, s.config.TweetsTable, keys, "")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Post, len(raw))
	for _, item := range raw {
		var post Post
		if err := attributevalue.UnmarshalMap(item, &post); err != nil {
			return nil, fmt.Errorf("unmarshal post: %w", err)
		}
		byID[post.ID] = post
	}

	posts := make([]Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := byID[id]; ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (s *Store) getItem(ctx context.Context, table string, key PK, notFound error, out any) error {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return transient(err)
	}
	if result.Item == nil {
		return notFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("unmarshal %s item: %w", table, err)
	}
	return nil
}

// batchGet reads keys from table in chunks, resubmitting unprocessed keys.
// Duplicate keys are collapsed. Result order is unspecified.
func (s *Store) batchGet(ctx context.Context, table string, keys []PK, projection string) ([]map[string]types.AttributeValue, error) {
	keys = dedupeKeys(keys)

	var items []map[string]types.AttributeValue
	for start := 0; start < len(keys); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(keys))

		chunk := make([]map[string]types.AttributeValue, 0, end-start)
		for _, k := range keys[start:end] {
			chunk = append(chunk, k)
		}

		request := map[string]types.KeysAndAttributes{
			table: {Keys: chunk},
		}
		if projection != "" {
			ka := request[table]
			ka.ProjectionExpression = aws.String(projection)
			request[table] = ka
		}

		for attempt := 0; len(request) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return nil, fmt.Errorf("%w: batch get on %s left unprocessed keys", ErrTransient, table)
			}
			result, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: request,
			})
			if err != nil {
				return nil, transient(err)
			}
			items = append(items, result.Responses[table]...)
			request = result.UnprocessedKeys
		}
	}
	return items, nil
}

func dedupeKeys(keys []PK) []PK {
	seen := make(map[string]bool, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		id := keyString(k)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, k)
	}
	return out
}

// keyString renders a key for comparisons.
func keyString(k PK) string {
	var result string
	for _, name := range slices.Sorted(maps.Keys(k)) {
		switch v := k[name].(type) {
		case *types.AttributeValueMemberS:
			result += name + "=S:" + v.Value + ";"
		case *types.AttributeValueMemberN:
			result += name + "=N:" + v.Value + ";"
		}
	}
	return result
}
