package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/chirp/internal/shard"
)

// Transaction item positions in Follow and Unfollow.
const (
	followLedgerWrite = iota
	followIndexWrite
	followFollowingUpdate
	followFollowersUpdate
)

// followerPK computes the sharded partition key for a follower index record.
func (s *Store) followerPK(followeeID, followerID string) string {
	return shard.FollowerPK(userRef(followeeID), userRef(followerID), s.config.NumShards)
}

// Follow records that userID follows otherUserID. The ledger entry, the
// follower index entry and both counters are written in one transaction.
func (s *Store) Follow(ctx context.Context, userID, otherUserID, createdAt string) error {
	if userID == otherUserID {
		return ErrSelfFollow
	}

	item, err := attributevalue.MarshalMap(Follow{
		UserID:      userID,
		OtherUserID: otherUserID,
		CreatedAt:   createdAt,
	})
	if err != nil {
		return fmt.Errorf("marshal follow: %w", err)
	}

	items := s.followCounterUpdates(userID, otherUserID, 1)
	items[followLedgerWrite] = types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.FollowsTable),
			Item:                item,
			ConditionExpression: aws.String(NotExistsCondition("otherUserId")),
		},
	}
	items[followIndexWrite] = types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.config.FollowersTable),
			Item: map[string]types.AttributeValue{
				"pk":         stringAttr(s.followerPK(otherUserID, userID)),
				"followerId": stringAttr(userID),
				"userId":     stringAttr(otherUserID),
				"createdAt":  stringAttr(createdAt),
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, conditionErrors{
		followLedgerWrite:     ErrAlreadyFollowing,
		followFollowingUpdate: ErrProfileNotFound,
		followFollowersUpdate: ErrProfileNotFound,
	})
}

// Unfollow removes the follow of otherUserID by userID, mirroring Follow.
func (s *Store) Unfollow(ctx context.Context, userID, otherUserID string) error {
	if userID == otherUserID {
		return ErrSelfFollow
	}

	items := s.followCounterUpdates(userID, otherUserID, -1)
	items[followLedgerWrite] = types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:           aws.String(s.config.FollowsTable),
			Key:                 followKey(userID, otherUserID),
			ConditionExpression: aws.String(ExistsCondition("otherUserId")),
		},
	}
	items[followIndexWrite] = types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(s.config.FollowersTable),
			Key: map[string]types.AttributeValue{
				"pk":         stringAttr(s.followerPK(otherUserID, userID)),
				"followerId": stringAttr(userID),
			},
		},
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, conditionErrors{
		followLedgerWrite:     ErrNotFollowing,
		followFollowingUpdate: ErrProfileNotFound,
		followFollowersUpdate: ErrProfileNotFound,
	})
}

func (s *Store) followCounterUpdates(userID, otherUserID string, delta int64) []types.TransactWriteItem {
	followingExpr, followingValues := counterDelta("followingCount", delta)
	followersExpr, followersValues := counterDelta("followersCount", delta)

	items := make([]types.TransactWriteItem, 4)
	items[followFollowingUpdate] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.ProfilesTable),
			Key:                       profileKey(userID),
			UpdateExpression:          aws.String(followingExpr),
			ConditionExpression:       aws.String(ExistsCondition("id")),
			ExpressionAttributeValues: followingValues,
		},
	}
	items[followFollowersUpdate] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.ProfilesTable),
			Key:                       profileKey(otherUserID),
			UpdateExpression:          aws.String(followersExpr),
			ConditionExpression:       aws.String(ExistsCondition("id")),
			ExpressionAttributeValues: followersValues,
		},
	}
	return items
}

// IsFollowing reports whether userID follows otherUserID.
func (s *Store) IsFollowing(ctx context.Context, userID, otherUserID string) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.FollowsTable),
		Key:       followKey(userID, otherUserID),
	})
	if err != nil {
		return false, transient(err)
	}
	return result.Item != nil, nil
}

// QueryFollowers returns the IDs of every follower of userID.
// Shards are queried in parallel; order is unspecified.
func (s *Store) QueryFollowers(ctx context.Context, userID string) ([]string, error) {
	shardPKs := shard.All(userRef(userID), s.config.NumShards)

	// Fast path for single shard (default)
	if len(shardPKs) == 1 {
		return s.queryFollowerShard(ctx, shardPKs[0])
	}

	var mu sync.Mutex
	var followers []string
	var wg sync.WaitGroup
	errs := make(chan error, len(shardPKs))

	for _, shardPK := range shardPKs {
		wg.Add(1)
		go func(shardPK string) {
			defer wg.Done()

			ids, err := s.queryFollowerShard(ctx, shardPK)
			if err != nil {
				errs <- fmt.Errorf("shard %s: %w", shardPK, err)
				return
			}

			mu.Lock()
			followers = append(followers, ids...)
			mu.Unlock()
		}(shardPK)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return followers, nil
}

func (s *Store) queryFollowerShard(ctx context.Context, shardPK string) ([]string, error) {
	var ids []string

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.FollowersTable),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringAttr(shardPK),
		},
		ProjectionExpression: aws.String("followerId"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, transient(err)
		}
		for _, item := range page.Items {
			if v, ok := item["followerId"].(*types.AttributeValueMemberS); ok {
				ids = append(ids, v.Value)
			}
		}
	}

	return ids, nil
}
