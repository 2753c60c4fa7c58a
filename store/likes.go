package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Transaction item positions in Like and Unlike.
const (
	likeLedgerWrite = iota
	likePostUpdate
	likeProfileUpdate
)

// Like records that userID likes postID. In one transaction it inserts the
// ledger entry (which must not exist), increments the post's likes and the
// user's likesCount.
//
// Returns ErrAlreadyLiked, ErrPostNotFound or ErrProfileNotFound when the
// matching condition fails. Nothing is written in any of those cases.
func (s *Store) Like(ctx context.Context, userID, postID, createdAt string) error {
	item, err := attributevalue.MarshalMap(Like{
		UserID:    userID,
		TweetID:   postID,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("marshal like: %w", err)
	}

	items := s.likeCounterUpdates(userID, postID, 1)
	items[likeLedgerWrite] = types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.LikesTable),
			Item:                item,
			ConditionExpression: aws.String(NotExistsCondition("tweetId")),
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, conditionErrors{
		likeLedgerWrite:   ErrAlreadyLiked,
		likePostUpdate:    ErrPostNotFound,
		likeProfileUpdate: ErrProfileNotFound,
	})
}

// Unlike removes the like ledger entry of (userID, postID), which must exist,
// and decrements the post's likes and the user's likesCount in one transaction.
//
// Returns ErrNotLiked, ErrPostNotFound or ErrProfileNotFound when the
// matching condition fails.
func (s *Store) Unlike(ctx context.Context, userID, postID string) error {
	items := s.likeCounterUpdates(userID, postID, -1)
	items[likeLedgerWrite] = types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:           aws.String(s.config.LikesTable),
			Key:                 likeKey(userID, postID),
			ConditionExpression: aws.String(ExistsCondition("tweetId")),
		},
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, conditionErrors{
		likeLedgerWrite:   ErrNotLiked,
		likePostUpdate:    ErrPostNotFound,
		likeProfileUpdate: ErrProfileNotFound,
	})
}

// likeCounterUpdates returns the like transaction with both counter updates
// in place and the ledger slot left for the caller.
func (s *Store) likeCounterUpdates(userID, postID string, delta int64) []types.TransactWriteItem {
	likesExpr, likesValues := counterDelta("likes", delta)
	countExpr, countValues := counterDelta("likesCount", delta)

	items := make([]types.TransactWriteItem, 3)
	items[likePostUpdate] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.TweetsTable),
			Key:                       postKey(postID),
			UpdateExpression:          aws.String(likesExpr),
			ConditionExpression:       aws.String(ExistsCondition("id")),
			ExpressionAttributeValues: likesValues,
		},
	}
	items[likeProfileUpdate] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.ProfilesTable),
			Key:                       profileKey(userID),
			UpdateExpression:          aws.String(countExpr),
			ConditionExpression:       aws.String(ExistsCondition("id")),
			ExpressionAttributeValues: countValues,
		},
	}
	return items
}

// LikedPosts reports which of postIDs userID has liked.
// The returned map only contains liked IDs.
func (s *Store) LikedPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	keys := make([]PK, len(postIDs))
	for i, id := range postIDs {
		keys[i] = likeKey(userID, id)
	}

	raw, err := s.batchGet(ctx, s.config.LikesTable, keys, "tweetId")
	if err != nil {
		return nil, err
	}
	for _, item := range raw {
		if v, ok := item["tweetId"].(*types.AttributeValueMemberS); ok {
			liked[v.Value] = true
		}
	}
	return liked, nil
}
