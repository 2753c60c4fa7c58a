package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Transaction item positions in CreatePost.
const (
	createPostTweetPut = iota
	createPostSelfPut
	createPostHomePut
	createPostCounterUpdate
)

// CreatePost stores post and places it on its creator's self and home
// timelines, incrementing the creator's tweetsCount, in one transaction.
// Counters on post are reset to zero.
//
// Returns ErrProfileNotFound if the creator has no profile and ErrPostExists
// if post.ID is taken. Nothing is written in either case.
func (s *Store) CreatePost(ctx context.Context, post Post) error {
	post.Replies = 0
	post.Likes = 0
	post.Retweets = 0
	if post.Kind == "" {
		post.Kind = KindTweet
	}

	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	selfItem, err := attributevalue.MarshalMap(NewTimelineEntry(SelfTimeline, post.Creator, post))
	if err != nil {
		return fmt.Errorf("marshal timeline entry: %w", err)
	}
	homeItem, err := attributevalue.MarshalMap(NewTimelineEntry(HomeTimeline, post.Creator, post))
	if err != nil {
		return fmt.Errorf("marshal timeline entry: %w", err)
	}

	updateExpr, exprValues := counterDelta("tweetsCount", 1)

	items := make([]types.TransactWriteItem, 4)
	items[createPostTweetPut] = types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.TweetsTable),
			Item:                item,
			ConditionExpression: aws.String(NotExistsCondition("id")),
		},
	}
	items[createPostSelfPut] = types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.config.TimelinesTable),
			Item:      selfItem,
		},
	}
	items[createPostHomePut] = types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(s.config.TimelinesTable),
			Item:      homeItem,
		},
	}
	items[createPostCounterUpdate] = types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(s.config.ProfilesTable),
			Key:                       profileKey(post.Creator),
			UpdateExpression:          aws.String(updateExpr),
			ConditionExpression:       aws.String(ExistsCondition("id")),
			ExpressionAttributeValues: exprValues,
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})

	return mapTransactionError(err, conditionErrors{
		createPostCounterUpdate: ErrProfileNotFound,
		createPostTweetPut:      ErrPostExists,
	})
}
