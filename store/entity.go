package store

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// PostKind is the variant tag of a post.
type PostKind string

const (
	KindTweet   PostKind = "Tweet"
	KindReply   PostKind = "Reply"
	KindRetweet PostKind = "Retweet"
)

// Timeline names one of the two logical timelines stored in the timeline index.
type Timeline string

const (
	// SelfTimeline holds the posts a user authored.
	SelfTimeline Timeline = "self"

	// HomeTimeline holds the posts a user reads: their own and those of followees.
	HomeTimeline Timeline = "home"
)

// Ref returns the owner reference of userID's timeline (e.g., "home#uuid").
func (t Timeline) Ref(userID string) string {
	return string(t) + "#" + userID
}

// Profile is the per-user profile and counter record.
type Profile struct {
	ID                 string `dynamodbav:"id" json:"id"`
	Name               string `dynamodbav:"name" json:"name"`
	ScreenName         string `dynamodbav:"screenName" json:"screenName"`
	ImageURL           string `dynamodbav:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	BackgroundImageURL string `dynamodbav:"backgroundImageUrl,omitempty" json:"backgroundImageUrl,omitempty"`
	Bio                string `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	Location           string `dynamodbav:"location,omitempty" json:"location,omitempty"`
	Website            string `dynamodbav:"website,omitempty" json:"website,omitempty"`
	Birthdate          string `dynamodbav:"birthdate,omitempty" json:"birthdate,omitempty"`
	CreatedAt          string `dynamodbav:"createdAt" json:"createdAt"`
	TweetsCount        int64  `dynamodbav:"tweetsCount" json:"tweetsCount"`
	LikesCount         int64  `dynamodbav:"likesCount" json:"likesCount"`
	FollowersCount     int64  `dynamodbav:"followersCount" json:"followersCount"`
	FollowingCount     int64  `dynamodbav:"followingCount" json:"followingCount"`
}

// Post is a stored post. Content fields never change after creation;
// the counters only move through transactions.
type Post struct {
	Kind      PostKind `dynamodbav:"__typename" json:"__typename"`
	ID        string   `dynamodbav:"id" json:"id"`
	Creator   string   `dynamodbav:"creator" json:"creator"`
	Text      string   `dynamodbav:"text" json:"text"`
	CreatedAt string   `dynamodbav:"createdAt" json:"createdAt"`
	Replies   int64    `dynamodbav:"replies" json:"replies"`
	Likes     int64    `dynamodbav:"likes" json:"likes"`
	Retweets  int64    `dynamodbav:"retweets" json:"retweets"`
}

// TimelineEntry is one row of the timeline index.
type TimelineEntry struct {
	// Owner is the timeline reference (see Timeline.Ref).
	Owner string `dynamodbav:"owner"`

	// TweetID is the sort key. Post ids are time-ordered.
	TweetID string `dynamodbav:"tweetId"`

	// UserID is the id of the timeline's owner.
	UserID string `dynamodbav:"userId"`

	Creator   string `dynamodbav:"creator"`
	Timestamp string `dynamodbav:"timestamp"`
}

// NewTimelineEntry builds the entry placing post on userID's timeline.
func NewTimelineEntry(timeline Timeline, userID string, post Post) TimelineEntry {
	return TimelineEntry{
		Owner:     timeline.Ref(userID),
		TweetID:   post.ID,
		UserID:    userID,
		Creator:   post.Creator,
		Timestamp: post.CreatedAt,
	}
}

// Like is a like ledger entry. Its existence means "liked".
type Like struct {
	UserID    string `dynamodbav:"userId"`
	TweetID   string `dynamodbav:"tweetId"`
	CreatedAt string `dynamodbav:"createdAt"`
}

// Follow is a follow ledger entry: UserID follows OtherUserID.
type Follow struct {
	UserID      string `dynamodbav:"userId"`
	OtherUserID string `dynamodbav:"otherUserId"`
	CreatedAt   string `dynamodbav:"createdAt"`
}

func stringAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func profileKey(id string) PK {
	return PK{"id": stringAttr(id)}
}

func postKey(id string) PK {
	return PK{"id": stringAttr(id)}
}

func timelineKey(owner, tweetID string) PK {
	return PK{
		"owner":   stringAttr(owner),
		"tweetId": stringAttr(tweetID),
	}
}

func likeKey(userID, tweetID string) PK {
	return PK{
		"userId":  stringAttr(userID),
		"tweetId": stringAttr(tweetID),
	}
}

func followKey(userID, otherUserID string) PK {
	return PK{
		"userId":      stringAttr(userID),
		"otherUserId": stringAttr(otherUserID),
	}
}

func userRef(id string) string {
	return "user#" + id
}
