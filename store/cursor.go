package store

import (
	"encoding/base64"
	"encoding/json"
)

const cursorVersion = 1

// cursor is the decoded form of an opaque pagination token: the sort key of
// the last entry a page returned.
type cursor struct {
	Version int    `json:"v"`
	TweetID string `json:"t"`
}

// EncodeCursor returns the opaque token resuming after tweetID.
func EncodeCursor(tweetID string) string {
	b, _ := json.Marshal(cursor{Version: cursorVersion, TweetID: tweetID})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor returns the sort key encoded in token.
func DecodeCursor(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return "", ErrInvalidCursor
	}
	if c.Version != cursorVersion || c.TweetID == "" {
		return "", ErrInvalidCursor
	}
	return c.TweetID, nil
}
