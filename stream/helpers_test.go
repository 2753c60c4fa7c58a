package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/chirp/store"
)

// --- getStringAttr Tests ---

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"creator": events.NewStringAttribute("alice"),
		"text":    events.NewStringAttribute("日本語テスト #tag"),
		"empty":   events.NewStringAttribute(""),
		"likes":   events.NewNumberAttribute("3"),
	}

	tests := []struct {
		key  string
		want string
	}{
		{"creator", "alice"},
		{"text", "日本語テスト #tag"},
		{"empty", ""},
		{"missing", ""},
		{"likes", ""}, // wrong type
	}

	for _, tt := range tests {
		if got := getStringAttr(image, tt.key); got != tt.want {
			t.Errorf("getStringAttr(%q): expected %q, got %q", tt.key, tt.want, got)
		}
	}
}

func TestGetStringAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	if got := getStringAttr(image, "id"); got != "" {
		t.Errorf("expected empty string for nil image, got %q", got)
	}
}

// --- getNumberAttr Tests ---

func TestGetNumberAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"likes":    events.NewNumberAttribute("42"),
		"replies":  events.NewNumberAttribute("0"),
		"negative": events.NewNumberAttribute("-1"),
		"max":      events.NewNumberAttribute("9223372036854775807"),
		"creator":  events.NewStringAttribute("not-a-number"),
	}

	tests := []struct {
		key  string
		want int64
	}{
		{"likes", 42},
		{"replies", 0},
		{"negative", -1},
		{"max", 9223372036854775807},
		{"creator", 0}, // wrong type
		{"missing", 0},
	}

	for _, tt := range tests {
		if got := getNumberAttr(image, tt.key); got != tt.want {
			t.Errorf("getNumberAttr(%q): expected %d, got %d", tt.key, tt.want, got)
		}
	}
}

func TestGetNumberAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue

	if got := getNumberAttr(image, "likes"); got != 0 {
		t.Errorf("expected 0 for nil image, got %d", got)
	}
}

// --- postFromImage Tests ---

func TestPostFromImage(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"__typename": events.NewStringAttribute("Tweet"),
		"id":         events.NewStringAttribute("01HZX3T9Q8W6V2M4N5P7R8S9T0"),
		"creator":    events.NewStringAttribute("alice"),
		"text":       events.NewStringAttribute("hello"),
		"createdAt":  events.NewStringAttribute("2024-01-01T00:00:00.000Z"),
		"replies":    events.NewNumberAttribute("0"),
		"likes":      events.NewNumberAttribute("0"),
		"retweets":   events.NewNumberAttribute("0"),
	}

	post, ok := postFromImage(image)
	if !ok {
		t.Fatal("expected post to be recognised")
	}
	want := store.Post{
		Kind:      store.KindTweet,
		ID:        "01HZX3T9Q8W6V2M4N5P7R8S9T0",
		Creator:   "alice",
		Text:      "hello",
		CreatedAt: "2024-01-01T00:00:00.000Z",
	}
	if post != want {
		t.Errorf("expected %+v, got %+v", want, post)
	}
}

func TestPostFromImage_Incomplete(t *testing.T) {
	tests := []map[string]events.DynamoDBAttributeValue{
		nil,
		{"id": events.NewStringAttribute("p1")},
		{"creator": events.NewStringAttribute("alice")},
		{"id": events.NewNumberAttribute("1"), "creator": events.NewStringAttribute("alice")},
	}

	for i, image := range tests {
		if _, ok := postFromImage(image); ok {
			t.Errorf("case %d: expected incomplete image to be rejected", i)
		}
	}
}
