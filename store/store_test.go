package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/chirp/internal/ddbtest"
	"github.com/jacentio/chirp/store"
)

const createdAt = "2024-01-01T00:00:00.000Z"

// newTestStore returns a Store over an in-memory DynamoDB with all tables created.
func newTestStore(t *testing.T, numShards int) (*store.Store, *ddbtest.Client) {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.NumShards = numShards

	client := ddbtest.New()
	client.CreateTables(cfg)

	return store.New(client, cfg), client
}

func mustCreateProfile(t *testing.T, s *store.Store, id string) {
	t.Helper()
	err := s.CreateProfile(context.Background(), store.Profile{
		ID:         id,
		Name:       "User " + id,
		ScreenName: id,
		CreatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("create profile %s: %v", id, err)
	}
}

func mustCreatePost(t *testing.T, s *store.Store, id, creator string) store.Post {
	t.Helper()
	post := store.Post{ID: id, Creator: creator, Text: "text of " + id, CreatedAt: createdAt}
	if err := s.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("create post %s: %v", id, err)
	}
	return post
}

func mustProfile(t *testing.T, s *store.Store, id string) *store.Profile {
	t.Helper()
	p, err := s.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile %s: %v", id, err)
	}
	return p
}

func mustPost(t *testing.T, s *store.Store, id string) *store.Post {
	t.Helper()
	p, err := s.GetPost(context.Background(), id)
	if err != nil {
		t.Fatalf("get post %s: %v", id, err)
	}
	return p
}

// --- Unit Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := store.DefaultConfig()

	if cfg.ProfilesTable != "chirp_profiles" {
		t.Errorf("expected ProfilesTable 'chirp_profiles', got %q", cfg.ProfilesTable)
	}
	if cfg.TimelinesTable != "chirp_timelines" {
		t.Errorf("expected TimelinesTable 'chirp_timelines', got %q", cfg.TimelinesTable)
	}
	if cfg.NumShards != 1 {
		t.Errorf("expected NumShards 1, got %d", cfg.NumShards)
	}
}

func TestNewStore(t *testing.T) {
	// Test with nil client (just verifying config validation)
	s := store.New(nil, store.Config{NumShards: 0})
	if s == nil {
		t.Fatal("expected non-nil Store")
	}
	if s.Config().TweetsTable != "chirp_tweets" {
		t.Errorf("expected default TweetsTable, got %q", s.Config().TweetsTable)
	}
}

func TestErrors(t *testing.T) {
	errs := []error{
		store.ErrProfileNotFound,
		store.ErrPostNotFound,
		store.ErrProfileExists,
		store.ErrPostExists,
		store.ErrAlreadyLiked,
		store.ErrNotLiked,
		store.ErrAlreadyFollowing,
		store.ErrNotFollowing,
		store.ErrSelfFollow,
		store.ErrInvalidCursor,
		store.ErrTransient,
	}

	for _, err := range errs {
		if err.Error() == "" {
			t.Errorf("error %v has empty message", err)
		}
	}
}

// --- Profiles ---

func TestCreateProfile(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()

	err := s.CreateProfile(ctx, store.Profile{ID: "u1", Name: "Ana", ScreenName: "ana", TweetsCount: 99, CreatedAt: createdAt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := mustProfile(t, s, "u1")
	if p.Name != "Ana" || p.ScreenName != "ana" {
		t.Errorf("unexpected profile %+v", p)
	}
	if p.TweetsCount != 0 {
		t.Errorf("expected counters to start at zero, got tweetsCount %d", p.TweetsCount)
	}

	err = s.CreateProfile(ctx, store.Profile{ID: "u1", Name: "Other"})
	if !errors.Is(err, store.ErrProfileExists) {
		t.Errorf("expected ErrProfileExists, got %v", err)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	s, _ := newTestStore(t, 1)

	_, err := s.GetProfile(context.Background(), "missing")
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

// --- CreatePost ---

func TestCreatePost(t *testing.T) {
	s, client := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")

	post := store.Post{ID: "t1", Creator: "u1", Text: "hello", CreatedAt: createdAt, Likes: 5}
	if err := s.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := mustPost(t, s, "t1")
	if got.Text != "hello" || got.Creator != "u1" || got.Kind != store.KindTweet {
		t.Errorf("unexpected post %+v", got)
	}
	if got.Likes != 0 || got.Replies != 0 || got.Retweets != 0 {
		t.Errorf("expected zero counters, got %+v", got)
	}

	if p := mustProfile(t, s, "u1"); p.TweetsCount != 1 {
		t.Errorf("expected tweetsCount 1, got %d", p.TweetsCount)
	}

	cfg := s.Config()
	for _, owner := range []string{"self#u1", "home#u1"} {
		entry := client.Get(cfg.TimelinesTable, map[string]types.AttributeValue{
			"owner":   &types.AttributeValueMemberS{Value: owner},
			"tweetId": &types.AttributeValueMemberS{Value: "t1"},
		})
		if entry == nil {
			t.Errorf("expected timeline entry for %s", owner)
		}
	}
}

func TestCreatePost_ProfileMissing(t *testing.T) {
	s, client := newTestStore(t, 1)

	err := s.CreatePost(context.Background(), store.Post{ID: "t1", Creator: "ghost", Text: "boo", CreatedAt: createdAt})
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	cfg := s.Config()
	if n := client.Len(cfg.TweetsTable); n != 0 {
		t.Errorf("expected no tweets after rejected transaction, got %d", n)
	}
	if n := client.Len(cfg.TimelinesTable); n != 0 {
		t.Errorf("expected no timeline entries after rejected transaction, got %d", n)
	}
}

func TestCreatePost_DuplicateID(t *testing.T) {
	s, _ := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")
	mustCreatePost(t, s, "t1", "u1")

	err := s.CreatePost(context.Background(), store.Post{ID: "t1", Creator: "u1", Text: "again", CreatedAt: createdAt})
	if !errors.Is(err, store.ErrPostExists) {
		t.Fatalf("expected ErrPostExists, got %v", err)
	}

	if p := mustProfile(t, s, "u1"); p.TweetsCount != 1 {
		t.Errorf("expected tweetsCount to stay 1, got %d", p.TweetsCount)
	}
	if got := mustPost(t, s, "t1"); got.Text != "text of t1" {
		t.Errorf("expected original text to survive, got %q", got.Text)
	}
}

func TestCreatePost_TransientError(t *testing.T) {
	s, client := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")

	client.FailNext("TransactWriteItems", errors.New("connection reset by peer"))
	err := s.CreatePost(context.Background(), store.Post{ID: "t1", Creator: "u1", Text: "x", CreatedAt: createdAt})
	if !errors.Is(err, store.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}

	// Retrying with the same id after a failed call creates exactly one post.
	if err := s.CreatePost(context.Background(), store.Post{ID: "t1", Creator: "u1", Text: "x", CreatedAt: createdAt}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if p := mustProfile(t, s, "u1"); p.TweetsCount != 1 {
		t.Errorf("expected tweetsCount 1, got %d", p.TweetsCount)
	}
}

// --- Like / Unlike ---

func TestLike_Twice(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()
	mustCreateProfile(t, s, "u1")
	mustCreatePost(t, s, "t1", "u1")

	if err := s.Like(ctx, "u1", "t1", createdAt); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if err := s.Like(ctx, "u1", "t1", createdAt); !errors.Is(err, store.ErrAlreadyLiked) {
		t.Fatalf("expected ErrAlreadyLiked, got %v", err)
	}

	if got := mustPost(t, s, "t1"); got.Likes != 1 {
		t.Errorf("expected likes 1, got %d", got.Likes)
	}
	if p := mustProfile(t, s, "u1"); p.LikesCount != 1 {
		t.Errorf("expected likesCount 1, got %d", p.LikesCount)
	}
}

func TestLikeUnlikeCycle(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()
	mustCreateProfile(t, s, "u1")
	mustCreatePost(t, s, "t1", "u1")

	steps := []struct {
		name    string
		op      func() error
		wantErr error
		likes   int64
	}{
		{"like", func() error { return s.Like(ctx, "u1", "t1", createdAt) }, nil, 1},
		{"unlike", func() error { return s.Unlike(ctx, "u1", "t1") }, nil, 0},
		{"unlike again", func() error { return s.Unlike(ctx, "u1", "t1") }, store.ErrNotLiked, 0},
		{"like again", func() error { return s.Like(ctx, "u1", "t1", createdAt) }, nil, 1},
	}

	for _, step := range steps {
		err := step.op()
		if !errors.Is(err, step.wantErr) {
			t.Fatalf("%s: expected %v, got %v", step.name, step.wantErr, err)
		}
		if got := mustPost(t, s, "t1"); got.Likes != step.likes {
			t.Fatalf("%s: expected likes %d, got %d", step.name, step.likes, got.Likes)
		}
		if p := mustProfile(t, s, "u1"); p.LikesCount != step.likes {
			t.Fatalf("%s: expected likesCount %d, got %d", step.name, step.likes, p.LikesCount)
		}
	}
}

func TestLike_PostMissing(t *testing.T) {
	s, client := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")

	err := s.Like(context.Background(), "u1", "nope", createdAt)
	if !errors.Is(err, store.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	if n := client.Len(s.Config().LikesTable); n != 0 {
		t.Errorf("expected no ledger entries, got %d", n)
	}
	if p := mustProfile(t, s, "u1"); p.LikesCount != 0 {
		t.Errorf("expected likesCount 0, got %d", p.LikesCount)
	}
}

func TestLike_ProfileMissing(t *testing.T) {
	s, _ := newTestStore(t, 1)
	mustCreateProfile(t, s, "author")
	mustCreatePost(t, s, "t1", "author")

	err := s.Like(context.Background(), "ghost", "t1", createdAt)
	if !errors.Is(err, store.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if got := mustPost(t, s, "t1"); got.Likes != 0 {
		t.Errorf("expected likes 0, got %d", got.Likes)
	}
}

func TestLike_ConcurrentDuplicates(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()
	mustCreateProfile(t, s, "u1")
	mustCreatePost(t, s, "t1", "u1")

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Like(ctx, "u1", "t1", createdAt)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, store.ErrAlreadyLiked):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one like to succeed, got %d", succeeded)
	}
	if got := mustPost(t, s, "t1"); got.Likes != 1 {
		t.Errorf("expected likes 1, got %d", got.Likes)
	}
}

func TestLike_ConcurrentDifferentUsers(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()
	mustCreateProfile(t, s, "author")
	mustCreatePost(t, s, "t1", "author")

	const users = 10
	for i := 0; i < users; i++ {
		mustCreateProfile(t, s, fmt.Sprintf("fan%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Like(ctx, fmt.Sprintf("fan%d", i), "t1", createdAt); err != nil {
				t.Errorf("like by fan%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if got := mustPost(t, s, "t1"); got.Likes != users {
		t.Errorf("expected likes %d, got %d", users, got.Likes)
	}
}

func TestLikedPosts(t *testing.T) {
	s, _ := newTestStore(t, 1)
	ctx := context.Background()
	mustCreateProfile(t, s, "u1")
	mustCreatePost(t, s, "t1", "u1")
	mustCreatePost(t, s, "t2", "u1")
	mustCreatePost(t, s, "t3", "u1")

	if err := s.Like(ctx, "u1", "t2", createdAt); err != nil {
		t.Fatalf("like: %v", err)
	}

	liked, err := s.LikedPosts(ctx, "u1", []string{"t1", "t2", "t3", "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(liked) != 1 || !liked["t2"] {
		t.Errorf("expected only t2 liked, got %v", liked)
	}

	empty, err := s.LikedPosts(ctx, "u1", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result for no ids, got %v, %v", empty, err)
	}
}

// --- BatchGetPosts ---

func TestBatchGetPosts_PreservesOrder(t *testing.T) {
	s, client := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")
	for i := 0; i < 5; i++ {
		mustCreatePost(t, s, fmt.Sprintf("t%d", i), "u1")
	}

	client.BatchSize = 2 // force unprocessed keys
	posts, err := s.BatchGetPosts(context.Background(), []string{"t3", "missing", "t0", "t4", "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"t3", "t0", "t4", "t1"}
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, posts[i].ID)
		}
	}
	if calls := client.Calls("BatchGetItem"); calls < 3 {
		t.Errorf("expected unprocessed keys to be resubmitted, got %d calls", calls)
	}
}

func TestBatchGetPosts_UnprocessedExhausted(t *testing.T) {
	s, client := newTestStore(t, 1)
	mustCreateProfile(t, s, "u1")
	for i := 0; i < 10; i++ {
		mustCreatePost(t, s, fmt.Sprintf("t%d", i), "u1")
	}

	client.BatchSize = 1
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}

	_, err := s.BatchGetPosts(context.Background(), ids)
	if !errors.Is(err, store.ErrTransient) {
		t.Errorf("expected ErrTransient, got %v", err)
	}
}
