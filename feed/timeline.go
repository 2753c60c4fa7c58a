package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jacentio/chirp/store"
)

// GetSelfTimeline returns a page of the posts userID authored, with Liked set
// for viewerID.
func (s *Service) GetSelfTimeline(ctx context.Context, viewerID, userID string, limit int32, cursor string) (_ *Page, err error) {
	defer s.observe("get_self_timeline", time.Now(), &err)
	return s.readTimeline(ctx, store.SelfTimeline, viewerID, userID, limit, cursor)
}

// GetHomeTimeline returns a page of userID's home timeline, with Liked set
// for userID.
func (s *Service) GetHomeTimeline(ctx context.Context, userID string, limit int32, cursor string) (_ *Page, err error) {
	defer s.observe("get_home_timeline", time.Now(), &err)
	return s.readTimeline(ctx, store.HomeTimeline, userID, userID, limit, cursor)
}

func (s *Service) readTimeline(ctx context.Context, timeline store.Timeline, viewerID, ownerID string, limit int32, cursor string) (*Page, error) {
	if limit > s.config.MaxPageSize {
		return nil, fmt.Errorf("%w: max limit is %d", ErrLimitExceeded, s.config.MaxPageSize)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1", ErrValidation)
	}
	if err := requireIDs(viewerID, ownerID); err != nil {
		return nil, err
	}

	result, err := s.store.QueryTimeline(ctx, store.TimelineQuery{
		Timeline: timeline,
		UserID:   ownerID,
		Limit:    limit,
		Cursor:   cursor,
	})
	if errors.Is(err, store.ErrInvalidCursor) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s timeline: %w", timeline, err)
	}

	ids := make([]string, len(result.Entries))
	for i, entry := range result.Entries {
		ids[i] = entry.TweetID
	}

	posts, err := s.store.BatchGetPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	if len(posts) != len(ids) {
		s.logger.Warn("timeline entries without post",
			"owner", timeline.Ref(ownerID),
			"entries", len(ids),
			"posts", len(posts),
		)
	}

	liked, err := s.store.LikedPosts(ctx, viewerID, ids)
	if err != nil {
		return nil, fmt.Errorf("get likes: %w", err)
	}

	page := &Page{Posts: make([]Post, len(posts))}
	for i, post := range posts {
		page.Posts[i] = Post{Post: post, Liked: liked[post.ID]}
	}
	if result.NextCursor != "" {
		next := result.NextCursor
		page.NextCursor = &next
	}
	return page, nil
}
