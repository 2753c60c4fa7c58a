// Package feed is the request-facing layer of the feed core. It validates
// input, stamps ids and timestamps, delegates every write to a single store
// transaction and joins per-viewer state into timeline pages.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jacentio/chirp/monitoring"
	"github.com/jacentio/chirp/store"
)

// Service exposes the feed operations. It is safe for concurrent use.
type Service struct {
	store  *store.Store
	config Config
	logger *slog.Logger
}

// New creates a Service backed by s.
func New(s *store.Store, config Config, logger *slog.Logger) *Service {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		config: config,
		logger: logger,
	}
}

// Post is a post as seen by a viewer.
type Post struct {
	store.Post
	Liked bool `json:"liked"`
}

// Page is one page of a timeline, newest first.
type Page struct {
	Posts []Post `json:"tweets"`

	// NextCursor is nil on the final page.
	NextCursor *string `json:"nextToken"`
}

// NewPostID returns a fresh post id for CreatePost. Callers that retry a
// create after a transient failure obtain the id once and pass it on every
// attempt.
func (s *Service) NewPostID() (string, error) {
	id, err := s.config.IDs.NewID(s.config.Clock.Now())
	if err != nil {
		return "", fmt.Errorf("generate post id: %w", err)
	}
	return id, nil
}

// CreatePost publishes text as a new post by authorID. The post, its self and
// home timeline entries and the author's tweetsCount change together or not
// at all.
//
// postID may be empty, in which case a new id is generated and a retry cannot
// be told apart from a second post. When postID is given and a post with that
// id, author and text already exists, the stored post is returned and nothing
// is written, so the call can be repeated after a transient failure. The same
// id with a different author or text fails with store.ErrPostExists.
func (s *Service) CreatePost(ctx context.Context, authorID, postID, text string) (_ *Post, err error) {
	defer s.observe("create_post", time.Now(), &err)

	if authorID == "" {
		return nil, fmt.Errorf("%w: author id is required", ErrValidation)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > s.config.MaxTextLength {
		return nil, fmt.Errorf("%w: text is %d characters, max is %d", ErrValidation, n, s.config.MaxTextLength)
	}

	now := s.config.Clock.Now()
	callerID := postID != ""
	if !callerID {
		if postID, err = s.config.IDs.NewID(now); err != nil {
			return nil, fmt.Errorf("generate post id: %w", err)
		}
	}

	post := store.Post{
		Kind:      store.KindTweet,
		ID:        postID,
		Creator:   authorID,
		Text:      text,
		CreatedAt: formatTimestamp(now),
	}
	err = s.store.CreatePost(ctx, post)
	if callerID && errors.Is(err, store.ErrPostExists) {
		existing, getErr := s.store.GetPost(ctx, postID)
		if getErr != nil {
			return nil, fmt.Errorf("create post: %w", getErr)
		}
		if existing.Creator == authorID && existing.Text == text {
			s.logger.Info("post already created", "postId", postID, "creator", authorID)
			return &Post{Post: *existing}, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created", "postId", postID, "creator", authorID)
	return &Post{Post: post}, nil
}

// Like records that userID likes postID.
// Liking twice fails with store.ErrAlreadyLiked and changes nothing.
func (s *Service) Like(ctx context.Context, userID, postID string) (err error) {
	defer s.observe("like", time.Now(), &err)

	if err := requireIDs(userID, postID); err != nil {
		return err
	}
	if err := s.store.Like(ctx, userID, postID, formatTimestamp(s.config.Clock.Now())); err != nil {
		return fmt.Errorf("like: %w", err)
	}

	s.logger.Info("post liked", "postId", postID, "userId", userID)
	return nil
}

// Unlike removes userID's like of postID.
// Unliking a post that is not liked fails with store.ErrNotLiked.
func (s *Service) Unlike(ctx context.Context, userID, postID string) (err error) {
	defer s.observe("unlike", time.Now(), &err)

	if err := requireIDs(userID, postID); err != nil {
		return err
	}
	if err := s.store.Unlike(ctx, userID, postID); err != nil {
		return fmt.Errorf("unlike: %w", err)
	}

	s.logger.Info("post unliked", "postId", postID, "userId", userID)
	return nil
}

// Follow makes userID follow otherUserID. Existing posts of otherUserID are
// not copied into userID's home timeline; new ones arrive through fan-out.
func (s *Service) Follow(ctx context.Context, userID, otherUserID string) (err error) {
	defer s.observe("follow", time.Now(), &err)

	if err := requireIDs(userID, otherUserID); err != nil {
		return err
	}
	if userID == otherUserID {
		return fmt.Errorf("%w: %w", ErrValidation, store.ErrSelfFollow)
	}
	if err := s.store.Follow(ctx, userID, otherUserID, formatTimestamp(s.config.Clock.Now())); err != nil {
		return fmt.Errorf("follow: %w", err)
	}

	s.logger.Info("user followed", "userId", userID, "otherUserId", otherUserID)
	return nil
}

// Unfollow makes userID stop following otherUserID. Entries already on
// userID's home timeline stay.
func (s *Service) Unfollow(ctx context.Context, userID, otherUserID string) (err error) {
	defer s.observe("unfollow", time.Now(), &err)

	if err := requireIDs(userID, otherUserID); err != nil {
		return err
	}
	if userID == otherUserID {
		return fmt.Errorf("%w: %w", ErrValidation, store.ErrSelfFollow)
	}
	if err := s.store.Unfollow(ctx, userID, otherUserID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}

	s.logger.Info("user unfollowed", "userId", userID, "otherUserId", otherUserID)
	return nil
}

// GetProfile returns the profile of userID.
func (s *Service) GetProfile(ctx context.Context, userID string) (_ *store.Profile, err error) {
	defer s.observe("get_profile", time.Now(), &err)

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.store.GetProfile(ctx, userID)
}

func (s *Service) observe(op string, start time.Time, err *error) {
	outcome := monitoring.OutcomeOK
	if *err != nil {
		outcome = KindOf(*err).String()
		s.logger.Debug("operation failed", "op", op, "kind", outcome, "error", *err)
	}
	s.config.Metrics.ObserveOperation(op, outcome, time.Since(start))
}

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: ids are required", ErrValidation)
		}
	}
	return nil
}
