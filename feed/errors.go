package feed

import (
	"context"
	"errors"

	"github.com/jacentio/chirp/store"
)

var (
	// ErrValidation is returned when a request is malformed. Nothing is written.
	ErrValidation = errors.New("chirp: invalid request")

	// ErrLimitExceeded is returned when a page size is above the maximum.
	ErrLimitExceeded = errors.New("chirp: page limit exceeded")
)

// Kind classifies an error returned by Service.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindLimitExceeded
	KindTransient
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindLimitExceeded:
		return "limit_exceeded"
	case KindTransient:
		return "transient"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of err. It returns KindUnknown for nil.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrValidation),
		errors.Is(err, store.ErrSelfFollow),
		errors.Is(err, store.ErrInvalidCursor):
		return KindValidation
	case errors.Is(err, ErrLimitExceeded):
		return KindLimitExceeded
	case errors.Is(err, store.ErrProfileNotFound),
		errors.Is(err, store.ErrPostNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrPostExists),
		errors.Is(err, store.ErrProfileExists),
		errors.Is(err, store.ErrAlreadyLiked),
		errors.Is(err, store.ErrNotLiked),
		errors.Is(err, store.ErrAlreadyFollowing),
		errors.Is(err, store.ErrNotFollowing):
		return KindConflict
	case errors.Is(err, store.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, store.ErrRejected):
		return KindRejected
	default:
		return KindUnknown
	}
}

// IsRetryable reports whether the failed operation may be retried as is.
// A write that timed out may have been applied; CreatePost retries must
// reuse the post id of the first attempt.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}
