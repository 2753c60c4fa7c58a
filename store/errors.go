package store

import "errors"

var (
	// ErrProfileNotFound is returned when a referenced profile doesn't exist.
	ErrProfileNotFound = errors.New("chirp: profile not found")

	// ErrPostNotFound is returned when a referenced post doesn't exist.
	ErrPostNotFound = errors.New("chirp: post not found")

	// ErrProfileExists is returned when creating a profile with an existing ID.
	ErrProfileExists = errors.New("chirp: profile already exists")

	// ErrPostExists is returned when creating a post with an existing ID.
	ErrPostExists = errors.New("chirp: post already exists")

	// ErrAlreadyLiked is returned when the like ledger already has the (user, post) entry.
	ErrAlreadyLiked = errors.New("chirp: post already liked")

	// ErrNotLiked is returned when unliking a post without a ledger entry.
	ErrNotLiked = errors.New("chirp: post not liked")

	// ErrAlreadyFollowing is returned when the follow ledger already has the pair.
	ErrAlreadyFollowing = errors.New("chirp: already following")

	// ErrNotFollowing is returned when unfollowing without a follow ledger entry.
	ErrNotFollowing = errors.New("chirp: not following")

	// ErrSelfFollow is returned when a user tries to follow or unfollow themselves.
	ErrSelfFollow = errors.New("chirp: cannot follow yourself")

	// ErrInvalidCursor is returned when a pagination cursor can't be decoded.
	ErrInvalidCursor = errors.New("chirp: invalid cursor")

	// ErrRejected wraps transactions DynamoDB canceled for a reason that a
	// retry of the same request cannot fix, such as a validation failure or an
	// item collection over its size limit.
	ErrRejected = errors.New("chirp: request rejected by store")

	// ErrTransient wraps backing store failures that are safe to retry. Every
	// write is a single all-or-nothing call, but a timeout can hide a commit.
	ErrTransient = errors.New("chirp: store unavailable")
)
