// Package store provides the DynamoDB data access layer of the feed core.
//
// It keeps four collections mutually consistent without a coordinator:
// profiles (with aggregate counters), tweets, the timeline index and the like
// ledger. A fifth and sixth, the follow ledger and the sharded follower index,
// back the follow toggle and the follower fan-out.
//
// # Consistency
//
// Every mutation that spans collections is exactly one TransactWriteItems
// call. Counters only change through ADD inside those transactions, and each
// transaction carries the conditions that make it safe to retry:
//
//   - [Store.CreatePost]: tweet put (id must be new), self and home timeline
//     puts, creator tweetsCount +1 (profile must exist)
//   - [Store.Like] / [Store.Unlike]: ledger put/delete (must be absent/present),
//     post likes ±1 and user likesCount ±1 (both must exist)
//   - [Store.Follow] / [Store.Unfollow]: ledger put/delete, follower index
//     put/delete, followingCount and followersCount ±1
//
// # Pagination
//
// [Store.QueryTimeline] reads a timeline newest first. Post ids are ULIDs, so
// the timeline sort key orders by creation time. The cursor is an opaque token
// holding the sort key of the last returned entry.
//
// # Errors
//
// Failed conditions are reported as domain errors, never as raw DynamoDB
// exceptions:
//
//   - [ErrProfileNotFound], [ErrPostNotFound] - referenced record is missing
//   - [ErrPostExists], [ErrProfileExists] - ID already taken
//   - [ErrAlreadyLiked], [ErrNotLiked] - like ledger guard
//   - [ErrAlreadyFollowing], [ErrNotFollowing] - follow ledger guard
//   - [ErrInvalidCursor] - malformed pagination token
//
// A transaction DynamoDB cancels for any other reason is wrapped with
// [ErrTransient] when the reason is contention or throttling and with
// [ErrRejected] otherwise. Every other backing store failure is wrapped with
// [ErrTransient].
package store
