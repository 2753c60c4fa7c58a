// Package shard provides shard key generation for the follower index.
package shard

import (
	"fmt"
	"hash/fnv"
)

// MaxShards is the upper bound on shards per followee.
const MaxShards = 256

// FollowerPK computes the sharded partition key for a follower index record.
// With numShards=1, all records go to shard "00".
// With numShards>1, records are distributed across shards based on followerRef hash.
func FollowerPK(followeeRef, followerRef string, numShards int) string {
	if numShards <= 1 {
		return PK(followeeRef, 0)
	}
	h := fnv.New32a()
	h.Write([]byte(followerRef))
	return PK(followeeRef, int(h.Sum32()%uint32(numShards)))
}

// PK returns the partition key of one shard of followeeRef.
func PK(followeeRef string, shardNum int) string {
	return fmt.Sprintf("%s#%02x", followeeRef, shardNum)
}

// All returns the partition keys of every shard of followeeRef, in shard order.
func All(followeeRef string, numShards int) []string {
	if numShards < 1 {
		numShards = 1
	}
	if numShards > MaxShards {
		numShards = MaxShards
	}
	pks := make([]string, numShards)
	for i := range pks {
		pks[i] = PK(followeeRef, i)
	}
	return pks
}
