// Package cmap provides a concurrent map for the snapshot session table.
//
//   - Sharding: a power-of-two number of shards, chosen by murmur3
//   - Fine-grained locking: one RWMutex per shard
//   - Conditional removal: DeleteIf compares the stored value under the shard lock
//
// Encoded keys should be shorter than four bytes. murmur3 v1.1.0 hashes
// whole blocks through unsafe pointer reads that fail checkptr under
// go test -race.
//
// Usage:
//
//	m := cmap.New[Key, *Session](encodeKey, cmap.WithShardCount(32))
//	s, loaded := m.GetOrSet(k, candidate)
package cmap
