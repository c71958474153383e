// Package snapshot persists immutable universe-state snapshots as columnar
// parquet files with JSON sidecar metadata.
//
// One snapshot per timestamp: universe_state_<ts>.parquet paired with
// metadata_<ts>.json, where <ts> is YYYYMMDD_HHMMSS. The pair is written
// together and removed together; a failed save leaves neither behind.
// "Latest" always means the lexicographically greatest valid timestamp
// among complete pairs.
//
// Storage narrowing is lossless: low-cardinality text columns are
// dictionary-encoded and the volume column is written as int32 when every
// value fits. Loads verify the sidecar checksum before decoding.
//
// The in-process cache is bounded and evicts the entry with the smallest
// timestamp when full. It is an oldest-timestamp policy, not an LRU: access
// order is never consulted.
package snapshot
