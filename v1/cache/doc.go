// Package cache provides a read-through (cache-aside) helper over Redis.
// Values are encoded with a pluggable codec, loads for the same key are
// deduplicated, and an optional in-process front tier can be enabled for hot
// keys.
package cache
