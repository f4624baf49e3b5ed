// Package mutex implements a Redis-backed distributed mutual-exclusion lock
// with a bounded lease. Each acquisition writes a unique fencing token with
// SET NX PX; release runs an atomic compare-and-delete script so only the
// holder of the current token can remove the key. Acquisition supports a
// bounded retry loop, and held locks carry a best-effort scope-end release
// safety net for callers that forget to release.
package mutex
