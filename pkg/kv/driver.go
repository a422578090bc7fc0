// Package kv defines the capability interface the memory service uses for
// its key-value/stream backend: the intra-session append log, the
// preference read-through cache, and the embedding/preference job streams.
// Grounded on _examples/original_source/backend/trip_planner/memory/
// connections/redis.py (lazy client, ping-on-connect) and the stream calls
// in scripts/embedding_worker.py / pref_worker.py / embedding_control.py.
package kv

import (
	"context"
	"time"
)

// StreamEntry is one entry read from a stream via ReadGroup or AutoClaim.
type StreamEntry struct {
	ID     string
	Values map[string]string
}

// PendingSummary reports aggregate pending-entry counts for a consumer group,
// mirroring Redis's XPENDING summary form.
type PendingSummary struct {
	Count     int64
	Consumers map[string]int64
}

// Client is the capability interface for the KV/stream backend. Every
// capability method returns (T, error); store-layer callers (C2-C4) convert
// backend errors into the spec's degrade-to-empty/false policy.
type Client interface {
	// --- sliding-TTL append log (IntraSessionStore) ---

	// RPush appends value to the tail of the list at key and resets the
	// key's TTL to ttl, the sliding-window mechanism of spec.md §4.2.
	RPush(ctx context.Context, key string, value string, ttl time.Duration) error

	// LRange returns entries [start, stop] in insertion order. stop = -1
	// means "to the end".
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Expire resets key's TTL without reading or writing its content.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Del deletes key.
	Del(ctx context.Context, key string) error

	// --- read-through cache (PreferenceStore) ---

	// Get returns (value, true, nil) on hit, ("", false, nil) on miss.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value at key with the given TTL.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// --- streams (EmbeddingWorker, PrefWorker, WorkerController) ---

	// XAdd appends a job entry to stream, returning its entry ID.
	XAdd(ctx context.Context, stream string, values map[string]string) (string, error)

	// EnsureGroup creates group on stream if it does not already exist
	// (idempotent; "already exists" is not an error).
	EnsureGroup(ctx context.Context, stream, group string) error

	// ReadGroup reads up to count new entries (cursor ">") for consumer in
	// group, blocking up to block for entries to arrive.
	ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]StreamEntry, error)

	// Ack acknowledges entry ids in group on stream.
	Ack(ctx context.Context, stream, group string, ids ...string) error

	// AutoClaim reassigns entries idle longer than minIdle to consumer,
	// without acking them, and returns the claimed entries.
	AutoClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]StreamEntry, error)

	// Pending returns the aggregate pending-entry summary for group on
	// stream.
	Pending(ctx context.Context, stream, group string) (PendingSummary, error)

	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	// Close releases the client's resources.
	Close() error
}
