// Package preferences implements the PreferenceStore of spec.md §4.4: a
// per-user preference map with optimistic concurrency and a read-through
// cache, grounded on
// original_source/backend/trip_planner/memory/stores/preferences.py's
// get/set/update_one shape.
package preferences

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/memory"
)

const cachePrefix = "pref:"

// cacheEntry is what's stored at pref:{user_id}: preferences plus the
// version they were read at, mirroring the source's "_version" decoration.
type cacheEntry struct {
	Preferences map[string]any `json:"preferences"`
	Version     int            `json:"_version"`
}

// Store is the PreferenceStore of spec.md §4.4.
type Store struct {
	doc    doc.Client
	kv     kv.Client
	cache  bool
	ttl    time.Duration
	stream string
	logger *zap.Logger
}

// Config configures a Store.
type Config struct {
	Doc    doc.Client
	KV     kv.Client
	Cache  bool
	TTL    time.Duration
	Stream string
}

// New returns a Store. Doc or KV may be nil; operations degrade to
// false/nil rather than erroring.
func New(cfg Config, logger *zap.Logger) *Store {
	return &Store{doc: cfg.Doc, kv: cfg.KV, cache: cfg.Cache, ttl: cfg.TTL, stream: cfg.Stream, logger: logger}
}

func cacheKey(userID memory.UserID) string {
	return cachePrefix + string(userID)
}

// Get implements spec.md §4.4's get: cache-first, then document store,
// decorating with _version and warming the cache on a document read.
func (s *Store) Get(ctx context.Context, userID memory.UserID) (map[string]any, int, bool) {
	if s.cache && s.kv != nil {
		if raw, ok, err := s.kv.Get(ctx, cacheKey(userID)); err == nil && ok {
			var entry cacheEntry
			if err := json.Unmarshal([]byte(raw), &entry); err == nil {
				return entry.Preferences, entry.Version, true
			}
		}
	}

	if s.doc == nil {
		return nil, 0, false
	}

	d, ok, err := s.doc.GetPreference(ctx, userID)
	if err != nil || !ok {
		return nil, 0, false
	}

	s.warmCache(ctx, userID, d.Preferences, d.Version)

	return d.Preferences, d.Version, true
}

func (s *Store) warmCache(ctx context.Context, userID memory.UserID, prefs map[string]any, version int) {
	if !s.cache || s.kv == nil {
		return
	}

	encoded, err := json.Marshal(cacheEntry{Preferences: prefs, Version: version})
	if err != nil {
		return
	}

	if err := s.kv.Set(ctx, cacheKey(userID), string(encoded), s.ttl); err != nil {
		s.logger.Warn("warming preference cache failed", zap.String("user_id", string(userID)), zap.Error(err))
	}
}

// Set implements spec.md §4.4's optimistic-concurrency write. A nil
// expectedVersion performs a blind upsert (version starts at 1); otherwise
// the write only succeeds if the stored version matches. On success the
// cache entry is invalidated.
func (s *Store) Set(ctx context.Context, userID memory.UserID, prefs map[string]any, expectedVersion *int) bool {
	if s.doc == nil {
		return false
	}

	_, ok, err := s.doc.SetPreference(ctx, userID, prefs, expectedVersion)
	if err != nil {
		s.logger.Warn("setting preferences failed", zap.String("user_id", string(userID)), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	s.invalidateCache(ctx, userID)

	return true
}

func (s *Store) invalidateCache(ctx context.Context, userID memory.UserID) {
	if !s.cache || s.kv == nil {
		return
	}
	if err := s.kv.Del(ctx, cacheKey(userID)); err != nil {
		s.logger.Warn("invalidating preference cache failed", zap.String("user_id", string(userID)), zap.Error(err))
	}
}

// UpdateOne is a read-modify-write convenience that does not pass an
// expected version (best-effort last-write-wins), per spec.md §4.4.
func (s *Store) UpdateOne(ctx context.Context, userID memory.UserID, key string, value any) bool {
	current, _, ok := s.Get(ctx, userID)
	if !ok {
		current = map[string]any{}
	}

	merged := make(map[string]any, len(current)+1)
	for k, v := range current {
		merged[k] = v
	}
	merged[key] = value

	return s.Set(ctx, userID, merged, nil)
}

// EnqueueExtraction publishes a PreferenceJob to the preference stream, if
// the KV backend is available.
func (s *Store) EnqueueExtraction(ctx context.Context, userID memory.UserID, sessionID memory.SessionID) bool {
	if s.kv == nil {
		return false
	}

	_, err := s.kv.XAdd(ctx, s.stream, map[string]string{
		"user_id":    string(userID),
		"session_id": string(sessionID),
	})
	if err != nil {
		s.logger.Warn("enqueueing preference extraction failed", zap.String("user_id", string(userID)), zap.Error(err))
		return false
	}

	return true
}
