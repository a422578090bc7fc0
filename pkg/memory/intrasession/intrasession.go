// Package intrasession implements the per-session append-only message log
// with sliding TTL (spec.md §4.2), grounded on
// original_source/backend/trip_planner/memory/stores/intra_session.py's
// rpush-then-expire shape.
package intrasession

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/memory"
)

const keyPrefix = "session:"

// Store is the IntraSessionStore of spec.md §4.2. client may be nil — every
// operation degrades to a no-op/false/empty result rather than erroring,
// per spec.md §4.1's null-capability policy.
type Store struct {
	client kv.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New returns a Store backed by client, using ttl as the sliding window.
// client may be nil to represent a backend that failed to connect.
func New(client kv.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{client: client, ttl: ttl, logger: logger}
}

func sessionKey(id memory.SessionID) string {
	return keyPrefix + string(id)
}

// Append appends message to the tail of the session's log and unconditionally
// resets the key's TTL — the sliding-window mechanism. Returns false if the
// backend is unavailable or the write fails; it never escalates the error.
func (s *Store) Append(ctx context.Context, sessionID memory.SessionID, msg memory.Message) bool {
	if s.client == nil {
		return false
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encoding message", zap.Error(err))
		return false
	}

	if err := s.client.RPush(ctx, sessionKey(sessionID), string(encoded), s.ttl); err != nil {
		s.logger.Warn("intra-session append failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	return true
}

// List returns the session's messages in insertion order. If limit > 0 only
// the last limit entries are returned. Returns an empty slice (never an
// error) when the backend is unavailable or the session has no entries.
func (s *Store) List(ctx context.Context, sessionID memory.SessionID, limit int) []memory.Message {
	if s.client == nil {
		return nil
	}

	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}

	raw, err := s.client.LRange(ctx, sessionKey(sessionID), start, -1)
	if err != nil {
		s.logger.Warn("intra-session list failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return nil
	}

	messages := make([]memory.Message, 0, len(raw))
	for _, entry := range raw {
		var msg memory.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			s.logger.Warn("skipping malformed session entry", zap.String("session_id", string(sessionID)), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	return messages
}

// Clear deletes the session's key.
func (s *Store) Clear(ctx context.Context, sessionID memory.SessionID) bool {
	if s.client == nil {
		return false
	}

	if err := s.client.Del(ctx, sessionKey(sessionID)); err != nil {
		s.logger.Warn("intra-session clear failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	return true
}

// Refresh resets the session's TTL without reading or writing content.
func (s *Store) Refresh(ctx context.Context, sessionID memory.SessionID) bool {
	if s.client == nil {
		return false
	}

	ok, err := s.client.Expire(ctx, sessionKey(sessionID), s.ttl)
	if err != nil {
		s.logger.Warn("intra-session refresh failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	return ok
}
