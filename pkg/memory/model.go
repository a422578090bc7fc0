// Package memory implements the tiered conversational memory service: an
// intra-session store with sliding TTL, a durable inter-session store with
// lazy vectorisation, and a per-user preference store with optimistic
// concurrency, unified behind the Manager façade.
package memory

import "time"

// SessionID and UserID are opaque partition keys; the core never interprets
// their contents.
type SessionID string
type UserID string

// MessageType enumerates the allowed roles for a Message.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageAgent  MessageType = "agent"
	MessageSystem MessageType = "system"
	MessageTool   MessageType = "tool"
)

// Message is a single turn in a conversation. Content is an opaque-to-the-
// core JSON payload otherwise.
type Message struct {
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// ConversationDocument is the durable record of one finalised session.
// Invariants: SessionID is unique across the collection; UpdatedAt >=
// CreatedAt; Messages preserves the order messages were appended in the
// intra-session log.
type ConversationDocument struct {
	SessionID    SessionID `json:"session_id"`
	UserID       UserID    `json:"user_id"`
	Messages     []Message `json:"messages"`
	Summary      string    `json:"summary"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VectorPayload is the metadata attached to a VectorPoint.
type VectorPayload struct {
	UserID    UserID    `json:"user_id"`
	SessionID SessionID `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
}

// VectorPoint is one entry in the vector index. len(Vector) == D (the
// config-fixed embedding dimension); UserID is always present and is the
// primary filter key; ID is unique.
type VectorPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload VectorPayload `json:"payload"`
}

// PreferenceDocument is the durable per-user preference record. Version
// monotonically increases; every successful write increments it by exactly 1.
type PreferenceDocument struct {
	UserID      UserID                 `json:"user_id"`
	Preferences map[string]any         `json:"preferences"`
	Version     int                    `json:"version"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// EmbeddingJob is a stream entry on the embedding queue. Jobs are immutable
// once enqueued; retry is implicit via non-ack.
type EmbeddingJob struct {
	UserID    UserID    `json:"user_id"`
	SessionID SessionID `json:"session_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PreferenceJob is a stream entry on the preference queue.
type PreferenceJob struct {
	UserID    UserID    `json:"user_id"`
	SessionID SessionID `json:"session_id"`
}

// MemoryType tags the provenance of a MemoryItem. profile and turn are
// recovered from the original Python MemoryType enum
// (memory/models.py) — no operation in this spec emits them yet, but the
// type carries the tag so a future profile/turn producer doesn't need a
// breaking enum change.
type MemoryType string

const (
	MemoryIntra      MemoryType = "intra"
	MemoryInter      MemoryType = "inter"
	MemoryPreference MemoryType = "preference"
	MemoryProfile    MemoryType = "profile"
	MemoryTurn       MemoryType = "turn"
)

// MemoryItem is the in-memory, caller-facing representation of one recalled
// piece of memory.
type MemoryItem struct {
	ID        string         `json:"id"`
	UserID    UserID         `json:"user_id"`
	SessionID *SessionID     `json:"session_id,omitempty"`
	Type      MemoryType     `json:"type"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Version   int            `json:"version,omitempty"`
}

// Scored pairs a MemoryItem with its retrieval similarity score.
type Scored struct {
	Item  MemoryItem
	Score float32
}
