// Package doc defines the capability interface the memory service uses for
// its durable document store: conversation documents and preference
// documents. Grounded on papercomputeco-tapes/pkg/storage/driver.go's shape
// (a narrow Driver interface, Close-releasing-resources) generalized from a
// merkle-DAG node store to the flat conversations/user_preferences
// collections spec.md §3/§6 describe.
package doc

import (
	"context"

	"github.com/Valino123/trip-memory/pkg/memory"
)

// Client is the capability interface for the durable document backend.
// Implementations ensure their schema/indexes exist at construction time,
// per spec.md §4.1.
type Client interface {
	// UpsertConversation inserts or replaces the conversation document keyed
	// by doc.SessionID. created_at is preserved across re-finalisation;
	// updated_at is always bumped to now.
	UpsertConversation(ctx context.Context, d memory.ConversationDocument) error

	// GetConversation returns the conversation document for sessionID, or
	// (zero, false, nil) if absent.
	GetConversation(ctx context.Context, sessionID memory.SessionID) (memory.ConversationDocument, bool, error)

	// GetPreference returns the preference document for userID, or (zero,
	// false, nil) if absent.
	GetPreference(ctx context.Context, userID memory.UserID) (memory.PreferenceDocument, bool, error)

	// SetPreference performs the optimistic-concurrency write described in
	// spec.md §4.4: if expectedVersion is nil, blind-upsert incrementing
	// version by 1 (insert starts at 1); otherwise the write only succeeds
	// if the stored version equals *expectedVersion, atomically setting
	// preferences and incrementing version. Returns the resulting document
	// and whether the write won.
	SetPreference(ctx context.Context, userID memory.UserID, prefs map[string]any, expectedVersion *int) (memory.PreferenceDocument, bool, error)

	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	// Close releases the client's resources.
	Close() error
}
