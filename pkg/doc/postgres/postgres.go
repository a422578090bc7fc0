// Package postgres implements doc.Client against PostgreSQL via pgxpool and
// raw SQL. Grounded on papercomputeco-tapes/pkg/storage/postgres's
// connect/ping/auto-migrate-on-construct shape, but written directly against
// jackc/pgx/v5 rather than through entgo.io/ent — ent requires generated
// schema code this exercise cannot produce (see DESIGN.md).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	messages JSONB NOT NULL,
	summary TEXT NOT NULL,
	message_count INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversations_user_updated_idx ON conversations (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS user_preferences (
	user_id TEXT PRIMARY KEY,
	preferences JSONB NOT NULL,
	version INT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Client implements doc.Client using a pgxpool.Pool.
type Client struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewClient connects to dsn, pings it, and ensures the schema exists —
// the raw-SQL equivalent of the teacher's ent Schema.Create auto-migration.
func NewClient(ctx context.Context, dsn string, logger *zap.Logger) (*Client, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	logger.Info("connected to postgres")

	return &Client{pool: pool, logger: logger}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// UpsertConversation preserves created_at across re-finalisation and always
// bumps updated_at, per spec.md §4.3.1.
func (c *Client) UpsertConversation(ctx context.Context, d memory.ConversationDocument) error {
	messages, err := json.Marshal(d.Messages)
	if err != nil {
		return fmt.Errorf("marshalling messages: %w", err)
	}

	now := time.Now().UTC()
	_, err = c.pool.Exec(ctx, `
		INSERT INTO conversations (session_id, user_id, messages, summary, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			user_id = excluded.user_id,
			messages = excluded.messages,
			summary = excluded.summary,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at
	`, d.SessionID, d.UserID, messages, d.Summary, d.MessageCount, now)
	if err != nil {
		return fmt.Errorf("upserting conversation %q: %w", d.SessionID, err)
	}

	return nil
}

func (c *Client) GetConversation(ctx context.Context, sessionID memory.SessionID) (memory.ConversationDocument, bool, error) {
	var (
		d        memory.ConversationDocument
		messages []byte
	)

	row := c.pool.QueryRow(ctx, `
		SELECT session_id, user_id, messages, summary, message_count, created_at, updated_at
		FROM conversations WHERE session_id = $1
	`, sessionID)

	err := row.Scan(&d.SessionID, &d.UserID, &messages, &d.Summary, &d.MessageCount, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.ConversationDocument{}, false, nil
	}
	if err != nil {
		return memory.ConversationDocument{}, false, fmt.Errorf("getting conversation %q: %w", sessionID, err)
	}

	if err := json.Unmarshal(messages, &d.Messages); err != nil {
		return memory.ConversationDocument{}, false, fmt.Errorf("unmarshalling messages: %w", err)
	}

	return d, true, nil
}

func (c *Client) GetPreference(ctx context.Context, userID memory.UserID) (memory.PreferenceDocument, bool, error) {
	var (
		p    memory.PreferenceDocument
		prefs []byte
	)

	row := c.pool.QueryRow(ctx, `
		SELECT user_id, preferences, version, updated_at FROM user_preferences WHERE user_id = $1
	`, userID)

	err := row.Scan(&p.UserID, &prefs, &p.Version, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.PreferenceDocument{}, false, nil
	}
	if err != nil {
		return memory.PreferenceDocument{}, false, fmt.Errorf("getting preferences for %q: %w", userID, err)
	}

	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return memory.PreferenceDocument{}, false, fmt.Errorf("unmarshalling preferences: %w", err)
	}

	return p, true, nil
}

// SetPreference implements the optimistic-concurrency write of spec.md §4.4.
func (c *Client) SetPreference(ctx context.Context, userID memory.UserID, prefs map[string]any, expectedVersion *int) (memory.PreferenceDocument, bool, error) {
	data, err := json.Marshal(prefs)
	if err != nil {
		return memory.PreferenceDocument{}, false, fmt.Errorf("marshalling preferences: %w", err)
	}

	now := time.Now().UTC()

	if expectedVersion == nil {
		var version int
		err := c.pool.QueryRow(ctx, `
			INSERT INTO user_preferences (user_id, preferences, version, updated_at)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (user_id) DO UPDATE SET
				preferences = excluded.preferences,
				version = user_preferences.version + 1,
				updated_at = excluded.updated_at
			RETURNING version
		`, userID, data, now).Scan(&version)
		if err != nil {
			return memory.PreferenceDocument{}, false, fmt.Errorf("blind-upserting preferences for %q: %w", userID, err)
		}

		return memory.PreferenceDocument{UserID: userID, Preferences: prefs, Version: version, UpdatedAt: now}, true, nil
	}

	var version int
	err = c.pool.QueryRow(ctx, `
		UPDATE user_preferences SET preferences = $1, version = version + 1, updated_at = $2
		WHERE user_id = $3 AND version = $4
		RETURNING version
	`, data, now, userID, *expectedVersion).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.PreferenceDocument{}, false, nil
	}
	if err != nil {
		return memory.PreferenceDocument{}, false, fmt.Errorf("conditionally setting preferences for %q: %w", userID, err)
	}

	return memory.PreferenceDocument{UserID: userID, Preferences: prefs, Version: version, UpdatedAt: now}, true, nil
}
