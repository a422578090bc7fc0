package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	qaPairMaxLen          = 200
	qaSummaryMaxLen       = 800
	defaultFormatMaxChars = 800
)

// IntraSession is the subset of intrasession.Store the Manager depends on.
type IntraSession interface {
	Append(ctx context.Context, sessionID SessionID, msg Message) bool
	List(ctx context.Context, sessionID SessionID, limit int) []Message
	Clear(ctx context.Context, sessionID SessionID) bool
	Refresh(ctx context.Context, sessionID SessionID) bool
}

// InterSession is the subset of intersession.Store the Manager depends on.
type InterSession interface {
	Save(ctx context.Context, userID UserID, sessionID SessionID, messages []Message) bool
	EnqueueEmbedding(ctx context.Context, userID UserID, sessionID SessionID, content string) bool
	RetrieveSimilar(ctx context.Context, userID UserID, query string, k int, minSim float32) []Scored
}

// Preferences is the subset of preferences.Store the Manager depends on.
type Preferences interface {
	Get(ctx context.Context, userID UserID) (map[string]any, int, bool)
	Set(ctx context.Context, userID UserID, prefs map[string]any, expectedVersion *int) bool
	UpdateOne(ctx context.Context, userID UserID, key string, value any) bool
	EnqueueExtraction(ctx context.Context, userID UserID, sessionID SessionID) bool
}

// Manager is the MemoryManager façade of spec.md §4.5: session finalisation
// choreography, retrieval defaults, and context formatting, unifying C2-C4
// behind the public operations of spec.md §6.
type Manager struct {
	Intra IntraSession
	Inter InterSession
	Prefs Preferences

	AsyncEmbedding   bool
	PrefExtraction   bool
	DefaultRetrieval int
	MinSimilarity    float32

	logger *zap.Logger
}

// Config configures a Manager.
type Config struct {
	Intra IntraSession
	Inter InterSession
	Prefs Preferences

	AsyncEmbedding   bool
	PrefExtraction   bool
	DefaultRetrieval int
	MinSimilarity    float32
}

// NewManager returns a Manager wired to its three tiers.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		Intra:            cfg.Intra,
		Inter:            cfg.Inter,
		Prefs:            cfg.Prefs,
		AsyncEmbedding:   cfg.AsyncEmbedding,
		PrefExtraction:   cfg.PrefExtraction,
		DefaultRetrieval: cfg.DefaultRetrieval,
		MinSimilarity:    cfg.MinSimilarity,
		logger:           logger,
	}
}

// Append writes one message into the active session's intra-session log.
func (m *Manager) Append(ctx context.Context, sessionID SessionID, msg Message) bool {
	return m.Intra.Append(ctx, sessionID, msg)
}

// List returns the active session's messages, most recent limit if limit > 0.
func (m *Manager) List(ctx context.Context, sessionID SessionID, limit int) []Message {
	return m.Intra.List(ctx, sessionID, limit)
}

// Refresh resets the active session's sliding TTL.
func (m *Manager) Refresh(ctx context.Context, sessionID SessionID) bool {
	return m.Intra.Refresh(ctx, sessionID)
}

// FinalizeSession implements spec.md §4.5: drain the intra-session log,
// persist the conversation, optionally enqueue embedding work, then clear
// the intra-session log. An empty session is a true no-op (idempotent).
func (m *Manager) FinalizeSession(ctx context.Context, userID UserID, sessionID SessionID) bool {
	messages := m.Intra.List(ctx, sessionID, 0)
	if len(messages) == 0 {
		return true
	}

	if !m.Inter.Save(ctx, userID, sessionID, messages) {
		return false
	}

	if m.AsyncEmbedding {
		m.Inter.EnqueueEmbedding(ctx, userID, sessionID, buildQAPairedSummary(messages))
	}

	if m.PrefExtraction {
		m.Prefs.EnqueueExtraction(ctx, userID, sessionID)
	}

	return m.Intra.Clear(ctx, sessionID)
}

// buildQAPairedSummary implements spec.md §4.5 step 3: pair adjacent
// messages (msg[2i], msg[2i+1]) as "Q: ...[:200]\nA: ...[:200]", joined by
// blank lines, truncated to 800 chars.
func buildQAPairedSummary(messages []Message) string {
	var pairs []string

	for i := 0; i+1 < len(messages); i += 2 {
		q := truncate(messages[i].Content, qaPairMaxLen)
		a := truncate(messages[i+1].Content, qaPairMaxLen)
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", q, a))
	}

	summary := strings.Join(pairs, "\n\n")
	return truncate(summary, qaSummaryMaxLen)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// RetrieveRelevantMemories delegates to the inter-session store's similarity
// search, applying the configured defaults (k=6, min_sim=0.40) when the
// caller passes zero values.
func (m *Manager) RetrieveRelevantMemories(ctx context.Context, userID UserID, query string, k int, minSim float32) []Scored {
	if k <= 0 {
		k = m.DefaultRetrieval
	}
	if minSim <= 0 {
		minSim = m.MinSimilarity
	}

	return m.Inter.RetrieveSimilar(ctx, userID, query, k, minSim)
}

// FormatMemoriesForContext implements spec.md §4.5's context formatter:
// "- (inter, similarity=S.SS) content[:200]" lines under a fixed header,
// stopping before a line that would take the accumulated body past maxChars.
func FormatMemoriesForContext(items []Scored, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultFormatMaxChars
	}

	var body strings.Builder
	for _, s := range items {
		line := fmt.Sprintf("- (%s, similarity=%.2f) %s\n", s.Item.Type, s.Score, truncate(s.Item.Content, 200))
		if body.Len()+len(line) > maxChars {
			break
		}
		body.WriteString(line)
	}

	if body.Len() == 0 {
		return ""
	}

	return "Relevant context from past conversations:\n" + body.String()
}

// GetPreferences returns the user's preference map, or nil if none exist.
func (m *Manager) GetPreferences(ctx context.Context, userID UserID) map[string]any {
	prefs, _, ok := m.Prefs.Get(ctx, userID)
	if !ok {
		return nil
	}
	return prefs
}

// UpdatePreference sets a single preference key via best-effort
// read-modify-write (no expected version).
func (m *Manager) UpdatePreference(ctx context.Context, userID UserID, key string, value any) bool {
	return m.Prefs.UpdateOne(ctx, userID, key, value)
}
