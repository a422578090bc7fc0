// Package intersession implements the durable cross-session store: saving
// finalised conversations, dispatching embedding work (immediate or
// queued), and similarity retrieval with document enrichment (spec.md
// §4.3). Grounded on
// original_source/backend/trip_planner/memory/stores/inter_session.py's
// save/enqueue/retrieve shape.
package intersession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/embeddings"
	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/vector"
)

const (
	// VectorCollection is the logically-separate-from-the-doc-collection
	// vector collection name of spec.md §6.
	VectorCollection = "conversations"

	summaryMaxLen     = 800
	messageMaxLen     = 150
	payloadContentMax = 500
)

// Store is the InterSessionStore of spec.md §4.3.
type Store struct {
	docClient    doc.Client
	vectorClient vector.Client
	kvClient     kv.Client
	embedder     embeddings.Embedder

	embeddingStream string
	dimensions      uint64
	asyncEmbedding  bool

	logger *zap.Logger
}

// Config configures a Store.
type Config struct {
	Doc      doc.Client
	Vector   vector.Client
	KV       kv.Client
	Embedder embeddings.Embedder

	EmbeddingStream string
	Dimensions      uint64
	AsyncEmbedding  bool
}

// New returns a Store. Any backend client may be nil; operations degrade to
// false/empty rather than erroring, per spec.md §4.1.
func New(cfg Config, logger *zap.Logger) *Store {
	return &Store{
		docClient:       cfg.Doc,
		vectorClient:    cfg.Vector,
		kvClient:        cfg.KV,
		embedder:        cfg.Embedder,
		embeddingStream: cfg.EmbeddingStream,
		dimensions:      cfg.Dimensions,
		asyncEmbedding:  cfg.AsyncEmbedding,
		logger:          logger,
	}
}

// BuildSummary implements spec.md §4.3.1 step 1: the first <=10 messages,
// concatenated as "[type] content[:150]" joined by " | ", truncated to 800
// chars.
func BuildSummary(messages []memory.Message) string {
	n := len(messages)
	if n > 10 {
		n = 10
	}

	parts := make([]string, 0, n)
	for _, m := range messages[:n] {
		content := m.Content
		if len(content) > messageMaxLen {
			content = content[:messageMaxLen]
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", m.Type, content))
	}

	summary := strings.Join(parts, " | ")
	if len(summary) > summaryMaxLen {
		summary = summary[:summaryMaxLen]
	}

	return summary
}

// Save upserts the conversation document keyed by sessionID, per spec.md
// §4.3.1. Returns false (without escalating) if the document backend is
// unavailable or the write fails.
func (s *Store) Save(ctx context.Context, userID memory.UserID, sessionID memory.SessionID, messages []memory.Message) bool {
	if s.docClient == nil {
		return false
	}

	convoDoc := memory.ConversationDocument{
		SessionID:    sessionID,
		UserID:       userID,
		Messages:     messages,
		Summary:      BuildSummary(messages),
		MessageCount: len(messages),
	}

	if err := s.docClient.UpsertConversation(ctx, convoDoc); err != nil {
		s.logger.Warn("saving conversation failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	return true
}

// EnqueueEmbedding implements spec.md §4.3.2: when async embedding is
// enabled, publish a JobRecord to the embedding stream; otherwise (or on
// publish failure) embed immediately and upsert the point.
func (s *Store) EnqueueEmbedding(ctx context.Context, userID memory.UserID, sessionID memory.SessionID, content string) bool {
	if s.asyncEmbedding && s.kvClient != nil {
		job := memory.EmbeddingJob{UserID: userID, SessionID: sessionID, Content: content, CreatedAt: time.Now().UTC()}
		_, err := s.kvClient.XAdd(ctx, s.embeddingStream, map[string]string{
			"user_id":    string(job.UserID),
			"session_id": string(job.SessionID),
			"content":    job.Content,
			"created_at": job.CreatedAt.Format(time.RFC3339),
		})
		if err == nil {
			return true
		}
		s.logger.Warn("publishing embedding job failed, falling back to immediate embed", zap.Error(err))
	}

	return s.embedImmediate(ctx, userID, sessionID, content)
}

// embedImmediate is spec.md §4.3.2's immediate path, also used as the
// fallback when stream publishing fails.
func (s *Store) embedImmediate(ctx context.Context, userID memory.UserID, sessionID memory.SessionID, content string) bool {
	if s.embedder == nil || s.vectorClient == nil {
		return false
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		s.logger.Warn("immediate embed failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	payloadContent := content
	if len(payloadContent) > payloadContentMax {
		payloadContent = payloadContent[:payloadContentMax]
	}

	point := vector.Point{
		ID:     uuid.NewString(),
		Vector: vec,
		Payload: map[string]any{
			"user_id":    string(userID),
			"session_id": string(sessionID),
			"content":    payloadContent,
			"created_at": time.Now().UTC(),
			"source":     "immediate",
		},
	}

	if err := s.vectorClient.Upsert(ctx, VectorCollection, []vector.Point{point}); err != nil {
		s.logger.Warn("upserting vector point failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		return false
	}

	return true
}

// RetrieveSimilar implements spec.md §4.3.3. An empty query or an embedder
// failure returns an empty, non-error result.
func (s *Store) RetrieveSimilar(ctx context.Context, userID memory.UserID, query string, k int, minSim float32) []memory.Scored {
	if query == "" || s.embedder == nil || s.vectorClient == nil {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("retrieval embed failed", zap.Error(err))
		return nil
	}

	hits, err := s.vectorClient.Search(ctx, VectorCollection, vector.Query{
		Vector:         vec,
		UserID:         string(userID),
		Limit:          2 * k,
		ScoreThreshold: minSim,
	})
	if err != nil {
		s.logger.Warn("vector search failed", zap.Error(err))
		return nil
	}

	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]memory.Scored, 0, len(hits))
	for _, hit := range hits {
		results = append(results, memory.Scored{
			Item:  s.enrich(ctx, userID, hit),
			Score: hit.Score,
		})
	}

	return results
}

// enrich looks up the conversation document for the hit's session and
// prefers document.summary/updated_at over the payload's truncated
// content/created_at; a missing document falls back to the payload.
func (s *Store) enrich(ctx context.Context, userID memory.UserID, hit vector.ScoredPoint) memory.MemoryItem {
	sessionID := memory.SessionID(fmt.Sprint(hit.Payload["session_id"]))
	content := fmt.Sprint(hit.Payload["content"])
	var createdAt time.Time
	switch v := hit.Payload["created_at"].(type) {
	case time.Time:
		createdAt = v
	case string:
		createdAt, _ = time.Parse(time.RFC3339Nano, v)
	}

	item := memory.MemoryItem{
		ID:        hit.ID,
		UserID:    userID,
		SessionID: &sessionID,
		Type:      memory.MemoryInter,
		Content:   content,
		CreatedAt: createdAt,
	}

	if s.docClient == nil {
		return item
	}

	convo, ok, err := s.docClient.GetConversation(ctx, sessionID)
	if err != nil || !ok {
		return item
	}

	if convo.Summary != "" {
		item.Content = convo.Summary
	}
	item.UpdatedAt = &convo.UpdatedAt

	return item
}
