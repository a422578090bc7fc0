package intersession_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/memory/intersession"
	"github.com/Valino123/trip-memory/pkg/vector"
)

func TestInterSessionStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InterSessionStore Suite")
}

// fakeDoc is a minimal in-memory doc.Client double.
type fakeDoc struct {
	conversations map[memory.SessionID]memory.ConversationDocument
}

func newFakeDoc() *fakeDoc { return &fakeDoc{conversations: map[memory.SessionID]memory.ConversationDocument{}} }

func (f *fakeDoc) UpsertConversation(_ context.Context, d memory.ConversationDocument) error {
	now := time.Now().UTC()
	existing, ok := f.conversations[d.SessionID]
	if ok {
		d.CreatedAt = existing.CreatedAt
	} else {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	f.conversations[d.SessionID] = d
	return nil
}

func (f *fakeDoc) GetConversation(_ context.Context, sessionID memory.SessionID) (memory.ConversationDocument, bool, error) {
	d, ok := f.conversations[sessionID]
	return d, ok, nil
}

func (f *fakeDoc) GetPreference(context.Context, memory.UserID) (memory.PreferenceDocument, bool, error) {
	return memory.PreferenceDocument{}, false, nil
}

func (f *fakeDoc) SetPreference(context.Context, memory.UserID, map[string]any, *int) (memory.PreferenceDocument, bool, error) {
	return memory.PreferenceDocument{}, false, nil
}

func (f *fakeDoc) Ping(context.Context) error { return nil }
func (f *fakeDoc) Close() error               { return nil }

var _ doc.Client = (*fakeDoc)(nil)

// fakeVector is a minimal in-memory vector.Client double with per-user
// filtering, enough to exercise S3/S7 from spec.md §8.
type fakeVector struct {
	points map[string]vector.Point
}

func newFakeVector() *fakeVector { return &fakeVector{points: map[string]vector.Point{}} }

func (f *fakeVector) EnsureCollection(context.Context, string, uint64) error { return nil }

func (f *fakeVector) Upsert(_ context.Context, _ string, points []vector.Point) error {
	for _, p := range points {
		f.points[p.ID] = p
	}
	return nil
}

func (f *fakeVector) Search(_ context.Context, _ string, q vector.Query) ([]vector.ScoredPoint, error) {
	var hits []vector.ScoredPoint
	for _, p := range f.points {
		if p.Payload["user_id"] != q.UserID {
			continue
		}
		hits = append(hits, vector.ScoredPoint{Point: p, Score: 0.9})
	}
	return hits, nil
}

func (f *fakeVector) Get(_ context.Context, _ string, ids []string) ([]vector.Point, error) {
	var out []vector.Point
	for _, id := range ids {
		if p, ok := f.points[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeVector) Delete(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

func (f *fakeVector) Close() error { return nil }

var _ vector.Client = (*fakeVector)(nil)

// fakeEmbedder returns a fixed-dimension deterministic vector.
type fakeEmbedder struct{ fail bool }

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embed failed")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) Close() error { return nil }

var _ = Describe("Store", func() {
	var (
		docClient *fakeDoc
		vecClient *fakeVector
		embedder  *fakeEmbedder
		store     *intersession.Store
		ctx       context.Context
	)

	BeforeEach(func() {
		docClient = newFakeDoc()
		vecClient = newFakeVector()
		embedder = &fakeEmbedder{}
		ctx = context.Background()

		store = intersession.New(intersession.Config{
			Doc:            docClient,
			Vector:         vecClient,
			Embedder:       embedder,
			AsyncEmbedding: false,
		}, zap.NewNop())
	})

	Describe("BuildSummary", func() {
		It("concatenates up to 10 messages as '[type] content'", func() {
			summary := intersession.BuildSummary([]memory.Message{
				{Type: memory.MessageUser, Content: "Plan Tokyo trip"},
				{Type: memory.MessageAgent, Content: "Sure, when are you travelling?"},
			})
			Expect(summary).To(Equal("[user] Plan Tokyo trip | [agent] Sure, when are you travelling?"))
		})
	})

	Describe("Save", func() {
		It("upserts the document and builds its summary", func() {
			ok := store.Save(ctx, "u1", "s1", []memory.Message{
				{Type: memory.MessageUser, Content: "Plan Tokyo trip"},
			})
			Expect(ok).To(BeTrue())

			d, found, err := docClient.GetConversation(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(d.Summary).To(Equal("[user] Plan Tokyo trip"))
		})
	})

	Describe("EnqueueEmbedding and RetrieveSimilar", func() {
		It("embeds immediately and retrieves it back for the owning user only", func() {
			Expect(store.EnqueueEmbedding(ctx, "u1", "s1", "Tokyo trip content")).To(BeTrue())

			results := store.RetrieveSimilar(ctx, "u1", "Tokyo", 3, 0.0)
			Expect(results).To(HaveLen(1))
			Expect(results[0].Item.Type).To(Equal(memory.MemoryInter))

			Expect(store.RetrieveSimilar(ctx, "u2", "Tokyo", 3, 0.0)).To(BeEmpty())
		})

		It("prefers the document summary over the payload content when enriching", func() {
			Expect(store.Save(ctx, "u1", "s1", []memory.Message{{Type: memory.MessageUser, Content: "hi"}})).To(BeTrue())
			Expect(store.EnqueueEmbedding(ctx, "u1", "s1", "raw payload content")).To(BeTrue())

			results := store.RetrieveSimilar(ctx, "u1", "hi", 3, 0.0)
			Expect(results).To(HaveLen(1))
			Expect(results[0].Item.Content).To(Equal("[user] hi"))
		})

		It("falls back to the payload content when the stored summary is empty", func() {
			docClient.conversations["s1"] = memory.ConversationDocument{SessionID: "s1", Summary: ""}
			Expect(store.EnqueueEmbedding(ctx, "u1", "s1", "raw payload content")).To(BeTrue())

			results := store.RetrieveSimilar(ctx, "u1", "raw", 3, 0.0)
			Expect(results).To(HaveLen(1))
			Expect(results[0].Item.Content).To(Equal("raw payload content"))
		})

		It("returns empty on embed failure instead of erroring", func() {
			embedder.fail = true
			Expect(store.RetrieveSimilar(ctx, "u1", "Tokyo", 3, 0.0)).To(BeEmpty())
		})

		It("returns empty for an empty query", func() {
			Expect(store.RetrieveSimilar(ctx, "u1", "", 3, 0.0)).To(BeEmpty())
		})
	})

	It("falls back to the immediate path when async is enabled but no KV backend is available to publish to", func() {
		store = intersession.New(intersession.Config{
			Doc:             docClient,
			Vector:          vecClient,
			Embedder:        embedder,
			AsyncEmbedding:  true,
			EmbeddingStream: "embedding_queue",
		}, zap.NewNop())

		Expect(store.EnqueueEmbedding(ctx, "u1", "s1", "content")).To(BeTrue())
		Expect(vecClient.points).To(HaveLen(1))
	})
})
