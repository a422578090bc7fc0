package memory_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/kv/redis"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/memory/intersession"
	"github.com/Valino123/trip-memory/pkg/memory/intrasession"
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
	"github.com/Valino123/trip-memory/pkg/vector"
)

func TestManager(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Manager Suite")
}

func splitHostPort(addr string) (string, int) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, _ := strconv.Atoi(addr[i+1:])
			return addr[:i], port
		}
	}
	return addr, 0
}

type fakeDoc struct {
	conversations map[memory.SessionID]memory.ConversationDocument
	prefs         map[memory.UserID]map[string]any
	version       map[memory.UserID]int
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{
		conversations: map[memory.SessionID]memory.ConversationDocument{},
		prefs:         map[memory.UserID]map[string]any{},
		version:       map[memory.UserID]int{},
	}
}

func (f *fakeDoc) UpsertConversation(_ context.Context, d memory.ConversationDocument) error {
	now := time.Now().UTC()
	if existing, ok := f.conversations[d.SessionID]; ok {
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

func (f *fakeDoc) GetPreference(_ context.Context, userID memory.UserID) (memory.PreferenceDocument, bool, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return memory.PreferenceDocument{}, false, nil
	}
	return memory.PreferenceDocument{UserID: userID, Preferences: p, Version: f.version[userID]}, true, nil
}

func (f *fakeDoc) SetPreference(_ context.Context, userID memory.UserID, prefs map[string]any, expectedVersion *int) (memory.PreferenceDocument, bool, error) {
	current, exists := f.version[userID]
	if expectedVersion != nil && (!exists || current != *expectedVersion) {
		return memory.PreferenceDocument{}, false, nil
	}
	next := current + 1
	f.prefs[userID] = prefs
	f.version[userID] = next
	return memory.PreferenceDocument{UserID: userID, Preferences: prefs, Version: next}, true, nil
}

func (f *fakeDoc) Ping(context.Context) error { return nil }
func (f *fakeDoc) Close() error               { return nil }

var _ doc.Client = (*fakeDoc)(nil)

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
		hits = append(hits, vector.ScoredPoint{Point: p, Score: 0.8})
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

type fakeEmbedder struct{}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}
func (e *fakeEmbedder) Close() error { return nil }

var _ = Describe("Manager", func() {
	var (
		mr        *miniredis.Miniredis
		docClient *fakeDoc
		vecClient *fakeVector
		mgr       *memory.Manager
		ctx       context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		host, port := splitHostPort(mr.Addr())
		kvClient, err := redis.NewClient(redis.Config{Host: host, Port: port}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		docClient = newFakeDoc()
		vecClient = newFakeVector()

		intra := intrasession.New(kvClient, 7200*time.Second, zap.NewNop())
		inter := intersession.New(intersession.Config{
			Doc:      docClient,
			Vector:   vecClient,
			KV:       kvClient,
			Embedder: &fakeEmbedder{},
		}, zap.NewNop())
		prefs := preferences.New(preferences.Config{Doc: docClient, KV: kvClient, Cache: true, TTL: time.Hour}, zap.NewNop())

		mgr = memory.NewManager(memory.Config{
			Intra:            intra,
			Inter:            inter,
			Prefs:            prefs,
			AsyncEmbedding:   false,
			DefaultRetrieval: 6,
			MinSimilarity:    0.40,
		}, zap.NewNop())

		ctx = context.Background()
	})

	AfterEach(func() {
		mr.Close()
	})

	It("matches S1: append then list round-trips with the sliding TTL", func() {
		Expect(mgr.Append(ctx, "s1", memory.Message{Type: memory.MessageUser, Content: "Plan Tokyo trip"})).To(BeTrue())
		msgs := mgr.List(ctx, "s1", 0)
		Expect(msgs).To(HaveLen(1))
		Expect(mr.TTL("session:s1")).To(Equal(7200 * time.Second))
	})

	It("matches S2: finalising a session saves the document and clears the log", func() {
		for _, content := range []string{"Plan Tokyo trip", "Sure, dates?", "Early May", "Great, budget?"} {
			Expect(mgr.Append(ctx, "s1", memory.Message{Type: memory.MessageUser, Content: content})).To(BeTrue())
		}

		Expect(mgr.FinalizeSession(ctx, "u1", "s1")).To(BeTrue())

		d, ok, err := docClient.GetConversation(ctx, "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(d.Messages).To(HaveLen(4))

		Expect(mgr.List(ctx, "s1", 0)).To(BeEmpty())
	})

	It("matches S3: retrieval after finalisation returns the item to its owner only", func() {
		// Finalisation dispatches embedding only with AsyncEmbedding on; the
		// inter-session store has no stream publishing, so it embeds at once.
		mgr.AsyncEmbedding = true
		Expect(mgr.Append(ctx, "s1", memory.Message{Type: memory.MessageUser, Content: "Tokyo trip planning"})).To(BeTrue())
		Expect(mgr.FinalizeSession(ctx, "u1", "s1")).To(BeTrue())

		results := mgr.RetrieveRelevantMemories(ctx, "u1", "Tokyo", 3, 0.0)
		Expect(results).To(HaveLen(1))

		Expect(mgr.RetrieveRelevantMemories(ctx, "u2", "Tokyo", 3, 0.0)).To(BeEmpty())
	})

	It("matches S4's start: preferences are absent until set, and UpdatePreference merges a key over them", func() {
		Expect(mgr.GetPreferences(ctx, "u1")).To(BeNil())

		prefsStore := preferences.New(preferences.Config{Doc: docClient, Cache: false}, zap.NewNop())
		Expect(prefsStore.Set(ctx, "u1", map[string]any{"budget": 1000}, nil)).To(BeTrue())

		Expect(mgr.UpdatePreference(ctx, "u1", "departure_city", "Boston")).To(BeTrue())
		prefs := mgr.GetPreferences(ctx, "u1")
		Expect(prefs["departure_city"]).To(Equal("Boston"))
	})

	It("formats retrieved memories under the fixed header", func() {
		items := []memory.Scored{
			{Item: memory.MemoryItem{Type: memory.MemoryInter, Content: "Tokyo trip planning"}, Score: 0.81},
		}
		formatted := memory.FormatMemoriesForContext(items, 800)
		Expect(formatted).To(ContainSubstring("Relevant context from past conversations:"))
		Expect(formatted).To(ContainSubstring("(inter, similarity=0.81) Tokyo trip planning"))
	})

	It("is idempotent when finalising an already-empty session", func() {
		Expect(mgr.FinalizeSession(ctx, "u1", "never-started")).To(BeTrue())
	})
})
