package preferences_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
)

func TestPreferenceStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PreferenceStore Suite")
}

// fakeDoc is a minimal optimistic-concurrency doc.Client double mirroring
// postgres.Client's SQL semantics in memory.
type fakeDoc struct {
	prefs   map[memory.UserID]map[string]any
	version map[memory.UserID]int
}

func newFakeDoc() *fakeDoc {
	return &fakeDoc{prefs: map[memory.UserID]map[string]any{}, version: map[memory.UserID]int{}}
}

func (f *fakeDoc) UpsertConversation(context.Context, memory.ConversationDocument) error { return nil }

func (f *fakeDoc) GetConversation(context.Context, memory.SessionID) (memory.ConversationDocument, bool, error) {
	return memory.ConversationDocument{}, false, nil
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

	if expectedVersion == nil {
		next := current + 1
		f.prefs[userID] = prefs
		f.version[userID] = next
		return memory.PreferenceDocument{UserID: userID, Preferences: prefs, Version: next}, true, nil
	}

	if !exists || current != *expectedVersion {
		return memory.PreferenceDocument{}, false, nil
	}

	next := current + 1
	f.prefs[userID] = prefs
	f.version[userID] = next
	return memory.PreferenceDocument{UserID: userID, Preferences: prefs, Version: next}, true, nil
}

func (f *fakeDoc) Ping(context.Context) error { return nil }
func (f *fakeDoc) Close() error               { return nil }

var _ = Describe("Store", func() {
	var (
		d     *fakeDoc
		store *preferences.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		d = newFakeDoc()
		store = preferences.New(preferences.Config{Doc: d, Cache: false, TTL: time.Hour}, zap.NewNop())
		ctx = context.Background()
	})

	It("matches S4 exactly", func() {
		_, _, ok := store.Get(ctx, "u1")
		Expect(ok).To(BeFalse())

		Expect(store.Set(ctx, "u1", map[string]any{"budget": 1000}, nil)).To(BeTrue())
		prefs, version, ok := store.Get(ctx, "u1")
		Expect(ok).To(BeTrue())
		Expect(prefs["budget"]).To(Equal(1000))
		Expect(version).To(Equal(1))

		v1 := 1
		Expect(store.Set(ctx, "u1", map[string]any{"budget": 2000}, &v1)).To(BeTrue())
		_, version, _ = store.Get(ctx, "u1")
		Expect(version).To(Equal(2))

		Expect(store.Set(ctx, "u1", map[string]any{"budget": 3000}, &v1)).To(BeFalse())

		prefs, _, _ = store.Get(ctx, "u1")
		Expect(prefs["budget"]).To(Equal(2000))
	})

	It("UpdateOne merges a single key without an expected version", func() {
		Expect(store.Set(ctx, "u2", map[string]any{"budget": 500}, nil)).To(BeTrue())
		Expect(store.UpdateOne(ctx, "u2", "departure_city", "Boston")).To(BeTrue())

		prefs, _, ok := store.Get(ctx, "u2")
		Expect(ok).To(BeTrue())
		Expect(prefs["budget"]).To(Equal(500))
		Expect(prefs["departure_city"]).To(Equal("Boston"))
	})

	It("degrades to false/empty when the doc backend is unavailable", func() {
		degraded := preferences.New(preferences.Config{}, zap.NewNop())
		_, _, ok := degraded.Get(ctx, "u3")
		Expect(ok).To(BeFalse())
		Expect(degraded.Set(ctx, "u3", map[string]any{"budget": 1}, nil)).To(BeFalse())
		Expect(degraded.EnqueueExtraction(ctx, "u3", "s3")).To(BeFalse())
	})
})
