package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc/postgres"
	"github.com/Valino123/trip-memory/pkg/memory"
)

func TestPostgresClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Doc Client Suite")
}

// dsn returns the Postgres DSN from the environment or skips the test,
// matching papercomputeco-tapes/pkg/storage/postgres/postgres_test.go's gating.
func dsn() string {
	v := os.Getenv("MEMORYD_TEST_POSTGRES_DSN")
	if v == "" {
		Skip("MEMORYD_TEST_POSTGRES_DSN not set, skipping Postgres tests")
	}
	return v
}

var _ = Describe("Client", func() {
	var (
		client *postgres.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		client, err = postgres.NewClient(ctx, dsn(), zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
		}
	})

	Describe("conversations", func() {
		It("preserves created_at and bumps updated_at on re-finalisation", func() {
			sessionID := memory.SessionID("s-pg-1")
			doc := memory.ConversationDocument{
				SessionID:    sessionID,
				UserID:       "u1",
				Messages:     []memory.Message{{Type: memory.MessageUser, Content: "hi", CreatedAt: time.Now()}},
				Summary:      "[user] hi",
				MessageCount: 1,
			}

			Expect(client.UpsertConversation(ctx, doc)).To(Succeed())
			first, ok, err := client.GetConversation(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			time.Sleep(10 * time.Millisecond)
			doc.MessageCount = 2
			Expect(client.UpsertConversation(ctx, doc)).To(Succeed())

			second, ok, err := client.GetConversation(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(second.CreatedAt).To(Equal(first.CreatedAt))
			Expect(second.UpdatedAt.After(first.UpdatedAt)).To(BeTrue())
			Expect(second.MessageCount).To(Equal(2))
		})

		It("reports absent sessions as not found", func() {
			_, ok, err := client.GetConversation(ctx, "does-not-exist")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("preferences optimistic concurrency", func() {
		It("blind-upserts starting at version 1 and increments by exactly one", func() {
			userID := memory.UserID("u-pg-1")

			doc, ok, err := client.SetPreference(ctx, userID, map[string]any{"budget": float64(1000)}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(doc.Version).To(Equal(1))

			doc, ok, err = client.SetPreference(ctx, userID, map[string]any{"budget": float64(2000)}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(doc.Version).To(Equal(2))
		})

		It("only one of two concurrent expected-version writes wins", func() {
			userID := memory.UserID("u-pg-2")
			_, _, err := client.SetPreference(ctx, userID, map[string]any{"budget": float64(1000)}, nil)
			Expect(err).NotTo(HaveOccurred())

			v1 := 1
			_, winner, err := client.SetPreference(ctx, userID, map[string]any{"budget": float64(2000)}, &v1)
			Expect(err).NotTo(HaveOccurred())
			Expect(winner).To(BeTrue())

			_, loser, err := client.SetPreference(ctx, userID, map[string]any{"budget": float64(3000)}, &v1)
			Expect(err).NotTo(HaveOccurred())
			Expect(loser).To(BeFalse())

			final, ok, err := client.GetPreference(ctx, userID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(final.Preferences["budget"]).To(Equal(float64(2000)))
			Expect(final.Version).To(Equal(2))
		})
	})
})
