package qdrant_test

import (
	"context"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	vectorpkg "github.com/Valino123/trip-memory/pkg/vector"
	"github.com/Valino123/trip-memory/pkg/vector/qdrant"
)

func TestQdrant(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Qdrant Client Suite")
}

// These specs talk to a real Qdrant instance and are skipped unless
// QDRANT_TEST_HOST is set, matching the teacher's sqlite/postgres test gating
// (pkg/storage/postgres/postgres_test.go skips without a DSN env var).
var _ = Describe("Client", func() {
	var (
		client     *qdrant.Client
		collection string
	)

	BeforeEach(func() {
		host := os.Getenv("QDRANT_TEST_HOST")
		if host == "" {
			Skip("QDRANT_TEST_HOST not set")
		}

		var err error
		client, err = qdrant.NewClient(qdrant.Config{Host: host, Port: 6334}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		collection = "memory_test"
		Expect(client.EnsureCollection(context.Background(), collection, 4)).To(Succeed())
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
		}
	})

	It("upserts and retrieves a point by filtered search", func() {
		err := client.Upsert(context.Background(), collection, []vectorpkg.Point{
			{
				ID:     "11111111-1111-1111-1111-111111111111",
				Vector: []float32{1, 0, 0, 0},
				Payload: map[string]any{
					"user_id": "u1",
					"content": "hello",
				},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		hits, err := client.Search(context.Background(), collection, vectorpkg.Query{
			Vector:         []float32{1, 0, 0, 0},
			UserID:         "u1",
			Limit:          5,
			ScoreThreshold: 0,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))
		Expect(hits[0].Payload["user_id"]).To(Equal("u1"))
	})

	It("never returns points for a different user", func() {
		err := client.Upsert(context.Background(), collection, []vectorpkg.Point{
			{
				ID:      "22222222-2222-2222-2222-222222222222",
				Vector:  []float32{0, 1, 0, 0},
				Payload: map[string]any{"user_id": "u1"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		hits, err := client.Search(context.Background(), collection, vectorpkg.Query{
			Vector: []float32{0, 1, 0, 0},
			UserID: "u2",
			Limit:  5,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(BeEmpty())
	})
})
