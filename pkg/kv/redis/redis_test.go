package redis_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/kv/redis"
)

func TestRedisClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis KV Client Suite")
}

var _ = Describe("Client", func() {
	var (
		mr     *miniredis.Miniredis
		client *redis.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		host, portStr, err := splitHostPort(mr.Addr())
		Expect(err).NotTo(HaveOccurred())

		client, err = redis.NewClient(redis.Config{Host: host, Port: portStr}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	Describe("sliding-TTL append log", func() {
		It("appends preserve insertion order and reset the TTL", func() {
			Expect(client.RPush(ctx, "session:s1", "m1", 7200*time.Second)).To(Succeed())
			Expect(client.RPush(ctx, "session:s1", "m2", 7200*time.Second)).To(Succeed())

			vals, err := client.LRange(ctx, "session:s1", 0, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(vals).To(Equal([]string{"m1", "m2"}))

			ttl := mr.TTL("session:s1")
			Expect(ttl).To(Equal(7200 * time.Second))
		})

		It("clears the key on Del", func() {
			Expect(client.RPush(ctx, "session:s2", "m1", time.Minute)).To(Succeed())
			Expect(client.Del(ctx, "session:s2")).To(Succeed())

			vals, err := client.LRange(ctx, "session:s2", 0, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(vals).To(BeEmpty())
		})
	})

	Describe("read-through cache", func() {
		It("misses cleanly when absent", func() {
			_, ok, err := client.Get(ctx, "pref:u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("round-trips a cached value", func() {
			Expect(client.Set(ctx, "pref:u1", `{"budget":1000}`, time.Hour)).To(Succeed())

			val, ok, err := client.Get(ctx, "pref:u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal(`{"budget":1000}`))
		})
	})

	Describe("streams", func() {
		It("delivers new entries, acks them, and drains pending to zero", func() {
			Expect(client.EnsureGroup(ctx, "embedding_queue", "embedding_workers")).To(Succeed())
			// Calling EnsureGroup twice must stay idempotent (BUSYGROUP ignored).
			Expect(client.EnsureGroup(ctx, "embedding_queue", "embedding_workers")).To(Succeed())

			id, err := client.XAdd(ctx, "embedding_queue", map[string]string{
				"user_id": "u1", "session_id": "s1", "content": "hi",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			entries, err := client.ReadGroup(ctx, "embedding_queue", "embedding_workers", "worker-1", 10, 10*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Values["user_id"]).To(Equal("u1"))

			pending, err := client.Pending(ctx, "embedding_queue", "embedding_workers")
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Count).To(Equal(int64(1)))

			Expect(client.Ack(ctx, "embedding_queue", "embedding_workers", entries[0].ID)).To(Succeed())

			pending, err = client.Pending(ctx, "embedding_queue", "embedding_workers")
			Expect(err).NotTo(HaveOccurred())
			Expect(pending.Count).To(Equal(int64(0)))
		})

		It("auto-claims entries left pending by a dead consumer", func() {
			Expect(client.EnsureGroup(ctx, "embedding_queue", "embedding_workers")).To(Succeed())
			_, err := client.XAdd(ctx, "embedding_queue", map[string]string{"user_id": "u1", "session_id": "s1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.ReadGroup(ctx, "embedding_queue", "embedding_workers", "worker-1", 10, 10*time.Millisecond)
			Expect(err).NotTo(HaveOccurred())

			mr.FastForward(time.Second)

			claimed, err := client.AutoClaim(ctx, "embedding_queue", "embedding_workers", "ctl", 0, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(claimed).To(HaveLen(1))
		})
	})
})

func splitHostPort(addr string) (string, int, error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			port, err := strconv.Atoi(addr[i+1:])
			if err != nil {
				return "", 0, err
			}
			return addr[:i], port, nil
		}
	}
	return addr, 0, nil
}
