package controller_test

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/kv/redis"
	"github.com/Valino123/trip-memory/pkg/worker/controller"
)

func TestController(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Controller Suite")
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

type countingRunner struct {
	calls int64
}

func (r *countingRunner) Run(ctx context.Context, consumer string) error {
	atomic.AddInt64(&r.calls, 1)
	<-ctx.Done()
	return nil
}

var _ = Describe("Controller", func() {
	It("spawns NumWorkers named workers and returns within the shutdown grace window", func() {
		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		defer mr.Close()

		host, port := splitHostPort(mr.Addr())
		kvClient, err := redis.NewClient(redis.Config{Host: host, Port: port}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		runner := &countingRunner{}
		c := controller.New(controller.Config{
			KV:         kvClient,
			Worker:     runner,
			Stream:     "embedding_queue",
			Group:      "embedding_workers",
			NumWorkers: 3,
			ClaimTick:  10 * time.Millisecond,
		}, zap.NewNop())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- c.Run(ctx) }()

		select {
		case err := <-done:
			Expect(err).NotTo(HaveOccurred())
		case <-time.After(2 * time.Second):
			Fail("controller did not return within the shutdown grace window")
		}

		Expect(atomic.LoadInt64(&runner.calls)).To(Equal(int64(3)))
	})
})
