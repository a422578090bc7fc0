// Package embeddingcmder provides "memoryd worker embedding", the
// EmbeddingWorker CLI entrypoint of spec.md §6.
package embeddingcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/cliexit"
	"github.com/Valino123/trip-memory/pkg/config"
	"github.com/Valino123/trip-memory/pkg/logger"
	"github.com/Valino123/trip-memory/pkg/wiring"
	"github.com/Valino123/trip-memory/pkg/worker/embedding"
)

type commander struct {
	flags config.FlagSet

	group    string
	consumer string
	blockMS  int
	batch    int

	configDir string
	debug     bool
}

const longDesc = `Run the embedding worker, a single consumer within the
embedding_workers group draining embedding_queue: embed each queued
conversation, upsert the resulting vector, and ack on success.`

// NewCmd returns the "embedding" subcommand of "memoryd worker".
func NewCmd() *cobra.Command {
	cmder := &commander{flags: config.WorkerFlags}

	cmd := &cobra.Command{
		Use:   "embedding",
		Short: "Run the embedding worker",
		Long:  longDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString(config.FlagConfigDir)
			cmder.debug, _ = cmd.Flags().GetBool(config.FlagDebug)

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagGroup, config.FlagBlockMS, config.FlagBatch,
			})
			cmder.group = v.GetString("kv.embedding_group")
			cmder.blockMS = v.GetInt("worker.block_ms")
			cmder.batch = v.GetInt("worker.batch")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagGroup, &cmder.group, "embedding_workers")
	cmd.Flags().StringVar(&cmder.consumer, "consumer", "worker-1", "stable consumer name")
	config.AddIntFlag(cmd, cmder.flags, config.FlagBlockMS, &cmder.blockMS, 5000)
	config.AddIntFlag(cmd, cmder.flags, config.FlagBatch, &cmder.batch, 10)

	return cmd
}

func (c *commander) run() error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(c.configDir)
	if err != nil {
		return cliexit.ArgumentError(fmt.Errorf("loading config: %w", err))
	}

	backends, err := wiring.Connect(ctx, cfg, log)
	if err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("connecting to backends: %w", err))
	}
	defer backends.Close(log)

	if backends.KV == nil || backends.Vector == nil || backends.Embedder == nil {
		return cliexit.BackendUnavailable(fmt.Errorf("embedding worker requires kv, vector, and embedding backends"))
	}

	w := embedding.New(embedding.Config{
		KV:         backends.KV,
		Vector:     backends.Vector,
		Embedder:   backends.Embedder,
		Stream:     cfg.KV.EmbeddingQueue,
		Group:      c.group,
		Collection: cfg.Vector.Collection,
		Batch:      c.batch,
		Block:      time.Duration(c.blockMS) * time.Millisecond,
	}, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("starting embedding worker", zap.String("consumer", c.consumer), zap.String("group", c.group))
	if err := w.Run(ctx, c.consumer); err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("worker exited: %w", err))
	}
	return nil
}
