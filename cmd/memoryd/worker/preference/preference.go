// Package preferencecmder provides "memoryd worker preference", the
// PrefWorker CLI entrypoint of spec.md §6.
package preferencecmder

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
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
	"github.com/Valino123/trip-memory/pkg/wiring"
	"github.com/Valino123/trip-memory/pkg/worker/preference"
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

const longDesc = `Run the preference worker, a single consumer within the
pref_extractors group draining preference_queue: re-read the finalised
conversation, extract preferences via regex (and optionally an LLM pass),
merge over the current preferences, and commit.`

// NewCmd returns the "preference" subcommand of "memoryd worker".
func NewCmd() *cobra.Command {
	cmder := &commander{flags: config.WorkerFlags}

	cmd := &cobra.Command{
		Use:   "preference",
		Short: "Run the preference extraction worker",
		Long:  longDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString(config.FlagConfigDir)
			cmder.debug, _ = cmd.Flags().GetBool(config.FlagDebug)

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			// FlagGroup is deliberately excluded here: WorkerFlags' FlagGroup
			// entry points at kv.embedding_group, which is the embedding
			// worker's default group, not this worker's pref_extractors.
			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagBlockMS, config.FlagBatch,
			})
			cmder.blockMS = v.GetInt("worker.block_ms")
			cmder.batch = v.GetInt("worker.batch")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.group, "group", "pref_extractors", "consumer group name")
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

	if backends.KV == nil || backends.Doc == nil {
		return cliexit.BackendUnavailable(fmt.Errorf("preference worker requires kv and doc backends"))
	}

	regex, llm, err := wiring.NewExtractors(cfg)
	if err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("constructing extractors: %w", err))
	}

	prefs := preferences.New(preferences.Config{
		Doc:    backends.Doc,
		KV:     backends.KV,
		Cache:  cfg.KV.EnableRedisCache,
		TTL:    time.Duration(cfg.KV.PrefCacheTTL) * time.Second,
		Stream: cfg.KV.PreferenceQueue,
	}, log)

	w := preference.New(preference.Config{
		KV:     backends.KV,
		Doc:    backends.Doc,
		Prefs:  prefs,
		Regex:  regex,
		LLM:    llm,
		Stream: cfg.KV.PreferenceQueue,
		Group:  c.group,
		Batch:  c.batch,
		Block:  time.Duration(c.blockMS) * time.Millisecond,
	}, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("starting preference worker", zap.String("consumer", c.consumer), zap.String("group", c.group))
	if err := w.Run(ctx, c.consumer); err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("worker exited: %w", err))
	}
	return nil
}
