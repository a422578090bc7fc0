package controllercmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/cliexit"
	"github.com/Valino123/trip-memory/pkg/config"
	"github.com/Valino123/trip-memory/pkg/logger"
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
	"github.com/Valino123/trip-memory/pkg/wiring"
	"github.com/Valino123/trip-memory/pkg/worker/controller"
	"github.com/Valino123/trip-memory/pkg/worker/embedding"
	"github.com/Valino123/trip-memory/pkg/worker/preference"
)

type localCommander struct {
	flags config.FlagSet

	workerType string
	workers    int
	group      string
	stream     string
	staleMS    int

	configDir string
	debug     bool
}

func newLocalCmd() *cobra.Command {
	cmder := &localCommander{flags: config.ControllerFlags}

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Supervise workers in-process",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString(config.FlagConfigDir)
			cmder.debug, _ = cmd.Flags().GetBool(config.FlagDebug)

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, []string{
				config.FlagGroup, config.FlagStream, config.FlagStaleMS,
			})
			groupChanged := cmd.Flags().Changed(config.ControllerFlags[config.FlagGroup].Name)
			streamChanged := cmd.Flags().Changed(config.ControllerFlags[config.FlagStream].Name)
			cmder.group, cmder.stream = resolveGroupStream(v, cmder.workerType, cmder.group, cmder.stream, groupChanged, streamChanged)
			cmder.staleMS = v.GetInt("worker.stale_ms")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.workerType != "embedding" && cmder.workerType != "preference" {
				return cliexit.ArgumentError(fmt.Errorf("--worker-type must be \"embedding\" or \"preference\", got %q", cmder.workerType))
			}
			if cmder.workers <= 0 {
				return cliexit.ArgumentError(fmt.Errorf("--workers must be positive, got %d", cmder.workers))
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.workerType, "worker-type", "embedding", `which worker to supervise: "embedding" or "preference"`)
	config.AddIntFlag(cmd, cmder.flags, config.FlagWorkers, &cmder.workers, 3)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGroup, &cmder.group, "")
	config.AddStringFlag(cmd, cmder.flags, config.FlagStream, &cmder.stream, "")
	config.AddIntFlag(cmd, cmder.flags, config.FlagStaleMS, &cmder.staleMS, 120000)

	return cmd
}

// resolveGroupStream picks the consumer group and stream name for
// --worker-type embedding|preference: an explicitly-set --group/--stream
// flag always wins, otherwise the default is read from the config section
// matching workerType, since ControllerFlags' own default is hardcoded to
// the embedding queue's viper keys (it's one FlagSet shared by both worker
// types).
func resolveGroupStream(v *viper.Viper, workerType, group, stream string, groupChanged, streamChanged bool) (string, string) {
	if !groupChanged {
		if workerType == "preference" {
			group = v.GetString("kv.preference_group")
		} else {
			group = v.GetString("kv.embedding_group")
		}
	}
	if !streamChanged {
		if workerType == "preference" {
			stream = v.GetString("kv.preference_queue")
		} else {
			stream = v.GetString("kv.embedding_queue")
		}
	}
	return group, stream
}

func (c *localCommander) run() error {
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

	if backends.KV == nil {
		return cliexit.BackendUnavailable(fmt.Errorf("controller requires the kv backend"))
	}

	runner, err := c.newRunner(cfg, backends, log)
	if err != nil {
		return cliexit.BackendUnavailable(err)
	}

	ctl := controller.New(controller.Config{
		KV:         backends.KV,
		Worker:     runner,
		Stream:     c.stream,
		Group:      c.group,
		NumWorkers: c.workers,
		StaleAfter: time.Duration(c.staleMS) * time.Millisecond,
	}, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("starting controller",
		zap.String("worker_type", c.workerType), zap.Int("workers", c.workers),
		zap.String("group", c.group), zap.String("stream", c.stream))

	if err := ctl.Run(ctx); err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("controller exited: %w", err))
	}
	return nil
}

func (c *localCommander) newRunner(cfg *config.Config, backends *wiring.Backends, log *zap.Logger) (controller.Runner, error) {
	if c.workerType == "preference" {
		if backends.Doc == nil {
			return nil, fmt.Errorf("preference controller requires the doc backend")
		}
		regex, llm, err := wiring.NewExtractors(cfg)
		if err != nil {
			return nil, fmt.Errorf("constructing extractors: %w", err)
		}
		prefs := preferences.New(preferences.Config{
			Doc:    backends.Doc,
			KV:     backends.KV,
			Cache:  cfg.KV.EnableRedisCache,
			TTL:    time.Duration(cfg.KV.PrefCacheTTL) * time.Second,
			Stream: c.stream,
		}, log)
		return preference.New(preference.Config{
			KV:     backends.KV,
			Doc:    backends.Doc,
			Prefs:  prefs,
			Regex:  regex,
			LLM:    llm,
			Stream: c.stream,
			Group:  c.group,
			Batch:  cfg.Worker.Batch,
			Block:  time.Duration(cfg.Worker.BlockMS) * time.Millisecond,
		}, log), nil
	}

	if backends.Vector == nil || backends.Embedder == nil {
		return nil, fmt.Errorf("embedding controller requires the vector and embedding backends")
	}
	return embedding.New(embedding.Config{
		KV:         backends.KV,
		Vector:     backends.Vector,
		Embedder:   backends.Embedder,
		Stream:     c.stream,
		Group:      c.group,
		Collection: cfg.Vector.Collection,
		Batch:      cfg.Worker.Batch,
		Block:      time.Duration(cfg.Worker.BlockMS) * time.Millisecond,
	}, log), nil
}
