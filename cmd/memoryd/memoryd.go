// Package memorydcmder builds the memoryd root command, following
// _examples/papercomputeco-tapes/cmd/tapes/tapes.go's
// parent-command-plus-global-flags shape.
package memorydcmder

import (
	"github.com/spf13/cobra"

	controllercmder "github.com/Valino123/trip-memory/cmd/memoryd/controller"
	diagnosecmder "github.com/Valino123/trip-memory/cmd/memoryd/diagnose"
	workercmder "github.com/Valino123/trip-memory/cmd/memoryd/worker"
	versioncmder "github.com/Valino123/trip-memory/cmd/version"
	"github.com/Valino123/trip-memory/pkg/config"
)

const longDesc = `memoryd is the tiered conversational memory service: an
intra-session store with sliding TTL, a durable inter-session store with
lazy vectorisation, and a per-user preference store with optimistic
concurrency.

Run the worker pool under supervision:
  memoryd controller local --workers 3

Run a single worker directly (for debugging):
  memoryd worker embedding --consumer worker-1
  memoryd worker preference --consumer worker-1

Inspect backend state without mutating it:
  memoryd diagnose --session s_xxx`

const shortDesc = "Tiered conversational memory service"

// NewMemorydCmd returns the memoryd root command.
func NewMemorydCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memoryd",
		Short: shortDesc,
		Long:  longDesc,
	}

	cmd.PersistentFlags().BoolP(config.FlagDebug, "d", false, "enable debug logging")
	cmd.PersistentFlags().String(config.FlagConfigDir, "", "directory containing config.toml")

	cmd.AddCommand(workercmder.NewCmd())
	cmd.AddCommand(controllercmder.NewCmd())
	cmd.AddCommand(diagnosecmder.NewCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
