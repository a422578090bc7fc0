// Package workercmder provides the "memoryd worker" parent command.
package workercmder

import (
	"github.com/spf13/cobra"

	embeddingcmder "github.com/Valino123/trip-memory/cmd/memoryd/worker/embedding"
	preferencecmder "github.com/Valino123/trip-memory/cmd/memoryd/worker/preference"
)

// NewCmd returns the "worker" command with its embedding/preference
// subcommands, per spec.md §6's Worker CLI.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a single memory worker (embedding or preference)",
		Long: `Run one consumer of a worker queue.

  memoryd worker embedding    Drain embedding_queue
  memoryd worker preference   Drain preference_queue

These are normally supervised by "memoryd controller", not run directly,
but each can be started standalone for debugging.`,
	}

	cmd.AddCommand(embeddingcmder.NewCmd())
	cmd.AddCommand(preferencecmder.NewCmd())

	return cmd
}
