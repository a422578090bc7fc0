// Package controllercmder provides the "memoryd controller" parent command
// and its local/docker/aws subcommands, per spec.md §6's Controller CLI.
package controllercmder

import (
	"github.com/spf13/cobra"
)

const longDesc = `Supervise a pool of workers for one queue.

  memoryd controller local --workers N --group G --stream S --stale-ms M
  memoryd controller docker --files ... --service S --replicas N
  memoryd controller aws --cluster C --service S --count N

"local" runs workers in-process as goroutines (this binary's own process);
"docker" runs docker compose up -d --scale for the given service itself;
"aws" only prints the equivalent aws ecs command for an operator to run.`

// NewCmd returns the "controller" command with its local/docker/aws
// subcommands.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Supervise a pool of embedding or preference workers",
		Long:  longDesc,
	}

	cmd.AddCommand(newLocalCmd())
	cmd.AddCommand(newDockerCmd())
	cmd.AddCommand(newAWSCmd())

	return cmd
}
