package controllercmder

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/Valino123/trip-memory/pkg/cliexit"
)

type dockerCommander struct {
	files    []string
	service  string
	replicas int
}

func newDockerCmd() *cobra.Command {
	cmder := &dockerCommander{}

	cmd := &cobra.Command{
		Use:   "docker",
		Short: "Scale the worker service via docker compose",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.replicas <= 0 {
				return cliexit.ArgumentError(fmt.Errorf("--replicas must be positive, got %d", cmder.replicas))
			}
			return cmder.run()
		},
	}

	cmd.Flags().StringSliceVar(&cmder.files, "files", []string{"docker-compose.memory.yml", "docker-compose.worker.yml"}, "compose files")
	cmd.Flags().StringVar(&cmder.service, "service", "worker", "compose service name to scale")
	cmd.Flags().IntVar(&cmder.replicas, "replicas", 3, "desired replica count")

	return cmd
}

func (c *dockerCommander) run() error {
	args := []string{"compose"}
	for _, f := range c.files {
		args = append(args, "-f", f)
	}
	args = append(args, "up", "-d", "--scale", fmt.Sprintf("%s=%d", c.service, c.replicas))

	fmt.Println("Running: docker", argString(args))
	if err := exec.Command("docker", args...).Run(); err != nil {
		return cliexit.BackendUnavailable(fmt.Errorf("docker compose: %w", err))
	}
	return nil
}

func argString(args []string) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}
