package controllercmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Valino123/trip-memory/pkg/cliexit"
)

type awsCommander struct {
	cluster string
	service string
	count   int
}

func newAWSCmd() *cobra.Command {
	cmder := &awsCommander{}

	cmd := &cobra.Command{
		Use:   "aws",
		Short: "Print AWS ECS scaling guidance (informational, no API calls)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.cluster == "" || cmder.service == "" {
				return cliexit.ArgumentError(fmt.Errorf("--cluster and --service are required"))
			}
			cmder.run()
			return nil
		},
	}

	cmd.Flags().StringVar(&cmder.cluster, "cluster", "", "ECS cluster name")
	cmd.Flags().StringVar(&cmder.service, "service", "", "ECS service name")
	cmd.Flags().IntVar(&cmder.count, "count", 3, "desired task count")
	_ = cmd.MarkFlagRequired("cluster")
	_ = cmd.MarkFlagRequired("service")

	return cmd
}

func (c *awsCommander) run() {
	fmt.Println("AWS ECS scaling guidance:")
	fmt.Printf("  aws ecs update-service --cluster %s --service %s --desired-count %d\n", c.cluster, c.service, c.count)
	fmt.Println("If you need to run ad-hoc tasks instead of a service:")
	fmt.Println("  aws ecs run-task --cluster <cluster> --launch-type FARGATE \\")
	fmt.Println("    --task-definition <your-worker-task-def> \\")
	fmt.Println("    --network-configuration 'awsvpcConfiguration={subnets=[subnet-xxx],securityGroups=[sg-xxx],assignPublicIp=ENABLED}'")
}
