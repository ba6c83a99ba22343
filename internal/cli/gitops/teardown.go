package gitops

import (
	"time"

	"github.com/lithammer/dedent"
	"github.com/spf13/cobra"

	"ekscd/internal/aws/elb"
	"ekscd/internal/cli/workspace"
	"ekscd/internal/gitops"
	"ekscd/internal/logging"
)

var teardownParams struct {
	DryRun        bool
	Timeout       time.Duration
	DeleteOrphans bool
}

var teardownCmd = &cobra.Command{
	Use:   "teardown [flags]",
	Short: "Remove everything Flux deployed, then Flux itself",
	Long: dedent.Dedent(`
		Remove everything Flux deployed, then Flux itself.

		Kustomizations are deleted in the manifest's teardown_order, the rest by name.
		Services of type LoadBalancer own cloud load balancers that keep the VPC
		subnets busy, so teardown waits until every load balancer tagged for the
		cluster is gone before it uninstalls flux. Run it before cluster destroy.`),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		collector, _, err := ws.Collector(ctx)
		if err != nil {
			return err
		}

		return withFlux(ctx, ws, func(flux *gitops.Flux) error {
			teardown := &gitops.Teardown{
				Flux:               flux,
				Collector:          collector,
				Namespace:          ws.FluxNamespace(),
				Order:              ws.Manifest.GitOps.TeardownOrder,
				Timeout:            teardownParams.Timeout,
				DryRun:             teardownParams.DryRun,
				DeleteOrphans:      teardownParams.DeleteOrphans,
				RemoveLoadBalancer: elb.DeleteLoadBalancer,
			}
			if err := teardown.Run(ctx); err != nil {
				logging.UserFailure("Teardown failed!")
				return err
			}
			return nil
		})
	},
}

func init() {
	teardownCmd.Flags().BoolVarP(&teardownParams.DryRun, "dry-run", "d", false, "Print what would be deleted")
	teardownCmd.Flags().DurationVar(&teardownParams.Timeout, "timeout", 10*time.Minute, "How long to wait for load balancers to be released")
	teardownCmd.Flags().BoolVar(&teardownParams.DeleteOrphans, "delete-orphans", false, "Delete load balancers that outlive the timeout")
}
