package gitops

import (
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/logging"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List the objects GitOps owns in the cluster",
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
		inventory, err := collector.Collect(ctx)
		if err != nil {
			return err
		}
		if inventory.Empty() {
			logging.UserSuccess("No GitOps objects in %s", ws.ClusterName())
			return nil
		}
		inventory.Print()
		if inventory.Blocking(ws.FluxNamespace()) {
			logging.UserInfo("Run ekscd gitops teardown before destroying the cluster")
		}
		return nil
	},
}
