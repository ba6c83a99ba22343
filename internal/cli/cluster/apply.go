package cluster

import (
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/logging"
	"ekscd/internal/provision"
)

var autoApprove bool

var applyCmd = &cobra.Command{
	Use:   "apply [flags]",
	Short: "Create or update the cluster to match the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}

		plan, err := provision.Plan(ctx, ws.Stack, ws.Environment.Parallelism)
		if err != nil {
			logging.UserFailure("Plan failed!")
			return err
		}
		workspace.PrintPlan(plan, false)
		if !plan.HasChanges() {
			return nil
		}
		if !autoApprove && !workspace.Confirm("Apply these changes to "+ws.ClusterName()+"?") {
			logging.UserInfo("Apply cancelled")
			return nil
		}

		store, err := ws.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		done, err := provision.Apply(ctx, store, ws.Stack, ws.Environment.Parallelism)
		if err != nil {
			if done != nil {
				logging.UserWarning("applied before the failure: %s", done.Summary())
			}
			logging.UserFailure("Apply failed!")
			return err
		}
		logging.UserSuccess("Apply finished successfully! %s", done.Summary())
		if ws.Manifest.GitOps.Owner != "" {
			logging.UserInfo("Next: ekscd gitops bootstrap")
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&autoApprove, "auto-approve", "y", false, "Skip the confirmation prompt")
}
