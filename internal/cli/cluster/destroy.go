package cluster

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/gitops"
	"ekscd/internal/kube"
	"ekscd/internal/logging"
	"ekscd/internal/provision"
)

var destroyParams struct {
	Force       bool
	AutoApprove bool
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [flags]",
	Short: "Delete every provisioned object, after GitOps teardown",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}

		if err := checkGitOpsGone(ctx, ws); err != nil {
			logging.UserFailure("Destroy refused!")
			return err
		}

		plan, err := provision.PlanDestroy(ctx, ws.Stack, ws.Environment.Parallelism)
		if err != nil {
			logging.UserFailure("Destroy plan failed!")
			return err
		}
		workspace.PrintPlan(plan, false)
		if !plan.HasChanges() {
			return nil
		}
		if !destroyParams.AutoApprove && !workspace.Confirm("Destroy "+ws.ClusterName()+"? This cannot be undone.") {
			logging.UserInfo("Destroy cancelled")
			return nil
		}

		store, err := ws.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		done, err := provision.Destroy(ctx, store, ws.Stack, ws.Environment.Parallelism)
		if err != nil {
			logging.UserFailure("Destroy failed!")
			return err
		}
		logging.UserSuccess("Destroy finished successfully! %d objects deleted", done.Count("delete"))
		return nil
	},
}

// checkGitOpsGone refuses to destroy while Flux still owns objects in the cluster.
func checkGitOpsGone(ctx context.Context, ws *workspace.Workspace) error {
	collector, _, err := ws.Collector(ctx)
	if errors.Cause(err) == kube.ErrClusterNotFound {
		return nil
	}
	if err == nil {
		var inventory *gitops.Inventory
		inventory, err = collector.Collect(ctx)
		if err == nil {
			return gitops.CheckDestroy(inventory, ws.FluxNamespace(), destroyParams.Force)
		}
	}
	if destroyParams.Force {
		logging.UserWarning("could not inspect GitOps objects: %s", err)
		return nil
	}
	return errors.Wrap(err, "inspecting GitOps objects, use --force to skip")
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyParams.Force, "force", false, "Destroy even if GitOps objects remain")
	destroyCmd.Flags().BoolVarP(&destroyParams.AutoApprove, "auto-approve", "y", false, "Skip the confirmation prompt")
}
