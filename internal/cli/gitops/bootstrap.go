package gitops

import (
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/gitops"
	"ekscd/internal/logging"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Install Flux and point it at the GitOps repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		if err := ws.Manifest.GitOpsReady(); err != nil {
			return err
		}
		spec := ws.Manifest.GitOps

		exists, err := gitops.Preflight{Token: ws.Environment.GithubToken}.Check(ctx, spec)
		if err != nil {
			logging.UserFailure("GitHub preflight failed!")
			return err
		}
		if !exists {
			logging.UserInfo("Repository %s/%s does not exist yet, flux will create it", spec.Owner, spec.Repository)
		}

		logging.UserProgress("Bootstrapping flux on %s ...", ws.ClusterName())
		err = withFlux(ctx, ws, func(flux *gitops.Flux) error {
			return flux.Bootstrap(ctx, spec)
		})
		if err != nil {
			logging.UserFailure("Bootstrap failed!")
			return err
		}
		logging.UserSuccess("Flux now reconciles %s/%s branch %s path %s", spec.Owner, spec.Repository, spec.Branch, spec.Path)
		return nil
	},
}
