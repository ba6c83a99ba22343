package gitops

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/env"
	"ekscd/internal/gitops"
	"ekscd/internal/kube"
)

var GitOps = &cobra.Command{
	Use:   "gitops [command] [flags]",
	Short: "Hand the cluster to Flux and take it back",
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
}

func init() {
	GitOps.AddCommand(bootstrapCmd)
	GitOps.AddCommand(teardownCmd)
	GitOps.AddCommand(inventoryCmd)
	GitOps.AddCommand(logsCmd)
}

// withFlux runs fn with a Flux wrapper pointed at a temporary kubeconfig for the cluster.
func withFlux(ctx context.Context, ws *workspace.Workspace, fn func(flux *gitops.Flux) error) error {
	info, err := kube.Describe(ctx, ws.ClusterName())
	if err != nil {
		return err
	}
	command, err := os.Executable()
	if err != nil {
		command = ""
	}
	config, err := kube.Kubeconfig(info, kube.KubeconfigOptions{
		Command: command,
		Region:  env.Config.Region,
		Profile: env.Config.Profile,
	})
	if err != nil {
		return err
	}

	file, err := os.CreateTemp("", "ekscd-kubeconfig-*")
	if err != nil {
		return errors.Wrap(err, "creating kubeconfig")
	}
	path := file.Name()
	_ = file.Close()
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Debug().Err(err).Msgf("removing %s", path)
		}
	}()
	if err := kube.WriteKubeconfig(config, path); err != nil {
		return errors.Wrap(err, "writing kubeconfig")
	}
	log.Debug().Msgf("flux uses kubeconfig %s", path)

	return fn(gitops.NewFlux(ws.Environment.FluxBinary, path, ws.Environment.GithubToken))
}
