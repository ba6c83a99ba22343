package kube

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/env"
	"ekscd/internal/kube"
	"ekscd/internal/logging"
)

var kubeconfigOutput string

var kubeconfigCmd = &cobra.Command{
	Use:   "kubeconfig [flags]",
	Short: "Write a kubeconfig for the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		info, err := kube.Describe(cmd.Context(), ws.ClusterName())
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

		output := kubeconfigOutput
		if output == "" {
			output = filepath.Join(ws.Manifest.Dir(), ".ekscd", "kubeconfig")
		}
		if err := kube.WriteKubeconfig(config, output); err != nil {
			logging.UserFailure("Writing kubeconfig failed!")
			return err
		}
		logging.UserSuccess("Wrote %s, use it with: export KUBECONFIG=%s", output, output)
		return nil
	},
}

func init() {
	kubeconfigCmd.Flags().StringVarP(&kubeconfigOutput, "output", "o", "", "Kubeconfig path (default .ekscd/kubeconfig next to the manifest)")
}
