package kube

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var Kube = &cobra.Command{
	Use:   "kube [command] [flags]",
	Short: "Kubernetes API access to the cluster",
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
}

func init() {
	Kube.AddCommand(tokenCmd)
	Kube.AddCommand(kubeconfigCmd)
}
