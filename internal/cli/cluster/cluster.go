package cluster

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var Cluster = &cobra.Command{
	Use:   "cluster [command] [flags]",
	Short: "Provision the EKS cluster declared in the manifest",
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
	Aliases:      []string{"clusters"},
}

func init() {
	Cluster.AddCommand(planCmd)
	Cluster.AddCommand(applyCmd)
	Cluster.AddCommand(destroyCmd)
	Cluster.AddCommand(graphCmd)
}
