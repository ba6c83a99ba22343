package state

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var State = &cobra.Command{
	Use:   "state [command] [flags]",
	Short: "Inspect and manage the provisioning state",
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
}

func init() {
	State.AddCommand(initCmd)
	State.AddCommand(showCmd)
	State.AddCommand(unlockCmd)
}
