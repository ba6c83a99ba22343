package gitops

import (
	"github.com/spf13/cobra"

	"ekscd/internal/cli/workspace"
	"ekscd/internal/gitops"
)

var logsParams struct {
	Level  string
	Follow bool
}

var logsCmd = &cobra.Command{
	Use:   "logs [flags]",
	Short: "Show the logs of the flux controllers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := workspace.Load()
		if err != nil {
			return err
		}
		return withFlux(ctx, ws, func(flux *gitops.Flux) error {
			return flux.Logs(ctx, ws.FluxNamespace(), logsParams.Level, logsParams.Follow)
		})
	},
}

func init() {
	logsCmd.Flags().StringVar(&logsParams.Level, "level", "", "Only show entries of this level (debug, info, error)")
	logsCmd.Flags().BoolVar(&logsParams.Follow, "follow", false, "Stream new entries")
}
