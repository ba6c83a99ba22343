package version

import (
	"github.com/spf13/cobra"

	"ekscd/internal/env"
	"ekscd/internal/logging"
)

var Version = &cobra.Command{
	Use:   "version",
	Short: "Version",
	RunE: func(c *cobra.Command, _ []string) error {
		versionInfo, err := env.GetBuildVersion()
		if err != nil {
			return err
		}
		logging.UserInfo("%s\n%s", versionInfo.BuildVersion, versionInfo.Commit)
		return nil
	},
	SilenceUsage: true,
}
