package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ekscd/internal/cli/audit"
	"ekscd/internal/cli/cluster"
	"ekscd/internal/cli/gitops"
	"ekscd/internal/cli/kube"
	"ekscd/internal/cli/state"
	"ekscd/internal/cli/version"
	"ekscd/internal/env"
	"ekscd/internal/manifest"
)

const (
	groupLifecycle = "lifecycle"
	groupTools     = "tools"
)

var rootCmd = &cobra.Command{
	Use:   "ekscd [group] [command] [flags]",
	Short: "Provision an EKS cluster and hand it over to Flux",
	Long: `Provision an EKS cluster and hand it over to Flux.

The usual lifecycle:
  ekscd state init
  ekscd cluster apply
  ekscd gitops bootstrap
  ...
  ekscd gitops teardown
  ekscd cluster destroy`,
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Debug().Msgf("%+v", err)
		return 1
	}
	return 0
}

func addGroup(groupID string, commands ...*cobra.Command) {
	for _, c := range commands {
		c.GroupID = groupID
		rootCmd.AddCommand(c)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupLifecycle, Title: "Cluster lifecycle:"},
		&cobra.Group{ID: groupTools, Title: "Tools:"},
	)
	addGroup(groupLifecycle, cluster.Cluster, gitops.GitOps, state.State)
	addGroup(groupTools, kube.Kube, audit.Audit)
	rootCmd.AddCommand(version.Version)

	rootCmd.PersistentFlags().StringVarP(&env.Config.Manifest, "manifest", "f", manifest.DefaultPath, "Cluster manifest")
	rootCmd.PersistentFlags().StringVarP(&env.Config.Region, "region", "r", "", "AWS region (default: the manifest region)")
	rootCmd.PersistentFlags().StringVar(&env.Config.Profile, "profile", "", "AWS shared config profile")
}

func configureLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	} else {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid LOG_LEVEL")
		}
		zerolog.SetGlobalLevel(level)
	}
}

func main() {
	configureLogging()
	os.Exit(Execute())
}
