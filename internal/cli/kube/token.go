package kube

import (
	"fmt"

	"github.com/spf13/cobra"

	"ekscd/internal/connectors"
	"ekscd/internal/kube"
	"ekscd/internal/logging"
)

var tokenCluster string

// tokenCmd is the exec credential plugin of generated kubeconfigs. It never reads the
// manifest, kubectl may run it from any directory.
var tokenCmd = &cobra.Command{
	Use:   "token --cluster <name>",
	Short: "Print an ExecCredential with a bearer token for the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := kube.NewTokenProvider(connectors.GetAWSSession().STS, tokenCluster)
		token, err := provider.Token(cmd.Context())
		if err != nil {
			return err
		}
		credential, err := kube.ExecCredential(token)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(logging.Output, string(credential))
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenCluster, "cluster", "", "EKS cluster name")
	_ = tokenCmd.MarkFlagRequired("cluster")
}
