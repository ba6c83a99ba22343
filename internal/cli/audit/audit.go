package audit

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ekscd/internal/audit"
	"ekscd/internal/logging"
)

var Audit = &cobra.Command{
	Use:   "audit [command] [flags]",
	Short: "Inspect what the cluster workloads expose",
	Run: func(c *cobra.Command, _ []string) {
		if err := c.Help(); err != nil {
			log.Debug().Msgf("ignoring cobra error %q", err.Error())
		}
	},
	SilenceUsage: true,
}

var metricsParams struct {
	PrometheusURL string
	JSON          bool
	ShowAll       bool
}

var metricsCmd = &cobra.Command{
	Use:   "metrics [flags]",
	Short: "List every metric Prometheus holds, grouped by the exporter it came from",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !metricsParams.JSON {
			logging.UserProgress("Querying Prometheus at %s ...", metricsParams.PrometheusURL)
		}
		report, err := audit.Run(cmd.Context(), metricsParams.PrometheusURL)
		if err != nil {
			logging.UserFailure("Metrics audit failed!")
			return err
		}
		if metricsParams.JSON {
			return report.WriteJSON(logging.Output)
		}
		report.Print(metricsParams.ShowAll)
		return nil
	},
}

func init() {
	Audit.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&metricsParams.PrometheusURL, "prometheus-url", audit.DefaultPrometheusURL, "Prometheus base URL, e.g. a kubectl port-forward")
	metricsCmd.Flags().BoolVar(&metricsParams.JSON, "json", false, "Output as JSON")
	metricsCmd.Flags().BoolVar(&metricsParams.ShowAll, "show-all", false, "List every metric name, not only samples")
}
