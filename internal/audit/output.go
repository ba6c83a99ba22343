package audit

import (
	"encoding/json"
	"io"
	"strconv"

	"ekscd/internal/aws/common"
	"ekscd/internal/logging"
)

const samplesPerSource = 5

type sourceJSON struct {
	Count   int      `json:"count"`
	Metrics []string `json:"metrics"`
}

type reportJSON struct {
	PrometheusURL   string                `json:"prometheus_url"`
	TotalMetrics    int                   `json:"total_metrics"`
	MetricsBySource map[string]sourceJSON `json:"metrics_by_source"`
	ScrapeTargets   map[string]*JobStats  `json:"scrape_targets"`
}

func (r *Report) WriteJSON(w io.Writer) error {
	out := reportJSON{
		PrometheusURL:   r.PrometheusURL,
		MetricsBySource: map[string]sourceJSON{},
		ScrapeTargets:   r.Jobs,
	}
	for source, metrics := range r.BySource {
		out.TotalMetrics += len(metrics)
		out.MetricsBySource[source] = sourceJSON{Count: len(metrics), Metrics: metrics}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// Print renders the summary tables and samples. showAll appends every metric name.
func (r *Report) Print(showAll bool) {
	logging.UserProgress("Prometheus Metrics Audit (%s)", r.PrometheusURL)

	var rows [][]string
	total := 0
	for _, source := range r.SourcesByCount() {
		count := len(r.BySource[source])
		total += count
		rows = append(rows, []string{source, strconv.Itoa(count), Describe(source)})
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(total), ""})
	common.RenderTable([]string{"Source", "Count", "Description"}, rows)

	rows = nil
	for _, job := range r.JobNames() {
		stats := r.Jobs[job]
		health := logging.Colorize(logging.ColorSuccess, "ok")
		if !stats.Healthy() {
			health = logging.Colorize(logging.ColorFailure, "down")
		}
		rows = append(rows, []string{job, strconv.Itoa(stats.Targets), strconv.Itoa(stats.Up), health})
	}
	common.RenderTable([]string{"Job", "Targets", "Up", "Health"}, rows)

	for _, source := range r.SourcesByCount() {
		metrics := r.BySource[source]
		logging.UserInfo("\n%s (%d metrics)", source, len(metrics))
		for i, metric := range metrics {
			if i == samplesPerSource {
				logging.UserInfo("  ... and %d more", len(metrics)-samplesPerSource)
				break
			}
			logging.UserInfo("  - %s", metric)
		}
	}

	if showAll {
		logging.UserInfo("\nAll Metrics:")
		for _, metric := range r.Metrics {
			logging.UserInfo("  %s", metric)
		}
	}
}
