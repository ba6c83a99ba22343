package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekscd/internal/logging"
)

func TestCategorize(t *testing.T) {
	got := Categorize([]string{
		"kube_pod_info",
		"node_cpu_seconds_total",
		"container_memory_working_set_bytes",
		"kubelet_running_pods",
		"prometheus_tsdb_head_series",
		"alertmanager_alerts",
		"grafana_build_info",
		"otelcol_exporter_sent_spans",
		"up",
		"upstream_requests_total",
		"scrape_duration_seconds",
		"scrape_samples_scraped",
		"cluster:node_cpu:ratio",
		"namespace_cpu:kube_pod_container_resource_requests:sum",
		"http_requests_total",
	})
	want := map[string][]string{
		"kube-state-metrics":      {"kube_pod_info"},
		"node-exporter":           {"node_cpu_seconds_total"},
		"cAdvisor":                {"container_memory_working_set_bytes"},
		"Kubelet":                 {"kubelet_running_pods"},
		"Prometheus":              {"prometheus_tsdb_head_series", "up", "scrape_duration_seconds", "scrape_samples_scraped"},
		"Alertmanager":            {"alertmanager_alerts"},
		"Grafana":                 {"grafana_build_info"},
		"OpenTelemetry Collector": {"otelcol_exporter_sent_spans"},
		SourceRecordingRules:      {"cluster:node_cpu:ratio", "namespace_cpu:kube_pod_container_resource_requests:sum"},
		SourceOther:               {"upstream_requests_total", "http_requests_total"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Pre-computed metrics from other metrics", Describe(SourceRecordingRules))
	assert.Equal(t, "Metrics with non-standard prefixes", Describe(SourceOther))
	assert.Equal(t, "Kubernetes object state metrics", Describe("kube-state-metrics"))
	assert.Equal(t, "Prometheus server self-monitoring metrics", Describe("Prometheus"))
}

func TestJobStatistics(t *testing.T) {
	stats := JobStatistics([]promv1.ActiveTarget{
		{Labels: model.LabelSet{"job": "kubelet"}, Health: promv1.HealthGood, ScrapeURL: "https://10.0.0.1:10250/metrics"},
		{Labels: model.LabelSet{"job": "kubelet"}, Health: promv1.HealthBad, ScrapeURL: "https://10.0.0.2:10250/metrics"},
		{Labels: model.LabelSet{}, Health: promv1.HealthGood},
	})
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["kubelet"].Targets)
	assert.Equal(t, 1, stats["kubelet"].Up)
	assert.False(t, stats["kubelet"].Healthy())
	assert.True(t, stats["unknown"].Healthy())
	assert.Equal(t, "down", stats["kubelet"].Endpoints[1].Health)
}

func prometheusServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/label/__name__/values", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":["up","node_load1","kube_pod_info","kube_node_info","job:up:sum"]}`))
	})
	mux.HandleFunc("/api/v1/targets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":{"activeTargets":[
			{"discoveredLabels":{},"labels":{"job":"node-exporter","instance":"10.0.0.1:9100"},"scrapePool":"node-exporter","scrapeUrl":"http://10.0.0.1:9100/metrics","globalUrl":"http://10.0.0.1:9100/metrics","lastError":"","lastScrape":"2024-05-01T12:00:00Z","lastScrapeDuration":0.01,"health":"up"},
			{"discoveredLabels":{},"labels":{"job":"kube-state-metrics"},"scrapePool":"kube-state-metrics","scrapeUrl":"http://10.0.0.2:8080/metrics","globalUrl":"http://10.0.0.2:8080/metrics","lastError":"connection refused","lastScrape":"2024-05-01T12:00:00Z","lastScrapeDuration":0.01,"health":"down"}
		],"droppedTargets":[]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunAgainstPrometheus(t *testing.T) {
	server := prometheusServer(t)
	report, err := Run(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, []string{"job:up:sum", "kube_node_info", "kube_pod_info", "node_load1", "up"}, report.Metrics)
	assert.Equal(t, []string{"kube-state-metrics", "Prometheus", SourceRecordingRules, "node-exporter"}, report.SourcesByCount())
	assert.Equal(t, []string{"kube-state-metrics", "node-exporter"}, report.JobNames())
	assert.True(t, report.Jobs["node-exporter"].Healthy())
	assert.False(t, report.Jobs["kube-state-metrics"].Healthy())

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))
	var decoded struct {
		PrometheusURL   string `json:"prometheus_url"`
		TotalMetrics    int    `json:"total_metrics"`
		MetricsBySource map[string]struct {
			Count int `json:"count"`
		} `json:"metrics_by_source"`
		ScrapeTargets map[string]struct {
			TargetCount int `json:"target_count"`
			UpCount     int `json:"up_count"`
		} `json:"scrape_targets"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, server.URL, decoded.PrometheusURL)
	assert.Equal(t, 5, decoded.TotalMetrics)
	assert.Equal(t, 2, decoded.MetricsBySource["kube-state-metrics"].Count)
	assert.Equal(t, 0, decoded.ScrapeTargets["kube-state-metrics"].UpCount)
	assert.Equal(t, 1, decoded.ScrapeTargets["node-exporter"].TargetCount)
}

func TestPrintShowsSamples(t *testing.T) {
	var out bytes.Buffer
	previous, noColor := logging.Output, logging.NoColor
	logging.Output, logging.NoColor = &out, true
	defer func() { logging.Output, logging.NoColor = previous, noColor }()

	metrics := []string{"node_a", "node_b", "node_c", "node_d", "node_e", "node_f", "node_g"}
	report := &Report{
		PrometheusURL: "http://prometheus:9090",
		Metrics:       metrics,
		BySource:      Categorize(metrics),
		Jobs:          map[string]*JobStats{"node-exporter": {Targets: 2, Up: 1}},
	}
	report.Print(false)
	assert.Contains(t, out.String(), "node-exporter (7 metrics)")
	assert.Contains(t, out.String(), "... and 2 more")
	assert.Contains(t, out.String(), "down")
	assert.NotContains(t, out.String(), "All Metrics")

	out.Reset()
	report.Print(true)
	assert.Contains(t, out.String(), "All Metrics")
	assert.Contains(t, out.String(), "  node_g")
}

func TestRunReportsUnreachablePrometheus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	_, err := Run(context.Background(), server.URL)
	assert.Error(t, err)
}
