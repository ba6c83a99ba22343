// Package audit lists every metric a Prometheus server holds and attributes each one
// to the exporter it most likely came from.
package audit

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPrometheusURL = "http://localhost:9090"

	SourceRecordingRules = "Recording Rules"
	SourceOther          = "Other/Unknown"
)

type Source struct {
	Prefix      string
	Name        string
	Description string
	Job         string
}

// Sources are matched in order, the first prefix that fits wins. The "up" entry is
// the one exception: it matches the up series exactly, so names such as
// upstream_requests_total fall through to Other/Unknown.
var Sources = []Source{
	{"kube_", "kube-state-metrics", "Kubernetes object state metrics", "kube-state-metrics"},
	{"node_", "node-exporter", "Host/node hardware and OS metrics", "node-exporter"},
	{"container_", "cAdvisor", "Container resource usage and performance metrics", "kubelet"},
	{"kubelet_", "Kubelet", "Kubelet component metrics", "kubelet"},
	{"prometheus_", "Prometheus", "Prometheus server self-monitoring metrics", "prometheus"},
	{"alertmanager_", "Alertmanager", "Alertmanager metrics", "alertmanager"},
	{"grafana_", "Grafana", "Grafana metrics", "grafana"},
	{"otelcol_", "OpenTelemetry Collector", "OTel Collector metrics", "gateway-collector"},
	{"up", "Prometheus", "Target up/down status (Prometheus internal)", "various"},
	{"scrape_", "Prometheus", "Scrape metadata (Prometheus internal)", "various"},
}

// never treated as recording rules
var internalSeries = []string{"up", "scrape_duration_seconds", "scrape_samples_scraped"}

func isInternal(metric string) bool {
	for _, name := range internalSeries {
		if metric == name {
			return true
		}
	}
	return false
}

func matches(metric string, source Source) bool {
	if source.Prefix == "up" {
		return metric == "up"
	}
	return strings.HasPrefix(metric, source.Prefix)
}

// Categorize groups metric names by source. Names with a colon are recording rules.
func Categorize(metrics []string) map[string][]string {
	categorized := map[string][]string{}
	for _, metric := range metrics {
		if strings.Contains(metric, ":") && !isInternal(metric) {
			categorized[SourceRecordingRules] = append(categorized[SourceRecordingRules], metric)
			continue
		}
		source := SourceOther
		for _, s := range Sources {
			if matches(metric, s) {
				source = s.Name
				break
			}
		}
		categorized[source] = append(categorized[source], metric)
	}
	return categorized
}

func Describe(source string) string {
	switch source {
	case SourceRecordingRules:
		return "Pre-computed metrics from other metrics"
	case SourceOther:
		return "Metrics with non-standard prefixes"
	}
	for _, s := range Sources {
		if s.Name == source {
			return s.Description
		}
	}
	return ""
}

type Endpoint struct {
	URL    string            `json:"url"`
	Health string            `json:"health"`
	Labels map[string]string `json:"labels"`
}

type JobStats struct {
	Targets   int        `json:"target_count"`
	Up        int        `json:"up_count"`
	Endpoints []Endpoint `json:"endpoints"`
}

func (j JobStats) Healthy() bool {
	return j.Up == j.Targets
}

func JobStatistics(targets []promv1.ActiveTarget) map[string]*JobStats {
	stats := map[string]*JobStats{}
	for _, target := range targets {
		job := string(target.Labels[model.JobLabel])
		if job == "" {
			job = "unknown"
		}
		s, ok := stats[job]
		if !ok {
			s = &JobStats{}
			stats[job] = s
		}
		s.Targets++
		if target.Health == promv1.HealthGood {
			s.Up++
		}
		labels := map[string]string{}
		for k, v := range target.Labels {
			labels[string(k)] = string(v)
		}
		s.Endpoints = append(s.Endpoints, Endpoint{
			URL:    target.ScrapeURL,
			Health: string(target.Health),
			Labels: labels,
		})
	}
	return stats
}

type Report struct {
	PrometheusURL string
	Metrics       []string
	BySource      map[string][]string
	Jobs          map[string]*JobStats
}

// SourcesByCount orders sources by metric count, largest first.
func (r *Report) SourcesByCount() []string {
	sources := make([]string, 0, len(r.BySource))
	for source := range r.BySource {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool {
		ci, cj := len(r.BySource[sources[i]]), len(r.BySource[sources[j]])
		if ci != cj {
			return ci > cj
		}
		return sources[i] < sources[j]
	})
	return sources
}

func (r *Report) JobNames() []string {
	jobs := make([]string, 0, len(r.Jobs))
	for job := range r.Jobs {
		jobs = append(jobs, job)
	}
	sort.Strings(jobs)
	return jobs
}

// Run queries metric names and active targets and builds the report.
func Run(ctx context.Context, prometheusURL string) (*Report, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, errors.Wrapf(err, "prometheus client for %s", prometheusURL)
	}
	prom := promv1.NewAPI(client)

	names, warnings, err := prom.LabelValues(ctx, model.MetricNameLabel, nil, time.Time{}, time.Time{})
	if err != nil {
		return nil, errors.Wrap(err, "listing metric names")
	}
	for _, warning := range warnings {
		log.Warn().Msgf("prometheus: %s", warning)
	}
	metrics := make([]string, 0, len(names))
	for _, name := range names {
		metrics = append(metrics, string(name))
	}
	sort.Strings(metrics)

	targets, err := prom.Targets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing scrape targets")
	}

	return &Report{
		PrometheusURL: prometheusURL,
		Metrics:       metrics,
		BySource:      Categorize(metrics),
		Jobs:          JobStatistics(targets.Active),
	}, nil
}
