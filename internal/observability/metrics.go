package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the web server.
type Metrics struct {
	registry *prometheus.Registry

	PageRenders      *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	LoaderDuration   *prometheus.HistogramVec
	SEOIssues        *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry so tests can build
// independent instances.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PageRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_page_renders_total",
			Help: "Rendered pages by route pattern and HTTP status.",
		}, []string{"route", "status"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_upstream_requests_total",
			Help: "Storefront API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		LoaderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_loader_duration_seconds",
			Help:    "Time spent in route loaders.",
			Buckets: prometheus.DefBuckets,
		}, []string{"loader"}),
		SEOIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_seo_issues_total",
			Help: "SEO validation issues by field.",
		}, []string{"field"}),
	}
	reg.MustRegister(
		m.PageRenders,
		m.UpstreamRequests,
		m.LoaderDuration,
		m.SEOIssues,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
