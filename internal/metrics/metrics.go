// Package metrics holds the process-wide collector for every instrumented
// operation. All metric names, label sets, and histogram buckets are
// declared in the static tables below; registration problems surface at
// construction time, never at record time.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Metric names. Call sites must use these constants; recording an
// undeclared name is a programming error and panics.
const (
	HTTPRequestsTotal   = "perflab_http_requests_total"
	HTTPRequestDuration = "perflab_http_request_duration_seconds"

	CacheRequestsTotal      = "perflab_cache_requests_total"
	CacheInvalidationsTotal = "perflab_cache_invalidations_total"

	DBQueriesTotal  = "perflab_db_queries_total"
	DBQueryDuration = "perflab_db_query_duration_seconds"

	BottleneckRunsTotal = "perflab_bottleneck_runs_total"
	BottleneckDuration  = "perflab_bottleneck_duration_seconds"
	LeakedHandlesTotal  = "perflab_leaked_handles_total"

	RateLimitDenialsTotal = "perflab_rate_limit_denials_total"
)

// DurationBuckets covers sub-millisecond cache hits up to multi-second
// injected bottlenecks.
var DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

type counterDef struct {
	name   string
	help   string
	labels []string
}

type histogramDef struct {
	name    string
	help    string
	labels  []string
	buckets []float64
}

// Label values must come from bounded enumerations (resource kinds,
// operations, outcomes, status classes). Raw request parameters or IDs
// never appear as labels.
var counterDefs = []counterDef{
	{HTTPRequestsTotal, "HTTP requests by method, route template, and status.", []string{"method", "route", "status"}},
	{CacheRequestsTotal, "Cache lookups by resource kind and outcome (hit, miss, bypass).", []string{"resource", "outcome"}},
	{CacheInvalidationsTotal, "Prefix invalidations by resource kind.", []string{"resource"}},
	{DBQueriesTotal, "Database queries by entity and operation.", []string{"entity", "op"}},
	{BottleneckRunsTotal, "Bottleneck scenario invocations by scenario name.", []string{"scenario"}},
	{LeakedHandlesTotal, "Connection handles acquired by the resource-leak scenario and never released.", nil},
	{RateLimitDenialsTotal, "Requests rejected by the IP rate limiter, by route template.", []string{"route"}},
}

var histogramDefs = []histogramDef{
	{HTTPRequestDuration, "HTTP request duration in seconds.", []string{"method", "route"}, DurationBuckets},
	{DBQueryDuration, "Database query duration in seconds.", []string{"entity", "op"}, DurationBuckets},
	{BottleneckDuration, "Wall-clock time consumed by a bottleneck scenario.", []string{"scenario"}, DurationBuckets},
}

// Collector owns a private registry so tests construct a fresh instance.
// Recording is lock-free on the hot path (prometheus vecs are atomic) and
// Snapshot may run concurrently with any number of in-flight records.
type Collector struct {
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec, len(counterDefs)),
		histograms: make(map[string]*prometheus.HistogramVec, len(histogramDefs)),
	}

	for _, def := range counterDefs {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: def.name, Help: def.help}, def.labels)
		c.registry.MustRegister(cv)
		c.counters[def.name] = cv
	}
	for _, def := range histogramDefs {
		hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    def.name,
			Help:    def.help,
			Buckets: def.buckets,
		}, def.labels)
		c.registry.MustRegister(hv)
		c.histograms[def.name] = hv
	}

	c.registry.MustRegister(collectors.NewGoCollector())

	return c
}

// RecordCounter increments the named counter for the given label values.
// The label combination is created lazily on first use.
func (c *Collector) RecordCounter(name string, labels ...string) {
	cv, ok := c.counters[name]
	if !ok {
		panic(fmt.Sprintf("metrics: counter %q not declared", name))
	}
	cv.WithLabelValues(labels...).Inc()
}

// ObserveDuration records a duration sample in seconds into the named
// histogram.
func (c *Collector) ObserveDuration(name string, seconds float64, labels ...string) {
	hv, ok := c.histograms[name]
	if !ok {
		panic(fmt.Sprintf("metrics: histogram %q not declared", name))
	}
	hv.WithLabelValues(labels...).Observe(seconds)
}

// Snapshot renders the registry in the Prometheus text exposition format.
// Individual samples are read atomically; cross-metric consistency within
// one snapshot is not guaranteed.
func (c *Collector) Snapshot() (string, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("failed to encode metric family %q: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}

// Handler returns the pull-style scrape endpoint for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests that inspect raw
// metric families.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
