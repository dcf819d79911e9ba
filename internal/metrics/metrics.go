// Package metrics records Prometheus counters for a tap run.
//
// A Collector owns its own registry so concurrent runs (and tests) never
// share state. All methods are safe on a nil *Collector, which records
// nothing; components therefore accept an optional collector.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freshcaller"

// Collector groups the metrics recorded during a run.
type Collector struct {
	registry         *prometheus.Registry
	httpRequests     *prometheus.CounterVec
	throttled        prometheus.Counter
	recordsEmitted   *prometheus.CounterVec
	windowsCommitted *prometheus.CounterVec
	quotaWait        prometheus.Histogram
}

// NewCollector creates a collector backed by a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Upstream HTTP attempts by response status.",
		}, []string{"status"}),
		throttled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_total",
			Help:      "Attempts answered with HTTP 429.",
		}),
		recordsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_emitted_total",
			Help:      "Records written to the output boundary.",
		}, []string{"stream"}),
		windowsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_committed_total",
			Help:      "Bookmark commits after a fully drained window.",
		}, []string{"stream"}),
		quotaWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quota_wait_seconds",
			Help:      "Time spent waiting for local rate limit quota.",
			Buckets:   []float64{0.001, 0.01, 0.1, 1, 5, 15, 30, 60},
		}),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRequest counts one HTTP attempt. Status 0 means a transport failure.
func (c *Collector) ObserveRequest(status int) {
	if c == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.httpRequests.WithLabelValues(label).Inc()
}

// ObserveThrottle counts one throttled attempt.
func (c *Collector) ObserveThrottle() {
	if c == nil {
		return
	}
	c.throttled.Inc()
}

// ObserveQuotaWait records how long a caller was suspended for quota.
func (c *Collector) ObserveQuotaWait(d time.Duration) {
	if c == nil {
		return
	}
	c.quotaWait.Observe(d.Seconds())
}

// AddRecords counts records emitted for a stream.
func (c *Collector) AddRecords(stream string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.recordsEmitted.WithLabelValues(stream).Add(float64(n))
}

// ObserveCommit counts one bookmark commit for a stream.
func (c *Collector) ObserveCommit(stream string) {
	if c == nil {
		return
	}
	c.windowsCommitted.WithLabelValues(stream).Inc()
}

// WriteFile writes every metric in the text exposition format to path.
func (c *Collector) WriteFile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
