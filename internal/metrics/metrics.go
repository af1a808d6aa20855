// Package metrics provides Prometheus collectors for the translation index and
// its file synchronization paths.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "i18nsync"

// Collector holds all metrics on a private registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	indexMutations *prometheus.CounterVec
	cacheRequests  *prometheus.CounterVec
	watchEvents    *prometheus.CounterVec
	watchErrors    prometheus.Counter
	syncWrites     prometheus.Counter
	syncConflicts  *prometheus.CounterVec
	syncFailures   *prometheus.CounterVec
	syncDuration   prometheus.Histogram
	indexKeys      prometheus.Gauge
}

// New creates and registers all collectors
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		indexMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_mutations_total",
				Help:      "Index mutations by operation",
			},
			[]string{"op"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Read cache lookups by result",
			},
			[]string{"result"},
		),
		watchEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_events_total",
				Help:      "Translation files applied from disk by event type",
			},
			[]string{"type"},
		),
		watchErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_errors_total",
				Help:      "Watcher errors (unreadable or unparsable files, fsnotify failures)",
			},
		),
		syncWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_writes_total",
				Help:      "Translation files written by auto-sync",
			},
		),
		syncConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_conflicts_total",
				Help:      "Languages skipped by auto-sync because of structural conflicts",
			},
			[]string{"language"},
		),
		syncFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_key_failures_total",
				Help:      "Keys auto-sync could not apply",
			},
			[]string{"language"},
		),
		syncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of auto-sync passes",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		indexKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_keys",
				Help:      "Key paths currently held in the index",
			},
		),
	}

	c.registry.MustRegister(
		c.indexMutations,
		c.cacheRequests,
		c.watchEvents,
		c.watchErrors,
		c.syncWrites,
		c.syncConflicts,
		c.syncFailures,
		c.syncDuration,
		c.indexKeys,
	)
	return c
}

// Registry returns the registry holding the collectors
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// IndexMutation counts a set, delete, clear or batch
func (c *Collector) IndexMutation(op string) {
	if c == nil {
		return
	}
	c.indexMutations.WithLabelValues(op).Inc()
}

// IndexSize records the current number of keys
func (c *Collector) IndexSize(keys int) {
	if c == nil {
		return
	}
	c.indexKeys.Set(float64(keys))
}

// CacheRequest counts a cache hit or miss
func (c *Collector) CacheRequest(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheRequests.WithLabelValues("hit").Inc()
	} else {
		c.cacheRequests.WithLabelValues("miss").Inc()
	}
}

// WatchEvent counts a processed file event
func (c *Collector) WatchEvent(eventType string) {
	if c == nil {
		return
	}
	c.watchEvents.WithLabelValues(eventType).Inc()
}

// WatchError counts a watcher error
func (c *Collector) WatchError() {
	if c == nil {
		return
	}
	c.watchErrors.Inc()
}

// SyncWrite counts a file written by auto-sync
func (c *Collector) SyncWrite() {
	if c == nil {
		return
	}
	c.syncWrites.Inc()
}

// SyncConflict counts a language skipped because of a structural conflict
func (c *Collector) SyncConflict(language string) {
	if c == nil {
		return
	}
	c.syncConflicts.WithLabelValues(language).Inc()
}

// SyncKeyFailure counts a key that could not be applied
func (c *Collector) SyncKeyFailure(language string) {
	if c == nil {
		return
	}
	c.syncFailures.WithLabelValues(language).Inc()
}

// ObserveSync records the duration of a sync pass
func (c *Collector) ObserveSync(d time.Duration) {
	if c == nil {
		return
	}
	c.syncDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler exposing the collectors
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
