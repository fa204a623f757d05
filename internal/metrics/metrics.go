// Package metrics exposes relay counters in Prometheus text format without
// pulling in the prometheus client library.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks a distribution as cumulative buckets.
type Histogram struct {
	name    string
	help    string
	mu      sync.Mutex
	count   int64
	sum     float64
	bounds  []float64
	buckets []int64
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Registry holds the process's metrics and renders them on demand.
type Registry struct {
	mu         sync.Mutex
	counters   []*Counter
	gauges     []*Gauge
	histograms []*Histogram
	startTime  time.Time
}

func NewRegistry() *Registry {
	return &Registry{startTime: time.Now()}
}

func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.counters {
		if c.name == name {
			return c
		}
	}
	c := &Counter{name: name, help: help}
	r.counters = append(r.counters, c)
	return c
}

func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.gauges {
		if g.name == name {
			return g
		}
	}
	g := &Gauge{name: name, help: help}
	r.gauges = append(r.gauges, g)
	return g
}

func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.histograms {
		if h.name == name {
			return h
		}
	}
	sort.Float64s(bounds)
	h := &Histogram{name: name, help: help, bounds: bounds, buckets: make([]int64, len(bounds))}
	r.histograms = append(r.histograms, h)
	return h
}

// Handler renders the registry in Prometheus exposition format.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		fmt.Fprintf(w, "# HELP talkbridge_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(w, "# TYPE talkbridge_uptime_seconds gauge\n")
		fmt.Fprintf(w, "talkbridge_uptime_seconds %d\n", int64(time.Since(r.startTime).Seconds()))

		r.mu.Lock()
		counters := append([]*Counter(nil), r.counters...)
		gauges := append([]*Gauge(nil), r.gauges...)
		histograms := append([]*Histogram(nil), r.histograms...)
		r.mu.Unlock()

		for _, c := range counters {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", c.name, c.help, c.name, c.name, c.Value())
		}
		for _, g := range gauges {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", g.name, g.help, g.name, g.name, g.Value())
		}
		for _, h := range histograms {
			h.mu.Lock()
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.name, h.help, h.name)
			for i, le := range h.bounds {
				fmt.Fprintf(w, "%s_bucket{le=\"%g\"} %d\n", h.name, le, h.buckets[i])
			}
			fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
			fmt.Fprintf(w, "%s_count %d\n", h.name, h.count)
			fmt.Fprintf(w, "%s_sum %f\n", h.name, h.sum)
			h.mu.Unlock()
		}
	}
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Metrics used across the relay.
var (
	RelayedTotal    = Default.Counter("talkbridge_relayed_total", "Messages successfully relayed in either direction")
	DuplicatesTotal = Default.Counter("talkbridge_duplicates_total", "Inbound deliveries skipped as duplicates")
	EchoesTotal     = Default.Counter("talkbridge_echoes_total", "Inbound deliveries suppressed as echoes")
	UnknownConvs    = Default.Counter("talkbridge_unknown_conversations_total", "Bot replies dropped for unknown conversations")
	FailuresTotal   = Default.Counter("talkbridge_relay_failures_total", "Relay attempts failed by a platform call")

	CorrelationRecords = Default.Gauge("talkbridge_correlation_records", "Users with an active conversation correlation")
	DedupFingerprints  = Default.Gauge("talkbridge_dedup_fingerprints", "Fingerprints currently held in the dedup window")

	RelayLatency = Default.Histogram("talkbridge_relay_latency_seconds", "End-to-end relay handling latency in seconds",
		[]float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
)
