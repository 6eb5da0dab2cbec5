// Package metrics is a small Prometheus-compatible metrics registry built on
// the standard library. Counters, gauges, and histograms are exposed over
// HTTP in the text exposition format.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are histogram buckets in seconds, sized for external calls
// that may sleep for minutes.
var DefaultBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// Counter only goes up.
type Counter struct{ v atomic.Int64 }

func (c *Counter) Inc()         { c.v.Add(1) }
func (c *Counter) Add(n int64)  { c.v.Add(n) }
func (c *Counter) Value() int64 { return c.v.Load() }

// Gauge goes up and down.
type Gauge struct{ v atomic.Int64 }

func (g *Gauge) Set(n int64)  { g.v.Store(n) }
func (g *Gauge) Inc()         { g.v.Add(1) }
func (g *Gauge) Dec()         { g.v.Add(-1) }
func (g *Gauge) Value() int64 { return g.v.Load() }

// Histogram tracks a value distribution over fixed buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Observe records one value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			break
		}
	}
}

// Since observes the seconds elapsed since t.
func (h *Histogram) Since(t time.Time) { h.Observe(time.Since(t).Seconds()) }

// Registry holds named metrics. Label pairs are baked into the metric name
// (name{k="v"}), so each label combination is its own series.
type Registry struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	meta       map[string]metricMeta // keyed by base name
	order      []string
}

type metricMeta struct {
	typ  string
	help string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		counters:   map[string]*Counter{},
		gauges:     map[string]*Gauge{},
		histograms: map[string]*Histogram{},
		meta:       map[string]metricMeta{},
	}
}

// WithLabels appends label pairs to a metric name: WithLabels("f", "k", "v")
// yields `f{k="v"}`.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 != 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

func baseName(name string) string {
	if i := strings.IndexByte(name, '{'); i >= 0 {
		return name[:i]
	}
	return name
}

func (r *Registry) register(name, typ, help string) {
	base := baseName(name)
	if _, ok := r.meta[base]; !ok {
		r.order = append(r.order, base)
		r.meta[base] = metricMeta{typ: typ, help: help}
	} else if help != "" {
		m := r.meta[base]
		if m.help == "" {
			m.help = help
			r.meta[base] = m
		}
	}
}

// Counter returns the named counter, creating it on first use.
func (r *Registry) Counter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	r.register(name, "counter", help)
	return c
}

// Gauge returns the named gauge, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := &Gauge{}
	r.gauges[name] = g
	r.register(name, "gauge", help)
	return g
}

// Histogram returns the named histogram, creating it on first use. A nil
// buckets slice uses DefaultBuckets.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.histograms[name]; ok {
		return h
	}
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	h := &Histogram{buckets: b, counts: make([]uint64, len(b))}
	r.histograms[name] = h
	r.register(name, "histogram", help)
	return h
}

// Render produces the text exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	for _, base := range r.order {
		meta := r.meta[base]
		if meta.help != "" {
			fmt.Fprintf(&b, "# HELP %s %s\n", base, meta.help)
		}
		fmt.Fprintf(&b, "# TYPE %s %s\n", base, meta.typ)

		switch meta.typ {
		case "counter":
			for _, name := range seriesOf(r.counters, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.counters[name].Value())
			}
		case "gauge":
			for _, name := range seriesOf(r.gauges, base) {
				fmt.Fprintf(&b, "%s %d\n", name, r.gauges[name].Value())
			}
		case "histogram":
			for _, name := range seriesOf(r.histograms, base) {
				renderHistogram(&b, base, name, r.histograms[name])
			}
		}
	}
	return b.String()
}

func seriesOf[M any](series map[string]M, base string) []string {
	var names []string
	for name := range series {
		if baseName(name) == base {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func renderHistogram(b *strings.Builder, base, name string, h *Histogram) {
	h.mu.Lock()
	buckets := append([]float64(nil), h.buckets...)
	counts := append([]uint64(nil), h.counts...)
	sum, count := h.sum, h.count
	h.mu.Unlock()

	labels := ""
	if i := strings.IndexByte(name, '{'); i >= 0 {
		labels = "," + name[i+1:len(name)-1]
	}
	var cumulative uint64
	for i, bound := range buckets {
		cumulative += counts[i]
		fmt.Fprintf(b, "%s_bucket{le=\"%g\"%s} %d\n", base, bound, labels, cumulative)
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"%s} %d\n", base, labels, count)
	suffix := ""
	if labels != "" {
		suffix = "{" + labels[1:] + "}"
	}
	fmt.Fprintf(b, "%s_sum%s %g\n", base, suffix, sum)
	fmt.Fprintf(b, "%s_count%s %d\n", base, suffix, count)
}

// Handler serves the registry as a /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(r.Render()))
	})
}
