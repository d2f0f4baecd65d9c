package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the minimal counter/histogram sink used by the job scheduler.
// A nil *Metrics is valid and a no-op, so components
// can hold one unconditionally without a separate enabled/disabled switch.
type Metrics struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewMetrics builds a Metrics backed by the global OTel meter provider
// (configured by InitOTel), tagged under the "kgraph" instrumentation name.
func NewMetrics() *Metrics {
	return &Metrics{
		meter:      otel.Meter("kgraph"),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// IncCounter increments the named counter by one, tagged with labels (job
// type, status, ontology, etc).
func (m *Metrics) IncCounter(name string, labels map[string]string) {
	if m == nil {
		return
	}
	c, ok := m.getCounter(name)
	if !ok {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(toAttrs(labels)...))
}

// ObserveHistogram records one observation against the named histogram.
func (m *Metrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	if m == nil {
		return
	}
	h, ok := m.getHistogram(name)
	if !ok {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func (m *Metrics) getCounter(name string) (metric.Int64Counter, bool) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c, true
	}
	ctr, err := m.meter.Int64Counter(name)
	if err != nil {
		return ctr, false
	}
	m.counters[name] = ctr
	return ctr, true
}

func (m *Metrics) getHistogram(name string) (metric.Float64Histogram, bool) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if ok {
		return h, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok = m.histograms[name]; ok {
		return h, true
	}
	hist, err := m.meter.Float64Histogram(name)
	if err != nil {
		return hist, false
	}
	m.histograms[name] = hist
	return hist, true
}

func toAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}
