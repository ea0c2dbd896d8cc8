package metrics

import "github.com/prometheus/client_golang/prometheus"

// Interfaces for metrics to avoid importing prometheus in consumers
type MetricsCounter interface {
	Inc()
}

type MetricsHistogram interface {
	Observe(float64)
}

// MetricsWrapper exposes the ingestion metrics through narrow interfaces
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) DrawsIngested() MetricsCounter {
	return &CounterWrapper{w.m.DrawsIngested}
}

func (w *MetricsWrapper) DrawsDuplicate() MetricsCounter {
	return &CounterWrapper{w.m.DrawsDup}
}

func (w *MetricsWrapper) FetchErrors() MetricsCounter {
	return &CounterWrapper{w.m.FetchErrors}
}

func (w *MetricsWrapper) FetchLatency() MetricsHistogram {
	return &HistogramWrapper{w.m.FetchLatency}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type HistogramWrapper struct {
	h prometheus.Histogram
}

func (hw *HistogramWrapper) Observe(v float64) {
	hw.h.Observe(v)
}
