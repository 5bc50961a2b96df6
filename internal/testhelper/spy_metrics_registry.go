package testhelper

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"code.cloudfoundry.org/sysmon-agent/pkg/metrics"
)

// SpyMetricsRegistry records every counter and gauge it hands out so tests
// can read their values back.
type SpyMetricsRegistry struct {
	mu      sync.Mutex
	metrics map[string]*SpyMetric
}

func NewMetricsRegistry() *SpyMetricsRegistry {
	return &SpyMetricsRegistry{
		metrics: make(map[string]*SpyMetric),
	}
}

func (s *SpyMetricsRegistry) NewCounter(name, helpText string, opts ...metrics.MetricOption) metrics.Counter {
	return s.newMetric(name, helpText, opts)
}

func (s *SpyMetricsRegistry) NewGauge(name, helpText string, opts ...metrics.MetricOption) metrics.Gauge {
	return s.newMetric(name, helpText, opts)
}

func (s *SpyMetricsRegistry) newMetric(name, helpText string, opts []metrics.MetricOption) *SpyMetric {
	o := prometheus.Opts{
		Name:        name,
		Help:        helpText,
		ConstLabels: make(map[string]string),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := metricKey(name, o.ConstLabels)
	if m, ok := s.metrics[key]; ok {
		return m
	}

	m := &SpyMetric{name: name, helpText: helpText, labels: o.ConstLabels}
	s.metrics[key] = m
	return m
}

// GetMetric returns the metric registered under name and labels. It panics
// when there is none, which fails the calling test.
func (s *SpyMetricsRegistry) GetMetric(name string, labels map[string]string) *SpyMetric {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.metrics[metricKey(name, labels)]; ok {
		return m
	}
	panic(fmt.Sprintf("unknown metric: %s %v", name, labels))
}

// GetMetricValue is GetMetric(name, labels).Value().
func (s *SpyMetricsRegistry) GetMetricValue(name string, labels map[string]string) float64 {
	return s.GetMetric(name, labels).Value()
}

// HasMetric reports whether a metric with name and labels was registered.
func (s *SpyMetricsRegistry) HasMetric(name string, labels map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.metrics[metricKey(name, labels)]
	return ok
}

func metricKey(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{name}
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}

type SpyMetric struct {
	mu       sync.Mutex
	value    float64
	name     string
	helpText string
	labels   map[string]string
}

func (s *SpyMetric) Set(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

func (s *SpyMetric) Add(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value += v
}

func (s *SpyMetric) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *SpyMetric) HelpText() string {
	return s.helpText
}
