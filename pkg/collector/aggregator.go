package collector

import (
	"context"
	"strings"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/metrics"
)

// Metrics registers the counters and gauges the collector reports about
// itself.
type Metrics interface {
	NewCounter(name, helpText string, opts ...metrics.MetricOption) metrics.Counter
	NewGauge(name, helpText string, opts ...metrics.MetricOption) metrics.Gauge
}

// Batch is every line gathered in one cycle, in source order.
type Batch []string

func (b Batch) Len() int {
	return len(b)
}

// Bytes joins the lines with newlines, without a trailing newline.
func (b Batch) Bytes() []byte {
	return []byte(strings.Join(b, "\n"))
}

// Aggregator owns the sources and gathers them into one Batch per cycle.
type Aggregator struct {
	sources  []Source
	log      *log.Logger
	failures map[string]metrics.Counter
	gathered metrics.Counter
}

func NewAggregator(sources []Source, m Metrics, log *log.Logger) *Aggregator {
	failures := make(map[string]metrics.Counter, len(sources))
	for _, s := range sources {
		failures[s.Name()] = m.NewCounter(
			"source_failures_total",
			"Total number of cycles in which a source could not be gathered.",
			metrics.WithMetricLabels(map[string]string{"source": s.Name()}),
		)
	}

	return &Aggregator{
		sources:  sources,
		log:      log,
		failures: failures,
		gathered: m.NewCounter(
			"lines_gathered_total",
			"Total number of measurement lines gathered from all sources.",
		),
	}
}

// Gather refreshes and collects every source in order. A source that fails
// is logged and left out of the batch; the other sources still report.
func (a *Aggregator) Gather(ctx context.Context) Batch {
	var batch Batch
	for _, s := range a.sources {
		lines, err := gather(ctx, s)
		if err != nil {
			a.log.Errorf("skipping %s for this cycle: %s", s.Name(), err)
			a.failures[s.Name()].Add(1)
			continue
		}

		a.log.Debugf("gathered %d lines from %s", len(lines), s.Name())
		batch = append(batch, lines...)
	}

	a.gathered.Add(float64(len(batch)))
	return batch
}

func gather(ctx context.Context, s Source) ([]string, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.Collect()
}
