package collector

import (
	"context"
	"time"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/metrics"
)

// GatherFunc produces one cycle's batch.
type GatherFunc func(context.Context) Batch

// BatchSender delivers a batch. Errors are reported, never retried.
type BatchSender interface {
	Send(ctx context.Context, payload []byte) error
}

// Processor alternates between collecting (gather then send) and sleeping
// for a fixed interval. Cycles never overlap: a slow send delays the next
// sample.
type Processor struct {
	in       GatherFunc
	sender   BatchSender
	interval time.Duration
	log      *log.Logger
	after    func(time.Duration) <-chan time.Time

	cycles     metrics.Counter
	deliveries metrics.Counter
	failures   metrics.Counter
	batchLines metrics.Gauge
}

type ProcessorOption func(*Processor)

// WithTimer replaces time.After for the sleep between cycles.
func WithTimer(after func(time.Duration) <-chan time.Time) ProcessorOption {
	return func(p *Processor) {
		p.after = after
	}
}

func NewProcessor(
	in GatherFunc,
	sender BatchSender,
	interval time.Duration,
	m Metrics,
	log *log.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		in:       in,
		sender:   sender,
		interval: interval,
		log:      log,
		after:    time.After,

		cycles:     m.NewCounter("cycles_total", "Total number of collection cycles."),
		deliveries: m.NewCounter("deliveries_total", "Total number of batches handed to the destination."),
		failures:   m.NewCounter("delivery_failures_total", "Total number of batches that could not be delivered."),
		batchLines: m.NewGauge("last_batch_lines", "Number of lines in the most recent batch."),
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

// Run collects immediately and then once per interval until ctx is done.
// Cancellation is only observed while sleeping; a cycle in progress always
// completes.
func (p *Processor) Run(ctx context.Context) {
	for {
		p.Cycle(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			p.log.Infof("collection stopped")
			return
		case <-p.after(p.interval):
		}
	}
}

// Cycle runs one gather and send attempt. Delivery errors are logged and
// the batch is dropped.
func (p *Processor) Cycle(ctx context.Context) {
	p.cycles.Add(1)

	batch := p.in(ctx)
	p.batchLines.Set(float64(batch.Len()))

	if err := p.sender.Send(ctx, batch.Bytes()); err != nil {
		p.failures.Add(1)
		p.log.Errorf("failed to deliver %d lines: %s", batch.Len(), err)
		return
	}

	p.deliveries.Add(1)
}
