// Package metrics exposes the agent's own health as prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
)

type Counter interface {
	Add(float64)
}

type Gauge interface {
	Add(float64)
	Set(float64)
}

// PromRegistry creates counters and gauges that share a set of default
// labels. The registry is only served over HTTP when WithServer is given.
type PromRegistry struct {
	registry    *prometheus.Registry
	defaultTags map[string]string
	loggr       *log.Logger

	mu     sync.Mutex
	server *http.Server
	lis    net.Listener
}

type RegistryOption func(r *PromRegistry)

func NewPromRegistry(defaultSourceID string, logger *log.Logger, opts ...RegistryOption) *PromRegistry {
	pr := &PromRegistry{
		registry:    prometheus.NewRegistry(),
		defaultTags: map[string]string{"source_id": defaultSourceID, "origin": defaultSourceID},
		loggr:       logger,
	}

	for _, o := range opts {
		o(pr)
	}

	return pr
}

// WithServer serves /metrics on 127.0.0.1:port. Port 0 picks a free port,
// see Addr.
func WithServer(port uint16) RegistryOption {
	return func(r *PromRegistry) {
		r.start(port)
	}
}

func (p *PromRegistry) start(port uint16) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		p.loggr.Fatalf("unable to setup metrics endpoint (%s): %s", addr, err)
	}
	p.loggr.Infof("metrics endpoint is listening on %s", lis.Addr().String())

	s := &http.Server{
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	p.mu.Lock()
	p.server = s
	p.lis = lis
	p.mu.Unlock()

	go func() {
		if err := s.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.loggr.Errorf("metrics server stopped: %s", err)
		}
	}()
}

// Handler serves the registry in the prometheus exposition format.
func (p *PromRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Addr is the listening address of the metrics server, or "" when there
// is none.
func (p *PromRegistry) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lis == nil {
		return ""
	}
	return p.lis.Addr().String()
}

// Shutdown stops the metrics server if one was started.
func (p *PromRegistry) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	s := p.server
	p.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Shutdown(ctx)
}

func (p *PromRegistry) NewCounter(name, helpText string, opts ...MetricOption) Counter {
	opt := p.newMetricOpt(name, helpText, opts...)
	counter := prometheus.NewCounter(prometheus.CounterOpts(opt))

	collector := p.registerCollector(name, counter)
	return collector.(Counter)
}

func (p *PromRegistry) NewGauge(name, helpText string, opts ...MetricOption) Gauge {
	opt := p.newMetricOpt(name, helpText, opts...)
	gauge := prometheus.NewGauge(prometheus.GaugeOpts(opt))

	collector := p.registerCollector(name, gauge)
	return collector.(Gauge)
}

func (p *PromRegistry) registerCollector(name string, c prometheus.Collector) prometheus.Collector {
	err := p.registry.Register(c)
	if err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			p.loggr.Fatalf("unable to create %s: %s", name, err)
		}

		return are.ExistingCollector
	}

	return c
}

func (p *PromRegistry) newMetricOpt(name, helpText string, mOpts ...MetricOption) prometheus.Opts {
	opt := prometheus.Opts{
		Name:        name,
		Help:        helpText,
		ConstLabels: make(map[string]string),
	}

	for _, o := range mOpts {
		o(&opt)
	}

	for k, v := range p.defaultTags {
		opt.ConstLabels[k] = v
	}

	return opt
}

type MetricOption func(o *prometheus.Opts)

func WithMetricLabels(labels map[string]string) MetricOption {
	return func(o *prometheus.Opts) {
		for k, v := range labels {
			o.ConstLabels[k] = v
		}
	}
}
