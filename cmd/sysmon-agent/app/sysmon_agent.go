package app

import (
	"context"
	"time"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/collector"
	"code.cloudfoundry.org/sysmon-agent/pkg/egress/influxdb"
	"code.cloudfoundry.org/sysmon-agent/pkg/metrics"
	"code.cloudfoundry.org/sysmon-agent/pkg/plumbing"
)

const statOrigin = "sysmon_agent"

// SysmonAgent samples the host once per dump interval and delivers each
// batch to InfluxDB.
type SysmonAgent struct {
	cfg       Config
	log       *log.Logger
	metrics   *metrics.PromRegistry
	processor *collector.Processor
	sink      *influxdb.Sink
}

type AgentOption func(*agentOptions)

type agentOptions struct {
	sources []collector.Source
	timer   func(time.Duration) <-chan time.Time
}

// WithSources replaces the host sources.
func WithSources(s ...collector.Source) AgentOption {
	return func(o *agentOptions) {
		o.sources = s
	}
}

// WithTimer replaces time.After for the pause between cycles.
func WithTimer(after func(time.Duration) <-chan time.Time) AgentOption {
	return func(o *agentOptions) {
		o.timer = after
	}
}

// NewSysmonAgent wires the sources, the InfluxDB sink and the self metrics
// registry. Invalid TLS or endpoint settings are fatal.
func NewSysmonAgent(cfg Config, log *log.Logger, opts ...AgentOption) *SysmonAgent {
	o := agentOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	var registryOpts []metrics.RegistryOption
	if cfg.MetricsPort != 0 {
		registryOpts = append(registryOpts, metrics.WithServer(cfg.MetricsPort))
	}
	m := metrics.NewPromRegistry(statOrigin, log.Session("metrics"), registryOpts...)

	tlsOpts := []plumbing.ConfigOption{plumbing.WithInsecureSkipVerify(cfg.SkipCertVerify)}
	if len(cfg.CipherSuites) > 0 {
		tlsOpts = append(tlsOpts, plumbing.WithCipherSuites(cfg.CipherSuites))
	}

	tlsConfig, err := plumbing.NewClientTLSConfig(cfg.CAFile, tlsOpts...)
	if err != nil {
		log.Fatalf("%s", err)
	}

	sink, err := influxdb.NewSink(influxdb.Config{
		URI:       cfg.URI,
		Bucket:    cfg.Bucket,
		Org:       cfg.Org,
		Token:     cfg.Token,
		TLSConfig: tlsConfig,
	}, m, log)
	if err != nil {
		log.Fatalf("%s", err)
	}

	sources := o.sources
	if sources == nil {
		sources = collector.NewSources(collector.WithLogger(log.Session("sources")))
	}
	aggregator := collector.NewAggregator(sources, m, log.Session("aggregator"))

	var processorOpts []collector.ProcessorOption
	if o.timer != nil {
		processorOpts = append(processorOpts, collector.WithTimer(o.timer))
	}

	return &SysmonAgent{
		cfg:     cfg,
		log:     log,
		metrics: m,
		sink:    sink,
		processor: collector.NewProcessor(
			aggregator.Gather,
			sink,
			cfg.DumpInterval.Duration(),
			m,
			log,
			processorOpts...,
		),
	}
}

// Run collects and delivers until ctx is done. It blocks.
func (a *SysmonAgent) Run(ctx context.Context) {
	a.log.Infof("sending host metrics to %s every %s", a.sink.URL(), a.cfg.DumpInterval)
	a.processor.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metrics.Shutdown(shutdownCtx); err != nil {
		a.log.Warnf("failed to stop metrics server: %s", err)
	}
}

// MetricsAddr is the address of the self metrics listener, or "" when it
// is disabled.
func (a *SysmonAgent) MetricsAddr() string {
	return a.metrics.Addr()
}
