// Package collector samples the host and turns each reading into line
// protocol measurements.
//
// Four sources (disks, networks, sensors, system) each own their platform
// state for the lifetime of the process. An Aggregator refreshes and
// collects them in a fixed order once per cycle and a Processor drives the
// cycles.
package collector

import (
	"context"
	"fmt"
	"io"
	"time"

	"code.cloudfoundry.org/sysmon-agent/internal/platform/log"
	"code.cloudfoundry.org/sysmon-agent/pkg/simplecache"
)

// MinimumCPUUpdateInterval is the shortest pause between two CPU time
// readings that yields a meaningful usage delta.
const MinimumCPUUpdateInterval = 200 * time.Millisecond

const hostCacheTTL = time.Minute

// Source produces one cycle's measurement lines for one category of host
// facts. Refresh updates the source's state in place; Collect renders the
// current state and may be called repeatedly between refreshes.
type Source interface {
	Name() string
	Refresh(ctx context.Context) error
	Collect() ([]string, error)
}

type options struct {
	raw         RawCollector
	now         func() time.Time
	sleep       func(time.Duration)
	cpuInterval time.Duration
	host        *hostIdentity
	log         *log.Logger
}

type Option func(*options)

// WithRawCollector replaces the gopsutil backed platform layer.
func WithRawCollector(c RawCollector) Option {
	return func(o *options) {
		o.raw = c
	}
}

// WithClock replaces time.Now as the source of line timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithCPUSampleInterval overrides the pause between the two CPU time
// readings of the system source. It never goes below zero.
func WithCPUSampleInterval(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.cpuInterval = d
	}
}

// WithLogger sets where sources report readings they had to leave out.
// Without it those reports are discarded.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithSleep replaces time.Sleep for the CPU sampling pause.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		raw:         defaultRawCollector{},
		now:         time.Now,
		sleep:       time.Sleep,
		cpuInterval: MinimumCPUUpdateInterval,
		log:         log.NewWithWriters(io.Discard, io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.host == nil {
		o.host = newHostIdentity(o.raw, o.now)
	}
	return o
}

// NewSources builds the disk, network, sensor and system sources, in that
// order, sharing one platform layer and one host identity lookup.
func NewSources(opts ...Option) []Source {
	o := newOptions(opts)
	shared := func(so *options) { *so = *o }

	return []Source{
		NewDiskSource(shared),
		NewNetworkSource(shared),
		NewSensorSource(shared),
		NewSystemSource(shared),
	}
}

// hostIdentity resolves the host name and boot time that tag every line.
// Both change rarely, so lookups are cached briefly.
type hostIdentity struct {
	raw   RawCollector
	cache *simplecache.SimpleCache[string, string]
}

func newHostIdentity(raw RawCollector, now func() time.Time) *hostIdentity {
	return &hostIdentity{
		raw: raw,
		cache: simplecache.New[string, string](
			hostCacheTTL,
			simplecache.WithClock[string, string](now),
		),
	}
}

func (h *hostIdentity) hostname(ctx context.Context) (string, error) {
	name, err := h.cache.GetOrLoad("hostname", func() (string, error) {
		return h.raw.HostnameWithContext(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("could not retrieve hostname: %w", err)
	}
	return name, nil
}

// bootTime returns the boot time as an RFC3339 UTC timestamp with second
// precision.
func (h *hostIdentity) bootTime(ctx context.Context) (string, error) {
	bt, err := h.cache.GetOrLoad("boot_time", func() (string, error) {
		secs, err := h.raw.BootTimeWithContext(ctx)
		if err != nil {
			return "", err
		}
		if secs == 0 {
			return "", fmt.Errorf("platform reported a zero boot time")
		}
		return time.Unix(int64(secs), 0).UTC().Format(time.RFC3339), nil
	})
	if err != nil {
		return "", fmt.Errorf("could not retrieve boot time: %w", err)
	}
	return bt, nil
}

// delta returns how far a cumulative counter moved since the previous
// reading, or zero when there is no previous reading or the counter reset.
func delta(prev, cur uint64, seen bool) uint64 {
	if !seen || cur < prev {
		return 0
	}
	return cur - prev
}
