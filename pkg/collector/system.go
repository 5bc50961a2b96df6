package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
)

const systemMeasurement = "system_usage"

// SystemSnapshot is the host wide memory, swap and CPU state.
type SystemSnapshot struct {
	BootTime string

	AvailableMemory uint64
	FreeMemory      uint64
	UsedMemory      uint64
	FreeSwap        uint64
	UsedSwap        uint64
	TotalSwap       uint64

	GlobalCPUUsage float64
}

// SystemSource reports exactly one line per cycle for the whole host.
type SystemSource struct {
	*options

	hostName  string
	snapshot  SystemSnapshot
	refreshed bool
}

func NewSystemSource(opts ...Option) *SystemSource {
	return &SystemSource{
		options: newOptions(opts),
	}
}

func (s *SystemSource) Name() string { return "system" }

// Snapshot returns the state read by the latest refresh.
func (s *SystemSource) Snapshot() SystemSnapshot {
	return s.snapshot
}

// Refresh samples CPU times twice, cpuInterval apart, so that usage is
// computed over a meaningful window, then reads memory and swap.
func (s *SystemSource) Refresh(ctx context.Context) error {
	hostName, err := s.host.hostname(ctx)
	if err != nil {
		return err
	}

	bootTime, err := s.host.bootTime(ctx)
	if err != nil {
		return err
	}

	first, err := s.cpuTimes(ctx)
	if err != nil {
		return err
	}

	s.sleep(s.cpuInterval)

	second, err := s.cpuTimes(ctx)
	if err != nil {
		return err
	}

	m, err := s.raw.VirtualMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read memory: %w", err)
	}

	sw, err := s.raw.SwapMemoryWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read swap: %w", err)
	}

	s.hostName = hostName
	s.snapshot = SystemSnapshot{
		BootTime:        bootTime,
		AvailableMemory: m.Available,
		FreeMemory:      m.Free,
		UsedMemory:      m.Used,
		FreeSwap:        sw.Free,
		UsedSwap:        sw.Used,
		TotalSwap:       sw.Total,
		GlobalCPUUsage:  cpuUsage(first, second),
	}
	s.refreshed = true
	return nil
}

func (s *SystemSource) cpuTimes(ctx context.Context) (cpu.TimesStat, error) {
	ts, err := s.raw.TimesWithContext(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, fmt.Errorf("failed to read cpu times: %w", err)
	}
	if len(ts) == 0 {
		return cpu.TimesStat{}, fmt.Errorf("platform reported no cpu times")
	}
	return ts[0], nil
}

func (s *SystemSource) Collect() ([]string, error) {
	if !s.refreshed {
		return nil, fmt.Errorf("system source has not been refreshed")
	}
	return []string{encodeSystem(s.snapshot, s.hostName, s.now())}, nil
}

// cpuUsage is the share of non-idle time between two readings, in percent.
func cpuUsage(previous, current cpu.TimesStat) float64 {
	totalDiff := totalTime(current) - totalTime(previous)
	if totalDiff <= 0 {
		return 0
	}

	idleDiff := (current.Idle + current.Iowait) - (previous.Idle + previous.Iowait)
	usage := (totalDiff - idleDiff) / totalDiff * 100.0

	switch {
	case usage < 0:
		return 0
	case usage > 100:
		return 100
	}
	return usage
}

// totalTime leaves out guest time, which the kernel already counts in user.
func totalTime(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}
