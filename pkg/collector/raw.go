package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// DiskKind is the storage medium behind a mounted filesystem.
type DiskKind string

const (
	DiskKindSSD     DiskKind = "SSD"
	DiskKindHDD     DiskKind = "HDD"
	DiskKindUnknown DiskKind = "Unknown"
)

// RawCollector is the platform layer the sources read from. Every call
// returns a fresh reading; the sources own any state kept between calls.
type RawCollector interface {
	PartitionsWithContext(context.Context, bool) ([]disk.PartitionStat, error)
	UsageWithContext(context.Context, string) (*disk.UsageStat, error)
	DiskIOCountersWithContext(context.Context, ...string) (map[string]disk.IOCountersStat, error)
	DiskKind(device string) DiskKind

	NetIOCountersWithContext(context.Context, bool) ([]net.IOCountersStat, error)
	InterfacesWithContext(context.Context) (net.InterfaceStatList, error)

	SensorsTemperaturesWithContext(context.Context) ([]host.TemperatureStat, error)

	VirtualMemoryWithContext(context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemoryWithContext(context.Context) (*mem.SwapMemoryStat, error)
	TimesWithContext(context.Context, bool) ([]cpu.TimesStat, error)

	BootTimeWithContext(context.Context) (uint64, error)
	HostnameWithContext(context.Context) (string, error)
}

type defaultRawCollector struct{}

func (defaultRawCollector) PartitionsWithContext(ctx context.Context, all bool) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, all)
}

func (defaultRawCollector) UsageWithContext(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (defaultRawCollector) DiskIOCountersWithContext(ctx context.Context, names ...string) (map[string]disk.IOCountersStat, error) {
	return disk.IOCountersWithContext(ctx, names...)
}

func (defaultRawCollector) NetIOCountersWithContext(ctx context.Context, pernic bool) ([]net.IOCountersStat, error) {
	return net.IOCountersWithContext(ctx, pernic)
}

func (defaultRawCollector) InterfacesWithContext(ctx context.Context) (net.InterfaceStatList, error) {
	return net.InterfacesWithContext(ctx)
}

func (defaultRawCollector) SensorsTemperaturesWithContext(ctx context.Context) ([]host.TemperatureStat, error) {
	return host.SensorsTemperaturesWithContext(ctx)
}

func (defaultRawCollector) VirtualMemoryWithContext(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (defaultRawCollector) SwapMemoryWithContext(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

func (defaultRawCollector) TimesWithContext(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	return cpu.TimesWithContext(ctx, perCPU)
}

func (defaultRawCollector) BootTimeWithContext(ctx context.Context) (uint64, error) {
	return host.BootTimeWithContext(ctx)
}

func (defaultRawCollector) HostnameWithContext(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	if info.Hostname == "" {
		return "", fmt.Errorf("platform reported an empty hostname")
	}
	return info.Hostname, nil
}
