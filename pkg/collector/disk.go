package collector

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

const diskMeasurement = "disk_usage"

// DiskSnapshot is one mounted filesystem as seen by the latest refresh.
type DiskSnapshot struct {
	Name       string
	MountPoint string
	FileSystem string
	Kind       DiskKind

	AvailableSpace uint64
	TotalSpace     uint64

	TotalWritten uint64
	WrittenSince uint64
	TotalRead    uint64
	ReadSince    uint64
}

// DiskSource reports space and IO counters for every mounted physical
// filesystem.
type DiskSource struct {
	*options

	hostName string
	disks    []DiskSnapshot
	prevIO   map[string]disk.IOCountersStat
	kinds    map[string]DiskKind
}

func NewDiskSource(opts ...Option) *DiskSource {
	return &DiskSource{
		options: newOptions(opts),
		prevIO:  make(map[string]disk.IOCountersStat),
		kinds:   make(map[string]DiskKind),
	}
}

func (s *DiskSource) Name() string { return "disks" }

// Snapshots returns the disks read by the latest refresh.
func (s *DiskSource) Snapshots() []DiskSnapshot {
	return s.disks
}

func (s *DiskSource) Refresh(ctx context.Context) error {
	hostName, err := s.host.hostname(ctx)
	if err != nil {
		return err
	}

	partitions, err := s.raw.PartitionsWithContext(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	counters, err := s.raw.DiskIOCountersWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to read disk IO counters: %w", err)
	}

	disks := make([]DiskSnapshot, 0, len(partitions))
	seenIO := make(map[string]disk.IOCountersStat, len(counters))
	for _, p := range partitions {
		// Stale or inaccessible mounts are left out; the other disks still
		// report.
		usage, err := s.raw.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			s.log.Warnf("skipping disk %s: %s", p.Mountpoint, err)
			continue
		}

		name := filepath.Base(p.Device)
		d := DiskSnapshot{
			Name:           name,
			MountPoint:     p.Mountpoint,
			FileSystem:     p.Fstype,
			Kind:           s.kind(p.Device),
			AvailableSpace: usage.Free,
			TotalSpace:     usage.Total,
		}

		if io, ok := counters[name]; ok {
			prev, seen := s.prevIO[name]
			d.TotalWritten = io.WriteBytes
			d.WrittenSince = delta(prev.WriteBytes, io.WriteBytes, seen)
			d.TotalRead = io.ReadBytes
			d.ReadSince = delta(prev.ReadBytes, io.ReadBytes, seen)
			seenIO[name] = io
		}

		disks = append(disks, d)
	}

	s.hostName = hostName
	s.disks = disks
	s.prevIO = seenIO
	return nil
}

// kind is looked up once per device; the medium does not change while the
// device stays mounted.
func (s *DiskSource) kind(device string) DiskKind {
	if k, ok := s.kinds[device]; ok {
		return k
	}
	k := s.raw.DiskKind(device)
	s.kinds[device] = k
	return k
}

func (s *DiskSource) Collect() ([]string, error) {
	lines := make([]string, 0, len(s.disks))
	for _, d := range s.disks {
		lines = append(lines, encodeDisk(d, s.hostName, s.now()))
	}
	return lines, nil
}
