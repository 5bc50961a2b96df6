//go:build linux

package collector

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/prometheus/procfs/blockdevice"
)

var partitionName = []*regexp.Regexp{
	regexp.MustCompile(`^(nvme\d+n\d+)p\d+$`),
	regexp.MustCompile(`^(mmcblk\d+)p\d+$`),
	regexp.MustCompile(`^([a-z]+)\d+$`),
}

// DiskKind reads the queue "rotational" flag of the block device, falling
// back to the parent disk when device is a partition.
func (defaultRawCollector) DiskKind(device string) DiskKind {
	fs, fsErr := blockdevice.NewFS("/proc", "/sys")

	for _, name := range blockDeviceCandidates(device) {
		if fsErr == nil {
			if stats, err := fs.SysBlockDeviceQueueStats(name); err == nil {
				return kindFromRotational(stats.Rotational == 1)
			}
		}

		// Older kernels lack some of the queue files procfs insists on.
		raw, err := os.ReadFile(filepath.Join("/sys/block", name, "queue", "rotational"))
		if err == nil {
			return kindFromRotational(strings.TrimSpace(string(raw)) == "1")
		}
	}

	return DiskKindUnknown
}

func kindFromRotational(rotational bool) DiskKind {
	if rotational {
		return DiskKindHDD
	}
	return DiskKindSSD
}

// blockDeviceCandidates lists /sys/block names that may hold the queue
// stats for device, most specific first.
func blockDeviceCandidates(device string) []string {
	name := filepath.Base(device)
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		name = filepath.Base(resolved)
	}

	candidates := []string{name}

	// /sys/class/block/<part> links into .../<disk>/<part>
	if link, err := os.Readlink(filepath.Join("/sys/class/block", name)); err == nil {
		parent := filepath.Base(filepath.Dir(link))
		if parent != "block" && parent != name {
			candidates = append(candidates, parent)
		}
	}

	for _, re := range partitionName {
		if m := re.FindStringSubmatch(name); m != nil {
			candidates = append(candidates, m[1])
			break
		}
	}

	return candidates
}
