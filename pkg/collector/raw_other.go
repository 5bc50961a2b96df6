//go:build !linux

package collector

func (defaultRawCollector) DiskKind(string) DiskKind {
	return DiskKindUnknown
}
