package collector

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/net"
)

const (
	networkMeasurement = "network_usage"
	unknownMACAddress  = "00:00:00:00:00:00"
)

// NetworkSnapshot holds the counters of one interface. Each counter is
// reported both as the movement since the previous refresh and as the
// cumulative total.
type NetworkSnapshot struct {
	Interface  string
	MACAddress string

	Received                 uint64
	TotalReceived            uint64
	Transmitted              uint64
	TotalTransmitted         uint64
	PacketsReceived          uint64
	TotalPacketsReceived     uint64
	PacketsTransmitted       uint64
	TotalPacketsTransmitted  uint64
	ErrorsOnReceived         uint64
	TotalErrorsOnReceived    uint64
	ErrorsOnTransmitted      uint64
	TotalErrorsOnTransmitted uint64
}

// NetworkSource reports traffic counters for every network interface.
type NetworkSource struct {
	*options

	hostName   string
	interfaces []NetworkSnapshot
	prev       map[string]net.IOCountersStat
}

func NewNetworkSource(opts ...Option) *NetworkSource {
	return &NetworkSource{
		options: newOptions(opts),
		prev:    make(map[string]net.IOCountersStat),
	}
}

func (s *NetworkSource) Name() string { return "networks" }

// Snapshots returns the interfaces read by the latest refresh.
func (s *NetworkSource) Snapshots() []NetworkSnapshot {
	return s.interfaces
}

func (s *NetworkSource) Refresh(ctx context.Context) error {
	hostName, err := s.host.hostname(ctx)
	if err != nil {
		return err
	}

	counters, err := s.raw.NetIOCountersWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to read network counters: %w", err)
	}

	macs, err := s.macAddresses(ctx)
	if err != nil {
		return err
	}

	interfaces := make([]NetworkSnapshot, 0, len(counters))
	seen := make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		prev, ok := s.prev[c.Name]

		mac := macs[c.Name]
		if mac == "" {
			mac = unknownMACAddress
		}

		interfaces = append(interfaces, NetworkSnapshot{
			Interface:  c.Name,
			MACAddress: mac,

			Received:                 delta(prev.BytesRecv, c.BytesRecv, ok),
			TotalReceived:            c.BytesRecv,
			Transmitted:              delta(prev.BytesSent, c.BytesSent, ok),
			TotalTransmitted:         c.BytesSent,
			PacketsReceived:          delta(prev.PacketsRecv, c.PacketsRecv, ok),
			TotalPacketsReceived:     c.PacketsRecv,
			PacketsTransmitted:       delta(prev.PacketsSent, c.PacketsSent, ok),
			TotalPacketsTransmitted:  c.PacketsSent,
			ErrorsOnReceived:         delta(prev.Errin, c.Errin, ok),
			TotalErrorsOnReceived:    c.Errin,
			ErrorsOnTransmitted:      delta(prev.Errout, c.Errout, ok),
			TotalErrorsOnTransmitted: c.Errout,
		})
		seen[c.Name] = c
	}

	s.hostName = hostName
	s.interfaces = interfaces
	s.prev = seen
	return nil
}

func (s *NetworkSource) macAddresses(ctx context.Context) (map[string]string, error) {
	ifaces, err := s.raw.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	macs := make(map[string]string, len(ifaces))
	for _, i := range ifaces {
		macs[i.Name] = i.HardwareAddr
	}
	return macs, nil
}

func (s *NetworkSource) Collect() ([]string, error) {
	lines := make([]string, 0, len(s.interfaces))
	for _, n := range s.interfaces {
		lines = append(lines, encodeNetwork(n, s.hostName, s.now()))
	}
	return lines, nil
}
