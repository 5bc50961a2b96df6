package collector

import (
	"time"

	"code.cloudfoundry.org/sysmon-agent/pkg/lineprotocol"
)

func encodeDisk(d DiskSnapshot, hostName string, ts time.Time) string {
	return lineprotocol.New(diskMeasurement).
		Tag("name", d.Name).
		Tag("mount", d.MountPoint).
		Tag("file_system", d.FileSystem).
		Tag("kind", string(d.Kind)).
		Tag("host_name", hostName).
		Uint("available_space", d.AvailableSpace).
		Uint("total_space", d.TotalSpace).
		Uint("total_written", d.TotalWritten).
		Uint("written_since", d.WrittenSince).
		Uint("total_read", d.TotalRead).
		Uint("read_since", d.ReadSince).
		Encode(ts)
}

func encodeNetwork(n NetworkSnapshot, hostName string, ts time.Time) string {
	return lineprotocol.New(networkMeasurement).
		Tag("interface", n.Interface).
		Tag("mac_address", n.MACAddress).
		Tag("host_name", hostName).
		Uint("received", n.Received).
		Uint("total_received", n.TotalReceived).
		Uint("transmitted", n.Transmitted).
		Uint("total_transmitted", n.TotalTransmitted).
		Uint("packets_received", n.PacketsReceived).
		Uint("total_packets_received", n.TotalPacketsReceived).
		Uint("packets_transmitted", n.PacketsTransmitted).
		Uint("total_packets_transmitted", n.TotalPacketsTransmitted).
		Uint("errors_on_received", n.ErrorsOnReceived).
		Uint("total_errors_on_received", n.TotalErrorsOnReceived).
		Uint("errors_on_transmitted", n.ErrorsOnTransmitted).
		Uint("total_errors_on_transmitted", n.TotalErrorsOnTransmitted).
		Encode(ts)
}

func encodeSensor(s SensorSnapshot, hostName string, ts time.Time) string {
	return lineprotocol.New(sensorMeasurement).
		Tag("sensor_label", s.Label).
		Tag("host_name", hostName).
		Float("temperature", s.Temperature).
		Float("max_temperature", s.MaxTemperature).
		Float("critical_temperature", s.CriticalTemperature).
		Encode(ts)
}

func encodeSystem(s SystemSnapshot, hostName string, ts time.Time) string {
	return lineprotocol.New(systemMeasurement).
		Tag("boot_time", s.BootTime).
		Tag("host_name", hostName).
		Uint("available_memory", s.AvailableMemory).
		Uint("free_memory", s.FreeMemory).
		Uint("used_memory", s.UsedMemory).
		Uint("free_swap", s.FreeSwap).
		Uint("used_swap", s.UsedSwap).
		Uint("total_swap", s.TotalSwap).
		Float("global_cpu_usage", s.GlobalCPUUsage).
		Encode(ts)
}
