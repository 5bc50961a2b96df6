package collector

import (
	"context"
	"fmt"
	"math"
)

const sensorMeasurement = "sensor_data"

// SensorSnapshot is one thermal probe. Readings the platform does not
// provide are zero so every line carries the same fields.
type SensorSnapshot struct {
	Label               string
	Temperature         float64
	MaxTemperature      float64
	CriticalTemperature float64
}

// SensorSource reports thermal sensor readings.
type SensorSource struct {
	*options

	hostName string
	sensors  []SensorSnapshot
	highest  map[string]float64
}

func NewSensorSource(opts ...Option) *SensorSource {
	return &SensorSource{
		options: newOptions(opts),
		highest: make(map[string]float64),
	}
}

func (s *SensorSource) Name() string { return "sensors" }

// Snapshots returns the sensors read by the latest refresh.
func (s *SensorSource) Snapshots() []SensorSnapshot {
	return s.sensors
}

// Refresh reads every sensor. The platform may report some sensors along
// with an error for the ones it could not read; the readable ones are kept.
func (s *SensorSource) Refresh(ctx context.Context) error {
	hostName, err := s.host.hostname(ctx)
	if err != nil {
		return err
	}

	temps, err := s.raw.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(temps) == 0 {
		return fmt.Errorf("failed to read sensors: %w", err)
	}

	sensors := make([]SensorSnapshot, 0, len(temps))
	for _, t := range temps {
		cur := finiteOrZero(t.Temperature)

		highest, seen := s.highest[t.SensorKey]
		if !seen || cur > highest {
			highest = cur
			s.highest[t.SensorKey] = cur
		}

		sensors = append(sensors, SensorSnapshot{
			Label:               t.SensorKey,
			Temperature:         cur,
			MaxTemperature:      highest,
			CriticalTemperature: finiteOrZero(t.Critical),
		})
	}

	s.hostName = hostName
	s.sensors = sensors
	return nil
}

func (s *SensorSource) Collect() ([]string, error) {
	lines := make([]string, 0, len(s.sensors))
	for _, sn := range s.sensors {
		lines = append(lines, encodeSensor(sn, s.hostName, s.now()))
	}
	return lines, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
