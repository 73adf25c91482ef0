package entity

import (
	"context"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Sensor is a read-only value from a management point's sensoryData.
type Sensor struct {
	base
	sensor string
}

// State implements Entity.
func (s *Sensor) State() types.EntityState {
	var (
		value float64
		unit  string
		ok    bool
	)
	s.dev.Read(func(doc document.Document) {
		mp, found := mapper.FindManagementPoint(doc, s.embeddedID, s.mpType)
		if !found {
			return
		}
		value, ok = mapper.SensorValue(mp, s.sensor)
		if c, found := mp.Characteristic(mapper.CharSensoryData); found {
			unit, _ = c.Value().Get(s.sensor, "unit").String()
		}
	})
	var attrs map[string]any
	if unit != "" {
		attrs = map[string]any{"unit_of_measurement": unit}
	}
	return s.state(mapper.FormatNumber(value), ok, nil, attrs)
}

// Handle implements Entity. Sensors accept no commands.
func (s *Sensor) Handle(_ context.Context, cmd types.Command) error {
	return unsupported(cmd)
}
