package entity

import (
	"log/slog"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Discover builds the entities a device supports from its current document,
// walking management points in document order.
func Discover(dev *device.Device, w *control.Writer, logger *slog.Logger) []Entity {
	var out []Entity
	name := dev.Name()
	dev.Read(func(doc document.Document) {
		for _, mp := range mapper.ManagementPoints(doc) {
			out = append(out, discoverPoint(dev, name, mp, w, logger)...)
		}
	})
	return out
}

// discoverPoint runs under the device read lock and must not call locking
// Device accessors.
func discoverPoint(dev *device.Device, deviceName string, mp mapper.ManagementPoint, w *control.Writer, logger *slog.Logger) []Entity {
	var out []Entity
	b := func(platform, key, name string) base {
		return newBase(platform, dev, mp.EmbeddedID, mp.Type, key, name)
	}

	if _, ok := mp.Characteristic(mapper.CharDemandControl); ok {
		logger.Info("Device provides demandControl", "device", deviceName, "embedded_id", mp.EmbeddedID)
		eb := b(PlatformSelect, mapper.CharDemandControl, DisplayName(mp.Type, mapper.CharDemandControl))
		out = append(out, &Select{base: eb, ctl: control.NewModeControl(eb.ref(mapper.CharDemandControl), w)})
	}
	if _, ok := mp.Characteristic(mapper.CharSchedule); ok {
		logger.Info("Device provides schedule", "device", deviceName, "embedded_id", mp.EmbeddedID)
		eb := b(PlatformSelect, mapper.CharSchedule, DisplayName(mp.Type, mapper.CharSchedule))
		out = append(out, &Select{base: eb, ctl: control.NewScheduleControl(eb.ref(mapper.CharSchedule), w)})
	}

	_, hasOnOff := mp.Characteristic(mapper.CharOnOffMode)
	switch {
	case mp.Type == types.ManagementPointDomesticHotWaterTank && hasOnOff:
		eb := b(PlatformWaterHeater, mapper.SetpointDomesticHotWater, deviceName)
		out = append(out, newWaterHeater(eb, w))
	case isClimatePoint(mp.Type) && hasOnOff:
		if _, ok := mp.Characteristic(mapper.CharOperationMode); ok {
			setpoint := climateSetpoint(mp)
			eb := b(PlatformClimate, setpoint, splitCamel(setpoint))
			out = append(out, newClimate(eb, setpoint, w))
		}
	}

	for _, name := range mp.CharacteristicNames() {
		// onOffMode and powerfulMode belong to the climate and water heater entities.
		if name == mapper.CharOnOffMode || name == mapper.CharPowerfulMode {
			continue
		}
		c, _ := mp.Characteristic(name)
		if !isSwitchable(c) {
			continue
		}
		eb := b(PlatformSwitch, name, DisplayName(mp.Type, name))
		out = append(out, &Switch{base: eb, ctl: control.NewBooleanControl(eb.ref(name), w)})
	}

	if c, ok := mp.Characteristic(mapper.CharSensoryData); ok {
		for _, sensor := range c.Value().Keys() {
			if _, ok := c.Value().Get(sensor, mapper.KeyValue).Float(); !ok {
				continue
			}
			eb := b(PlatformSensor, mapper.CharSensoryData+"_"+sensor, DisplayName(mp.Type, sensor))
			out = append(out, &Sensor{base: eb, sensor: sensor})
		}
	}
	return out
}

func isClimatePoint(mpType string) bool {
	return mpType == types.ManagementPointClimateControl || mpType == types.ManagementPointClimateControlMainZone
}

// climateSetpoint picks the first setpoint candidate present in any operation mode.
func climateSetpoint(mp mapper.ManagementPoint) string {
	c, ok := mp.Characteristic(mapper.CharTemperatureControl)
	if ok {
		modes := c.Value().Get(mapper.KeyOperationModes)
		for _, candidate := range mapper.ClimateSetpointCandidates {
			for _, op := range modes.Keys() {
				if modes.Get(op, mapper.KeySetpoints, candidate).Found() {
					return candidate
				}
			}
		}
	}
	return mapper.SetpointRoomTemperature
}

// isSwitchable reports a settable scalar whose allowed values are exactly on and off.
func isSwitchable(c mapper.Characteristic) bool {
	if !c.Settable() {
		return false
	}
	if _, ok := c.Value().String(); !ok {
		return false
	}
	vals := c.AllowedValues()
	if len(vals) != 2 {
		return false
	}
	return contains(vals, mapper.StateOn) && contains(vals, mapper.StateOff)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
