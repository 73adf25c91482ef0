package mapper

import (
	"onecta_bridge/internal/document"
)

// SensorValue reads sensoryData.value.<sensor>.value of a management point.
func SensorValue(mp ManagementPoint, sensor string) (float64, bool) {
	c, ok := mp.Characteristic(CharSensoryData)
	if !ok {
		return 0, false
	}
	return c.Value().Get(sensor, KeyValue).Float()
}

// Setpoint returns the setpoint descriptor of temperatureControl for an operation mode.
func Setpoint(mp ManagementPoint, operationMode, setpoint string) (Range, bool) {
	c, ok := mp.Characteristic(CharTemperatureControl)
	if !ok {
		return Range{}, false
	}
	return ExtractRange(c.Value().Get(KeyOperationModes, operationMode, KeySetpoints, setpoint))
}

// SetpointPath is the write path of a setpoint relative to temperatureControl.
func SetpointPath(operationMode, setpoint string) string {
	return document.Pointer(KeyOperationModes, operationMode, KeySetpoints, setpoint)
}

// FanSpeedNode returns the fanSpeed block of fanControl for an operation mode.
func FanSpeedNode(mp ManagementPoint, operationMode string) document.Result {
	c, ok := mp.Characteristic(CharFanControl)
	if !ok {
		return document.Absent
	}
	return c.Value().Get(KeyOperationModes, operationMode, KeyFanSpeed)
}

// FanDirection returns the current mode set of a fanDirection axis.
func FanDirection(mp ManagementPoint, operationMode, axis string) (ModeSet, bool) {
	c, ok := mp.Characteristic(CharFanControl)
	if !ok {
		return ModeSet{}, false
	}
	return ExtractModeSet(c.Value().Get(KeyOperationModes, operationMode, KeyFanDirection, axis))
}

// ScalarValue returns the direct string value of a scalar characteristic such as onOffMode.
func ScalarValue(mp ManagementPoint, characteristic string) (string, bool) {
	c, ok := mp.Characteristic(characteristic)
	if !ok {
		return "", false
	}
	return c.Value().String()
}
