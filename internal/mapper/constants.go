// Package mapper locates characteristics inside Onecta gateway device documents
// and extracts typed descriptors (modes, ranges, schedules, sensor values) from them.
package mapper

// Top-level document keys
const (
	KeyManagementPoints    = "managementPoints"
	KeyManagementPointType = "managementPointType"
	KeyEmbeddedID          = "embeddedId"
	KeyDeviceModel         = "deviceModel"
	KeyIsCloudConnectionUp = "isCloudConnectionUp"
	KeyValue               = "value"
	KeyValues              = "values"
	KeySettable            = "settable"
	KeyCurrentMode         = "currentMode"
	KeyModes               = "modes"
	KeyMinValue            = "minValue"
	KeyMaxValue            = "maxValue"
	KeyStepValue           = "stepValue"
	KeyCurrentSchedule     = "currentSchedule"
	KeySchedules           = "schedules"
	KeyEnabled             = "enabled"
	KeyName                = "name"
	KeyOperationModes      = "operationModes"
	KeySetpoints           = "setpoints"
	KeyFanSpeed            = "fanSpeed"
	KeyFanDirection        = "fanDirection"
	KeyHorizontal          = "horizontal"
	KeyVertical            = "vertical"
)

// Characteristic names
const (
	CharDemandControl      = "demandControl"
	CharSchedule           = "schedule"
	CharOnOffMode          = "onOffMode"
	CharOperationMode      = "operationMode"
	CharPowerfulMode       = "powerfulMode"
	CharStreamerMode       = "streamerMode"
	CharEconoMode          = "econoMode"
	CharTemperatureControl = "temperatureControl"
	CharFanControl         = "fanControl"
	CharSensoryData        = "sensoryData"
	CharName               = "name"
)

// Mode and option names with special meaning
const (
	ModeScheduled = "scheduled"
	ModeFixed     = "fixed"
	ModeAuto      = "auto"
	ModeOff       = "off"

	OptionNone = "none"

	StateOn  = "on"
	StateOff = "off"
)

// Operation modes reported by operationMode
const (
	OperationHeating = "heating"
	OperationCooling = "cooling"
	OperationAuto    = "auto"
	OperationDry     = "dry"
	OperationFanOnly = "fanOnly"
)

// Setpoint names
const (
	SetpointRoomTemperature         = "roomTemperature"
	SetpointLeavingWaterOffset      = "leavingWaterOffset"
	SetpointLeavingWaterTemperature = "leavingWaterTemperature"
	SetpointDomesticHotWater        = "domesticHotWaterTemperature"
)

// Sensor names under sensoryData
const (
	SensorRoomTemperature         = "roomTemperature"
	SensorOutdoorTemperature      = "outdoorTemperature"
	SensorTankTemperature         = "tankTemperature"
	SensorLeavingWaterTemperature = "leavingWaterTemperature"
)

// ClimateSetpointCandidates lists the setpoints tried, in order, for a climate target temperature.
var ClimateSetpointCandidates = []string{
	SetpointRoomTemperature,
	SetpointLeavingWaterOffset,
	SetpointLeavingWaterTemperature,
}
