// Package types contains shared type definitions used across the onecta_bridge packages.
package types

import (
	"fmt"
	"time"
)

// Management point types seen in gateway device documents. The set is open;
// these are the ones the bridge builds entities for.
const (
	ManagementPointGateway                = "gateway"
	ManagementPointClimateControl         = "climateControl"
	ManagementPointClimateControlMainZone = "climateControlMainZone"
	ManagementPointDomesticHotWaterTank   = "domesticHotWaterTank"
	ManagementPointIndoorUnitHydro        = "indoorUnitHydro"
	ManagementPointOutdoorUnit            = "outdoorUnit"
	ManagementPointUserInterface          = "userInterface"
)

// Snapshot is one entry of the gateway-devices listing: the full raw document
// of a single device.
type Snapshot map[string]any

// ID returns the device identifier or "" when the snapshot has none.
func (s Snapshot) ID() string {
	id, _ := s["id"].(string)
	return id
}

// WriteTarget identifies a single remote write.
type WriteTarget struct {
	DeviceID            string
	EmbeddedID          string
	ManagementPointType string
	Characteristic      string
	// Path is a JSON pointer relative to the characteristic value, "" for the value itself.
	Path string
}

// String renders the target for logs.
func (t WriteTarget) String() string {
	return fmt.Sprintf("%s/%s(%s)/%s%s", t.DeviceID, t.EmbeddedID, t.ManagementPointType, t.Characteristic, t.Path)
}

// RateLimits holds the rate-limit metadata last reported by the cloud.
type RateLimits struct {
	LimitMinute     int       `json:"limit_minute"`
	LimitDay        int       `json:"limit_day"`
	RemainingMinute int       `json:"remaining_minute"`
	RemainingDay    int       `json:"remaining_day"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EntityState is the rendered state of one entity as published to the host platform.
type EntityState struct {
	UniqueID   string         `json:"unique_id"`
	Name       string         `json:"name"`
	Platform   string         `json:"platform"`
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	Available  bool           `json:"available"`
	State      *string        `json:"state"`
	Options    []string       `json:"options,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Command is a host-platform request against one entity.
type Command struct {
	Action string  `json:"action"`
	Option string  `json:"option,omitempty"`
	Value  float64 `json:"value,omitempty"`
	// Mode carries an optional HVAC mode for set_temperature.
	Mode string `json:"hvac_mode,omitempty"`
}

// Command actions.
const (
	ActionSelectOption     = "select_option"
	ActionTurnOn           = "turn_on"
	ActionTurnOff          = "turn_off"
	ActionSetHVACMode      = "set_hvac_mode"
	ActionSetTemperature   = "set_temperature"
	ActionSetFanMode       = "set_fan_mode"
	ActionSetSwingMode     = "set_swing_mode"
	ActionSetPresetMode    = "set_preset_mode"
	ActionSetOperationMode = "set_operation_mode"
)
