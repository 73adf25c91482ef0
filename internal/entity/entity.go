// Package entity adapts device capabilities to host-platform entities:
// selects, switches, climate, water heaters and read-only sensors.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/types"
)

// Platforms.
const (
	PlatformSelect      = "select"
	PlatformSwitch      = "switch"
	PlatformClimate     = "climate"
	PlatformWaterHeater = "water_heater"
	PlatformSensor      = "sensor"
)

var (
	// ErrUnsupportedAction is returned for commands an entity does not accept.
	ErrUnsupportedAction = errors.New("unsupported action")
	// ErrUnknownEntity is returned for commands addressed to no known entity.
	ErrUnknownEntity = errors.New("unknown entity")
)

// Entity is one controllable or readable thing published to the host.
type Entity interface {
	UniqueID() string
	DeviceID() string
	State() types.EntityState
	Handle(ctx context.Context, cmd types.Command) error
}

// base carries the identity shared by every entity kind.
type base struct {
	uniqueID   string
	name       string
	platform   string
	dev        *device.Device
	embeddedID string
	mpType     string
}

func newBase(platform string, dev *device.Device, embeddedID, mpType, key, name string) base {
	return base{
		uniqueID:   UniqueID(dev.ID, mpType, key),
		name:       name,
		platform:   platform,
		dev:        dev,
		embeddedID: embeddedID,
		mpType:     mpType,
	}
}

func (b *base) UniqueID() string { return b.uniqueID }
func (b *base) DeviceID() string { return b.dev.ID }

func (b *base) ref(characteristic string) control.Ref {
	return control.Ref{
		Device:              b.dev,
		EmbeddedID:          b.embeddedID,
		ManagementPointType: b.mpType,
		Characteristic:      characteristic,
	}
}

func (b *base) state(state string, hasState bool, options []string, attrs map[string]any) types.EntityState {
	s := types.EntityState{
		UniqueID:   b.uniqueID,
		Name:       b.name,
		Platform:   b.platform,
		DeviceID:   b.dev.ID,
		DeviceName: b.dev.Name(),
		Available:  b.dev.Available(),
		Options:    options,
		Attributes: attrs,
	}
	if hasState {
		s.State = &state
	}
	return s
}

func unsupported(cmd types.Command) error {
	return fmt.Errorf("%q: %w", cmd.Action, ErrUnsupportedAction)
}

// UniqueID builds the stable entity id "{deviceId}_{managementPointType}_{key}".
func UniqueID(deviceID, managementPointType, key string) string {
	return deviceID + "_" + managementPointType + "_" + key
}

// DisplayName renders "{ManagementPointType} {Split Camel Key}", e.g.
// "ClimateControl Demand Control".
func DisplayName(managementPointType, key string) string {
	return upperFirst(managementPointType) + " " + splitCamel(key)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// splitCamel turns "demandControl" into "Demand Control".
func splitCamel(s string) string {
	var words []string
	var cur []rune
	for _, r := range upperFirst(s) {
		if unicode.IsUpper(r) && len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		words = append(words, string(cur))
	}
	return strings.Join(words, " ")
}
