package entity

import (
	"context"
	"fmt"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Water heater operation modes.
const (
	WaterHeaterOff         = "off"
	WaterHeaterHeatPump    = "heat_pump"
	WaterHeaterPerformance = "performance"
)

// WaterHeater drives a domesticHotWaterTank point: onOffMode selects off,
// powerfulMode distinguishes performance from plain heat pump operation.
type WaterHeater struct {
	base
	onOff    *control.BooleanControl
	powerful *control.BooleanControl
	setpoint *control.RangeControl
	w        *control.Writer
}

func newWaterHeater(b base, w *control.Writer) *WaterHeater {
	return &WaterHeater{
		base:     b,
		onOff:    control.NewBooleanControl(b.ref(mapper.CharOnOffMode), w),
		powerful: control.NewBooleanControl(b.ref(mapper.CharPowerfulMode), w),
		w:        w,
		setpoint: control.NewRangeControl(b.ref(mapper.CharTemperatureControl), w,
			mapper.SetpointPath(mapper.OperationHeating, mapper.SetpointDomesticHotWater)),
	}
}

// OperationMode returns the presented operation mode.
func (h *WaterHeater) OperationMode() string {
	switch {
	case !h.onOff.IsOn():
		return WaterHeaterOff
	case h.powerful.IsOn():
		return WaterHeaterPerformance
	default:
		return WaterHeaterHeatPump
	}
}

func (h *WaterHeater) operationModes() []string {
	modes := []string{WaterHeaterOff, WaterHeaterHeatPump}
	if _, ok := h.powerful.Current(); ok {
		modes = append(modes, WaterHeaterPerformance)
	}
	return modes
}

// State implements Entity.
func (h *WaterHeater) State() types.EntityState {
	attrs := map[string]any{
		"operation_list": h.operationModes(),
	}
	if rng, ok := h.setpoint.Range(); ok {
		if rng.HasValue {
			attrs["temperature"] = rng.Value
		}
		attrs["min_temp"] = rng.Min
		attrs["max_temp"] = rng.Max
		attrs["target_temp_step"] = rng.Step
	}
	h.dev.Read(func(doc document.Document) {
		if mp, ok := mapper.FindManagementPoint(doc, h.embeddedID, h.mpType); ok {
			if v, ok := mapper.SensorValue(mp, mapper.SensorTankTemperature); ok {
				attrs["current_temperature"] = v
			}
		}
	})
	mode := h.OperationMode()
	attrs["operation_mode"] = mode
	return h.state(mode, true, nil, attrs)
}

// Handle implements Entity.
func (h *WaterHeater) Handle(ctx context.Context, cmd types.Command) error {
	switch cmd.Action {
	case types.ActionTurnOn:
		return h.onOff.Select(ctx, mapper.StateOn)
	case types.ActionTurnOff:
		return h.onOff.Select(ctx, mapper.StateOff)
	case types.ActionSetOperationMode:
		return h.setOperationMode(ctx, cmd.Option)
	case types.ActionSetTemperature:
		// The tank ignores setpoint changes while it is off.
		if !h.onOff.IsOn() {
			return nil
		}
		return h.setpoint.Set(ctx, cmd.Value)
	default:
		return unsupported(cmd)
	}
}

func (h *WaterHeater) setOperationMode(ctx context.Context, mode string) error {
	current := h.OperationMode()
	switch mode {
	case WaterHeaterOff:
		return h.onOff.Select(ctx, mapper.StateOff)
	case WaterHeaterHeatPump:
		if err := h.onOff.Select(ctx, mapper.StateOn); err != nil {
			return err
		}
		if _, ok := h.powerful.Current(); !ok {
			return nil
		}
		return h.powerful.Select(ctx, mapper.StateOff)
	case WaterHeaterPerformance:
		if current == WaterHeaterPerformance {
			return nil
		}
		if err := h.onOff.Select(ctx, mapper.StateOn); err != nil {
			return err
		}
		// powerfulMode is written even when the document already reads on.
		return h.w.Patch(ctx, h.ref(mapper.CharPowerfulMode), "", mapper.StateOn)
	default:
		return fmt.Errorf("operation mode %q: %w", mode, control.ErrInvalidOption)
	}
}
