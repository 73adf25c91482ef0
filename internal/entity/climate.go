package entity

import (
	"context"
	"fmt"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// HVAC modes presented by climate entities.
const (
	HVACOff     = "off"
	HVACHeat    = "heat"
	HVACCool    = "cool"
	HVACAuto    = "heat_cool"
	HVACDry     = "dry"
	HVACFanOnly = "fan_only"
)

// Swing and preset modes.
const (
	SwingOff        = "off"
	SwingHorizontal = "horizontal"
	SwingVertical   = "vertical"
	SwingBoth       = "both"

	PresetNone  = "none"
	PresetBoost = "boost"
	PresetEco   = "eco"
)

const (
	directionSwing = "swing"
	directionStop  = "stop"
)

var hvacByOperation = map[string]string{
	mapper.OperationHeating: HVACHeat,
	mapper.OperationCooling: HVACCool,
	mapper.OperationAuto:    HVACAuto,
	mapper.OperationDry:     HVACDry,
	mapper.OperationFanOnly: HVACFanOnly,
}

func operationForHVAC(mode string) (string, bool) {
	for op, hvac := range hvacByOperation {
		if hvac == mode {
			return op, true
		}
	}
	return "", false
}

// Climate drives a climate-control management point through onOffMode,
// operationMode, temperatureControl, fanControl, powerfulMode and econoMode.
type Climate struct {
	base
	setpoint  string
	onOff     *control.BooleanControl
	operation *control.BooleanControl
	powerful  *control.BooleanControl
	econo     *control.BooleanControl
	w         *control.Writer
}

func newClimate(b base, setpoint string, w *control.Writer) *Climate {
	c := &Climate{base: b, setpoint: setpoint, w: w}
	c.onOff = control.NewBooleanControl(b.ref(mapper.CharOnOffMode), w)
	c.operation = control.NewBooleanControl(b.ref(mapper.CharOperationMode), w)
	c.powerful = control.NewBooleanControl(b.ref(mapper.CharPowerfulMode), w)
	c.econo = control.NewBooleanControl(b.ref(mapper.CharEconoMode), w)
	return c
}

func (c *Climate) operationMode() string {
	op, _ := c.operation.Current()
	return op
}

// HVACMode returns the presented mode: off while the unit is off, otherwise
// the mapped operation mode.
func (c *Climate) HVACMode() string {
	if !c.onOff.IsOn() {
		return HVACOff
	}
	if mode, ok := hvacByOperation[c.operationMode()]; ok {
		return mode
	}
	return HVACOff
}

func (c *Climate) hvacModes() []string {
	modes := []string{HVACOff}
	for _, op := range c.operation.Options() {
		if mode, ok := hvacByOperation[op]; ok {
			modes = append(modes, mode)
		}
	}
	return modes
}

func (c *Climate) setpointControl(operation string) *control.RangeControl {
	return control.NewRangeControl(c.ref(mapper.CharTemperatureControl), c.w, mapper.SetpointPath(operation, c.setpoint))
}

func (c *Climate) fanControl(operation string) *control.ModeControl {
	base := document.Pointer(mapper.KeyOperationModes, operation, mapper.KeyFanSpeed)
	return control.NewModeControl(c.ref(mapper.CharFanControl), c.w, control.AtPath(base), control.SkipUnchangedMode())
}

func (c *Climate) directionControl(operation, axis string) *control.ModeControl {
	base := document.Pointer(mapper.KeyOperationModes, operation, mapper.KeyFanDirection, axis)
	return control.NewModeControl(c.ref(mapper.CharFanControl), c.w, control.AtPath(base), control.SkipUnchangedMode())
}

func (c *Climate) swing(operation string) (modes []string, current string) {
	h, hasH := c.directionControl(operation, mapper.KeyHorizontal).Current()
	v, hasV := c.directionControl(operation, mapper.KeyVertical).Current()
	if !hasH && !hasV {
		return nil, ""
	}
	modes = []string{SwingOff}
	if hasH {
		modes = append(modes, SwingHorizontal)
	}
	if hasV {
		modes = append(modes, SwingVertical)
	}
	if hasH && hasV {
		modes = append(modes, SwingBoth)
	}
	switch {
	case h == directionSwing && v == directionSwing:
		current = SwingBoth
	case h == directionSwing:
		current = SwingHorizontal
	case v == directionSwing:
		current = SwingVertical
	default:
		current = SwingOff
	}
	return modes, current
}

func (c *Climate) presets() (modes []string, current string) {
	modes = []string{PresetNone}
	current = PresetNone
	if _, ok := c.powerful.Current(); ok {
		modes = append(modes, PresetBoost)
		if c.powerful.IsOn() {
			current = PresetBoost
		}
	}
	if _, ok := c.econo.Current(); ok {
		modes = append(modes, PresetEco)
		if c.econo.IsOn() && current == PresetNone {
			current = PresetEco
		}
	}
	return modes, current
}

// State implements Entity.
func (c *Climate) State() types.EntityState {
	op := c.operationMode()
	attrs := map[string]any{
		"hvac_modes":     c.hvacModes(),
		"setpoint":       c.setpoint,
		"operation_mode": op,
	}

	if rng, ok := c.setpointControl(op).Range(); ok {
		if rng.HasValue {
			attrs["temperature"] = rng.Value
		}
		attrs["min_temp"] = rng.Min
		attrs["max_temp"] = rng.Max
		attrs["target_temp_step"] = rng.Step
	}

	c.dev.Read(func(doc document.Document) {
		mp, ok := mapper.FindManagementPoint(doc, c.embeddedID, c.mpType)
		if !ok {
			return
		}
		if v, ok := mapper.SensorValue(mp, mapper.SensorRoomTemperature); ok {
			attrs["current_temperature"] = v
		} else if v, ok := mapper.SensorValue(mp, mapper.SensorLeavingWaterTemperature); ok {
			attrs["current_temperature"] = v
		}
		if v, ok := mapper.SensorValue(mp, mapper.SensorOutdoorTemperature); ok {
			attrs["outdoor_temperature"] = v
		}
	})

	fan := c.fanControl(op)
	if opts := fan.Options(); len(opts) > 0 {
		attrs["fan_modes"] = opts
		if cur, ok := fan.Current(); ok {
			attrs["fan_mode"] = cur
		}
	}
	if modes, cur := c.swing(op); len(modes) > 0 {
		attrs["swing_modes"] = modes
		attrs["swing_mode"] = cur
	}
	if modes, cur := c.presets(); len(modes) > 1 {
		attrs["preset_modes"] = modes
		attrs["preset_mode"] = cur
	}

	return c.state(c.HVACMode(), true, nil, attrs)
}

// Handle implements Entity.
func (c *Climate) Handle(ctx context.Context, cmd types.Command) error {
	switch cmd.Action {
	case types.ActionTurnOn:
		return c.onOff.Select(ctx, mapper.StateOn)
	case types.ActionTurnOff:
		return c.onOff.Select(ctx, mapper.StateOff)
	case types.ActionSetHVACMode:
		return c.setHVACMode(ctx, cmd.Mode)
	case types.ActionSetTemperature:
		if cmd.Mode != "" {
			if err := c.setHVACMode(ctx, cmd.Mode); err != nil {
				return err
			}
		}
		return c.setpointControl(c.operationMode()).Set(ctx, cmd.Value)
	case types.ActionSetFanMode:
		return c.fanControl(c.operationMode()).Select(ctx, cmd.Option)
	case types.ActionSetSwingMode:
		return c.setSwingMode(ctx, cmd.Option)
	case types.ActionSetPresetMode:
		return c.setPresetMode(ctx, cmd.Option)
	default:
		return unsupported(cmd)
	}
}

// setHVACMode switches the operation mode first and then powers the unit on.
// Writes are skipped when the device already matches.
func (c *Climate) setHVACMode(ctx context.Context, mode string) error {
	if mode == HVACOff {
		return c.onOff.Select(ctx, mapper.StateOff)
	}
	op, ok := operationForHVAC(mode)
	if !ok {
		return fmt.Errorf("hvac mode %q: %w", mode, control.ErrInvalidOption)
	}
	if err := c.operation.Select(ctx, op); err != nil {
		return err
	}
	return c.onOff.Select(ctx, mapper.StateOn)
}

// setSwingMode writes the horizontal axis, then the vertical one, each only
// when it differs from the requested direction.
func (c *Climate) setSwingMode(ctx context.Context, mode string) error {
	var h, v string
	switch mode {
	case SwingOff:
		h, v = directionStop, directionStop
	case SwingHorizontal:
		h, v = directionSwing, directionStop
	case SwingVertical:
		h, v = directionStop, directionSwing
	case SwingBoth:
		h, v = directionSwing, directionSwing
	default:
		return fmt.Errorf("swing mode %q: %w", mode, control.ErrInvalidOption)
	}

	op := c.operationMode()
	for _, axis := range []struct{ name, want string }{
		{mapper.KeyHorizontal, h},
		{mapper.KeyVertical, v},
	} {
		ctl := c.directionControl(op, axis.name)
		cur, ok := ctl.Current()
		if !ok || cur == axis.want {
			continue
		}
		if err := ctl.Select(ctx, axis.want); err != nil {
			return err
		}
	}
	return nil
}

// setPresetMode maps boost to powerfulMode and eco to econoMode. Boost powers
// the unit on first when it is off.
func (c *Climate) setPresetMode(ctx context.Context, preset string) error {
	switch preset {
	case PresetNone:
		if err := c.switchIfPresent(ctx, c.powerful, mapper.StateOff); err != nil {
			return err
		}
		return c.switchIfPresent(ctx, c.econo, mapper.StateOff)
	case PresetBoost:
		if err := c.onOff.Select(ctx, mapper.StateOn); err != nil {
			return err
		}
		if err := c.switchIfPresent(ctx, c.econo, mapper.StateOff); err != nil {
			return err
		}
		return c.powerful.Select(ctx, mapper.StateOn)
	case PresetEco:
		if err := c.switchIfPresent(ctx, c.powerful, mapper.StateOff); err != nil {
			return err
		}
		return c.econo.Select(ctx, mapper.StateOn)
	default:
		return fmt.Errorf("preset %q: %w", preset, control.ErrInvalidOption)
	}
}

func (c *Climate) switchIfPresent(ctx context.Context, b *control.BooleanControl, state string) error {
	if _, ok := b.Current(); !ok {
		return nil
	}
	return b.Select(ctx, state)
}
