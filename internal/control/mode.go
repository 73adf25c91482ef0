package control

import (
	"context"
	"fmt"
	"strconv"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// ModeOption configures a ModeControl.
type ModeOption func(*ModeControl)

// AtPath roots the currentMode/modes block at a pointer below the
// characteristic value, e.g. "/operationModes/cooling/fanSpeed".
func AtPath(base string) ModeOption {
	return func(m *ModeControl) { m.base = base }
}

// SkipUnchangedMode omits the currentMode write when the device is already in
// the target mode.
func SkipUnchangedMode() ModeOption {
	return func(m *ModeControl) { m.skipUnchanged = true }
}

// ModeControl drives a currentMode/modes characteristic such as demandControl.
// The "scheduled" mode is never offered; "fixed" expands to its integer range.
type ModeControl struct {
	ref           Ref
	w             *Writer
	base          string
	skipUnchanged bool
}

// NewModeControl creates a mode control for ref.
func NewModeControl(ref Ref, w *Writer, opts ...ModeOption) *ModeControl {
	m := &ModeControl{ref: ref, w: w}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// modeSet reads the mode block under the device read lock.
func (m *ModeControl) modeSet() (mapper.ModeSet, mapper.Range, bool) {
	tokens, err := document.ParsePointer(m.base)
	if err != nil {
		return mapper.ModeSet{}, mapper.Range{}, false
	}
	var (
		ms    mapper.ModeSet
		fixed mapper.Range
		found bool
	)
	m.ref.View(func(c mapper.Characteristic) {
		ms, found = mapper.ExtractModeSet(c.Value().Get(tokens...))
		if found {
			fixed, _ = mapper.ExtractRange(ms.Mode(mapper.ModeFixed))
		}
	})
	return ms, fixed, found
}

// Options implements Control.
func (m *ModeControl) Options() []string {
	ms, fixed, ok := m.modeSet()
	if !ok {
		return nil
	}
	var out []string
	for _, mode := range ms.Values {
		switch mode {
		case mapper.ModeScheduled:
		case mapper.ModeFixed:
			out = append(out, fixed.IntOptions()...)
		default:
			out = append(out, mode)
		}
	}
	return out
}

// Current implements Control. A scheduled mode has no discrete option.
func (m *ModeControl) Current() (string, bool) {
	ms, fixed, ok := m.modeSet()
	if !ok {
		return "", false
	}
	switch ms.Current {
	case mapper.ModeScheduled:
		return "", false
	case mapper.ModeFixed:
		// fixed without a readable value has no option to report
		if !fixed.HasValue {
			return "", false
		}
		return mapper.FormatNumber(fixed.Value), true
	default:
		return ms.Current, true
	}
}

// Select implements Control. A mode name other than "fixed" or "scheduled"
// switches the mode; anything else selects "fixed" with the integer value of
// option. The mode write comes first; if it fails nothing else happens.
func (m *ModeControl) Select(ctx context.Context, option string) error {
	ms, fixed, ok := m.modeSet()
	if !ok {
		return fmt.Errorf("%s: %w", m.ref.Target(m.base), ErrCapabilityAbsent)
	}

	// Any other advertised mode, such as a fan's "quiet", is switched to
	// directly like auto and off.
	mode := mapper.ModeFixed
	if option == mapper.ModeAuto || option == mapper.ModeOff ||
		(ms.Has(option) && option != mapper.ModeFixed && option != mapper.ModeScheduled) {
		mode = option
	}

	var value int
	if mode == mapper.ModeFixed {
		n, err := strconv.Atoi(option)
		if err != nil {
			return fmt.Errorf("%q: %w", option, ErrInvalidOption)
		}
		if fixed.Step > 0 && !fixed.Contains(float64(n)) {
			return fmt.Errorf("%q outside [%s, %s]: %w", option,
				mapper.FormatNumber(fixed.Min), mapper.FormatNumber(fixed.Max), ErrInvalidOption)
		}
		value = n
	}

	modePath := m.base + "/" + mapper.KeyCurrentMode
	modeWritten := false
	if !m.skipUnchanged || ms.Current != mode {
		if err := m.w.Patch(ctx, m.ref, modePath, mode); err != nil {
			return err
		}
		modeWritten = true
	}
	if mode != mapper.ModeFixed {
		return nil
	}

	fixedPath := m.base + document.Pointer(mapper.KeyModes, mapper.ModeFixed)
	if err := m.w.Patch(ctx, m.ref, fixedPath, value); err != nil {
		if !modeWritten {
			return err
		}
		return &PartialCommandError{
			Applied: []types.WriteTarget{m.ref.Target(modePath)},
			Failed:  m.ref.Target(fixedPath),
			Err:     err,
		}
	}
	return nil
}
