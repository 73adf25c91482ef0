package control

import (
	"context"
	"fmt"
	"strconv"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
)

// RangeControl drives a numeric descriptor (minValue, maxValue, stepValue,
// value) found at a pointer below the characteristic value, such as a
// temperature setpoint.
type RangeControl struct {
	ref  Ref
	w    *Writer
	path string
}

// NewRangeControl creates a range control for the descriptor at path.
func NewRangeControl(ref Ref, w *Writer, path string) *RangeControl {
	return &RangeControl{ref: ref, w: w, path: path}
}

// Range returns the current descriptor.
func (r *RangeControl) Range() (mapper.Range, bool) {
	tokens, err := document.ParsePointer(r.path)
	if err != nil {
		return mapper.Range{}, false
	}
	var (
		rng mapper.Range
		ok  bool
	)
	r.ref.View(func(c mapper.Characteristic) {
		rng, ok = mapper.ExtractRange(c.Value().Get(tokens...))
	})
	return rng, ok
}

// Options implements Control.
func (r *RangeControl) Options() []string {
	rng, ok := r.Range()
	if !ok {
		return nil
	}
	vals := rng.Values()
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, mapper.FormatNumber(v))
	}
	return out
}

// Current implements Control.
func (r *RangeControl) Current() (string, bool) {
	rng, ok := r.Range()
	if !ok || !rng.HasValue {
		return "", false
	}
	return mapper.FormatNumber(rng.Value), true
}

// Select implements Control.
func (r *RangeControl) Select(ctx context.Context, option string) error {
	v, err := strconv.ParseFloat(option, 64)
	if err != nil {
		return fmt.Errorf("%q: %w", option, ErrInvalidOption)
	}
	return r.Set(ctx, v)
}

// Set writes v after checking it against the descriptor bounds.
func (r *RangeControl) Set(ctx context.Context, v float64) error {
	rng, ok := r.Range()
	if !ok {
		return fmt.Errorf("%s: %w", r.ref.Target(r.path), ErrCapabilityAbsent)
	}
	if !rng.Settable {
		return fmt.Errorf("%s is read-only: %w", r.ref.Target(r.path), ErrInvalidOption)
	}
	if !rng.Contains(v) {
		return fmt.Errorf("%s outside [%s, %s]: %w", mapper.FormatNumber(v),
			mapper.FormatNumber(rng.Min), mapper.FormatNumber(rng.Max), ErrInvalidOption)
	}
	return r.w.Patch(ctx, r.ref, r.path, v)
}

// BooleanControl drives a scalar characteristic with an enumerated "values"
// list, typically on/off. It also serves other enumerated scalars such as
// operationMode. Selecting the current value writes nothing.
type BooleanControl struct {
	ref Ref
	w   *Writer
}

// NewBooleanControl creates a control for a scalar characteristic.
func NewBooleanControl(ref Ref, w *Writer) *BooleanControl {
	return &BooleanControl{ref: ref, w: w}
}

func (b *BooleanControl) read() (current string, allowed []string, settable, found bool) {
	found = b.ref.View(func(c mapper.Characteristic) {
		current, _ = c.Value().String()
		allowed = c.AllowedValues()
		settable = c.Settable()
	})
	return current, allowed, settable, found
}

// Options implements Control. A characteristic without a values list is
// treated as on/off.
func (b *BooleanControl) Options() []string {
	_, allowed, _, ok := b.read()
	if !ok {
		return nil
	}
	if len(allowed) == 0 {
		return []string{mapper.StateOn, mapper.StateOff}
	}
	return allowed
}

// Current implements Control.
func (b *BooleanControl) Current() (string, bool) {
	current, _, _, ok := b.read()
	if !ok || current == "" {
		return "", false
	}
	return current, true
}

// IsOn reports whether the characteristic currently reads "on".
func (b *BooleanControl) IsOn() bool {
	current, _ := b.Current()
	return current == mapper.StateOn
}

// Select implements Control.
func (b *BooleanControl) Select(ctx context.Context, option string) error {
	current, allowed, settable, ok := b.read()
	if !ok {
		return fmt.Errorf("%s: %w", b.ref.Target(""), ErrCapabilityAbsent)
	}
	if current == option {
		return nil
	}
	if !settable {
		return fmt.Errorf("%s is read-only: %w", b.ref.Target(""), ErrInvalidOption)
	}
	if len(allowed) > 0 && !contains(allowed, option) {
		return fmt.Errorf("%q: %w", option, ErrInvalidOption)
	}
	return b.w.Patch(ctx, b.ref, "", option)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
