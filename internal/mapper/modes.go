package mapper

import (
	"math"
	"strconv"

	"onecta_bridge/internal/document"
)

// ModeSet describes a currentMode/modes block: the active mode, the allowed
// modes and the per-mode payloads.
type ModeSet struct {
	Current string
	Values  []string
	modes   document.Result
}

// Mode returns the payload of a named mode.
func (m ModeSet) Mode(name string) document.Result {
	return m.modes.Get(name)
}

// Has reports whether name is one of the allowed modes.
func (m ModeSet) Has(name string) bool {
	for _, v := range m.Values {
		if v == name {
			return true
		}
	}
	return false
}

// ExtractModeSet reads the currentMode block under node. node is the object
// holding currentMode and modes, e.g. a demandControl value or a fanSpeed entry.
func ExtractModeSet(node document.Result) (ModeSet, bool) {
	current, ok := node.Get(KeyCurrentMode, KeyValue).String()
	if !ok {
		return ModeSet{}, false
	}
	values, _ := node.Get(KeyCurrentMode, KeyValues).Strings()
	return ModeSet{
		Current: current,
		Values:  values,
		modes:   node.Get(KeyModes),
	}, true
}

// Range is a numeric descriptor with minValue, maxValue, stepValue and value.
type Range struct {
	Min      float64
	Max      float64
	Step     float64
	Value    float64
	HasValue bool
	Settable bool
}

// ExtractRange reads a numeric descriptor. Min and max are required; a missing
// step defaults to 1.
func ExtractRange(node document.Result) (Range, bool) {
	lo, okMin := node.Get(KeyMinValue).Float()
	hi, okMax := node.Get(KeyMaxValue).Float()
	if !okMin || !okMax {
		return Range{}, false
	}
	step, ok := node.Get(KeyStepValue).Float()
	if !ok {
		step = 1
	}
	r := Range{Min: lo, Max: hi, Step: step}
	r.Value, r.HasValue = node.Get(KeyValue).Float()
	settable, ok := node.Get(KeySettable).Bool()
	r.Settable = !ok || settable
	return r, true
}

// Count returns floor((max-min)/step)+1, or 0 for an empty or malformed range.
func (r Range) Count() int {
	if r.Step <= 0 || r.Max < r.Min {
		return 0
	}
	// tolerate float noise such as (30-10)/0.1
	return int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
}

// Values lists min, min+step, ... up to and including max when reachable.
func (r Range) Values() []float64 {
	n := r.Count()
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Min+float64(i)*r.Step)
	}
	return out
}

// IntOptions renders the range with integer bounds and step as decimal strings.
// Used for discrete "fixed" modes, whose bounds are integral.
func (r Range) IntOptions() []string {
	lo, hi, step := int(r.Min), int(r.Max), int(r.Step)
	if step <= 0 || hi < lo {
		return nil
	}
	out := make([]string, 0, (hi-lo)/step+1)
	for v := lo; v <= hi; v += step {
		out = append(out, strconv.Itoa(v))
	}
	return out
}

// Contains reports whether v lies within [min, max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FormatNumber renders a number the way options are displayed: integers without
// a fraction, everything else in its shortest form.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
