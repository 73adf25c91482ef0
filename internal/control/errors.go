package control

import (
	"errors"
	"fmt"

	"onecta_bridge/internal/types"
)

var (
	// ErrCapabilityAbsent is returned when the characteristic a control
	// drives is missing from the device document.
	ErrCapabilityAbsent = errors.New("capability absent")

	// ErrInvalidOption is returned for options that cannot be translated
	// into a write. No write is attempted.
	ErrInvalidOption = errors.New("invalid option")

	// ErrPartialCommand marks a multi-write command whose first write
	// succeeded and a later one failed. The first effect is kept.
	ErrPartialCommand = errors.New("command partially applied")
)

// PartialCommandError reports which write of a command failed after earlier
// writes were confirmed.
type PartialCommandError struct {
	Applied []types.WriteTarget
	Failed  types.WriteTarget
	Err     error
}

func (e *PartialCommandError) Error() string {
	return fmt.Sprintf("command partially applied: %d write(s) confirmed, %s failed: %v", len(e.Applied), e.Failed, e.Err)
}

// Unwrap exposes both the sentinel and the underlying write error.
func (e *PartialCommandError) Unwrap() []error {
	return []error{ErrPartialCommand, e.Err}
}
