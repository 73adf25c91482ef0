package control

import (
	"context"
	"fmt"
	"sync"

	"onecta_bridge/internal/mapper"
)

// scheduleBody is the payload of a schedule selection.
type scheduleBody struct {
	ScheduleID string `json:"scheduleId"`
	Enabled    bool   `json:"enabled"`
}

// ScheduleControl selects the active schedule of a schedule characteristic.
// The synthetic option "none" disables the active mode's schedule.
//
// A confirmed selection is not written back into the document; it is cached
// and reported by Current until the next full snapshot of the device. The
// cached schedule id is also the one "none" disables until then.
type ScheduleControl struct {
	ref Ref
	w   *Writer

	mu        sync.Mutex
	cached    string
	cachedID  string
	cachedRev uint64
	hasCached bool
}

// NewScheduleControl creates a schedule control for ref.
func NewScheduleControl(ref Ref, w *Writer) *ScheduleControl {
	return &ScheduleControl{ref: ref, w: w}
}

func (s *ScheduleControl) schedules() (mapper.ScheduleSet, bool) {
	var (
		set mapper.ScheduleSet
		ok  bool
	)
	s.ref.View(func(c mapper.Characteristic) {
		set, ok = mapper.ExtractSchedules(c)
	})
	return set, ok
}

// Options implements Control.
func (s *ScheduleControl) Options() []string {
	set, ok := s.schedules()
	if !ok {
		return nil
	}
	return append(set.Options(), mapper.OptionNone)
}

// Current implements Control.
func (s *ScheduleControl) Current() (string, bool) {
	s.mu.Lock()
	if s.hasCached && s.cachedRev == s.ref.Device.Revision() {
		cached := s.cached
		s.mu.Unlock()
		return cached, true
	}
	s.hasCached = false
	s.mu.Unlock()

	set, ok := s.schedules()
	if !ok {
		return "", false
	}
	if !set.Enabled {
		return mapper.OptionNone, true
	}
	if set.CurrentID == "" {
		return "", false
	}
	return set.DisplayName(set.CurrentID), true
}

// Select implements Control. Duplicate display names resolve to the first
// matching candidate id; the ambiguity is not reported.
func (s *ScheduleControl) Select(ctx context.Context, option string) error {
	set, ok := s.schedules()
	if !ok {
		return fmt.Errorf("%s: %w", s.ref.Target(""), ErrCapabilityAbsent)
	}

	body := scheduleBody{Enabled: option != mapper.OptionNone}
	if option == mapper.OptionNone {
		body.ScheduleID = s.activeID(set)
	} else {
		id, ok := set.ResolveID(option)
		if !ok {
			return fmt.Errorf("schedule %q: %w", option, ErrInvalidOption)
		}
		body.ScheduleID = id
	}

	resource := fmt.Sprintf("%s/%s/current", mapper.CharSchedule, set.Mode)
	if err := s.w.Put(ctx, s.ref, resource, body); err != nil {
		return err
	}

	rev := s.ref.Device.Revision()
	s.mu.Lock()
	s.cached = option
	s.cachedID = body.ScheduleID
	if body.Enabled {
		s.cached = set.DisplayName(body.ScheduleID)
	}
	s.cachedRev = rev
	s.hasCached = true
	s.mu.Unlock()

	s.w.changed(s.ref.Device)
	return nil
}

// activeID returns the id of the active schedule: the last confirmed
// selection while it is still current, else the document's currentSchedule.
func (s *ScheduleControl) activeID(set mapper.ScheduleSet) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCached && s.cachedRev == s.ref.Device.Revision() && s.cachedID != "" {
		return s.cachedID
	}
	return set.CurrentID
}
