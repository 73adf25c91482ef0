package mapper

// ScheduleSet describes the active mode of a schedule characteristic.
type ScheduleSet struct {
	Mode       string
	Enabled    bool
	CurrentID  string
	Candidates []string
	names      map[string]string
}

// ExtractSchedules reads the schedule sub-model of the characteristic's active mode.
func ExtractSchedules(c Characteristic) (ScheduleSet, bool) {
	value := c.Value()
	mode, ok := value.Get(KeyCurrentMode, KeyValue).String()
	if !ok {
		return ScheduleSet{}, false
	}
	active := value.Get(KeyModes, mode)
	if _, ok := active.Map(); !ok {
		return ScheduleSet{}, false
	}

	set := ScheduleSet{Mode: mode, names: map[string]string{}}
	set.Enabled, _ = active.Get(KeyEnabled, KeyValue).Bool()
	set.CurrentID, _ = active.Get(KeyCurrentSchedule, KeyValue).String()
	set.Candidates, _ = active.Get(KeyCurrentSchedule, KeyValues).Strings()

	for _, id := range active.Get(KeySchedules).Keys() {
		if name, ok := active.Get(KeySchedules, id, KeyName, KeyValue).String(); ok {
			set.names[id] = name
		}
	}
	return set, true
}

// DisplayName returns the schedule's readable name, or the id when it has none.
func (s ScheduleSet) DisplayName(id string) string {
	if name := s.names[id]; name != "" {
		return name
	}
	return id
}

// Options returns the display names of all candidates in candidate order.
func (s ScheduleSet) Options() []string {
	out := make([]string, 0, len(s.Candidates))
	for _, id := range s.Candidates {
		out = append(out, s.DisplayName(id))
	}
	return out
}

// ResolveID maps a display name back to a schedule id. Candidates are scanned
// in order and the first whose display name matches wins, so duplicate names
// always resolve to the earliest id. A bare id is accepted as well.
func (s ScheduleSet) ResolveID(option string) (string, bool) {
	for _, id := range s.Candidates {
		if s.DisplayName(id) == option {
			return id, true
		}
	}
	for _, id := range s.Candidates {
		if id == option {
			return id, true
		}
	}
	return "", false
}
