package entity

import (
	"context"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Select exposes a discrete control, demandControl or schedule, as a select.
type Select struct {
	base
	ctl control.Control
}

// State implements Entity.
func (s *Select) State() types.EntityState {
	cur, ok := s.ctl.Current()
	return s.state(cur, ok, s.ctl.Options(), nil)
}

// Handle implements Entity. Only select_option is accepted.
func (s *Select) Handle(ctx context.Context, cmd types.Command) error {
	if cmd.Action != types.ActionSelectOption {
		return unsupported(cmd)
	}
	return s.ctl.Select(ctx, cmd.Option)
}

// Switch exposes an on/off characteristic such as streamerMode.
type Switch struct {
	base
	ctl *control.BooleanControl
}

// State implements Entity.
func (s *Switch) State() types.EntityState {
	cur, ok := s.ctl.Current()
	return s.state(cur, ok, nil, nil)
}

// Handle implements Entity. Switching to the current state writes nothing.
func (s *Switch) Handle(ctx context.Context, cmd types.Command) error {
	switch cmd.Action {
	case types.ActionTurnOn:
		return s.ctl.Select(ctx, mapper.StateOn)
	case types.ActionTurnOff:
		return s.ctl.Select(ctx, mapper.StateOff)
	default:
		return unsupported(cmd)
	}
}
