package entity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/types"
)

// StateListener receives every published entity state.
type StateListener func(state types.EntityState)

// RemoveListener is told when an entity disappears.
type RemoveListener func(uniqueID string)

// Manager keeps the entities of every known device and routes commands to them.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Manager struct {
	writer *control.Writer
	logger *slog.Logger

	mu        sync.RWMutex
	entities  map[string]Entity
	byDevice  map[string][]string
	onState   []StateListener
	onRemoval []RemoveListener
}

// NewManager creates an empty manager. Writer may be nil until SetWriter is called.
func NewManager(writer *control.Writer, logger *slog.Logger) *Manager {
	return &Manager{
		writer:   writer,
		logger:   logger,
		entities: make(map[string]Entity),
		byDevice: make(map[string][]string),
	}
}

// SetWriter installs the writer used by entities discovered afterwards. The
// writer's change hook usually points back at Publish, hence the late binding.
func (m *Manager) SetWriter(w *control.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writer = w
}

// OnState registers a state listener.
func (m *Manager) OnState(fn StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onState = append(m.onState, fn)
}

// OnRemove registers a removal listener.
func (m *Manager) OnRemove(fn RemoveListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRemoval = append(m.onRemoval, fn)
}

// Sync rediscovers the entities of a device and publishes their state. It
// satisfies device.Listener. Known entities keep their identity across syncs.
func (m *Manager) Sync(d *device.Device, removed bool) {
	var gone []string

	m.mu.Lock()
	previous := m.byDevice[d.ID]
	if removed {
		gone = previous
		for _, id := range previous {
			delete(m.entities, id)
		}
		delete(m.byDevice, d.ID)
	} else {
		discovered := Discover(d, m.writer, m.logger)
		keep := make(map[string]bool, len(discovered))
		ids := make([]string, 0, len(discovered))
		for _, e := range discovered {
			id := e.UniqueID()
			if keep[id] {
				continue
			}
			keep[id] = true
			ids = append(ids, id)
			if _, ok := m.entities[id]; !ok {
				m.entities[id] = e
				m.logger.Debug("Entity added", "unique_id", id, "platform", e.State().Platform)
			}
		}
		for _, id := range previous {
			if !keep[id] {
				delete(m.entities, id)
				gone = append(gone, id)
			}
		}
		m.byDevice[d.ID] = ids
	}
	removers := append([]RemoveListener(nil), m.onRemoval...)
	m.mu.Unlock()

	for _, id := range gone {
		m.logger.Info("Entity removed", "unique_id", id)
		for _, fn := range removers {
			fn(id)
		}
	}
	if !removed {
		m.Publish(d)
	}
}

// Publish sends the current state of every entity of a device to the listeners.
func (m *Manager) Publish(d *device.Device) {
	m.mu.RLock()
	ids := m.byDevice[d.ID]
	ents := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			ents = append(ents, e)
		}
	}
	listeners := append([]StateListener(nil), m.onState...)
	m.mu.RUnlock()

	for _, e := range ents {
		state := e.State()
		for _, fn := range listeners {
			fn(state)
		}
	}
}

// Get returns an entity by unique id.
func (m *Manager) Get(id string) (Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	return e, ok
}

// States returns the state of every entity ordered by unique id.
func (m *Manager) States() []types.EntityState {
	m.mu.RLock()
	ents := make([]Entity, 0, len(m.entities))
	for _, e := range m.entities {
		ents = append(ents, e)
	}
	m.mu.RUnlock()

	sort.Slice(ents, func(i, j int) bool { return ents[i].UniqueID() < ents[j].UniqueID() })
	out := make([]types.EntityState, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.State())
	}
	return out
}

// Command routes cmd to the entity with the given unique id.
func (m *Manager) Command(ctx context.Context, id string, cmd types.Command) error {
	e, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownEntity)
	}

	commandID := uuid.NewString()
	logger := m.logger.With("command_id", commandID, "unique_id", id, "action", cmd.Action)
	logger.Info("Handling command", "option", cmd.Option, "value", cmd.Value, "hvac_mode", cmd.Mode)

	start := time.Now()
	if err := e.Handle(ctx, cmd); err != nil {
		logger.Warn("Command failed", "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("Command completed", "duration", time.Since(start))
	return nil
}
