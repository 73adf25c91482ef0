package device

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"onecta_bridge/internal/types"
)

// Listener is notified after a device changed. removed is true when the
// gateway stopped listing it.
type Listener func(d *Device, removed bool)

// Registry owns every known device of one account.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Registry struct {
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	devices   map[string]*Device
	listeners []Listener
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger,
		now:     time.Now,
		devices: make(map[string]*Device),
	}
}

// Subscribe registers a listener for device changes.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Get returns the device with the given id.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// List returns all devices ordered by id.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Apply reconciles the registry with a full gateway listing: unknown devices
// are created, known ones replaced wholesale and missing ones removed.
// Snapshots without an id are ignored.
func (r *Registry) Apply(snaps []types.Snapshot) {
	now := r.now()
	seen := make(map[string]bool, len(snaps))

	type change struct {
		d       *Device
		removed bool
	}
	var changes []change

	r.mu.Lock()
	for _, snap := range snaps {
		id := snap.ID()
		if id == "" {
			r.logger.Warn("Ignoring gateway device without id")
			continue
		}
		seen[id] = true
		if d, ok := r.devices[id]; ok {
			d.ApplySnapshot(snap, now)
			changes = append(changes, change{d: d})
			continue
		}
		d := New(snap, now)
		r.devices[id] = d
		r.logger.Info("Discovered device", "device_id", id, "name", d.Name())
		changes = append(changes, change{d: d})
	}
	for id, d := range r.devices {
		if seen[id] {
			continue
		}
		delete(r.devices, id)
		r.logger.Info("Device no longer listed, removing", "device_id", id)
		changes = append(changes, change{d: d, removed: true})
	}
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, c := range changes {
		for _, l := range listeners {
			l(c.d, c.removed)
		}
	}
}
