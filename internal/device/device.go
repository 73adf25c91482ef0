// Package device holds the in-memory model of each appliance and the
// registry that reconciles it with gateway snapshots.
package device

import (
	"sync"
	"time"

	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Device is one physical appliance. The raw document is the single source of
// truth; renderers read it under Read and writers patch it in place, so a read
// that follows a successful write sees the patched value without a poll.
type Device struct {
	ID string

	mu          sync.RWMutex
	name        string
	available   bool
	doc         document.Document
	lastUpdated time.Time
	revision    uint64
}

// New creates a device from its first snapshot.
func New(snap types.Snapshot, now time.Time) *Device {
	d := &Device{ID: snap.ID()}
	d.ApplySnapshot(snap, now)
	return d
}

// Name returns the display name.
func (d *Device) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Available reports whether the device's cloud connection was up at the last snapshot.
func (d *Device) Available() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.available
}

// LastUpdated returns the time of the last successful snapshot.
func (d *Device) LastUpdated() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastUpdated
}

// Revision increases by one on every full snapshot.
func (d *Device) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}

// Read calls fn with the live document under the read lock. fn must not keep
// references to the document after it returns.
func (d *Device) Read(fn func(doc document.Document)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.doc)
}

// ApplySnapshot replaces the document wholesale.
func (d *Device) ApplySnapshot(snap types.Snapshot, now time.Time) {
	doc := document.Document(snap)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = doc
	d.name = mapper.DeviceName(doc, d.ID)
	d.available = mapper.CloudConnected(doc)
	d.lastUpdated = now
	d.revision++
}

// ApplyPatch writes value into the characteristic addressed by target.
//
// The node at target.Path under the characteristic's "value" is located; when
// that node is an object with its own "value" member the member is replaced,
// otherwise the node itself is. An empty path addresses the characteristic's
// "value". It reports false when the target cannot be found.
func (d *Device) ApplyPatch(target types.WriteTarget, value any) bool {
	tokens, err := document.ParsePointer(target.Path)
	if err != nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := mapper.Find(d.doc, target.EmbeddedID, target.ManagementPointType, target.Characteristic)
	if !ok {
		return false
	}
	charNode, _ := c.Node().Map()

	keys := append([]string{mapper.KeyValue}, tokens...)
	if node, ok := document.Lookup(charNode, keys...).Map(); ok {
		if _, has := node[mapper.KeyValue]; has {
			node[mapper.KeyValue] = value
			return true
		}
	}
	return document.Set(charNode, value, keys...)
}
