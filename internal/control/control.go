// Package control translates device capabilities into discrete options and
// options back into ordered gateway writes.
package control

import (
	"context"
	"log/slog"

	"onecta_bridge/internal/device"
	"onecta_bridge/internal/document"
	"onecta_bridge/internal/mapper"
	"onecta_bridge/internal/types"
)

// Control is the capability set every renderable control implements.
type Control interface {
	// Options lists the presentable options in order.
	Options() []string
	// Current returns the active option, or false when there is none to show.
	Current() (string, bool)
	// Select translates option into gateway writes.
	Select(ctx context.Context, option string) error
}

// Gateway is the write side of the gateway client.
type Gateway interface {
	Patch(ctx context.Context, target types.WriteTarget, value any) error
	Put(ctx context.Context, deviceID, embeddedID, resource string, body any) error
}

// Ref addresses one characteristic of one device.
type Ref struct {
	Device              *device.Device
	EmbeddedID          string
	ManagementPointType string
	Characteristic      string
}

// Target builds the write target for a path relative to the characteristic value.
func (r Ref) Target(path string) types.WriteTarget {
	return types.WriteTarget{
		DeviceID:            r.Device.ID,
		EmbeddedID:          r.EmbeddedID,
		ManagementPointType: r.ManagementPointType,
		Characteristic:      r.Characteristic,
		Path:                path,
	}
}

// View calls fn with the characteristic under the device read lock. It
// reports false, without calling fn, when the characteristic is absent.
func (r Ref) View(fn func(c mapper.Characteristic)) bool {
	found := false
	r.Device.Read(func(doc document.Document) {
		c, ok := mapper.Find(doc, r.EmbeddedID, r.ManagementPointType, r.Characteristic)
		if !ok {
			return
		}
		found = true
		fn(c)
	})
	return found
}

// WriteState is the lifecycle of one gateway write.
type WriteState int

const (
	WriteIdle WriteState = iota
	WriteSending
	WriteConfirmed
	WriteFailed
)

func (s WriteState) String() string {
	switch s {
	case WriteIdle:
		return "idle"
	case WriteSending:
		return "sending"
	case WriteConfirmed:
		return "confirmed"
	case WriteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer is told about every write transition.
type Observer interface {
	ObserveWrite(target types.WriteTarget, state WriteState)
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithObserver registers a write observer.
func WithObserver(o Observer) WriterOption {
	return func(w *Writer) { w.observer = o }
}

// WithChangeHook registers a callback run after a device's state changed
// because of a confirmed write.
func WithChangeHook(fn func(d *device.Device)) WriterOption {
	return func(w *Writer) { w.onChange = fn }
}

// Writer sends writes through the gateway and, once confirmed, patches the
// device document in place. There is no retry: a failed write leaves the
// previous state authoritative.
type Writer struct {
	gw       Gateway
	logger   *slog.Logger
	observer Observer
	onChange func(d *device.Device)
}

// NewWriter creates a writer.
func NewWriter(gw Gateway, logger *slog.Logger, opts ...WriterOption) *Writer {
	w := &Writer{gw: gw, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Patch writes value at path of the referenced characteristic and applies
// the optimistic patch on success.
func (w *Writer) Patch(ctx context.Context, ref Ref, path string, value any) error {
	target := ref.Target(path)
	w.transition(target, WriteSending)
	if err := w.gw.Patch(ctx, target, value); err != nil {
		w.transition(target, WriteFailed)
		w.logger.Warn("Write failed, keeping previous state",
			"device_id", target.DeviceID,
			"embedded_id", target.EmbeddedID,
			"characteristic", target.Characteristic,
			"path", target.Path,
			"error", err)
		return err
	}
	w.transition(target, WriteConfirmed)
	if !ref.Device.ApplyPatch(target, value) {
		w.logger.Debug("Optimistic patch target not in document", "target", target.String())
	}
	w.changed(ref.Device)
	return nil
}

// Put writes a management point sub-resource. The document is not patched;
// callers keep whatever local state they need.
func (w *Writer) Put(ctx context.Context, ref Ref, resource string, body any) error {
	target := ref.Target("")
	target.Path = "/" + resource
	w.transition(target, WriteSending)
	if err := w.gw.Put(ctx, ref.Device.ID, ref.EmbeddedID, resource, body); err != nil {
		w.transition(target, WriteFailed)
		w.logger.Warn("Write failed, keeping previous state",
			"device_id", target.DeviceID,
			"embedded_id", target.EmbeddedID,
			"resource", resource,
			"error", err)
		return err
	}
	w.transition(target, WriteConfirmed)
	return nil
}

func (w *Writer) transition(target types.WriteTarget, state WriteState) {
	w.logger.Debug("Write state", "target", target.String(), "state", state.String())
	if w.observer != nil {
		w.observer.ObserveWrite(target, state)
	}
}

func (w *Writer) changed(d *device.Device) {
	if w.onChange != nil {
		w.onChange(d)
	}
}

var (
	_ Control = (*ModeControl)(nil)
	_ Control = (*ScheduleControl)(nil)
	_ Control = (*RangeControl)(nil)
	_ Control = (*BooleanControl)(nil)
)
