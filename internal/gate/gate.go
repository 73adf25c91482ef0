// Package gate provides the single serialization point for cloud gateway calls.
package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when the gate no longer admits calls.
var ErrClosed = errors.New("gate closed")

// Gate is a mutual-exclusion handle held for the duration of one remote exchange.
// Acquisition honours context cancellation; once a call holds the gate it runs
// to completion before the gate is released.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Gate struct {
	slot      chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an open gate.
func New() *Gate {
	return &Gate{
		slot:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Do runs fn while holding the gate. ctx bounds only the wait for the gate:
// once acquired, fn runs to completion with a context that keeps ctx's values
// but not its cancellation. The gate is released only after fn returns.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()
	return fn(context.WithoutCancel(ctx))
}

func (g *Gate) acquire(ctx context.Context) error {
	select {
	case <-g.closed:
		return ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-g.closed:
		return ErrClosed
	}
	// Close may have raced with the acquisition.
	select {
	case <-g.closed:
		g.release()
		return ErrClosed
	default:
		return nil
	}
}

func (g *Gate) release() {
	<-g.slot
}

// Drain closes the gate to new callers and waits for the in-flight call, if
// any, to finish. It returns ctx.Err() if the wait is abandoned.
func (g *Gate) Drain(ctx context.Context) error {
	first := false
	g.closeOnce.Do(func() {
		close(g.closed)
		first = true
	})
	if !first {
		return nil
	}
	select {
	case g.slot <- struct{}{}:
		// Hold the slot forever; the gate is closed.
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
