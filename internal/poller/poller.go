// Package poller periodically refreshes the device registry from the gateway.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"onecta_bridge/internal/types"
)

// DefaultMinInterval is the shortest time allowed between two full refreshes.
const DefaultMinInterval = 10 * time.Minute

// Outcomes reported to the Observer.
const (
	OutcomeUpdated   = "updated"
	OutcomeThrottled = "throttled"
	OutcomeSkipped   = "skipped_after_write"
	OutcomeFailed    = "failed"
)

// Source is the read side of the gateway client plus its suppression flag.
type Source interface {
	FetchAllDevices(ctx context.Context) ([]types.Snapshot, error)
	ConsumeWritten() bool
}

// Sink receives full snapshots.
type Sink interface {
	Apply(snaps []types.Snapshot)
}

// Observer is told the outcome of each poll attempt.
type Observer interface {
	ObservePoll(outcome string, elapsed time.Duration)
}

// Config holds the poller timing.
type Config struct {
	// Interval is how often a refresh is attempted.
	Interval time.Duration
	// MinInterval throttles attempts that come too soon after the last fetch.
	MinInterval time.Duration
}

// Poller runs the refresh loop. A refresh attempted right after a local write
// is skipped, not executed, so the optimistic state survives the stale data
// the cloud would return.
type Poller struct {
	src      Source
	sink     Sink
	cfg      Config
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	mu        sync.Mutex
	lastFetch time.Time
}

// New creates a poller.
func New(src Source, sink Sink, cfg Config, logger *slog.Logger, observer Observer) *Poller {
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Poller{
		src:      src,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
		observer: observer,
		now:      time.Now,
	}
}

// Refresh fetches all devices unconditionally and applies them. It is used at
// startup and by Poll.
func (p *Poller) Refresh(ctx context.Context) error {
	start := p.now()
	snaps, err := p.src.FetchAllDevices(ctx)
	if err != nil {
		p.observe(OutcomeFailed, start)
		p.logger.Error("Failed to refresh devices", "error", err)
		return err
	}

	p.mu.Lock()
	p.lastFetch = start
	p.mu.Unlock()

	p.sink.Apply(snaps)
	p.observe(OutcomeUpdated, start)
	p.logger.Debug("Devices refreshed", "count", len(snaps), "duration", p.now().Sub(start))
	return nil
}

// Poll runs one scheduled attempt and returns its outcome. The suppression
// flag is consumed by every attempt, including throttled ones.
func (p *Poller) Poll(ctx context.Context) string {
	start := p.now()
	if p.src.ConsumeWritten() {
		p.logger.Debug("Skipping refresh after local write")
		p.observe(OutcomeSkipped, start)
		return OutcomeSkipped
	}

	p.mu.Lock()
	last := p.lastFetch
	p.mu.Unlock()
	if !last.IsZero() && start.Sub(last) < p.cfg.MinInterval {
		p.logger.Debug("Refresh throttled", "since_last", start.Sub(last).Round(time.Second))
		p.observe(OutcomeThrottled, start)
		return OutcomeThrottled
	}

	if err := p.Refresh(ctx); err != nil {
		return OutcomeFailed
	}
	return OutcomeUpdated
}

// Run refreshes once and then polls every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting poller", "interval", p.cfg.Interval, "min_interval", p.cfg.MinInterval)
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn("Initial refresh failed, will retry on schedule", "error", err)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopped")
			return nil
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

func (p *Poller) observe(outcome string, start time.Time) {
	if p.observer != nil {
		p.observer.ObservePoll(outcome, p.now().Sub(start))
	}
}
