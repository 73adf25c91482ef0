package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onecta_bridge/internal/types"
)

type fakeSource struct {
	fetches int
	written bool
	err     error
}

func (f *fakeSource) FetchAllDevices(context.Context) ([]types.Snapshot, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	return []types.Snapshot{{"id": "dev"}}, nil
}

func (f *fakeSource) ConsumeWritten() bool {
	w := f.written
	f.written = false
	return w
}

type fakeSink struct {
	applied atomic.Int32
}

func (f *fakeSink) Apply([]types.Snapshot) { f.applied.Add(1) }

type outcomes []string

func (o *outcomes) ObservePoll(outcome string, _ time.Duration) { *o = append(*o, outcome) }

func newPoller(src Source, sink Sink, obs Observer, clock *time.Time) *Poller {
	p := New(src, sink, Config{Interval: time.Minute, MinInterval: 10 * time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)), obs)
	p.now = func() time.Time { return *clock }
	return p
}

func TestPollThrottle(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	src := &fakeSource{}
	sink := &fakeSink{}
	var seen outcomes
	p := newPoller(src, sink, &seen, &clock)

	assert.Equal(t, OutcomeUpdated, p.Poll(context.Background()))

	clock = clock.Add(5 * time.Minute)
	assert.Equal(t, OutcomeThrottled, p.Poll(context.Background()))

	clock = clock.Add(5 * time.Minute)
	assert.Equal(t, OutcomeUpdated, p.Poll(context.Background()))

	assert.Equal(t, 2, src.fetches)
	assert.Equal(t, int32(2), sink.applied.Load())
	assert.Equal(t, outcomes{OutcomeUpdated, OutcomeThrottled, OutcomeUpdated}, seen)
}

func TestPollSkippedOnceAfterWrite(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	src := &fakeSource{written: true}
	sink := &fakeSink{}
	p := newPoller(src, sink, nil, &clock)

	assert.Equal(t, OutcomeSkipped, p.Poll(context.Background()))
	assert.Equal(t, 0, src.fetches)

	assert.Equal(t, OutcomeUpdated, p.Poll(context.Background()), "flag is cleared by the skipped attempt")
	assert.Equal(t, 1, src.fetches)
}

func TestPollFailure(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	src := &fakeSource{err: errors.New("offline")}
	sink := &fakeSink{}
	p := newPoller(src, sink, nil, &clock)

	assert.Equal(t, OutcomeFailed, p.Poll(context.Background()))
	assert.Equal(t, int32(0), sink.applied.Load())

	// failures do not start the throttle window
	src.err = nil
	assert.Equal(t, OutcomeUpdated, p.Poll(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	sink := &fakeSink{}
	p := New(src, sink, Config{Interval: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.applied.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
