package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onecta_bridge/internal/gate"
	"onecta_bridge/internal/testutil"
	"onecta_bridge/internal/types"
)

type staticTokens struct {
	token       string
	invalidated atomic.Int32
}

func (s *staticTokens) Token(context.Context) (string, error) { return s.token, nil }
func (s *staticTokens) Invalidate()                          { s.invalidated.Add(1) }

type recordingObserver struct {
	mu       sync.Mutex
	requests []string
	limits   []types.RateLimits
}

func (o *recordingObserver) ObserveRequest(method, endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, method+" "+endpoint)
}

func (o *recordingObserver) ObserveRateLimits(l types.RateLimits) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.limits = append(o.limits, l)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) (*Client, *staticTokens) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tokens := &staticTokens{token: "tok"}
	return NewClient(srv.URL, tokens, gate.New(), discardLogger(), opts...), tokens
}

func TestFetchAllDevices(t *testing.T) {
	obs := &recordingObserver{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/gateway-devices", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("X-RateLimit-Limit-minute", "20")
		w.Header().Set("X-RateLimit-Remaining-minute", "19")
		w.Header().Set("X-RateLimit-Limit-day", "200")
		w.Header().Set("X-RateLimit-Remaining-day", "150")
		w.Write(testutil.DeviceList(t, "dx4", "altherma"))
	}), WithObserver(obs))

	snaps, err := c.FetchAllDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, testutil.DX4ID, snaps[0].ID())
	assert.Equal(t, testutil.AlthermaID, snaps[1].ID())

	limits := c.RateLimits()
	assert.Equal(t, 20, limits.LimitMinute)
	assert.Equal(t, 19, limits.RemainingMinute)
	assert.Equal(t, 200, limits.LimitDay)
	assert.Equal(t, 150, limits.RemainingDay)
	assert.False(t, limits.UpdatedAt.IsZero())

	assert.Equal(t, []string{"GET gateway-devices"}, obs.requests)
	assert.Len(t, obs.limits, 1)
	assert.False(t, c.ConsumeWritten(), "reads must not set the suppression flag")
}

func TestFetchAllDevicesMalformed(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))

	_, err := c.FetchAllDevices(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestPatch(t *testing.T) {
	var body map[string]any
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))

	target := types.WriteTarget{
		DeviceID:            testutil.DX4ID,
		EmbeddedID:          "climateControl",
		ManagementPointType: "climateControl",
		Characteristic:      "demandControl",
		Path:                "/modes/fixed",
	}
	require.NoError(t, c.Patch(context.Background(), target, 3))

	assert.Equal(t, "/v1/gateway-devices/"+testutil.DX4ID+"/management-points/climateControl/characteristics/demandControl", gotPath)
	assert.Equal(t, map[string]any{"value": 3.0, "path": "/modes/fixed"}, body)
	assert.True(t, c.ConsumeWritten())
	assert.False(t, c.ConsumeWritten(), "flag is cleared by the first consume")
}

func TestPatchWithoutPathOmitsIt(t *testing.T) {
	var raw []byte
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	target := types.WriteTarget{DeviceID: "d", EmbeddedID: "e", Characteristic: "onOffMode"}
	require.NoError(t, c.Patch(context.Background(), target, "on"))
	assert.JSONEq(t, `{"value":"on"}`, string(raw))
}

func TestPut(t *testing.T) {
	var raw []byte
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		raw, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))

	body := map[string]any{"scheduleId": "s1", "enabled": false}
	require.NoError(t, c.Put(context.Background(), "dev", "climateControl", "schedule/weekday/current", body))
	assert.Equal(t, "/v1/gateway-devices/dev/management-points/climateControl/schedule/weekday/current", gotPath)
	assert.JSONEq(t, `{"scheduleId":"s1","enabled":false}`, string(raw))
	assert.True(t, c.ConsumeWritten())
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		is     error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrTransport},
		{"bad request", http.StatusBadRequest, ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			err := c.Patch(context.Background(), types.WriteTarget{DeviceID: "d", EmbeddedID: "e", Characteristic: "c"}, 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.ErrorIs(t, err, ErrTransport)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.False(t, c.ConsumeWritten(), "failed writes must not set the suppression flag")

			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, int32(1), tokens.invalidated.Load())
			}
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, &staticTokens{token: "tok"}, gate.New(), discardLogger())
	_, err := c.FetchAllDevices(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestRequestsAreSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		if r.Method == http.MethodGet {
			w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = c.FetchAllDevices(context.Background())
				return
			}
			_ = c.Patch(context.Background(), types.WriteTarget{DeviceID: "d", EmbeddedID: "e", Characteristic: "c"}, i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestWriteSurvivesCallerCancel(t *testing.T) {
	received := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(received)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-received
		cancel()
	}()

	err := c.Patch(ctx, types.WriteTarget{DeviceID: "d", EmbeddedID: "e", Characteristic: "c"}, 1)
	require.NoError(t, err)
	assert.True(t, c.ConsumeWritten(), "a completed write must set the suppression flag")
}

func TestClosedGate(t *testing.T) {
	g := gate.New()
	require.NoError(t, g.Drain(context.Background()))

	c := NewClient("http://127.0.0.1:1", &staticTokens{token: "tok"}, g, discardLogger())
	_, err := c.FetchAllDevices(context.Background())
	assert.ErrorIs(t, err, gate.ErrClosed)
	assert.ErrorIs(t, err, ErrTransport)
}
