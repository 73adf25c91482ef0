package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onecta_bridge/internal/api"
	"onecta_bridge/internal/control"
	"onecta_bridge/internal/device"
	"onecta_bridge/internal/entity"
	"onecta_bridge/internal/gate"
	"onecta_bridge/internal/testutil"
	"onecta_bridge/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEntity struct {
	state types.EntityState
}

func (f *fakeEntity) UniqueID() string         { return f.state.UniqueID }
func (f *fakeEntity) DeviceID() string         { return f.state.DeviceID }
func (f *fakeEntity) State() types.EntityState { return f.state }
func (f *fakeEntity) Handle(context.Context, types.Command) error {
	return nil
}

type fakeEntities struct {
	items    map[string]*fakeEntity
	commands []types.Command
	err      error
}

func (f *fakeEntities) States() []types.EntityState {
	out := make([]types.EntityState, 0, len(f.items))
	for _, id := range []string{"a", "b"} {
		if e, ok := f.items[id]; ok {
			out = append(out, e.state)
		}
	}
	return out
}

func (f *fakeEntities) Get(id string) (entity.Entity, bool) {
	e, ok := f.items[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (f *fakeEntities) Command(_ context.Context, id string, cmd types.Command) error {
	if _, ok := f.items[id]; !ok {
		return fmt.Errorf("%s: %w", id, entity.ErrUnknownEntity)
	}
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return f.err
	}
	state := cmd.Option
	f.items[id].state.State = &state
	return nil
}

type fakeDevices []*device.Device

func (f fakeDevices) List() []*device.Device { return f }

type fakeLimits types.RateLimits

func (f fakeLimits) RateLimits() types.RateLimits { return types.RateLimits(f) }

type fakePoller struct{ calls int }

func (f *fakePoller) Poll(context.Context) string {
	f.calls++
	return "throttled"
}

func newTestHandler(t *testing.T) (*gin.Engine, *fakeEntities, *fakePoller) {
	t.Helper()
	auto := "auto"
	entities := &fakeEntities{items: map[string]*fakeEntity{
		"a": {state: types.EntityState{UniqueID: "a", Platform: "select", State: &auto, Options: []string{"auto", "off"}}},
		"b": {state: types.EntityState{UniqueID: "b", Platform: "switch"}},
	}}
	devices := fakeDevices{device.New(testutil.Snapshot(t, "dx4"), time.Unix(1700000000, 0))}
	limits := fakeLimits{LimitDay: 200, RemainingDay: 150}
	poller := &fakePoller{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "onecta_up 1\n")
	})

	h := NewHandler(entities, devices, limits, poller, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h.Routes(), entities, poller
}

func do(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r, _, _ := newTestHandler(t)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK\n", w.Body.String())

	w = do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "onecta_up 1")
}

func TestListAndGetEntities(t *testing.T) {
	r, _, _ := newTestHandler(t)

	w := do(r, http.MethodGet, "/api/entities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var states []types.EntityState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &states))
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].UniqueID)

	w = do(r, http.MethodGet, "/api/entities/a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state types.EntityState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, []string{"auto", "off"}, state.Options)

	w = do(r, http.MethodGet, "/api/entities/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommand(t *testing.T) {
	r, entities, _ := newTestHandler(t)

	w := do(r, http.MethodPost, "/api/entities/a/command", []byte(`{"action":"select_option","option":"off"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state types.EntityState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.NotNil(t, state.State)
	assert.Equal(t, "off", *state.State)
	assert.Equal(t, []types.Command{{Action: types.ActionSelectOption, Option: "off"}}, entities.commands)
}

func TestCommandBadRequests(t *testing.T) {
	r, entities, _ := newTestHandler(t)

	w := do(r, http.MethodPost, "/api/entities/a/command", []byte(`{"action":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/entities/a/command", []byte(`{"option":"off"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/entities/missing/command", []byte(`{"action":"turn_on"}`))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, entities.commands)
}

func TestCommandPartialFailure(t *testing.T) {
	r, entities, _ := newTestHandler(t)
	first := types.WriteTarget{DeviceID: "d", EmbeddedID: "climateControl", Characteristic: "demandControl", Path: "/currentMode"}
	second := first
	second.Path = "/modes/fixed"
	entities.err = &control.PartialCommandError{
		Applied: []types.WriteTarget{first},
		Failed:  second,
		Err:     fmt.Errorf("%w: boom", api.ErrTransport),
	}

	w := do(r, http.MethodPost, "/api/entities/a/command", []byte(`{"action":"select_option","option":"3"}`))
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body struct {
		Error   string              `json:"error"`
		Applied []types.WriteTarget `json:"applied"`
		Failed  types.WriteTarget   `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "partially applied")
	assert.Equal(t, []types.WriteTarget{first}, body.Applied)
	assert.Equal(t, second, body.Failed)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown entity", fmt.Errorf("x: %w", entity.ErrUnknownEntity), http.StatusNotFound},
		{"unsupported", entity.ErrUnsupportedAction, http.StatusBadRequest},
		{"invalid option", fmt.Errorf("%w: 7", control.ErrInvalidOption), http.StatusBadRequest},
		{"absent", control.ErrCapabilityAbsent, http.StatusConflict},
		{"rate limited", &api.StatusError{StatusCode: http.StatusTooManyRequests}, http.StatusTooManyRequests},
		{"gate closed", fmt.Errorf("%w: %w", api.ErrTransport, gate.ErrClosed), http.StatusServiceUnavailable},
		{"transport", &api.StatusError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestDevicesRateLimitsRefresh(t *testing.T) {
	r, _, poller := newTestHandler(t)

	w := do(r, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var devices []deviceSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, testutil.DX4ID, devices[0].ID)
	assert.Equal(t, "Werkkamer", devices[0].Name)
	assert.True(t, devices[0].Available)

	w = do(r, http.MethodGet, "/api/ratelimits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var limits types.RateLimits
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &limits))
	assert.Equal(t, 200, limits.LimitDay)
	assert.Equal(t, 150, limits.RemainingDay)

	w = do(r, http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"outcome":"throttled"}`, w.Body.String())
	assert.Equal(t, 1, poller.calls)
}
