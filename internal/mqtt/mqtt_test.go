package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onecta_bridge/internal/config"
	"onecta_bridge/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakeTransport struct {
	mu         sync.Mutex
	published  []published
	subscribed map[string]MessageHandler
	publishErr error
}

func (f *fakeTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{topic, payload, qos, retained})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed == nil {
		f.subscribed = make(map[string]MessageHandler)
	}
	f.subscribed[topic] = handler
	return nil
}

func (f *fakeTransport) handler(topic string) MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed[topic]
}

type commandCall struct {
	id  string
	cmd types.Command
}

type fakeCommander struct {
	calls []commandCall
	err   error
}

func (f *fakeCommander) Command(ctx context.Context, id string, cmd types.Command) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.calls = append(f.calls, commandCall{id, cmd})
	return f.err
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "onecta"}

	assert.Equal(t, "onecta/status", topics.Status())
	assert.Equal(t, "onecta/dev_climateControl_demandControl/state", topics.State("dev_climateControl_demandControl"))
	assert.Equal(t, "onecta/dev_climateControl_demandControl/set", topics.Command("dev_climateControl_demandControl"))
	assert.Equal(t, "onecta/+/set", topics.AllCommands())

	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"onecta/abc/set", "abc", true},
		{"onecta/abc/state", "", false},
		{"other/abc/set", "", false},
		{"onecta//set", "", false},
		{"onecta/a/b/set", "", false},
		{"onecta/set", "", false},
	}
	for _, tt := range tests {
		id, ok := topics.ParseCommand(tt.topic)
		assert.Equal(t, tt.wantOK, ok, tt.topic)
		assert.Equal(t, tt.wantID, id, tt.topic)
	}

	nested := Topics{Prefix: "home/onecta"}
	id, ok := nested.ParseCommand(nested.Command("x"))
	assert.True(t, ok)
	assert.Equal(t, "x", id)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := decodeCommand([]byte(`{"action":"set_temperature","value":21.5,"hvac_mode":"heat"}`))
	require.NoError(t, err)
	assert.Equal(t, types.Command{Action: types.ActionSetTemperature, Value: 21.5, Mode: "heat"}, cmd)

	cmd, err = decodeCommand([]byte(" Holiday \n"))
	require.NoError(t, err)
	assert.Equal(t, types.Command{Action: types.ActionSelectOption, Option: "Holiday"}, cmd)

	for _, bad := range []string{"", "   ", `{"option":"x"}`, `{"action":`} {
		_, err := decodeCommand([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidCommand, "payload %q", bad)
	}
}

func TestBridgePublishState(t *testing.T) {
	tr := &fakeTransport{}
	b := NewBridge(tr, &fakeCommander{}, "onecta", 1, discardLogger())

	state := "auto"
	b.PublishState(types.EntityState{UniqueID: "dev_cc_demandControl", Platform: "select", State: &state, Available: true})
	b.Clear("dev_cc_gone")

	require.Len(t, tr.published, 2)
	first := tr.published[0]
	assert.Equal(t, "onecta/dev_cc_demandControl/state", first.topic)
	assert.True(t, first.retained)
	assert.Equal(t, byte(1), first.qos)

	var decoded types.EntityState
	require.NoError(t, json.Unmarshal(first.payload, &decoded))
	assert.Equal(t, "select", decoded.Platform)
	require.NotNil(t, decoded.State)
	assert.Equal(t, "auto", *decoded.State)

	assert.Equal(t, "onecta/dev_cc_gone/state", tr.published[1].topic)
	assert.Empty(t, tr.published[1].payload)
	assert.True(t, tr.published[1].retained)
}

func TestBridgePublishErrorIsLogged(t *testing.T) {
	tr := &fakeTransport{publishErr: ErrNotConnected}
	b := NewBridge(tr, &fakeCommander{}, "onecta", 1, discardLogger())

	assert.NotPanics(t, func() {
		b.PublishState(types.EntityState{UniqueID: "x"})
		b.Clear("x")
	})
	assert.Empty(t, tr.published)
}

func TestBridgeRoutesCommands(t *testing.T) {
	tr := &fakeTransport{}
	cmds := &fakeCommander{}
	b := NewBridge(tr, cmds, "onecta", 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool { return tr.handler("onecta/+/set") != nil }, time.Second, 5*time.Millisecond)
	handler := tr.handler("onecta/+/set")

	require.NoError(t, handler("onecta/dev_cc_demandControl/set", []byte(`{"action":"select_option","option":"3"}`)))
	require.NoError(t, handler("onecta/dev_cc_schedule/set", []byte("none")))
	assert.ErrorIs(t, handler("onecta/dev/state", []byte("x")), ErrInvalidCommand)

	require.Len(t, cmds.calls, 2)
	assert.Equal(t, "dev_cc_demandControl", cmds.calls[0].id)
	assert.Equal(t, types.Command{Action: types.ActionSelectOption, Option: "3"}, cmds.calls[0].cmd)
	assert.Equal(t, "dev_cc_schedule", cmds.calls[1].id)
	assert.Equal(t, "none", cmds.calls[1].cmd.Option)

	cancel()
	require.NoError(t, <-done)

	// Commands arriving after shutdown carry a cancelled context.
	assert.ErrorIs(t, handler("onecta/dev_cc_demandControl/set", []byte("auto")), context.Canceled)
}

func TestBridgeCommandError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBridge(&fakeTransport{}, &fakeCommander{err: boom}, "onecta", 0, discardLogger())

	err := b.HandleCommand("onecta/x/set", []byte(`{"action":"turn_on"}`))
	assert.ErrorIs(t, err, boom)
}

func TestBuildClientOptions(t *testing.T) {
	cfg := config.MQTTConfig{
		Broker:      "tcp://broker:1883",
		Username:    "user",
		Password:    "pass",
		ClientID:    "onecta-bridge",
		TopicPrefix: "onecta",
		QoS:         1,
	}
	id := clientID(cfg.ClientID)
	assert.True(t, strings.HasPrefix(id, "onecta-bridge-"))
	assert.Len(t, id, len("onecta-bridge-")+8)
	assert.NotEqual(t, id, clientID(cfg.ClientID))

	opts := buildClientOptions(cfg, id)
	configureLWT(opts, Topics{Prefix: cfg.TopicPrefix}, id)

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:1883", opts.Servers[0].Host)
	assert.Equal(t, id, opts.ClientID)
	assert.Equal(t, "user", opts.Username)
	assert.Equal(t, "pass", opts.Password)
	assert.True(t, opts.CleanSession)
	assert.True(t, opts.AutoReconnect)
	assert.True(t, opts.WillEnabled)
	assert.True(t, opts.WillRetained)
	assert.Equal(t, "onecta/status", opts.WillTopic)

	var will map[string]string
	require.NoError(t, json.Unmarshal(opts.WillPayload, &will))
	assert.Equal(t, "offline", will["status"])
	assert.Equal(t, "unexpected_disconnect", will["reason"])
	assert.Equal(t, id, will["client_id"])
}

func TestBuildClientOptionsAnonymous(t *testing.T) {
	opts := buildClientOptions(config.MQTTConfig{Broker: "tcp://localhost:1883"}, "id")
	assert.Empty(t, opts.Username)
}

func TestStatusPayload(t *testing.T) {
	var online map[string]string
	require.NoError(t, json.Unmarshal([]byte(statusPayload("online", "id", "")), &online))
	assert.Equal(t, "online", online["status"])
	_, hasReason := online["reason"]
	assert.False(t, hasReason)
	assert.NotEmpty(t, online["timestamp"])
}

func TestClientRejectsWhenDisconnected(t *testing.T) {
	c := newClient(config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "test", TopicPrefix: "onecta", QoS: 1}, discardLogger())

	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Publish("", nil, 0, false), ErrInvalidTopic)
	assert.ErrorIs(t, c.Publish("t", nil, 3, false), ErrInvalidQoS)
	assert.ErrorIs(t, c.Publish("t", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed)
	assert.ErrorIs(t, c.Publish("t", []byte("x"), 0, false), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe("", 0, func(string, []byte) error { return nil }), ErrInvalidTopic)
	assert.ErrorIs(t, c.Subscribe("t", 0, nil), ErrSubscribeFailed)
	assert.ErrorIs(t, c.Subscribe("t", 0, func(string, []byte) error { return nil }), ErrNotConnected)
	assert.NoError(t, c.Close())
}
