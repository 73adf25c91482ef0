package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"onecta_bridge/internal/types"
)

const commandTimeout = 30 * time.Second

// Transport is the subset of Client the bridge needs.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Commander executes entity commands.
type Commander interface {
	Command(ctx context.Context, uniqueID string, cmd types.Command) error
}

// Bridge mirrors entity state to retained state topics and feeds command
// topics back into the Commander.
type Bridge struct {
	transport Transport
	commands  Commander
	topics    Topics
	qos       byte
	logger    *slog.Logger

	mu  sync.RWMutex
	ctx context.Context
}

// NewBridge creates a bridge publishing under prefix.
func NewBridge(t Transport, commands Commander, prefix string, qos byte, logger *slog.Logger) *Bridge {
	return &Bridge{
		transport: t,
		commands:  commands,
		topics:    Topics{Prefix: prefix},
		qos:       qos,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Run subscribes to the command topics and blocks until ctx is done. Commands
// received afterwards are cancelled with ctx.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.transport.Subscribe(b.topics.AllCommands(), b.qos, b.HandleCommand); err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}
	b.logger.Info("MQTT bridge started", "commands", b.topics.AllCommands())

	<-ctx.Done()
	return nil
}

// PublishState publishes an entity state as retained JSON. It satisfies entity.StateListener.
func (b *Bridge) PublishState(state types.EntityState) {
	payload, err := json.Marshal(state)
	if err != nil {
		b.logger.Error("Failed to encode entity state", "unique_id", state.UniqueID, "error", err)
		return
	}
	if err := b.transport.Publish(b.topics.State(state.UniqueID), payload, b.qos, true); err != nil {
		b.logger.Warn("Failed to publish entity state", "unique_id", state.UniqueID, "error", err)
	}
}

// Clear removes the retained state of an entity. It satisfies entity.RemoveListener.
func (b *Bridge) Clear(uniqueID string) {
	if err := b.transport.Publish(b.topics.State(uniqueID), nil, b.qos, true); err != nil {
		b.logger.Warn("Failed to clear entity state", "unique_id", uniqueID, "error", err)
	}
}

// HandleCommand decodes a command message and routes it to the Commander.
// A payload that is not a JSON object is taken as the option of a select_option.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	id, ok := b.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrInvalidCommand, topic)
	}
	cmd, err := decodeCommand(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	parent := b.ctx
	b.mu.RUnlock()

	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()
	return b.commands.Command(ctx, id, cmd)
}

func decodeCommand(payload []byte) (types.Command, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return types.Command{}, fmt.Errorf("%w: empty payload", ErrInvalidCommand)
	}
	if trimmed[0] != '{' {
		return types.Command{Action: types.ActionSelectOption, Option: string(trimmed)}, nil
	}

	var cmd types.Command
	if err := json.Unmarshal(trimmed, &cmd); err != nil {
		return types.Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.Action == "" {
		return types.Command{}, fmt.Errorf("%w: missing action", ErrInvalidCommand)
	}
	return cmd, nil
}
