package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"onecta_bridge/internal/config"
)

const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive         = 60 * time.Second
	defaultReconnectInterval = 2 * time.Second
	defaultMaxReconnect      = time.Minute

	maxQoS = 2

	// Maximum payload size for MQTT messages (1MB).
	maxPayloadSize = 1 << 20
)

// clientID appends a random suffix so several bridges can share a broker.
func clientID(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// buildClientOptions creates paho MQTT options from the bridge config.
func buildClientOptions(cfg config.MQTTConfig, id string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(id)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(defaultReconnectInterval)
	opts.SetMaxReconnectInterval(defaultMaxReconnect)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}

// configureLWT makes the broker publish a retained offline status if the
// bridge disappears without a graceful Close.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, id string) {
	opts.SetWill(topics.Status(), statusPayload("offline", id, "unexpected_disconnect"), 1, true)
}

func statusPayload(status, id, reason string) string {
	if reason == "" {
		return fmt.Sprintf(`{"status":"%s","client_id":"%s","timestamp":"%s"}`,
			status, id, time.Now().UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf(`{"status":"%s","client_id":"%s","reason":"%s","timestamp":"%s"}`,
		status, id, reason, time.Now().UTC().Format(time.RFC3339))
}
