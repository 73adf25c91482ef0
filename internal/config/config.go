// Package config handles configuration loading from an optional YAML file, a .env file,
// environment variables and Kubernetes secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"onecta_bridge/internal/api"
	"onecta_bridge/internal/auth"
)

// Config holds all configuration for the Onecta bridge.
type Config struct {
	// OAuth client and refresh token for the Onecta cloud
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`

	// TokenFile, when set, receives every rotated refresh token and is read back on start.
	TokenFile string `yaml:"token_file"`

	APIURL   string `yaml:"api_url"`
	TokenURL string `yaml:"token_url"`

	// Server configuration
	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Polling
	PollInterval       time.Duration `yaml:"poll_interval"`
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval"`

	// Logging configuration
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	MQTT MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig configures the optional MQTT bridge. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
}

// Enabled reports whether a broker is configured.
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Default returns the configuration used before any source is applied.
func Default() *Config {
	return &Config{
		APIURL:             api.DefaultBaseURL,
		TokenURL:           auth.DefaultTokenURL,
		ListenAddr:         ":9818",
		RequestTimeout:     30 * time.Second,
		PollInterval:       time.Minute,
		MinRefreshInterval: 10 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "text",
		MQTT: MQTTConfig{
			ClientID:    "onecta-bridge",
			TopicPrefix: "onecta",
			QoS:         1,
		},
	}
}

// LoadConfig loads configuration in order: defaults, YAML file (ONECTA_CONFIG),
// .env file, environment variables, Kubernetes secrets and finally the
// persisted refresh token file.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ONECTA_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	envFile := os.Getenv("ONECTA_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	secrets, err := tryLoadFromSecrets()
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	if secrets.clientID != "" {
		cfg.ClientID = secrets.clientID
	}
	if secrets.clientSecret != "" {
		cfg.ClientSecret = secrets.clientSecret
	}
	if secrets.refreshToken != "" {
		cfg.RefreshToken = secrets.refreshToken
	}

	if cfg.TokenFile != "" {
		token, err := ReadRefreshToken(cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		if token != "" {
			cfg.RefreshToken = token
		}
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads a .env file if it exists. Variables already present in the
// environment win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.ClientID, "ONECTA_CLIENT_ID")
	setString(&c.ClientSecret, "ONECTA_CLIENT_SECRET")
	setString(&c.RefreshToken, "ONECTA_REFRESH_TOKEN")
	setString(&c.TokenFile, "ONECTA_TOKEN_FILE")
	setString(&c.APIURL, "ONECTA_API_URL")
	setString(&c.TokenURL, "ONECTA_TOKEN_URL")
	setString(&c.ListenAddr, "ONECTA_ADDR")
	setString(&c.LogLevel, "ONECTA_LOG_LEVEL")
	setString(&c.LogFormat, "ONECTA_LOG_FORMAT")

	if timeout := os.Getenv("ONECTA_REQUEST_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			c.RequestTimeout = time.Duration(seconds) * time.Second
		}
	}
	if err := setDuration(&c.PollInterval, "ONECTA_POLL_INTERVAL"); err != nil {
		return err
	}
	if err := setDuration(&c.MinRefreshInterval, "ONECTA_MIN_REFRESH_INTERVAL"); err != nil {
		return err
	}

	setString(&c.MQTT.Broker, "ONECTA_MQTT_BROKER")
	setString(&c.MQTT.Username, "ONECTA_MQTT_USERNAME")
	setString(&c.MQTT.Password, "ONECTA_MQTT_PASSWORD")
	setString(&c.MQTT.ClientID, "ONECTA_MQTT_CLIENT_ID")
	setString(&c.MQTT.TopicPrefix, "ONECTA_MQTT_TOPIC_PREFIX")
	if qos := os.Getenv("ONECTA_MQTT_QOS"); qos != "" {
		n, err := strconv.Atoi(qos)
		if err != nil {
			return fmt.Errorf("ONECTA_MQTT_QOS: %w", err)
		}
		c.MQTT.QoS = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("client id is required (set ONECTA_CLIENT_ID or mount K8s secret)")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required (set ONECTA_CLIENT_SECRET or mount K8s secret)")
	}
	if c.RefreshToken == "" {
		return errors.New("refresh token is required (set ONECTA_REFRESH_TOKEN or mount K8s secret)")
	}
	if c.APIURL == "" || c.TokenURL == "" {
		return errors.New("api and token urls must not be empty")
	}
	if c.RequestTimeout < 5*time.Second {
		return errors.New("request timeout must be at least 5 seconds")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.MinRefreshInterval < 0 {
		return errors.New("minimum refresh interval must not be negative")
	}
	if c.MQTT.Enabled() {
		if c.MQTT.TopicPrefix == "" {
			return errors.New("mqtt topic prefix is required when a broker is set")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return errors.New("mqtt qos must be 0, 1 or 2")
		}
	}
	return nil
}
