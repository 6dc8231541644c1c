package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file providing base values.
const ConfigFileEnv = "SIMULATOR_CONFIG_FILE"

// Config holds all simulator configuration
type Config struct {
	// Server configuration for the liveness endpoint
	Server ServerConfig `yaml:"server" json:"server"`

	// Device the readings are attributed to
	Device DeviceConfig `yaml:"device" json:"device"`

	// Monitoring loop configuration
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Optional reading mirrors
	MQTT  MQTTConfig  `yaml:"mqtt" json:"mqtt"`
	Kafka KafkaConfig `yaml:"kafka" json:"kafka"`
}

// ServerConfig holds liveness server configuration
type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Port            string        `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DeviceConfig identifies the simulated probe
type DeviceConfig struct {
	APIToken string `yaml:"api_token" json:"-"`
	DeviceID string `yaml:"device_id" json:"device_id"`
}

// MonitorConfig holds the reading cadence
type MonitorConfig struct {
	IntervalSeconds int           `yaml:"interval_seconds" json:"interval_seconds"`
	StartupDelay    time.Duration `yaml:"startup_delay" json:"startup_delay"`
}

// Interval returns the pause between two checks.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `yaml:"level" json:"level"`
	Format       string `yaml:"format" json:"format"` // json or text
	Output       string `yaml:"output" json:"output"` // stdout or stderr
	EnableCaller bool   `yaml:"enable_caller" json:"enable_caller"`
}

// MQTTConfig holds the MQTT mirror configuration
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	BrokerHost  string        `yaml:"broker_host" json:"broker_host"`
	BrokerPort  int           `yaml:"broker_port" json:"broker_port"`
	BrokerUser  string        `yaml:"broker_user" json:"broker_user"`
	BrokerPass  string        `yaml:"broker_pass" json:"-"`
	UseTLS      bool          `yaml:"use_tls" json:"use_tls"`
	CACertPath  string        `yaml:"ca_cert_path" json:"ca_cert_path"`
	TopicPrefix string        `yaml:"topic_prefix" json:"topic_prefix"`
	ClientID    string        `yaml:"client_id" json:"client_id"`
	QoS         int           `yaml:"qos" json:"qos"`
	KeepAlive   time.Duration `yaml:"keep_alive" json:"keep_alive"`
	PingTimeout time.Duration `yaml:"ping_timeout" json:"ping_timeout"`
}

// KafkaConfig holds the Kafka mirror configuration
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Brokers     []string `yaml:"brokers" json:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix" json:"topic_prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled:         true,
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Device: DeviceConfig{
			APIToken: "zcl_auth_example_token",
			DeviceID: "SN-A7B4-C2D9",
		},
		Monitor: MonitorConfig{
			IntervalSeconds: 20,
			StartupDelay:    2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			BrokerPort:  1883,
			TopicPrefix: "sensors",
			KeepAlive:   30 * time.Second,
			PingTimeout: 10 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{"kafka:9092"},
			TopicPrefix: "soil.readings",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by SIMULATOR_CONFIG_FILE, and finally the process environment.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file only.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	env := &envReader{}

	c.Server.Enabled = env.getBool("LIVENESS_ENABLED", c.Server.Enabled)
	c.Server.Port = env.getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = env.getDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = env.getDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = env.getDuration("IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = env.getDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Device.APIToken = env.getEnv("ZENTRA_API_TOKEN", c.Device.APIToken)
	c.Device.DeviceID = env.getEnv("ZENTRA_DEVICE_ID", c.Device.DeviceID)

	c.Monitor.IntervalSeconds = env.getInt("CHECK_INTERVAL_SECONDS", c.Monitor.IntervalSeconds)
	c.Monitor.StartupDelay = env.getDuration("STARTUP_DELAY", c.Monitor.StartupDelay)

	c.Logging.Level = env.getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = env.getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = env.getEnv("LOG_OUTPUT", c.Logging.Output)
	c.Logging.EnableCaller = env.getBool("LOG_ENABLE_CALLER", c.Logging.EnableCaller)

	c.MQTT.Enabled = env.getBool("MQTT_ENABLED", c.MQTT.Enabled)
	c.MQTT.BrokerHost = env.getEnv("BROKER_HOST", c.MQTT.BrokerHost)
	c.MQTT.BrokerPort = env.getInt("BROKER_PORT", c.MQTT.BrokerPort)
	c.MQTT.BrokerUser = env.getEnv("BROKER_USER", c.MQTT.BrokerUser)
	c.MQTT.BrokerPass = env.getEnv("BROKER_PASS", c.MQTT.BrokerPass)
	c.MQTT.UseTLS = env.getBool("BROKER_TLS", c.MQTT.UseTLS)
	c.MQTT.CACertPath = env.getEnv("BROKER_CA_FILE", c.MQTT.CACertPath)
	c.MQTT.TopicPrefix = env.getEnv("MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)
	c.MQTT.ClientID = env.getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.QoS = env.getInt("MQTT_QOS", c.MQTT.QoS)
	c.MQTT.KeepAlive = env.getDuration("MQTT_KEEP_ALIVE", c.MQTT.KeepAlive)
	c.MQTT.PingTimeout = env.getDuration("MQTT_PING_TIMEOUT", c.MQTT.PingTimeout)

	c.Kafka.Enabled = env.getBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = env.getStringSlice("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicPrefix = env.getEnv("KAFKA_TOPIC_PREFIX", c.Kafka.TopicPrefix)

	return errors.Join(env.errs...)
}

// maxIntervalSeconds is the largest interval that still fits a time.Duration.
const maxIntervalSeconds = math.MaxInt64 / int64(time.Second)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Monitor.IntervalSeconds <= 0 {
		return fmt.Errorf("check interval must be a positive number of seconds, got %d", c.Monitor.IntervalSeconds)
	}
	if int64(c.Monitor.IntervalSeconds) > maxIntervalSeconds {
		return fmt.Errorf("check interval of %d seconds is too large, maximum is %d", c.Monitor.IntervalSeconds, maxIntervalSeconds)
	}
	if c.Monitor.StartupDelay < 0 {
		return fmt.Errorf("startup delay must not be negative")
	}
	if c.Server.Enabled {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", c.Server.Port)
		}
	}
	if c.MQTT.Enabled {
		if c.MQTT.BrokerHost == "" {
			return fmt.Errorf("BROKER_HOST is required when the MQTT mirror is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("MQTT_QOS must be 0, 1 or 2")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when the Kafka mirror is enabled")
	}
	return nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

type envReader struct {
	errs []error
}

func (r *envReader) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return intValue
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	}
	r.errs = append(r.errs, fmt.Errorf("invalid %s: %q (expected true/false or 1/0)", key, value))
	return defaultValue
}

func (r *envReader) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid %s: %w", key, err))
		return defaultValue
	}
	return duration
}

func (r *envReader) getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
