package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "PREFLIGHT_CONFIG"

// DefaultPath is used when EnvConfigPath is unset.
const DefaultPath = "configs/config.yaml"

// minJWTSecretLength is the shortest accepted signing secret.
const minJWTSecretLength = 32

// Config is the root configuration structure for preflight.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Host      HostConfig      `yaml:"host"`
	Sequencer SequencerConfig `yaml:"sequencer"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// InstanceConfig identifies this installation in logs, MQTT and metrics.
type InstanceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// HostConfig selects the simulator script the executor drives.
type HostConfig struct {
	// Script is a Lua file exposing the simulator's scripting surface. When
	// empty the built-in bench cockpit is used.
	Script string `yaml:"script"`

	// FrameRate is how many simulated frames run per second.
	FrameRate int `yaml:"frame_rate"`

	// Bench wires profile switch commands to their readback arguments in the
	// bench cockpit, so clicks move the switches they name.
	Bench bool `yaml:"bench"`
}

// SequencerConfig controls where procedures come from and how they run.
type SequencerConfig struct {
	// ProfilesDir holds YAML profiles that add to or replace the built-in ones.
	ProfilesDir string `yaml:"profiles_dir"`

	// WatchProfiles reloads ProfilesDir when it changes.
	WatchProfiles bool `yaml:"watch_profiles"`

	// StallWarningSeconds logs a warning when a step waits this long in
	// simulation time. Zero disables it.
	StallWarningSeconds float64 `yaml:"stall_warning_seconds"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig controls bearer-token auth on the API's control endpoints.
type JWTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

// Path returns the config file path from the environment or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern PREFLIGHT_SECTION_KEY, for example
// PREFLIGHT_DATABASE_PATH or PREFLIGHT_API_PORT.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Instance: InstanceConfig{
			ID:   "preflight-01",
			Name: "preflight",
		},
		Host: HostConfig{
			FrameRate: 60,
			Bench:     true,
		},
		Sequencer: SequencerConfig{
			ProfilesDir:   "./profiles",
			WatchProfiles: true,
		},
		Database: DatabaseConfig{
			Path:        "./data/preflight.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "preflight-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8480,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer: "preflight",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"PREFLIGHT_HOST_SCRIPT":            &cfg.Host.Script,
		"PREFLIGHT_SEQUENCER_PROFILES_DIR": &cfg.Sequencer.ProfilesDir,
		"PREFLIGHT_DATABASE_PATH":          &cfg.Database.Path,
		"PREFLIGHT_MQTT_HOST":              &cfg.MQTT.Broker.Host,
		"PREFLIGHT_MQTT_USERNAME":          &cfg.MQTT.Auth.Username,
		"PREFLIGHT_MQTT_PASSWORD":          &cfg.MQTT.Auth.Password,
		"PREFLIGHT_API_HOST":               &cfg.API.Host,
		"PREFLIGHT_INFLUXDB_URL":           &cfg.InfluxDB.URL,
		"PREFLIGHT_INFLUXDB_TOKEN":         &cfg.InfluxDB.Token,
		"PREFLIGHT_LOGGING_LEVEL":          &cfg.Logging.Level,
		"PREFLIGHT_JWT_SECRET":             &cfg.Security.JWT.Secret,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PREFLIGHT_API_PORT":        &cfg.API.Port,
		"PREFLIGHT_MQTT_PORT":       &cfg.MQTT.Broker.Port,
		"PREFLIGHT_HOST_FRAME_RATE": &cfg.Host.FrameRate,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"PREFLIGHT_MQTT_ENABLED":     &cfg.MQTT.Enabled,
		"PREFLIGHT_INFLUXDB_ENABLED": &cfg.InfluxDB.Enabled,
		"PREFLIGHT_API_ENABLED":      &cfg.API.Enabled,
		"PREFLIGHT_HOST_BENCH":       &cfg.Host.Bench,
	}
	for key, dst := range bools {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Instance.ID == "" {
		errs = append(errs, "instance.id is required")
	}
	if c.Host.FrameRate < 1 || c.Host.FrameRate > 1000 {
		errs = append(errs, "host.frame_rate must be between 1 and 1000")
	}
	if c.Sequencer.StallWarningSeconds < 0 {
		errs = append(errs, "sequencer.stall_warning_seconds must not be negative")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Auth is optional; once enabled the secret must be strong enough that
	// tokens cannot be forged.
	if c.Security.JWT.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required when jwt is enabled (set PREFLIGHT_JWT_SECRET)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StallWarning returns the stall warning threshold in simulation seconds.
func (c *Config) StallWarning() float64 {
	return c.Sequencer.StallWarningSeconds
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
