package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
instance:
  id: "sim-rig-2"
host:
  script: "/opt/dcs/export.lua"
  frame_rate: 30
  bench: false
sequencer:
  profiles_dir: "/etc/preflight/profiles"
  watch_profiles: false
  stall_warning_seconds: 90
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "rig-2"
  qos: 1
api:
  port: 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Instance.ID != "sim-rig-2" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "sim-rig-2")
	}
	if cfg.Host.Script != "/opt/dcs/export.lua" || cfg.Host.FrameRate != 30 || cfg.Host.Bench {
		t.Errorf("Host = %+v", cfg.Host)
	}
	if cfg.Sequencer.ProfilesDir != "/etc/preflight/profiles" || cfg.Sequencer.WatchProfiles {
		t.Errorf("Sequencer = %+v", cfg.Sequencer)
	}
	if cfg.StallWarning() != 90 {
		t.Errorf("StallWarning() = %v, want 90", cfg.StallWarning())
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	// Unset sections keep their defaults.
	if cfg.WebSocket.PingInterval != 30 {
		t.Errorf("WebSocket.PingInterval = %d, want default 30", cfg.WebSocket.PingInterval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
instance:
  id: ""
`)

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "instance.id is required") {
		t.Errorf("Load() error = %v, want instance.id failure", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	strongSecret := strings.Repeat("s", minJWTSecretLength)

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "missing instance id",
			modify:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id",
		},
		{
			name:    "zero frame rate",
			modify:  func(c *Config) { c.Host.FrameRate = 0 },
			wantErr: "host.frame_rate",
		},
		{
			name:    "negative stall warning",
			modify:  func(c *Config) { c.Sequencer.StallWarningSeconds = -1 },
			wantErr: "stall_warning_seconds",
		},
		{
			name:    "missing database path",
			modify:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid api port",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name: "api port ignored when disabled",
			modify: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name:    "influxdb without url",
			modify:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "jwt enabled without secret",
			modify:  func(c *Config) { c.Security.JWT.Enabled = true },
			wantErr: "security.jwt.secret is required",
		},
		{
			name: "jwt secret too short",
			modify: func(c *Config) {
				c.Security.JWT.Enabled = true
				c.Security.JWT.Secret = "short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "jwt with strong secret",
			modify: func(c *Config) {
				c.Security.JWT.Enabled = true
				c.Security.JWT.Secret = strongSecret
			},
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := Default()
	cfg.API.Timeouts = APITimeoutConfig{Read: 10, Write: 20, Idle: 30}

	if got := cfg.GetReadTimeout(); got != 10*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 10s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 20*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 20s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 30*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 30s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("PREFLIGHT_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PREFLIGHT_HOST_SCRIPT", "/opt/export.lua")
	t.Setenv("PREFLIGHT_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PREFLIGHT_MQTT_PASSWORD", "testpass")
	t.Setenv("PREFLIGHT_MQTT_ENABLED", "true")
	t.Setenv("PREFLIGHT_API_PORT", "9100")
	t.Setenv("PREFLIGHT_JWT_SECRET", "jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Host.Script != "/opt/export.lua" {
		t.Errorf("Host.Script = %q", cfg.Host.Script)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" || cfg.MQTT.Auth.Password != "testpass" || !cfg.MQTT.Enabled {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("API.Port = %d, want 9100", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("JWT.Secret = %q", cfg.Security.JWT.Secret)
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PREFLIGHT_API_PORT", "eighty"},
		{"PREFLIGHT_MQTT_ENABLED", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := applyEnvOverrides(Default())
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("applyEnvOverrides() error = %v, want mention of %s", err, tt.key)
			}
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := Path(); got != DefaultPath {
		t.Errorf("Path() = %q, want %q", got, DefaultPath)
	}

	t.Setenv(EnvConfigPath, "/etc/preflight.yaml")
	if got := Path(); got != "/etc/preflight.yaml" {
		t.Errorf("Path() = %q, want /etc/preflight.yaml", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Host.FrameRate != 60 || !cfg.Host.Bench {
		t.Errorf("Host = %+v, want 60fps bench", cfg.Host)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Security.JWT.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
	if cfg.Database.Path != "./data/preflight.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want text", cfg.Logging.Format)
	}
}
