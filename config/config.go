package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fleetops/core/allocation"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/telemetry"
	"github.com/kilianp07/fleetops/infra/decisionlog"
	"github.com/kilianp07/fleetops/infra/mqtt"
	"github.com/kilianp07/fleetops/infra/redispub"
)

type Config struct {
	Server      ServerConfig       `json:"server"`
	MQTT        mqtt.Config        `json:"mqtt"`
	Telemetry   telemetry.Config   `json:"telemetry"`
	Thresholds  model.Thresholds   `json:"thresholds"`
	Allocation  allocation.Config  `json:"allocation"`
	Metrics     metrics.Config     `json:"metrics"`
	DecisionLog decisionlog.Config `json:"decision_log"`
	Notify      NotifyConfig       `json:"notify"`
	Sentry      SentryConfig       `json:"sentry"`
	LogLevel    string             `json:"log_level"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	// Token protects the decision log endpoint when set.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 15
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 15
	}
}

// WebsocketConfig enables the dashboard push endpoint.
type WebsocketConfig struct {
	Enabled bool     `json:"enabled"`
	Path    string   `json:"path"`
	Origins []string `json:"origins"`
}

// NotifyConfig selects the channels bus events are pushed to. MQTT event
// publishing follows the mqtt section.
type NotifyConfig struct {
	Websocket      WebsocketConfig `json:"websocket"`
	Redis          redispub.Config `json:"redis"`
	TimeoutSeconds int             `json:"timeout_seconds"`
	BusBuffer      int             `json:"bus_buffer"`
}

// SetDefaults applies sane defaults.
func (c *NotifyConfig) SetDefaults() {
	if c.Websocket.Path == "" {
		c.Websocket.Path = "/ws"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
	if c.BusBuffer <= 0 {
		c.BusBuffer = 256
	}
	if c.Redis.Enabled() {
		c.Redis.SetDefaults()
	}
}

// Validate checks mandatory fields.
func (c NotifyConfig) Validate() error {
	if !strings.HasPrefix(c.Websocket.Path, "/") {
		return fmt.Errorf("notify: websocket path must start with /")
	}
	return nil
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Telemetry.SetDefaults()
	c.Thresholds = c.Thresholds.WithDefaults()
	c.Allocation.SetDefaults()
	c.DecisionLog.SetDefaults()
	c.Notify.SetDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}
	if err := c.Allocation.Validate(); err != nil {
		return err
	}
	if err := c.DecisionLog.Validate(); err != nil {
		return err
	}
	return c.Notify.Validate()
}

// Load reads the file at path, applies K_ environment overrides and
// defaults. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides: K_SERVER__ADDR sets server.addr.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
