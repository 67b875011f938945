package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `server:
  addr: ":9000"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  qos:
    events: 1
telemetry:
  capacity: 500
thresholds:
  speedLimit: 100
allocation:
  radius_km: 15
  pricing:
    base_fare: 20
metrics:
  sinks:
    - type: "nop"
decision_log:
  backend: "sqlite"
notify:
  websocket:
    enabled: true
  redis:
    addr: "localhost:6379"
log_level: "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.addr", cfg.Server.Addr, ":9000"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"mqtt.qos.events", cfg.MQTT.QoS["events"], byte(1)},
		{"mqtt.telemetry_topic", cfg.MQTT.TelemetryTopic, "fleet/vehicle/+/telemetry"},
		{"telemetry.capacity", cfg.Telemetry.Capacity, 500},
		{"thresholds.speedLimit", cfg.Thresholds.SpeedLimit, 100.0},
		{"thresholds.driverHoursLimit", cfg.Thresholds.DriverHoursLimit, 10.0},
		{"allocation.radius_km", cfg.Allocation.RadiusKm, 15.0},
		{"allocation.max_shift_hours", cfg.Allocation.MaxShiftHours, 8.0},
		{"allocation.pricing.base_fare", cfg.Allocation.Pricing.BaseFare, 20.0},
		{"allocation.pricing.cost_per_km", cfg.Allocation.Pricing.CostPerKm, 2.5},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"decision_log.path", cfg.DecisionLog.Path, "decisions.db"},
		{"notify.websocket.path", cfg.Notify.Websocket.Path, "/ws"},
		{"notify.redis.prefix", cfg.Notify.Redis.Prefix, "fleetops"},
		{"log_level", cfg.LogLevel, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"server":{"addr":":8081"}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("K_SERVER__ADDR", ":7070")
	t.Setenv("K_TELEMETRY__CAPACITY", "42")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env override not applied: %s", cfg.Server.Addr)
	}
	if cfg.Telemetry.Capacity != 42 {
		t.Fatalf("env override not applied: %d", cfg.Telemetry.Capacity)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Telemetry.Capacity != 10000 || cfg.Allocation.RadiusKm != 20 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MQTT.Enabled() || cfg.Notify.Redis.Enabled() {
		t.Fatalf("transports must be disabled by default")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"format.toml": `x = 1`,
		"bad.yaml":    "decision_log:\n  backend: postgres\n",
		"neg.yaml":    "thresholds:\n  speedLimit: -5\n",
		"ws.yaml":     "notify:\n  websocket:\n    path: ws\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
