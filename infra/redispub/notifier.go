// Package redispub fans fleet events out over Redis pub/sub and keeps the
// latest telemetry per vehicle under a short-lived key.
package redispub

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/notify"
)

// Config defines the Redis connection and key layout.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces channels and keys.
	Prefix string `json:"prefix"`
	// StateTTLSeconds bounds how long the latest telemetry snapshot lives.
	StateTTLSeconds int `json:"state_ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = "fleetops"
	}
	if c.StateTTLSeconds <= 0 {
		c.StateTTLSeconds = 30
	}
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool { return c.Addr != "" }

type client interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Notifier publishes events on <prefix>:events:<name>. It implements
// notify.Notifier.
type Notifier struct {
	cli    client
	closer func() error
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	rc := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	n := newNotifier(rc, cfg)
	n.closer = rc.Close
	return n, nil
}

func newNotifier(c client, cfg Config) *Notifier {
	cfg.SetDefaults()
	return &Notifier{
		cli:    c,
		prefix: cfg.Prefix,
		ttl:    time.Duration(cfg.StateTTLSeconds) * time.Second,
		now:    time.Now,
	}
}

// Channel returns the pub/sub channel for an event name.
func (n *Notifier) Channel(name string) string { return n.prefix + ":events:" + name }

// StateKey returns the key holding the latest telemetry of a vehicle.
func (n *Notifier) StateKey(vehicleID string) string {
	return n.prefix + ":vehicle:" + vehicleID + ":telemetry"
}

func (n *Notifier) Notify(ctx context.Context, e events.Event) error {
	msg, err := notify.Encode(e, n.now())
	if err != nil {
		return err
	}
	if t, ok := e.(events.TelemetryUpdated); ok && t.Sample.VehicleID != "" {
		if err := n.cli.Set(ctx, n.StateKey(t.Sample.VehicleID), msg, n.ttl).Err(); err != nil {
			return fmt.Errorf("cache telemetry: %w", err)
		}
	}
	if err := n.cli.Publish(ctx, n.Channel(e.Name()), msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Name(), err)
	}
	return nil
}

// Close releases the connection.
func (n *Notifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}
