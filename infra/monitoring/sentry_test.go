package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/fleetops/config"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
)

type captured struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captured) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	return nil
}

func newTestMonitor(t *testing.T) (*sentryMonitor, *captured) {
	t.Helper()
	c := &captured{}
	client, err := sentry.NewClient(sentry.ClientOptions{SampleRate: 1, BeforeSend: c.beforeSend})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope()), wait: time.Millisecond}, c
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	mon, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := mon.(coremon.NopMonitor); !ok {
		t.Fatalf("expected nop monitor, got %T", mon)
	}
}

func TestCaptureExceptionTags(t *testing.T) {
	mon, c := newTestMonitor(t)
	mon.CaptureException(nil, nil)
	mon.CaptureException(errors.New("publish failed"), map[string]string{"module": "mqtt", "vehicle_id": "V1"})
	if len(c.events) != 1 {
		t.Fatalf("expected one event, got %d", len(c.events))
	}
	ev := c.events[0]
	if ev.Tags["module"] != "mqtt" || ev.Tags["vehicle_id"] != "V1" {
		t.Fatalf("tags missing: %v", ev.Tags)
	}
	if len(ev.Exception) == 0 || ev.Exception[len(ev.Exception)-1].Value != "publish failed" {
		t.Fatalf("exception not recorded: %+v", ev.Exception)
	}
}

func TestCapturePanicTagsDoNotLeak(t *testing.T) {
	mon, c := newTestMonitor(t)
	mon.CapturePanic("worker died", map[string]string{"component": "forwarder"})
	mon.CaptureException(errors.New("later"), nil)
	if len(c.events) != 2 {
		t.Fatalf("expected two events, got %d", len(c.events))
	}
	if c.events[0].Tags["component"] != "forwarder" || c.events[0].Level != sentry.LevelFatal {
		t.Fatalf("unexpected panic event %+v", c.events[0])
	}
	if _, ok := c.events[1].Tags["component"]; ok {
		t.Fatalf("scope tags leaked into later event")
	}
}

func TestFlushWaitDefault(t *testing.T) {
	if got := (config.SentryConfig{}).FlushWait(); got != 2*time.Second {
		t.Fatalf("unexpected default %v", got)
	}
	if got := (config.SentryConfig{FlushTimeout: time.Second}).FlushWait(); got != time.Second {
		t.Fatalf("unexpected wait %v", got)
	}
}
