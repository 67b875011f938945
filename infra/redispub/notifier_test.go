package redispub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/notify"
)

var _ notify.Notifier = (*Notifier)(nil)

type fakeClient struct {
	published map[string][]string
	set       map[string]time.Duration
	err       error
}

func newFake() *fakeClient {
	return &fakeClient{published: map[string][]string{}, set: map[string]time.Duration{}}
}

func (f *fakeClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	cmd.SetVal(1)
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	f.set[key] = ttl
	cmd.SetVal("OK")
	return cmd
}

func TestNotifyPublishesOnEventChannel(t *testing.T) {
	f := newFake()
	n := newNotifier(f, Config{})
	err := n.Notify(context.Background(), events.AlertUpdated{Alert: model.Alert{ID: "a1", VehicleID: "V1", Status: model.AlertResolved}})
	require.NoError(t, err)
	require.Len(t, f.published["fleetops:events:alert_updated"], 1)
	require.Contains(t, f.published["fleetops:events:alert_updated"][0], `"resolved"`)
	require.Empty(t, f.set)
}

func TestNotifyCachesTelemetry(t *testing.T) {
	f := newFake()
	n := newNotifier(f, Config{Prefix: "fo", StateTTLSeconds: 10})
	err := n.Notify(context.Background(), events.TelemetryUpdated{Sample: model.TelemetrySample{VehicleID: "V3", Speed: 50}})
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, f.set["fo:vehicle:V3:telemetry"])
	require.Len(t, f.published["fo:events:telemetry"], 1)
}

func TestNotifyPublishError(t *testing.T) {
	f := newFake()
	f.err = errors.New("connection refused")
	n := newNotifier(f, Config{})
	err := n.Notify(context.Background(), events.AssignmentDecided{VehicleID: "V1"})
	require.ErrorIs(t, err, f.err)
	require.NoError(t, n.Close())
}
