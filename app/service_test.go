package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/ledger"
	"github.com/kilianp07/fleetops/core/model"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Notify.Websocket.Enabled = true
	svc, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestServicePushesAlertsToWebsocket(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	ts := httptest.NewServer(svc.Handler())
	defer ts.Close()

	dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dcancel()
	conn, _, err := websocket.Dial(dctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?vehicle_id=V1", nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()
	require.Eventually(t, func() bool { return svc.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	names := make(chan string, 64)
	go func() {
		defer close(names)
		for {
			_, b, err := conn.Read(dctx)
			if err != nil {
				return
			}
			var env struct {
				Event string `json:"event"`
				Key   string `json:"key"`
			}
			if json.Unmarshal(b, &env) == nil && env.Key == "V1" {
				names <- env.Event
			}
		}
	}()

	seen := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for !seen[events.NameAlertNew] || !seen[events.NameTelemetry] {
		resp, err := http.Post(ts.URL+"/api/telemetry", "application/json",
			strings.NewReader(`{"vehicleId":"V1","speed":150,"lat":24.7,"lng":46.6}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		select {
		case n, ok := <-names:
			require.True(t, ok, "websocket closed")
			seen[n] = true
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("events not pushed, seen %v", seen)
		}
	}

	alerts := svc.Ledger.List(ledger.Filter{VehicleID: "V1"})
	require.NotEmpty(t, alerts)
	require.Equal(t, model.KindSpeeding, alerts[0].Kind)

	cancel()
	require.NoError(t, <-done)
}

func TestServiceTelemetryUpdatesFleet(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Fleet.UpsertVehicle(model.VehicleState{ID: "V2", FuelLevel: model.Float(80)})
	require.NoError(t, err)
	require.NoError(t, svc.Store.Record(model.TelemetrySample{
		VehicleID: "V2",
		Position:  model.Position{Lat: 24.71, Lon: 46.67},
		FuelLevel: model.Float(15),
	}))
	v, err := svc.Fleet.Vehicle("V2")
	require.NoError(t, err)
	require.Equal(t, 24.71, v.Position.Lat)
	require.Equal(t, 15.0, *v.FuelLevel)

	// Low fuel now blocks allocation and raised an alert.
	d, err := svc.Orchestrator.AssignNext(context.Background(), "V2")
	require.NoError(t, err)
	require.Equal(t, "ineligible", string(d.Status))
	require.Len(t, svc.Ledger.List(ledger.Filter{VehicleID: "V2"}), 1)
}

func TestServiceRedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Notify.Redis.Addr = "127.0.0.1:1"
	cfg.Notify.Redis.SetDefaults()
	_, err := New(cfg)
	require.Error(t, err)
}
