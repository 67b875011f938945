package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/kilianp07/fleetops/core/model"
)

func TestThresholdsCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"thresholds"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	var got struct {
		Thresholds model.Thresholds `json:"thresholds"`
		Allocation struct {
			RadiusKm float64 `json:"radius_km"`
		} `json:"allocation"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Thresholds != model.DefaultThresholds() || got.Allocation.RadiusKm != 20 {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestSimulateRejectsUnknownTarget(t *testing.T) {
	rootCmd.SetArgs([]string{"simulate", "--target", "amqp"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}
