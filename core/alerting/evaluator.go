package alerting

import (
	"fmt"

	"github.com/kilianp07/fleetops/core/model"
)

// rule inspects a sample against the limits and returns a draft when the
// limit is breached.
type rule func(model.TelemetrySample, model.Thresholds) (model.AlertDraft, bool)

// rules are evaluated in this order, so drafts for one sample always come
// out in the same sequence.
var rules = []rule{
	speedingRule,
	fuelLowRule,
	engineTempRule,
	fatigueRule,
	routeDeviationRule,
}

// Evaluator turns telemetry samples into alert drafts.
type Evaluator struct {
	thresholds *ThresholdStore
}

// NewEvaluator creates an evaluator reading limits from ts.
func NewEvaluator(ts *ThresholdStore) *Evaluator {
	return &Evaluator{thresholds: ts}
}

// Thresholds exposes the backing threshold store.
func (e *Evaluator) Thresholds() *ThresholdStore { return e.thresholds }

// Evaluate returns one draft per breached limit. Missing readings never
// trigger a rule.
func (e *Evaluator) Evaluate(s model.TelemetrySample) []model.AlertDraft {
	return Evaluate(s, e.thresholds.Get())
}

// EvaluateBatch evaluates samples with a single snapshot of the limits.
func (e *Evaluator) EvaluateBatch(samples []model.TelemetrySample) []model.AlertDraft {
	return EvaluateBatch(samples, e.thresholds.Get())
}

// Evaluate checks one sample against th. It has no side effects.
func Evaluate(s model.TelemetrySample, th model.Thresholds) []model.AlertDraft {
	if s.VehicleID == "" {
		return nil
	}
	var out []model.AlertDraft
	for _, r := range rules {
		if d, ok := r(s, th); ok {
			d.Metadata["lat"] = s.Position.Lat
			d.Metadata["lng"] = s.Position.Lon
			out = append(out, d)
		}
	}
	return out
}

// EvaluateBatch concatenates the drafts of every sample in batch order.
func EvaluateBatch(samples []model.TelemetrySample, th model.Thresholds) []model.AlertDraft {
	var out []model.AlertDraft
	for _, s := range samples {
		out = append(out, Evaluate(s, th)...)
	}
	return out
}

func speedingRule(s model.TelemetrySample, th model.Thresholds) (model.AlertDraft, bool) {
	if s.Speed <= th.SpeedLimit {
		return model.AlertDraft{}, false
	}
	return model.AlertDraft{
		Kind:      model.KindSpeeding,
		Severity:  model.SeverityHigh,
		VehicleID: s.VehicleID,
		Title:     "Speed Limit Exceeded",
		Message:   fmt.Sprintf("Vehicle %s exceeded speed limit: %.0f km/h", s.VehicleID, s.Speed),
		Metadata:  map[string]any{"speed": s.Speed, "limit": th.SpeedLimit},
	}, true
}

func fuelLowRule(s model.TelemetrySample, th model.Thresholds) (model.AlertDraft, bool) {
	if s.FuelLevel == nil || *s.FuelLevel >= th.FuelLowThreshold {
		return model.AlertDraft{}, false
	}
	return model.AlertDraft{
		Kind:      model.KindFuelLow,
		Severity:  model.SeverityMedium,
		VehicleID: s.VehicleID,
		Title:     "Low Fuel",
		Message:   fmt.Sprintf("Vehicle %s fuel level at %.0f%%", s.VehicleID, *s.FuelLevel),
		Metadata:  map[string]any{"fuelLevel": *s.FuelLevel, "threshold": th.FuelLowThreshold},
	}, true
}

func engineTempRule(s model.TelemetrySample, th model.Thresholds) (model.AlertDraft, bool) {
	if s.EngineTemp == nil || *s.EngineTemp <= th.EngineTempHigh {
		return model.AlertDraft{}, false
	}
	return model.AlertDraft{
		Kind:      model.KindEngineTemp,
		Severity:  model.SeverityCritical,
		VehicleID: s.VehicleID,
		Title:     "Engine Overheating",
		Message:   fmt.Sprintf("Vehicle %s engine temperature at %.0f°C", s.VehicleID, *s.EngineTemp),
		Metadata:  map[string]any{"engineTemp": *s.EngineTemp, "limit": th.EngineTempHigh},
	}, true
}

func fatigueRule(s model.TelemetrySample, th model.Thresholds) (model.AlertDraft, bool) {
	if s.OnDutyMinutes == nil || *s.OnDutyMinutes <= th.FatigueLimitMinutes() {
		return model.AlertDraft{}, false
	}
	return model.AlertDraft{
		Kind:      model.KindFatigue,
		Severity:  model.SeverityHigh,
		VehicleID: s.VehicleID,
		Title:     "Driver Fatigue Risk",
		Message:   fmt.Sprintf("Driver of vehicle %s on duty for %.1f hours", s.VehicleID, *s.OnDutyMinutes/60),
		Metadata:  map[string]any{"onDutyMinutes": *s.OnDutyMinutes, "limitMinutes": th.FatigueLimitMinutes()},
	}, true
}

func routeDeviationRule(s model.TelemetrySample, th model.Thresholds) (model.AlertDraft, bool) {
	if s.RouteDeviationKm == nil || *s.RouteDeviationKm <= th.RouteDeviationKm {
		return model.AlertDraft{}, false
	}
	return model.AlertDraft{
		Kind:      model.KindRouteDeviation,
		Severity:  model.SeverityMedium,
		VehicleID: s.VehicleID,
		Title:     "Route Deviation",
		Message:   fmt.Sprintf("Vehicle %s is %.1f km off its planned route", s.VehicleID, *s.RouteDeviationKm),
		Metadata:  map[string]any{"deviationKm": *s.RouteDeviationKm, "limitKm": th.RouteDeviationKm},
	}, true
}
