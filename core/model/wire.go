package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// telemetryPayload accepts the field spellings used by vehicle producers:
// camelCase or snake_case, flat lat/lng or a nested position, timestamps as
// RFC3339 strings or unix milliseconds.
type telemetryPayload struct {
	VehicleID      string          `json:"vehicleId"`
	VehicleIDSnake string          `json:"vehicle_id"`
	Timestamp      json.RawMessage `json:"timestamp"`
	TS             *int64          `json:"ts"`

	Lat      *float64  `json:"lat"`
	Lng      *float64  `json:"lng"`
	Lon      *float64  `json:"lon"`
	Position *Position `json:"position"`

	Speed   float64 `json:"speed"`
	Heading float64 `json:"heading"`

	FuelLevel        *float64 `json:"fuelLevel"`
	FuelLevelSnake   *float64 `json:"fuel_level"`
	EngineTemp       *float64 `json:"engineTemp"`
	EngineTempSnake  *float64 `json:"engine_temp"`
	OnDutyMinutes    *float64 `json:"onDutyMinutes"`
	OnDutySnake      *float64 `json:"on_duty_minutes"`
	DriverHours      *float64 `json:"driver_hours_today"`
	RouteDeviation   *float64 `json:"routeDeviationKm"`
	RouteDeviationSn *float64 `json:"route_deviation_km"`
}

// DecodeTelemetry parses one producer payload. A missing vehicle id is not
// an error here; the store decides what to do with it.
func DecodeTelemetry(b []byte) (TelemetrySample, error) {
	var p telemetryPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return TelemetrySample{}, NewValidationError("malformed telemetry: %v", err)
	}
	return p.sample()
}

// DecodeTelemetryBatch parses a JSON array of producer payloads.
func DecodeTelemetryBatch(b []byte) ([]TelemetrySample, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil || raw == nil {
		return nil, NewValidationError("events must be an array")
	}
	out := make([]TelemetrySample, 0, len(raw))
	for i, r := range raw {
		s, err := DecodeTelemetry(r)
		if err != nil {
			return nil, NewValidationError("event %d: %v", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (p telemetryPayload) sample() (TelemetrySample, error) {
	s := TelemetrySample{
		VehicleID:        first(p.VehicleID, p.VehicleIDSnake),
		Speed:            p.Speed,
		Heading:          p.Heading,
		FuelLevel:        firstPtr(p.FuelLevel, p.FuelLevelSnake),
		EngineTemp:       firstPtr(p.EngineTemp, p.EngineTempSnake),
		OnDutyMinutes:    firstPtr(p.OnDutyMinutes, p.OnDutySnake),
		RouteDeviationKm: firstPtr(p.RouteDeviation, p.RouteDeviationSn),
	}
	if s.OnDutyMinutes == nil && p.DriverHours != nil {
		s.OnDutyMinutes = Float(*p.DriverHours * 60)
	}
	switch {
	case p.Position != nil:
		s.Position = *p.Position
	default:
		if p.Lat != nil {
			s.Position.Lat = *p.Lat
		}
		if lon := firstPtr(p.Lng, p.Lon); lon != nil {
			s.Position.Lon = *lon
		}
	}
	ts, err := ParseTime(p.Timestamp)
	if err != nil {
		return TelemetrySample{}, err
	}
	if ts.IsZero() && p.TS != nil {
		ts = time.UnixMilli(*p.TS)
	}
	s.Timestamp = ts
	return s, nil
}

// ParseTime reads a JSON timestamp given as an RFC3339 string, a numeric
// string or a number of unix milliseconds. Empty input yields the zero time.
func ParseTime(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, NewValidationError("bad timestamp: %v", err)
		}
		return ParseTimeString(str)
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, NewValidationError("bad timestamp %s", raw)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// ParseTimeString parses RFC3339 or unix milliseconds.
func ParseTimeString(str string) (time.Time, error) {
	if str == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(str, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, NewValidationError("bad timestamp %q", str)
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPtr(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
