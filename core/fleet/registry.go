// Package fleet owns the dispatch view of vehicles and jobs. It is the
// single writer of occupancy and job status, so assignment is an atomic
// compare-and-set on both records.
package fleet

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
)

// Registry stores vehicles and jobs in memory.
type Registry struct {
	mu       sync.RWMutex
	vehicles map[string]*model.VehicleState
	jobs     map[string]*model.Job
	jobOrder []string

	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option customises a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(r *Registry) { r.log = logger.OrNop(l) } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// WithIDGenerator overrides the uuid generator used for new jobs.
func WithIDGenerator(gen func() string) Option { return func(r *Registry) { r.newID = gen } }

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		vehicles: make(map[string]*model.VehicleState),
		jobs:     make(map[string]*model.Job),
		log:      logger.Nop{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// UpsertVehicle registers v or replaces the stored state. An empty
// occupancy means idle. The current job is owned by the registry: a vehicle
// with an active job keeps it along with its occupancy, and asking for a
// different occupancy is a state conflict.
func (r *Registry) UpsertVehicle(v model.VehicleState) (model.VehicleState, error) {
	if err := v.Validate(); err != nil {
		return model.VehicleState{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v.CurrentJobID = ""
	if prev, ok := r.vehicles[v.ID]; ok && prev.CurrentJobID != "" {
		if v.Occupancy != "" && v.Occupancy != prev.Occupancy {
			return model.VehicleState{}, &model.StateConflictError{Entity: "vehicle", ID: v.ID, State: string(prev.Occupancy)}
		}
		v.Occupancy = prev.Occupancy
		v.CurrentJobID = prev.CurrentJobID
	}
	if v.Occupancy == "" {
		v.Occupancy = model.OccupancyIdle
	}
	v.UpdatedAt = r.now()
	r.vehicles[v.ID] = &v
	r.log.Debugw("vehicle upserted", map[string]any{"vehicle_id": v.ID, "status": v.Occupancy})
	return v, nil
}

// Vehicle returns the state of id.
func (r *Registry) Vehicle(id string) (model.VehicleState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return model.VehicleState{}, &model.NotFoundError{Entity: "vehicle", ID: id}
	}
	return *v, nil
}

// Vehicles returns every vehicle ordered by id.
func (r *Registry) Vehicles() []model.VehicleState {
	r.mu.RLock()
	out := make([]model.VehicleState, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		out = append(out, *v)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecordBreak resets the driver's on-duty counter.
func (r *Registry) RecordBreak(id string) (model.VehicleState, error) {
	return r.updateVehicle(id, func(v *model.VehicleState, now time.Time) {
		v.OnDutyMinutes = 0
		v.LastBreakAt = now
	})
}

// AddDutyMinutes extends the driver's on-duty counter.
func (r *Registry) AddDutyMinutes(id string, minutes float64) (model.VehicleState, error) {
	if minutes < 0 {
		return model.VehicleState{}, model.NewValidationError("duty minutes must not be negative")
	}
	return r.updateVehicle(id, func(v *model.VehicleState, _ time.Time) {
		v.OnDutyMinutes += minutes
	})
}

// SetMaintenance flags or clears the maintenance requirement.
func (r *Registry) SetMaintenance(id string, needed bool) (model.VehicleState, error) {
	return r.updateVehicle(id, func(v *model.VehicleState, _ time.Time) {
		v.NeedsMaintenance = needed
	})
}

func (r *Registry) updateVehicle(id string, fn func(*model.VehicleState, time.Time)) (model.VehicleState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return model.VehicleState{}, &model.NotFoundError{Entity: "vehicle", ID: id}
	}
	now := r.now()
	fn(v, now)
	v.UpdatedAt = now
	return *v, nil
}

// OnSample keeps the position and sensor readings of known vehicles in
// sync with telemetry. Samples of unknown vehicles are ignored.
func (r *Registry) OnSample(s model.TelemetrySample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[s.VehicleID]
	if !ok {
		return
	}
	v.Position = s.Position
	if s.FuelLevel != nil {
		v.FuelLevel = model.Float(*s.FuelLevel)
	}
	if s.OnDutyMinutes != nil {
		v.OnDutyMinutes = *s.OnDutyMinutes
	}
	v.UpdatedAt = s.EffectiveTime()
}
