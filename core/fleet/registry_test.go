package fleet

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/fleetops/core/model"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestRegistry() *Registry {
	n := 0
	return NewRegistry(
		WithClock(func() time.Time { return t0 }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("job-%d", n) }),
	)
}

func TestUpsertVehicleDefaultsIdle(t *testing.T) {
	r := newTestRegistry()
	v, err := r.UpsertVehicle(model.VehicleState{ID: "V1"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if v.Occupancy != model.OccupancyIdle || !v.UpdatedAt.Equal(t0) {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if _, err := r.UpsertVehicle(model.VehicleState{}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for missing id, got %v", err)
	}
}

func TestVehicleNotFound(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Vehicle("ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.RecordBreak("ghost"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found on break, got %v", err)
	}
}

func TestRecordBreakResetsDuty(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1", OnDutyMinutes: 650})
	v, err := r.RecordBreak("V1")
	if err != nil {
		t.Fatalf("break: %v", err)
	}
	if v.OnDutyMinutes != 0 || !v.LastBreakAt.Equal(t0) {
		t.Fatalf("unexpected vehicle after break %+v", v)
	}
	v, _ = r.AddDutyMinutes("V1", 30)
	if v.OnDutyMinutes != 30 {
		t.Fatalf("expected 30 minutes, got %v", v.OnDutyMinutes)
	}
}

func TestCreateJobDefaults(t *testing.T) {
	r := newTestRegistry()
	j, err := r.CreateJob(model.Job{Status: model.JobCompleted, VehicleID: "V1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if j.ID != "job-1" || j.Status != model.JobPending || j.VehicleID != "" || !j.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected job %+v", j)
	}
	if _, err := r.CreateJob(model.Job{ID: "job-1"}); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("expected duplicate id conflict, got %v", err)
	}
	if _, err := r.CreateJob(model.Job{Passengers: -1}); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertKeepsActiveJob(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1"})
	j1, _ := r.CreateJob(model.Job{})
	j2, _ := r.CreateJob(model.Job{})
	if _, err := r.Commit("V1", j1.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	v, err := r.UpsertVehicle(model.VehicleState{ID: "V1", Driver: "Sara", CurrentJobID: "other"})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if v.Occupancy != model.OccupancyAssigned || v.CurrentJobID != j1.ID || v.Driver != "Sara" {
		t.Fatalf("assignment lost on upsert %+v", v)
	}
	if _, err := r.UpsertVehicle(model.VehicleState{ID: "V1", Occupancy: model.OccupancyIdle}); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("expected conflict freeing a busy vehicle, got %v", err)
	}
	if _, err := r.Commit("V1", j2.ID); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("vehicle took a second job: %v", err)
	}

	if _, err := r.CompleteJob(j1.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	v, err = r.UpsertVehicle(model.VehicleState{ID: "V1", Occupancy: model.OccupancyOutOfService})
	if err != nil || v.Occupancy != model.OccupancyOutOfService {
		t.Fatalf("free vehicle should accept occupancy change: %+v %v", v, err)
	}
	v, _ = r.UpsertVehicle(model.VehicleState{ID: "V2", CurrentJobID: j2.ID})
	if v.CurrentJobID != "" || v.Occupancy != model.OccupancyIdle {
		t.Fatalf("new vehicle must not claim a job %+v", v)
	}
}

func TestCommitAndComplete(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1"})
	j, _ := r.CreateJob(model.Job{})

	got, err := r.Commit("V1", j.ID)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got.Status != model.JobAssigned || got.VehicleID != "V1" {
		t.Fatalf("unexpected job %+v", got)
	}
	v, _ := r.Vehicle("V1")
	if v.Occupancy != model.OccupancyAssigned || v.CurrentJobID != j.ID {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if len(r.PendingJobs()) != 0 {
		t.Fatalf("assigned job must leave the pending pool")
	}

	if _, err := r.CompleteJob(j.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	v, _ = r.Vehicle("V1")
	if v.Occupancy != model.OccupancyIdle || v.CurrentJobID != "" {
		t.Fatalf("vehicle should be idle after completion %+v", v)
	}
	if _, err := r.CompleteJob(j.ID); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("completing twice must conflict, got %v", err)
	}
}

func TestCommitConflicts(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1"})
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V2", Occupancy: model.OccupancyEnRoute})
	j1, _ := r.CreateJob(model.Job{})
	j2, _ := r.CreateJob(model.Job{})

	if _, err := r.AssignDirect("V2", j1.ID); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("busy vehicle must conflict, got %v", err)
	}
	if _, err := r.Commit("V1", j1.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := r.Commit("V1", j2.ID); !errors.Is(err, model.ErrStateConflict) {
		t.Fatalf("assigned vehicle must conflict, got %v", err)
	}
	if _, err := r.Commit("V1", "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("unknown job must be not found, got %v", err)
	}
	j, _ := r.Job(j2.ID)
	if j.Status != model.JobPending {
		t.Fatalf("failed commit must leave job untouched: %+v", j)
	}
}

func TestCommitRaceSingleWinner(t *testing.T) {
	r := newTestRegistry()
	for i := 0; i < 10; i++ {
		_, _ = r.UpsertVehicle(model.VehicleState{ID: fmt.Sprintf("V%d", i)})
	}
	j, _ := r.CreateJob(model.Job{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Commit(fmt.Sprintf("V%d", i), j.ID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestCancelAssignedJobFreesVehicle(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1"})
	j, _ := r.CreateJob(model.Job{})
	_, _ = r.Commit("V1", j.ID)
	c, err := r.CancelJob(j.ID)
	if err != nil || c.Status != model.JobCancelled {
		t.Fatalf("cancel: %+v %v", c, err)
	}
	v, _ := r.Vehicle("V1")
	if v.Occupancy != model.OccupancyIdle {
		t.Fatalf("vehicle must be idle, got %s", v.Occupancy)
	}
}

func TestOnSampleUpdatesKnownVehicle(t *testing.T) {
	r := newTestRegistry()
	_, _ = r.UpsertVehicle(model.VehicleState{ID: "V1", FuelLevel: model.Float(80)})
	r.OnSample(model.TelemetrySample{
		VehicleID: "V1",
		Timestamp: t0.Add(time.Minute),
		Position:  model.Position{Lat: 24.7, Lon: 46.7},
		FuelLevel: model.Float(55),
	})
	r.OnSample(model.TelemetrySample{VehicleID: "unknown"})
	v, _ := r.Vehicle("V1")
	if v.Position.Lat != 24.7 || *v.FuelLevel != 55 || !v.UpdatedAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("unexpected vehicle %+v", v)
	}
	if len(r.Vehicles()) != 1 {
		t.Fatalf("unknown vehicles must not be registered from telemetry")
	}
}
