package fleet

import (
	"github.com/kilianp07/fleetops/core/model"
)

// CreateJob stores a new pending job. An id is generated when empty.
func (r *Registry) CreateJob(j model.Job) (model.Job, error) {
	if j.Passengers < 0 {
		return model.Job{}, model.NewValidationError("passengers must not be negative")
	}
	if j.ID == "" {
		j.ID = r.newID()
	}
	j.Status = model.JobPending
	j.VehicleID = ""
	if j.CreatedAt.IsZero() {
		j.CreatedAt = r.now()
	}
	j.Addons = append([]string(nil), j.Addons...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; ok {
		return model.Job{}, &model.StateConflictError{Entity: "job", ID: j.ID, State: "already registered"}
	}
	r.jobs[j.ID] = &j
	r.jobOrder = append(r.jobOrder, j.ID)
	r.log.Debugw("job created", map[string]any{"job_id": j.ID})
	return j, nil
}

// Job returns the job with the given id.
func (r *Registry) Job(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return model.Job{}, &model.NotFoundError{Entity: "job", ID: id}
	}
	return *j, nil
}

// Jobs returns the jobs in creation order. An empty status returns all.
func (r *Registry) Jobs(status model.JobStatus) []model.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Job, 0, len(r.jobOrder))
	for _, id := range r.jobOrder {
		j := r.jobs[id]
		if status == "" || j.Status == status {
			out = append(out, *j)
		}
	}
	return out
}

// PendingJobs returns the jobs still waiting for a vehicle.
func (r *Registry) PendingJobs() []model.Job { return r.Jobs(model.JobPending) }

// Commit assigns jobID to vehicleID if the vehicle is idle and the job is
// still pending. Both records change together or not at all.
func (r *Registry) Commit(vehicleID, jobID string) (model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[vehicleID]
	if !ok {
		return model.Job{}, &model.NotFoundError{Entity: "vehicle", ID: vehicleID}
	}
	j, ok := r.jobs[jobID]
	if !ok {
		return model.Job{}, &model.NotFoundError{Entity: "job", ID: jobID}
	}
	if v.Occupancy != model.OccupancyIdle {
		return model.Job{}, &model.StateConflictError{Entity: "vehicle", ID: vehicleID, State: string(v.Occupancy)}
	}
	if j.Status != model.JobPending {
		return model.Job{}, &model.StateConflictError{Entity: "job", ID: jobID, State: string(j.Status)}
	}
	now := r.now()
	j.Status = model.JobAssigned
	j.VehicleID = vehicleID
	j.AssignedAt = now
	v.Occupancy = model.OccupancyAssigned
	v.CurrentJobID = jobID
	v.UpdatedAt = now
	r.log.Infow("job assigned", map[string]any{"job_id": jobID, "vehicle_id": vehicleID})
	return *j, nil
}

// AssignDirect is the manual dispatch path. It follows the same rules as
// Commit.
func (r *Registry) AssignDirect(vehicleID, jobID string) (model.Job, error) {
	return r.Commit(vehicleID, jobID)
}

// CompleteJob closes an assigned job and frees its vehicle.
func (r *Registry) CompleteJob(jobID string) (model.Job, error) {
	return r.closeJob(jobID, model.JobCompleted, model.JobAssigned)
}

// CancelJob cancels a pending or assigned job. An assigned vehicle is
// freed.
func (r *Registry) CancelJob(jobID string) (model.Job, error) {
	return r.closeJob(jobID, model.JobCancelled, model.JobPending, model.JobAssigned)
}

func (r *Registry) closeJob(jobID string, to model.JobStatus, from ...model.JobStatus) (model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return model.Job{}, &model.NotFoundError{Entity: "job", ID: jobID}
	}
	allowed := false
	for _, s := range from {
		if j.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return model.Job{}, &model.StateConflictError{Entity: "job", ID: jobID, State: string(j.Status)}
	}
	if v, ok := r.vehicles[j.VehicleID]; ok && v.CurrentJobID == jobID {
		v.Occupancy = model.OccupancyIdle
		v.CurrentJobID = ""
		v.UpdatedAt = r.now()
	}
	j.Status = to
	r.log.Infow("job "+string(to), map[string]any{"job_id": jobID, "vehicle_id": j.VehicleID})
	return *j, nil
}
