package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/internal/keylock"
)

// Config defines allocation settings.
type Config struct {
	// RadiusKm bounds the pickup search around the vehicle.
	RadiusKm float64 `json:"radius_km"`
	// MaxShiftHours is the on-duty time from which a driver is ineligible.
	MaxShiftHours float64 `json:"max_shift_hours"`
	Pricing       Pricing `json:"pricing"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.RadiusKm <= 0 {
		c.RadiusKm = 20
	}
	if c.MaxShiftHours <= 0 {
		c.MaxShiftHours = 8
	}
	c.Pricing.SetDefaults()
}

// Validate checks the pricing is usable.
func (c Config) Validate() error {
	if c.Pricing.RatePerKm < 0 || c.Pricing.CostPerKm < 0 {
		return fmt.Errorf("allocation: pricing rates must not be negative")
	}
	return nil
}

// Fleet is the vehicle and job registry the orchestrator reads and commits
// to.
type Fleet interface {
	Vehicle(id string) (model.VehicleState, error)
	PendingJobs() []model.Job
	Commit(vehicleID, jobID string) (model.Job, error)
}

// ThresholdSource provides the current alert limits.
type ThresholdSource interface {
	Get() model.Thresholds
}

// Orchestrator picks the next job for a vehicle.
type Orchestrator struct {
	cfg        Config
	fleet      Fleet
	thresholds ThresholdSource
	scorer     Scorer
	locks      *keylock.Locker

	pub  events.Publisher
	sink metrics.Sink
	dlog DecisionLog
	log  logger.Logger
	now  func() time.Time
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithPublisher publishes an assignment event per decision.
func WithPublisher(p events.Publisher) Option { return func(o *Orchestrator) { o.pub = p } }

// WithSink records decision metrics.
func WithSink(s metrics.Sink) Option { return func(o *Orchestrator) { o.sink = s } }

// WithDecisionLog persists every decision.
func WithDecisionLog(l DecisionLog) Option { return func(o *Orchestrator) { o.dlog = l } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.log = logger.OrNop(l) } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// NewOrchestrator creates an orchestrator over fleet.
func NewOrchestrator(cfg Config, fleet Fleet, thresholds ThresholdSource, opts ...Option) *Orchestrator {
	cfg.SetDefaults()
	o := &Orchestrator{
		cfg:        cfg,
		fleet:      fleet,
		thresholds: thresholds,
		scorer:     Scorer{Pricing: cfg.Pricing},
		locks:      keylock.New(),
		pub:        events.NopPublisher{},
		sink:       metrics.NopSink{},
		log:        logger.Nop{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AssignNext runs fatigue check, eligibility check, radius search, scoring
// and commit for vehicleID. Calls for the same vehicle are serialised. The
// four outcomes are results, not errors; an unknown vehicle is a
// NotFoundError.
func (o *Orchestrator) AssignNext(ctx context.Context, vehicleID string) (Decision, error) {
	if vehicleID == "" {
		return Decision{}, model.NewValidationError("vehicle_id is required")
	}
	start := time.Now()
	unlock := o.locks.Lock(vehicleID)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	v, err := o.fleet.Vehicle(vehicleID)
	if err != nil {
		return Decision{}, err
	}
	d, candidates, err := o.decide(v, o.thresholds.Get())
	if err != nil {
		return Decision{}, err
	}
	o.emit(ctx, d, candidates, time.Since(start))
	return d, nil
}

func (o *Orchestrator) decide(v model.VehicleState, th model.Thresholds) (Decision, int, error) {
	d := Decision{VehicleID: v.ID, DecidedAt: o.now()}

	if v.OnDutyMinutes > th.FatigueLimitMinutes() {
		d.Status = OutcomeFatigueBreak
		d.Driver = v.Driver
		d.HoursWorked = v.OnDutyHours()
		d.RequiresAcknowledgment = true
		d.Message = fmt.Sprintf("Driver has exceeded %g hours. Break required before next assignment.", th.DriverHoursLimit)
		return d, 0, nil
	}

	checker := EligibilityChecker{MaxShiftMinutes: o.cfg.MaxShiftHours * 60, MinFuel: th.FuelLowThreshold}
	if el := checker.Check(v); !el.Eligible {
		return ineligible(d, el.Issues), 0, nil
	}

	cands := FindWithinRadius(v.Position, o.fleet.PendingJobs(), o.cfg.RadiusKm)
	ranked := o.scorer.Rank(cands)
	for i, best := range ranked {
		job, err := o.fleet.Commit(v.ID, best.Job.ID)
		if err != nil {
			var conflict *model.StateConflictError
			switch {
			case errors.As(err, &conflict) && conflict.Entity == "vehicle":
				return ineligible(d, []string{fmt.Sprintf("Vehicle is not available (status: %s)", conflict.State)}), len(cands), nil
			case errors.Is(err, model.ErrStateConflict), errors.Is(err, model.ErrNotFound):
				// Taken by another vehicle since the search; try the next best.
				o.log.Debugf("job %s no longer available for %s: %v", best.Job.ID, v.ID, err)
				continue
			default:
				return Decision{}, 0, err
			}
		}
		d.Status = OutcomeAssigned
		d.Message = "Job assigned"
		d.AlternativesCount = len(ranked) - i - 1
		d.Assignment = &Assignment{
			JobID:       job.ID,
			JobType:     job.Type,
			Origin:      job.Pickup,
			Destination: job.Dropoff,
			Passengers:  job.Passengers,
			Score: ScoreBreakdown{
				Profitability:      money(best.Profitability).InexactFloat64(),
				Revenue:            money(best.Revenue).InexactFloat64(),
				RepositionCost:     money(best.RepositionCost).InexactFloat64(),
				DistanceToPickupKm: money(best.DistanceKm).InexactFloat64(),
			},
			Rationale: o.scorer.Rationale(best),
		}
		return d, len(cands), nil
	}

	d.Status = OutcomeNoJobs
	d.Message = fmt.Sprintf("No pending jobs found within %gkm radius", o.cfg.RadiusKm)
	pos := v.Position
	d.VehicleLocation = &pos
	return d, len(cands), nil
}

func ineligible(d Decision, issues []string) Decision {
	d.Status = OutcomeIneligible
	d.Issues = issues
	d.Message = "Vehicle is not eligible for assignment"
	return d
}

func (o *Orchestrator) emit(ctx context.Context, d Decision, candidates int, latency time.Duration) {
	rec := d.Record(candidates)
	o.log.Infow("allocation decision", map[string]any{
		"vehicle_id": d.VehicleID,
		"status":     d.Status,
		"job_id":     rec.JobID,
		"candidates": candidates,
	})
	o.pub.Publish(events.AssignmentDecided{
		VehicleID: d.VehicleID,
		Outcome:   string(d.Status),
		JobID:     rec.JobID,
		Time:      d.DecidedAt,
	})
	if err := o.sink.RecordDecision(metrics.DecisionEvent{
		VehicleID:     d.VehicleID,
		Outcome:       string(d.Status),
		JobID:         rec.JobID,
		Profitability: rec.Profitability,
		DistanceKm:    rec.DistanceKm,
		Candidates:    candidates,
		Latency:       latency,
		Time:          d.DecidedAt,
	}); err != nil {
		o.log.Errorf("decision metrics error: %v", err)
	}
	if o.dlog != nil {
		if err := o.dlog.Append(ctx, rec); err != nil {
			o.log.Errorf("decision log append: %v", err)
			monitoring.CaptureException(err, map[string]string{"vehicle_id": d.VehicleID})
		}
	}
}

// Decisions reads back logged decisions. Without a decision log it returns
// nothing.
func (o *Orchestrator) Decisions(ctx context.Context, q DecisionQuery) ([]DecisionRecord, error) {
	if o.dlog == nil {
		return []DecisionRecord{}, nil
	}
	return o.dlog.Query(ctx, q)
}
