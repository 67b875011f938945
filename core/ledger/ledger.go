package ledger

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/metrics"
	"github.com/kilianp07/fleetops/core/model"
)

// Filter restricts List results. Empty fields match everything.
type Filter struct {
	Kind      model.AlertKind
	Severity  model.Severity
	Status    model.AlertStatus
	VehicleID string
}

func (f Filter) match(a model.Alert) bool {
	if f.Kind != "" && a.Kind != f.Kind {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.VehicleID != "" && a.VehicleID != f.VehicleID {
		return false
	}
	return true
}

type entry struct {
	alert model.Alert
	state *lifecycle
}

// Ledger owns every alert raised during the process lifetime.
type Ledger struct {
	mu      sync.RWMutex
	byID    map[string]*entry
	ordered []*entry

	pub   events.Publisher
	sink  metrics.Sink
	log   logger.Logger
	now   func() time.Time
	newID func() string
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithPublisher publishes alert_new and alert_updated events.
func WithPublisher(p events.Publisher) Option { return func(l *Ledger) { l.pub = p } }

// WithSink records alert metrics.
func WithSink(s metrics.Sink) Option { return func(l *Ledger) { l.sink = s } }

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option { return func(l *Ledger) { l.log = logger.OrNop(lg) } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// WithIDGenerator overrides the uuid generator.
func WithIDGenerator(gen func() string) Option { return func(l *Ledger) { l.newID = gen } }

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		byID:  make(map[string]*entry),
		pub:   events.NopPublisher{},
		sink:  metrics.NopSink{},
		log:   logger.Nop{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Create stores a new active alert built from d.
func (l *Ledger) Create(d model.AlertDraft) (model.Alert, error) {
	if err := d.Validate(); err != nil {
		return model.Alert{}, err
	}
	if d.Severity == "" {
		d.Severity = model.SeverityMedium
	}
	a := model.Alert{
		ID:        l.newID(),
		Kind:      d.Kind,
		Severity:  d.Severity,
		VehicleID: d.VehicleID,
		Title:     d.Title,
		Message:   d.Message,
		Status:    model.AlertActive,
		CreatedAt: l.now(),
		Metadata:  copyMeta(d.Metadata),
	}

	l.mu.Lock()
	e := &entry{alert: a, state: newLifecycle(model.AlertActive)}
	l.byID[a.ID] = e
	l.ordered = append(l.ordered, e)
	l.mu.Unlock()

	l.log.Infow("alert raised", map[string]any{
		"alert_id": a.ID, "vehicle_id": a.VehicleID, "type": a.Kind, "severity": a.Severity,
	})
	l.pub.Publish(events.AlertRaised{Alert: a})
	l.record(a)
	return a, nil
}

// Simulate injects an alert without telemetry. It behaves like Create.
func (l *Ledger) Simulate(d model.AlertDraft) (model.Alert, error) {
	if d.Kind == "" {
		d.Kind = model.KindOther
	}
	if d.Title == "" {
		d.Title = "Simulated Alert"
	}
	return l.Create(d)
}

// Acknowledge marks the alert as acknowledged by actor. Acknowledging an
// already acknowledged alert overwrites actor and time. A resolved alert
// cannot be acknowledged.
func (l *Ledger) Acknowledge(id, actor string) (model.Alert, error) {
	return l.transition(id, EventAcknowledge, func(a *model.Alert, at time.Time) {
		a.AcknowledgedBy = actor
		a.AcknowledgedAt = &at
	})
}

// Resolve closes the alert. Resolving twice overwrites actor and time.
func (l *Ledger) Resolve(id, actor string) (model.Alert, error) {
	return l.transition(id, EventResolve, func(a *model.Alert, at time.Time) {
		a.ResolvedBy = actor
		a.ResolvedAt = &at
	})
}

func (l *Ledger) transition(id, event string, stamp func(*model.Alert, time.Time)) (model.Alert, error) {
	l.mu.Lock()
	e, ok := l.byID[id]
	if !ok {
		l.mu.Unlock()
		return model.Alert{}, &model.NotFoundError{Entity: "alert", ID: id}
	}
	status, err := e.state.fire(event)
	if err != nil {
		l.mu.Unlock()
		if errors.Is(err, model.ErrStateConflict) {
			return model.Alert{}, &model.StateConflictError{Entity: "alert", ID: id, State: string(status)}
		}
		return model.Alert{}, err
	}
	e.alert.Status = status
	stamp(&e.alert, l.now())
	a := e.alert
	l.mu.Unlock()

	l.log.Infow("alert "+event, map[string]any{"alert_id": id, "status": a.Status})
	l.pub.Publish(events.AlertUpdated{Alert: a})
	l.record(a)
	return a, nil
}

// Get returns the alert with the given id.
func (l *Ledger) Get(id string) (model.Alert, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return model.Alert{}, &model.NotFoundError{Entity: "alert", ID: id}
	}
	return e.alert, nil
}

// List returns the matching alerts, newest first. Alerts created at the
// same instant are ordered by reverse insertion.
func (l *Ledger) List(f Filter) []model.Alert {
	l.mu.RLock()
	out := make([]model.Alert, 0, len(l.ordered))
	for i := len(l.ordered) - 1; i >= 0; i-- {
		if a := l.ordered[i].alert; f.match(a) {
			out = append(out, a)
		}
	}
	l.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of alerts held.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ordered)
}

func (l *Ledger) record(a model.Alert) {
	if err := l.sink.RecordAlert(metrics.AlertEvent{
		AlertID:   a.ID,
		VehicleID: a.VehicleID,
		Kind:      a.Kind,
		Severity:  a.Severity,
		Status:    a.Status,
		Time:      l.now(),
	}); err != nil {
		l.log.Errorf("alert metrics error: %v", err)
	}
}

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
