package alerting

import (
	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/monitoring"
)

// AlertCreator stores drafts as alerts.
type AlertCreator interface {
	Create(model.AlertDraft) (model.Alert, error)
}

// Monitor routes every stored sample through the evaluator and into the
// ledger. It is meant to be registered as the telemetry store observer.
type Monitor struct {
	eval   *Evaluator
	ledger AlertCreator
	pub    events.Publisher
	log    logger.Logger
}

// NewMonitor wires an evaluator to a ledger. pub and log may be nil.
func NewMonitor(eval *Evaluator, ledger AlertCreator, pub events.Publisher, log logger.Logger) *Monitor {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Monitor{eval: eval, ledger: ledger, pub: pub, log: logger.OrNop(log)}
}

// OnSample publishes the sample and raises one alert per breached limit.
// There is no debounce: a vehicle that stays over the limit raises an
// alert for every sample.
func (m *Monitor) OnSample(s model.TelemetrySample) {
	m.pub.Publish(events.TelemetryUpdated{Sample: s})
	for _, d := range m.eval.Evaluate(s) {
		if _, err := m.ledger.Create(d); err != nil {
			m.log.Errorf("create %s alert for %s: %v", d.Kind, d.VehicleID, err)
			monitoring.CaptureException(err, map[string]string{"vehicle_id": d.VehicleID, "type": string(d.Kind)})
		}
	}
}
