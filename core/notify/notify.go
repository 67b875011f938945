// Package notify pushes bus events to external channels such as MQTT
// topics, websocket dashboards or Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// Notifier delivers one event to an external channel.
type Notifier interface {
	Notify(ctx context.Context, e events.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e events.Event) error

func (f NotifierFunc) Notify(ctx context.Context, e events.Event) error { return f(ctx, e) }

// Envelope is the wire format shared by every transport.
type Envelope struct {
	Event string       `json:"event"`
	Key   string       `json:"key,omitempty"`
	Time  time.Time    `json:"time"`
	Data  events.Event `json:"data"`
}

// Encode wraps e in an Envelope and marshals it.
func Encode(e events.Event, at time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Event: e.Name(), Key: e.Key(), Time: at, Data: e})
}

// Forwarder drains a bus subscription into notifiers. A failing notifier
// is logged and does not stop the others.
type Forwarder struct {
	bus       *eventbus.Bus[events.Event]
	notifiers []Notifier
	log       logger.Logger
	timeout   time.Duration
}

// NewForwarder creates a forwarder. Each delivery is bounded by timeout;
// zero means 5 seconds.
func NewForwarder(bus *eventbus.Bus[events.Event], log logger.Logger, timeout time.Duration, notifiers ...Notifier) *Forwarder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Forwarder{bus: bus, notifiers: notifiers, log: logger.OrNop(log), timeout: timeout}
}

// Run forwards events until ctx is done or the bus is closed.
func (f *Forwarder) Run(ctx context.Context) error {
	sub := f.bus.Subscribe()
	defer f.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub:
			if !ok {
				return nil
			}
			f.deliver(ctx, e)
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, e events.Event) {
	for _, n := range f.notifiers {
		nctx, cancel := context.WithTimeout(ctx, f.timeout)
		err := n.Notify(nctx, e)
		cancel()
		if err != nil {
			f.log.Warnf("notify %s for %s: %v", e.Name(), e.Key(), err)
			monitoring.CaptureException(err, map[string]string{"event": e.Name()})
		}
	}
}
