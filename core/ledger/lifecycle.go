package ledger

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/kilianp07/fleetops/core/model"
)

const (
	// EventAcknowledge marks an alert as seen by an operator.
	EventAcknowledge = "acknowledge"
	// EventResolve closes an alert.
	EventResolve = "resolve"
)

// lifecycleEvents only allow forward moves. Repeating a transition on a
// state that already is its destination is accepted so that actor and time
// can be overwritten.
var lifecycleEvents = fsm.Events{
	{Name: EventAcknowledge, Src: []string{string(model.AlertActive), string(model.AlertAcknowledged)}, Dst: string(model.AlertAcknowledged)},
	{Name: EventResolve, Src: []string{string(model.AlertActive), string(model.AlertAcknowledged), string(model.AlertResolved)}, Dst: string(model.AlertResolved)},
}

type lifecycle struct {
	*fsm.FSM
}

func newLifecycle(initial model.AlertStatus) *lifecycle {
	return &lifecycle{FSM: fsm.NewFSM(string(initial), lifecycleEvents, fsm.Callbacks{})}
}

// fire runs the transition and returns the resulting status. A transition
// that is not allowed from the current state is reported as
// ErrStateConflict.
func (l *lifecycle) fire(event string) (model.AlertStatus, error) {
	err := l.Event(context.Background(), event)
	if err != nil && !isNoTransition(err) {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return model.AlertStatus(l.Current()), model.ErrStateConflict
		}
		return model.AlertStatus(l.Current()), err
	}
	return model.AlertStatus(l.Current()), nil
}

func isNoTransition(err error) bool {
	var noTransition fsm.NoTransitionError
	return errors.As(err, &noTransition)
}
