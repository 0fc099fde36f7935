package analysis

import (
	"time"

	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

// EventType enum
type EventType string

const (
	EventSubmitted      EventType = "submitted"
	EventResolved       EventType = "resolved"
	EventRejected       EventType = "rejected"
	EventResetRequested EventType = "reset"
)

// Event drives Transition. Result is used by resolved, Err by rejected.
type Event struct {
	Type   EventType
	Seq    uint64
	At     time.Time
	Result *domain.Result
	Err    *domain.Error
}

// Effect is a notification intent. The controller executes it after the
// state change is visible to readers.
type Effect struct {
	Kind    notification.Kind
	Message string
}

// Stale reports whether an outcome event belongs to a cycle that is no
// longer the one in flight.
func Stale(s domain.State, ev Event) bool {
	switch ev.Type {
	case EventResolved, EventRejected:
		return s.Phase != domain.PhasePending || s.Seq != ev.Seq
	}
	return false
}

// Transition is the pure lifecycle function. Stale outcomes return s unchanged.
func Transition(s domain.State, ev Event) (domain.State, []Effect) {
	if Stale(s, ev) {
		return s, nil
	}

	switch ev.Type {
	case EventSubmitted:
		return domain.State{Phase: domain.PhasePending, Seq: ev.Seq, UpdatedAt: ev.At}, nil

	case EventResolved:
		if err := ev.Result.Validate(); err != nil {
			return failed(s, ev, domain.TransportFailure(err))
		}
		next := domain.State{Phase: domain.PhaseSucceeded, Result: ev.Result, Seq: s.Seq, UpdatedAt: ev.At}
		return next, []Effect{successEffect(ev.Result.Classification)}

	case EventRejected:
		e := ev.Err
		if e == nil {
			e = domain.TransportFailure(nil)
		}
		return failed(s, ev, e)

	case EventResetRequested:
		return domain.State{Phase: domain.PhaseIdle, Seq: s.Seq, UpdatedAt: ev.At}, nil
	}
	return s, nil
}

func failed(s domain.State, ev Event, e *domain.Error) (domain.State, []Effect) {
	next := domain.State{Phase: domain.PhaseFailed, Error: e, Seq: s.Seq, UpdatedAt: ev.At}
	return next, []Effect{{Kind: notification.KindError, Message: e.Message}}
}

func successEffect(c domain.Classification) Effect {
	switch c {
	case domain.ClassificationSafe:
		return Effect{Kind: notification.KindSuccess, Message: notification.MsgSafe}
	case domain.ClassificationWarning:
		return Effect{Kind: notification.KindWarning, Message: notification.MsgWarning}
	default:
		return Effect{Kind: notification.KindDanger, Message: notification.MsgDanger}
	}
}
