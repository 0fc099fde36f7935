package notification

import "time"

// Kind enum
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
	KindError   Kind = "error"
)

// Messages fired when an analysis succeeds.
const (
	MsgSafe    = "Analysis complete - Content appears safe"
	MsgWarning = "Analysis complete - Proceed with caution"
	MsgDanger  = "Analysis complete - High risk detected!"
)

// Event is one settled-outcome notification.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Seq       uint64    `json:"seq"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
