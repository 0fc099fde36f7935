package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Classification enum
type Classification string

const (
	ClassificationSafe    Classification = "SAFE"
	ClassificationWarning Classification = "WARNING"
	ClassificationDanger  Classification = "DANGER"
)

// Valid reports whether c is one of the three known tiers.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationSafe, ClassificationWarning, ClassificationDanger:
		return true
	}
	return false
}

// Result is the payload returned by the remote analysis service.
type Result struct {
	Classification Classification `json:"classification"`
	Confidence     int            `json:"confidence"`
	Summary        string         `json:"summary"`
	Explanation    string         `json:"explanation"`
	RedFlags       []string       `json:"redFlags"`
	Tips           []string       `json:"tips"`
}

// UnmarshalJSON accepts any JSON number for confidence (92, 92.0, 87.5) and
// rounds it to the nearest integer. Range is left to the presenter.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	aux := struct {
		*plain
		Confidence *float64 `json:"confidence"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Confidence != nil {
		r.Confidence = roundConfidence(*aux.Confidence)
	}
	return nil
}

func roundConfidence(v float64) int {
	v = math.Round(v)
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int(v)
}

// Validate checks the classification invariant. Confidence is not checked here,
// the presenter clamps it for display.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty result", ErrInvalidClassification)
	}
	if !r.Classification.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidClassification, r.Classification)
	}
	return nil
}

// Phase enum
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePending   Phase = "pending"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Settled is true for succeeded and failed.
func (p Phase) Settled() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// State is the lifecycle value owned by one controller.
// Result is set only when Phase is succeeded, Error only when Phase is failed.
type State struct {
	Phase     Phase     `json:"phase"`
	Result    *Result   `json:"result,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdleState is the initial state of every controller.
func IdleState(now time.Time) State {
	return State{Phase: PhaseIdle, UpdatedAt: now}
}
