package analysis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"rate limited", RateLimited(), ErrRateLimited},
		{"service unavailable", ServiceUnavailable(), ErrServiceUnavailable},
		{"service error", ServiceError(200, "model timeout"), ErrServiceError},
		{"request failed", RequestFailed(500), ErrRequestFailed},
		{"transport", TransportFailure(errors.New("dial tcp")), ErrTransportFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("analyze: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
			assert.NotErrorIs(t, wrapped, &Error{Kind: "other"})
		})
	}
}

func TestUserMessages(t *testing.T) {
	assert.Equal(t, "Too many requests. Please wait a moment and try again.", RateLimited().Message)
	assert.Equal(t, "Service temporarily unavailable. Please try again later.", ServiceUnavailable().Message)
	assert.Equal(t, "Analysis failed", RequestFailed(500).Message)
	assert.Equal(t, "Failed to analyze message", TransportFailure(nil).Message)
	assert.Equal(t, "model timeout", ServiceError(200, "model timeout").Message)
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	e := RateLimited()
	assert.Same(t, e, AsError(fmt.Errorf("wrap: %w", e)))

	cause := errors.New("connection reset")
	got := AsError(cause)
	require.NotNil(t, got)
	assert.Equal(t, KindTransportFailure, got.Kind)
	assert.ErrorIs(t, got, cause)
}

func TestResultValidate(t *testing.T) {
	for _, c := range []Classification{ClassificationSafe, ClassificationWarning, ClassificationDanger} {
		r := &Result{Classification: c}
		assert.NoError(t, r.Validate(), c)
	}

	for _, c := range []Classification{"", "safe", "UNKNOWN"} {
		r := &Result{Classification: c}
		assert.ErrorIs(t, r.Validate(), ErrInvalidClassification, c)
	}

	var nilResult *Result
	assert.ErrorIs(t, nilResult.Validate(), ErrInvalidClassification)
}

func TestPhaseSettled(t *testing.T) {
	assert.False(t, PhaseIdle.Settled())
	assert.False(t, PhasePending.Settled())
	assert.True(t, PhaseSucceeded.Settled())
	assert.True(t, PhaseFailed.Settled())
}
