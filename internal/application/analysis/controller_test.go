package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/aishield/internal/application"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
	"github.com/bryanwahyu/aishield/internal/infra/ai/remote"
)

type outcome struct {
	res *domain.Result
	err error
}

type pendingCall struct {
	message string
	ctx     context.Context
	reply   chan outcome
}

// blockingAnalyzer hands each call to the test, which decides when and how it resolves.
type blockingAnalyzer struct {
	calls     chan pendingCall
	ignoreCtx bool
}

func newBlockingAnalyzer() *blockingAnalyzer {
	return &blockingAnalyzer{calls: make(chan pendingCall, 4)}
}

func (a *blockingAnalyzer) Analyze(ctx context.Context, message string) (*domain.Result, error) {
	call := pendingCall{message: message, ctx: ctx, reply: make(chan outcome, 1)}
	select {
	case a.calls <- call:
	case <-ctx.Done():
		return nil, domain.TransportFailure(ctx.Err())
	}
	if a.ignoreCtx {
		o := <-call.reply
		return o.res, o.err
	}
	select {
	case o := <-call.reply:
		return o.res, o.err
	case <-ctx.Done():
		return nil, domain.TransportFailure(ctx.Err())
	}
}

func (a *blockingAnalyzer) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case c := <-a.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("analyzer was not called")
		return pendingCall{}
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

type countingRecorder struct {
	submitted, settled, superseded atomic.Int32
}

func (r *countingRecorder) Submitted()                          { r.submitted.Add(1) }
func (r *countingRecorder) Settled(domain.State, time.Duration) { r.settled.Add(1) }
func (r *countingRecorder) Superseded()                         { r.superseded.Add(1) }

func newTestController(a domain.Analyzer, n notification.Notifier) *Controller {
	return NewController(a, Options{
		SessionID: "s1",
		Notifier:  n,
		Clock:     application.NewManualClock(t0),
	})
}

func TestControllerStartsIdle(t *testing.T) {
	ctrl := newTestController(newBlockingAnalyzer(), nil)
	defer ctrl.Close()

	s := ctrl.State()
	assert.Equal(t, domain.PhaseIdle, s.Phase)
	assert.Nil(t, s.Result)
	assert.Nil(t, s.Error)
}

func TestControllerBlankSubmitIsNoop(t *testing.T) {
	a := newBlockingAnalyzer()
	n := &recordingNotifier{}
	ctrl := newTestController(a, n)
	defer ctrl.Close()

	for _, msg := range []string{"", "   ", "\n\t "} {
		assert.False(t, ctrl.Submit(msg))
	}

	ctrl.Wait()
	assert.Equal(t, domain.PhaseIdle, ctrl.State().Phase)
	assert.Len(t, a.calls, 0)
	assert.Empty(t, n.Events())
}

func TestControllerBlankSubmitKeepsSettledState(t *testing.T) {
	tests := []struct {
		name  string
		reply outcome
		phase domain.Phase
	}{
		{"succeeded", outcome{res: &domain.Result{Classification: domain.ClassificationWarning, Confidence: 61}}, domain.PhaseSucceeded},
		{"failed", outcome{err: domain.ServiceError(200, "model timeout")}, domain.PhaseFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newBlockingAnalyzer()
			n := &recordingNotifier{}
			ctrl := newTestController(a, n)
			defer ctrl.Close()

			ctrl.Submit("hello")
			a.next(t).reply <- tt.reply
			ctrl.Wait()

			before := ctrl.State()
			require.Equal(t, tt.phase, before.Phase)
			require.Len(t, n.Events(), 1)

			for _, msg := range []string{"", "  ", "\t\n"} {
				assert.False(t, ctrl.Submit(msg))
			}
			ctrl.Wait()

			assert.Equal(t, before, ctrl.State())
			assert.Len(t, a.calls, 0)
			assert.Len(t, n.Events(), 1)
		})
	}
}

func TestControllerSubmitIsPendingSynchronously(t *testing.T) {
	a := newBlockingAnalyzer()
	n := &recordingNotifier{}
	ctrl := newTestController(a, n)
	defer ctrl.Close()

	require.True(t, ctrl.Submit("  You won a prize! "))
	assert.Equal(t, domain.PhasePending, ctrl.State().Phase)

	call := a.next(t)
	assert.Equal(t, "  You won a prize! ", call.message)
	assert.Empty(t, n.Events())

	call.reply <- outcome{res: &domain.Result{Classification: domain.ClassificationDanger, Confidence: 95}}
	ctrl.Wait()

	s := ctrl.State()
	assert.Equal(t, domain.PhaseSucceeded, s.Phase)
	require.NotNil(t, s.Result)
	assert.Equal(t, 95, s.Result.Confidence)

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.KindDanger, events[0].Kind)
	assert.Equal(t, notification.MsgDanger, events[0].Message)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, t0, events[0].Timestamp)
	assert.NotEmpty(t, events[0].ID)
}

func TestControllerResubmitFromSettledClearsOutcome(t *testing.T) {
	a := newBlockingAnalyzer()
	ctrl := newTestController(a, nil)
	defer ctrl.Close()

	ctrl.Submit("first")
	a.next(t).reply <- outcome{err: domain.RateLimited()}
	ctrl.Wait()
	require.Equal(t, domain.PhaseFailed, ctrl.State().Phase)

	ctrl.Submit("second")
	s := ctrl.State()
	assert.Equal(t, domain.PhasePending, s.Phase)
	assert.Nil(t, s.Error)
	assert.Nil(t, s.Result)

	a.next(t).reply <- outcome{res: &domain.Result{Classification: domain.ClassificationSafe}}
	ctrl.Wait()
	assert.Equal(t, domain.PhaseSucceeded, ctrl.State().Phase)
}

func TestControllerSupersededOutcomeIsIgnored(t *testing.T) {
	a := newBlockingAnalyzer()
	a.ignoreCtx = true
	n := &recordingNotifier{}
	rec := &countingRecorder{}
	ctrl := NewController(a, Options{SessionID: "s1", Notifier: n, Recorder: rec})
	defer ctrl.Close()

	ctrl.Submit("first")
	first := a.next(t)
	ctrl.Submit("second")
	second := a.next(t)

	assert.ErrorIs(t, first.ctx.Err(), context.Canceled)

	second.reply <- outcome{res: &domain.Result{Classification: domain.ClassificationSafe}}
	first.reply <- outcome{res: &domain.Result{Classification: domain.ClassificationDanger}}
	ctrl.Wait()

	s := ctrl.State()
	assert.Equal(t, domain.PhaseSucceeded, s.Phase)
	assert.Equal(t, domain.ClassificationSafe, s.Result.Classification)
	assert.Equal(t, uint64(2), s.Seq)

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.KindSuccess, events[0].Kind)
	assert.Equal(t, uint64(2), events[0].Seq)

	assert.Equal(t, int32(2), rec.submitted.Load())
	assert.Equal(t, int32(1), rec.settled.Load())
	assert.Equal(t, int32(1), rec.superseded.Load())
}

func TestControllerResetAbandonsPendingCall(t *testing.T) {
	a := newBlockingAnalyzer()
	a.ignoreCtx = true
	n := &recordingNotifier{}
	ctrl := newTestController(a, n)
	defer ctrl.Close()

	ctrl.Submit("hello")
	call := a.next(t)
	ctrl.Reset()

	assert.Equal(t, domain.PhaseIdle, ctrl.State().Phase)
	assert.ErrorIs(t, call.ctx.Err(), context.Canceled)

	call.reply <- outcome{res: &domain.Result{Classification: domain.ClassificationDanger}}
	ctrl.Wait()

	assert.Equal(t, domain.PhaseIdle, ctrl.State().Phase)
	assert.Empty(t, n.Events())
}

func TestControllerResetIsIdempotent(t *testing.T) {
	a := newBlockingAnalyzer()
	n := &recordingNotifier{}
	ctrl := newTestController(a, n)
	defer ctrl.Close()

	ctrl.Submit("hello")
	a.next(t).reply <- outcome{res: &domain.Result{Classification: domain.ClassificationWarning}}
	ctrl.Wait()
	require.Len(t, n.Events(), 1)

	ctrl.Reset()
	once := ctrl.State()
	ctrl.Reset()
	twice := ctrl.State()

	assert.Equal(t, domain.PhaseIdle, once.Phase)
	assert.Nil(t, once.Result)
	assert.Equal(t, once, twice)
	assert.Len(t, n.Events(), 1)
}

func TestControllerTimeoutIsTransportFailure(t *testing.T) {
	a := newBlockingAnalyzer()
	n := &recordingNotifier{}
	ctrl := NewController(a, Options{Timeout: 20 * time.Millisecond, Notifier: n})
	defer ctrl.Close()

	ctrl.Submit("slow")
	a.next(t)
	ctrl.Wait()

	s := ctrl.State()
	assert.Equal(t, domain.PhaseFailed, s.Phase)
	require.NotNil(t, s.Error)
	assert.Equal(t, domain.KindTransportFailure, s.Error.Kind)
	assert.ErrorIs(t, s.Error, context.DeadlineExceeded)

	events := n.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notification.Event{
		ID: events[0].ID, Kind: notification.KindError, Seq: 1,
		Message: domain.MsgTransportFailure, Timestamp: events[0].Timestamp,
	}, events[0])
}

func TestControllerSubscribe(t *testing.T) {
	a := newBlockingAnalyzer()
	ctrl := newTestController(a, nil)

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	assert.Equal(t, domain.PhaseIdle, (<-states).Phase)

	ctrl.Submit("hello")
	assert.Equal(t, domain.PhasePending, (<-states).Phase)

	a.next(t).reply <- outcome{err: domain.ServiceUnavailable()}
	settled := <-states
	assert.Equal(t, domain.PhaseFailed, settled.Phase)
	assert.Equal(t, domain.MsgServiceUnavailable, settled.Error.Message)

	ctrl.Close()
	_, open := <-states
	assert.False(t, open)
}

func TestControllerSlowSubscriberKeepsLatest(t *testing.T) {
	ctrl := newTestController(newBlockingAnalyzer(), nil)
	defer ctrl.Close()

	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		ctrl.Submit("x")
		ctrl.Reset()
	}

	var last domain.State
	for len(states) > 0 {
		last = <-states
	}
	assert.Equal(t, ctrl.State(), last)
}

func TestControllerSubmitAfterClose(t *testing.T) {
	ctrl := newTestController(newBlockingAnalyzer(), nil)
	ctrl.Close()
	assert.False(t, ctrl.Submit("hello"))
	ctrl.Close()
}

func TestControllerNotifierErrorIsLogged(t *testing.T) {
	a := newBlockingAnalyzer()
	failing := notification.NotifierFunc(func(context.Context, notification.Event) error {
		return errors.New("sink down")
	})
	ctrl := newTestController(a, failing)
	defer ctrl.Close()

	ctrl.Submit("hello")
	a.next(t).reply <- outcome{res: &domain.Result{Classification: domain.ClassificationSafe}}
	ctrl.Wait()

	assert.Equal(t, domain.PhaseSucceeded, ctrl.State().Phase)
}

// End-to-end scenarios against an HTTP analysis endpoint.
func TestControllerScenarios(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantPhase  domain.Phase
		wantClass  domain.Classification
		wantKind   notification.Kind
		wantNotice string
	}{
		{
			name:       "danger result",
			status:     http.StatusOK,
			body:       `{"classification":"DANGER","confidence":95,"summary":"Phishing","explanation":"Fake prize","redFlags":["urgency"],"tips":["Do not click"]}`,
			wantPhase:  domain.PhaseSucceeded,
			wantClass:  domain.ClassificationDanger,
			wantKind:   notification.KindDanger,
			wantNotice: "Analysis complete - High risk detected!",
		},
		{
			name:       "safe result",
			status:     http.StatusOK,
			body:       `{"classification":"SAFE","confidence":98,"summary":"Ordinary message","explanation":"...","redFlags":[],"tips":[]}`,
			wantPhase:  domain.PhaseSucceeded,
			wantClass:  domain.ClassificationSafe,
			wantKind:   notification.KindSuccess,
			wantNotice: "Analysis complete - Content appears safe",
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{}`,
			wantPhase:  domain.PhaseFailed,
			wantKind:   notification.KindError,
			wantNotice: "Too many requests. Please wait a moment and try again.",
		},
		{
			name:       "payment required",
			status:     http.StatusPaymentRequired,
			body:       `{"error":"quota"}`,
			wantPhase:  domain.PhaseFailed,
			wantKind:   notification.KindError,
			wantNotice: "Service temporarily unavailable. Please try again later.",
		},
		{
			name:       "error field on 200",
			status:     http.StatusOK,
			body:       `{"error":"model timeout"}`,
			wantPhase:  domain.PhaseFailed,
			wantKind:   notification.KindError,
			wantNotice: "model timeout",
		},
		{
			name:       "server error without body",
			status:     http.StatusInternalServerError,
			body:       `{}`,
			wantPhase:  domain.PhaseFailed,
			wantKind:   notification.KindError,
			wantNotice: "Analysis failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&got)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := remote.NewClient(remote.Config{Endpoint: srv.URL})
			require.NoError(t, err)

			n := &recordingNotifier{}
			ctrl := newTestController(client, n)
			defer ctrl.Close()

			require.True(t, ctrl.Submit("You won a prize! Click here."))
			ctrl.Wait()

			assert.Equal(t, "You won a prize! Click here.", got["message"])

			s := ctrl.State()
			assert.Equal(t, tt.wantPhase, s.Phase)
			if tt.wantPhase == domain.PhaseSucceeded {
				require.NotNil(t, s.Result)
				assert.Equal(t, tt.wantClass, s.Result.Classification)
				assert.Nil(t, s.Error)
			} else {
				require.NotNil(t, s.Error)
				assert.Equal(t, tt.wantNotice, s.Error.Message)
				assert.Nil(t, s.Result)
			}

			events := n.Events()
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantKind, events[0].Kind)
			assert.Equal(t, tt.wantNotice, events[0].Message)
		})
	}
}

func TestControllerNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	client, err := remote.NewClient(remote.Config{Endpoint: endpoint})
	require.NoError(t, err)

	n := &recordingNotifier{}
	ctrl := newTestController(client, n)
	defer ctrl.Close()

	ctrl.Submit("hello")
	ctrl.Wait()

	s := ctrl.State()
	assert.Equal(t, domain.PhaseFailed, s.Phase)
	assert.Equal(t, domain.KindTransportFailure, s.Error.Kind)
	require.Len(t, n.Events(), 1)
	assert.Equal(t, "Failed to analyze message", n.Events()[0].Message)
}
