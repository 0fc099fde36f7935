package analysis

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/aishield/internal/application"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

const (
	DefaultTimeout   = 30 * time.Second
	subscriberBuffer = 8
)

// Recorder observes controller activity (metrics).
type Recorder interface {
	Submitted()
	Settled(s domain.State, elapsed time.Duration)
	Superseded()
}

type nopRecorder struct{}

func (nopRecorder) Submitted()                         {}
func (nopRecorder) Settled(domain.State, time.Duration) {}
func (nopRecorder) Superseded()                        {}

// Options for NewController. Zero values get defaults.
type Options struct {
	SessionID string
	Timeout   time.Duration
	Notifier  notification.Notifier
	Clock     application.Clock
	Recorder  Recorder
}

// Controller owns one RequestState. It is the only writer; readers use State or Subscribe.
// Controller is safe for concurrent use.
type Controller struct {
	analyzer  domain.Analyzer
	notifier  notification.Notifier
	clock     application.Clock
	recorder  Recorder
	timeout   time.Duration
	sessionID string

	mu      sync.Mutex
	state   domain.State
	seq     uint64
	cancel  context.CancelFunc
	subs    map[int]chan domain.State
	nextSub int
	closed  bool
	wg      sync.WaitGroup
}

func NewController(analyzer domain.Analyzer, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Controller{
		analyzer:  analyzer,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		recorder:  opts.Recorder,
		timeout:   opts.Timeout,
		sessionID: opts.SessionID,
		state:     domain.IdleState(opts.Clock.Now()),
		subs:      make(map[int]chan domain.State),
	}
}

// Submit starts a new analysis cycle and returns before the remote call resolves.
// Blank input is ignored and Submit returns false. Any cycle still in flight is
// cancelled and its outcome will not be applied.
func (c *Controller) Submit(message string) bool {
	if strings.TrimSpace(message) == "" {
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.seq++
	seq := c.seq
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.applyLocked(Event{Type: EventSubmitted, Seq: seq, At: c.clock.Now()})
	c.wg.Add(1)
	c.mu.Unlock()

	c.recorder.Submitted()
	go c.run(ctx, cancel, seq, message)
	return true
}

// Reset forces the state back to idle without notifications. Any in-flight
// cycle is abandoned.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state.Phase == domain.PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.applyLocked(Event{Type: EventResetRequested, At: c.clock.Now()})
	c.mu.Unlock()
}

// State returns a snapshot.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SessionID() string { return c.sessionID }

// Subscribe delivers the current state followed by every change. Slow readers
// lose intermediate snapshots, never the latest one.
func (c *Controller) Subscribe() (<-chan domain.State, func()) {
	ch := make(chan domain.State, subscriberBuffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Wait blocks until no remote call is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close abandons the in-flight call and closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, seq uint64, message string) {
	defer c.wg.Done()
	defer cancel()

	start := c.clock.Now()
	res, err := c.analyzer.Analyze(ctx, message)

	ev := Event{Seq: seq, At: c.clock.Now()}
	if err != nil {
		ev.Type = EventRejected
		ev.Err = domain.AsError(err)
	} else {
		ev.Type = EventResolved
		ev.Result = res
	}

	c.mu.Lock()
	if c.closed || Stale(c.state, ev) {
		c.mu.Unlock()
		c.recorder.Superseded()
		log.Printf("analysis outcome dropped session=%s seq=%d reason=superseded", c.sessionID, seq)
		return
	}
	c.cancel = nil
	effects := c.applyLocked(ev)
	state := c.state
	c.mu.Unlock()

	elapsed := state.UpdatedAt.Sub(start)
	c.recorder.Settled(state, elapsed)
	if state.Error != nil {
		log.Printf("analysis failed session=%s seq=%d kind=%s status=%d err=%v",
			c.sessionID, seq, state.Error.Kind, state.Error.Status, state.Error.Err)
	} else {
		log.Printf("analysis succeeded session=%s seq=%d classification=%s confidence=%d",
			c.sessionID, seq, state.Result.Classification, state.Result.Confidence)
	}

	c.emit(seq, effects)
}

// applyLocked runs Transition and publishes the new state. Caller holds c.mu.
func (c *Controller) applyLocked(ev Event) []Effect {
	next, effects := Transition(c.state, ev)
	c.state = next
	for _, ch := range c.subs {
		publish(ch, next)
	}
	return effects
}

func publish(ch chan domain.State, s domain.State) {
	select {
	case ch <- s:
		return
	default:
	}
	// buffer penuh, buang snapshot paling lama
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func (c *Controller) emit(seq uint64, effects []Effect) {
	if c.notifier == nil {
		return
	}
	for _, eff := range effects {
		ev := notification.Event{
			ID:        uuid.NewString(),
			Kind:      eff.Kind,
			SessionID: c.sessionID,
			Seq:       seq,
			Message:   eff.Message,
			Timestamp: c.clock.Now(),
		}
		if err := c.notifier.Notify(context.Background(), ev); err != nil {
			log.Printf("notification failed session=%s kind=%s err=%v", c.sessionID, ev.Kind, err)
		}
	}
}
