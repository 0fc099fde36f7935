package notify

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/aishield/internal/domain/notification"
)

// Sink consumes notification events (log, webhook, nats, websocket).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev notification.Event) error
	Close(ctx context.Context) error
}

// DispatcherConfig controls worker and queue sizing.
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliverTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Stats are cumulative delivery counters.
type Stats struct {
	Enqueued  uint64
	Dropped   uint64
	Delivered uint64
	Failed    uint64
}

// Dispatcher buffers events and fans them out to every sink in the background,
// so a slow sink never blocks the controller.
type Dispatcher struct {
	queue           chan notification.Event
	sinks           []Sink
	deliverTimeout  time.Duration
	shutdownTimeout time.Duration

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig, sinks ...Sink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	d := &Dispatcher{
		queue:           make(chan notification.Event, cfg.QueueSize),
		sinks:           sinks,
		deliverTimeout:  cfg.DeliverTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues ev without blocking. A full queue drops the event.
func (d *Dispatcher) Notify(_ context.Context, ev notification.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return nil
	}
	select {
	case d.queue <- ev:
		d.enqueued.Add(1)
	default:
		d.dropped.Add(1)
		log.Printf("notify: queue full, dropping kind=%s session=%s", ev.Kind, ev.SessionID)
	}
	return nil
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.enqueued.Load(),
		Dropped:   d.dropped.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}

// Close stops accepting events, drains the queue for up to the shutdown
// timeout and closes the sinks.
func (d *Dispatcher) Close(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, d.shutdownTimeout)
	defer cancel()
	select {
	case <-done:
	case <-waitCtx.Done():
	}

	for _, s := range d.sinks {
		if err := s.Close(waitCtx); err != nil {
			log.Printf("notify: sink %s close error: %v", s.Name(), err)
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev notification.Event) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.deliverTimeout)
		err := s.Deliver(ctx, ev)
		cancel()
		if err != nil {
			d.failed.Add(1)
			log.Printf("notify: sink %s failed: %v", s.Name(), err)
			continue
		}
		d.delivered.Add(1)
	}
}
