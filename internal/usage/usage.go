// Package usage records when API keys were last used. Recording is a
// best-effort side effect of validation: it never blocks the caller and
// never reports failure back to it.
package usage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder accepts "key was used at" events.
type Recorder interface {
	Record(keyID string, at time.Time)
}

// RecorderFunc adapts a plain function to the Recorder interface.
type RecorderFunc func(keyID string, at time.Time)

func (f RecorderFunc) Record(keyID string, at time.Time) { f(keyID, at) }

// Nop discards every event.
type Nop struct{}

func (Nop) Record(string, time.Time) {}

// Toucher is the store capability the dispatcher writes through.
type Toucher interface {
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// Options sizes a Dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// DefaultOptions returns the sizes used when none are configured.
func DefaultOptions() Options {
	return Options{QueueSize: 1024, Workers: 2, WriteTimeout: 5 * time.Second}
}

type event struct {
	keyID string
	at    time.Time
}

// Dispatcher is an in-process Recorder backed by a bounded queue and a
// fixed pool of writer goroutines. When the queue is full new events are
// dropped with a warning.
type Dispatcher struct {
	toucher Toucher
	logger  *slog.Logger
	timeout time.Duration
	events  chan event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Uint64
	written atomic.Uint64
}

// NewDispatcher starts opts.Workers writers draining into t.
func NewDispatcher(t Toucher, opts Options, logger *slog.Logger) *Dispatcher {
	def := DefaultOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		toucher: t,
		logger:  logger,
		timeout: opts.WriteTimeout,
		events:  make(chan event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Record queues an event without waiting. Events recorded after Close are
// discarded.
func (d *Dispatcher) Record(keyID string, at time.Time) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	select {
	case d.events <- event{keyID: keyID, at: at}:
	default:
		d.dropped.Add(1)
		d.logger.Warn("usage queue full, dropping last-used update", "key_id", keyID)
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	d.wg.Wait()
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Written returns how many events reached the store successfully.
func (d *Dispatcher) Written() uint64 { return d.written.Load() }

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.events {
		d.write(ev)
	}
}

func (d *Dispatcher) write(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.toucher.TouchAPIKey(ctx, ev.keyID, ev.at); err != nil {
		d.logger.Error("failed to record api key usage", "key_id", ev.keyID, "error", err)
		return
	}
	d.written.Add(1)
}
