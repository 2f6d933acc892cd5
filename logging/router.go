package logging

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// Router fans published events out to named sinks from a single
// dispatch goroutine. Publish never blocks the caller: when the queue
// is full the event is dropped and counted.
type Router struct {
	cfg      Config
	queue    chan Event
	sinks    map[string]Sink
	names    []string
	clock    Clock
	fallback *log.Logger
	done     chan struct{}
	closed   atomic.Bool
	wg       sync.WaitGroup

	eventsTotal  atomic.Uint64
	droppedTotal atomic.Uint64
	lastDropLog  atomic.Int64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks map[string]Sink) (*Router, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.Default()
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Router{
		cfg:      cfg,
		queue:    make(chan Event, bufferSize),
		sinks:    make(map[string]Sink, len(sinks)),
		clock:    clock,
		fallback: fallback,
		done:     make(chan struct{}),
	}
	for name, sink := range sinks {
		if sink == nil {
			continue
		}
		r.sinks[name] = sink
		r.names = append(r.names, name)
	}

	r.wg.Add(1)
	go r.dispatch()
	return r, nil
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			// Flush whatever queued before Close.
			for {
				select {
				case event := <-r.queue:
					r.forward(event)
				default:
					return
				}
			}
		case event := <-r.queue:
			r.forward(event)
		}
	}
}

func (r *Router) forward(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if fields := r.cfg.CloneFields(); len(fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	r.eventsTotal.Add(1)
	for _, name := range r.names {
		if err := r.sinks[name].Write(event); err != nil {
			r.fallback.Printf("sink %s failed: %v", name, err)
		}
	}
}

func (r *Router) Publish(ctx context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.handleDrop(event)
	}
}

func (r *Router) handleDrop(event Event) {
	r.droppedTotal.Add(1)
	interval := r.cfg.DropWarnInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if next == 0 || now >= next {
		if r.lastDropLog.CompareAndSwap(next, now+interval.Nanoseconds()) {
			r.fallback.Printf("dropping diagnostic event type=%s", event.Type)
		}
	}
}

func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(r.done)
	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, name := range r.names {
		if err := r.sinks[name].Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		EventsTotal:  r.eventsTotal.Load(),
		DroppedTotal: r.droppedTotal.Load(),
	}
}

func (r *Router) Sink(name string) Sink {
	return r.sinks[name]
}
