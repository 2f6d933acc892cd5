// Package client is the runtime core of the tankdown game client: a
// discrete-event engine that owns the simulation clock and element set,
// applies a monotonically-timestamped event stream assembled from replay
// preloads and/or a live channel, and exposes collaborator callbacks for
// the host's UI layer.
package client

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"tankdown/client/internal/catalog"
	"tankdown/client/logging"
)

// View is the excluded rendering collaborator. Render and Resize are
// pass-through geometry recomputation and take no part in the
// event-ordering contract.
type View interface {
	Render(snapshot Snapshot)
	Resize(width, height int)
}

// Snapshot is a copy of the engine's observable state handed to the
// View each tick.
type Snapshot struct {
	Now       float64
	MapName   string
	MapWidth  float64
	MapHeight float64
	Elements  []Element
	Players   []Player
}

// Config wires an Engine's collaborators at construction time.
type Config struct {
	ElementTypes *catalog.Elements
	Textures     *catalog.Textures
	Registry     *Registry
	Publisher    logging.Publisher
	// OnError receives an ordered message list on the first
	// unrecoverable condition, a malformed event or a channel failure,
	// and is never invoked again for that engine. Later conditions of
	// either kind reach only the diagnostic sink.
	OnError func(messages []string)
	// OnRoster receives the updated player roster after every change.
	OnRoster func(players []Player)
	View     View
}

// Engine owns the simulation clock, the pending event queue, the
// element set, and the player roster. All of that state is mutated by a
// single logical thread: before Start, the constructing goroutine; after
// Start, the control loop. Other goroutines reach the engine only
// through Enqueue and the atomic clock mirror.
type Engine struct {
	registry     *Registry
	elementTypes *catalog.Elements
	textures     *catalog.Textures
	pub          logging.Publisher
	view         View
	onError      func([]string)
	onRoster     func([]Player)

	queue    eventQueue
	elements map[int64]*Element
	roster   []Player

	now       float64 // simulation clock, milliseconds
	clockBits atomic.Uint64

	mapName   string
	mapWidth  float64
	mapHeight float64

	finished bool
	winner   string

	halted     bool
	inbox      chan Record
	running    atomic.Bool
	errOnce    atomic.Bool
	viewWidth  int
	viewHeight int
}

// NewEngine constructs an idle engine. Start (or Run) moves it to the
// running state; there is no stop or pause transition beyond the stop
// channel handed to the loop.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ElementTypes == nil {
		return nil, fmt.Errorf("engine requires an element-type catalog")
	}
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Engine{
		registry:     registry,
		elementTypes: cfg.ElementTypes,
		textures:     cfg.Textures,
		pub:          pub,
		view:         cfg.View,
		onError:      cfg.OnError,
		onRoster:     cfg.OnRoster,
		elements:     make(map[int64]*Element),
		inbox:        make(chan Record, inboxDepth),
	}, nil
}

// Registry exposes the engine's event registry so ingestion components
// decode against the same bindings.
func (e *Engine) Registry() *Registry { return e.registry }

// Preload appends already-sorted records to the queue. It is only legal
// before the engine starts running.
func (e *Engine) Preload(records []Record) error {
	if e.running.Load() {
		return fmt.Errorf("preload after start")
	}
	for _, rec := range records {
		e.queue.push(rec)
	}
	return nil
}

// Enqueue hands a live record to the engine. The record joins the FIFO
// on the control goroutine's next drain pass, which keeps queue
// insertion and tick-driven draining from racing; a record timestamped
// at or below the current clock is applied on that next pass.
func (e *Engine) Enqueue(rec Record) {
	e.inbox <- rec
}

// Now returns the simulation clock in milliseconds. Safe to call from
// any goroutine.
func (e *Engine) Now() float64 {
	return math.Float64frombits(e.clockBits.Load())
}

// Tick is Now truncated to an integer millisecond, the form commands
// are stamped with on the wire.
func (e *Engine) Tick() int64 {
	return int64(e.Now())
}

// Run drives the tick loop until the stop channel closes. The first
// call wins; the transition to running is one-way.
func (e *Engine) Run(stop <-chan struct{}) {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.loop(stop)
}

// Start launches the tick loop on its own goroutine and returns an
// idempotent stopper.
func (e *Engine) Start() (stop func()) {
	ch := make(chan struct{})
	var once sync.Once
	stop = func() { once.Do(func() { close(ch) }) }
	if !e.running.CompareAndSwap(false, true) {
		return stop
	}
	go e.loop(ch)
	return stop
}

func (e *Engine) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case rec := <-e.inbox:
			e.queue.push(rec)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds() * 1000
			if dt <= 0 {
				dt = 1000.0 / tickRate
			}
			last = now
			e.Advance(dt)
			if e.view != nil {
				e.view.Render(e.Snapshot())
			}
		}
	}
}

// Advance moves the clock forward by dt milliseconds and applies every
// due record in arrival order. After a handler failure the engine is
// halted: the clock still advances but no further record is ever
// applied.
func (e *Engine) Advance(dt float64) {
	e.drainInbox()
	if dt > 0 {
		e.now += dt
		e.clockBits.Store(math.Float64bits(e.now))
	}
	if e.halted {
		return
	}
	for {
		front, ok := e.queue.peek()
		if !ok || front.T > e.now {
			return
		}
		rec, _ := e.queue.pop()
		if err := rec.applyTo(e); err != nil {
			e.halt(rec, err)
			return
		}
		e.pub.Publish(context.Background(), logging.Event{
			Type:     logging.TypeEventApplied,
			SimTime:  rec.T,
			Severity: logging.SeverityDebug,
			Actor:    logging.EntityRef{ID: rec.Type, Kind: logging.EntityKindEngine},
		})
	}
}

func (e *Engine) drainInbox() {
	for {
		select {
		case rec := <-e.inbox:
			e.queue.push(rec)
		default:
			return
		}
	}
}

// halt implements the fail-stop policy for malformed events: report the
// timestamp and cause to the diagnostic sink, fire the error callback,
// and refuse to drain ever again. Events queued behind the failing one
// are deliberately abandoned because simulation state is unreliable
// after a garbled event.
func (e *Engine) halt(rec Record, cause error) {
	e.halted = true
	msg := fmt.Sprintf("event %s at t=%.0f: %v", rec.Type, rec.T, cause)
	e.pub.Publish(context.Background(), logging.Event{
		Type:     logging.TypeEngineHalted,
		SimTime:  rec.T,
		Severity: logging.SeverityError,
		Actor:    logging.EntityRef{ID: rec.Type, Kind: logging.EntityKindEngine},
		Message:  msg,
	})
	e.fireError([]string{"simulation halted", msg})
}

// ReportChannelFailure surfaces a live-channel failure through the
// engine's error callback. Used by the ingestion layer.
func (e *Engine) ReportChannelFailure(cause error) {
	msg := fmt.Sprintf("channel failure: %v", cause)
	e.pub.Publish(context.Background(), logging.Event{
		Type:     logging.TypeChannelClosed,
		Severity: logging.SeverityError,
		Actor:    logging.EntityRef{Kind: logging.EntityKindChannel},
		Message:  msg,
	})
	e.fireError([]string{msg})
}

// fireError invokes the host error callback at most once per engine;
// every unrecoverable condition after the first only reaches the
// diagnostic sink.
func (e *Engine) fireError(messages []string) {
	if !e.errOnce.CompareAndSwap(false, true) {
		return
	}
	if e.onError != nil {
		e.onError(messages)
	}
}

// AddElement creates an element. It fails when typeName is not in the
// element-type catalog or the id is already live.
func (e *Engine) AddElement(id int64, typeName string, x, y float64, opts ...ElementOption) error {
	if !e.elementTypes.Has(typeName) {
		return fmt.Errorf("unknown element type %q", typeName)
	}
	if _, exists := e.elements[id]; exists {
		return fmt.Errorf("element %d already exists", id)
	}
	el := &Element{ID: id, Type: typeName, X: x, Y: y, Size: defaultElementSize}
	for _, opt := range opts {
		opt(el)
	}
	e.elements[id] = el
	if el.Player != "" {
		e.roster = append(e.roster, Player{Name: el.Player, ElementID: id})
		e.notifyRoster()
	}
	return nil
}

// RemoveElement destroys an element; unknown ids are a no-op. Removing
// an element that fills a player role also drops that player from the
// roster and notifies the roster collaborator.
func (e *Engine) RemoveElement(id int64) {
	el, ok := e.elements[id]
	if !ok {
		return
	}
	delete(e.elements, id)
	if el.Player == "" {
		return
	}
	for i, p := range e.roster {
		if p.ElementID == id {
			e.roster = append(e.roster[:i], e.roster[i+1:]...)
			break
		}
	}
	e.notifyRoster()
}

// Element looks up a live element by id, returning a copy.
func (e *Engine) Element(id int64) (Element, bool) {
	el, ok := e.elements[id]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// element is the handlers' mutable view.
func (e *Engine) element(id int64) (*Element, bool) {
	el, ok := e.elements[id]
	return el, ok
}

// Players returns the roster in join order.
func (e *Engine) Players() []Player {
	players := make([]Player, len(e.roster))
	copy(players, e.roster)
	return players
}

func (e *Engine) notifyRoster() {
	players := e.Players()
	e.pub.Publish(context.Background(), logging.Event{
		Type:     logging.TypeRosterChanged,
		SimTime:  e.now,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{Kind: logging.EntityKindPlayer},
		Extra:    map[string]any{"players": len(players)},
	})
	if e.onRoster != nil {
		e.onRoster(players)
	}
}

func (e *Engine) setMap(name string, width, height float64) {
	e.mapName = name
	e.mapWidth = width
	e.mapHeight = height
}

func (e *Engine) finish(winner string) {
	e.finished = true
	e.winner = winner
}

// Finished reports whether a GameOvr event has been applied, and the
// winning player if one was named.
func (e *Engine) Finished() (bool, string) {
	return e.finished, e.winner
}

// PendingEvents reports how many records remain queued.
func (e *Engine) PendingEvents() int {
	return e.queue.len()
}

// NextEventTime returns the timestamp of the front queued record.
// Replay drivers use it to fast-forward the clock between events.
func (e *Engine) NextEventTime() (float64, bool) {
	front, ok := e.queue.peek()
	if !ok {
		return 0, false
	}
	return front.T, true
}

// Halted reports whether the fail-stop policy has tripped.
func (e *Engine) Halted() bool { return e.halted }

// Snapshot copies the observable state for the View.
func (e *Engine) Snapshot() Snapshot {
	elements := make([]Element, 0, len(e.elements))
	for _, el := range e.elements {
		elements = append(elements, *el)
	}
	return Snapshot{
		Now:       e.now,
		MapName:   e.mapName,
		MapWidth:  e.mapWidth,
		MapHeight: e.mapHeight,
		Elements:  elements,
		Players:   e.Players(),
	}
}

// Render forwards a snapshot to the registered View, if any.
func (e *Engine) Render() {
	if e.view == nil {
		return
	}
	e.view.Render(e.Snapshot())
}

// WindowResize records the host viewport and forwards it to the View.
func (e *Engine) WindowResize(width, height int) {
	e.viewWidth = width
	e.viewHeight = height
	if e.view != nil {
		e.view.Resize(width, height)
	}
}
