package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"tankdown/client/internal/catalog"
)

const testElements = `{
  "Tk": [{"texture": "tank-body"}],
  "Shell": [{"texture": "shell"}],
  "Wall": [{"texture": "brick", "background": true}]
}`

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.ElementTypes == nil {
		elements, err := catalog.ParseElements([]byte(testElements))
		if err != nil {
			t.Fatalf("ParseElements: %v", err)
		}
		cfg.ElementTypes = elements
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func decodeAll(t *testing.T, registry *Registry, lines ...string) []Record {
	t.Helper()
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		rec, err := registry.Decode([]byte(line))
		if err != nil {
			t.Fatalf("Decode(%s): %v", line, err)
		}
		records = append(records, rec)
	}
	return records
}

func TestAdvanceAppliesDueEventsInOrder(t *testing.T) {
	engine := newTestEngine(t, Config{})
	records := decodeAll(t, engine.Registry(),
		`{"t": 1000, "type": "EleCrt", "uid": 1, "name": "Tk", "x": 0, "y": 0}`,
		`{"t": 2000, "type": "EleCrt", "uid": 2, "name": "Tk", "x": 1, "y": 1}`,
		`{"t": 3000, "type": "EleCrt", "uid": 3, "name": "Tk", "x": 2, "y": 2}`,
	)
	if err := engine.Preload(records); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	engine.Advance(2500)
	if _, ok := engine.Element(1); !ok {
		t.Fatal("event at t=1000 not applied by t=2500")
	}
	if _, ok := engine.Element(2); !ok {
		t.Fatal("event at t=2000 not applied by t=2500")
	}
	if _, ok := engine.Element(3); ok {
		t.Fatal("event at t=3000 applied early")
	}
	if pending := engine.PendingEvents(); pending != 1 {
		t.Fatalf("expected 1 queued event, got %d", pending)
	}

	engine.Advance(500)
	if _, ok := engine.Element(3); !ok {
		t.Fatal("event at t=3000 not applied at t=3000")
	}
}

func TestClockIsMonotonic(t *testing.T) {
	engine := newTestEngine(t, Config{})
	engine.Advance(100)
	engine.Advance(0)
	engine.Advance(-50)
	if got := engine.Now(); got != 100 {
		t.Fatalf("clock moved unexpectedly: %v", got)
	}
}

func TestFailStopOnMalformedEvent(t *testing.T) {
	var callbacks int
	var captured []string
	engine := newTestEngine(t, Config{
		OnError: func(messages []string) {
			callbacks++
			captured = messages
		},
	})

	// The update references an element that never existed; the create
	// queued behind it has an earlier timestamp and must still never run.
	records := decodeAll(t, engine.Registry(),
		`{"t": 1000, "type": "EleUpd", "uid": 99, "rad": 1.0}`,
		`{"t": 500, "type": "EleCrt", "uid": 5, "name": "Tk", "x": 0, "y": 0}`,
	)
	if err := engine.Preload(records); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	engine.Advance(2000)
	if !engine.Halted() {
		t.Fatal("engine did not halt on handler failure")
	}
	if _, ok := engine.Element(5); ok {
		t.Fatal("event behind the failing one was applied")
	}

	engine.Advance(2000)
	if _, ok := engine.Element(5); ok {
		t.Fatal("halted engine resumed draining on a later tick")
	}

	if callbacks != 1 {
		t.Fatalf("error callback fired %d times, want 1", callbacks)
	}
	found := false
	for _, msg := range captured {
		if strings.Contains(msg, "t=1000") {
			found = true
		}
	}
	if !found {
		t.Fatalf("error messages missing failing timestamp: %v", captured)
	}
}

func TestErrorCallbackFiresOnceAcrossConditions(t *testing.T) {
	var callbacks int
	var captured []string
	engine := newTestEngine(t, Config{
		OnError: func(messages []string) {
			callbacks++
			captured = messages
		},
	})

	engine.ReportChannelFailure(fmt.Errorf("connection reset"))

	// A halt after the channel failure reaches the diagnostic sink but
	// not the host callback.
	records := decodeAll(t, engine.Registry(),
		`{"t": 100, "type": "EleUpd", "uid": 42, "rad": 0.5}`,
	)
	if err := engine.Preload(records); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	engine.Advance(200)
	if !engine.Halted() {
		t.Fatal("engine did not halt on handler failure")
	}

	if callbacks != 1 {
		t.Fatalf("error callback fired %d times, want 1", callbacks)
	}
	if len(captured) != 1 || !strings.Contains(captured[0], "channel failure") {
		t.Fatalf("callback did not carry the first condition: %v", captured)
	}
}

func TestElementLifecycleAndRoster(t *testing.T) {
	var rosterCalls int
	var lastRoster []Player
	engine := newTestEngine(t, Config{
		OnRoster: func(players []Player) {
			rosterCalls++
			lastRoster = players
		},
	})

	if err := engine.AddElement(28, "Tk", 1.5, 1.5, WithPlayer("A")); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if rosterCalls != 1 {
		t.Fatalf("roster callback fired %d times after join, want 1", rosterCalls)
	}
	if len(lastRoster) != 1 || lastRoster[0].Name != "A" {
		t.Fatalf("unexpected roster after join: %v", lastRoster)
	}

	engine.RemoveElement(28)
	if _, ok := engine.Element(28); ok {
		t.Fatal("element 28 still present after removal")
	}
	if rosterCalls != 2 {
		t.Fatalf("roster callback fired %d times after removal, want 2", rosterCalls)
	}
	if len(lastRoster) != 0 {
		t.Fatalf("roster not emptied: %v", lastRoster)
	}

	// Unknown ids are a no-op and must not re-notify.
	engine.RemoveElement(28)
	if rosterCalls != 2 {
		t.Fatal("removing an unknown element fired the roster callback")
	}
}

func TestAddElementRejectsUnknownType(t *testing.T) {
	engine := newTestEngine(t, Config{})
	if err := engine.AddElement(1, "Dragon", 0, 0); err == nil {
		t.Fatal("expected an error for a type missing from the catalog")
	}
}

func TestAddElementRejectsDuplicateID(t *testing.T) {
	engine := newTestEngine(t, Config{})
	if err := engine.AddElement(7, "Tk", 0, 0); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := engine.AddElement(7, "Wall", 1, 1); err == nil {
		t.Fatal("expected an error for a duplicate element id")
	}
}

func TestEndToEndReplayScenario(t *testing.T) {
	engine := newTestEngine(t, Config{})
	records := decodeAll(t, engine.Registry(),
		`{"t": 0, "type": "MapCrt", "name": "arena", "width": 24, "height": 18}`,
		`{"t": 1000, "type": "EleCrt", "uid": 28, "name": "Tk", "x": 1.5, "y": 1.5, "player": "A"}`,
		`{"t": 2000, "type": "EleUpd", "uid": 28, "rad": -1.0}`,
	)
	if err := engine.Preload(records); err != nil {
		t.Fatalf("Preload: %v", err)
	}

	engine.Advance(2500)

	snapshot := engine.Snapshot()
	if len(snapshot.Elements) != 1 {
		t.Fatalf("expected exactly one element, got %d", len(snapshot.Elements))
	}
	el, ok := engine.Element(28)
	if !ok {
		t.Fatal("element 28 missing")
	}
	if el.Rad != -1.0 {
		t.Fatalf("update not applied: rad=%v", el.Rad)
	}
	if el.X != 1.5 || el.Y != 1.5 {
		t.Fatalf("unexpected position: %v,%v", el.X, el.Y)
	}
	if snapshot.MapName != "arena" || snapshot.MapWidth != 24 {
		t.Fatalf("map event not applied: %+v", snapshot)
	}
	if len(snapshot.Players) != 1 || snapshot.Players[0].Name != "A" {
		t.Fatalf("unexpected roster: %v", snapshot.Players)
	}
}

func TestEnqueuedLiveEventAppliesOnNextDrainPass(t *testing.T) {
	engine := newTestEngine(t, Config{})
	engine.Advance(5000)

	rec := decodeAll(t, engine.Registry(),
		`{"t": 4000, "type": "EleCrt", "uid": 11, "name": "Shell", "x": 0, "y": 0}`,
	)[0]
	engine.Enqueue(rec)

	if _, ok := engine.Element(11); ok {
		t.Fatal("live event visible before a drain pass")
	}
	engine.Advance(0)
	if _, ok := engine.Element(11); !ok {
		t.Fatal("stale-timestamped live event not applied on the next pass")
	}
}

func TestPreloadAfterStartFails(t *testing.T) {
	engine := newTestEngine(t, Config{})
	stop := engine.Start()
	defer stop()

	if err := engine.Preload(nil); err == nil {
		t.Fatal("expected Preload to fail once running")
	}
}

func TestGameOverEvent(t *testing.T) {
	engine := newTestEngine(t, Config{})
	records := decodeAll(t, engine.Registry(),
		`{"t": 1000, "type": "GameOvr", "winner": "A"}`,
	)
	if err := engine.Preload(records); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	engine.Advance(1500)
	finished, winner := engine.Finished()
	if !finished || winner != "A" {
		t.Fatalf("unexpected game-over state: %v %q", finished, winner)
	}
}

func TestWindowResizeForwardsToView(t *testing.T) {
	view := &recordingView{}
	engine := newTestEngine(t, Config{View: view})
	engine.WindowResize(800, 600)
	if view.width != 800 || view.height != 600 {
		t.Fatalf("resize not forwarded: %dx%d", view.width, view.height)
	}
	engine.Render()
	if view.renders != 1 {
		t.Fatalf("render calls = %d, want 1", view.renders)
	}
}

type recordingView struct {
	width, height int
	renders       int
}

func (v *recordingView) Render(Snapshot) { v.renders++ }
func (v *recordingView) Resize(w, h int) { v.width, v.height = w, h }

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()
	decode := func(raw json.RawMessage) (any, error) { return nil, nil }
	apply := func(e *Engine, payload any) error { return nil }

	if err := r.Register("", KindMapCreate, decode, apply); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := r.Register("X", EventKind(99), decode, apply); err == nil {
		t.Fatal("unknown kind accepted")
	}
	if err := r.Register("X", KindMapCreate, nil, apply); err == nil {
		t.Fatal("nil decoder accepted")
	}
	if err := r.Register("X", KindMapCreate, decode, apply); err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}
	if err := r.Register("X", KindElementCreate, decode, apply); err == nil {
		t.Fatal("duplicate name accepted")
	}
	if err := r.Register("Y", KindMapCreate, decode, apply); err == nil {
		t.Fatal("duplicate kind accepted")
	}
}

func TestDecodeRejectsMalformedMessages(t *testing.T) {
	registry := DefaultRegistry()
	cases := []string{
		`not json`,
		`{"type": "EleCrt", "uid": 1}`,
		`{"t": -5, "type": "EleCrt", "uid": 1}`,
		`{"t": 100, "type": "Nope"}`,
		`{"t": 100, "type": "EleCrt", "uid": "not-a-number"}`,
	}
	for i, raw := range cases {
		if _, err := registry.Decode([]byte(raw)); err == nil {
			t.Fatalf("case %d: malformed message %q decoded", i, raw)
		}
	}
}

func TestDecodePreservesPayloadFields(t *testing.T) {
	registry := DefaultRegistry()
	rec, err := registry.Decode([]byte(`{"t": 1000, "type": "EleCrt", "uid": 28, "name": "Tk", "x": 1.5, "y": 1.5, "player": "A"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.T != 1000 || rec.Kind != KindElementCreate {
		t.Fatalf("unexpected envelope: %+v", rec)
	}
	payload, ok := rec.Payload().(*ElementCreatePayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", rec.Payload())
	}
	if payload.UID != 28 || payload.Name != "Tk" || payload.Player != "A" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestEventKindString(t *testing.T) {
	if got := KindElementUpdate.String(); got != TypeElementUpdate {
		t.Fatalf("String() = %q", got)
	}
	if got := EventKind(42).String(); got != fmt.Sprintf("EventKind(%d)", 42) {
		t.Fatalf("String() = %q", got)
	}
}
