package client

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates the event families the engine can apply. The
// registry validates kinds at registration time so a record can never
// reach the engine with an unbound handler.
type EventKind uint8

const (
	KindMapCreate EventKind = iota + 1
	KindElementCreate
	KindElementUpdate
	KindElementRemove
	KindGameOver
	kindSentinel
)

// Wire names for the event kinds, shared by replay files and live
// channel traffic.
const (
	TypeMapCreate     = "MapCrt"
	TypeElementCreate = "EleCrt"
	TypeElementUpdate = "EleUpd"
	TypeElementRemove = "EleDst"
	TypeGameOver      = "GameOvr"
)

func (k EventKind) String() string {
	switch k {
	case KindMapCreate:
		return TypeMapCreate
	case KindElementCreate:
		return TypeElementCreate
	case KindElementUpdate:
		return TypeElementUpdate
	case KindElementRemove:
		return TypeElementRemove
	case KindGameOver:
		return TypeGameOver
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Handler applies one decoded payload to the engine. Handlers run on
// the engine's control goroutine and must return an error rather than
// panic on malformed payloads.
type Handler func(e *Engine, payload any) error

// DecodeFunc turns the raw wire message into the kind's typed payload.
type DecodeFunc func(raw json.RawMessage) (any, error)

// Record is an immutable, timestamped, typed instruction to mutate
// simulation state. Payloads are decoded when the record is built, so a
// queued record can always be applied without further parsing.
type Record struct {
	// T is the simulation timestamp in milliseconds.
	T       float64
	Kind    EventKind
	Type    string
	payload any
	apply   Handler
}

// Payload exposes the decoded payload, mainly for tests and tooling.
func (r Record) Payload() any { return r.payload }

func (r Record) applyTo(e *Engine) error {
	if r.apply == nil {
		return fmt.Errorf("record %s has no handler", r.Type)
	}
	return r.apply(e, r.payload)
}

type binding struct {
	kind   EventKind
	decode DecodeFunc
	apply  Handler
}

// Registry maps wire type names to enumerated kinds, decoders, and
// handlers. All lookups that can fail do so at registration time.
type Registry struct {
	byName map[string]binding
	byKind map[EventKind]string
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]binding),
		byKind: make(map[EventKind]string),
	}
}

// Register binds a wire type name to its kind, decoder, and handler.
func (r *Registry) Register(name string, kind EventKind, decode DecodeFunc, apply Handler) error {
	if name == "" {
		return fmt.Errorf("register event: empty type name")
	}
	if kind == 0 || kind >= kindSentinel {
		return fmt.Errorf("register event %q: unknown kind %d", name, kind)
	}
	if decode == nil || apply == nil {
		return fmt.Errorf("register event %q: decoder and handler are required", name)
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("register event %q: name already bound", name)
	}
	if existing, dup := r.byKind[kind]; dup {
		return fmt.Errorf("register event %q: kind %s already bound to %q", name, kind, existing)
	}
	r.byName[name] = binding{kind: kind, decode: decode, apply: apply}
	r.byKind[kind] = name
	return nil
}

type envelope struct {
	T    *float64 `json:"t"`
	Type string   `json:"type"`
}

// Decode builds a Record from one wire message shaped {t, type, ...}.
func (r *Registry) Decode(raw []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Record{}, fmt.Errorf("decode event: %w", err)
	}
	if env.T == nil {
		return Record{}, fmt.Errorf("decode event: missing timestamp")
	}
	if *env.T < 0 {
		return Record{}, fmt.Errorf("decode event %q: negative timestamp %v", env.Type, *env.T)
	}
	b, ok := r.byName[env.Type]
	if !ok {
		return Record{}, fmt.Errorf("decode event: unknown type %q", env.Type)
	}
	payload, err := b.decode(raw)
	if err != nil {
		return Record{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return Record{T: *env.T, Kind: b.kind, Type: env.Type, payload: payload, apply: b.apply}, nil
}

func decodeInto[P any](raw json.RawMessage) (any, error) {
	var p P
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MapCreatePayload announces the playing field.
type MapCreatePayload struct {
	Name   string  `json:"name,omitempty"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementCreatePayload spawns an element; UID is assigned by the event
// source, never by the client.
type ElementCreatePayload struct {
	UID    int64   `json:"uid"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rad    float64 `json:"rad"`
	Size   float64 `json:"size,omitempty"`
	Color  string  `json:"color,omitempty"`
	Player string  `json:"player,omitempty"`
}

// ElementUpdatePayload carries partial updates; absent fields leave the
// element untouched.
type ElementUpdatePayload struct {
	UID  int64    `json:"uid"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Rad  *float64 `json:"rad,omitempty"`
	Size *float64 `json:"size,omitempty"`
}

type ElementRemovePayload struct {
	UID int64 `json:"uid"`
}

type GameOverPayload struct {
	Winner string `json:"winner,omitempty"`
}

// DefaultRegistry binds the standard event set. Registration errors are
// impossible for the built-in bindings, so it panics on one; an
// inconsistent dispatch table is a programming error.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(r.Register(TypeMapCreate, KindMapCreate, decodeInto[MapCreatePayload], applyMapCreate))
	must(r.Register(TypeElementCreate, KindElementCreate, decodeInto[ElementCreatePayload], applyElementCreate))
	must(r.Register(TypeElementUpdate, KindElementUpdate, decodeInto[ElementUpdatePayload], applyElementUpdate))
	must(r.Register(TypeElementRemove, KindElementRemove, decodeInto[ElementRemovePayload], applyElementRemove))
	must(r.Register(TypeGameOver, KindGameOver, decodeInto[GameOverPayload], applyGameOver))
	return r
}

func applyMapCreate(e *Engine, payload any) error {
	p, ok := payload.(*MapCreatePayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", TypeMapCreate, payload)
	}
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%s: negative map size %vx%v", TypeMapCreate, p.Width, p.Height)
	}
	e.setMap(p.Name, p.Width, p.Height)
	return nil
}

func applyElementCreate(e *Engine, payload any) error {
	p, ok := payload.(*ElementCreatePayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", TypeElementCreate, payload)
	}
	opts := []ElementOption{WithRadians(p.Rad)}
	if p.Size > 0 {
		opts = append(opts, WithSize(p.Size))
	}
	if p.Color != "" {
		opts = append(opts, WithColor(p.Color))
	}
	if p.Player != "" {
		opts = append(opts, WithPlayer(p.Player))
	}
	return e.AddElement(p.UID, p.Name, p.X, p.Y, opts...)
}

func applyElementUpdate(e *Engine, payload any) error {
	p, ok := payload.(*ElementUpdatePayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", TypeElementUpdate, payload)
	}
	el, ok := e.element(p.UID)
	if !ok {
		return fmt.Errorf("%s: unknown element %d", TypeElementUpdate, p.UID)
	}
	if p.X != nil {
		el.X = *p.X
	}
	if p.Y != nil {
		el.Y = *p.Y
	}
	if p.Rad != nil {
		el.Rad = *p.Rad
	}
	if p.Size != nil {
		el.Size = *p.Size
	}
	return nil
}

func applyElementRemove(e *Engine, payload any) error {
	p, ok := payload.(*ElementRemovePayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", TypeElementRemove, payload)
	}
	e.RemoveElement(p.UID)
	return nil
}

func applyGameOver(e *Engine, payload any) error {
	p, ok := payload.(*GameOverPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", TypeGameOver, payload)
	}
	e.finish(p.Winner)
	return nil
}
