package logging

import (
	"context"
	"time"
)

type EventType string

// Event types emitted by the client runtime.
const (
	TypeEventApplied  EventType = "event.applied"
	TypeEventRejected EventType = "event.rejected"
	TypeEngineHalted  EventType = "engine.halted"
	TypeTaskFinished  EventType = "task.finished"
	TypeTaskRunFailed EventType = "taskrun.failed"
	TypeChannelOpened EventType = "channel.opened"
	TypeChannelClosed EventType = "channel.closed"
	TypeCommandSent   EventType = "command.sent"
	TypeRosterChanged EventType = "roster.changed"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindElement EntityKind = "element"
	EntityKindPlayer  EntityKind = "player"
	EntityKindTask    EntityKind = "task"
	EntityKindChannel EntityKind = "channel"
	EntityKindEngine  EntityKind = "engine"
)

// Event is one structured diagnostic record. SimTime carries the
// engine's simulation clock in milliseconds when the record relates to
// event processing; it stays zero for bootstrap and channel records.
type Event struct {
	Type     EventType      `json:"type"`
	SimTime  float64        `json:"simTime,omitempty"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	RunID    string         `json:"runId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// Publisher is the diagnostic surface handed to the runtime's
// subsystems.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

type fieldPublisher struct {
	next   Publisher
	fields map[string]any
}

func (p *fieldPublisher) Publish(ctx context.Context, event Event) {
	if p.next == nil {
		return
	}
	if len(p.fields) > 0 {
		event = cloneEvent(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(p.fields))
		}
		for k, v := range p.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}
	p.next.Publish(ctx, event)
}

func cloneEvent(event Event) Event {
	cloned := event
	if event.Extra != nil {
		copied := make(map[string]any, len(event.Extra))
		for k, v := range event.Extra {
			copied[k] = v
		}
		cloned.Extra = copied
	}
	return cloned
}

// WithFields layers default Extra fields onto every published event.
func WithFields(p Publisher, fields map[string]any) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if len(fields) == 0 {
		return p
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return &fieldPublisher{next: p, fields: copied}
}

func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
