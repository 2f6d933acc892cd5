package logging_test

import (
	"context"
	"testing"
	"time"

	"tankdown/client/logging"
	"tankdown/client/logging/sinks"
)

func TestRouterForwardsToSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(logging.DefaultConfig(), nil, nil, map[string]logging.Sink{
		"memory": memory,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     logging.TypeEventApplied,
		SimTime:  1000,
		Severity: logging.SeverityInfo,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != logging.TypeEventApplied {
		t.Fatalf("unexpected type %q", events[0].Type)
	}
	if events[0].Time.IsZero() {
		t.Fatal("router must stamp event time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn

	router, err := logging.NewRouter(cfg, nil, nil, map[string]logging.Sink{
		"memory": memory,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: logging.TypeCommandSent, Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: logging.TypeEngineHalted, Severity: logging.SeverityError})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the error event, got %d", len(events))
	}
	if events[0].Type != logging.TypeEngineHalted {
		t.Fatalf("unexpected type %q", events[0].Type)
	}
}

func TestRouterAppliesDefaultFields(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"mode": "replay"}

	router, err := logging.NewRouter(cfg, nil, nil, map[string]logging.Sink{
		"memory": memory,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: logging.TypeChannelOpened, Severity: logging.SeverityInfo})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["mode"] != "replay" {
		t.Fatalf("default field missing: %#v", events[0].Extra)
	}
}
