package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"tankdown/client/logging"
)

type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{logger: log.New(w, "", log.LstdFlags)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	s.logger.Printf("[%s] sim=%.0f actor=%s severity=%s%s%s",
		event.Type, event.SimTime, formatEntity(event.Actor), formatSeverity(event.Severity),
		formatMessage(event.Message), formatExtra(event.Extra))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatMessage(msg string) string {
	if msg == "" {
		return ""
	}
	return fmt.Sprintf(" msg=%q", msg)
}

func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return fmt.Sprintf(" extra=%v", extra)
	}
	return fmt.Sprintf(" extra=%s", data)
}
