// Package recorder captures a live event stream into a replay
// document. Raw inbound messages are buffered in arrival order and
// written out as one JSON array, the format the replay loader reads
// back.
package recorder

import (
	"fmt"
	"io"
	"sync"
)

// Recorder accumulates raw event documents. Note is safe to call from
// the channel's read goroutine while other goroutines inspect Count.
type Recorder struct {
	mu      sync.Mutex
	entries [][]byte
	closed  bool
}

func New() *Recorder {
	return &Recorder{}
}

// Note buffers one raw event document. The payload is copied; callers
// may reuse the slice. Entries noted after Flush are dropped.
func (r *Recorder) Note(raw []byte) {
	if r == nil || len(raw) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	entry := make([]byte, len(raw))
	copy(entry, raw)
	r.entries = append(r.entries, entry)
}

// Count reports how many events have been captured.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Flush writes the captured stream as a JSON array and seals the
// recorder. Flushing an empty recorder writes an empty array.
func (r *Recorder) Flush(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	if _, err := io.WriteString(w, "[\n"); err != nil {
		return fmt.Errorf("write replay document: %w", err)
	}
	for i, entry := range r.entries {
		sep := ",\n"
		if i == len(r.entries)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, "  "); err != nil {
			return fmt.Errorf("write replay document: %w", err)
		}
		if _, err := w.Write(entry); err != nil {
			return fmt.Errorf("write replay document: %w", err)
		}
		if _, err := io.WriteString(w, sep); err != nil {
			return fmt.Errorf("write replay document: %w", err)
		}
	}
	if _, err := io.WriteString(w, "]\n"); err != nil {
		return fmt.Errorf("write replay document: %w", err)
	}
	return nil
}
