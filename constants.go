package client

import "time"

const (
	// tickRate paces the engine's clock advance and drain passes.
	tickRate = 30 // ticks per second

	// writeWait bounds every outbound channel write.
	writeWait = 10 * time.Second

	// OpenTimeout bounds how long a channel dial may take before the
	// connection attempt is treated as failed. There is no retry; the
	// caller must re-initiate.
	OpenTimeout = 10 * time.Second

	// defaultElementSize is used when a create event carries no size.
	defaultElementSize = 1.0

	// inboxDepth sizes the live-ingestion inbox. Inbound events are
	// drained every tick, so the buffer only has to absorb one tick's
	// worth of traffic.
	inboxDepth = 1024
)
