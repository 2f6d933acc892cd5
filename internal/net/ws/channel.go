// Package ws bridges one bidirectional websocket channel to the event
// engine: inbound messages decode into event records and join the
// engine's queue in arrival order; outbound input commands are stamped
// with the engine clock and written one per message.
//
// The remote peer is trusted to send events in non-decreasing timestamp
// order; this package performs no reordering and applies no
// backpressure.
package ws

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	client "tankdown/client"
	"tankdown/client/internal/proto"
	"tankdown/client/logging"
)

// Config carries the channel's optional collaborators.
type Config struct {
	Logger    *log.Logger
	Publisher logging.Publisher
	// OpenTimeout overrides the default dial deadline; zero keeps it.
	OpenTimeout time.Duration
	// Tap observes each inbound event document that decoded cleanly,
	// before it joins the engine queue. Stream capture hangs off this.
	Tap func(raw []byte)
}

// Channel is an open live connection. Exactly one of read error, peer
// close, or local Close settles the channel; whichever happens first
// commits the outcome and the rest become no-ops.
type Channel struct {
	conn    *websocket.Conn
	engine  *client.Engine
	logger  *log.Logger
	pub     logging.Publisher
	tap     func(raw []byte)
	writeMu sync.Mutex
	settled atomic.Bool
	url     string
}

// Dial opens the channel, sends the identity handshake, and starts the
// read loop. A connection that does not open within the bounded timeout
// is a failure naming the target address; the caller must re-initiate,
// there is no retry.
func Dial(ctx context.Context, rawURL string, identity proto.Identity, engine *client.Engine, cfg Config) (*Channel, error) {
	if engine == nil {
		return nil, fmt.Errorf("ws: engine is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = client.OpenTimeout
	}

	dialer := websocket.Dialer{HandshakeTimeout: openTimeout}
	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("open channel %s: %w", rawURL, err)
	}

	c := &Channel{conn: conn, engine: engine, logger: logger, pub: pub, tap: cfg.Tap, url: rawURL}

	// Identity goes out before any gameplay traffic.
	if err := c.write(identity.HandshakeLine()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake on %s: %w", rawURL, err)
	}

	pub.Publish(ctx, logging.Event{
		Type:     logging.TypeChannelOpened,
		Severity: logging.SeverityInfo,
		Actor:    logging.EntityRef{ID: rawURL, Kind: logging.EntityKindChannel},
		Extra:    map[string]any{"spectating": identity.Spectating()},
	})

	go c.readLoop()
	return c, nil
}

func (c *Channel) readLoop() {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("channel %s: %w", c.url, err))
			return
		}
		rec, err := c.engine.Registry().Decode(payload)
		if err != nil {
			c.fail(fmt.Errorf("channel %s: %w", c.url, err))
			return
		}
		if c.tap != nil {
			c.tap(payload)
		}
		c.engine.Enqueue(rec)
	}
}

// SendCommand writes one input command prefixed with the engine's
// current clock, truncated to an integer tick.
func (c *Channel) SendCommand(command string) error {
	line := proto.CommandLine(c.engine.Tick(), command)
	if err := c.write(line); err != nil {
		c.fail(fmt.Errorf("channel %s: send %q: %w", c.url, command, err))
		return err
	}
	c.pub.Publish(context.Background(), logging.Event{
		Type:     logging.TypeCommandSent,
		SimTime:  c.engine.Now(),
		Severity: logging.SeverityDebug,
		Actor:    logging.EntityRef{ID: c.url, Kind: logging.EntityKindChannel},
		Message:  command,
	})
	return nil
}

func (c *Channel) write(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

// fail settles the channel with an error: the engine's error callback
// fires and the connection closes. Later failures are no-ops.
func (c *Channel) fail(cause error) {
	if !c.settled.CompareAndSwap(false, true) {
		return
	}
	c.logger.Printf("live channel failed: %v", cause)
	c.engine.ReportChannelFailure(cause)
	c.conn.Close()
}

// Close settles the channel without reporting an error. Used on
// deliberate shutdown; a peer-initiated close still goes through fail.
func (c *Channel) Close() error {
	if !c.settled.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, message)
	c.writeMu.Unlock()
	return c.conn.Close()
}

const writeWait = 10 * time.Second
