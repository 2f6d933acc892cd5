package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "tankdown/client"
	"tankdown/client/internal/catalog"
	"tankdown/client/internal/proto"
)

const testElements = `{"Tk": [{"texture": "tank-body"}]}`

type fakePeer struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	received []string
	gotConn  chan struct{}
}

func newFakePeer(t *testing.T) *fakePeer {
	p := &fakePeer{t: t, gotConn: make(chan struct{})}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := p.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		p.mu.Lock()
		p.conn = conn
		p.mu.Unlock()
		close(p.gotConn)
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			p.mu.Lock()
			p.received = append(p.received, string(payload))
			p.mu.Unlock()
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePeer) url() string {
	return "ws" + strings.TrimPrefix(p.server.URL, "http")
}

func (p *fakePeer) send(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		p.t.Errorf("peer send: %v", err)
	}
}

func (p *fakePeer) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.received...)
}

func (p *fakePeer) waitForMessages(n int) []string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := p.messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.t.Fatalf("peer never received %d messages: %v", n, p.messages())
	return nil
}

func newChannelEngine(t *testing.T, cfg client.Config) *client.Engine {
	t.Helper()
	if cfg.ElementTypes == nil {
		elements, err := catalog.ParseElements([]byte(testElements))
		require.NoError(t, err)
		cfg.ElementTypes = elements
	}
	engine, err := client.NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestDialSendsIdentityHandshakeFirst(t *testing.T) {
	peer := newFakePeer(t)
	engine := newChannelEngine(t, client.Config{})

	identity, err := proto.PlayerIdentity("gunner")
	require.NoError(t, err)

	channel, err := Dial(context.Background(), peer.url(), identity, engine, Config{})
	require.NoError(t, err)
	defer channel.Close()

	msgs := peer.waitForMessages(1)
	assert.Equal(t, "gunner", msgs[0])
}

func TestSpectatorHandshake(t *testing.T) {
	peer := newFakePeer(t)
	engine := newChannelEngine(t, client.Config{})

	channel, err := Dial(context.Background(), peer.url(), proto.Spectator(), engine, Config{})
	require.NoError(t, err)
	defer channel.Close()

	msgs := peer.waitForMessages(1)
	assert.Equal(t, proto.SpectatorSentinel, msgs[0])
}

func TestInboundEventsReachEngine(t *testing.T) {
	peer := newFakePeer(t)
	engine := newChannelEngine(t, client.Config{})

	channel, err := Dial(context.Background(), peer.url(), proto.Spectator(), engine, Config{})
	require.NoError(t, err)
	defer channel.Close()

	<-peer.gotConn
	peer.send(`{"t": 100, "type": "EleCrt", "uid": 28, "name": "Tk", "x": 1.5, "y": 1.5}`)

	deadline := time.Now().Add(2 * time.Second)
	for {
		engine.Advance(50)
		if _, ok := engine.Element(28); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("inbound event never reached the engine")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTapObservesDecodedInboundEvents(t *testing.T) {
	peer := newFakePeer(t)
	engine := newChannelEngine(t, client.Config{})

	var mu sync.Mutex
	var tapped []string
	channel, err := Dial(context.Background(), peer.url(), proto.Spectator(), engine, Config{
		Tap: func(raw []byte) {
			mu.Lock()
			tapped = append(tapped, string(raw))
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	defer channel.Close()

	<-peer.gotConn
	doc := `{"t": 100, "type": "EleCrt", "uid": 7, "name": "Tk", "x": 0, "y": 0}`
	peer.send(doc)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(tapped)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tap never observed the inbound event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{doc}, tapped)
}

func TestSendCommandStampsEngineClock(t *testing.T) {
	peer := newFakePeer(t)
	engine := newChannelEngine(t, client.Config{})
	engine.Advance(2500.7)

	identity, err := proto.PlayerIdentity("gunner")
	require.NoError(t, err)
	channel, err := Dial(context.Background(), peer.url(), identity, engine, Config{})
	require.NoError(t, err)
	defer channel.Close()

	require.NoError(t, channel.SendCommand("fire"))

	msgs := peer.waitForMessages(2)
	assert.Equal(t, "2500 fire", msgs[1], "command must carry the truncated clock")
}

func TestDialFailureNamesAddress(t *testing.T) {
	engine := newChannelEngine(t, client.Config{})

	const target = "ws://127.0.0.1:1/play"
	_, err := Dial(context.Background(), target, proto.Spectator(), engine, Config{OpenTimeout: 250 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), target)
}

func TestPeerCloseFiresErrorCallbackOnce(t *testing.T) {
	peer := newFakePeer(t)

	errCh := make(chan []string, 4)
	engine := newChannelEngine(t, client.Config{
		OnError: func(messages []string) { errCh <- messages },
	})

	_, err := Dial(context.Background(), peer.url(), proto.Spectator(), engine, Config{})
	require.NoError(t, err)

	<-peer.gotConn
	peer.mu.Lock()
	peer.conn.Close()
	peer.mu.Unlock()

	select {
	case msgs := <-errCh:
		require.NotEmpty(t, msgs)
		assert.Contains(t, msgs[0], "channel")
	case <-time.After(2 * time.Second):
		t.Fatal("error callback never fired")
	}

	select {
	case <-errCh:
		t.Fatal("error callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedInboundMessageFailsChannel(t *testing.T) {
	peer := newFakePeer(t)

	errCh := make(chan []string, 1)
	engine := newChannelEngine(t, client.Config{
		OnError: func(messages []string) { errCh <- messages },
	})

	_, err := Dial(context.Background(), peer.url(), proto.Spectator(), engine, Config{})
	require.NoError(t, err)

	<-peer.gotConn
	peer.send(`{"type": "EleCrt"}`) // missing timestamp

	select {
	case msgs := <-errCh:
		require.NotEmpty(t, msgs)
	case <-time.After(2 * time.Second):
		t.Fatal("malformed inbound message did not fail the channel")
	}
}
