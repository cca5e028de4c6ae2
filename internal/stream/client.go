package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/runstream/runstream/internal/buffer"
	"github.com/runstream/runstream/internal/config"
	"github.com/runstream/runstream/internal/event"
)

// writeTimeout is the deadline for a single write to the collector.
const writeTimeout = 10 * time.Second

// State is the connection lifecycle state. Exactly one is active at a time;
// transitions happen under the client mutex.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
)

// pingMessage is the application-level heartbeat. The collector may answer
// with {"type":"pong"} or per-message acks; neither is required.
type pingMessage struct {
	Type string `json:"type"`
}

// dialFunc opens a WebSocket connection. Abstracted so tests can point the
// client at an in-process server or fail deterministically.
type dialFunc func(ctx context.Context, url string, timeout time.Duration) (*websocket.Conn, error)

// Client maintains one duplex connection to the collector and delivers
// events best-effort. All methods are safe for concurrent use.
type Client struct {
	cfg    config.StreamConfig
	url    string // dial URL, credential already attached
	buf    *buffer.Buffer
	dialFn dialFunc

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	attempt   int
	reconnect *time.Timer
	hbDone    chan struct{}
	gen       uint64 // connection generation; stale pumps check it and bail

	// writeMu serializes writes to conn: Send, the drain loop, and the
	// heartbeat may run concurrently and gorilla allows a single writer.
	writeMu sync.Mutex
}

// New creates a Client for dialURL. The client starts disconnected; call
// Connect to establish the session.
func New(cfg config.StreamConfig, dialURL string) *Client {
	return &Client{
		cfg:    cfg,
		url:    dialURL,
		buf:    buffer.New(cfg.BufferSize),
		dialFn: defaultDial,
		state:  StateDisconnected,
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffered returns the number of events waiting for a live connection.
func (c *Client) Buffered() int {
	return c.buf.Len()
}

// Connect attempts to establish the session. On handshake failure the
// reconnect schedule takes over; Connect itself never returns an error
// because delivery is best-effort throughout.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.dial(ctx)
}

// Send delivers ev immediately when connected, otherwise buffers it. It
// never fails and never blocks on connection state: the producer must not
// be stalled by transport trouble.
func (c *Client) Send(ev event.Event) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	gen := c.gen
	c.mu.Unlock()

	if !connected || conn == nil {
		c.buf.Enqueue(ev)
		return
	}

	if err := c.write(conn, ev); err != nil {
		slog.Debug("stream: send failed, buffering event", "kind", ev.Kind, "err", err)
		c.buf.Enqueue(ev)
		c.handleDisconnect(gen, err)
	}
}

// Close performs the graceful shutdown handshake and makes the closed state
// permanent: pending reconnect timers are cancelled, the heartbeat stops,
// and no further transitions occur. Safe to call from any state and more
// than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	c.gen++
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.hbDone != nil {
		close(c.hbDone)
		c.hbDone = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}

	deadline := time.Now().Add(c.cfg.CloseTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		slog.Debug("stream: close handshake failed", "err", err)
	}
	conn.Close()
	slog.Info("stream: connection closed")
}

// --- internal ---------------------------------------------------------------

// dial performs one connection attempt from the connecting state.
func (c *Client) dial(ctx context.Context) {
	conn, err := c.dialFn(ctx, c.url, c.cfg.HealthTimeout)

	c.mu.Lock()
	if c.state == StateClosing {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		c.state = StateDisconnected
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		slog.Warn("stream: connect failed", "err", err)
		return
	}

	c.state = StateConnected
	c.conn = conn
	c.attempt = 0
	c.gen++
	gen := c.gen
	c.hbDone = make(chan struct{})
	done := c.hbDone
	c.mu.Unlock()

	// The dial URL carries the token, so it stays out of the log line.
	slog.Info("stream: connected")

	go c.readPump(conn, gen)
	go c.heartbeat(conn, done)

	c.drainBuffer(conn, gen)
}

// scheduleReconnectLocked arms the reconnect timer. Caller holds c.mu and
// has already set the state to disconnected.
func (c *Client) scheduleReconnectLocked() {
	if c.attempt >= c.cfg.MaxReconnects {
		slog.Warn("stream: reconnect attempts exhausted, staying disconnected",
			"attempts", c.attempt, "buffered", c.buf.Len())
		return
	}

	delay := reconnectDelay(c.attempt, c.cfg.InitialDelay, c.cfg.MaxDelay)
	c.attempt++
	slog.Info("stream: reconnect scheduled", "attempt", c.attempt, "delay", delay)

	c.reconnect = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.state != StateDisconnected {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.reconnect = nil
		c.mu.Unlock()

		c.dial(context.Background())
	})
}

// handleDisconnect moves a live connection to disconnected and arms the
// reconnect timer. gen guards against a stale pump or send racing a newer
// connection; err is the transport error that triggered the transition.
func (c *Client) handleDisconnect(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	if c.hbDone != nil {
		close(c.hbDone)
		c.hbDone = nil
	}
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	slog.Warn("stream: connection lost", "err", err)
}

// readPump consumes inbound frames (acks, pongs) and detects the remote
// close or a dead transport. Runs until the connection errors.
func (c *Client) readPump(conn *websocket.Conn, gen uint64) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			c.handleDisconnect(gen, err)
			return
		}
	}
}

// heartbeat sends the application-level ping on every interval. A failed
// ping is logged only — the read pump's error is the authoritative
// disconnect signal.
func (c *Client) heartbeat(conn *websocket.Conn, done chan struct{}) {
	t := time.NewTicker(c.cfg.HeartbeatInterval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := c.write(conn, pingMessage{Type: "ping"}); err != nil {
				slog.Warn("stream: heartbeat failed", "err", err)
			}
		}
	}
}

// drainBuffer sends every buffered event in FIFO order. If a send fails
// mid-drain the unsent remainder is requeued at the front of the buffer.
func (c *Client) drainBuffer(conn *websocket.Conn, gen uint64) {
	events := c.buf.Drain()
	if len(events) == 0 {
		return
	}

	for i, ev := range events {
		if err := c.write(conn, ev); err != nil {
			c.buf.Requeue(events[i:])
			slog.Warn("stream: drain interrupted, events requeued",
				"sent", i, "requeued", len(events)-i, "err", err)
			c.handleDisconnect(gen, err)
			return
		}
	}
	slog.Debug("stream: buffer drained", "sent", len(events))
}

// write serializes one JSON message to conn under the write mutex.
func (c *Client) write(conn *websocket.Conn, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// defaultDial opens the WebSocket connection with a bounded handshake.
func defaultDial(ctx context.Context, url string, timeout time.Duration) (*websocket.Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := d.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil && err != nil {
		resp.Body.Close()
	}
	return conn, err
}
