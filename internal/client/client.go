package client

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/logger"
	"github.com/termio/termio/internal/protocol"
)

// ErrNotConnected is returned by submissions before Connect succeeds or
// after Close.
var ErrNotConnected = errors.New("client not connected")

// Config controls how the client connects.
type Config struct {
	// URL is the hub's WebSocket endpoint, e.g. "ws://host:8080/ws".
	URL string
	// Username is the display name sent in the join handshake.
	Username string

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

// DefaultConfig returns sensible defaults; URL and Username must be set.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Client maintains one connection to the hub: it joins on connect, feeds
// every inbound message to its Aggregator, and submits local frames and
// chat.
type Client struct {
	cfg    Config
	agg    *Aggregator
	logger *logger.Logger

	mu        sync.Mutex // guards conn and the single-writer discipline
	conn      *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a disconnected client around the given aggregator.
func New(cfg Config, agg *Aggregator, log *logger.Logger) *Client {
	return &Client{
		cfg:    cfg,
		agg:    agg,
		logger: log,
		done:   make(chan struct{}),
	}
}

// Aggregator exposes the client's projection state.
func (c *Client) Aggregator() *Aggregator { return c.agg }

// Connect dials the hub, sends the join handshake, and starts the read
// and keepalive loops.
func (c *Client) Connect() error {
	if c.cfg.URL == "" {
		return errors.New("empty server URL")
	}
	if c.cfg.Username == "" {
		return errors.New("empty username")
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(protocol.Message{
		Type: protocol.TypeJoin,
		Join: &protocol.Join{Username: c.cfg.Username},
	}); err != nil {
		c.Close()
		return err
	}

	c.logger.Infof("connected to %s as %s", c.cfg.URL, c.cfg.Username)
	go c.readLoop(conn)
	go c.pingLoop()
	return nil
}

// SendFrame submits a locally captured frame. The hub mirrors it back
// through the broadcast path, so the local feed shows up in the
// aggregator like any peer's.
func (c *Client) SendFrame(f *frame.Frame) error {
	return c.send(protocol.Message{
		Type:  protocol.TypeFrame,
		Frame: &protocol.FramePayload{Username: c.cfg.Username, Frame: f},
	})
}

// SendChat submits one chat line.
func (c *Client) SendChat(text string) error {
	return c.send(protocol.Message{
		Type: protocol.TypeChat,
		Chat: &protocol.Chat{Username: c.cfg.Username, Content: text},
	})
}

// Close shuts the connection down; idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}

// Done is closed when the connection ends, locally or remotely.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) send(msg protocol.Message) error {
	data, err := msg.Marshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Errorf("connection lost: %v", err)
			}
			return
		}

		msg, err := protocol.Unmarshal(data)
		if err != nil {
			c.logger.Warnf("skipping malformed message: %v", err)
			continue
		}
		if msg.Type == protocol.TypeAck && msg.Ack != nil && !msg.Ack.Success {
			c.logger.Warnf("server rejected request: %s", msg.Ack.Message)
		}
		c.agg.Apply(msg)
	}
}

func (c *Client) pingLoop() {
	if c.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.send(protocol.Message{Type: protocol.TypePing}); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
