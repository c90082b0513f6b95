package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/termio/termio/internal/protocol"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // must be less than the read deadline

	// Frame payloads dominate message size: an 80x24 grid is ~10KB of
	// base64 cell data, so the limit leaves ample headroom.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: enforce an origin allowlist once the deployment origin is fixed.
		return true
	},
}

// peerConn is one WebSocket connection. Before the join handshake it has
// no session; the outbound queue exists from the start so acks and pongs
// can be answered either way.
type peerConn struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	sess *Session
}

// ServeWs upgrades the HTTP request and starts the connection's pumps.
// Sessions are created later, by an explicit Join message.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade error: %v", err)
		return
	}

	h.logger.WithField("remote_addr", r.RemoteAddr).Debug("websocket connection opened")

	pc := &peerConn{hub: h, conn: conn, send: make(chan []byte, sendQueueSize)}
	go pc.writePump()
	go pc.readPump()
}

// readPump reads and dispatches inbound messages until the connection
// drops, then tears down the session.
func (pc *peerConn) readPump() {
	h := pc.hub
	defer func() {
		if pc.sess != nil {
			h.Disconnect(pc.sess.ID)
		} else {
			close(pc.send)
		}
		pc.conn.Close()
	}()

	pc.conn.SetReadLimit(maxMessageSize)
	pc.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	pc.conn.SetPongHandler(func(string) error {
		pc.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
		return nil
	})

	for {
		_, data, err := pc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Errorf("websocket read error: %v", err)
			}
			break
		}

		msg, err := protocol.Unmarshal(data)
		if err != nil {
			// Malformed message: log and keep the connection open.
			h.logger.Warnf("protocol parse error: %v", err)
			continue
		}
		pc.dispatch(msg)
	}
}

// dispatch routes one inbound message. Frames and chat from a connection
// that never joined are silently ignored; pings are answered regardless.
func (pc *peerConn) dispatch(msg protocol.Message) {
	h := pc.hub
	switch msg.Type {
	case protocol.TypeJoin:
		if pc.sess != nil {
			h.unicast(pc.sess, marshal(protocol.Message{
				Type: protocol.TypeAck,
				Ack:  &protocol.Ack{Success: false, Message: "already joined"},
			}))
			return
		}
		if msg.Join == nil || msg.Join.Username == "" {
			pc.trySend(marshal(protocol.Message{
				Type: protocol.TypeAck,
				Ack:  &protocol.Ack{Success: false, Message: "display name required"},
			}))
			return
		}
		pc.sess = h.Join(msg.Join.Username, pc.send)

	case protocol.TypeFrame:
		if pc.sess == nil {
			h.logger.Debug("frame before join ignored")
			return
		}
		if msg.Frame == nil || msg.Frame.Frame == nil || !msg.Frame.Frame.Valid() {
			h.logger.Warn("malformed frame payload dropped")
			return
		}
		h.SubmitFrame(pc.sess.ID, msg.Frame.Frame)

	case protocol.TypeChat:
		if pc.sess == nil {
			h.logger.Debug("chat before join ignored")
			return
		}
		if msg.Chat == nil {
			return
		}
		h.SubmitChat(pc.sess.ID, msg.Chat.Content)

	case protocol.TypePing:
		if pc.sess != nil {
			h.Keepalive(pc.sess)
		} else {
			pc.trySend(marshal(protocol.Message{Type: protocol.TypePong}))
		}

	default:
		// Unknown or server-only kinds from a client: ignore.
	}
}

// trySend enqueues on the connection's own queue before a session exists.
// Only the read pump calls it, so it never races the queue close.
func (pc *peerConn) trySend(data []byte) {
	if data == nil {
		return
	}
	select {
	case pc.send <- data:
	default:
	}
}

// writePump delivers queued messages and keeps the connection alive with
// ping control frames. A write failure closes the connection, which in
// turn makes the read pump tear the session down; other peers are
// unaffected.
func (pc *peerConn) writePump() {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		pc.conn.Close()
	}()

	for {
		select {
		case data, ok := <-pc.send:
			pc.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				pc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := pc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			pc.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := pc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
