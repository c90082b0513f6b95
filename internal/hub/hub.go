// Package hub implements the session registry and broadcast fan-out at
// the center of a TermIO server: join/leave lifecycle, frame and chat
// distribution, and the WebSocket plumbing that feeds it.
package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/logger"
	"github.com/termio/termio/internal/protocol"
)

// Hub owns the authoritative session registry. Registry mutation is
// serialized under one mutex; per-session delivery runs independently
// through each session's outbound queue. No lock is held across I/O.
type Hub struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	startTime time.Time
	archive   *ChatArchive
	logger    *logger.Logger
}

// New creates a hub. archive may be nil; chat then skips archival.
func New(archive *ChatArchive, log *logger.Logger) *Hub {
	return &Hub{
		sessions:  make(map[string]*Session),
		startTime: time.Now(),
		archive:   archive,
		logger:    log,
	}
}

// Join registers a new session for displayName delivering into out.
// The joiner receives a direct success ack, then every session including
// the joiner receives the refreshed roster, then every session except the
// joiner receives the joined notice.
func (h *Hub) Join(displayName string, out chan []byte) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Username: displayName,
		JoinedAt: time.Now(),
		send:     out,
	}

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	h.logger.SessionEvent("session_joined", s.ID, s.Username)

	h.unicast(s, marshal(protocol.Message{
		Type: protocol.TypeAck,
		Ack:  &protocol.Ack{Success: true, Message: "Welcome, " + displayName + "!"},
	}))
	h.broadcast(h.rosterMessage(), "")
	h.broadcast(marshal(protocol.Message{
		Type:       protocol.TypeUserJoined,
		UserJoined: &protocol.Presence{UserID: s.ID, Username: s.Username},
	}), s.ID)

	return s
}

// SubmitFrame records a session's latest frame and broadcasts it, tagged
// with the sender, to every session including the sender. The sender's
// own feed is mirrored back through the same path so its view matches its
// peers'. Frames from unknown sessions are dropped silently.
func (h *Hub) SubmitFrame(sessionID string, f *frame.Frame) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		h.logger.Debugf("frame from unknown session %s dropped", sessionID)
		return
	}

	s.SetLastFrame(f)
	h.broadcast(marshal(protocol.Message{
		Type:  protocol.TypeFrame,
		Frame: &protocol.FramePayload{UserID: s.ID, Username: s.Username, Frame: f},
	}), "")
}

// SubmitChat broadcasts a chat line, tagged with the sender, to every
// session. Messages pass through unmodified. Unknown sessions are dropped
// silently.
func (h *Hub) SubmitChat(sessionID, text string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		h.logger.Debugf("chat from unknown session %s dropped", sessionID)
		return
	}

	h.logger.SessionEvent("chat_received", s.ID, s.Username)
	h.broadcast(marshal(protocol.Message{
		Type: protocol.TypeChat,
		Chat: &protocol.Chat{UserID: s.ID, Username: s.Username, Content: text},
	}), "")
	h.archive.Publish(s.ID, s.Username, text)
}

// Disconnect removes a session, closes its outbound queue, and announces
// the departure followed by the refreshed roster. Disconnecting an absent
// id is a no-op.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	s.close()
	h.logger.SessionEvent("session_left", s.ID, s.Username)

	h.broadcast(marshal(protocol.Message{
		Type:     protocol.TypeUserLeft,
		UserLeft: &protocol.Presence{UserID: s.ID, Username: s.Username},
	}), "")
	h.broadcast(h.rosterMessage(), "")
}

// Keepalive answers a ping directly to the requester; never broadcast.
func (h *Hub) Keepalive(s *Session) {
	if s == nil {
		return
	}
	h.unicast(s, marshal(protocol.Message{Type: protocol.TypePong}))
}

// Roster snapshots all sessions in join order.
func (h *Hub) Roster() []protocol.UserInfo {
	h.mu.Lock()
	snap := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		snap = append(snap, s)
	}
	h.mu.Unlock()

	sort.Slice(snap, func(i, j int) bool {
		if !snap[i].JoinedAt.Equal(snap[j].JoinedAt) {
			return snap[i].JoinedAt.Before(snap[j].JoinedAt)
		}
		return snap[i].Username < snap[j].Username
	})

	roster := make([]protocol.UserInfo, len(snap))
	for i, s := range snap {
		roster[i] = s.Info()
	}
	return roster
}

// Count reports the number of joined sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Uptime reports time since the hub was created.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.startTime)
}

func (h *Hub) rosterMessage() []byte {
	return marshal(protocol.Message{Type: protocol.TypeUserList, UserList: h.Roster()})
}

// broadcast enqueues data into every session's queue except exceptID
// (empty means no exception). Enqueueing into one queue never blocks on
// another; sessions whose queue is full are torn down afterwards.
func (h *Hub) broadcast(data []byte, exceptID string) {
	if data == nil {
		return
	}

	h.mu.Lock()
	snap := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.ID != exceptID {
			snap = append(snap, s)
		}
	}
	h.mu.Unlock()

	var slow []*Session
	for _, s := range snap {
		if !s.enqueue(data) {
			slow = append(slow, s)
		}
	}
	for _, s := range slow {
		h.logger.Warnf("outbound queue full, dropping session %s (%s)", s.ID, s.Username)
		h.Disconnect(s.ID)
	}
}

// unicast delivers directly to one session, with the same overflow policy
// as broadcast.
func (h *Hub) unicast(s *Session, data []byte) {
	if data == nil {
		return
	}
	if !s.enqueue(data) {
		h.logger.Warnf("outbound queue full, dropping session %s (%s)", s.ID, s.Username)
		h.Disconnect(s.ID)
	}
}

// marshal encodes a protocol message. The hub's own messages cannot
// legitimately fail to encode; a nil result is skipped by the senders.
func marshal(m protocol.Message) []byte {
	data, err := m.Marshal()
	if err != nil {
		return nil
	}
	return data
}
