package hub

import (
	"sync"
	"time"

	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/protocol"
)

// sendQueueSize bounds each session's outbound queue. A session whose
// queue is full when a message arrives is torn down like a disconnect so
// one stalled peer can never delay the others.
const sendQueueSize = 256

// Session is one joined participant. The hub owns the registry entry; the
// session's outbound queue has a single consumer, that peer's write pump.
type Session struct {
	ID       string
	Username string
	JoinedAt time.Time

	mu        sync.Mutex
	lastFrame *frame.Frame
	send      chan []byte
	closed    bool
}

// Info returns the session's roster entry.
func (s *Session) Info() protocol.UserInfo {
	return protocol.UserInfo{
		UserID:      s.ID,
		Username:    s.Username,
		ConnectedAt: s.JoinedAt.UTC().Format(time.RFC3339),
	}
}

// SetLastFrame records the most recent frame received from this session.
func (s *Session) SetLastFrame(f *frame.Frame) {
	s.mu.Lock()
	s.lastFrame = f
	s.mu.Unlock()
}

// LastFrame returns the most recent frame, or nil when none arrived yet.
func (s *Session) LastFrame() *frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// enqueue appends a message to the outbound queue without blocking.
// It reports false when the queue is full. Writes after close are
// silently discarded and report true.
func (s *Session) enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close shuts the outbound queue exactly once; the write pump drains the
// remaining messages and exits.
func (s *Session) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
	s.mu.Unlock()
}
