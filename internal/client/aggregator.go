// Package client implements the TermIO client side: the connection to
// the hub and the aggregator that mirrors hub state for a renderer.
package client

import (
	"sync"

	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/protocol"
)

// ChatEntry is one line of the chat log.
type ChatEntry struct {
	Name string
	Text string
}

// Aggregator folds the inbound broadcast stream into three independent
// projections: the roster, the latest frame per display name, and the
// chat log. Each projection is last-write-wins per key, so duplicate or
// out-of-order messages cannot corrupt it.
type Aggregator struct {
	mu     sync.RWMutex
	roster []string
	frames map[string]*frame.Frame
	chat   []ChatEntry

	// OnUpdate, when set before the first Apply, fires after every state
	// change; renderers hang their refresh on it.
	OnUpdate func()
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{frames: make(map[string]*frame.Frame)}
}

// Apply folds one inbound message into the projections. Message kinds
// that carry no client-visible state (acks, pongs, unknown tags) are
// ignored.
func (a *Aggregator) Apply(msg protocol.Message) {
	changed := false

	switch msg.Type {
	case protocol.TypeUserList:
		names := make([]string, len(msg.UserList))
		for i, u := range msg.UserList {
			names[i] = u.Username
		}
		a.mu.Lock()
		a.roster = names
		a.mu.Unlock()
		changed = true

	case protocol.TypeFrame:
		if msg.Frame == nil || msg.Frame.Frame == nil {
			return
		}
		a.mu.Lock()
		a.frames[msg.Frame.Username] = msg.Frame.Frame
		a.mu.Unlock()
		changed = true

	case protocol.TypeChat:
		if msg.Chat == nil {
			return
		}
		a.mu.Lock()
		a.chat = append(a.chat, ChatEntry{Name: msg.Chat.Username, Text: msg.Chat.Content})
		a.mu.Unlock()
		changed = true

	case protocol.TypeUserLeft:
		if msg.UserLeft == nil {
			return
		}
		// The roster follows in the next UserList; drop the stale feed now.
		a.mu.Lock()
		delete(a.frames, msg.UserLeft.Username)
		a.mu.Unlock()
		changed = true
	}

	if changed && a.OnUpdate != nil {
		a.OnUpdate()
	}
}

// Roster returns the current display names in roster order.
func (a *Aggregator) Roster() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.roster))
	copy(out, a.roster)
	return out
}

// Frame returns the most recent frame received from the named peer.
func (a *Aggregator) Frame(name string) (*frame.Frame, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.frames[name]
	return f, ok
}

// Chat returns the last limit chat entries; limit <= 0 returns all. The
// log itself is append-only and unbounded.
func (a *Aggregator) Chat(limit int) []ChatEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	start := 0
	if limit > 0 && len(a.chat) > limit {
		start = len(a.chat) - limit
	}
	out := make([]ChatEntry, len(a.chat)-start)
	copy(out, a.chat[start:])
	return out
}
