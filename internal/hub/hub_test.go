package hub

import (
	"testing"
	"time"

	"github.com/termio/termio/internal/frame"
	"github.com/termio/termio/internal/logger"
	"github.com/termio/termio/internal/protocol"
)

func newTestHub() *Hub {
	return New(nil, logger.New("hub-test"))
}

func recv(t *testing.T, ch chan []byte) protocol.Message {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatal("outbound queue closed while expecting a message")
		}
		msg, err := protocol.Unmarshal(data)
		if err != nil {
			t.Fatalf("unmarshal delivered message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return protocol.Message{}
}

func drain(ch chan []byte) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func rosterNames(list []protocol.UserInfo) []string {
	names := make([]string, len(list))
	for i, u := range list {
		names[i] = u.Username
	}
	return names
}

func TestJoinAckRosterAndNotice(t *testing.T) {
	h := newTestHub()
	aCh := make(chan []byte, sendQueueSize)
	a := h.Join("alice", aCh)

	if msg := recv(t, aCh); msg.Type != protocol.TypeAck || msg.Ack == nil || !msg.Ack.Success {
		t.Fatalf("first message to joiner = %+v, want success ack", msg)
	}
	if msg := recv(t, aCh); msg.Type != protocol.TypeUserList || len(msg.UserList) != 1 {
		t.Fatalf("second message to joiner = %+v, want one-entry roster", msg)
	}

	bCh := make(chan []byte, sendQueueSize)
	b := h.Join("bob", bCh)

	// Existing member sees exactly one roster update, then the notice.
	if msg := recv(t, aCh); msg.Type != protocol.TypeUserList || len(msg.UserList) != 2 {
		t.Fatalf("roster update to alice = %+v", msg)
	}
	msg := recv(t, aCh)
	if msg.Type != protocol.TypeUserJoined || msg.UserJoined.UserID != b.ID {
		t.Fatalf("joined notice to alice = %+v", msg)
	}

	// The joiner sees the roster but not its own joined notice.
	recv(t, bCh) // ack
	if msg := recv(t, bCh); msg.Type != protocol.TypeUserList {
		t.Fatalf("roster to joiner = %+v", msg)
	}
	select {
	case data := <-bCh:
		got, _ := protocol.Unmarshal(data)
		t.Fatalf("unexpected extra message to joiner: %+v", got)
	default:
	}

	if a.ID == b.ID {
		t.Fatal("session ids must be unique")
	}
}

func TestSubmitFrameEchoesToSenderInOrder(t *testing.T) {
	h := newTestHub()
	aCh := make(chan []byte, sendQueueSize)
	bCh := make(chan []byte, sendQueueSize)
	a := h.Join("alice", aCh)
	h.Join("bob", bCh)
	drain(aCh)
	drain(bCh)

	first := frame.New(2, 1)
	first.SetCell(0, 0, '@', 10, 10, 10)
	second := frame.New(2, 1)
	second.SetCell(0, 0, '#', 20, 20, 20)

	h.SubmitFrame(a.ID, first)
	h.SubmitFrame(a.ID, second)

	for _, ch := range []chan []byte{aCh, bCh} {
		msg := recv(t, ch)
		if msg.Type != protocol.TypeFrame || msg.Frame.UserID != a.ID || msg.Frame.Username != "alice" {
			t.Fatalf("frame message = %+v, want frame tagged alice", msg)
		}
		if c, _ := msg.Frame.Frame.Cell(0, 0); c.Glyph != '@' {
			t.Fatalf("first frame out of order, got glyph %q", c.Glyph)
		}
		msg = recv(t, ch)
		if c, _ := msg.Frame.Frame.Cell(0, 0); c.Glyph != '#' {
			t.Fatalf("second frame out of order, got glyph %q", c.Glyph)
		}
	}

	if a.LastFrame() != second {
		t.Fatal("last frame not updated to most recent submission")
	}
}

func TestUnknownSessionDroppedSilently(t *testing.T) {
	h := newTestHub()
	ch := make(chan []byte, sendQueueSize)
	h.Join("alice", ch)
	drain(ch)

	h.SubmitFrame("no-such-id", frame.New(1, 1))
	h.SubmitChat("no-such-id", "hello")

	select {
	case data := <-ch:
		msg, _ := protocol.Unmarshal(data)
		t.Fatalf("unknown-session traffic reached a member: %+v", msg)
	default:
	}
}

func TestDisconnectAnnouncesThenUpdatesRoster(t *testing.T) {
	h := newTestHub()
	aCh := make(chan []byte, sendQueueSize)
	bCh := make(chan []byte, sendQueueSize)
	a := h.Join("alice", aCh)
	h.Join("bob", bCh)
	drain(bCh)

	h.Disconnect(a.ID)

	msg := recv(t, bCh)
	if msg.Type != protocol.TypeUserLeft || msg.UserLeft.UserID != a.ID {
		t.Fatalf("first message after disconnect = %+v, want UserLeft", msg)
	}
	msg = recv(t, bCh)
	if msg.Type != protocol.TypeUserList {
		t.Fatalf("second message after disconnect = %+v, want roster", msg)
	}
	for _, u := range msg.UserList {
		if u.UserID == a.ID {
			t.Fatal("roster still contains the disconnected session")
		}
	}

	// The departed session's queue is closed.
	drain(aCh)
	if _, ok := <-aCh; ok {
		t.Fatal("expected closed queue for disconnected session")
	}

	// Idempotent.
	h.Disconnect(a.ID)
	if h.Count() != 1 {
		t.Fatalf("count after double disconnect = %d, want 1", h.Count())
	}
}

func TestChatBroadcastTaggedWithSender(t *testing.T) {
	h := newTestHub()
	aCh := make(chan []byte, sendQueueSize)
	bCh := make(chan []byte, sendQueueSize)
	a := h.Join("alice", aCh)
	h.Join("bob", bCh)
	drain(aCh)
	drain(bCh)

	h.SubmitChat(a.ID, "hello there")

	for _, ch := range []chan []byte{aCh, bCh} {
		msg := recv(t, ch)
		if msg.Type != protocol.TypeChat || msg.Chat.Username != "alice" || msg.Chat.Content != "hello there" {
			t.Fatalf("chat message = %+v", msg)
		}
	}
}

func TestSlowPeerDoesNotDelayOthers(t *testing.T) {
	h := newTestHub()
	slowCh := make(chan []byte, 4) // fills during the join exchange
	fastCh := make(chan []byte, sendQueueSize)
	slow := h.Join("slow", slowCh)
	fast := h.Join("fast", fastCh)
	drain(fastCh)

	// slowCh now holds its join backlog and is never drained. The next
	// broadcast overflows it, which must tear the slow session down and
	// still deliver to the fast peer immediately.
	start := time.Now()
	h.SubmitChat(fast.ID, "ping")

	msg := recv(t, fastCh)
	if msg.Type != protocol.TypeChat {
		t.Fatalf("fast peer first message = %+v, want chat", msg)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("fast peer delivery took %v with a stalled peer", elapsed)
	}

	msg = recv(t, fastCh)
	if msg.Type != protocol.TypeUserLeft || msg.UserLeft.UserID != slow.ID {
		t.Fatalf("expected slow peer teardown notice, got %+v", msg)
	}
	if msg := recv(t, fastCh); msg.Type != protocol.TypeUserList || len(msg.UserList) != 1 {
		t.Fatalf("expected one-entry roster after teardown, got %+v", msg)
	}
	if h.Count() != 1 {
		t.Fatalf("count = %d, want 1 after slow peer eviction", h.Count())
	}
}

func TestKeepaliveAnsweredDirectly(t *testing.T) {
	h := newTestHub()
	aCh := make(chan []byte, sendQueueSize)
	bCh := make(chan []byte, sendQueueSize)
	a := h.Join("alice", aCh)
	h.Join("bob", bCh)
	drain(aCh)
	drain(bCh)

	h.Keepalive(a)

	if msg := recv(t, aCh); msg.Type != protocol.TypePong {
		t.Fatalf("keepalive reply = %+v, want pong", msg)
	}
	select {
	case data := <-bCh:
		msg, _ := protocol.Unmarshal(data)
		t.Fatalf("pong broadcast to another peer: %+v", msg)
	default:
	}
}

func TestRosterJoinOrder(t *testing.T) {
	h := newTestHub()
	h.Join("alice", make(chan []byte, sendQueueSize))
	time.Sleep(2 * time.Millisecond)
	h.Join("bob", make(chan []byte, sendQueueSize))

	got := rosterNames(h.Roster())
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("roster = %v, want [alice bob]", got)
	}
}
