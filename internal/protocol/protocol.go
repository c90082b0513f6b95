// Package protocol defines the wire messages exchanged between TermIO
// peers and the hub. Every message is one JSON envelope of the form
// {"type": T, "data": D}; field names are part of the protocol and must
// stay stable.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/termio/termio/internal/frame"
)

// Type tags the message kind inside the envelope.
type Type string

const (
	TypeJoin       Type = "Join"
	TypeFrame      Type = "Frame"
	TypeChat       Type = "Chat"
	TypeUserList   Type = "UserList"
	TypeUserJoined Type = "UserJoined"
	TypeUserLeft   Type = "UserLeft"
	TypeAck        Type = "Ack"
	TypePing       Type = "Ping"
	TypePong       Type = "Pong"
)

// Join is the handshake a client sends to enter the session.
type Join struct {
	Username string `json:"username"`
}

// FramePayload carries one cell frame tagged with its sender.
type FramePayload struct {
	UserID   string       `json:"user_id"`
	Username string       `json:"username"`
	Frame    *frame.Frame `json:"frame"`
}

// Chat carries one chat line tagged with its sender.
type Chat struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// UserInfo is one roster entry.
type UserInfo struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	ConnectedAt string `json:"connected_at"`
}

// Presence announces a peer joining or leaving.
type Presence struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Ack is a direct success or error acknowledgment.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Message is the decoded form of one wire envelope. Exactly the payload
// field matching Type is set; Ping and Pong carry none. Unknown type tags
// decode into a Message with only Type set so receivers can skip them.
type Message struct {
	Type       Type
	Join       *Join
	Frame      *FramePayload
	Chat       *Chat
	UserList   []UserInfo
	UserJoined *Presence
	UserLeft   *Presence
	Ack        *Ack
}

type envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes a message into its wire envelope.
func (m Message) Marshal() ([]byte, error) {
	env := envelope{Type: m.Type}

	var payload any
	switch m.Type {
	case TypeJoin:
		payload = m.Join
	case TypeFrame:
		payload = m.Frame
	case TypeChat:
		payload = m.Chat
	case TypeUserList:
		payload = m.UserList
	case TypeUserJoined:
		payload = m.UserJoined
	case TypeUserLeft:
		payload = m.UserLeft
	case TypeAck:
		payload = m.Ack
	case TypePing, TypePong:
		payload = nil
	default:
		return nil, fmt.Errorf("marshal: unknown message type %q", m.Type)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", m.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Unmarshal decodes one wire envelope. A malformed envelope or payload
// returns an error; an unknown type tag does not, so future message kinds
// pass through as ignorable.
func Unmarshal(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	m := Message{Type: env.Type}
	var err error
	switch env.Type {
	case TypeJoin:
		m.Join = &Join{}
		err = json.Unmarshal(env.Data, m.Join)
	case TypeFrame:
		m.Frame = &FramePayload{}
		err = json.Unmarshal(env.Data, m.Frame)
	case TypeChat:
		m.Chat = &Chat{}
		err = json.Unmarshal(env.Data, m.Chat)
	case TypeUserList:
		err = json.Unmarshal(env.Data, &m.UserList)
	case TypeUserJoined:
		m.UserJoined = &Presence{}
		err = json.Unmarshal(env.Data, m.UserJoined)
	case TypeUserLeft:
		m.UserLeft = &Presence{}
		err = json.Unmarshal(env.Data, m.UserLeft)
	case TypeAck:
		m.Ack = &Ack{}
		err = json.Unmarshal(env.Data, m.Ack)
	case TypePing, TypePong:
		// No payload.
	default:
		// Unknown tag: keep Type, drop payload.
	}
	if err != nil {
		return Message{}, fmt.Errorf("unmarshal %s payload: %w", env.Type, err)
	}
	return m, nil
}
