package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/termio/termio/internal/logger"
)

const (
	chatStreamName    = "CHAT"
	chatSubject       = "chat.messages"
	chatRetention     = 30 * time.Minute
	historyFetchLimit = 100
	historyFetchWait  = 2 * time.Second
)

// ArchivedChat is one chat line as stored in JetStream.
type ArchivedChat struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ChatArchive persists chat traffic to a JetStream stream with a short
// retention window, backing the history API. A nil archive is valid and
// turns every method into a no-op, so the hub runs without NATS.
type ChatArchive struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewChatArchive sets up the chat stream on the given connection,
// creating or updating it to the expected retention.
func NewChatArchive(nc *nats.Conn, log *logger.Logger) (*ChatArchive, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	streamConfig := &nats.StreamConfig{
		Name:     chatStreamName,
		Subjects: []string{chatSubject},
		Storage:  nats.FileStorage,
		MaxAge:   chatRetention,
	}
	if _, err := js.StreamInfo(chatStreamName); err != nil {
		if _, err := js.AddStream(streamConfig); err != nil {
			return nil, fmt.Errorf("create stream %s: %w", chatStreamName, err)
		}
		log.Infof("created stream %s", chatStreamName)
	} else {
		if _, err := js.UpdateStream(streamConfig); err != nil {
			return nil, fmt.Errorf("update stream %s: %w", chatStreamName, err)
		}
		log.Infof("updated stream %s", chatStreamName)
	}

	return &ChatArchive{js: js, logger: log}, nil
}

// Publish archives one chat line. Failures are logged, never propagated:
// archival must not affect delivery.
func (a *ChatArchive) Publish(userID, username, content string) {
	if a == nil {
		return
	}
	data, err := json.Marshal(ArchivedChat{
		UserID:    userID,
		Username:  username,
		Content:   content,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		a.logger.Errorf("marshal archived chat: %v", err)
		return
	}
	if _, err := a.js.Publish(chatSubject, data); err != nil {
		a.logger.Errorf("publish chat to jetstream: %v", err)
	}
}

// History fetches up to historyFetchLimit archived chat lines through an
// ephemeral pull consumer.
func (a *ChatArchive) History() ([]ArchivedChat, error) {
	if a == nil {
		return nil, nil
	}

	sub, err := a.js.PullSubscribe(chatSubject, "")
	if err != nil {
		return nil, fmt.Errorf("subscribe chat history: %w", err)
	}
	defer sub.Unsubscribe()

	msgs, err := sub.Fetch(historyFetchLimit, nats.MaxWait(historyFetchWait))
	if err != nil && err != nats.ErrTimeout {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}

	history := make([]ArchivedChat, 0, len(msgs))
	for _, msg := range msgs {
		var entry ArchivedChat
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			a.logger.Errorf("unmarshal archived chat: %v", err)
			msg.Ack()
			continue
		}
		history = append(history, entry)
		msg.Ack()
	}
	return history, nil
}
