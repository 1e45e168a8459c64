// Package notify is the fan-out capability: events pushed to users by id
// over a pub/sub broker. Delivery is best-effort, at most once; a user with
// no live connection simply misses the event.
package notify

import "github.com/pliu/parley/internal/models"

const (
	EventMessageReceived = "message_received"
	EventMessagesRead    = "messages_read"
)

// Event is the payload pushed to a live connection.
type Event struct {
	Type string `json:"type"`

	// Set for message_received.
	Message *models.Message `json:"message,omitempty"`

	// Set for messages_read.
	ChatID      string `json:"chat_id,omitempty"`
	UnreadCount int    `json:"unread_count,omitempty"`
}

// Broker fans events out by user identity. Handlers publish; the websocket
// hub subscribes one handler per live connection. Injected everywhere it is
// used, never a package global.
type Broker interface {
	// Publish pushes an event to every subscriber of userID. Missing
	// subscribers are not an error.
	Publish(userID string, ev Event) error

	// Subscribe registers fn for events addressed to userID and returns an
	// unsubscribe function.
	Subscribe(userID string, fn func(Event)) (func(), error)

	Close()
}

// MessageReceived builds the event fanned out to chat members on send.
func MessageReceived(msg *models.Message) Event {
	return Event{Type: EventMessageReceived, Message: msg}
}

// MessagesRead builds the multi-device sync event pushed to the reader.
func MessagesRead(chatID string, unread int) Event {
	return Event{Type: EventMessagesRead, ChatID: chatID, UnreadCount: unread}
}
