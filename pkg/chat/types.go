// Package chat contains the public domain models, interfaces, and wire event
// definitions for the chat service. It defines the contract between the REST
// layer, the persistence adapters, and the real-time delivery core.
package chat

import (
	"encoding/json"
	"time"
)

// UserID is the opaque identifier of an account. It matches the account
// record's primary key and is immutable once issued.
type UserID string

func (id UserID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id UserID) IsZero() bool { return id == "" }

// User is an account record as stored by the AccountStore.
// The password field holds the bcrypt hash, never the plaintext, and is
// excluded from every JSON response.
type User struct {
	ID         UserID    `json:"_id" bson:"_id"`
	FullName   string    `json:"fullName" bson:"fullName"`
	Email      string    `json:"email" bson:"email"`
	Password   string    `json:"-" bson:"password"`
	ProfilePic string    `json:"profilePic" bson:"profilePic"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Message is a persisted chat message between two users.
type Message struct {
	ID          string    `json:"_id" bson:"_id"`
	SenderID    UserID    `json:"senderId" bson:"senderId"`
	RecipientID UserID    `json:"receiverId" bson:"receiverId"`
	Text        string    `json:"text,omitempty" bson:"text,omitempty"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// OutboundMessageEvent is handed to the delivery core after a message record
// has been durably stored. The core only reads it to decide delivery; it never
// mutates or re-persists it.
type OutboundMessageEvent struct {
	SenderID    UserID
	RecipientID UserID
	Message     Message
	CreatedAt   time.Time
}

// Wire event names pushed over the real-time channel. Presence and chat
// payloads share one envelope and are distinguished by the event tag.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
)

// Frame is the JSON envelope for every server-to-client real-time push.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewFrame marshals payload into a Frame ready for the wire.
func NewFrame(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}
