package chat

import (
	"context"
	"errors"
)

// Sentinel errors returned by the stores. Callers branch with errors.Is.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// AccountStore persists account records. Implementations must return
// ErrUserNotFound for lookups that miss and ErrDuplicateEmail when a signup
// reuses an existing address.
type AccountStore interface {
	CreateUser(ctx context.Context, user *User) error
	UserByID(ctx context.Context, id UserID) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id UserID) error
	// ListOthers returns every account except the given one, for the
	// contact sidebar.
	ListOthers(ctx context.Context, id UserID) ([]*User, error)
}

// MessageStore persists chat messages. Delivery to live connections only ever
// happens after SaveMessage has returned nil.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *Message) error
	// MessagesBetween returns the conversation between two users in
	// chronological order, regardless of direction.
	MessagesBetween(ctx context.Context, a, b UserID) ([]*Message, error)
}

// MessageDeliverer pushes a stored message to the recipient's live
// connections. A miss (recipient offline) is routine and never an error.
type MessageDeliverer interface {
	Route(ctx context.Context, event OutboundMessageEvent)
}

// ConnectionCloser force-closes every live real-time connection of a user.
// The REST layer calls it after logout and account deletion so a gone account
// does not linger as "online".
type ConnectionCloser interface {
	CloseUser(id UserID)
}
