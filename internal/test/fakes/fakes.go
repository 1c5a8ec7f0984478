// Package fakes provides in-memory test doubles for the service's
// collaborators. They back the unit tests and the cmd local run mode.
package fakes

import (
	"context"
	"sort"
	"sync"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// AccountStore is an in-memory chat.AccountStore.
type AccountStore struct {
	mu    sync.Mutex
	users map[chat.UserID]chat.User
}

func NewAccountStore() *AccountStore {
	return &AccountStore{users: make(map[chat.UserID]chat.User)}
}

func (s *AccountStore) CreateUser(_ context.Context, user *chat.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return chat.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *AccountStore) UserByID(_ context.Context, id chat.UserID) (*chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, chat.ErrUserNotFound
	}
	return &u, nil
}

func (s *AccountStore) UserByEmail(_ context.Context, email string) (*chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, chat.ErrUserNotFound
}

func (s *AccountStore) UpdateUser(_ context.Context, user *chat.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return chat.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return chat.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *AccountStore) DeleteUser(_ context.Context, id chat.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return chat.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *AccountStore) ListOthers(_ context.Context, id chat.UserID) ([]*chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*chat.User
	for uid, u := range s.users {
		if uid == id {
			continue
		}
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

var _ chat.AccountStore = (*AccountStore)(nil)

// MessageStore is an in-memory chat.MessageStore.
type MessageStore struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func NewMessageStore() *MessageStore { return &MessageStore{} }

func (s *MessageStore) SaveMessage(_ context.Context, msg *chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, *msg)
	return nil
}

func (s *MessageStore) MessagesBetween(_ context.Context, a, b chat.UserID) ([]*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*chat.Message
	for i := range s.msgs {
		m := s.msgs[i]
		if (m.SenderID == a && m.RecipientID == b) || (m.SenderID == b && m.RecipientID == a) {
			out = append(out, &m)
		}
	}
	return out, nil
}

var _ chat.MessageStore = (*MessageStore)(nil)

// Deliverer records routed events instead of pushing them anywhere.
type Deliverer struct {
	mu     sync.Mutex
	events []chat.OutboundMessageEvent
}

func NewDeliverer() *Deliverer { return &Deliverer{} }

func (d *Deliverer) Route(_ context.Context, event chat.OutboundMessageEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

// Events returns a copy of everything routed so far.
func (d *Deliverer) Events() []chat.OutboundMessageEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chat.OutboundMessageEvent(nil), d.events...)
}

var _ chat.MessageDeliverer = (*Deliverer)(nil)

// Closer records force-close requests.
type Closer struct {
	mu     sync.Mutex
	closed []chat.UserID
}

func NewCloser() *Closer { return &Closer{} }

func (c *Closer) CloseUser(id chat.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, id)
}

// Closed returns a copy of the IDs force-closed so far.
func (c *Closer) Closed() []chat.UserID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.UserID(nil), c.closed...)
}

var _ chat.ConnectionCloser = (*Closer)(nil)
