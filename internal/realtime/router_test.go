package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

func testEvent(sender, recipient chat.UserID, text string) chat.OutboundMessageEvent {
	msg := chat.Message{
		ID:          "msg-1",
		SenderID:    sender,
		RecipientID: recipient,
		Text:        text,
		CreatedAt:   time.Now(),
	}
	return chat.OutboundMessageEvent{
		SenderID:    sender,
		RecipientID: recipient,
		Message:     msg,
		CreatedAt:   msg.CreatedAt,
	}
}

func decodeMessage(t *testing.T, frame chat.Frame) chat.Message {
	t.Helper()
	require.Equal(t, chat.EventNewMessage, frame.Event)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(frame.Payload, &msg))
	return msg
}

func TestRouter_DeliversToSingleHandleOnly(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	router := NewRouter(reg, zerolog.Nop())

	sender := newTestConn("user-a")
	recipient := newTestConn("user-b")
	bystander := newTestConn("user-c")
	reg.Register(sender)
	reg.Register(recipient)
	reg.Register(bystander)

	router.Route(context.Background(), testEvent("user-a", "user-b", "hello"))

	msg := decodeMessage(t, drainFrame(t, recipient))
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, chat.UserID("user-a"), msg.SenderID)

	assert.Empty(t, sender.send, "sender gets nothing back through the router")
	assert.Empty(t, bystander.send, "unrelated handle gets nothing")
}

func TestRouter_FansOutToEveryRecipientHandle(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	router := NewRouter(reg, zerolog.Nop())

	phone := newTestConn("user-b")
	laptop := newTestConn("user-b")
	reg.Register(phone)
	reg.Register(laptop)

	router.Route(context.Background(), testEvent("user-a", "user-b", "ping"))

	assert.Equal(t, "ping", decodeMessage(t, drainFrame(t, phone)).Text)
	assert.Equal(t, "ping", decodeMessage(t, drainFrame(t, laptop)).Text)
}

func TestRouter_OfflineRecipientIsSilentDrop(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	router := NewRouter(reg, zerolog.Nop())

	online := newTestConn("user-a")
	reg.Register(online)

	// No handle for user-b: lookup misses, nothing is delivered, nothing
	// errors. The recipient fetches history on reconnect.
	router.Route(context.Background(), testEvent("user-a", "user-b", "into the void"))

	assert.Empty(t, online.send)
}

func TestRouter_NeverMutatesRegistry(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	router := NewRouter(reg, zerolog.Nop())

	recipient := newTestConn("user-b")
	reg.Register(recipient)

	router.Route(context.Background(), testEvent("user-a", "user-b", "one"))
	router.Route(context.Background(), testEvent("user-a", "user-c", "two"))

	online, handles := reg.Snapshot()
	assert.Equal(t, []chat.UserID{"user-b"}, online)
	assert.Len(t, handles, 1)
}

func TestRouter_FailedHandleDoesNotBlockOthers(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	router := NewRouter(reg, zerolog.Nop())

	stuck := newTestConn("user-b")
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, stuck.Send([]byte("{}")))
	}
	healthy := newTestConn("user-b")
	reg.Register(stuck)
	reg.Register(healthy)

	router.Route(context.Background(), testEvent("user-a", "user-b", "still arrives"))

	assert.Equal(t, "still arrives", decodeMessage(t, drainFrame(t, healthy)).Text)
}
