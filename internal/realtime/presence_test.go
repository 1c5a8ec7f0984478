package realtime

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

// drainFrame decodes the next buffered frame of a test connection, or fails.
func drainFrame(t *testing.T, c *Connection) chat.Frame {
	t.Helper()
	select {
	case raw := <-c.send:
		var frame chat.Frame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	default:
		t.Fatalf("no frame buffered for user %s", c.userID)
		return chat.Frame{}
	}
}

func decodeOnline(t *testing.T, frame chat.Frame) map[chat.UserID]struct{} {
	t.Helper()
	require.Equal(t, chat.EventOnlineUsers, frame.Event)
	var ids []chat.UserID
	require.NoError(t, json.Unmarshal(frame.Payload, &ids))
	set := make(map[chat.UserID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestBroadcaster_PublishReachesEveryHandle(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	b := NewBroadcaster(reg, zerolog.Nop())

	a1 := newTestConn("user-a")
	b1 := newTestConn("user-b")
	b2 := newTestConn("user-b")
	reg.Register(a1)
	reg.Register(b1)
	reg.Register(b2)

	b.Publish()

	want := map[chat.UserID]struct{}{"user-a": {}, "user-b": {}}
	for _, c := range []*Connection{a1, b1, b2} {
		assert.Equal(t, want, decodeOnline(t, drainFrame(t, c)))
	}
}

func TestBroadcaster_SnapshotIsFullSetNotDelta(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	b := NewBroadcaster(reg, zerolog.Nop())

	a1 := newTestConn("user-a")
	reg.Register(a1)
	b.Publish()
	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, decodeOnline(t, drainFrame(t, a1)))

	b1 := newTestConn("user-b")
	reg.Register(b1)
	b.Publish()

	// Both clients see the complete current set, not a diff.
	want := map[chat.UserID]struct{}{"user-a": {}, "user-b": {}}
	assert.Equal(t, want, decodeOnline(t, drainFrame(t, a1)))
	assert.Equal(t, want, decodeOnline(t, drainFrame(t, b1)))

	reg.Deregister(b1)
	b.Publish()
	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, decodeOnline(t, drainFrame(t, a1)))
}

func TestBroadcaster_OneFailedHandleDoesNotAbortFanOut(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	b := NewBroadcaster(reg, zerolog.Nop())

	healthy := newTestConn("user-a")
	stuck := newTestConn("user-b")
	// Saturate the stuck handle's buffer so its push fails.
	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, stuck.Send([]byte("{}")))
	}
	reg.Register(healthy)
	reg.Register(stuck)

	b.Publish()

	assert.Equal(t,
		map[chat.UserID]struct{}{"user-a": {}, "user-b": {}},
		decodeOnline(t, drainFrame(t, healthy)),
		"healthy handle still receives the snapshot")
}

func TestBroadcaster_ClosedHandleIsSkippedQuietly(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	b := NewBroadcaster(reg, zerolog.Nop())

	open := newTestConn("user-a")
	closed := newTestConn("user-b")
	reg.Register(open)
	reg.Register(closed)
	closed.Close()

	// The closed handle is corrected by its own disconnect path; publishing
	// around it must not panic or stall.
	b.Publish()
	assert.Equal(t,
		map[chat.UserID]struct{}{"user-a": {}, "user-b": {}},
		decodeOnline(t, drainFrame(t, open)))
}
