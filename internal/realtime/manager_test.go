package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jokkie98/fullstack-chat-app/internal/auth"
	"github.com/jokkie98/fullstack-chat-app/internal/test/fakes"
	"github.com/jokkie98/fullstack-chat-app/pkg/chat"
)

const testSecret = "manager-test-secret"

// testFixture holds the wired-up components for a manager test.
type testFixture struct {
	manager  *Manager
	registry *Registry
	router   *Router
	accounts *fakes.AccountStore
	issuer   *auth.Issuer
	wsServer *httptest.Server
}

func setup(t *testing.T) *testFixture {
	t.Helper()
	logger := zerolog.Nop()

	accounts := fakes.NewAccountStore()
	verifier := auth.NewVerifier([]byte(testSecret), accounts)
	registry := NewRegistry(logger)
	presence := NewBroadcaster(registry, logger)

	manager, err := NewManager("0", verifier, registry, presence, nil, logger)
	require.NoError(t, err, "NewManager failed")

	wsServer := httptest.NewServer(manager.server.Handler)
	t.Cleanup(wsServer.Close)

	return &testFixture{
		manager:  manager,
		registry: registry,
		router:   NewRouter(registry, logger),
		accounts: accounts,
		issuer:   auth.NewIssuer([]byte(testSecret), time.Hour),
		wsServer: wsServer,
	}
}

func (fx *testFixture) addUser(t *testing.T, id chat.UserID) {
	t.Helper()
	require.NoError(t, fx.accounts.CreateUser(context.Background(), &chat.User{
		ID:       id,
		FullName: string(id),
		Email:    string(id) + "@example.com",
	}))
}

func (fx *testFixture) wsURL(query string) string {
	url := "ws" + strings.TrimPrefix(fx.wsServer.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	return url
}

// connect dials the websocket server as the given user and waits for the
// handshake to complete.
func (fx *testFixture) connect(t *testing.T, id chat.UserID) *websocket.Conn {
	t.Helper()
	token, err := fx.issuer.Issue(id)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(fx.wsURL("token="+token), nil)
	require.NoError(t, err, "failed to dial test WebSocket server")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame reads the next frame with a deadline.
func readFrame(t *testing.T, conn *websocket.Conn) chat.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err, "expected a frame before the read deadline")
	var frame chat.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

// readOnline reads the next presence frame and returns the set it carries.
func readOnline(t *testing.T, conn *websocket.Conn) map[chat.UserID]struct{} {
	t.Helper()
	return decodeOnline(t, readFrame(t, conn))
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame within the deadline")
}

func waitOnline(t *testing.T, fx *testFixture, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(fx.registry.OnlineUsers()) == want
	}, 2*time.Second, 10*time.Millisecond, "registry did not reach %d online users", want)
}

func TestManager_RejectedHandshakeNeverRegisters(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")

	cases := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "token=not-a-jwt", http.StatusUnauthorized},
		{"forged token", "token=" + forgedToken(t, "user-a"), http.StatusUnauthorized},
		{"deleted account", "token=" + issuedToken(t, fx, "user-gone"), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(fx.wsURL(tc.query), nil)
			require.Error(t, err)
			require.Nil(t, conn)
			require.NotNil(t, resp)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}

	assert.Empty(t, fx.registry.OnlineUsers(), "rejected handshakes must not touch the registry")
}

func TestManager_ClaimedIdentityMustMatchTokenSubject(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")
	fx.addUser(t, "user-b")

	token := issuedToken(t, fx, "user-a")
	_, resp, err := websocket.DefaultDialer.Dial(fx.wsURL("userId=user-b&token="+token), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, fx.registry.OnlineUsers())
}

func TestManager_NewConnectionSeesItselfOnline(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")

	conn := fx.connect(t, "user-a")

	online := readOnline(t, conn)
	assert.Contains(t, online, chat.UserID("user-a"),
		"first presence snapshot must include the connecting client itself")
}

func TestManager_PresenceLifecycle(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")
	fx.addUser(t, "user-b")

	// A connects and observes {A}.
	connA := fx.connect(t, "user-a")
	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, readOnline(t, connA))

	// B connects: both observe {A, B}.
	connB := fx.connect(t, "user-b")
	both := map[chat.UserID]struct{}{"user-a": {}, "user-b": {}}
	assert.Equal(t, both, readOnline(t, connA))
	assert.Equal(t, both, readOnline(t, connB))

	// B disconnects: A observes {A} again.
	require.NoError(t, connB.Close())
	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, readOnline(t, connA))
	waitOnline(t, fx, 1)

	// A messages the offline B: the router finds no handle and delivers
	// nothing; A's connection stays quiet.
	fx.router.Route(context.Background(), testEvent("user-a", "user-b", "missed"))
	expectNoFrame(t, connA)

	// B reconnects on a fresh handle: both observe {A, B} and the earlier
	// message is not replayed through this path.
	connB2 := fx.connect(t, "user-b")
	assert.Equal(t, both, readOnline(t, connB2))
	expectNoFrame(t, connB2)
}

func TestManager_MultiDevicePresence(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")
	fx.addUser(t, "user-b")

	connA := fx.connect(t, "user-a")
	readOnline(t, connA)

	phone := fx.connect(t, "user-b")
	readOnline(t, connA)
	readOnline(t, phone)
	laptop := fx.connect(t, "user-b")
	readOnline(t, connA)
	readOnline(t, phone)
	readOnline(t, laptop)

	// Dropping one device keeps B online.
	require.NoError(t, phone.Close())
	assert.Equal(t,
		map[chat.UserID]struct{}{"user-a": {}, "user-b": {}},
		readOnline(t, connA),
		"user with another live handle stays online")

	// Dropping the last device takes B offline.
	require.NoError(t, laptop.Close())
	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, readOnline(t, connA))
}

func TestManager_RoutedMessageReachesRecipientOnly(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")
	fx.addUser(t, "user-b")

	connA := fx.connect(t, "user-a")
	readOnline(t, connA)
	connB := fx.connect(t, "user-b")
	readOnline(t, connA)
	readOnline(t, connB)

	fx.router.Route(context.Background(), testEvent("user-a", "user-b", "hello b"))

	frame := readFrame(t, connB)
	assert.Equal(t, "hello b", decodeMessage(t, frame).Text)
	expectNoFrame(t, connA)
}

func TestManager_CloseUserForcesDisconnect(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")
	fx.addUser(t, "user-b")

	connA := fx.connect(t, "user-a")
	readOnline(t, connA)
	connB := fx.connect(t, "user-b")
	readOnline(t, connA)
	readOnline(t, connB)

	// REST delete/logout path: every handle of B is force-closed and B's
	// own lifecycle republishes presence.
	fx.manager.CloseUser("user-b")

	assert.Equal(t, map[chat.UserID]struct{}{"user-a": {}}, readOnline(t, connA))
	waitOnline(t, fx, 1)

	_ = connB.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err, "forced close must terminate the client's transport")
}

func TestManager_ShutdownClosesAllConnections(t *testing.T) {
	fx := setup(t)
	fx.addUser(t, "user-a")

	conn := fx.connect(t, "user-a")
	readOnline(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fx.manager.Shutdown(ctx))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Empty(t, fx.registry.OnlineUsers())
}

// issuedToken signs a token for a user with the fixture's real secret.
func issuedToken(t *testing.T, fx *testFixture, id chat.UserID) string {
	t.Helper()
	token, err := fx.issuer.Issue(id)
	require.NoError(t, err)
	return token
}

// forgedToken signs a token for a user with the wrong secret.
func forgedToken(t *testing.T, id chat.UserID) string {
	t.Helper()
	token, err := auth.NewIssuer([]byte("wrong-secret"), time.Hour).Issue(id)
	require.NoError(t, err)
	return token
}
