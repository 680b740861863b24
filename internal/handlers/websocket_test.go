package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baccarat-live-backend/internal/baccarat"
	"baccarat-live-backend/internal/config"
	"baccarat-live-backend/internal/middleware"
	"baccarat-live-backend/internal/models"
	"baccarat-live-backend/internal/services"
)

// memLedger is a minimal in-memory Ledger for handler tests.
type memLedger struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemLedger(usernames ...string) *memLedger {
	l := &memLedger{users: make(map[string]*models.User)}
	for i, name := range usernames {
		l.users[name] = &models.User{ID: int64(i + 1), Username: name, Balance: 1000}
	}
	return l
}

func (l *memLedger) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.users[username]; ok {
		return nil, services.ErrUserExists
	}
	u := &models.User{ID: int64(len(l.users) + 1), Username: username, Balance: 1000}
	l.users[username] = u
	return u, nil
}

func (l *memLedger) GetUser(ctx context.Context, username string) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[username]
	if !ok {
		return nil, services.ErrUnknownUser
	}
	copied := *u
	return &copied, nil
}

func (l *memLedger) ApplySettlement(ctx context.Context, username string, won bool, amount float64, entry models.HistoryEntry) (*models.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[username]
	if !ok {
		return nil, services.ErrUnknownUser
	}
	if won {
		u.Balance += amount
		u.Wins++
		u.Profit += amount
	} else {
		u.Balance -= amount
		u.Losses++
		u.Profit -= amount
	}
	copied := *u
	return &copied, nil
}

func (l *memLedger) History(ctx context.Context, username string, limit int64) ([]models.HistoryEntry, error) {
	return nil, nil
}

func (l *memLedger) Rankings(ctx context.Context, limit int64) ([]models.RankingRow, error) {
	return []models.RankingRow{}, nil
}

func newTestClient(claims string) *Client {
	return &Client{
		send:   make(chan Message, 64),
		done:   make(chan struct{}),
		claims: claims,
	}
}

// recvType reads from the client's send channel until a message of the
// given type arrives.
func recvType(t *testing.T, c *Client, msgType string) Message {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.send:
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q message", msgType)
		}
	}
}

func newTestHandler(ledger services.Ledger) (*WebSocketHandler, *services.Registry) {
	hub := NewHub()
	go hub.Run()
	registry := services.NewRegistry()
	engine := services.NewGameEngine(ledger, hub, baccarat.NewDealer(), 5*time.Millisecond)
	return NewWebSocketHandler(hub, engine, ledger, registry), registry
}

func TestHubUnicastAndBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	hub.register <- registration{client: alice, username: "alice"}
	hub.register <- registration{client: bob, username: "bob"}

	hub.EmitToAll("chat_message", "hello")
	recvType(t, alice, "chat_message")
	recvType(t, bob, "chat_message")

	hub.EmitToUser("alice", "game_result", "private")
	recvType(t, alice, "game_result")

	select {
	case msg := <-bob.send:
		t.Fatalf("bob should not receive alice's unicast, got %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoginBindsAndAnnounces(t *testing.T) {
	handler, registry := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice")

	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))

	resp := recvType(t, client, "login_response")
	payload := resp.Data.(gin.H)
	assert.Equal(t, true, payload["success"])

	user := payload["user"].(gin.H)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, 1000.0, user["balance"])

	recvType(t, client, "online_players_update")
	recvType(t, client, "rankings_update")

	_, ok := registry.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, "alice", client.username)
}

func TestLoginRejectsDuplicateSession(t *testing.T) {
	handler, registry := newTestHandler(newMemLedger("alice"))

	first := newTestClient("alice")
	handler.handleLogin(first, json.RawMessage(`{"username":"alice"}`))
	recvType(t, first, "login_response")

	second := newTestClient("alice")
	handler.handleLogin(second, json.RawMessage(`{"username":"alice"}`))

	resp := recvType(t, second, "login_response")
	payload := resp.Data.(gin.H)
	assert.Equal(t, false, payload["success"])

	// The first binding survives.
	conn, ok := registry.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, first, conn)
	assert.Empty(t, second.username)
}

func TestLoginRejectsClaimMismatch(t *testing.T) {
	handler, registry := newTestHandler(newMemLedger("alice", "bob"))
	client := newTestClient("bob")

	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))

	resp := recvType(t, client, "login_response")
	payload := resp.Data.(gin.H)
	assert.Equal(t, false, payload["success"])

	_, ok := registry.Lookup("alice")
	assert.False(t, ok)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger())
	client := newTestClient("ghost")

	handler.handleLogin(client, json.RawMessage(`{"username":"ghost"}`))

	resp := recvType(t, client, "login_response")
	payload := resp.Data.(gin.H)
	assert.Equal(t, false, payload["success"])
}

func TestDisconnectRestoresPresence(t *testing.T) {
	handler, registry := newTestHandler(newMemLedger("alice"))

	before := registry.ListActive()

	client := newTestClient("alice")
	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))
	recvType(t, client, "login_response")
	require.Equal(t, []string{"alice"}, registry.ListActive())

	handler.disconnect(client)

	assert.Equal(t, before, registry.ListActive())
	assert.Empty(t, client.username)

	// Disconnecting again is harmless.
	handler.disconnect(client)
}

func TestPlaceBetUnauthenticatedDroppedSilently(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice") // never logged in

	handler.handlePlaceBet(client, json.RawMessage(`{"choice":"player","amount":50}`))

	select {
	case msg := <-client.send:
		t.Fatalf("unauthenticated bet should produce no response, got %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPlaceBetInvalidAmountRejected(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice")
	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))
	recvType(t, client, "login_response")

	handler.handlePlaceBet(client, json.RawMessage(`{"choice":"player","amount":99999}`))

	resp := recvType(t, client, "bet_response")
	payload := resp.Data.(gin.H)
	assert.Equal(t, false, payload["success"])
}

func TestPlaceBetResolvesOverSocket(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice")
	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))
	recvType(t, client, "login_response")

	handler.handlePlaceBet(client, json.RawMessage(`{"choice":"player","amount":50}`))

	recvType(t, client, "game_started")
	result := recvType(t, client, "game_result")
	recvType(t, client, "game_completed")

	payload := result.Data.(map[string]any)
	isWin := payload["isWin"].(bool)
	balance := payload["newBalance"].(float64)
	if isWin {
		assert.Equal(t, 1050.0, balance)
	} else {
		assert.Equal(t, 950.0, balance)
	}
}

func TestChatRelay(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice")
	handler.handleLogin(client, json.RawMessage(`{"username":"alice"}`))
	recvType(t, client, "login_response")

	handler.handleChat(client, json.RawMessage(`"hello room"`))

	msg := recvType(t, client, "chat_message")
	payload := msg.Data.(gin.H)
	assert.Equal(t, "alice", payload["sender"])
	assert.Equal(t, "hello room", payload["message"])
	assert.NotNil(t, payload["time"])
}

func TestWebSocketEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler, _ := newTestHandler(newMemLedger("alice"))
	jwtService := services.NewJWTService(&config.Config{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
	})

	router := gin.New()
	router.GET("/api/ws", middleware.AuthMiddleware(jwtService), handler.HandleWebSocket)

	srv := httptest.NewServer(router)
	defer srv.Close()

	token, err := jwtService.GenerateToken("alice")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil := func(msgType string) json.RawMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var msg inboundMessage
			require.NoError(t, conn.ReadJSON(&msg))
			if msg.Type == msgType {
				return msg.Data
			}
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "login",
		"data": map[string]string{"username": "alice"},
	}))

	var loginResp struct {
		Success bool `json:"success"`
		User    struct {
			Username string  `json:"username"`
			Balance  float64 `json:"balance"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(readUntil("login_response"), &loginResp))
	require.True(t, loginResp.Success)
	assert.Equal(t, "alice", loginResp.User.Username)
	assert.Equal(t, 1000.0, loginResp.User.Balance)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "place_bet",
		"data": map[string]any{"choice": "player", "amount": 50},
	}))

	readUntil("game_started")

	var result struct {
		IsWin      bool    `json:"isWin"`
		NewBalance float64 `json:"newBalance"`
		Bet        float64 `json:"bet"`
	}
	require.NoError(t, json.Unmarshal(readUntil("game_result"), &result))
	assert.Equal(t, 50.0, result.Bet)
	if result.IsWin {
		assert.Equal(t, 1050.0, result.NewBalance)
	} else {
		assert.Equal(t, 950.0, result.NewBalance)
	}

	readUntil("game_completed")
}

func TestChatFromUnauthenticatedDropped(t *testing.T) {
	handler, _ := newTestHandler(newMemLedger("alice"))
	client := newTestClient("alice") // unbound

	handler.handleChat(client, json.RawMessage(`"sneaky"`))

	select {
	case msg := <-client.send:
		t.Fatalf("unauthenticated chat should be dropped, got %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
