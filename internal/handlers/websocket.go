package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"baccarat-live-backend/internal/models"
	"baccarat-live-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the wire envelope for every websocket event.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registration struct {
	client   *Client
	username string
}

type envelope struct {
	username string // empty means broadcast to everyone
	msg      Message
}

// Hub is the fan-out layer. One goroutine owns the client map; register,
// unregister and emit all go through its channels, so two settlements
// broadcasting at once each deliver one complete payload.
type Hub struct {
	clients    map[string]*Client
	register   chan registration
	unregister chan registration
	broadcast  chan envelope
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan registration),
		unregister: make(chan registration),
		broadcast:  make(chan envelope, 100),
	}
}

func (hub *Hub) Run() {
	for {
		select {
		case reg := <-hub.register:
			hub.clients[reg.username] = reg.client
			log.Printf("client registered: %s", reg.username)

		case reg := <-hub.unregister:
			if hub.clients[reg.username] == reg.client {
				delete(hub.clients, reg.username)
				log.Printf("client unregistered: %s", reg.username)
			}

		case env := <-hub.broadcast:
			if env.username != "" {
				if client, ok := hub.clients[env.username]; ok {
					client.enqueue(env.msg)
				}
			} else {
				for _, client := range hub.clients {
					client.enqueue(env.msg)
				}
			}
		}
	}
}

// EmitToAll implements services.Broadcaster.
func (hub *Hub) EmitToAll(event string, payload any) {
	hub.broadcast <- envelope{msg: Message{Type: event, Data: payload}}
}

// EmitToUser implements services.Broadcaster.
func (hub *Hub) EmitToUser(username, event string, payload any) {
	hub.broadcast <- envelope{username: username, msg: Message{Type: event, Data: payload}}
}

// Client is one websocket connection. username is empty until the login
// event binds it to an identity; it is only touched from the read loop.
type Client struct {
	conn *websocket.Conn
	send chan Message
	done chan struct{}

	claims   string // username proven by the JWT
	username string // bound identity, empty while unauthenticated

	closeOnce sync.Once
}

// Send implements services.ClientConn. It never blocks; a client that
// cannot keep up loses the event rather than stalling a settlement.
func (c *Client) Send(event string, payload any) {
	c.enqueue(Message{Type: event, Data: payload})
}

func (c *Client) enqueue(msg Message) {
	select {
	case c.send <- msg:
	default:
		log.Printf("dropping %s event for slow client %s", msg.Type, c.claims)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump is the single writer for the connection.
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

type WebSocketHandler struct {
	hub      *Hub
	engine   *services.GameEngine
	ledger   services.Ledger
	registry *services.Registry
}

func NewWebSocketHandler(hub *Hub, engine *services.GameEngine, ledger services.Ledger, registry *services.Registry) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		engine:   engine,
		ledger:   ledger,
		registry: registry,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	claims := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan Message, 32),
		done:   make(chan struct{}),
		claims: claims,
	}

	go client.writePump()

	defer func() {
		h.disconnect(client)
		client.close()
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *inboundMessage) {
	switch msg.Type {
	case "login":
		h.handleLogin(client, msg.Data)
	case "logout":
		if h.unbind(client) {
			h.broadcastPresence()
		}
	case "place_bet":
		h.handlePlaceBet(client, msg.Data)
	case "chat_message":
		h.handleChat(client, msg.Data)
	}
}

// handleLogin binds the socket to its authenticated identity. Credentials
// were already verified by the HTTP login that issued the token; this step
// admits the session and hydrates the client.
func (h *WebSocketHandler) handleLogin(client *Client, data json.RawMessage) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Username == "" {
		client.Send("login_response", gin.H{"success": false, "message": "Username is required"})
		return
	}

	if payload.Username != client.claims {
		client.Send("login_response", gin.H{"success": false, "message": "Username does not match the session token"})
		return
	}

	if client.username != "" {
		client.Send("login_response", gin.H{"success": false, "message": "Already logged in on this connection"})
		return
	}

	ctx := context.Background()

	user, err := h.ledger.GetUser(ctx, payload.Username)
	if err != nil {
		client.Send("login_response", gin.H{"success": false, "message": "Unregistered user"})
		return
	}

	if err := h.registry.Admit(user.Username, client); err != nil {
		if errors.Is(err, services.ErrAlreadyConnected) {
			client.Send("login_response", gin.H{"success": false, "message": "This account is already connected"})
		} else {
			client.Send("login_response", gin.H{"success": false, "message": "Login failed"})
		}
		return
	}

	client.username = user.Username
	h.hub.register <- registration{client: client, username: user.Username}

	entries, err := h.ledger.History(ctx, user.Username, services.HistoryLimit)
	if err != nil {
		log.Printf("history load failed for %s: %v", user.Username, err)
		entries = nil
	}
	history := make([]string, 0, len(entries))
	for _, entry := range entries {
		history = append(history, entry.Line())
	}

	client.Send("login_response", gin.H{
		"success": true,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"balance":  user.Balance,
			"history":  history,
		},
	})

	h.broadcastPresence()
	h.engine.RefreshRankings(ctx)
}

func (h *WebSocketHandler) handlePlaceBet(client *Client, data json.RawMessage) {
	// Bets from unauthenticated connections are dropped silently.
	if client.username == "" {
		return
	}

	var req models.BetRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.Send("bet_response", gin.H{"success": false, "message": "Invalid bet"})
		return
	}

	h.registry.Touch(client.username)

	if err := h.engine.PlaceBet(context.Background(), client.username, &req); err != nil {
		client.Send("bet_response", gin.H{"success": false, "message": "Invalid bet amount"})
	}
}

func (h *WebSocketHandler) handleChat(client *Client, data json.RawMessage) {
	if client.username == "" {
		return
	}

	var message string
	if err := json.Unmarshal(data, &message); err != nil || message == "" {
		return
	}

	h.hub.EmitToAll("chat_message", gin.H{
		"sender":  client.username,
		"message": message,
		"time":    time.Now().UnixMilli(),
	})
}

// unbind releases the client's session. It reports whether the client was
// bound, so callers know if a presence broadcast is due.
func (h *WebSocketHandler) unbind(client *Client) bool {
	if client.username == "" {
		return false
	}

	name := client.username
	h.registry.Remove(name)
	h.hub.unregister <- registration{client: client, username: name}
	client.username = ""
	return true
}

// disconnect performs the same cleanup as an explicit logout. A dropped
// channel must leave no trace in the presence set.
func (h *WebSocketHandler) disconnect(client *Client) {
	if h.unbind(client) {
		h.broadcastPresence()
	}
}

func (h *WebSocketHandler) broadcastPresence() {
	h.hub.EmitToAll("online_players_update", h.registry.ListActive())
}
