// Package ws pushes live chat events to connected clients: typing ticks
// while a response is being revealed, committed messages, and toast
// notifications. Clients may also submit chat messages over the socket.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"lume-companion/backend/internal/models"
	apperrors "lume-companion/backend/pkg/errors"
	"lume-companion/backend/pkg/logger"
	"lume-companion/backend/pkg/notify"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // single-user local app, all origins accepted
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Message is the envelope for every frame in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Submitter starts a chat round-trip for a character.
type Submitter interface {
	Submit(characterID, content string) (models.ChatMessage, error)
}

// Client is one connected websocket peer.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub fans events out to every connected client. It implements the chat
// event sink and the notification sink, so a single instance is wired into
// both the orchestrator and the notifier.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	submitter  Submitter
	log        *logger.Logger
	mu         sync.Mutex
}

// NewHub creates the hub. The submitter may be set later via SetSubmitter
// when construction order requires it.
func NewHub(submitter Submitter, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		submitter:  submitter,
		log:        log,
	}
}

// SetSubmitter wires the chat orchestrator after construction.
func (h *Hub) SetSubmitter(s Submitter) {
	h.mu.Lock()
	h.submitter = s
	h.mu.Unlock()
}

// Run owns the client set. It must run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Info("WebSocket client registered", "client_id", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.log.Info("WebSocket client unregistered", "client_id", client.ID)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
					h.log.Warn("WebSocket client dropped, send buffer full", "client_id", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// TypingTick broadcasts the growing partial text of a reveal in progress.
func (h *Hub) TypingTick(characterID, partial string) {
	h.Broadcast("typing", map[string]interface{}{
		"characterId": characterID,
		"partial":     partial,
	})
}

// MessageCommitted broadcasts a message that has been appended to a
// character's history.
func (h *Hub) MessageCommitted(characterID string, msg models.ChatMessage) {
	h.Broadcast("chat", map[string]interface{}{
		"characterId": characterID,
		"message":     msg,
	})
}

// Notify broadcasts a toast notification.
func (h *Hub) Notify(n notify.Notification) {
	h.Broadcast("notification", map[string]interface{}{
		"level":   string(n.Level),
		"message": n.Message,
	})
}

// Broadcast sends one envelope to every connected client.
func (h *Hub) Broadcast(messageType string, content interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Content: content})
	if err != nil {
		h.log.LogError(err, "failed to marshal websocket message", "type", messageType)
		return
	}
	h.broadcast <- data
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("WebSocket read failed", "client_id", c.ID, "error", err.Error())
			}
			break
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.Hub.log.Warn("Malformed websocket frame", "client_id", c.ID, "error", err.Error())
			continue
		}

		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message Message) {
	switch message.Type {
	case "chat":
		c.handleChatMessage(message)
	case "ping":
		c.sendMessage("pong", nil)
	default:
		c.Hub.log.Warn("Unknown websocket message type", "client_id", c.ID, "type", message.Type)
	}
}

func (c *Client) handleChatMessage(message Message) {
	var chatContent struct {
		CharacterID string `json:"characterId"`
		Content     string `json:"content"`
	}

	contentBytes, err := json.Marshal(message.Content)
	if err != nil {
		c.sendError("INVALID_MESSAGE", "malformed chat content")
		return
	}
	if err := json.Unmarshal(contentBytes, &chatContent); err != nil {
		c.sendError("INVALID_MESSAGE", "malformed chat content")
		return
	}

	c.Hub.mu.Lock()
	submitter := c.Hub.submitter
	c.Hub.mu.Unlock()
	if submitter == nil {
		c.sendError("UNAVAILABLE", "chat is not available")
		return
	}

	// The committed user message and the eventual response come back to
	// every client through the hub's event sink, not as a direct reply.
	if _, err := submitter.Submit(chatContent.CharacterID, chatContent.Content); err != nil {
		appErr := apperrors.FromError(err)
		c.sendError(appErr.Code, appErr.Message)
	}
}

func (c *Client) sendMessage(messageType string, content interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Content: content})
	if err != nil {
		c.Hub.log.LogError(err, "failed to marshal websocket message", "type", messageType)
		return
	}

	select {
	case c.Send <- data:
	default:
		c.Hub.log.Warn("Dropping websocket message, send buffer full", "client_id", c.ID)
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage("error", map[string]string{
		"code":    code,
		"message": message,
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Drain queued messages as separate frames.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades the request and registers the new client with the hub.
func ServeWs(hub *Hub, c *gin.Context) {
	clientID := c.Query("clientId")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "failed to upgrade websocket connection")
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		ID:   clientID,
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
