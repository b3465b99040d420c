package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/leaderboard"
)

// Message types
const (
	MessageTypeLeaderboardUpdate = "leaderboard_update"
	MessageTypeSubscribe         = "subscribe"
	MessageTypeUnsubscribe       = "unsubscribe"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
	MessageTypeError             = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Window    string      `json:"window,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains the set of connected clients and one ranking engine per
// subscribed time window. An engine exists only while at least one client
// is subscribed to its window; the last unsubscribe closes it, releasing
// the live collection subscription.
type Hub struct {
	source leaderboard.Source

	// Registered clients by window
	clients map[domain.Window]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	// One ranking engine per window with live subscribers
	engines map[domain.Window]*leaderboard.Engine

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	window domain.Window
}

// NewHub creates a new Hub over a live leaderboard source.
func NewHub(source leaderboard.Source, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		source:      source,
		clients:     make(map[domain.Window]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		engines:     make(map[domain.Window]*leaderboard.Engine),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			h.closeEngines()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.removeClient(client)
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.addSubscription(req)

		case req := <-h.unsubscribe:
			h.removeSubscription(req)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) addSubscription(req *subscriptionRequest) {
	h.mu.Lock()
	// A client watches one window at a time.
	for window, clients := range h.clients {
		if window != req.window && clients[req.client] {
			delete(clients, req.client)
			h.reapLocked(window)
		}
	}
	if _, ok := h.clients[req.window]; !ok {
		h.clients[req.window] = make(map[*Client]bool)
	}
	h.clients[req.window][req.client] = true

	engine, ok := h.engines[req.window]
	if !ok {
		window := req.window
		engine = leaderboard.NewEngine(h.source, window, h.logger, func(view domain.LeaderboardView) {
			h.BroadcastView(view)
		})
		h.engines[window] = engine
	}
	view := engine.View()
	h.mu.Unlock()

	// Deliver the current snapshot to the new subscriber immediately.
	req.client.sendView(view)
	h.logger.Debug("client subscribed", "client_id", req.client.id, "window", req.window)
}

func (h *Hub) removeSubscription(req *subscriptionRequest) {
	h.mu.Lock()
	if clients, ok := h.clients[req.window]; ok {
		delete(clients, req.client)
		h.reapLocked(req.window)
	}
	h.mu.Unlock()
	h.logger.Debug("client unsubscribed", "client_id", req.client.id, "window", req.window)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.allClients[client]; ok {
		delete(h.allClients, client)
		for window, clients := range h.clients {
			if clients[client] {
				delete(clients, client)
				h.reapLocked(window)
			}
		}
		close(client.send)
	}
	h.mu.Unlock()
}

// reapLocked drops a window's client set and engine once empty.
func (h *Hub) reapLocked(window domain.Window) {
	if clients, ok := h.clients[window]; ok && len(clients) == 0 {
		delete(h.clients, window)
		if engine, ok := h.engines[window]; ok {
			delete(h.engines, window)
			engine.Close()
		}
	}
}

func (h *Hub) closeEngines() {
	h.mu.Lock()
	for window, engine := range h.engines {
		engine.Close()
		delete(h.engines, window)
	}
	h.mu.Unlock()
}

// broadcastMessage sends a message to the clients subscribed to its window.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	if message.Window != "" {
		if clients, ok := h.clients[domain.Window(message.Window)]; ok {
			for client := range clients {
				select {
				case client.send <- data:
				default:
					// Client's buffer is full, skip
					h.logger.Warn("client buffer full, skipping", "client_id", client.id)
				}
			}
		}
		return
	}

	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// BroadcastView pushes a ranked leaderboard snapshot to the window's
// subscribers.
func (h *Hub) BroadcastView(view domain.LeaderboardView) {
	message := &Message{
		Type:      MessageTypeLeaderboardUpdate,
		Window:    string(view.Window),
		Data:      view,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe switches a client onto a window's live view
func (h *Hub) Subscribe(client *Client, window domain.Window) {
	h.subscribe <- &subscriptionRequest{client: client, window: window}
}

// Unsubscribe detaches a client from a window's live view
func (h *Hub) Unsubscribe(client *Client, window domain.Window) {
	h.unsubscribe <- &subscriptionRequest{client: client, window: window}
}

// GetSubscriberCount returns the number of subscribers for a window
func (h *Hub) GetSubscriberCount(window domain.Window) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[window]; ok {
		return len(clients)
	}
	return 0
}

// GetTotalConnections returns the total number of connected clients
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
