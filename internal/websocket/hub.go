// Package websocket streams live gameplay events to spectators.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/career-sequence-game/internal/domain"
)

// Message types
const (
	MessageTypeSessionStarted = "session_started"
	MessageTypePuzzleSolved   = "puzzle_solved"
	MessageTypeSubscribe      = "subscribe"
	MessageTypeUnsubscribe    = "unsubscribe"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
	MessageTypeError          = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type       string                `json:"type"`
	Difficulty domain.DifficultyTier `json:"difficulty,omitempty"`
	Data       interface{}           `json:"data,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// SolveEvent is broadcast when a spectated puzzle is solved
type SolveEvent struct {
	Difficulty domain.DifficultyTier `json:"difficulty"`
	PlayerName string                `json:"player_name"`
	Score      int                   `json:"score"`
}

// Hub maintains the set of spectator clients. Clients may subscribe to a
// single difficulty tier or receive every event.
type Hub struct {
	// Subscribed clients by difficulty tier
	clients map[domain.DifficultyTier]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

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
	client     *Client
	difficulty domain.DifficultyTier
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[domain.DifficultyTier]map[*Client]bool),
		allClients:  make(map[*Client]bool),
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
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("spectator connected", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.allClients[client]; ok {
				delete(h.allClients, client)
				for tier, clients := range h.clients {
					if _, ok := clients[client]; ok {
						delete(clients, client)
						if len(clients) == 0 {
							delete(h.clients, tier)
						}
					}
				}
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("spectator disconnected", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.difficulty]; !ok {
				h.clients[req.difficulty] = make(map[*Client]bool)
			}
			h.clients[req.difficulty][req.client] = true
			h.mu.Unlock()
			h.logger.Debug("spectator subscribed", "client_id", req.client.id, "difficulty", req.difficulty)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if clients, ok := h.clients[req.difficulty]; ok {
				delete(clients, req.client)
				if len(clients) == 0 {
					delete(h.clients, req.difficulty)
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// broadcastMessage sends a message to subscribed clients. Events carrying a
// difficulty go to that tier's subscribers plus unsubscribed clients; an
// empty difficulty reaches everyone.
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	deliver := func(client *Client) {
		select {
		case client.send <- data:
		default:
			// Client's buffer is full, skip
			h.logger.Warn("spectator buffer full, skipping", "client_id", client.id)
		}
	}

	if message.Difficulty != "" {
		for client := range h.allClients {
			if h.subscribedTo(client, message.Difficulty) || !h.subscribedToAny(client) {
				deliver(client)
			}
		}
		return
	}
	for client := range h.allClients {
		deliver(client)
	}
}

func (h *Hub) subscribedTo(client *Client, tier domain.DifficultyTier) bool {
	clients, ok := h.clients[tier]
	return ok && clients[client]
}

func (h *Hub) subscribedToAny(client *Client) bool {
	for _, clients := range h.clients {
		if clients[client] {
			return true
		}
	}
	return false
}

// SessionStarted broadcasts a new-session event
func (h *Hub) SessionStarted(difficulty domain.DifficultyTier) {
	h.enqueue(&Message{
		Type:       MessageTypeSessionStarted,
		Difficulty: difficulty,
		Timestamp:  time.Now(),
	})
}

// PuzzleSolved broadcasts a solve event
func (h *Hub) PuzzleSolved(difficulty domain.DifficultyTier, playerName string, score int) {
	h.enqueue(&Message{
		Type:       MessageTypePuzzleSolved,
		Difficulty: difficulty,
		Data: SolveEvent{
			Difficulty: difficulty,
			PlayerName: playerName,
			Score:      score,
		},
		Timestamp: time.Now(),
	})
}

func (h *Hub) enqueue(message *Message) {
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

// Subscribe narrows a client's feed to one difficulty tier
func (h *Hub) Subscribe(client *Client, difficulty domain.DifficultyTier) {
	h.subscribe <- &subscriptionRequest{client: client, difficulty: difficulty}
}

// Unsubscribe removes a client's tier subscription
func (h *Hub) Unsubscribe(client *Client, difficulty domain.DifficultyTier) {
	h.unsubscribe <- &subscriptionRequest{client: client, difficulty: difficulty}
}

// GetTotalConnections returns the number of connected spectators
func (h *Hub) GetTotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
