package websocket

import "github.com/rs/zerolog/log"

type envelope struct {
	sessionID string
	message   []byte
}

// Hub maintains the set of active clients and routes messages to the clients
// watching a given view session.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// A map of view session IDs to the clients subscribed to it.
	subscriptions map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	publish    chan envelope
	done       chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		publish:       make(chan envelope),
		done:          make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.addSubscription(client, client.SessionID)
			log.Info().Int("total_clients", len(h.clients)).Str("session_id", client.SessionID).Msg("Client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Str("session_id", client.SessionID).Msg("Client disconnected")
			}
		case env := <-h.publish:
			for client := range h.subscriptions[env.sessionID] {
				select {
				case client.Send <- env.message:
				default:
					log.Warn().Str("session_id", env.sessionID).Msg("Client send buffer full, dropping client")
					h.drop(client)
				}
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop terminates Run and closes every client's send channel.
func (h *Hub) Stop() {
	close(h.done)
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastTo sends a message to all clients subscribed to a view session.
func (h *Hub) BroadcastTo(sessionID string, message []byte) {
	select {
	case h.publish <- envelope{sessionID: sessionID, message: message}:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.removeSubscription(client)
}

func (h *Hub) addSubscription(client *Client, sessionID string) {
	if h.subscriptions[sessionID] == nil {
		h.subscriptions[sessionID] = make(map[*Client]bool)
	}
	h.subscriptions[sessionID][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	if subs, ok := h.subscriptions[client.SessionID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.subscriptions, client.SessionID)
		}
	}
}
