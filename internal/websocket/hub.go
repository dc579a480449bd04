package websocket

import (
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageToSend defines the structure for sending a message to a specific user.
type MessageToSend struct {
	TargetUserID primitive.ObjectID
	Payload      []byte
}

// Hub maintains the set of active clients and routes outbound payloads to
// them. Each user holds at most one live connection: registering a new
// connection for a user displaces the previous one.
type Hub struct {
	// Registered clients, one per online user.
	Clients map[primitive.ObjectID]*Client

	// Channel for sending messages to specific users.
	SendDirect chan *MessageToSend

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Mutex to protect concurrent access to the clients map.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		SendDirect: make(chan *MessageToSend),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[primitive.ObjectID]*Client),
	}
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	log.Println("WebSocket Hub started.")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if old, ok := h.Clients[client.UserID]; ok && old != client {
				// Last connection wins. Shut down the stale handle so its
				// pumps exit and the peer sees a clean close.
				close(old.Send)
				old.displaced = true
				log.Printf("WebSocket Client for User %s displaced by a newer connection", client.UserID)
			}
			h.Clients[client.UserID] = client
			log.Printf("WebSocket Client registered for User %s. Online users: %d", client.UserID, len(h.Clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			// Only remove the mapping if it still points at this client;
			// a displaced connection must not evict its replacement.
			if current, ok := h.Clients[client.UserID]; ok && current == client {
				delete(h.Clients, client.UserID)
				if !client.displaced {
					close(client.Send)
				}
				log.Printf("WebSocket Client unregistered. User %s is now offline.", client.UserID)
			}
			h.mu.Unlock()

		case directMessage := <-h.SendDirect:
			h.mu.RLock()
			if client, ok := h.Clients[directMessage.TargetUserID]; ok {
				select {
				case client.Send <- directMessage.Payload:
				default:
					log.Printf("Send channel full for client of User %s. Message dropped for this connection.", client.UserID)
				}
			} else {
				log.Printf("User %s not connected, skipping live delivery.", directMessage.TargetUserID)
			}
			h.mu.RUnlock()
		}
	}
}

// SendDirectMessage allows other parts of the application (like actors) to send
// a message to a specific user via the WebSocket hub. Delivery is best effort:
// offline users simply miss the live push and catch up from storage.
func (h *Hub) SendDirectMessage(targetUserID primitive.ObjectID, payload []byte) {
	message := &MessageToSend{
		TargetUserID: targetUserID,
		Payload:      payload,
	}
	select {
	case h.SendDirect <- message:
	case <-time.After(1 * time.Second):
		log.Printf("Timeout queuing message in hub's SendDirect channel for User %s. Hub might be busy or blocked.", targetUserID)
	}
}

// IsOnline reports whether the user currently holds a live connection.
func (h *Hub) IsOnline(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.Clients[userID]
	return ok
}

// OnlineUsers returns a snapshot of the IDs of all connected users.
func (h *Hub) OnlineUsers() []primitive.ObjectID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]primitive.ObjectID, 0, len(h.Clients))
	for id := range h.Clients {
		users = append(users, id)
	}
	return users
}
