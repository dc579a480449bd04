package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	ws "github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/engine/actors"
	"peerbridge/internal/middleware"
	"peerbridge/internal/websocket"
)

// originAllowed applies the same origin policy as the CORS layer to the
// websocket upgrade. Browsers always send Origin on upgrade requests;
// non-browser clients that omit it are let through.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) upgrader() ws.Upgrader {
	return ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originAllowed,
	}
}

// inboundEvent is what clients send over the socket. Messages target either
// a known chat or a recipient.
type inboundEvent struct {
	Type        string `json:"type"`
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
}

// HandleWebSocket handles WebSocket connection requests.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 1. Authenticate using JWT from header or query parameter
		tokenString := middleware.TokenFromRequest(r)
		if tokenString == "" {
			log.Println("WebSocket connection failed: Missing token")
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		claims, err := s.Auth.ValidateToken(tokenString)
		if err != nil {
			log.Printf("WebSocket connection failed: Invalid token: %v", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		userID := claims.UserID
		if userID.IsZero() {
			log.Println("WebSocket connection failed: Empty userID in token claims")
			http.Error(w, "Invalid user ID in token", http.StatusInternalServerError)
			return
		}

		// 2. Upgrade connection
		upgrader := s.upgrader()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for User %s: %v", userID.Hex(), err)
			// Cannot write an HTTP error after a failed upgrade attempt
			return
		}
		log.Printf("WebSocket connection upgraded for User %s", userID.Hex())

		// 3. Create and register the client
		client := &websocket.Client{
			Hub:       s.Hub,
			UserID:    userID,
			Conn:      conn,
			Send:      make(chan []byte, 256),
			OnMessage: s.handleSocketEvent,
		}
		client.Hub.Register <- client

		// 4. Start read and write pumps
		go client.WritePump()
		go client.ReadPump()
	}
}

// handleSocketEvent parses an inbound socket frame and feeds it to the chat
// engine. The sender identity comes from the authenticated connection, never
// from the payload.
func (s *Server) handleSocketEvent(senderID primitive.ObjectID, data []byte) {
	var event inboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("WebSocket: Malformed event from User %s: %v", senderID.Hex(), err)
		return
	}

	switch event.Type {
	case "sendMessage":
		var chatID, recipientID primitive.ObjectID
		var err error
		if event.ChatID != "" {
			chatID, err = primitive.ObjectIDFromHex(event.ChatID)
		} else {
			recipientID, err = primitive.ObjectIDFromHex(event.RecipientID)
		}
		if err != nil {
			log.Printf("WebSocket: Invalid message target from User %s", senderID.Hex())
			return
		}
		// Delivery to both sides happens inside the chat actor.
		if _, err := s.askActor(s.Engine.GetChatActor(), &actors.SendChatMessageMsg{
			ChatID:      chatID,
			SenderID:    senderID,
			RecipientID: recipientID,
			Content:     event.Content,
		}); err != nil {
			log.Printf("WebSocket: Failed to send message from User %s: %v", senderID.Hex(), err)
		}
	default:
		log.Printf("WebSocket: Unknown event type %q from User %s", event.Type, senderID.Hex())
	}
}
