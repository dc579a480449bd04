package handlers

import (
	"encoding/json"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/engine/actors"
)

// ResolveChatRequest opens (or finds) a chat, either by its id or by the
// other participant.
type ResolveChatRequest struct {
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
}

// SendMessageRequest sends a direct message over the REST surface. The same
// path exists over the websocket for connected clients. One of chatId or
// recipientId must be set.
type SendMessageRequest struct {
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
	Content     string `json:"content" validate:"required"`
}

// chatTarget parses the optional chatId/recipientId pair shared by the chat
// requests. Exactly one must be present.
func chatTarget(w http.ResponseWriter, chatID, recipientID string) (chat, recipient primitive.ObjectID, ok bool) {
	if chatID == "" && recipientID == "" {
		http.Error(w, "Either chatId or recipientId is required", http.StatusBadRequest)
		return
	}
	var err error
	if chatID != "" {
		if chat, err = primitive.ObjectIDFromHex(chatID); err != nil {
			http.Error(w, "Invalid chat ID format", http.StatusBadRequest)
			return
		}
		return chat, recipient, true
	}
	if recipient, err = primitive.ObjectIDFromHex(recipientID); err != nil {
		http.Error(w, "Invalid recipient ID format", http.StatusBadRequest)
		return
	}
	return chat, recipient, true
}

// HandleResolveChat returns the single chat between the caller and the
// recipient, creating it on first contact.
func (s *Server) HandleResolveChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		var req ResolveChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		chatID, recipientID, ok := chatTarget(w, req.ChatID, req.RecipientID)
		if !ok {
			return
		}

		result, err := s.askActor(s.Engine.GetChatActor(), &actors.ResolveChatMsg{
			ChatID: chatID,
			UserA:  callerID,
			UserB:  recipientID,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleSendMessage persists and delivers a direct message.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if err := s.Validate.Struct(&req); err != nil {
			http.Error(w, "Message content is required", http.StatusBadRequest)
			return
		}
		chatID, recipientID, ok := chatTarget(w, req.ChatID, req.RecipientID)
		if !ok {
			return
		}

		result, err := s.askActor(s.Engine.GetChatActor(), &actors.SendChatMessageMsg{
			ChatID:      chatID,
			SenderID:    callerID,
			RecipientID: recipientID,
			Content:     req.Content,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, result)
	}
}

// HandleGetUserChats lists the caller's chats, most recently active first.
func (s *Server) HandleGetUserChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		result, err := s.askActor(s.Engine.GetChatActor(), &actors.GetUserChatsMsg{UserID: callerID})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleGetChatMessages returns a chat's history, oldest first. Only
// participants may read it.
func (s *Server) HandleGetChatMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		chatID, ok := objectIDFromQuery(w, r, "chatId")
		if !ok {
			return
		}
		callerID, _, ok := callerFromContext(w, r)
		if !ok {
			return
		}

		result, err := s.askActor(s.Engine.GetChatActor(), &actors.GetChatMessagesMsg{
			ChatID: chatID,
			UserID: callerID,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// HandleOnlineUsers reports which users currently hold a live connection.
func (s *Server) HandleOnlineUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"online": s.Hub.OnlineUsers(),
		})
	}
}
