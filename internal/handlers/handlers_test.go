package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"peerbridge/internal/ai"
	"peerbridge/internal/cache"
	"peerbridge/internal/middleware"
	"peerbridge/internal/models"
	"peerbridge/internal/utils"
	"peerbridge/internal/websocket"
)

// testServer builds a Server with just enough wired up for handlers that do
// not touch MongoDB or the actor system.
func testServer() *Server {
	hub := websocket.NewHub()
	go hub.Run()
	return &Server{
		Metrics:        utils.NewMetricsCollector(),
		Hub:            hub,
		Validate:       validator.New(),
		RequestTimeout: time.Second,
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.HandleHealth()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHandleHealthRejectsPost(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	s.HandleHealth()(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleMetricsReportsOperations(t *testing.T) {
	s := testServer()
	s.Metrics.IncrementRequests()
	s.Metrics.AddOperationLatency("create_post", 12*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.HandleMetrics()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"create_post"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHandleVoteRequiresAuthContext(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/post/vote", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.HandleVote()(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleVoteRejectsBadPostID(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodPost, "/post/vote", strings.NewReader(`{"postId":"nope","vote":"upvote"}`))
	ctx := middleware.SetUserIDInContext(req.Context(), primitive.NewObjectID())
	ctx = middleware.SetRoleInContext(ctx, models.RoleUser)
	rec := httptest.NewRecorder()
	s.HandleVote()(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVoteRequiresVoteValue(t *testing.T) {
	s := testServer()

	body := `{"postId":"` + primitive.NewObjectID().Hex() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/post/vote", strings.NewReader(body))
	ctx := middleware.SetUserIDInContext(req.Context(), primitive.NewObjectID())
	ctx = middleware.SetRoleInContext(ctx, models.RoleUser)
	rec := httptest.NewRecorder()
	s.HandleVote()(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing required fields")
}

// downCompleter fails every completion, standing in for an unreachable
// OpenAI backend.
type downCompleter struct{}

func (downCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", errors.New("connection refused")
}

func TestHandleAssistantDegradesWhenCompleterFails(t *testing.T) {
	s := testServer()
	s.AI = ai.NewService(downCompleter{})
	s.Cache = &cache.Cache{}

	body := `{"userInput":"I cannot sleep lately","flag":"AI"}`
	req := httptest.NewRequest(http.MethodPost, "/assistant", strings.NewReader(body))
	ctx := middleware.SetUserIDInContext(req.Context(), primitive.NewObjectID())
	ctx = middleware.SetRoleInContext(ctx, models.RoleUser)
	rec := httptest.NewRecorder()
	s.HandleAssistant()(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "An error occurred while fetching the answer.")
}

func TestHandleGetChatMessagesRequiresChatID(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/chat/messages", nil)
	rec := httptest.NewRecorder()
	s.HandleGetChatMessages()(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatId required")
}

func TestWebSocketOriginPolicy(t *testing.T) {
	s := testServer()
	s.AllowedOrigins = []string{"https://app.peerbridge.io"}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, s.originAllowed(req))

	req.Header.Set("Origin", "https://app.peerbridge.io")
	assert.True(t, s.originAllowed(req))

	// Non-browser clients do not send an Origin header.
	req.Header.Del("Origin")
	assert.True(t, s.originAllowed(req))

	s.AllowedOrigins = []string{"*"}
	req.Header.Set("Origin", "https://anywhere.example.com")
	assert.True(t, s.originAllowed(req))
}

func TestHandleOnlineUsers(t *testing.T) {
	s := testServer()

	userID := primitive.NewObjectID()
	client := &websocket.Client{Hub: s.Hub, UserID: userID, Send: make(chan []byte, 1)}
	s.Hub.Register <- client

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !s.Hub.IsOnline(userID) {
		time.Sleep(5 * time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/online", nil)
	rec := httptest.NewRecorder()
	s.HandleOnlineUsers()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), userID.Hex())
}
