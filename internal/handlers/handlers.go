package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-playground/validator/v10"

	"peerbridge/internal/ai"
	"peerbridge/internal/cache"
	"peerbridge/internal/database"
	"peerbridge/internal/engine"
	"peerbridge/internal/middleware"
	"peerbridge/internal/storage"
	"peerbridge/internal/utils"
	"peerbridge/internal/websocket"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	MongoDB        *database.MongoDB
	Hub            *websocket.Hub
	Auth           *middleware.Auth
	AI             *ai.Service
	Images         storage.ImageStore
	Cache          *cache.Cache
	ImageBucket    string
	AllowedOrigins []string
	Validate       *validator.Validate
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	mongodb *database.MongoDB,
	hub *websocket.Hub,
	auth *middleware.Auth,
	aiService *ai.Service,
	images storage.ImageStore,
	responseCache *cache.Cache,
	imageBucket string,
	allowedOrigins []string,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Metrics:        metrics,
		MongoDB:        mongodb,
		Hub:            hub,
		Auth:           auth,
		AI:             aiService,
		Images:         images,
		Cache:          responseCache,
		ImageBucket:    imageBucket,
		AllowedOrigins: allowedOrigins,
		Validate:       validator.New(),
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("HTTP Handler: Failed to encode response: %v", err)
	}
}

// respondError maps an error to an HTTP status and writes it. Actor results
// arrive as values, so this accepts anything and sorts out AppErrors.
func respondError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*utils.AppError); ok {
		http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// resultOrError splits an actor response into a value and an error.
func resultOrError(result interface{}) (interface{}, error) {
	if err, ok := result.(error); ok {
		return nil, err
	}
	return result, nil
}

// backgroundContext is for work that outlives the originating request, like
// AI tag extraction.
func backgroundContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// askActor sends msg to pid and waits for the reply, translating a timeout
// into an AppError.
func (s *Server) askActor(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError(pid.String())
	}
	return resultOrError(result)
}
