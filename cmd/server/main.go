package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"

	"peerbridge/internal/ai"
	"peerbridge/internal/cache"
	"peerbridge/internal/config"
	"peerbridge/internal/database"
	"peerbridge/internal/engine"
	"peerbridge/internal/handlers"
	"peerbridge/internal/middleware"
	"peerbridge/internal/models"
	"peerbridge/internal/storage"
	"peerbridge/internal/utils"
	"peerbridge/internal/websocket"
)

// statusRecorder captures the response status so request instrumentation can
// count error responses.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	metrics := utils.NewMetricsCollector()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	mongodb, err := database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err := mongodb.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	images, err := storage.NewMinIOStorage(ctx, *cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to initialize MinIO storage: %v", err)
	}

	responseCache := cache.New(cfg.RedisAddr)
	defer responseCache.Close()

	aiService := ai.NewService(ai.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.Model))
	auth := middleware.NewAuth(cfg.JWTSecret)

	// Presence directory for live message delivery.
	hub := websocket.NewHub()
	go hub.Run()

	// Actor system: one mailbox per concern serializes votes and sends.
	system := actor.NewActorSystem()
	appEngine := engine.NewEngine(system, metrics, mongodb, mongodb, hub)

	server := handlers.NewServer(system, appEngine, metrics, mongodb, hub, auth, aiService, images, responseCache, cfg.MinIO.Bucket, cfg.AllowedOrigins)

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	instrument := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			metrics.IncrementRequests()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			h(rec, r)
			if rec.status >= http.StatusBadRequest {
				metrics.IncrementErrors()
			}
		}
	}
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(instrument(h), corsConfig)
	}
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(instrument(auth.RequireAuth(h)), corsConfig)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", public(server.HandleHealth()))
	mux.HandleFunc("/metrics", public(server.HandleMetrics()))

	mux.HandleFunc("/user/register", public(server.HandleUserRegistration()))
	mux.HandleFunc("/user/login", public(server.HandleUserLogin()))
	mux.HandleFunc("/user/profile", protected(server.HandleUserProfile()))
	mux.HandleFunc("/user/profile/image", protected(server.HandleProfileImageUpload()))
	mux.HandleFunc("/user/update", protected(server.HandleUserUpdate()))
	mux.HandleFunc("/user/delete", protected(server.HandleDeleteUser()))
	mux.HandleFunc("/users", protected(server.HandleGetAllUsers()))

	mux.HandleFunc("/post", protected(server.HandlePost()))
	mux.HandleFunc("/post/vote", protected(server.HandleVote()))
	mux.HandleFunc("/post/search", protected(server.HandleSearchPosts()))
	mux.HandleFunc("/post/image", protected(server.HandlePostImageUpload()))
	mux.HandleFunc("/comment", protected(server.HandleComment()))

	mux.HandleFunc("/chat/resolve", protected(server.HandleResolveChat()))
	mux.HandleFunc("/chat/send", protected(server.HandleSendMessage()))
	mux.HandleFunc("/chat/list", protected(server.HandleGetUserChats()))
	mux.HandleFunc("/chat/messages", protected(server.HandleGetChatMessages()))
	mux.HandleFunc("/chat/online", protected(server.HandleOnlineUsers()))

	mux.HandleFunc("/assistant", middleware.ApplyCORS(
		instrument(auth.RequireRoles(server.HandleAssistant(), models.RoleUser, models.RoleAdmin)),
		corsConfig,
	))

	// Websocket authenticates via token query param inside the handler. Not
	// instrumented: the upgrade hijacks the connection, which a wrapped
	// ResponseWriter would break.
	mux.HandleFunc("/ws", middleware.ApplyCORS(server.HandleWebSocket(), corsConfig))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Block until interrupted, then drain.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := mongodb.Close(shutdownCtx); err != nil {
		log.Printf("MongoDB close error: %v", err)
	}
	log.Println("Server stopped")
}
