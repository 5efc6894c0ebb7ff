package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/codepair/go-collab/internal/config"
	"github.com/codepair/go-collab/internal/server"
)

// CollabApp is the HTTP surface around the room hub: the websocket
// endpoint, the stateless execute proxy and a health probe. It holds no
// room state of its own.
type CollabApp struct {
	log            *log.Logger
	mux            *http.Server
	hub            *server.Hub
	signingKey     []byte
	allowedOrigins []string
	executorURL    string
	executorClient *http.Client
}

func NewCollabApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, cfg *config.Config) *CollabApp {
	s := &CollabApp{
		log:            logger,
		hub:            hub,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		executorURL:    cfg.ExecutorURL,
		// Sandboxed runs can take a while; the proxy holds no state while
		// it waits.
		executorClient: &http.Client{Timeout: 60 * time.Second},
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("POST /api/execute", s.authMiddleware(s.execute))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *CollabApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *CollabApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
