package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/api/handlers"
	appMiddleware "github.com/docsage/docsage/internal/api/middlewares"
	"github.com/docsage/docsage/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, clients *Clients, logger *zap.Logger) *Server {
	ragPipeline := NewRAGPipeline(clients, cfg, logger)

	authHandler := handlers.NewAuthHandler(clients.DB, cfg.JWTSecret)
	workspaceHandler := handlers.NewWorkspaceHandler(clients.DB)
	docHandler := handlers.NewDocumentHandler(clients.DB, clients.Object, clients.Queue, logger)
	chatHandler := handlers.NewChatHandler(clients.DB, ragPipeline, logger)
	webhookHandler := handlers.NewWebhookHandler(clients.Queue, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// invoked by the database change webhook, not by users
		api.Post("/webhooks/documents", webhookHandler.HandleDocumentChange)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Post("/workspaces", workspaceHandler.Create)
			protected.Get("/workspaces", workspaceHandler.List)
			protected.Get("/workspaces/{workspaceID}/documents", workspaceHandler.ListDocuments)
			protected.Post("/documents/upload", docHandler.Upload)
			protected.Post("/documents/{documentID}/process", docHandler.Process)
			protected.Post("/chat", chatHandler.Query)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
