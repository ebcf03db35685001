package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/cariera-ai/cariera/backend/repository"
	ws "github.com/cariera-ai/cariera/backend/websocket"
)

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	db     *gorm.DB

	oracle      Oracle
	transcriber Transcriber
	vision      PresenceDetector

	interviewService *InterviewService
	finalizer        *Finalizer
	sweeper          *SessionSweeper

	authService        *AuthService
	authEndpoints      *AuthEndpoints
	interviewEndpoints *InterviewEndpoints

	wsHub    *ws.Hub
	upgrader websocket.Upgrader

	stopSweeper context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(repo *repository.GORMRepository, db *gorm.DB) {
	s.repo = repo
	s.db = db
}

// InitializeServices initializes all server services
func (s *Server) InitializeServices() error {
	oracle, err := NewOracle(s.config.AI)
	if err != nil {
		return err
	}
	s.oracle = oracle
	slog.Info("AI oracle initialized", "provider", s.config.AI.Provider)

	s.transcriber = NewAzureSpeechService(s.config.Speech)
	s.vision = NewAzureVisionService(s.config.Vision)

	s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
	s.authEndpoints = NewAuthEndpoints(s.authService)
	s.interviewEndpoints = NewInterviewEndpoints(s.repo, s.transcriber, s.vision)

	s.wsHub = ws.NewHub()

	s.interviewService = NewInterviewService(s.repo, s.oracle, s.wsHub)
	s.finalizer = NewFinalizer(s.repo, s.oracle)
	s.sweeper = NewSessionSweeper(s.repo, s.finalizer, s.wsHub.SessionClientCount)

	sweepCtx, cancel := context.WithCancel(context.Background())
	s.stopSweeper = cancel
	go s.sweeper.Run(sweepCtx)

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		// Authentication routes
		r.Route("/auth", func(r chi.Router) {
			// Public auth routes (no middleware)
			r.Post("/login", s.authEndpoints.LoginHandler)
			r.Post("/signup", s.authEndpoints.SignupHandler)
			r.Post("/refresh", s.authEndpoints.RefreshHandler)

			// Protected auth routes (with middleware)
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)
				r.Post("/logout", s.authEndpoints.LogoutHandler)
				r.Get("/me", s.authEndpoints.MeHandler)
			})
		})

		// Interview routes (protected)
		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)
			s.interviewEndpoints.RegisterRoutes(r)
			r.Get("/interviews/{id}/ws", s.interviewWebSocketHandler)
		})
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	if s.stopSweeper != nil {
		s.stopSweeper()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	// Parse allowed origins (comma-separated list)
	allowedOrigins := strings.Split(allowedOriginsStr, ",")

	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

// interviewWebSocketHandler opens the live session channel. Authorization
// happens before the upgrade: a rejected attempt produces a plain HTTP error
// and never registers a client or triggers finalization.
func (s *Server) interviewWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		slog.Error("WebSocket connection failed - user not found in context")
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	sessionID := chi.URLParam(r, "id")
	if _, err := s.interviewService.AuthorizeConnection(r.Context(), sessionID, user.ID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to validate session", http.StatusInternalServerError)
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "session_id", sessionID)

	client := s.wsHub.RegisterClient(conn, user.ID, sessionID)
	client.MessageHandler = s.interviewService.HandleMessage
	client.CloseHandler = func(c *ws.Client, closeCode int) {
		slog.Info("WebSocket disconnected", "session_id", c.SessionID, "close_code", closeCode)
		s.finalizer.FinalizeAsync(c.SessionID)
	}

	go client.WritePump()
	go client.ReadPump()

	s.interviewService.Greet(client)
}
