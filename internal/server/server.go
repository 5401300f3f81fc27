// Package server exposes the HTTP API: authentication, the recommendation
// pipeline, Spotify account linking, session and settings CRUD, media
// presigning, sandboxed code execution, and the messaging bridge.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"flowbeat/internal/messaging"
	"flowbeat/internal/recommend"
	"flowbeat/internal/repositories"
	"flowbeat/internal/sandbox"
	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
	"flowbeat/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Server holds the API's collaborators and configuration.
type Server struct {
	cfg    *shared.Config
	logger *log.Logger

	users         *repositories.UserRepository
	sessions      *repositories.SessionRepository
	settings      *repositories.SettingsRepository
	engine        *recommend.Engine
	catalog       *spotify.Client
	tokens        *spotify.TokenManager
	authenticator *spotify.Authenticator
	storage       *storage.Service
	sandbox       *sandbox.Client
	bridge        *messaging.Client
	cache         *redis.Client

	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Opts wires a Server's collaborators. Storage, Sandbox, Bridge and Cache
// are optional; their endpoints respond 503 when absent.
type Opts struct {
	Config        *shared.Config
	Logger        *log.Logger
	Users         *repositories.UserRepository
	Sessions      *repositories.SessionRepository
	Settings      *repositories.SettingsRepository
	Engine        *recommend.Engine
	Catalog       *spotify.Client
	Tokens        *spotify.TokenManager
	Authenticator *spotify.Authenticator
	Storage       *storage.Service
	Sandbox       *sandbox.Client
	Bridge        *messaging.Client
	Cache         *redis.Client
}

// New creates a Server from its collaborators.
func New(opts Opts) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: server config", shared.ErrMissingConfig)
	}
	if opts.Config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("%w: auth.jwt_secret", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	accessTTL := time.Duration(opts.Config.Auth.AccessTTLMins) * time.Minute
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := time.Duration(opts.Config.Auth.RefreshTTLMins) * time.Minute
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	return &Server{
		cfg:           opts.Config,
		logger:        opts.Logger,
		users:         opts.Users,
		sessions:      opts.Sessions,
		settings:      opts.Settings,
		engine:        opts.Engine,
		catalog:       opts.Catalog,
		tokens:        opts.Tokens,
		authenticator: opts.Authenticator,
		storage:       opts.Storage,
		sandbox:       opts.Sandbox,
		bridge:        opts.Bridge,
		cache:         opts.Cache,
		jwtSecret:     []byte(opts.Config.Auth.JWTSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// Routes builds the API router.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/refresh", s.handleRefreshAuth)

	r.Get("/spotify/callback", s.handleSpotifyCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/spotify/connect", s.handleSpotifyConnect)
		r.Get("/spotify/search", s.handleSearch)
		r.Get("/spotify/top-tracks", s.handleTopTracks)
		r.Get("/spotify/playback", s.handlePlaybackState)
		r.Post("/spotify/playback", s.handlePlaybackControl)

		r.Post("/recommendations", s.handleRecommendations)
		r.Post("/recommendations/refine", s.handleRefine)
		r.Post("/playlists", s.handleCreatePlaylist)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Patch("/sessions/{id}", s.handleUpdateSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		r.Post("/media/presign-upload", s.handlePresignUpload)
		r.Post("/media/presign-download", s.handlePresignDownload)

		r.Post("/execute", s.handleExecute)

		r.Get("/messaging/status", s.handleMessagingStatus)
		r.Post("/messaging/send-report", s.handleSendReport)
	})

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
