package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/profile-view/internal/api/handlers"
	"github.com/isdelr/profile-view/internal/render"
	"github.com/isdelr/profile-view/internal/session"
	"github.com/isdelr/profile-view/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *websocket.Hub, api handlers.Upstream, sessions *session.Registry, renderer *render.Renderer, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(api, sessions, renderer)
	postHandler := handlers.NewPostHandler(api, renderer)
	wsHandler := handlers.NewWebSocketHandler(hub, sessions, renderer, allowedOrigins)
	healthHandler := handlers.NewHealthHandler(sessions)

	r.Get("/healthz", healthHandler.Get)
	r.Get("/users/{id}", profileHandler.Show)
	r.Get("/posts/{id}", postHandler.Show)

	// Live updates for a mounted profile view
	r.Get("/ws/views/{session}", wsHandler.Serve)

	return r
}
