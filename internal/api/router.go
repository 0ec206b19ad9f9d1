package api

import (
	"net/http"
	"time"

	// Registers the generated OpenAPI document with swag.
	_ "chat-stream/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	app_middleware "chat-stream/backend/internal/middleware"
)

// RouterOptions carries the deployment-specific parts of the router.
type RouterOptions struct {
	AllowedOrigins []string
	// FrontendDir is served for every path no route matches. Empty disables it.
	FrontendDir string
}

// NewRouter creates and configures a new chi router with all the application's routes.
func NewRouter(chatHandler *ChatHandler, healthHandler *HealthHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app_middleware.CORS(opts.AllowedOrigins))

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)
	r.Get("/healthz", healthHandler.HandleHealth)

	// --- Streaming Routes ---
	// These hold the connection open for the whole reply and must NOT have a timeout.
	r.Post("/api/chat/stream", chatHandler.HandleStreamMessage)

	// --- API Version 1 Routes ---
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			// --- Chat ---
			r.Post("/chat/send", chatHandler.HandleSendMessage)
			r.Post("/chat/messages", chatHandler.HandleGetMessages)
			r.Post("/chat/session", chatHandler.HandleNewSession)

			// --- Sessions ---
			r.Get("/sessions/{sessionID}/messages", chatHandler.HandleGetSessionMessages)
		})

		r.Group(func(r chi.Router) {
			r.Post("/chat/stream", chatHandler.HandleStreamMessage)
		})
	})

	// --- Frontend File Server ---
	if opts.FrontendDir != "" {
		fileServer := http.FileServer(http.Dir(opts.FrontendDir))
		r.Handle("/*", fileServer)
	}

	return r
}
