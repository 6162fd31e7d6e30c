package devstub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the stub backend's HTTP surface. CORS is wide open:
// the widget runs on arbitrary embedding origins.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", s.handleChat)
		api.Get("/chat/history", s.handleHistory)
		api.Post("/lead", s.handleLead)
		api.Get("/leads", s.handleLeadList)
		api.Get("/widget-settings", s.handleWidgetSettings)
	})

	r.Get("/ws", s.handleWebSocket)

	return r
}
