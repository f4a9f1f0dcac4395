package http

import (
	"net/http"

	"github.com/OmarAlex24/impostor-game/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *handlers.RoomHandler, hub *handlers.Hub, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/modes", h.Modes)
		r.Get("/categories", h.Categories)

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Post("/join", h.Join)
			r.Get("/code/{code}", h.GetByCode)

			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Get("/players", h.Players)
				r.Get("/players/{sessionId}", h.Player)

				r.Post("/start", h.Start)
				r.Post("/voting", h.StartVoting)
				r.Post("/turn/pass", h.PassTurn)
				r.Post("/turn/auto-pass", h.AutoPassTurn)
				r.Post("/call-to-vote", h.CallToVote)
				r.Post("/results", h.Results)
				r.Post("/reset", h.Reset)

				r.Post("/abilities/investigate", h.Investigate)
				r.Post("/abilities/fiscal", h.FiscalCallVote)
				r.Post("/abilities/ghost-clue", h.GhostClue)

				r.Post("/emojis", h.SendEmoji)
				r.Get("/emojis", h.Emojis)
				r.Post("/spectator-messages", h.SendSpectatorMessage)
				r.Get("/spectator-messages", h.SpectatorMessages)

				r.Get("/ws", hub.HandleWebSocket)
			})
		})

		r.Route("/players/{playerId}", func(r chi.Router) {
			r.Post("/ready", h.ToggleReady)
			r.Post("/kick", h.Kick)
			r.Post("/leave", h.Leave)
			r.Post("/vote", h.Vote)
		})
	})

	return r
}
