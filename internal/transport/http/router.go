package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quiz-score-service/internal/app"
)

// NewRouter mounts the REST API and the websocket endpoint.
func NewRouter(service *app.QuizService, logger *slog.Logger) http.Handler {
	api := NewAPI(service, logger)
	ws := NewWSHandler(service, logger)

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/ws", ws.ServeWS)

	mux.Route("/quizzes/{quizID}", func(r chi.Router) {
		r.Post("/sessions", api.StartSession)
		r.Get("/leaderboard", api.Leaderboard)
		r.Delete("/scores", api.ClearScores)
	})

	mux.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", api.GetSession)
		r.Delete("/", api.AbandonSession)
		r.Put("/answer", api.Answer)
		r.Post("/advance", api.Advance)
	})

	mux.Get("/leaderboard", api.GlobalLeaderboard)
	mux.Get("/players/{name}/stats", api.PlayerStats)

	mux.Route("/participants", func(r chi.Router) {
		r.Get("/exists", api.NameExists)
		r.Post("/", api.CreateParticipant)
	})

	mux.Route("/users/{userID}/scores/{quizID}", func(r chi.Router) {
		r.Get("/", api.UserScore)
		r.Put("/", api.SaveScore)
	})
	return mux
}
