package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// API exposes the quiz use cases over REST.
type API struct {
	service *app.QuizService
	logger  *slog.Logger
}

func NewAPI(service *app.QuizService, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{service: service, logger: logger}
}

type registrationRequest struct {
	Name        string   `json:"name"`
	IsTeam      bool     `json:"isTeam"`
	TeamMembers []string `json:"teamMembers"`
}

func (req registrationRequest) registration() app.Registration {
	return app.Registration{Name: req.Name, IsTeam: req.IsTeam, TeamMembers: req.TeamMembers}
}

type answerRequest struct {
	Selected []int `json:"selected"`
}

type scoreRequest struct {
	Score   int              `json:"score"`
	Answers domain.AnswerMap `json:"answers"`
}

func (a *API) StartSession(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := a.service.Start(r.Context(), chi.URLParam(r, "quizID"), req.registration())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view, "session started")
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view, "")
}

func (a *API) AbandonSession(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Abandon(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil, "session abandoned")
}

func (a *API) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	view, err := a.service.Answer(r.Context(), chi.URLParam(r, "sessionID"), req.Selected)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view, "")
}

func (a *API) Advance(w http.ResponseWriter, r *http.Request) {
	out, err := a.service.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	msg := ""
	if out.Result.PersistErr != nil {
		msg = "score could not be saved; it will be written with the next answer"
	}
	writeJSON(w, http.StatusOK, out, msg)
}

func (a *API) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.service.Leaderboard(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board, "")
}

func (a *API) ClearScores(w http.ResponseWriter, r *http.Request) {
	n, err := a.service.ClearQuizScores(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n}, "scores cleared")
}

func (a *API) GlobalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.service.GlobalLeaderboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries, "")
}

func (a *API) PlayerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.PlayerStats(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats, "")
}

func (a *API) NameExists(w http.ResponseWriter, r *http.Request) {
	exists, err := a.service.NameExists(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists}, "")
}

func (a *API) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := a.service.CreateParticipant(r.Context(), req.registration())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p, "")
}

func (a *API) UserScore(w http.ResponseWriter, r *http.Request) {
	rec, err := a.service.UserScore(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "quizID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if rec == nil {
		writeError(w, domain.ErrScoreNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec, "")
}

func (a *API) SaveScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := a.service.SaveScore(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "quizID"), req.Score, req.Answers)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec, "")
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) >= http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeError(w, err)
}
