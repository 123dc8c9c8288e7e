package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-score-service/internal/domain"
)

type envelope struct {
	Error   bool            `json:"error"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, env
}

func TestRESTSessionFlow(t *testing.T) {
	h := NewRouter(newTestService(), nil)

	code, env := doJSON(t, h, http.MethodPost, "/quizzes/quiz-1/sessions", map[string]any{"name": "Alice"})
	if code != http.StatusCreated || env.Error {
		t.Fatalf("start: %d %+v", code, env)
	}
	var view struct {
		ID            string `json:"id"`
		ParticipantID string `json:"participantId"`
		Question      struct {
			Text string `json:"text"`
		} `json:"question"`
	}
	_ = json.Unmarshal(env.Data, &view)
	if view.ID == "" || view.Question.Text != "What is 2 + 2?" {
		t.Fatalf("unexpected view %s", env.Data)
	}
	if bytes.Contains(env.Data, []byte("correctAnswers")) {
		t.Fatalf("session view leaks answers: %s", env.Data)
	}

	code, _ = doJSON(t, h, http.MethodPut, "/sessions/"+view.ID+"/answer", map[string]any{"selected": []int{9}})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range option, got %d", code)
	}

	for _, sel := range [][]int{{1}, {0}} {
		if code, env = doJSON(t, h, http.MethodPut, "/sessions/"+view.ID+"/answer", map[string]any{"selected": sel}); code != http.StatusOK {
			t.Fatalf("answer: %d %+v", code, env)
		}
		if code, env = doJSON(t, h, http.MethodPost, "/sessions/"+view.ID+"/advance", nil); code != http.StatusOK {
			t.Fatalf("advance: %d %+v", code, env)
		}
	}
	var out struct {
		Result struct {
			Score     int  `json:"score"`
			Completed bool `json:"completed"`
		} `json:"result"`
	}
	_ = json.Unmarshal(env.Data, &out)
	if !out.Result.Completed || out.Result.Score != 10 {
		t.Fatalf("unexpected outcome %s", env.Data)
	}

	if code, _ = doJSON(t, h, http.MethodGet, "/sessions/"+view.ID, nil); code != http.StatusNotFound {
		t.Fatalf("expected completed session gone, got %d", code)
	}

	code, env = doJSON(t, h, http.MethodPost, "/quizzes/quiz-1/sessions", map[string]any{"name": "alice"})
	if code != http.StatusConflict || !env.Error || env.Message != domain.ErrAlreadyCompleted.Error() {
		t.Fatalf("expected 409 already completed, got %d %+v", code, env)
	}

	code, env = doJSON(t, h, http.MethodGet, "/users/"+view.ParticipantID+"/scores/quiz-1", nil)
	if code != http.StatusOK {
		t.Fatalf("user score: %d %+v", code, env)
	}
	if code, _ = doJSON(t, h, http.MethodGet, "/users/"+view.ParticipantID+"/scores/quiz-9", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing score, got %d", code)
	}

	code, env = doJSON(t, h, http.MethodGet, "/quizzes/quiz-1/leaderboard", nil)
	var board domain.Leaderboard
	_ = json.Unmarshal(env.Data, &board)
	if code != http.StatusOK || len(board.Entries) != 1 || board.Entries[0].Score != 10 {
		t.Fatalf("unexpected leaderboard %d %s", code, env.Data)
	}

	code, env = doJSON(t, h, http.MethodGet, "/players/Alice/stats", nil)
	var stats domain.PlayerStats
	_ = json.Unmarshal(env.Data, &stats)
	if code != http.StatusOK || stats.TotalScore != 10 || stats.QuizzesPlayed != 1 || stats.QuizScores[0].Rank != 1 {
		t.Fatalf("unexpected stats %d %s", code, env.Data)
	}
}

func TestRESTParticipantsAndScores(t *testing.T) {
	h := NewRouter(newTestService(), nil)

	code, env := doJSON(t, h, http.MethodGet, "/participants/exists?name=Bob", nil)
	if code != http.StatusOK || string(env.Data) != `{"exists":false}` {
		t.Fatalf("exists: %d %s", code, env.Data)
	}

	code, env = doJSON(t, h, http.MethodPost, "/participants", map[string]any{"name": "Bob"})
	if code != http.StatusCreated {
		t.Fatalf("create participant: %d %+v", code, env)
	}
	var p domain.Participant
	_ = json.Unmarshal(env.Data, &p)

	if code, _ = doJSON(t, h, http.MethodPost, "/participants", map[string]any{"name": "B"}); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short name, got %d", code)
	}

	body := map[string]any{"score": 7, "answers": map[string][]int{"0": {1}}}
	if code, env = doJSON(t, h, http.MethodPut, "/users/"+p.ID+"/scores/quiz-1", body); code != http.StatusOK {
		t.Fatalf("save score: %d %+v", code, env)
	}
	if code, _ = doJSON(t, h, http.MethodPut, "/users/"+p.ID+"/scores/quiz-1", map[string]any{"score": -3}); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative score, got %d", code)
	}

	code, env = doJSON(t, h, http.MethodGet, "/leaderboard", nil)
	var global []domain.GlobalEntry
	_ = json.Unmarshal(env.Data, &global)
	if code != http.StatusOK || len(global) != 1 || global[0].TotalScore != 7 {
		t.Fatalf("unexpected global board %d %s", code, env.Data)
	}

	code, env = doJSON(t, h, http.MethodDelete, "/quizzes/quiz-1/scores", nil)
	if code != http.StatusOK || string(env.Data) != `{"deleted":1}` {
		t.Fatalf("clear: %d %s", code, env.Data)
	}

	if code, _ = doJSON(t, h, http.MethodGet, "/players/nobody/stats", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown player, got %d", code)
	}
}

func TestRESTAbandonAndHealth(t *testing.T) {
	h := NewRouter(newTestService(), nil)

	_, env := doJSON(t, h, http.MethodPost, "/quizzes/quiz-1/sessions", map[string]any{"name": "Carol"})
	var view struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &view)

	if code, _ := doJSON(t, h, http.MethodDelete, "/sessions/"+view.ID, nil); code != http.StatusOK {
		t.Fatalf("abandon: %d", code)
	}
	if code, _ := doJSON(t, h, http.MethodPost, "/sessions/"+view.ID+"/advance", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 after abandon, got %d", code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}
