package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// Store is an in-memory implementation of app.Store and QuizLoader. It
// keeps the same unique keys as the SQL stores: one participant per
// normalized name and one score per (participant, quiz).
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	quizzes      map[string]domain.Quiz
	participants map[string]domain.Participant // by id
	names        map[string]string             // normalized name -> id
	scores       map[scoreKey]scoreRow
	seq          int64
}

type scoreRow struct {
	rec domain.ScoreRecord
	seq int64
}

type scoreKey struct {
	participantID string
	quizID        string
}

var (
	_ app.Store  = (*Store)(nil)
	_ QuizLoader = (*Store)(nil)
)

func NewStore(quizzes map[string]domain.Quiz) *Store {
	s := &Store{
		now:          time.Now,
		quizzes:      make(map[string]domain.Quiz, len(quizzes)),
		participants: make(map[string]domain.Participant),
		names:        make(map[string]string),
		scores:       make(map[scoreKey]scoreRow),
	}
	for id, q := range quizzes {
		s.quizzes[id] = q
	}
	return s
}

// SaveQuiz inserts or replaces a quiz definition.
func (s *Store) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.quizzes[quiz.ID]; ok {
		quiz.ParticipantsCount = prev.ParticipantsCount
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) IncrementParticipants(_ context.Context, quizID string) error {
	return s.updateQuiz(quizID, func(q *domain.Quiz) { q.ParticipantsCount++ })
}

func (s *Store) ResetParticipants(_ context.Context, quizID string) error {
	return s.updateQuiz(quizID, func(q *domain.Quiz) { q.ParticipantsCount = 0 })
}

func (s *Store) updateQuiz(quizID string, fn func(*domain.Quiz)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	fn(&quiz)
	s.quizzes[quizID] = quiz
	return nil
}

func (s *Store) FindParticipantByName(_ context.Context, name string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[domain.NormalizeName(name)]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	p := s.participants[id]
	return &p, nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return &p, nil
}

func (s *Store) CreateParticipant(_ context.Context, p domain.Participant) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.NormalizeName(p.Name)
	if _, ok := s.names[key]; ok {
		return nil, domain.ErrDuplicate
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	p.TeamMembers = append([]string(nil), p.TeamMembers...)
	s.participants[p.ID] = p
	s.names[key] = p.ID
	return &p, nil
}

func (s *Store) SaveScore(_ context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[participantID]; !ok {
		return nil, domain.ErrParticipantNotFound
	}
	now := s.now().UTC()
	key := scoreKey{participantID: participantID, quizID: quizID}
	row, ok := s.scores[key]
	rec := row.rec
	if !ok {
		s.seq++
		row.seq = s.seq
		rec = domain.ScoreRecord{
			ID:            uuid.NewString(),
			ParticipantID: participantID,
			QuizID:        quizID,
			CreatedAt:     now,
		}
	}
	if !ok || rec.Score != score || !sameAnswers(rec.Answers, answers) {
		rec.UpdatedAt = now
	}
	rec.Score = score
	rec.Answers = answers.Clone()
	row.rec = rec
	s.scores[key] = row
	out := s.withParticipantLocked(rec)
	return &out, nil
}

func (s *Store) GetScore(_ context.Context, participantID, quizID string) (*domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.scores[scoreKey{participantID: participantID, quizID: quizID}]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	rec := row.rec
	rec.Answers = rec.Answers.Clone()
	return &rec, nil
}

func (s *Store) ListQuizScores(_ context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return s.list(func(r domain.ScoreRecord) bool { return r.QuizID == quizID }), nil
}

func (s *Store) ListParticipantScores(_ context.Context, participantID string) ([]domain.ScoreRecord, error) {
	return s.list(func(r domain.ScoreRecord) bool { return r.ParticipantID == participantID }), nil
}

func (s *Store) ListScores(_ context.Context) ([]domain.ScoreRecord, error) {
	return s.list(func(domain.ScoreRecord) bool { return true }), nil
}

func (s *Store) ClearQuizScores(_ context.Context, quizID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key := range s.scores {
		if key.quizID == quizID {
			delete(s.scores, key)
			n++
		}
	}
	return n, nil
}

// list returns matching rows in insertion order, never nil.
func (s *Store) list(match func(domain.ScoreRecord) bool) []domain.ScoreRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]scoreRow, 0)
	for _, row := range s.scores {
		if match(row.rec) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.withParticipantLocked(row.rec))
	}
	return out
}

func (s *Store) withParticipantLocked(rec domain.ScoreRecord) domain.ScoreRecord {
	rec.Answers = rec.Answers.Clone()
	if p, ok := s.participants[rec.ParticipantID]; ok {
		rec.Participant = &p
	}
	return rec
}

func sameAnswers(a, b domain.AnswerMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if va[i] != vb[i] {
				return false
			}
		}
	}
	return true
}
