package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-score-service/internal/app"
	"quiz-score-service/internal/domain"
)

// Store implements app.Store, the quiz loader and the platform weights
// source on top of a pgx pool. Weights and the quiz methods live in quizzes.go.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ app.Store         = (*Store)(nil)
	_ app.WeightsSource = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const participantColumns = `u.id, u.name, u.is_team, u.team_members, u.created_at`

const scoreColumns = `s.id, s.user_id, s.quiz_id, s.score, s.answers, s.created_at, s.updated_at`

func (s *Store) FindParticipantByName(ctx context.Context, name string) (*domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM users u WHERE lower(u.name) = $1`, domain.NormalizeName(name))
	p, err := scanParticipant(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrParticipantNotFound)
	}
	return p, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantColumns+` FROM users u WHERE u.id = $1`, id)
	p, err := scanParticipant(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrParticipantNotFound)
	}
	return p, nil
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) (*domain.Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	var members []byte
	if p.IsTeam && len(p.TeamMembers) > 0 {
		var err error
		if members, err = json.Marshal(p.TeamMembers); err != nil {
			return nil, fmt.Errorf("marshal team members: %w", err)
		}
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO users AS u (id, name, is_team, team_members)
VALUES ($1, $2, $3, $4)
RETURNING `+participantColumns, p.ID, p.Name, p.IsTeam, members)
	created, err := scanParticipant(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrParticipantNotFound)
	}
	return created, nil
}

// SaveScore upserts on (user_id, quiz_id). updated_at only moves when the
// row actually changes, so repeating a write leaves it untouched.
func (s *Store) SaveScore(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error) {
	raw, err := marshalAnswers(answers)
	if err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO scores AS s (id, user_id, quiz_id, score, answers)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, quiz_id) DO UPDATE
SET score = EXCLUDED.score,
    answers = EXCLUDED.answers,
    updated_at = CASE
        WHEN s.score IS DISTINCT FROM EXCLUDED.score OR s.answers IS DISTINCT FROM EXCLUDED.answers
        THEN now() ELSE s.updated_at END
RETURNING `+scoreColumns, uuid.NewString(), participantID, quizID, score, raw)
	rec, err := scanScore(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	return rec, nil
}

func (s *Store) GetScore(ctx context.Context, participantID, quizID string) (*domain.ScoreRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+scoreColumns+` FROM scores s WHERE s.user_id = $1 AND s.quiz_id = $2`, participantID, quizID)
	rec, err := scanScore(row)
	if err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	return rec, nil
}

func (s *Store) ListQuizScores(ctx context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, `WHERE s.quiz_id = $1`, quizID)
}

func (s *Store) ListParticipantScores(ctx context.Context, participantID string) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, `WHERE s.user_id = $1`, participantID)
}

func (s *Store) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, ``)
}

func (s *Store) listJoined(ctx context.Context, where string, args ...interface{}) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+scoreColumns+`, `+participantColumns+`
FROM scores s
JOIN users u ON u.id = s.user_id
`+where+`
ORDER BY s.created_at, s.id`, args...)
	if err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	defer rows.Close()

	out := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var (
			rec        domain.ScoreRecord
			p          domain.Participant
			rawAnswers []byte
			rawMembers []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.ParticipantID, &rec.QuizID, &rec.Score, &rawAnswers, &rec.CreatedAt, &rec.UpdatedAt,
			&p.ID, &p.Name, &p.IsTeam, &rawMembers, &p.CreatedAt,
		); err != nil {
			return nil, mapErr(err, domain.ErrScoreNotFound)
		}
		if rec.Answers, err = unmarshalAnswers(rawAnswers); err != nil {
			return nil, err
		}
		if p.TeamMembers, err = unmarshalMembers(rawMembers); err != nil {
			return nil, err
		}
		rec.Participant = &p
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	return out, nil
}

func (s *Store) ClearQuizScores(ctx context.Context, quizID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scores WHERE quiz_id = $1`, quizID)
	if err != nil {
		return 0, mapErr(err, domain.ErrScoreNotFound)
	}
	return tag.RowsAffected(), nil
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var (
		p          domain.Participant
		rawMembers []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.IsTeam, &rawMembers, &p.CreatedAt); err != nil {
		return nil, err
	}
	members, err := unmarshalMembers(rawMembers)
	if err != nil {
		return nil, err
	}
	p.TeamMembers = members
	return &p, nil
}

func scanScore(row pgx.Row) (*domain.ScoreRecord, error) {
	var (
		rec        domain.ScoreRecord
		rawAnswers []byte
	)
	if err := row.Scan(&rec.ID, &rec.ParticipantID, &rec.QuizID, &rec.Score, &rawAnswers, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	answers, err := unmarshalAnswers(rawAnswers)
	if err != nil {
		return nil, err
	}
	rec.Answers = answers
	return &rec, nil
}

func marshalAnswers(answers domain.AnswerMap) ([]byte, error) {
	if answers == nil {
		answers = domain.AnswerMap{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	return raw, nil
}

func unmarshalAnswers(raw []byte) (domain.AnswerMap, error) {
	answers := domain.AnswerMap{}
	if len(raw) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return answers, nil
}

func unmarshalMembers(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var members []string
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("unmarshal team members: %w", err)
	}
	return members, nil
}

// mapErr translates driver errors into the domain taxonomy. Anything that
// is not a server-side SQL error is treated as transient.
func mapErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		case "23514":
			return &domain.ValidationError{Field: pgErr.ConstraintName, Msg: pgErr.Message}
		case "40001", "40P01", "57P01", "53300":
			return fmt.Errorf("%w: %v", domain.ErrTransient, err)
		}
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransient, err)
}
