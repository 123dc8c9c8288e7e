package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"quiz-score-service/internal/domain"
)

func (s *Store) FindParticipantByName(ctx context.Context, name string) (*domain.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_team, team_members_json, created_at_unix FROM users WHERE name_norm = ?`,
		domain.NormalizeName(name))
	return scanParticipant(row)
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_team, team_members_json, created_at_unix FROM users WHERE id = ?`, id)
	return scanParticipant(row)
}

func (s *Store) CreateParticipant(ctx context.Context, p domain.Participant) (*domain.Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.CreatedAt = fromUnix(toUnix(p.CreatedAt))

	var members sql.NullString
	if p.IsTeam && len(p.TeamMembers) > 0 {
		raw, err := json.Marshal(p.TeamMembers)
		if err != nil {
			return nil, fmt.Errorf("marshal team members: %w", err)
		}
		members = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, name_norm, is_team, team_members_json, created_at_unix) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, domain.NormalizeName(p.Name), p.IsTeam, members, toUnix(p.CreatedAt))
	if err != nil {
		return nil, mapErr(err, domain.ErrParticipantNotFound)
	}
	return &p, nil
}

// SaveScore upserts on (user_id, quiz_id); updated_at only moves when the
// score or the answers change.
func (s *Store) SaveScore(ctx context.Context, participantID, quizID string, score int, answers domain.AnswerMap) (*domain.ScoreRecord, error) {
	if answers == nil {
		answers = domain.AnswerMap{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}
	now := toUnix(s.now())
	row := s.db.QueryRowContext(ctx, `
INSERT INTO scores (id, user_id, quiz_id, score, answers_json, created_at_unix, updated_at_unix)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, quiz_id) DO UPDATE
SET updated_at_unix = CASE
        WHEN scores.score != excluded.score OR scores.answers_json != excluded.answers_json
        THEN excluded.updated_at_unix ELSE scores.updated_at_unix END,
    score = excluded.score,
    answers_json = excluded.answers_json
RETURNING id, user_id, quiz_id, score, answers_json, created_at_unix, updated_at_unix`,
		uuid.NewString(), participantID, quizID, score, string(raw), now, now)
	return scanScore(row)
}

func (s *Store) GetScore(ctx context.Context, participantID, quizID string) (*domain.ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, quiz_id, score, answers_json, created_at_unix, updated_at_unix
FROM scores WHERE user_id = ? AND quiz_id = ?`, participantID, quizID)
	return scanScore(row)
}

func (s *Store) ListQuizScores(ctx context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, `WHERE s.quiz_id = ?`, quizID)
}

func (s *Store) ListParticipantScores(ctx context.Context, participantID string) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, `WHERE s.user_id = ?`, participantID)
}

func (s *Store) ListScores(ctx context.Context) ([]domain.ScoreRecord, error) {
	return s.listJoined(ctx, ``)
}

func (s *Store) ClearQuizScores(ctx context.Context, quizID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scores WHERE quiz_id = ?`, quizID)
	if err != nil {
		return 0, mapErr(err, domain.ErrScoreNotFound)
	}
	return res.RowsAffected()
}

func (s *Store) listJoined(ctx context.Context, where string, args ...any) ([]domain.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT s.id, s.user_id, s.quiz_id, s.score, s.answers_json, s.created_at_unix, s.updated_at_unix,
       u.id, u.name, u.is_team, u.team_members_json, u.created_at_unix
FROM scores s
JOIN users u ON u.id = s.user_id
`+where+`
ORDER BY s.created_at_unix, s.rowid`, args...)
	if err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	defer rows.Close()

	out := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var (
			rec                  domain.ScoreRecord
			p                    domain.Participant
			answers              string
			members              sql.NullString
			created, updated, pc int64
		)
		if err := rows.Scan(
			&rec.ID, &rec.ParticipantID, &rec.QuizID, &rec.Score, &answers, &created, &updated,
			&p.ID, &p.Name, &p.IsTeam, &members, &pc,
		); err != nil {
			return nil, err
		}
		rec.CreatedAt, rec.UpdatedAt, p.CreatedAt = fromUnix(created), fromUnix(updated), fromUnix(pc)
		if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		if members.Valid {
			if err := json.Unmarshal([]byte(members.String), &p.TeamMembers); err != nil {
				return nil, fmt.Errorf("unmarshal team members: %w", err)
			}
		}
		rec.Participant = &p
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanParticipant(row *sql.Row) (*domain.Participant, error) {
	var (
		p       domain.Participant
		members sql.NullString
		created int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.IsTeam, &members, &created); err != nil {
		return nil, mapErr(err, domain.ErrParticipantNotFound)
	}
	p.CreatedAt = fromUnix(created)
	if members.Valid {
		if err := json.Unmarshal([]byte(members.String), &p.TeamMembers); err != nil {
			return nil, fmt.Errorf("unmarshal team members: %w", err)
		}
	}
	return &p, nil
}

func scanScore(row *sql.Row) (*domain.ScoreRecord, error) {
	var (
		rec              domain.ScoreRecord
		answers          string
		created, updated int64
	)
	if err := row.Scan(&rec.ID, &rec.ParticipantID, &rec.QuizID, &rec.Score, &answers, &created, &updated); err != nil {
		return nil, mapErr(err, domain.ErrScoreNotFound)
	}
	rec.CreatedAt, rec.UpdatedAt = fromUnix(created), fromUnix(updated)
	rec.Answers = domain.AnswerMap{}
	if err := json.Unmarshal([]byte(answers), &rec.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return &rec, nil
}
