package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"quiz-score-service/internal/domain"
)

const (
	minNameLen     = 2
	maxNameLen     = 50
	minTeamMembers = 2
)

// Registration is what a player submits before starting a quiz.
type Registration struct {
	Name        string   `json:"name"`
	IsTeam      bool     `json:"isTeam"`
	TeamMembers []string `json:"teamMembers,omitempty"`
}

// Normalize trims the name and drops blank team members.
func (r Registration) Normalize() Registration {
	out := Registration{Name: strings.TrimSpace(r.Name), IsTeam: r.IsTeam}
	if !r.IsTeam {
		return out
	}
	for _, m := range r.TeamMembers {
		if m = strings.TrimSpace(m); m != "" {
			out.TeamMembers = append(out.TeamMembers, m)
		}
	}
	return out
}

// Validate applies the local name and team rules. Call it on a normalized value.
func (r Registration) Validate() error {
	if err := validateName("name", r.Name); err != nil {
		return err
	}
	if !r.IsTeam {
		return nil
	}
	if len(r.TeamMembers) < minTeamMembers {
		return &domain.ValidationError{Field: "teamMembers", Msg: fmt.Sprintf("a team needs at least %d members", minTeamMembers)}
	}
	for _, m := range r.TeamMembers {
		if err := validateName("teamMembers", m); err != nil {
			return err
		}
	}
	return nil
}

func validateName(field, name string) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return &domain.ValidationError{Field: field, Msg: "name is required"}
	case n < minNameLen:
		return &domain.ValidationError{Field: field, Msg: fmt.Sprintf("name must be at least %d characters", minNameLen)}
	case n > maxNameLen:
		return &domain.ValidationError{Field: field, Msg: fmt.Sprintf("name must be at most %d characters", maxNameLen)}
	}
	return nil
}

// ParticipationGuard refuses a new attempt when the named participant
// already has a score row for the quiz. The check is advisory: two
// concurrent starts can both pass it, and only the store's unique
// (participant, quiz) key keeps a single row.
type ParticipationGuard struct {
	participants ParticipantStore
	scores       ScoreStore
}

func NewParticipationGuard(participants ParticipantStore, scores ScoreStore) *ParticipationGuard {
	return &ParticipationGuard{participants: participants, scores: scores}
}

// Check returns domain.ErrAlreadyCompleted when name has played quizID.
func (g *ParticipationGuard) Check(ctx context.Context, name, quizID string) error {
	p, err := g.participants.FindParticipantByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup participant: %w", err)
	}
	_, err = g.scores.GetScore(ctx, p.ID, quizID)
	switch {
	case err == nil:
		return domain.ErrAlreadyCompleted
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("lookup score: %w", err)
	}
}

// Registry creates participants once per unique name and reuses them after.
type Registry struct {
	participants ParticipantStore
	now          func() time.Time
}

func NewRegistry(participants ParticipantStore) *Registry {
	return &Registry{participants: participants, now: time.Now}
}

// NameExists reports whether a participant already uses name.
func (r *Registry) NameExists(ctx context.Context, name string) (bool, error) {
	_, err := r.participants.FindParticipantByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrCreate returns the participant named in reg, creating it on first
// use. An existing participant keeps its stored team data. A duplicate
// raised by a concurrent create is resolved by reading the winner's row.
func (r *Registry) GetOrCreate(ctx context.Context, reg Registration) (*domain.Participant, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.participants.FindParticipantByName(ctx, reg.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	created, err := r.participants.CreateParticipant(ctx, domain.Participant{
		ID:          uuid.NewString(),
		Name:        reg.Name,
		IsTeam:      reg.IsTeam,
		TeamMembers: reg.TeamMembers,
		CreatedAt:   r.now().UTC(),
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return r.participants.FindParticipantByName(ctx, reg.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("create participant: %w", err)
	}
	return created, nil
}
