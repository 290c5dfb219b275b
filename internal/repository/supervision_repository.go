package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// SupervisionRepository logs supervision sessions against assignments.
type SupervisionRepository struct {
	db *sqlx.DB
}

// NewSupervisionRepository constructs the repository.
func NewSupervisionRepository(db *sqlx.DB) *SupervisionRepository {
	return &SupervisionRepository{db: db}
}

const sessionColumns = `id, assignment_id, held_at, duration_mins, subject, notes, next_steps, created_at, updated_at`

// FindByID returns a supervision session by ID.
func (r *SupervisionRepository) FindByID(ctx context.Context, id string) (*models.SupervisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM supervision_sessions WHERE id = $1`, sessionColumns)
	var session models.SupervisionSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByAssignment returns every session for an assignment, newest first.
func (r *SupervisionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SupervisionSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM supervision_sessions WHERE assignment_id = $1 ORDER BY held_at DESC`, sessionColumns)
	var sessions []models.SupervisionSession
	if err := r.db.SelectContext(ctx, &sessions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list supervision sessions: %w", err)
	}
	return sessions, nil
}

// CountByAssignment returns the number of sessions logged for an assignment.
func (r *SupervisionRepository) CountByAssignment(ctx context.Context, assignmentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM supervision_sessions WHERE assignment_id = $1`, assignmentID); err != nil {
		return 0, fmt.Errorf("count supervision sessions: %w", err)
	}
	return count, nil
}

// Create inserts a session.
func (r *SupervisionRepository) Create(ctx context.Context, session *models.SupervisionSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO supervision_sessions (id, assignment_id, held_at, duration_mins, subject, notes, next_steps, created_at, updated_at)
        VALUES (:id, :assignment_id, :held_at, :duration_mins, :subject, :notes, :next_steps, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("insert supervision session: %w", err)
	}
	return nil
}

// Update rewrites a session's mutable fields.
func (r *SupervisionRepository) Update(ctx context.Context, session *models.SupervisionSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE supervision_sessions SET held_at = :held_at, duration_mins = :duration_mins,
        subject = :subject, notes = :notes, next_steps = :next_steps, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update supervision session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *SupervisionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM supervision_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete supervision session: %w", err)
	}
	return nil
}
