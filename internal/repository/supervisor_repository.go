package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// SupervisorRepository handles persistence of supervisors.
type SupervisorRepository struct {
	db *sqlx.DB
}

// NewSupervisorRepository constructs the repository.
func NewSupervisorRepository(db *sqlx.DB) *SupervisorRepository {
	return &SupervisorRepository{db: db}
}

// FindByID returns a supervisor by its ID.
func (r *SupervisorRepository) FindByID(ctx context.Context, id string) (*models.Supervisor, error) {
	const query = `SELECT id, user_id, speciality, grade, max_load, current_load, created_at, updated_at
        FROM supervisors WHERE id = $1`
	var supervisor models.Supervisor
	if err := r.db.GetContext(ctx, &supervisor, query, id); err != nil {
		return nil, err
	}
	return &supervisor, nil
}

// FindDetailByID returns a supervisor with the owning user's identity.
func (r *SupervisorRepository) FindDetailByID(ctx context.Context, id string) (*models.SupervisorDetail, error) {
	const query = `SELECT s.id, s.user_id, s.speciality, s.grade, s.max_load, s.current_load, s.created_at, s.updated_at,
        u.full_name, u.email
        FROM supervisors s JOIN users u ON u.id = s.user_id WHERE s.id = $1`
	var detail models.SupervisorDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID resolves the supervisor profile behind a user account.
func (r *SupervisorRepository) FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error) {
	const query = `SELECT id, user_id, speciality, grade, max_load, current_load, created_at, updated_at
        FROM supervisors WHERE user_id = $1`
	var supervisor models.Supervisor
	if err := r.db.GetContext(ctx, &supervisor, query, userID); err != nil {
		return nil, err
	}
	return &supervisor, nil
}

// List returns all supervisors with identities, ordered by name.
func (r *SupervisorRepository) List(ctx context.Context) ([]models.SupervisorDetail, error) {
	const query = `SELECT s.id, s.user_id, s.speciality, s.grade, s.max_load, s.current_load, s.created_at, s.updated_at,
        u.full_name, u.email
        FROM supervisors s JOIN users u ON u.id = s.user_id ORDER BY u.full_name`
	var supervisors []models.SupervisorDetail
	if err := r.db.SelectContext(ctx, &supervisors, query); err != nil {
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	return supervisors, nil
}
