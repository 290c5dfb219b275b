package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// AssignmentRepository handles persistence of preference links and confirmed
// assignments. Counter-moving mutations live in AllocationRepository.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, student_id, topic_id, supervisor_id, rank, status, assigned_at, admin_comment, created_at, updated_at`

const assignmentDetailSelect = `SELECT a.id, a.student_id, a.topic_id, a.supervisor_id, a.rank, a.status, a.assigned_at,
        a.admin_comment, a.created_at, a.updated_at,
        su.full_name AS student_name, t.title AS topic_title, eu.full_name AS supervisor_name
        FROM assignments a
        JOIN students s ON s.id = a.student_id
        JOIN users su ON su.id = s.user_id
        JOIN topics t ON t.id = a.topic_id
        JOIN supervisors e ON e.id = a.supervisor_id
        JOIN users eu ON eu.id = e.user_id`

// FindByID returns an assignment by its ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindDetailByID returns an assignment with display names.
func (r *AssignmentRepository) FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := assignmentDetailSelect + ` WHERE a.id = $1`
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindConfirmedByStudent returns the student's confirmed assignment, if any.
func (r *AssignmentRepository) FindConfirmedByStudent(ctx context.Context, studentID string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE student_id = $1 AND status = $2`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, studentID, models.AssignmentConfirmed); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListPendingByStudent returns the student's preference links in rank order.
func (r *AssignmentRepository) ListPendingByStudent(ctx context.Context, studentID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE student_id = $1 AND status = $2 ORDER BY rank`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, studentID, models.AssignmentPending); err != nil {
		return nil, fmt.Errorf("list pending assignments: %w", err)
	}
	return assignments, nil
}

// List returns assignments filtered by the provided criteria.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	base := `FROM assignments a
JOIN students s ON s.id = a.student_id
JOIN users su ON su.id = s.user_id
JOIN topics t ON t.id = a.topic_id
JOIN supervisors e ON e.id = a.supervisor_id
JOIN users eu ON eu.id = e.user_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("a.supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("s.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(su.full_name ILIKE $%d OR t.title ILIKE $%d OR eu.full_name ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "a.created_at",
		"assigned_at": "a.assigned_at",
		"rank":        "a.rank",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.topic_id, a.supervisor_id, a.rank, a.status, a.assigned_at,
        a.admin_comment, a.created_at, a.updated_at,
        su.full_name AS student_name, t.title AS topic_title, eu.full_name AS supervisor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ReplacePreferences atomically swaps a student's pending preference set and
// marks the student as having chosen topics.
func (r *AssignmentRepository) ReplacePreferences(ctx context.Context, studentID string, prefs []models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE student_id = $1 AND status = $2`,
		studentID, models.AssignmentPending); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear preferences: %w", err)
	}
	now := time.Now().UTC()
	const insert = `INSERT INTO assignments (id, student_id, topic_id, supervisor_id, rank, status, admin_comment, created_at, updated_at)
        VALUES (:id, :student_id, :topic_id, :supervisor_id, :rank, :status, :admin_comment, :created_at, :updated_at)`
	for i := range prefs {
		if prefs[i].ID == "" {
			prefs[i].ID = uuid.NewString()
		}
		prefs[i].StudentID = studentID
		prefs[i].Status = models.AssignmentPending
		prefs[i].CreatedAt = now
		prefs[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, prefs[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert preference: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`,
		studentID, models.StudentTopicChosen, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("update student status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preferences: %w", err)
	}
	return nil
}

// HasDependents reports whether supervision sessions or a dossier reference
// the assignment.
func (r *AssignmentRepository) HasDependents(ctx context.Context, assignmentID string) (bool, error) {
	const query = `SELECT 1 WHERE EXISTS (SELECT 1 FROM supervision_sessions WHERE assignment_id = $1)
        OR EXISTS (SELECT 1 FROM dossiers WHERE assignment_id = $1)`
	var one int
	if err := r.db.GetContext(ctx, &one, query, assignmentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment dependents: %w", err)
	}
	return true, nil
}
