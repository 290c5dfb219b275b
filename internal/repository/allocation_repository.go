package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/pkg/errors"
)

// AllocationRepository owns the transactional allocation units. Every public
// method runs in a single transaction and takes row locks on the capacity
// counters it moves, so concurrent confirmations against the last seat of a
// topic serialize instead of overbooking.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

type lockedTopic struct {
	ID       string             `db:"id"`
	Status   models.TopicStatus `db:"status"`
	Capacity int                `db:"capacity"`
	Occupied int                `db:"occupied"`
}

type lockedSupervisor struct {
	ID          string `db:"id"`
	MaxLoad     int    `db:"max_load"`
	CurrentLoad int    `db:"current_load"`
}

func lockTopic(ctx context.Context, tx *sqlx.Tx, topicID string) (*lockedTopic, error) {
	const query = `SELECT id, status, capacity, occupied FROM topics WHERE id = $1 FOR UPDATE`
	var topic lockedTopic
	if err := tx.GetContext(ctx, &topic, query, topicID); err != nil {
		return nil, err
	}
	return &topic, nil
}

func lockSupervisor(ctx context.Context, tx *sqlx.Tx, supervisorID string) (*lockedSupervisor, error) {
	const query = `SELECT id, max_load, current_load FROM supervisors WHERE id = $1 FOR UPDATE`
	var supervisor lockedSupervisor
	if err := tx.GetContext(ctx, &supervisor, query, supervisorID); err != nil {
		return nil, err
	}
	return &supervisor, nil
}

// confirmInTx performs the shared confirmation steps once the caller has
// validated the student. Counters for the target topic and supervisor must
// already be locked by the caller.
func confirmInTx(ctx context.Context, tx *sqlx.Tx, studentID, topicID, supervisorID string, rank int, comment string, now time.Time) (*models.Assignment, error) {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE student_id = $1 AND status = $2`,
		studentID, models.AssignmentPending); err != nil {
		return nil, fmt.Errorf("clear pending preferences: %w", err)
	}

	assignment := &models.Assignment{
		ID:           uuid.NewString(),
		StudentID:    studentID,
		TopicID:      topicID,
		SupervisorID: supervisorID,
		Rank:         rank,
		Status:       models.AssignmentConfirmed,
		AssignedAt:   &now,
		AdminComment: comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const insert = `INSERT INTO assignments (id, student_id, topic_id, supervisor_id, rank, status, assigned_at, admin_comment, created_at, updated_at)
        VALUES (:id, :student_id, :topic_id, :supervisor_id, :rank, :status, :assigned_at, :admin_comment, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, assignment); err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE topics SET occupied = occupied + 1, updated_at = $2 WHERE id = $1`,
		topicID, now); err != nil {
		return nil, fmt.Errorf("increment topic occupancy: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE supervisors SET current_load = current_load + 1, updated_at = $2 WHERE id = $1`,
		supervisorID, now); err != nil {
		return nil, fmt.Errorf("increment supervisor load: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`,
		studentID, models.StudentAssigned, now); err != nil {
		return nil, fmt.Errorf("update student status: %w", err)
	}
	return assignment, nil
}

func hasConfirmed(ctx context.Context, tx *sqlx.Tx, studentID string) (bool, error) {
	var one int
	err := tx.GetContext(ctx, &one,
		`SELECT 1 FROM assignments WHERE student_id = $1 AND status = $2`,
		studentID, models.AssignmentConfirmed)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmManual confirms a single student onto a topic under a given
// supervisor. The rank is taken from the matching pending preference when one
// exists, zero otherwise.
func (r *AllocationRepository) ConfirmManual(ctx context.Context, studentID, topicID, supervisorID, comment string) (*models.Assignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	confirmed, err := hasConfirmed(ctx, tx, studentID)
	if err != nil {
		return nil, fmt.Errorf("check existing assignment: %w", err)
	}
	if confirmed {
		return nil, errors.ErrAlreadyAssigned
	}

	topic, err := lockTopic(ctx, tx, topicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("lock topic: %w", err)
	}
	if topic.Status != models.TopicApproved {
		return nil, errors.ErrNotApproved
	}
	if topic.Occupied >= topic.Capacity {
		return nil, errors.ErrCapacityExceeded
	}

	supervisor, err := lockSupervisor(ctx, tx, supervisorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("lock supervisor: %w", err)
	}
	if supervisor.CurrentLoad >= supervisor.MaxLoad {
		return nil, errors.ErrCapacityExceeded
	}

	rank := 0
	err = tx.GetContext(ctx, &rank,
		`SELECT rank FROM assignments WHERE student_id = $1 AND topic_id = $2 AND status = $3`,
		studentID, topicID, models.AssignmentPending)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("resolve preference rank: %w", err)
	}

	assignment, err := confirmInTx(ctx, tx, studentID, topicID, supervisorID, rank, comment, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assignment: %w", err)
	}
	return assignment, nil
}

type autoCandidate struct {
	StudentID   string `db:"student_id"`
	StudentName string `db:"student_name"`
}

type autoPreference struct {
	TopicID      string `db:"topic_id"`
	SupervisorID string `db:"supervisor_id"`
	Rank         int    `db:"rank"`
}

// AutoAssign walks every student still waiting on a confirmed topic and
// confirms the first preference with a free seat and a supervisor with free
// load, in preference rank order. The whole batch runs in one transaction so
// a mid-batch failure leaves no partial state. Students whose preferences are
// all exhausted are reported as conflicts, not errors.
func (r *AllocationRepository) AutoAssign(ctx context.Context) (*models.AllocationResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var candidates []autoCandidate
	const candidateQuery = `SELECT s.id AS student_id, u.full_name AS student_name
        FROM students s JOIN users u ON u.id = s.user_id
        WHERE s.status = $1 ORDER BY s.id`
	if err := tx.SelectContext(ctx, &candidates, candidateQuery, models.StudentTopicChosen); err != nil {
		return nil, fmt.Errorf("list allocation candidates: %w", err)
	}

	result := &models.AllocationResult{}
	now := time.Now().UTC()

	for _, candidate := range candidates {
		var prefs []autoPreference
		const prefQuery = `SELECT topic_id, supervisor_id, rank FROM assignments
            WHERE student_id = $1 AND status = $2 ORDER BY rank`
		if err := tx.SelectContext(ctx, &prefs, prefQuery, candidate.StudentID, models.AssignmentPending); err != nil {
			return nil, fmt.Errorf("list preferences: %w", err)
		}

		placed := false
		for _, pref := range prefs {
			topic, err := lockTopic(ctx, tx, pref.TopicID)
			if err != nil {
				if err == sql.ErrNoRows {
					continue
				}
				return nil, fmt.Errorf("lock topic: %w", err)
			}
			if topic.Status != models.TopicApproved || topic.Occupied >= topic.Capacity {
				continue
			}
			supervisor, err := lockSupervisor(ctx, tx, pref.SupervisorID)
			if err != nil {
				if err == sql.ErrNoRows {
					continue
				}
				return nil, fmt.Errorf("lock supervisor: %w", err)
			}
			if supervisor.CurrentLoad >= supervisor.MaxLoad {
				continue
			}

			assignment, err := confirmInTx(ctx, tx, candidate.StudentID, pref.TopicID, pref.SupervisorID, pref.Rank, "", now)
			if err != nil {
				return nil, err
			}
			result.Assigned = append(result.Assigned, *assignment)
			placed = true
			break
		}

		if !placed {
			result.Conflicts = append(result.Conflicts, models.AllocationConflict{
				StudentID:   candidate.StudentID,
				StudentName: candidate.StudentName,
				Reason:      "no available topic among preferences",
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit auto allocation: %w", err)
	}
	return result, nil
}

// Reassign moves a confirmed assignment to a new topic and supervisor,
// releasing the old seats and claiming the new ones in one transaction.
func (r *AllocationRepository) Reassign(ctx context.Context, assignmentID, newTopicID, newSupervisorID, comment string) (*models.Assignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var current models.Assignment
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 AND status = $2 FOR UPDATE`, assignmentColumns)
	if err := tx.GetContext(ctx, &current, query, assignmentID, models.AssignmentConfirmed); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("lock assignment: %w", err)
	}

	topic, err := lockTopic(ctx, tx, newTopicID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("lock topic: %w", err)
	}
	if topic.Status != models.TopicApproved {
		return nil, errors.ErrNotApproved
	}
	if topic.ID != current.TopicID && topic.Occupied >= topic.Capacity {
		return nil, errors.ErrCapacityExceeded
	}

	supervisor, err := lockSupervisor(ctx, tx, newSupervisorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("lock supervisor: %w", err)
	}
	if supervisor.ID != current.SupervisorID && supervisor.CurrentLoad >= supervisor.MaxLoad {
		return nil, errors.ErrCapacityExceeded
	}

	now := time.Now().UTC()
	if current.TopicID != newTopicID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE topics SET occupied = occupied - 1, updated_at = $2 WHERE id = $1`,
			current.TopicID, now); err != nil {
			return nil, fmt.Errorf("release old topic seat: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE topics SET occupied = occupied + 1, updated_at = $2 WHERE id = $1`,
			newTopicID, now); err != nil {
			return nil, fmt.Errorf("claim new topic seat: %w", err)
		}
	}
	if current.SupervisorID != newSupervisorID {
		if _, err := tx.ExecContext(ctx,
			`UPDATE supervisors SET current_load = current_load - 1, updated_at = $2 WHERE id = $1`,
			current.SupervisorID, now); err != nil {
			return nil, fmt.Errorf("release old supervisor load: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE supervisors SET current_load = current_load + 1, updated_at = $2 WHERE id = $1`,
			newSupervisorID, now); err != nil {
			return nil, fmt.Errorf("claim new supervisor load: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assignments SET topic_id = $2, supervisor_id = $3, admin_comment = $4, updated_at = $5 WHERE id = $1`,
		assignmentID, newTopicID, newSupervisorID, comment, now); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reassignment: %w", err)
	}

	current.TopicID = newTopicID
	current.SupervisorID = newSupervisorID
	current.AdminComment = comment
	current.UpdatedAt = now
	return &current, nil
}

// Remove deletes a confirmed assignment, releasing its seats and returning the
// student to the awaiting-topic state. The confirmation already deleted the
// student's sibling preferences, so they must restart topic choice from
// scratch. Assignments that already accrued supervision sessions or a dossier
// cannot be removed.
func (r *AllocationRepository) Remove(ctx context.Context, assignmentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var current models.Assignment
	query := fmt.Sprintf(`SELECT %s FROM assignments WHERE id = $1 AND status = $2 FOR UPDATE`, assignmentColumns)
	if err := tx.GetContext(ctx, &current, query, assignmentID, models.AssignmentConfirmed); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return fmt.Errorf("lock assignment: %w", err)
	}

	var one int
	err = tx.GetContext(ctx, &one,
		`SELECT 1 WHERE EXISTS (SELECT 1 FROM supervision_sessions WHERE assignment_id = $1)
            OR EXISTS (SELECT 1 FROM dossiers WHERE assignment_id = $1)`, assignmentID)
	if err == nil {
		return errors.ErrHasDependents
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check assignment dependents: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE topics SET occupied = occupied - 1, updated_at = $2 WHERE id = $1`,
		current.TopicID, now); err != nil {
		return fmt.Errorf("release topic seat: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE supervisors SET current_load = current_load - 1, updated_at = $2 WHERE id = $1`,
		current.SupervisorID, now); err != nil {
		return fmt.Errorf("release supervisor load: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE id = $1`, assignmentID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`,
		current.StudentID, models.StudentAwaitingTopic, now); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit removal: %w", err)
	}
	return nil
}
