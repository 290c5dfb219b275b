package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/pkg/errors"
)

func newAllocationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAllocationRepositoryConfirmManual(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM assignments")).
		WithArgs("student-1", models.AssignmentConfirmed).
		WillReturnError(errNoRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, capacity, occupied FROM topics WHERE id = $1 FOR UPDATE")).
		WithArgs("topic-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "capacity", "occupied"}).
			AddRow("topic-1", "APPROVED", 2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, max_load, current_load FROM supervisors WHERE id = $1 FOR UPDATE")).
		WithArgs("supervisor-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "max_load", "current_load"}).
			AddRow("supervisor-1", 5, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT rank FROM assignments")).
		WithArgs("student-1", "topic-1", models.AssignmentPending).
		WillReturnRows(sqlmock.NewRows([]string{"rank"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments")).
		WithArgs("student-1", models.AssignmentPending).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics SET occupied = occupied + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisors SET current_load = current_load + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignment, err := repo.ConfirmManual(context.Background(), "student-1", "topic-1", "supervisor-1", "manual pick")
	require.NoError(t, err)
	require.Equal(t, models.AssignmentConfirmed, assignment.Status)
	require.Equal(t, 2, assignment.Rank)
	require.NotNil(t, assignment.AssignedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryConfirmManualCapacityFull(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM assignments")).
		WillReturnError(errNoRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, capacity, occupied FROM topics")).
		WithArgs("topic-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "capacity", "occupied"}).
			AddRow("topic-1", "APPROVED", 1, 1))
	mock.ExpectRollback()

	_, err := repo.ConfirmManual(context.Background(), "student-1", "topic-1", "supervisor-1", "")
	require.ErrorIs(t, err, errors.ErrCapacityExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryConfirmManualAlreadyAssigned(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM assignments")).
		WithArgs("student-1", models.AssignmentConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.ConfirmManual(context.Background(), "student-1", "topic-1", "supervisor-1", "")
	require.ErrorIs(t, err, errors.ErrAlreadyAssigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryAutoAssignReportsConflicts(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id AS student_id, u.full_name AS student_name")).
		WithArgs(models.StudentTopicChosen).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "student_name"}).
			AddRow("student-1", "Awa Diop"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT topic_id, supervisor_id, rank FROM assignments")).
		WithArgs("student-1", models.AssignmentPending).
		WillReturnRows(sqlmock.NewRows([]string{"topic_id", "supervisor_id", "rank"}).
			AddRow("topic-1", "supervisor-1", 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, capacity, occupied FROM topics")).
		WithArgs("topic-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "capacity", "occupied"}).
			AddRow("topic-1", "APPROVED", 1, 1))
	mock.ExpectCommit()

	result, err := repo.AutoAssign(context.Background())
	require.NoError(t, err)
	require.Empty(t, result.Assigned)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "student-1", result.Conflicts[0].StudentID)
	require.Equal(t, "no available topic among preferences", result.Conflicts[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryRemoveWithDependents(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	assignmentRows := sqlmock.NewRows([]string{
		"id", "student_id", "topic_id", "supervisor_id", "rank", "status",
		"assigned_at", "admin_comment", "created_at", "updated_at",
	}).AddRow("assign-1", "student-1", "topic-1", "supervisor-1", 1, "CONFIRMED", nil, "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE id = $1 AND status = $2 FOR UPDATE")).
		WithArgs("assign-1", models.AssignmentConfirmed).
		WillReturnRows(assignmentRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 WHERE EXISTS")).
		WithArgs("assign-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Remove(context.Background(), "assign-1")
	require.ErrorIs(t, err, errors.ErrHasDependents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationRepositoryRemove(t *testing.T) {
	db, mock, cleanup := newAllocationRepoMock(t)
	defer cleanup()

	repo := NewAllocationRepository(db)

	mock.ExpectBegin()
	assignmentRows := sqlmock.NewRows([]string{
		"id", "student_id", "topic_id", "supervisor_id", "rank", "status",
		"assigned_at", "admin_comment", "created_at", "updated_at",
	}).AddRow("assign-1", "student-1", "topic-1", "supervisor-1", 1, "CONFIRMED", nil, "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE id = $1 AND status = $2 FOR UPDATE")).
		WithArgs("assign-1", models.AssignmentConfirmed).
		WillReturnRows(assignmentRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 WHERE EXISTS")).
		WithArgs("assign-1").
		WillReturnError(errNoRows())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE topics SET occupied = occupied - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE supervisors SET current_load = current_load - 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments WHERE id = $1")).
		WithArgs("assign-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The sibling preferences were deleted at confirmation, so the student
	// restarts from AWAITING_TOPIC, not TOPIC_CHOSEN.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status")).
		WithArgs("student-1", models.StudentAwaitingTopic, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Remove(context.Background(), "assign-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
