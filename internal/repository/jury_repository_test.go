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

func newJuryRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func expectMemberReservation(mock sqlmock.Sqlmock, memberID string, availability models.MemberAvailability) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT availability FROM jury_members WHERE id = $1 FOR UPDATE")).
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows([]string{"availability"}).AddRow(string(availability)))
	if availability == models.MemberAvailable {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jury_members SET availability")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
}

func TestJuryRepositoryCreateReservesMembers(t *testing.T) {
	db, mock, cleanup := newJuryRepoMock(t)
	defer cleanup()

	repo := NewJuryRepository(db)

	mock.ExpectBegin()
	expectMemberReservation(mock, "member-p", models.MemberAvailable)
	expectMemberReservation(mock, "member-r", models.MemberAvailable)
	expectMemberReservation(mock, "member-x", models.MemberAvailable)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO juries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	jury := &models.Jury{
		Name:         "Jury A",
		PresidentID:  "member-p",
		ReporterID:   "member-r",
		ExaminerID:   "member-x",
		SupervisorID: "supervisor-1",
	}
	require.NoError(t, repo.Create(context.Background(), jury))
	require.NotEmpty(t, jury.ID)
	require.Equal(t, models.JuryFormed, jury.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJuryRepositoryCreateMemberUnavailable(t *testing.T) {
	db, mock, cleanup := newJuryRepoMock(t)
	defer cleanup()

	repo := NewJuryRepository(db)

	mock.ExpectBegin()
	expectMemberReservation(mock, "member-p", models.MemberAvailable)
	expectMemberReservation(mock, "member-r", models.MemberReserved)
	mock.ExpectRollback()

	jury := &models.Jury{
		Name:         "Jury B",
		PresidentID:  "member-p",
		ReporterID:   "member-r",
		ExaminerID:   "member-x",
		SupervisorID: "supervisor-1",
	}
	err := repo.Create(context.Background(), jury)
	require.ErrorIs(t, err, errors.ErrMemberUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJuryRepositoryDissolveWithActiveDefense(t *testing.T) {
	db, mock, cleanup := newJuryRepoMock(t)
	defer cleanup()

	repo := NewJuryRepository(db)

	mock.ExpectBegin()
	juryRows := sqlmock.NewRows([]string{
		"id", "name", "president_id", "reporter_id", "examiner_id", "supervisor_id",
		"status", "comment", "created_at", "updated_at",
	}).AddRow("jury-1", "Jury A", "member-p", "member-r", "member-x", "supervisor-1",
		"ACTIVE", "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM juries WHERE id = $1 FOR UPDATE")).
		WithArgs("jury-1").
		WillReturnRows(juryRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM defenses WHERE jury_id = $1")).
		WithArgs("jury-1", models.DefenseScheduled, models.DefenseInProgress).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Dissolve(context.Background(), "jury-1")
	require.ErrorIs(t, err, errors.ErrJuryLocked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJuryRepositoryDissolveReleasesMembers(t *testing.T) {
	db, mock, cleanup := newJuryRepoMock(t)
	defer cleanup()

	repo := NewJuryRepository(db)

	mock.ExpectBegin()
	juryRows := sqlmock.NewRows([]string{
		"id", "name", "president_id", "reporter_id", "examiner_id", "supervisor_id",
		"status", "comment", "created_at", "updated_at",
	}).AddRow("jury-1", "Jury A", "member-p", "member-r", "member-x", "supervisor-1",
		"FORMED", "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM juries WHERE id = $1 FOR UPDATE")).
		WithArgs("jury-1").
		WillReturnRows(juryRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM defenses WHERE jury_id = $1")).
		WillReturnError(errNoRows())
	for i := 0; i < 3; i++ {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE jury_members SET availability")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE juries SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Dissolve(context.Background(), "jury-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
