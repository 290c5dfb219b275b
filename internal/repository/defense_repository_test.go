package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/pkg/errors"
)

func newDefenseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func defenseRowColumns() []string {
	return []string{
		"id", "student_id", "jury_id", "dossier_id", "scheduled_at", "room", "duration_mins", "status",
		"president_score", "reporter_score", "examiner_score", "supervisor_score", "final_score",
		"mention", "appreciation", "recommendations", "deliberated_at", "created_at", "updated_at",
	}
}

func TestDefenseRepositoryScheduleRejectsIncompleteDossier(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	dossierRows := sqlmock.NewRows([]string{
		"id", "student_id", "assignment_id", "memoir_pdf", "abstract_fr", "abstract_en",
		"plagiarism_report", "supervisor_evaluation", "complete", "authorized",
		"authorized_at", "submitted_at", "verification", "admin_comment", "created_at", "updated_at",
	}).AddRow("dossier-1", "student-1", "assign-1", "memoir.pdf", "", "", "", "",
		false, false, nil, nil, "PENDING", "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM dossiers WHERE id = $1 FOR UPDATE")).
		WithArgs("dossier-1").
		WillReturnRows(dossierRows)
	mock.ExpectRollback()

	defense := &models.Defense{
		StudentID:    "student-1",
		JuryID:       "jury-1",
		DossierID:    "dossier-1",
		ScheduledAt:  testTime().Add(48 * time.Hour),
		Room:         "Amphi B",
		DurationMins: 60,
	}
	err := repo.Schedule(context.Background(), defense)
	require.ErrorIs(t, err, errors.ErrDossierIncomplete)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositoryScheduleDetectsSlotOverlap(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	dossierRows := sqlmock.NewRows([]string{
		"id", "student_id", "assignment_id", "memoir_pdf", "abstract_fr", "abstract_en",
		"plagiarism_report", "supervisor_evaluation", "complete", "authorized",
		"authorized_at", "submitted_at", "verification", "admin_comment", "created_at", "updated_at",
	}).AddRow("dossier-1", "student-1", "assign-1", "memoir.pdf", "fr", "en", "plag.pdf", "eval.pdf",
		true, true, testTime(), testTime(), "VERIFIED", "", testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM dossiers WHERE id = $1 FOR UPDATE")).
		WithArgs("dossier-1").
		WillReturnRows(dossierRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM defenses WHERE student_id = $1")).
		WillReturnError(errNoRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM defenses WHERE jury_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	defense := &models.Defense{
		StudentID:    "student-1",
		JuryID:       "jury-1",
		DossierID:    "dossier-1",
		ScheduledAt:  testTime().Add(48 * time.Hour),
		Room:         "Amphi B",
		DurationMins: 60,
	}
	err := repo.Schedule(context.Background(), defense)
	require.Error(t, err)
	require.Equal(t, errors.ErrConflict.Code, errors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositoryFinalizeRequiresQuorum(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows(defenseRowColumns()).AddRow(
		"defense-1", "student-1", "jury-1", "dossier-1", testTime(), "Amphi A", 60, "IN_PROGRESS",
		16.0, 14.0, 15.0, nil, nil,
		nil, "", "", nil, testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM defenses WHERE id = $1 FOR UPDATE")).
		WithArgs("defense-1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	_, _, err := repo.Finalize(context.Background(), "defense-1", FinalizeInput{})
	require.ErrorIs(t, err, errors.ErrAllNotesRequired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositoryFinalizeWritesArchive(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows(defenseRowColumns()).AddRow(
		"defense-1", "student-1", "jury-1", "dossier-1", testTime(), "Amphi A", 60, "IN_PROGRESS",
		16.0, 14.0, 15.0, 17.0, nil,
		nil, "", "", nil, testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM defenses WHERE id = $1 FOR UPDATE")).
		WithArgs("defense-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE defenses SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	metaRows := sqlmock.NewRows([]string{
		"title", "student_name", "supervisor_name", "level", "program",
		"memoir_file", "abstract_fr", "abstract_en",
	}).AddRow("Détection d'anomalies réseau", "Awa Diop", "Pr. Ndiaye", "M2", "Informatique",
		"memoir.pdf", "résumé", "abstract")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT t.title, su.full_name AS student_name")).
		WithArgs("defense-1").
		WillReturnRows(metaRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO archive_entries")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jury_members SET availability")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	defense, entry, err := repo.Finalize(context.Background(), "defense-1", FinalizeInput{
		Appreciation: "travail solide",
		Keywords:     "réseaux, anomalies",
		Public:       true,
	})
	require.NoError(t, err)
	require.Equal(t, models.DefenseCompleted, defense.Status)
	require.NotNil(t, defense.FinalScore)
	require.InDelta(t, 15.5, *defense.FinalScore, 0.001)
	require.Equal(t, models.MentionBien, *defense.Mention)
	require.Equal(t, "defense-1", entry.DefenseID)
	require.Equal(t, models.MentionBien, entry.Mention)
	require.True(t, entry.Public)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositorySetRoleScoreCompletedDefense(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE defenses SET president_score")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetRoleScore(context.Background(), "defense-1", models.RolePresident, 15)
	require.Error(t, err)
	require.Equal(t, errors.ErrConflict.Code, errors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositorySetRoleScoreBelowQuorum(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE defenses SET reporter_score")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	scoreRows := sqlmock.NewRows([]string{
		"president_score", "reporter_score", "examiner_score", "supervisor_score",
	}).AddRow(16.0, 14.0, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT president_score, reporter_score, examiner_score, supervisor_score FROM defenses")).
		WithArgs("defense-1").
		WillReturnRows(scoreRows)
	mock.ExpectCommit()

	err := repo.SetRoleScore(context.Background(), "defense-1", models.RoleReporter, 14)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefenseRepositorySetRoleScorePersistsMeanAtQuorum(t *testing.T) {
	db, mock, cleanup := newDefenseRepoMock(t)
	defer cleanup()

	repo := NewDefenseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE defenses SET supervisor_score")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	scoreRows := sqlmock.NewRows([]string{
		"president_score", "reporter_score", "examiner_score", "supervisor_score",
	}).AddRow(16.0, 14.0, 15.0, 17.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT president_score, reporter_score, examiner_score, supervisor_score FROM defenses")).
		WithArgs("defense-1").
		WillReturnRows(scoreRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE defenses SET final_score")).
		WithArgs("defense-1", 15.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetRoleScore(context.Background(), "defense-1", models.RoleSupervisorExaminer, 17)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
