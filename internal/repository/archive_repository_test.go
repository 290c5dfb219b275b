package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/memoire-api/internal/models"
)

func newArchiveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func archiveRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "defense_id", "title", "student_name", "supervisor_name", "year", "level", "program",
		"mention", "final_score", "memoir_file", "abstract_fr", "abstract_en", "keywords",
		"downloads", "public", "archived_at", "created_at",
	})
}

func TestArchiveRepositoryListPublicOnly(t *testing.T) {
	db, mock, cleanup := newArchiveRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	rows := archiveRows().AddRow(
		"entry-1", "defense-1", "Détection d'anomalies réseau", "Awa Diop", "Pr. Ndiaye",
		2026, "M2", "Informatique", "BIEN", 15.5, "memoir.pdf", "résumé", "abstract",
		"réseaux", 3, true, testTime(), testTime())
	mock.ExpectQuery(regexp.QuoteMeta("FROM archive_entries WHERE public = TRUE")).
		WithArgs(2026).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM archive_entries")).
		WithArgs(2026).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.ArchiveFilter{
		PublicOnly: true,
		Year:       2026,
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, models.MentionBien, entries[0].Mention)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepositoryIncrementDownloads(t *testing.T) {
	db, mock, cleanup := newArchiveRepoMock(t)
	defer cleanup()

	repo := NewArchiveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE archive_entries SET downloads = downloads + 1")).
		WithArgs("entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementDownloads(context.Background(), "entry-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
