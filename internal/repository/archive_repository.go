package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// ArchiveRepository reads the memoir catalog. Entries are written by defense
// finalization only; this repository never inserts.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

const archiveColumns = `id, defense_id, title, student_name, supervisor_name, year, level, program, mention,
        final_score, memoir_file, abstract_fr, abstract_en, keywords, downloads, public, archived_at, created_at`

// FindByID returns a catalog entry.
func (r *ArchiveRepository) FindByID(ctx context.Context, id string) (*models.ArchiveEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM archive_entries WHERE id = $1`, archiveColumns)
	var entry models.ArchiveEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByDefense returns the entry archived for a defense.
func (r *ArchiveRepository) FindByDefense(ctx context.Context, defenseID string) (*models.ArchiveEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM archive_entries WHERE defense_id = $1`, archiveColumns)
	var entry models.ArchiveEntry
	if err := r.db.GetContext(ctx, &entry, query, defenseID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns catalog entries matching the filter.
func (r *ArchiveRepository) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, int, error) {
	var conditions []string
	var args []interface{}

	if filter.PublicOnly {
		conditions = append(conditions, "public = TRUE")
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("program = $%d", len(args)+1))
		args = append(args, filter.Program)
	}
	if filter.Mention != "" {
		conditions = append(conditions, fmt.Sprintf("mention = $%d", len(args)+1))
		args = append(args, filter.Mention)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR student_name ILIKE $%d OR keywords ILIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"archived_at": "archived_at",
		"year":        "year",
		"downloads":   "downloads",
		"final_score": "final_score",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "archived_at"
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

	query := fmt.Sprintf(`SELECT %s FROM archive_entries%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		archiveColumns, clause, orderBy, order, size, offset)
	var entries []models.ArchiveEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list archive entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM archive_entries%s", clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count archive entries: %w", err)
	}
	return entries, total, nil
}

// IncrementDownloads bumps the download counter for an entry.
func (r *ArchiveRepository) IncrementDownloads(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE archive_entries SET downloads = downloads + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("increment downloads: %w", err)
	}
	return nil
}

// Years returns the distinct catalog years, newest first.
func (r *ArchiveRepository) Years(ctx context.Context) ([]int, error) {
	var years []int
	if err := r.db.SelectContext(ctx, &years,
		`SELECT DISTINCT year FROM archive_entries WHERE public = TRUE ORDER BY year DESC`); err != nil {
		return nil, fmt.Errorf("list archive years: %w", err)
	}
	return years, nil
}
