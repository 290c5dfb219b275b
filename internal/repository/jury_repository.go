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
	"github.com/noah-isme/memoire-api/pkg/errors"
)

// JuryRepository owns jury panels and the availability reservations of their
// members. Creation, composition updates and dissolution run in transactions
// that lock the member rows they flip, so two juries cannot reserve the same
// member concurrently.
type JuryRepository struct {
	db *sqlx.DB
}

// NewJuryRepository constructs the repository.
func NewJuryRepository(db *sqlx.DB) *JuryRepository {
	return &JuryRepository{db: db}
}

const juryColumns = `id, name, president_id, reporter_id, examiner_id, supervisor_id, status, comment, created_at, updated_at`

const juryDetailSelect = `SELECT j.id, j.name, j.president_id, j.reporter_id, j.examiner_id, j.supervisor_id,
        j.status, j.comment, j.created_at, j.updated_at,
        pu.full_name AS president_name, ru.full_name AS reporter_name,
        xu.full_name AS examiner_name, eu.full_name AS supervisor_name
        FROM juries j
        JOIN jury_members p ON p.id = j.president_id JOIN users pu ON pu.id = p.user_id
        JOIN jury_members rp ON rp.id = j.reporter_id JOIN users ru ON ru.id = rp.user_id
        JOIN jury_members x ON x.id = j.examiner_id JOIN users xu ON xu.id = x.user_id
        JOIN supervisors e ON e.id = j.supervisor_id JOIN users eu ON eu.id = e.user_id`

// FindByID returns a jury by ID.
func (r *JuryRepository) FindByID(ctx context.Context, id string) (*models.Jury, error) {
	query := fmt.Sprintf(`SELECT %s FROM juries WHERE id = $1`, juryColumns)
	var jury models.Jury
	if err := r.db.GetContext(ctx, &jury, query, id); err != nil {
		return nil, err
	}
	return &jury, nil
}

// FindDetailByID returns a jury with member names.
func (r *JuryRepository) FindDetailByID(ctx context.Context, id string) (*models.JuryDetail, error) {
	query := juryDetailSelect + ` WHERE j.id = $1`
	var detail models.JuryDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns juries matching the filter.
func (r *JuryRepository) List(ctx context.Context, filter models.JuryFilter) ([]models.JuryDetail, int, error) {
	base := `FROM juries j
JOIN jury_members p ON p.id = j.president_id JOIN users pu ON pu.id = p.user_id
JOIN jury_members rp ON rp.id = j.reporter_id JOIN users ru ON ru.id = rp.user_id
JOIN jury_members x ON x.id = j.examiner_id JOIN users xu ON xu.id = x.user_id
JOIN supervisors e ON e.id = j.supervisor_id JOIN users eu ON eu.id = e.user_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(j.name ILIKE $%d OR pu.full_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{"created_at": "j.created_at", "name": "j.name"}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "j.created_at"
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

	query := fmt.Sprintf(`SELECT j.id, j.name, j.president_id, j.reporter_id, j.examiner_id, j.supervisor_id,
        j.status, j.comment, j.created_at, j.updated_at,
        pu.full_name AS president_name, ru.full_name AS reporter_name,
        xu.full_name AS examiner_name, eu.full_name AS supervisor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)
	var juries []models.JuryDetail
	if err := r.db.SelectContext(ctx, &juries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list juries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count juries: %w", err)
	}
	return juries, total, nil
}

// reserveMember locks a member row and flips it to reserved. Members already
// reserved fail the whole transaction.
func reserveMember(ctx context.Context, tx *sqlx.Tx, memberID string, now time.Time) error {
	var availability models.MemberAvailability
	err := tx.GetContext(ctx, &availability,
		`SELECT availability FROM jury_members WHERE id = $1 FOR UPDATE`, memberID)
	if err == sql.ErrNoRows {
		return errors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock jury member: %w", err)
	}
	if availability != models.MemberAvailable {
		return errors.ErrMemberUnavailable
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE jury_members SET availability = $2, updated_at = $3 WHERE id = $1`,
		memberID, models.MemberReserved, now); err != nil {
		return fmt.Errorf("reserve jury member: %w", err)
	}
	return nil
}

func releaseMember(ctx context.Context, tx *sqlx.Tx, memberID string, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE jury_members SET availability = $2, updated_at = $3 WHERE id = $1`,
		memberID, models.MemberAvailable, now); err != nil {
		return fmt.Errorf("release jury member: %w", err)
	}
	return nil
}

// Create forms a new jury and reserves its three pool members atomically.
func (r *JuryRepository) Create(ctx context.Context, jury *models.Jury) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, memberID := range jury.MemberIDs() {
		if err := reserveMember(ctx, tx, memberID, now); err != nil {
			return err
		}
	}

	if jury.ID == "" {
		jury.ID = uuid.NewString()
	}
	jury.Status = models.JuryFormed
	jury.CreatedAt = now
	jury.UpdatedAt = now
	const insert = `INSERT INTO juries (id, name, president_id, reporter_id, examiner_id, supervisor_id, status, comment, created_at, updated_at)
        VALUES (:id, :name, :president_id, :reporter_id, :examiner_id, :supervisor_id, :status, :comment, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, jury); err != nil {
		return fmt.Errorf("insert jury: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit jury: %w", err)
	}
	return nil
}

// UpdateComposition swaps jury members, releasing the outgoing ones and
// reserving the incoming ones in the same transaction. Juries with active
// defense sessions cannot be recomposed.
func (r *JuryRepository) UpdateComposition(ctx context.Context, juryID string, updated *models.Jury) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var current models.Jury
	query := fmt.Sprintf(`SELECT %s FROM juries WHERE id = $1 FOR UPDATE`, juryColumns)
	if err := tx.GetContext(ctx, &current, query, juryID); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return fmt.Errorf("lock jury: %w", err)
	}

	var active int
	err = tx.GetContext(ctx, &active,
		`SELECT 1 FROM defenses WHERE jury_id = $1 AND status IN ($2, $3) LIMIT 1`,
		juryID, models.DefenseScheduled, models.DefenseInProgress)
	if err == nil {
		return errors.ErrJuryLocked
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check active defenses: %w", err)
	}

	now := time.Now().UTC()
	incoming := map[string]bool{}
	for _, id := range updated.MemberIDs() {
		incoming[id] = true
	}
	for _, id := range current.MemberIDs() {
		if !incoming[id] {
			if err := releaseMember(ctx, tx, id, now); err != nil {
				return err
			}
		}
	}
	outgoing := map[string]bool{}
	for _, id := range current.MemberIDs() {
		outgoing[id] = true
	}
	for _, id := range updated.MemberIDs() {
		if !outgoing[id] {
			if err := reserveMember(ctx, tx, id, now); err != nil {
				return err
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE juries SET name = $2, president_id = $3, reporter_id = $4, examiner_id = $5, supervisor_id = $6, comment = $7, updated_at = $8 WHERE id = $1`,
		juryID, updated.Name, updated.PresidentID, updated.ReporterID, updated.ExaminerID, updated.SupervisorID, updated.Comment, now); err != nil {
		return fmt.Errorf("update jury: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit jury update: %w", err)
	}
	return nil
}

// Dissolve closes a jury and releases its members. Juries still holding
// scheduled or running defenses cannot be dissolved.
func (r *JuryRepository) Dissolve(ctx context.Context, juryID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var current models.Jury
	query := fmt.Sprintf(`SELECT %s FROM juries WHERE id = $1 FOR UPDATE`, juryColumns)
	if err := tx.GetContext(ctx, &current, query, juryID); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return fmt.Errorf("lock jury: %w", err)
	}
	if current.Status == models.JuryClosed {
		return errors.ErrConflict
	}

	var active int
	err = tx.GetContext(ctx, &active,
		`SELECT 1 FROM defenses WHERE jury_id = $1 AND status IN ($2, $3) LIMIT 1`,
		juryID, models.DefenseScheduled, models.DefenseInProgress)
	if err == nil {
		return errors.ErrJuryLocked
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check active defenses: %w", err)
	}

	now := time.Now().UTC()
	for _, id := range current.MemberIDs() {
		if err := releaseMember(ctx, tx, id, now); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE juries SET status = $2, updated_at = $3 WHERE id = $1`,
		juryID, models.JuryClosed, now); err != nil {
		return fmt.Errorf("close jury: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit jury dissolution: %w", err)
	}
	return nil
}
