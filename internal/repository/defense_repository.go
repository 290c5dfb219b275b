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

// DefenseRepository drives the defense state machine. Scheduling and
// finalization are transactional: scheduling verifies the dossier gate and
// jury slot overlap under locks, finalization writes the archive entry in the
// same transaction that closes the session, so a completed defense without an
// archive row cannot exist.
type DefenseRepository struct {
	db *sqlx.DB
}

// NewDefenseRepository constructs the repository.
func NewDefenseRepository(db *sqlx.DB) *DefenseRepository {
	return &DefenseRepository{db: db}
}

const defenseColumns = `id, student_id, jury_id, dossier_id, scheduled_at, room, duration_mins, status,
        president_score, reporter_score, examiner_score, supervisor_score, final_score,
        mention, appreciation, recommendations, deliberated_at, created_at, updated_at`

// FindByID returns a defense by ID.
func (r *DefenseRepository) FindByID(ctx context.Context, id string) (*models.Defense, error) {
	query := fmt.Sprintf(`SELECT %s FROM defenses WHERE id = $1`, defenseColumns)
	var defense models.Defense
	if err := r.db.GetContext(ctx, &defense, query, id); err != nil {
		return nil, err
	}
	return &defense, nil
}

// FindDetailByID returns a defense with student, jury and topic context.
func (r *DefenseRepository) FindDetailByID(ctx context.Context, id string) (*models.DefenseDetail, error) {
	const query = `SELECT d.id, d.student_id, d.jury_id, d.dossier_id, d.scheduled_at, d.room, d.duration_mins, d.status,
        d.president_score, d.reporter_score, d.examiner_score, d.supervisor_score, d.final_score,
        d.mention, d.appreciation, d.recommendations, d.deliberated_at, d.created_at, d.updated_at,
        su.full_name AS student_name, j.name AS jury_name, t.title AS topic_title
        FROM defenses d
        JOIN students s ON s.id = d.student_id
        JOIN users su ON su.id = s.user_id
        JOIN juries j ON j.id = d.jury_id
        JOIN assignments a ON a.student_id = d.student_id AND a.status = 'CONFIRMED'
        JOIN topics t ON t.id = a.topic_id
        WHERE d.id = $1`
	var detail models.DefenseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns defenses matching the filter.
func (r *DefenseRepository) List(ctx context.Context, filter models.DefenseFilter) ([]models.DefenseDetail, int, error) {
	base := `FROM defenses d
JOIN students s ON s.id = d.student_id
JOIN users su ON su.id = s.user_id
JOIN juries j ON j.id = d.jury_id
JOIN assignments a ON a.student_id = d.student_id AND a.status = 'CONFIRMED'
JOIN topics t ON t.id = a.topic_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.JuryID != "" {
		conditions = append(conditions, fmt.Sprintf("d.jury_id = $%d", len(args)+1))
		args = append(args, filter.JuryID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("d.scheduled_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("d.scheduled_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(su.full_name ILIKE $%d OR t.title ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{"scheduled_at": "d.scheduled_at", "created_at": "d.created_at"}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "d.scheduled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT d.id, d.student_id, d.jury_id, d.dossier_id, d.scheduled_at, d.room, d.duration_mins, d.status,
        d.president_score, d.reporter_score, d.examiner_score, d.supervisor_score, d.final_score,
        d.mention, d.appreciation, d.recommendations, d.deliberated_at, d.created_at, d.updated_at,
        su.full_name AS student_name, j.name AS jury_name, t.title AS topic_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)
	var defenses []models.DefenseDetail
	if err := r.db.SelectContext(ctx, &defenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list defenses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count defenses: %w", err)
	}
	return defenses, total, nil
}

// ListActiveByJury returns scheduled or running defenses for a jury.
func (r *DefenseRepository) ListActiveByJury(ctx context.Context, juryID string) ([]models.Defense, error) {
	query := fmt.Sprintf(`SELECT %s FROM defenses WHERE jury_id = $1 AND status IN ($2, $3) ORDER BY scheduled_at`, defenseColumns)
	var defenses []models.Defense
	if err := r.db.SelectContext(ctx, &defenses, query, juryID, models.DefenseScheduled, models.DefenseInProgress); err != nil {
		return nil, fmt.Errorf("list active defenses: %w", err)
	}
	return defenses, nil
}

// Schedule creates a defense after verifying, inside one transaction, that the
// dossier is complete and authorized, the student has no other active session,
// and the jury has no overlapping slot.
func (r *DefenseRepository) Schedule(ctx context.Context, defense *models.Defense) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var dossier models.Dossier
	query := fmt.Sprintf(`SELECT %s FROM dossiers WHERE id = $1 FOR UPDATE`, dossierColumns)
	if err := tx.GetContext(ctx, &dossier, query, defense.DossierID); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return fmt.Errorf("lock dossier: %w", err)
	}
	if !dossier.ReadyForDefense() {
		return errors.ErrDossierIncomplete
	}

	var one int
	err = tx.GetContext(ctx, &one,
		`SELECT 1 FROM defenses WHERE student_id = $1 AND status IN ($2, $3) LIMIT 1`,
		defense.StudentID, models.DefenseScheduled, models.DefenseInProgress)
	if err == nil {
		return errors.Clone(errors.ErrConflict, "student already has an active defense")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check active defense: %w", err)
	}

	endsAt := defense.EndsAt()
	err = tx.GetContext(ctx, &one,
		`SELECT 1 FROM defenses WHERE jury_id = $1 AND status IN ($2, $3)
            AND scheduled_at < $4 AND scheduled_at + (duration_mins * interval '1 minute') > $5 LIMIT 1`,
		defense.JuryID, models.DefenseScheduled, models.DefenseInProgress, endsAt, defense.ScheduledAt)
	if err == nil {
		return errors.Clone(errors.ErrConflict, "jury slot overlaps an existing defense")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check jury slot overlap: %w", err)
	}

	now := time.Now().UTC()
	if defense.ID == "" {
		defense.ID = uuid.NewString()
	}
	defense.Status = models.DefenseScheduled
	defense.CreatedAt = now
	defense.UpdatedAt = now
	const insert = `INSERT INTO defenses (id, student_id, jury_id, dossier_id, scheduled_at, room, duration_mins, status, created_at, updated_at)
        VALUES (:id, :student_id, :jury_id, :dossier_id, :scheduled_at, :room, :duration_mins, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, defense); err != nil {
		return fmt.Errorf("insert defense: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE juries SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		defense.JuryID, models.JuryActive, now, models.JuryFormed); err != nil {
		return fmt.Errorf("activate jury: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`,
		defense.StudentID, models.StudentDefenseScheduled, now); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit defense: %w", err)
	}
	return nil
}

// Start moves a scheduled defense into the running state.
func (r *DefenseRepository) Start(ctx context.Context, defenseID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE defenses SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		defenseID, models.DefenseInProgress, time.Now().UTC(), models.DefenseScheduled)
	if err != nil {
		return fmt.Errorf("start defense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Clone(errors.ErrConflict, "defense is not in a startable state")
	}
	return nil
}

var roleScoreColumns = map[models.JuryRole]string{
	models.RolePresident:          "president_score",
	models.RoleReporter:           "reporter_score",
	models.RoleExaminer:           "examiner_score",
	models.RoleSupervisorExaminer: "supervisor_score",
}

// SetRoleScore records one role's score. Scores on completed defenses are
// rejected; resubmission before finalization overwrites. Once all four role
// scores are present the mean is recomputed and stored as final_score in the
// same transaction, so final_score is populated exactly when quorum holds,
// with or without a deliberation.
func (r *DefenseRepository) SetRoleScore(ctx context.Context, defenseID string, role models.JuryRole, score float64) error {
	column, ok := roleScoreColumns[role]
	if !ok {
		return errors.Clone(errors.ErrValidation, "unknown grading role")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE defenses SET %s = $2, updated_at = $3 WHERE id = $1 AND status IN ($4, $5)`, column)
	result, err := tx.ExecContext(ctx, query, defenseID, score, now,
		models.DefenseScheduled, models.DefenseInProgress)
	if err != nil {
		return fmt.Errorf("set role score: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Clone(errors.ErrConflict, "defense does not accept scores in its current state")
	}

	var defense models.Defense
	if err := tx.GetContext(ctx, &defense,
		`SELECT president_score, reporter_score, examiner_score, supervisor_score FROM defenses WHERE id = $1`,
		defenseID); err != nil {
		return fmt.Errorf("reload role scores: %w", err)
	}
	if finalScore, ok := defense.ComputeFinalScore(); ok {
		if _, err := tx.ExecContext(ctx,
			`UPDATE defenses SET final_score = $2, updated_at = $3 WHERE id = $1`,
			defenseID, finalScore, now); err != nil {
			return fmt.Errorf("persist final score: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role score: %w", err)
	}
	return nil
}

// FinalizeInput carries the deliberation outcome and the catalog metadata for
// the archive entry written alongside it.
type FinalizeInput struct {
	Appreciation    string
	Recommendations string
	Keywords        string
	Public          bool
}

// Finalize closes a defense. In one transaction it verifies score quorum,
// computes the final score and mention, marks the session completed, creates
// the archive entry from the dossier and assignment context, releases the
// jury members and moves the student to the archived state.
func (r *DefenseRepository) Finalize(ctx context.Context, defenseID string, input FinalizeInput) (*models.Defense, *models.ArchiveEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var defense models.Defense
	query := fmt.Sprintf(`SELECT %s FROM defenses WHERE id = $1 FOR UPDATE`, defenseColumns)
	if err := tx.GetContext(ctx, &defense, query, defenseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, errors.ErrNotFound
		}
		return nil, nil, fmt.Errorf("lock defense: %w", err)
	}
	if defense.Status == models.DefenseCompleted {
		return nil, nil, errors.Clone(errors.ErrConflict, "defense is already completed")
	}
	finalScore, ok := defense.ComputeFinalScore()
	if !ok {
		return nil, nil, errors.ErrAllNotesRequired
	}
	mention := models.MentionForScore(finalScore)

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE defenses SET status = $2, final_score = $3, mention = $4, appreciation = $5,
            recommendations = $6, deliberated_at = $7, updated_at = $7 WHERE id = $1`,
		defenseID, models.DefenseCompleted, finalScore, mention,
		input.Appreciation, input.Recommendations, now); err != nil {
		return nil, nil, fmt.Errorf("complete defense: %w", err)
	}

	var meta struct {
		Title          string              `db:"title"`
		StudentName    string              `db:"student_name"`
		SupervisorName string              `db:"supervisor_name"`
		Level          models.AcademicLevel `db:"level"`
		Program        string              `db:"program"`
		MemoirFile     string              `db:"memoir_file"`
		AbstractFR     string              `db:"abstract_fr"`
		AbstractEN     string              `db:"abstract_en"`
	}
	const metaQuery = `SELECT t.title, su.full_name AS student_name, eu.full_name AS supervisor_name,
        s.level, s.program, ds.memoir_pdf AS memoir_file, ds.abstract_fr, ds.abstract_en
        FROM defenses d
        JOIN students s ON s.id = d.student_id
        JOIN users su ON su.id = s.user_id
        JOIN assignments a ON a.student_id = d.student_id AND a.status = 'CONFIRMED'
        JOIN topics t ON t.id = a.topic_id
        JOIN supervisors e ON e.id = a.supervisor_id
        JOIN users eu ON eu.id = e.user_id
        JOIN dossiers ds ON ds.id = d.dossier_id
        WHERE d.id = $1`
	if err := tx.GetContext(ctx, &meta, metaQuery, defenseID); err != nil {
		return nil, nil, fmt.Errorf("load archive metadata: %w", err)
	}

	entry := &models.ArchiveEntry{
		ID:             uuid.NewString(),
		DefenseID:      defenseID,
		Title:          meta.Title,
		StudentName:    meta.StudentName,
		SupervisorName: meta.SupervisorName,
		Year:           now.Year(),
		Level:          meta.Level,
		Program:        meta.Program,
		Mention:        mention,
		FinalScore:     finalScore,
		MemoirFile:     meta.MemoirFile,
		AbstractFR:     meta.AbstractFR,
		AbstractEN:     meta.AbstractEN,
		Keywords:       input.Keywords,
		Public:         input.Public,
		ArchivedAt:     now,
		CreatedAt:      now,
	}
	const insertEntry = `INSERT INTO archive_entries (id, defense_id, title, student_name, supervisor_name, year, level,
        program, mention, final_score, memoir_file, abstract_fr, abstract_en, keywords, downloads, public, archived_at, created_at)
        VALUES (:id, :defense_id, :title, :student_name, :supervisor_name, :year, :level,
        :program, :mention, :final_score, :memoir_file, :abstract_fr, :abstract_en, :keywords, 0, :public, :archived_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertEntry, entry); err != nil {
		return nil, nil, fmt.Errorf("insert archive entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jury_members SET availability = $2, updated_at = $3
            WHERE id IN (SELECT president_id FROM juries WHERE id = $1
                UNION SELECT reporter_id FROM juries WHERE id = $1
                UNION SELECT examiner_id FROM juries WHERE id = $1)
            AND NOT EXISTS (SELECT 1 FROM defenses WHERE jury_id = $1 AND status IN ($4, $5))`,
		defense.JuryID, models.MemberAvailable, now,
		models.DefenseScheduled, models.DefenseInProgress); err != nil {
		return nil, nil, fmt.Errorf("release jury members: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`,
		defense.StudentID, models.StudentArchived, now); err != nil {
		return nil, nil, fmt.Errorf("update student status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit finalization: %w", err)
	}

	defense.Status = models.DefenseCompleted
	defense.FinalScore = &finalScore
	defense.Mention = &mention
	defense.Appreciation = input.Appreciation
	defense.Recommendations = input.Recommendations
	defense.DeliberatedAt = &now
	defense.UpdatedAt = now
	return &defense, entry, nil
}

// Postpone moves a scheduled or running defense back to a reschedulable state
// without touching scores or the jury reservation.
func (r *DefenseRepository) Postpone(ctx context.Context, defenseID, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE defenses SET status = $2, recommendations = $3, updated_at = $4 WHERE id = $1 AND status IN ($5, $6)`,
		defenseID, models.DefensePostponed, reason, time.Now().UTC(),
		models.DefenseScheduled, models.DefenseInProgress)
	if err != nil {
		return fmt.Errorf("postpone defense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Clone(errors.ErrConflict, "defense cannot be postponed in its current state")
	}
	return nil
}

// Reschedule moves a postponed defense back onto the calendar.
func (r *DefenseRepository) Reschedule(ctx context.Context, defenseID string, scheduledAt time.Time, room string, durationMins int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var defense models.Defense
	query := fmt.Sprintf(`SELECT %s FROM defenses WHERE id = $1 FOR UPDATE`, defenseColumns)
	if err := tx.GetContext(ctx, &defense, query, defenseID); err != nil {
		if err == sql.ErrNoRows {
			return errors.ErrNotFound
		}
		return fmt.Errorf("lock defense: %w", err)
	}
	if defense.Status != models.DefensePostponed {
		return errors.Clone(errors.ErrConflict, "only postponed defenses can be rescheduled")
	}

	endsAt := scheduledAt.Add(time.Duration(durationMins) * time.Minute)
	var one int
	err = tx.GetContext(ctx, &one,
		`SELECT 1 FROM defenses WHERE jury_id = $1 AND id <> $2 AND status IN ($3, $4)
            AND scheduled_at < $5 AND scheduled_at + (duration_mins * interval '1 minute') > $6 LIMIT 1`,
		defense.JuryID, defenseID, models.DefenseScheduled, models.DefenseInProgress, endsAt, scheduledAt)
	if err == nil {
		return errors.Clone(errors.ErrConflict, "jury slot overlaps an existing defense")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check jury slot overlap: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE defenses SET status = $2, scheduled_at = $3, room = $4, duration_mins = $5, updated_at = $6 WHERE id = $1`,
		defenseID, models.DefenseScheduled, scheduledAt, room, durationMins, time.Now().UTC()); err != nil {
		return fmt.Errorf("reschedule defense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reschedule: %w", err)
	}
	return nil
}
