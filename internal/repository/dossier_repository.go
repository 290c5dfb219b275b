package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// DossierRepository persists defense dossiers and their document paths.
type DossierRepository struct {
	db *sqlx.DB
}

// NewDossierRepository constructs the repository.
func NewDossierRepository(db *sqlx.DB) *DossierRepository {
	return &DossierRepository{db: db}
}

const dossierColumns = `id, student_id, assignment_id, memoir_pdf, abstract_fr, abstract_en, plagiarism_report,
        supervisor_evaluation, complete, authorized, authorized_at, submitted_at, verification, admin_comment,
        created_at, updated_at`

// FindByID returns a dossier by ID.
func (r *DossierRepository) FindByID(ctx context.Context, id string) (*models.Dossier, error) {
	query := fmt.Sprintf(`SELECT %s FROM dossiers WHERE id = $1`, dossierColumns)
	var dossier models.Dossier
	if err := r.db.GetContext(ctx, &dossier, query, id); err != nil {
		return nil, err
	}
	return &dossier, nil
}

// FindByStudent returns the student's dossier, if any.
func (r *DossierRepository) FindByStudent(ctx context.Context, studentID string) (*models.Dossier, error) {
	query := fmt.Sprintf(`SELECT %s FROM dossiers WHERE student_id = $1`, dossierColumns)
	var dossier models.Dossier
	if err := r.db.GetContext(ctx, &dossier, query, studentID); err != nil {
		return nil, err
	}
	return &dossier, nil
}

// Create inserts a fresh dossier shell for an assignment.
func (r *DossierRepository) Create(ctx context.Context, dossier *models.Dossier) error {
	if dossier.ID == "" {
		dossier.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	dossier.Verification = models.DossierPendingReview
	dossier.CreatedAt = now
	dossier.UpdatedAt = now
	const query = `INSERT INTO dossiers (id, student_id, assignment_id, memoir_pdf, abstract_fr, abstract_en,
        plagiarism_report, supervisor_evaluation, complete, authorized, verification, admin_comment, created_at, updated_at)
        VALUES (:id, :student_id, :assignment_id, :memoir_pdf, :abstract_fr, :abstract_en,
        :plagiarism_report, :supervisor_evaluation, :complete, :authorized, :verification, :admin_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dossier); err != nil {
		return fmt.Errorf("insert dossier: %w", err)
	}
	return nil
}

// UpdateDocuments rewrites the document paths and the derived completeness
// flag, stamping the submission time when the dossier first becomes complete.
func (r *DossierRepository) UpdateDocuments(ctx context.Context, dossier *models.Dossier) error {
	dossier.UpdatedAt = time.Now().UTC()
	const query = `UPDATE dossiers SET memoir_pdf = :memoir_pdf, abstract_fr = :abstract_fr, abstract_en = :abstract_en,
        plagiarism_report = :plagiarism_report, supervisor_evaluation = :supervisor_evaluation,
        complete = :complete, submitted_at = :submitted_at, verification = :verification, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, dossier); err != nil {
		return fmt.Errorf("update dossier documents: %w", err)
	}
	return nil
}

// SetAuthorization records the supervisor's defense authorization decision.
func (r *DossierRepository) SetAuthorization(ctx context.Context, dossierID string, authorized bool, authorizedAt *time.Time) error {
	const query = `UPDATE dossiers SET authorized = $2, authorized_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, dossierID, authorized, authorizedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("set dossier authorization: %w", err)
	}
	return nil
}

// SetVerification records the administrative review outcome.
func (r *DossierRepository) SetVerification(ctx context.Context, dossierID string, verification models.DossierVerification, comment string) error {
	const query = `UPDATE dossiers SET verification = $2, admin_comment = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, dossierID, verification, comment, time.Now().UTC()); err != nil {
		return fmt.Errorf("set dossier verification: %w", err)
	}
	return nil
}

// ListPendingReview returns complete dossiers awaiting administrative review.
func (r *DossierRepository) ListPendingReview(ctx context.Context) ([]models.Dossier, error) {
	query := fmt.Sprintf(`SELECT %s FROM dossiers WHERE complete = TRUE AND verification = $1 ORDER BY submitted_at`, dossierColumns)
	var dossiers []models.Dossier
	if err := r.db.SelectContext(ctx, &dossiers, query, models.DossierPendingReview); err != nil {
		return nil, fmt.Errorf("list dossiers pending review: %w", err)
	}
	return dossiers, nil
}
