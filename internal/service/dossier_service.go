package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type dossierStore interface {
	FindByID(ctx context.Context, id string) (*models.Dossier, error)
	FindByStudent(ctx context.Context, studentID string) (*models.Dossier, error)
	Create(ctx context.Context, dossier *models.Dossier) error
	UpdateDocuments(ctx context.Context, dossier *models.Dossier) error
	SetAuthorization(ctx context.Context, dossierID string, authorized bool, authorizedAt *time.Time) error
	SetVerification(ctx context.Context, dossierID string, verification models.DossierVerification, comment string) error
	ListPendingReview(ctx context.Context) ([]models.Dossier, error)
}

type dossierStudentStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

type dossierAssignmentStore interface {
	FindConfirmedByStudent(ctx context.Context, studentID string) (*models.Assignment, error)
}

type dossierSupervisorStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error)
}

type documentWriter interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

type dossierNotifier interface {
	DossierVerified(name, email string, verification models.DossierVerification, comment string)
}

// DossierService manages the document package gating defense scheduling.
type DossierService struct {
	dossiers    dossierStore
	students    dossierStudentStore
	assignments dossierAssignmentStore
	supervisors dossierSupervisorStore
	documents   documentWriter
	notifier    dossierNotifier
	maxFileSize int64
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDossierService constructs the service.
func NewDossierService(
	dossiers dossierStore,
	students dossierStudentStore,
	assignments dossierAssignmentStore,
	supervisors dossierSupervisorStore,
	documents documentWriter,
	notifier dossierNotifier,
	maxFileSize int64,
	validate *validator.Validate,
	logger *zap.Logger,
) *DossierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DossierService{
		dossiers:    dossiers,
		students:    students,
		assignments: assignments,
		supervisors: supervisors,
		documents:   documents,
		notifier:    notifier,
		maxFileSize: maxFileSize,
		validator:   validate,
		logger:      logger,
	}
}

// UploadDocument stores one of the five required documents for the calling
// student, creating the dossier on first upload. When the fifth document
// lands the dossier flips to complete and the submission time is stamped.
func (s *DossierService) UploadDocument(ctx context.Context, userID string, kind dto.DocumentKind, filename string, size int64, file io.Reader) (*models.Dossier, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document kind")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF documents are accepted")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	assignment, err := s.assignments.FindConfirmedByStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "no confirmed assignment to attach documents to")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	dossier, err := s.dossiers.FindByStudent(ctx, student.ID)
	if errors.Is(err, sql.ErrNoRows) {
		dossier = &models.Dossier{StudentID: student.ID, AssignmentID: assignment.ID}
		if err := s.dossiers.Create(ctx, dossier); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create dossier")
		}
	} else if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dossier")
	}

	stored, err := s.documents.SaveStream(fmt.Sprintf("dossiers/%s/%s%s", student.ID, kind, ext), file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	switch kind {
	case dto.DocumentMemoir:
		dossier.MemoirPDF = stored
	case dto.DocumentAbstractFR:
		dossier.AbstractFR = stored
	case dto.DocumentAbstractEN:
		dossier.AbstractEN = stored
	case dto.DocumentPlagiarismReport:
		dossier.PlagiarismReport = stored
	case dto.DocumentSupervisorEvaluation:
		dossier.SupervisorEvaluation = stored
	}

	wasComplete := dossier.Complete
	dossier.Complete = dossier.AllDocumentsPresent()
	if dossier.Complete && !wasComplete {
		now := time.Now().UTC()
		dossier.SubmittedAt = &now
		dossier.Verification = models.DossierPendingReview
	}
	if err := s.dossiers.UpdateDocuments(ctx, dossier); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update dossier")
	}

	if dossier.Complete && !wasComplete {
		if err := s.students.UpdateStatus(ctx, student.ID, models.StudentDossierSubmitted); err != nil {
			s.logger.Warn("failed to update student status", zap.Error(err))
		}
		s.logger.Info("dossier completed", zap.String("dossier_id", dossier.ID), zap.String("student_id", student.ID))
	}
	return dossier, nil
}

// Authorize records the supervisor's go or no-go for the defense. Only the
// supervising faculty member of the dossier's assignment may decide, and only
// once every required document is present.
func (s *DossierService) Authorize(ctx context.Context, userID, dossierID string, req dto.AuthorizeDefenseRequest) (*models.Dossier, error) {
	dossier, err := s.dossiers.FindByID(ctx, dossierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "dossier not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dossier")
	}

	supervisor, err := s.supervisors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a supervisor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	assignment, err := s.assignments.FindConfirmedByStudent(ctx, dossier.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.SupervisorID != supervisor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the supervising faculty member can authorize")
	}
	if req.Authorize && !dossier.Complete {
		return nil, appErrors.ErrDossierIncomplete
	}

	var authorizedAt *time.Time
	if req.Authorize {
		now := time.Now().UTC()
		authorizedAt = &now
	}
	if err := s.dossiers.SetAuthorization(ctx, dossierID, req.Authorize, authorizedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record authorization")
	}

	if req.Authorize {
		if err := s.students.UpdateStatus(ctx, dossier.StudentID, models.StudentAuthorized); err != nil {
			s.logger.Warn("failed to update student status", zap.Error(err))
		}
	}
	dossier.Authorized = req.Authorize
	dossier.AuthorizedAt = authorizedAt
	s.logger.Info("defense authorization recorded",
		zap.String("dossier_id", dossierID),
		zap.Bool("authorized", req.Authorize))
	return dossier, nil
}

// Verify records the administrative review outcome and notifies the student.
func (s *DossierService) Verify(ctx context.Context, dossierID string, req dto.VerifyDossierRequest) (*models.Dossier, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}

	dossier, err := s.dossiers.FindByID(ctx, dossierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "dossier not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dossier")
	}

	if err := s.dossiers.SetVerification(ctx, dossierID, req.Verification, req.Comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record verification")
	}
	dossier.Verification = req.Verification
	dossier.AdminComment = req.Comment

	if s.notifier != nil {
		if student, err := s.students.FindDetailByID(ctx, dossier.StudentID); err == nil {
			s.notifier.DossierVerified(student.FullName, student.Email, req.Verification, req.Comment)
		} else {
			s.logger.Warn("failed to load student for notification", zap.Error(err))
		}
	}
	return dossier, nil
}

// GetMine returns the calling student's dossier.
func (s *DossierService) GetMine(ctx context.Context, userID string) (*models.Dossier, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	dossier, err := s.dossiers.FindByStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no dossier yet")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dossier")
	}
	return dossier, nil
}

// ListPendingReview returns complete dossiers awaiting administrative review.
func (s *DossierService) ListPendingReview(ctx context.Context) ([]models.Dossier, error) {
	dossiers, err := s.dossiers.ListPendingReview(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list dossiers")
	}
	return dossiers, nil
}
