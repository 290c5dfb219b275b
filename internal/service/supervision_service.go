package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type supervisionStore interface {
	FindByID(ctx context.Context, id string) (*models.SupervisionSession, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.SupervisionSession, error)
	Create(ctx context.Context, session *models.SupervisionSession) error
	Update(ctx context.Context, session *models.SupervisionSession) error
	Delete(ctx context.Context, id string) error
}

type supervisionAssignmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type supervisionSupervisorStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error)
}

type supervisionStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error
}

// SupervisionService logs meetings between supervisors and their students.
type SupervisionService struct {
	sessions    supervisionStore
	assignments supervisionAssignmentStore
	supervisors supervisionSupervisorStore
	students    supervisionStudentStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSupervisionService constructs the service.
func NewSupervisionService(
	sessions supervisionStore,
	assignments supervisionAssignmentStore,
	supervisors supervisionSupervisorStore,
	students supervisionStudentStore,
	validate *validator.Validate,
	logger *zap.Logger,
) *SupervisionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SupervisionService{
		sessions:    sessions,
		assignments: assignments,
		supervisors: supervisors,
		students:    students,
		validator:   validate,
		logger:      logger,
	}
}

// ownedAssignment loads the assignment and checks the caller supervises it.
func (s *SupervisionService) ownedAssignment(ctx context.Context, userID, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	if assignment.Status != models.AssignmentConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is not confirmed")
	}

	supervisor, err := s.supervisors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a supervisor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	if assignment.SupervisorID != supervisor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another supervisor")
	}
	return assignment, nil
}

// LogSession records one supervision meeting. The first session moves the
// student into the under-supervision state.
func (s *SupervisionService) LogSession(ctx context.Context, userID, assignmentID string, req dto.LogSessionRequest) (*models.SupervisionSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	assignment, err := s.ownedAssignment(ctx, userID, assignmentID)
	if err != nil {
		return nil, err
	}

	session := &models.SupervisionSession{
		AssignmentID: assignmentID,
		HeldAt:       req.HeldAt,
		DurationMins: req.DurationMins,
		Subject:      req.Subject,
		Notes:        req.Notes,
		NextSteps:    req.NextSteps,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log session")
	}

	student, err := s.students.FindByID(ctx, assignment.StudentID)
	if err == nil && student.Status == models.StudentAssigned {
		if err := s.students.UpdateStatus(ctx, student.ID, models.StudentUnderSupervision); err != nil {
			s.logger.Warn("failed to update student status", zap.Error(err))
		}
	}

	s.logger.Info("supervision session logged",
		zap.String("session_id", session.ID),
		zap.String("assignment_id", assignmentID))
	return session, nil
}

// UpdateSession rewrites a logged session's fields.
func (s *SupervisionService) UpdateSession(ctx context.Context, userID, sessionID string, req dto.LogSessionRequest) (*models.SupervisionSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.ownedAssignment(ctx, userID, session.AssignmentID); err != nil {
		return nil, err
	}

	session.HeldAt = req.HeldAt
	session.DurationMins = req.DurationMins
	session.Subject = req.Subject
	session.Notes = req.Notes
	session.NextSteps = req.NextSteps
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// DeleteSession removes a logged session.
func (s *SupervisionService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.ownedAssignment(ctx, userID, session.AssignmentID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

// ListByAssignment returns the meeting history for an assignment.
func (s *SupervisionService) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SupervisionSession, error) {
	sessions, err := s.sessions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}
