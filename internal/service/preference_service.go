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

type preferenceStore interface {
	ListPendingByStudent(ctx context.Context, studentID string) ([]models.Assignment, error)
	FindConfirmedByStudent(ctx context.Context, studentID string) (*models.Assignment, error)
	ReplacePreferences(ctx context.Context, studentID string, prefs []models.Assignment) error
}

type preferenceStudentStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type preferenceTopicStore interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

// PreferenceService records students' ranked topic choices.
type PreferenceService struct {
	assignments preferenceStore
	students    preferenceStudentStore
	topics      preferenceTopicStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewPreferenceService constructs the service.
func NewPreferenceService(assignments preferenceStore, students preferenceStudentStore, topics preferenceTopicStore, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PreferenceService{assignments: assignments, students: students, topics: topics, validator: validate, logger: logger}
}

// ChooseTopics replaces the calling student's ranked preference set. Position
// in the slice is the rank. Every topic must be approved, have a free seat
// and match the student's level; resubmission before confirmation replaces
// the previous set.
func (s *PreferenceService) ChooseTopics(ctx context.Context, userID string, req dto.ChooseTopicsRequest) ([]models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if _, err := s.assignments.FindConfirmedByStudent(ctx, student.ID); err == nil {
		return nil, appErrors.ErrAlreadyAssigned
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
	}

	prefs := make([]models.Assignment, 0, len(req.TopicIDs))
	for i, topicID := range req.TopicIDs {
		topic, err := s.topics.FindByID(ctx, topicID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
		}
		if topic.Status != models.TopicApproved {
			return nil, appErrors.ErrNotApproved
		}
		if topic.Level != student.Level {
			return nil, appErrors.Clone(appErrors.ErrValidation, "topic level does not match student level")
		}
		if !topic.HasFreeSeat() {
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "topic has no free seats")
		}
		prefs = append(prefs, models.Assignment{
			TopicID:      topic.ID,
			SupervisorID: topic.SupervisorID,
			Rank:         i + 1,
		})
	}

	if err := s.assignments.ReplacePreferences(ctx, student.ID, prefs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store preferences")
	}

	s.logger.Info("preferences recorded",
		zap.String("student_id", student.ID),
		zap.Int("count", len(prefs)))
	return prefs, nil
}

// ListMine returns the calling student's current preference set in rank order.
func (s *PreferenceService) ListMine(ctx context.Context, userID string) ([]models.Assignment, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	prefs, err := s.assignments.ListPendingByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list preferences")
	}
	return prefs, nil
}
