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

type allocationStore interface {
	ConfirmManual(ctx context.Context, studentID, topicID, supervisorID, comment string) (*models.Assignment, error)
	AutoAssign(ctx context.Context) (*models.AllocationResult, error)
	Reassign(ctx context.Context, assignmentID, newTopicID, newSupervisorID, comment string) (*models.Assignment, error)
	Remove(ctx context.Context, assignmentID string) error
}

type allocationAssignmentStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
}

type allocationTopicStore interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

type allocationStudentStore interface {
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type allocationNotifier interface {
	AssignmentConfirmed(name, email, topicTitle string)
}

type allocationMetrics interface {
	RecordAssignmentConfirmed()
}

// AllocationService orchestrates manual and automatic topic allocation. The
// capacity arithmetic lives in the repository transactions; this layer
// resolves inputs, triggers notifications and shapes responses.
type AllocationService struct {
	allocations allocationStore
	assignments allocationAssignmentStore
	topics      allocationTopicStore
	students    allocationStudentStore
	notifier    allocationNotifier
	metrics     allocationMetrics
	validator   *validator.Validate
	logger      *zap.Logger
}

// WithMetrics attaches an instrumentation sink.
func (s *AllocationService) WithMetrics(metrics allocationMetrics) *AllocationService {
	s.metrics = metrics
	return s
}

// NewAllocationService constructs the service.
func NewAllocationService(
	allocations allocationStore,
	assignments allocationAssignmentStore,
	topics allocationTopicStore,
	students allocationStudentStore,
	notifier allocationNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AllocationService{
		allocations: allocations,
		assignments: assignments,
		topics:      topics,
		students:    students,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
	}
}

// Assign confirms one student onto a topic. The supervisor is the topic's
// proposer; the topic must be approved with a free seat and the supervisor
// must have free load, all verified under lock in the repository.
func (s *AllocationService) Assign(ctx context.Context, req dto.ManualAssignRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	topic, err := s.topics.FindByID(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}

	assignment, err := s.allocations.ConfirmManual(ctx, req.StudentID, req.TopicID, topic.SupervisorID, req.Comment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment confirmed",
		zap.String("assignment_id", assignment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("topic_id", req.TopicID))
	s.notifyConfirmed(ctx, req.StudentID, topic.Title)
	return assignment, nil
}

// RunAutoAllocation executes the automatic batch and notifies every student
// it placed. Conflicts are part of the result, not errors.
func (s *AllocationService) RunAutoAllocation(ctx context.Context) (*models.AllocationResult, error) {
	result, err := s.allocations.AutoAssign(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "automatic allocation failed")
	}

	s.logger.Info("automatic allocation completed",
		zap.Int("assigned", len(result.Assigned)),
		zap.Int("conflicts", len(result.Conflicts)))

	for _, assignment := range result.Assigned {
		topic, err := s.topics.FindByID(ctx, assignment.TopicID)
		if err != nil {
			s.logger.Warn("failed to load topic for notification", zap.Error(err))
			continue
		}
		s.notifyConfirmed(ctx, assignment.StudentID, topic.Title)
	}
	return result, nil
}

// Reassign moves a confirmed assignment onto a new topic.
func (s *AllocationService) Reassign(ctx context.Context, assignmentID string, req dto.ReassignRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reassignment payload")
	}

	topic, err := s.topics.FindByID(ctx, req.TopicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}

	assignment, err := s.allocations.Reassign(ctx, assignmentID, req.TopicID, topic.SupervisorID, req.Comment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment moved",
		zap.String("assignment_id", assignmentID),
		zap.String("topic_id", req.TopicID))
	s.notifyConfirmed(ctx, assignment.StudentID, topic.Title)
	return assignment, nil
}

// Remove deletes a confirmed assignment and returns the student to the
// choosing state. Assignments with supervision history cannot be removed.
func (s *AllocationService) Remove(ctx context.Context, assignmentID string) error {
	if err := s.allocations.Remove(ctx, assignmentID); err != nil {
		return err
	}
	s.logger.Info("assignment removed", zap.String("assignment_id", assignmentID))
	return nil
}

// Get returns one assignment with display names.
func (s *AllocationService) Get(ctx context.Context, assignmentID string) (*models.AssignmentDetail, error) {
	detail, err := s.assignments.FindDetailByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return detail, nil
}

// List returns assignments matching the query.
func (s *AllocationService) List(ctx context.Context, query dto.AssignmentQuery) ([]models.AssignmentDetail, *models.Pagination, error) {
	filter := models.AssignmentFilter{
		Status:       query.Status,
		SupervisorID: query.SupervisorID,
		Level:        query.Level,
		Search:       query.Search,
		Page:         query.Page,
		PageSize:     query.PageSize,
		SortBy:       query.SortBy,
		SortOrder:    query.SortOrder,
	}
	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *AllocationService) notifyConfirmed(ctx context.Context, studentID, topicTitle string) {
	if s.metrics != nil {
		s.metrics.RecordAssignmentConfirmed()
	}
	if s.notifier == nil {
		return
	}
	student, err := s.students.FindDetailByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load student for notification", zap.Error(err))
		return
	}
	s.notifier.AssignmentConfirmed(student.FullName, student.Email, topicTitle)
}
