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

type topicStore interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
	FindDetailByID(ctx context.Context, id string) (*models.TopicDetail, error)
	List(ctx context.Context, filter models.TopicFilter) ([]models.TopicDetail, int, error)
	Create(ctx context.Context, topic *models.Topic) error
	Review(ctx context.Context, id string, status models.TopicStatus, note string) error
}

type topicSupervisorStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error)
}

// TopicService manages the topic proposal and review lifecycle.
type TopicService struct {
	topics      topicStore
	supervisors topicSupervisorStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTopicService constructs the service.
func NewTopicService(topics topicStore, supervisors topicSupervisorStore, validate *validator.Validate, logger *zap.Logger) *TopicService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TopicService{topics: topics, supervisors: supervisors, validator: validate, logger: logger}
}

// Propose creates a topic in the PROPOSED state for the calling supervisor.
func (s *TopicService) Propose(ctx context.Context, userID string, req dto.ProposeTopicRequest) (*models.Topic, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid topic payload")
	}

	supervisor, err := s.supervisors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "caller is not a supervisor")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}

	topic := &models.Topic{
		Title:        req.Title,
		Description:  req.Description,
		Keywords:     req.Keywords,
		Level:        req.Level,
		SupervisorID: supervisor.ID,
		Capacity:     req.Capacity,
		Status:       models.TopicProposed,
	}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create topic")
	}

	s.logger.Info("topic proposed",
		zap.String("topic_id", topic.ID),
		zap.String("supervisor_id", supervisor.ID),
		zap.String("level", string(topic.Level)))
	return topic, nil
}

// Review approves or rejects a proposed topic.
func (s *TopicService) Review(ctx context.Context, topicID string, req dto.ReviewTopicRequest) (*models.Topic, error) {
	topic, err := s.topics.FindByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	if topic.Status != models.TopicProposed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "topic has already been reviewed")
	}

	status := models.TopicRejected
	if req.Approve {
		status = models.TopicApproved
	}
	if err := s.topics.Review(ctx, topicID, status, req.Comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review topic")
	}

	topic.Status = status
	topic.ReviewNote = req.Comment
	s.logger.Info("topic reviewed", zap.String("topic_id", topicID), zap.String("status", string(status)))
	return topic, nil
}

// Get returns a topic with its supervisor's identity.
func (s *TopicService) Get(ctx context.Context, topicID string) (*models.TopicDetail, error) {
	detail, err := s.topics.FindDetailByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "topic not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	return detail, nil
}

// List returns topics matching the query.
func (s *TopicService) List(ctx context.Context, query dto.TopicQuery) ([]models.TopicDetail, *models.Pagination, error) {
	filter := models.TopicFilter{
		Status:       query.Status,
		Level:        query.Level,
		SupervisorID: query.SupervisorID,
		OnlyFree:     query.OnlyOpen,
		Search:       query.Search,
		Page:         query.Page,
		PageSize:     query.PageSize,
		SortBy:       query.SortBy,
		SortOrder:    query.SortOrder,
	}
	topics, total, err := s.topics.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list topics")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return topics, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListOpenForLevel returns approved topics with free seats for one level,
// the browsing view students pick preferences from.
func (s *TopicService) ListOpenForLevel(ctx context.Context, level models.AcademicLevel) ([]models.TopicDetail, error) {
	topics, _, err := s.topics.List(ctx, models.TopicFilter{
		Status:   models.TopicApproved,
		Level:    level,
		OnlyFree: true,
		PageSize: 100,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open topics")
	}
	return topics, nil
}
