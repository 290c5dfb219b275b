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

type juryStore interface {
	FindByID(ctx context.Context, id string) (*models.Jury, error)
	FindDetailByID(ctx context.Context, id string) (*models.JuryDetail, error)
	List(ctx context.Context, filter models.JuryFilter) ([]models.JuryDetail, int, error)
	Create(ctx context.Context, jury *models.Jury) error
	UpdateComposition(ctx context.Context, juryID string, updated *models.Jury) error
	Dissolve(ctx context.Context, juryID string) error
}

type juryMemberStore interface {
	ListAvailable(ctx context.Context) ([]models.JuryMemberDetail, error)
	List(ctx context.Context, availability models.MemberAvailability, search string, page, pageSize int) ([]models.JuryMemberDetail, int, error)
}

type jurySupervisorStore interface {
	FindByID(ctx context.Context, id string) (*models.Supervisor, error)
}

// JuryService forms and manages defense panels.
type JuryService struct {
	juries      juryStore
	members     juryMemberStore
	supervisors jurySupervisorStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewJuryService constructs the service.
func NewJuryService(juries juryStore, members juryMemberStore, supervisors jurySupervisorStore, validate *validator.Validate, logger *zap.Logger) *JuryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JuryService{juries: juries, members: members, supervisors: supervisors, validator: validate, logger: logger}
}

// Form creates a jury. The three pool members must be pairwise distinct and
// available; the supervisor seat is held by the candidate's supervisor and is
// not drawn from the availability pool.
func (s *JuryService) Form(ctx context.Context, req dto.FormJuryRequest) (*models.Jury, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid jury payload")
	}
	if req.PresidentID == req.ReporterID || req.PresidentID == req.ExaminerID || req.ReporterID == req.ExaminerID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jury members must be distinct")
	}

	if _, err := s.supervisors.FindByID(ctx, req.SupervisorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}

	jury := &models.Jury{
		Name:         req.Name,
		PresidentID:  req.PresidentID,
		ReporterID:   req.ReporterID,
		ExaminerID:   req.ExaminerID,
		SupervisorID: req.SupervisorID,
		Comment:      req.Comment,
	}
	if err := s.juries.Create(ctx, jury); err != nil {
		return nil, err
	}

	s.logger.Info("jury formed", zap.String("jury_id", jury.ID), zap.String("name", jury.Name))
	return jury, nil
}

// Update recomposes a jury's seats. Rejected while the jury has scheduled or
// running defenses.
func (s *JuryService) Update(ctx context.Context, juryID string, req dto.FormJuryRequest) (*models.JuryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid jury payload")
	}
	if req.PresidentID == req.ReporterID || req.PresidentID == req.ExaminerID || req.ReporterID == req.ExaminerID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "jury members must be distinct")
	}

	updated := &models.Jury{
		Name:         req.Name,
		PresidentID:  req.PresidentID,
		ReporterID:   req.ReporterID,
		ExaminerID:   req.ExaminerID,
		SupervisorID: req.SupervisorID,
		Comment:      req.Comment,
	}
	if err := s.juries.UpdateComposition(ctx, juryID, updated); err != nil {
		return nil, err
	}

	s.logger.Info("jury recomposed", zap.String("jury_id", juryID))
	return s.Get(ctx, juryID)
}

// Dissolve closes a jury and returns its members to the pool.
func (s *JuryService) Dissolve(ctx context.Context, juryID string) error {
	if err := s.juries.Dissolve(ctx, juryID); err != nil {
		return err
	}
	s.logger.Info("jury dissolved", zap.String("jury_id", juryID))
	return nil
}

// Get returns a jury with member names.
func (s *JuryService) Get(ctx context.Context, juryID string) (*models.JuryDetail, error) {
	detail, err := s.juries.FindDetailByID(ctx, juryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "jury not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jury")
	}
	return detail, nil
}

// List returns juries matching the query.
func (s *JuryService) List(ctx context.Context, query dto.JuryQuery) ([]models.JuryDetail, *models.Pagination, error) {
	filter := models.JuryFilter{
		Status:    query.Status,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	juries, total, err := s.juries.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list juries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return juries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AvailableMembers returns pool members free to join a new jury.
func (s *JuryService) AvailableMembers(ctx context.Context) ([]models.JuryMemberDetail, error) {
	members, err := s.members.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available members")
	}
	return members, nil
}
