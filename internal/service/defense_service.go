package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	"github.com/noah-isme/memoire-api/internal/repository"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
	"github.com/noah-isme/memoire-api/pkg/export"
)

type defenseStore interface {
	FindByID(ctx context.Context, id string) (*models.Defense, error)
	FindDetailByID(ctx context.Context, id string) (*models.DefenseDetail, error)
	List(ctx context.Context, filter models.DefenseFilter) ([]models.DefenseDetail, int, error)
	Schedule(ctx context.Context, defense *models.Defense) error
	Start(ctx context.Context, defenseID string) error
	SetRoleScore(ctx context.Context, defenseID string, role models.JuryRole, score float64) error
	Finalize(ctx context.Context, defenseID string, input repository.FinalizeInput) (*models.Defense, *models.ArchiveEntry, error)
	Postpone(ctx context.Context, defenseID, reason string) error
	Reschedule(ctx context.Context, defenseID string, scheduledAt time.Time, room string, durationMins int) error
}

type defenseStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type defenseDossierStore interface {
	FindByStudent(ctx context.Context, studentID string) (*models.Dossier, error)
}

type defenseJuryStore interface {
	FindByID(ctx context.Context, id string) (*models.Jury, error)
	FindDetailByID(ctx context.Context, id string) (*models.JuryDetail, error)
}

type defenseJuryMemberStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.JuryMember, error)
}

type defenseSupervisorStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error)
}

type defenseNotifier interface {
	DefenseScheduled(name, email, room string, at time.Time)
	DefenseResult(name, email string, score float64, mention models.Mention)
}

type reportRenderer interface {
	Render(report export.DefenseReport) ([]byte, error)
}

type defenseMetrics interface {
	RecordDefenseFinalized(mention string)
}

// DefenseService drives defense sessions from scheduling through deliberation
// to archival. Score submission resolves the caller's grading role from the
// jury composition, so a member holding two seats on different juries can
// only ever grade the seat they hold on this one.
type DefenseService struct {
	defenses    defenseStore
	students    defenseStudentStore
	dossiers    defenseDossierStore
	juries      defenseJuryStore
	juryMembers defenseJuryMemberStore
	supervisors defenseSupervisorStore
	notifier    defenseNotifier
	reports     reportRenderer
	metrics     defenseMetrics
	minDuration time.Duration
	maxDuration time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDefenseService constructs the service.
func NewDefenseService(
	defenses defenseStore,
	students defenseStudentStore,
	dossiers defenseDossierStore,
	juries defenseJuryStore,
	juryMembers defenseJuryMemberStore,
	supervisors defenseSupervisorStore,
	notifier defenseNotifier,
	reports reportRenderer,
	minDuration, maxDuration time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *DefenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if minDuration <= 0 {
		minDuration = 30 * time.Minute
	}
	if maxDuration <= 0 {
		maxDuration = 3 * time.Hour
	}
	return &DefenseService{
		defenses:    defenses,
		students:    students,
		dossiers:    dossiers,
		juries:      juries,
		juryMembers: juryMembers,
		supervisors: supervisors,
		notifier:    notifier,
		reports:     reports,
		minDuration: minDuration,
		maxDuration: maxDuration,
		validator:   validate,
		logger:      logger,
	}
}

// WithMetrics attaches an instrumentation sink.
func (s *DefenseService) WithMetrics(metrics defenseMetrics) *DefenseService {
	s.metrics = metrics
	return s
}

// Schedule books a defense slot. The student must hold a complete, authorized
// dossier; slot overlap and the dossier gate are rechecked under lock in the
// repository.
func (s *DefenseService) Schedule(ctx context.Context, req dto.ScheduleDefenseRequest) (*models.Defense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid defense payload")
	}
	duration := time.Duration(req.DurationMins) * time.Minute
	if req.DurationMins == 0 {
		duration = time.Hour
	}
	if duration < s.minDuration || duration > s.maxDuration {
		return nil, appErrors.Clone(appErrors.ErrValidation, "defense duration out of allowed bounds")
	}
	if req.ScheduledAt.Before(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "defense cannot be scheduled in the past")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentAuthorized {
		return nil, appErrors.Clone(appErrors.ErrDossierIncomplete, "student is not authorized for defense")
	}

	dossier, err := s.dossiers.FindByStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrDossierIncomplete
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dossier")
	}

	if _, err := s.juries.FindByID(ctx, req.JuryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "jury not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jury")
	}

	defense := &models.Defense{
		StudentID:    student.ID,
		JuryID:       req.JuryID,
		DossierID:    dossier.ID,
		ScheduledAt:  req.ScheduledAt.UTC(),
		Room:         req.Room,
		DurationMins: int(duration.Minutes()),
	}
	if err := s.defenses.Schedule(ctx, defense); err != nil {
		return nil, err
	}

	s.logger.Info("defense scheduled",
		zap.String("defense_id", defense.ID),
		zap.String("student_id", student.ID),
		zap.Time("scheduled_at", defense.ScheduledAt))

	if s.notifier != nil {
		if detail, err := s.students.FindDetailByID(ctx, student.ID); err == nil {
			s.notifier.DefenseScheduled(detail.FullName, detail.Email, defense.Room, defense.ScheduledAt)
		}
	}
	return defense, nil
}

// Start opens the session for grading.
func (s *DefenseService) Start(ctx context.Context, defenseID string) error {
	return s.defenses.Start(ctx, defenseID)
}

// SubmitScore records the calling jury member's score for their role on this
// defense's panel.
func (s *DefenseService) SubmitScore(ctx context.Context, userID, defenseID string, req dto.SubmitScoreRequest) (*models.Defense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score payload")
	}

	defense, err := s.defenses.FindByID(ctx, defenseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "defense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense")
	}

	role, err := s.resolveRole(ctx, userID, defense.JuryID)
	if err != nil {
		return nil, err
	}
	if err := s.defenses.SetRoleScore(ctx, defenseID, role, req.Score); err != nil {
		return nil, err
	}

	s.logger.Info("score submitted",
		zap.String("defense_id", defenseID),
		zap.String("role", string(role)),
		zap.Float64("score", req.Score))
	return s.defenses.FindByID(ctx, defenseID)
}

// Finalize closes the deliberation, archives the memoir and notifies the
// student of the result. Only this jury's president may finalize; admins
// bypass the seat check.
func (s *DefenseService) Finalize(ctx context.Context, userID string, callerRole models.UserRole, defenseID string, req dto.FinalizeDefenseRequest) (*models.Defense, *models.ArchiveEntry, error) {
	if callerRole != models.RoleAdmin {
		current, err := s.defenses.FindByID(ctx, defenseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "defense not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense")
		}
		seat, err := s.resolveRole(ctx, userID, current.JuryID)
		if err != nil {
			return nil, nil, err
		}
		if seat != models.RolePresident {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only the jury president or an admin can finalize")
		}
	}

	defense, entry, err := s.defenses.Finalize(ctx, defenseID, repository.FinalizeInput{
		Appreciation:    req.Appreciation,
		Recommendations: req.Recommendations,
		Keywords:        req.Keywords,
		Public:          req.Public,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("defense finalized",
		zap.String("defense_id", defenseID),
		zap.Float64("final_score", *defense.FinalScore),
		zap.String("mention", string(*defense.Mention)))

	if s.metrics != nil {
		s.metrics.RecordDefenseFinalized(string(*defense.Mention))
	}

	if s.notifier != nil {
		if detail, err := s.students.FindDetailByID(ctx, defense.StudentID); err == nil {
			s.notifier.DefenseResult(detail.FullName, detail.Email, *defense.FinalScore, *defense.Mention)
		}
	}
	return defense, entry, nil
}

// Postpone takes a session off the calendar without losing scores.
func (s *DefenseService) Postpone(ctx context.Context, defenseID string, req dto.PostponeDefenseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid postpone payload")
	}
	if err := s.defenses.Postpone(ctx, defenseID, req.Reason); err != nil {
		return err
	}
	s.logger.Info("defense postponed", zap.String("defense_id", defenseID))
	return nil
}

// Reschedule puts a postponed session back on the calendar.
func (s *DefenseService) Reschedule(ctx context.Context, defenseID string, req dto.RescheduleDefenseRequest) (*models.Defense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	duration := time.Duration(req.DurationMins) * time.Minute
	if req.DurationMins == 0 {
		duration = time.Hour
	}
	if duration < s.minDuration || duration > s.maxDuration {
		return nil, appErrors.Clone(appErrors.ErrValidation, "defense duration out of allowed bounds")
	}
	if err := s.defenses.Reschedule(ctx, defenseID, req.ScheduledAt.UTC(), req.Room, int(duration.Minutes())); err != nil {
		return nil, err
	}
	return s.defenses.FindByID(ctx, defenseID)
}

// Get returns a defense with display context.
func (s *DefenseService) Get(ctx context.Context, defenseID string) (*models.DefenseDetail, error) {
	detail, err := s.defenses.FindDetailByID(ctx, defenseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "defense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load defense")
	}
	return detail, nil
}

// List returns defenses matching the query.
func (s *DefenseService) List(ctx context.Context, query dto.DefenseQuery) ([]models.DefenseDetail, *models.Pagination, error) {
	filter := models.DefenseFilter{
		Status:    query.Status,
		JuryID:    query.JuryID,
		From:      query.From,
		To:        query.To,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	defenses, total, err := s.defenses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list defenses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return defenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Report renders the deliberation report of a completed defense as PDF.
func (s *DefenseService) Report(ctx context.Context, defenseID string) ([]byte, error) {
	detail, err := s.Get(ctx, defenseID)
	if err != nil {
		return nil, err
	}
	if detail.Status != models.DefenseCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "report is only available for completed defenses")
	}

	jury, err := s.juries.FindDetailByID(ctx, detail.JuryID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jury")
	}
	student, err := s.students.FindDetailByID(ctx, detail.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	report := export.DefenseReport{
		StudentName:    student.FullName,
		TopicTitle:     detail.TopicTitle,
		Level:          string(student.Level),
		Program:        student.Program,
		Date:           detail.ScheduledAt.Format("02/01/2006"),
		Room:           detail.Room,
		PresidentName:  jury.PresidentName,
		ReporterName:   jury.ReporterName,
		ExaminerName:   jury.ExaminerName,
		SupervisorName: jury.SupervisorName,
		Scores: []export.ScoreLine{
			{Role: "Président", Name: jury.PresidentName, Score: *detail.PresidentScore},
			{Role: "Rapporteur", Name: jury.ReporterName, Score: *detail.ReporterScore},
			{Role: "Examinateur", Name: jury.ExaminerName, Score: *detail.ExaminerScore},
			{Role: "Encadreur", Name: jury.SupervisorName, Score: *detail.SupervisorScore},
		},
		FinalScore:   *detail.FinalScore,
		Mention:      string(*detail.Mention),
		Appreciation: detail.Appreciation,
	}
	data, err := s.reports.Render(report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return data, nil
}

// resolveRole maps the calling user to the grading seat they hold on the
// defense's jury.
func (s *DefenseService) resolveRole(ctx context.Context, userID, juryID string) (models.JuryRole, error) {
	jury, err := s.juries.FindByID(ctx, juryID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jury")
	}

	member, err := s.juryMembers.FindByUserID(ctx, userID)
	if err == nil {
		switch member.ID {
		case jury.PresidentID:
			return models.RolePresident, nil
		case jury.ReporterID:
			return models.RoleReporter, nil
		case jury.ExaminerID:
			return models.RoleExaminer, nil
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load jury member")
	}

	supervisor, err := s.supervisors.FindByUserID(ctx, userID)
	if err == nil && supervisor.ID == jury.SupervisorID {
		return models.RoleSupervisorExaminer, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	return "", appErrors.Clone(appErrors.ErrForbidden, "caller does not sit on this jury")
}
