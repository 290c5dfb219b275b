package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// TopicRepository handles persistence of thesis topics.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs the repository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

const topicColumns = `id, title, description, keywords, level, supervisor_id, capacity, occupied, status, review_note, created_at, updated_at`

// FindByID returns a topic by its ID.
func (r *TopicRepository) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	query := fmt.Sprintf(`SELECT %s FROM topics WHERE id = $1`, topicColumns)
	var topic models.Topic
	if err := r.db.GetContext(ctx, &topic, query, id); err != nil {
		return nil, err
	}
	return &topic, nil
}

// FindDetailByID returns a topic with its supervisor's name.
func (r *TopicRepository) FindDetailByID(ctx context.Context, id string) (*models.TopicDetail, error) {
	const query = `SELECT t.id, t.title, t.description, t.keywords, t.level, t.supervisor_id, t.capacity, t.occupied,
        t.status, t.review_note, t.created_at, t.updated_at, u.full_name AS supervisor_name
        FROM topics t
        JOIN supervisors sp ON sp.id = t.supervisor_id
        JOIN users u ON u.id = sp.user_id
        WHERE t.id = $1`
	var detail models.TopicDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns topics filtered by the provided criteria.
func (r *TopicRepository) List(ctx context.Context, filter models.TopicFilter) ([]models.TopicDetail, int, error) {
	base := `FROM topics t
JOIN supervisors sp ON sp.id = t.supervisor_id
JOIN users u ON u.id = sp.user_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("t.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("t.supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if filter.OnlyFree {
		conditions = append(conditions, "t.occupied < t.capacity")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(t.title ILIKE $%d OR t.keywords ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"title":      "t.title",
		"created_at": "t.created_at",
		"level":      "t.level",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "t.created_at"
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

	query := fmt.Sprintf(`SELECT t.id, t.title, t.description, t.keywords, t.level, t.supervisor_id, t.capacity,
        t.occupied, t.status, t.review_note, t.created_at, t.updated_at, u.full_name AS supervisor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var topics []models.TopicDetail
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list topics: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count topics: %w", err)
	}
	return topics, total, nil
}

// CountApprovedByIDs returns how many of the given topics are approved at the
// provided level.
func (r *TopicRepository) CountApprovedByIDs(ctx context.Context, ids []string, level models.AcademicLevel) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+2)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	args = append(args, models.TopicApproved, level)
	query := fmt.Sprintf("SELECT COUNT(*) FROM topics WHERE id IN (%s) AND status = $%d AND level = $%d",
		strings.Join(placeholders, ","), len(ids)+1, len(ids)+2)
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count approved topics: %w", err)
	}
	return count, nil
}

// Create persists a new topic proposal.
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = now
	}
	topic.UpdatedAt = now
	if topic.Status == "" {
		topic.Status = models.TopicProposed
	}
	const query = `INSERT INTO topics (id, title, description, keywords, level, supervisor_id, capacity, occupied, status, review_note, created_at, updated_at)
        VALUES (:id, :title, :description, :keywords, :level, :supervisor_id, :capacity, :occupied, :status, :review_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// Review records the admin decision for a proposed topic.
func (r *TopicRepository) Review(ctx context.Context, id string, status models.TopicStatus, note string) error {
	const query = `UPDATE topics SET status = $2, review_note = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, note, time.Now().UTC()); err != nil {
		return fmt.Errorf("review topic: %w", err)
	}
	return nil
}
