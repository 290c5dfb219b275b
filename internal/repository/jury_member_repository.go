package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/memoire-api/internal/models"
)

// JuryMemberRepository reads the pool of reservable jury members.
// Availability flips happen inside JuryRepository transactions only.
type JuryMemberRepository struct {
	db *sqlx.DB
}

// NewJuryMemberRepository constructs the repository.
func NewJuryMemberRepository(db *sqlx.DB) *JuryMemberRepository {
	return &JuryMemberRepository{db: db}
}

const juryMemberDetailSelect = `SELECT m.id, m.user_id, m.grade, m.speciality, m.availability, m.created_at, m.updated_at,
        u.full_name, u.email
        FROM jury_members m JOIN users u ON u.id = m.user_id`

// FindByID returns a jury member by ID.
func (r *JuryMemberRepository) FindByID(ctx context.Context, id string) (*models.JuryMember, error) {
	const query = `SELECT id, user_id, grade, speciality, availability, created_at, updated_at FROM jury_members WHERE id = $1`
	var member models.JuryMember
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByUserID returns the jury member record owned by a user account.
func (r *JuryMemberRepository) FindByUserID(ctx context.Context, userID string) (*models.JuryMember, error) {
	const query = `SELECT id, user_id, grade, speciality, availability, created_at, updated_at FROM jury_members WHERE user_id = $1`
	var member models.JuryMember
	if err := r.db.GetContext(ctx, &member, query, userID); err != nil {
		return nil, err
	}
	return &member, nil
}

// ListAvailable returns members free to join a new jury.
func (r *JuryMemberRepository) ListAvailable(ctx context.Context) ([]models.JuryMemberDetail, error) {
	query := juryMemberDetailSelect + ` WHERE m.availability = $1 ORDER BY u.full_name`
	var members []models.JuryMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, models.MemberAvailable); err != nil {
		return nil, fmt.Errorf("list available jury members: %w", err)
	}
	return members, nil
}

// List returns jury members with optional availability and search filters.
func (r *JuryMemberRepository) List(ctx context.Context, availability models.MemberAvailability, search string, page, pageSize int) ([]models.JuryMemberDetail, int, error) {
	base := `FROM jury_members m JOIN users u ON u.id = m.user_id`
	var conditions []string
	var args []interface{}

	if availability != "" {
		conditions = append(conditions, fmt.Sprintf("m.availability = $%d", len(args)+1))
		args = append(args, availability)
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(u.full_name ILIKE $%d OR m.speciality ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT m.id, m.user_id, m.grade, m.speciality, m.availability, m.created_at, m.updated_at,
        u.full_name, u.email %s ORDER BY u.full_name LIMIT %d OFFSET %d`, base+clause, pageSize, offset)
	var members []models.JuryMemberDetail
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jury members: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base+clause), args...); err != nil {
		return nil, 0, fmt.Errorf("count jury members: %w", err)
	}
	return members, total, nil
}
