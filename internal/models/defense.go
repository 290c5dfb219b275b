package models

import "time"

// DefenseStatus is the state machine of a defense session. COMPLETED is
// terminal; POSTPONED returns the session to a reschedulable state without
// releasing the jury.
type DefenseStatus string

const (
	DefenseScheduled  DefenseStatus = "SCHEDULED"
	DefenseInProgress DefenseStatus = "IN_PROGRESS"
	DefenseCompleted  DefenseStatus = "COMPLETED"
	DefensePostponed  DefenseStatus = "POSTPONED"
)

// Mention is the qualitative band derived from the final score.
type Mention string

const (
	MentionPassable  Mention = "PASSABLE"
	MentionAssezBien Mention = "ASSEZ_BIEN"
	MentionBien      Mention = "BIEN"
	MentionTresBien  Mention = "TRES_BIEN"
	MentionExcellent Mention = "EXCELLENT"
)

// MentionForScore maps a final score to its fixed band.
func MentionForScore(score float64) Mention {
	switch {
	case score >= 18:
		return MentionExcellent
	case score >= 16:
		return MentionTresBien
	case score >= 14:
		return MentionBien
	case score >= 12:
		return MentionAssezBien
	default:
		return MentionPassable
	}
}

// Defense binds a student's completed dossier to a jury and a time slot and
// carries the four role scores through deliberation.
type Defense struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	JuryID       string        `db:"jury_id" json:"jury_id"`
	DossierID    string        `db:"dossier_id" json:"dossier_id"`
	ScheduledAt  time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Room         string        `db:"room" json:"room"`
	DurationMins int           `db:"duration_mins" json:"duration_mins"`
	Status       DefenseStatus `db:"status" json:"status"`

	PresidentScore  *float64 `db:"president_score" json:"president_score,omitempty"`
	ReporterScore   *float64 `db:"reporter_score" json:"reporter_score,omitempty"`
	ExaminerScore   *float64 `db:"examiner_score" json:"examiner_score,omitempty"`
	SupervisorScore *float64 `db:"supervisor_score" json:"supervisor_score,omitempty"`
	FinalScore      *float64 `db:"final_score" json:"final_score,omitempty"`

	Mention         *Mention   `db:"mention" json:"mention,omitempty"`
	Appreciation    string     `db:"appreciation" json:"appreciation,omitempty"`
	Recommendations string     `db:"recommendations" json:"recommendations,omitempty"`
	DeliberatedAt   *time.Time `db:"deliberated_at" json:"deliberated_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Score returns the stored score for a role, or nil.
func (d Defense) Score(role JuryRole) *float64 {
	switch role {
	case RolePresident:
		return d.PresidentScore
	case RoleReporter:
		return d.ReporterScore
	case RoleExaminer:
		return d.ExaminerScore
	case RoleSupervisorExaminer:
		return d.SupervisorScore
	}
	return nil
}

// HasQuorum reports whether all four role scores are present. The final
// score exists if and only if this holds.
func (d Defense) HasQuorum() bool {
	for _, role := range JuryRoles {
		if d.Score(role) == nil {
			return false
		}
	}
	return true
}

// ComputeFinalScore returns the equal-weight mean of the four role scores.
// The second return is false until quorum is reached.
func (d Defense) ComputeFinalScore() (float64, bool) {
	if !d.HasQuorum() {
		return 0, false
	}
	sum := *d.PresidentScore + *d.ReporterScore + *d.ExaminerScore + *d.SupervisorScore
	return sum / 4, true
}

// EndsAt derives the slot end from the scheduled time and duration.
func (d Defense) EndsAt() time.Time {
	return d.ScheduledAt.Add(time.Duration(d.DurationMins) * time.Minute)
}

// DefenseDetail enriches a Defense with display context.
type DefenseDetail struct {
	Defense
	StudentName string `db:"student_name" json:"student_name"`
	JuryName    string `db:"jury_name" json:"jury_name"`
	TopicTitle  string `db:"topic_title" json:"topic_title"`
}

// DefenseFilter provides filters for listing defenses.
type DefenseFilter struct {
	Status    DefenseStatus
	JuryID    string
	From      *time.Time
	To        *time.Time
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
