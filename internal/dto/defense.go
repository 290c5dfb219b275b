package dto

import (
	"time"

	"github.com/noah-isme/memoire-api/internal/models"
)

// ScheduleDefenseRequest books a defense slot for an authorized student.
type ScheduleDefenseRequest struct {
	StudentID    string    `json:"student_id" validate:"required"`
	JuryID       string    `json:"jury_id" validate:"required"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
	Room         string    `json:"room" validate:"required"`
	DurationMins int       `json:"duration_mins"`
}

// SubmitScoreRequest records one grading role's score out of twenty.
type SubmitScoreRequest struct {
	Score float64 `json:"score" validate:"min=0,max=20"`
}

// FinalizeDefenseRequest closes the deliberation.
type FinalizeDefenseRequest struct {
	Appreciation    string `json:"appreciation"`
	Recommendations string `json:"recommendations"`
	Keywords        string `json:"keywords"`
	Public          bool   `json:"public"`
}

// PostponeDefenseRequest moves a session off the calendar.
type PostponeDefenseRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RescheduleDefenseRequest puts a postponed session back on the calendar.
type RescheduleDefenseRequest struct {
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
	Room         string    `json:"room" validate:"required"`
	DurationMins int       `json:"duration_mins"`
}

// DefenseQuery mirrors supported defense listing filters.
type DefenseQuery struct {
	Status    models.DefenseStatus `form:"status"`
	JuryID    string               `form:"jury_id"`
	From      *time.Time           `form:"from" time_format:"2006-01-02"`
	To        *time.Time           `form:"to" time_format:"2006-01-02"`
	Search    string               `form:"search"`
	Page      int                  `form:"page"`
	PageSize  int                  `form:"page_size"`
	SortBy    string               `form:"sort_by"`
	SortOrder string               `form:"sort_order"`
}
