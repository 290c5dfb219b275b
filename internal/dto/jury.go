package dto

import "github.com/noah-isme/memoire-api/internal/models"

// FormJuryRequest payload for composing a four-person defense panel.
type FormJuryRequest struct {
	Name         string `json:"name" validate:"required"`
	PresidentID  string `json:"president_id" validate:"required"`
	ReporterID   string `json:"reporter_id" validate:"required"`
	ExaminerID   string `json:"examiner_id" validate:"required"`
	SupervisorID string `json:"supervisor_id" validate:"required"`
	Comment      string `json:"comment"`
}

// JuryQuery mirrors supported jury listing filters.
type JuryQuery struct {
	Status    models.JuryStatus `form:"status"`
	Search    string            `form:"search"`
	Page      int               `form:"page"`
	PageSize  int               `form:"page_size"`
	SortBy    string            `form:"sort_by"`
	SortOrder string            `form:"sort_order"`
}
