package dto

import "github.com/noah-isme/memoire-api/internal/models"

// ProposeTopicRequest payload for a supervisor proposing a memoir topic.
type ProposeTopicRequest struct {
	Title       string               `json:"title" validate:"required,min=10"`
	Description string               `json:"description" validate:"required,min=30"`
	Level       models.AcademicLevel `json:"level" validate:"required,oneof=L3 M1 M2"`
	Keywords    string               `json:"keywords"`
	Capacity    int                  `json:"capacity" validate:"required,min=1,max=5"`
}

// ReviewTopicRequest captures the administrative approval decision.
type ReviewTopicRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

// TopicQuery mirrors supported topic listing filters.
type TopicQuery struct {
	Status       models.TopicStatus   `form:"status"`
	Level        models.AcademicLevel `form:"level"`
	SupervisorID string               `form:"supervisor_id"`
	OnlyOpen     bool                 `form:"only_open"`
	Search       string               `form:"search"`
	Page         int                  `form:"page"`
	PageSize     int                  `form:"page_size"`
	SortBy       string               `form:"sort_by"`
	SortOrder    string               `form:"sort_order"`
}
