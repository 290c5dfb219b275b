package dto

import "github.com/noah-isme/memoire-api/internal/models"

// ChooseTopicsRequest records a student's ranked preferences. Between one and
// three topics, rank order implied by slice position.
type ChooseTopicsRequest struct {
	TopicIDs []string `json:"topic_ids" validate:"required,min=1,max=3,unique"`
}

// ManualAssignRequest payload for an administrator confirming one student.
type ManualAssignRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	TopicID   string `json:"topic_id" validate:"required"`
	Comment   string `json:"comment"`
}

// ReassignRequest moves a confirmed assignment to a new topic.
type ReassignRequest struct {
	TopicID string `json:"topic_id" validate:"required"`
	Comment string `json:"comment"`
}

// AssignmentQuery mirrors supported assignment listing filters.
type AssignmentQuery struct {
	Status       models.AssignmentStatus `form:"status"`
	SupervisorID string                  `form:"supervisor_id"`
	Level        models.AcademicLevel    `form:"level"`
	Search       string                  `form:"search"`
	Page         int                     `form:"page"`
	PageSize     int                     `form:"page_size"`
	SortBy       string                  `form:"sort_by"`
	SortOrder    string                  `form:"sort_order"`
}
