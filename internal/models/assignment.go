package models

import "time"

// AssignmentStatus distinguishes a ranked preference from a confirmed
// allocation. A student holds at most three PENDING rows and at most one
// CONFIRMED row; confirming deletes the siblings.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentConfirmed AssignmentStatus = "CONFIRMED"
	AssignmentRejected  AssignmentStatus = "REJECTED"
)

// Assignment binds a student to a topic and its supervisor. While status is
// PENDING the row is a preference link at the given rank; once CONFIRMED it
// is the durable allocation record.
type Assignment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	TopicID      string           `db:"topic_id" json:"topic_id"`
	SupervisorID string           `db:"supervisor_id" json:"supervisor_id"`
	Rank         int              `db:"rank" json:"rank"`
	Status       AssignmentStatus `db:"status" json:"status"`
	AssignedAt   *time.Time       `db:"assigned_at" json:"assigned_at,omitempty"`
	AdminComment string           `db:"admin_comment" json:"admin_comment,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentDetail enriches an Assignment with display names.
type AssignmentDetail struct {
	Assignment
	StudentName    string `db:"student_name" json:"student_name"`
	TopicTitle     string `db:"topic_title" json:"topic_title"`
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// AssignmentFilter provides filters for listing assignments.
type AssignmentFilter struct {
	Status       AssignmentStatus
	SupervisorID string
	Level        AcademicLevel
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// AllocationConflict reports a student for whom no ranked preference could be
// satisfied during an automatic run.
type AllocationConflict struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// AllocationResult is the outcome of one automatic batch run.
type AllocationResult struct {
	Assigned  []Assignment         `json:"assigned"`
	Conflicts []AllocationConflict `json:"conflicts"`
}
