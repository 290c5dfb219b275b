package models

import "time"

// TopicStatus is the review lifecycle of a proposed topic.
type TopicStatus string

const (
	TopicProposed TopicStatus = "PROPOSED"
	TopicApproved TopicStatus = "APPROVED"
	TopicRejected TopicStatus = "REJECTED"
)

// Topic is a thesis subject proposed by a supervisor. Occupied is owned by
// the allocator and bounded by 0 <= occupied <= capacity at all times.
type Topic struct {
	ID           string        `db:"id" json:"id"`
	Title        string        `db:"title" json:"title"`
	Description  string        `db:"description" json:"description"`
	Keywords     string        `db:"keywords" json:"keywords"`
	Level        AcademicLevel `db:"level" json:"level"`
	SupervisorID string        `db:"supervisor_id" json:"supervisor_id"`
	Capacity     int           `db:"capacity" json:"capacity"`
	Occupied     int           `db:"occupied" json:"occupied"`
	Status       TopicStatus   `db:"status" json:"status"`
	ReviewNote   string        `db:"review_note" json:"review_note,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// HasFreeSeat reports whether the topic can accept one more assignment.
func (t Topic) HasFreeSeat() bool {
	return t.Occupied < t.Capacity
}

// TopicDetail enriches a Topic with its supervisor's identity.
type TopicDetail struct {
	Topic
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// TopicFilter provides filters for listing topics.
type TopicFilter struct {
	Status       TopicStatus
	Level        AcademicLevel
	SupervisorID string
	OnlyFree     bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
