package models

import "time"

// SupervisionSession is one dated meeting between a supervisor and their
// student, logged against the assignment. Their existence blocks assignment
// removal.
type SupervisionSession struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	HeldAt       time.Time `db:"held_at" json:"held_at"`
	DurationMins int       `db:"duration_mins" json:"duration_mins"`
	Subject      string    `db:"subject" json:"subject"`
	Notes        string    `db:"notes" json:"notes,omitempty"`
	NextSteps    string    `db:"next_steps" json:"next_steps,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
