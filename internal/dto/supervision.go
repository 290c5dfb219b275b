package dto

import "time"

// LogSessionRequest records one supervision meeting.
type LogSessionRequest struct {
	HeldAt       time.Time `json:"held_at" validate:"required"`
	DurationMins int       `json:"duration_mins" validate:"required,min=5"`
	Subject      string    `json:"subject" validate:"required"`
	Notes        string    `json:"notes"`
	NextSteps    string    `json:"next_steps"`
}
