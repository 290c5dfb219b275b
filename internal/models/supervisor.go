package models

import "time"

// Supervisor represents a faculty member who proposes topics and supervises
// students. CurrentLoad is owned by the allocator: it is mutated only inside
// the transaction that creates, moves or removes an assignment.
type Supervisor struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Speciality  string    `db:"speciality" json:"speciality"`
	Grade       string    `db:"grade" json:"grade"`
	MaxLoad     int       `db:"max_load" json:"max_load"`
	CurrentLoad int       `db:"current_load" json:"current_load"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasFreeLoad reports whether the supervisor can take one more student.
func (s Supervisor) HasFreeLoad() bool {
	return s.CurrentLoad < s.MaxLoad
}

// SupervisorDetail enriches a Supervisor with the owning user's identity.
type SupervisorDetail struct {
	Supervisor
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}
