package models

import "time"

// MemberAvailability marks whether a jury member can join a new jury.
type MemberAvailability string

const (
	MemberAvailable MemberAvailability = "AVAILABLE"
	MemberReserved  MemberAvailability = "RESERVED"
)

// JuryMember belongs to the pool from which presidents, reporters and
// examiners are drawn. Availability is owned by jury creation, composition
// update and dissolution code paths only.
type JuryMember struct {
	ID           string             `db:"id" json:"id"`
	UserID       string             `db:"user_id" json:"user_id"`
	Grade        string             `db:"grade" json:"grade"`
	Speciality   string             `db:"speciality" json:"speciality"`
	Availability MemberAvailability `db:"availability" json:"availability"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// JuryMemberDetail enriches a JuryMember with the owning user's identity.
type JuryMemberDetail struct {
	JuryMember
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// JuryStatus is the lifecycle of a jury panel.
type JuryStatus string

const (
	JuryFormed JuryStatus = "FORMED"
	JuryActive JuryStatus = "ACTIVE"
	JuryClosed JuryStatus = "CLOSED"
)

// JuryRole is the closed set of grading roles on a defense panel. The
// supervisor sits as fourth examiner by virtue of supervising the candidate.
type JuryRole string

const (
	RolePresident          JuryRole = "PRESIDENT"
	RoleReporter           JuryRole = "REPORTER"
	RoleExaminer           JuryRole = "EXAMINER"
	RoleSupervisorExaminer JuryRole = "SUPERVISOR_EXAMINER"
)

// JuryRoles lists every grading role; quorum means one score per entry.
var JuryRoles = []JuryRole{RolePresident, RoleReporter, RoleExaminer, RoleSupervisorExaminer}

// Jury is the four-person panel evaluating defenses. The three member ids
// must reference pairwise distinct individuals.
type Jury struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	PresidentID  string     `db:"president_id" json:"president_id"`
	ReporterID   string     `db:"reporter_id" json:"reporter_id"`
	ExaminerID   string     `db:"examiner_id" json:"examiner_id"`
	SupervisorID string     `db:"supervisor_id" json:"supervisor_id"`
	Status       JuryStatus `db:"status" json:"status"`
	Comment      string     `db:"comment" json:"comment,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// MemberIDs returns the three reservable member references (the supervisor
// is not drawn from the availability pool).
func (j Jury) MemberIDs() []string {
	return []string{j.PresidentID, j.ReporterID, j.ExaminerID}
}

// JuryDetail enriches a Jury with member names.
type JuryDetail struct {
	Jury
	PresidentName  string `db:"president_name" json:"president_name"`
	ReporterName   string `db:"reporter_name" json:"reporter_name"`
	ExaminerName   string `db:"examiner_name" json:"examiner_name"`
	SupervisorName string `db:"supervisor_name" json:"supervisor_name"`
}

// JuryFilter provides filters for listing juries.
type JuryFilter struct {
	Status    JuryStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
