package models

import "time"

// AcademicLevel is the degree level a student is enrolled in.
type AcademicLevel string

const (
	LevelL3 AcademicLevel = "L3"
	LevelM1 AcademicLevel = "M1"
	LevelM2 AcademicLevel = "M2"
)

// StudentStatus tracks the single authoritative position of a student in the
// thesis workflow. It is only ever updated inside the transaction of the
// operation that causes the transition.
type StudentStatus string

const (
	StudentAwaitingTopic     StudentStatus = "AWAITING_TOPIC"
	StudentTopicChosen       StudentStatus = "TOPIC_CHOSEN"
	StudentAssigned          StudentStatus = "ASSIGNED"
	StudentUnderSupervision  StudentStatus = "UNDER_SUPERVISION"
	StudentDossierSubmitted  StudentStatus = "DOSSIER_SUBMITTED"
	StudentAuthorized        StudentStatus = "AUTHORIZED_FOR_DEFENSE"
	StudentDefenseScheduled  StudentStatus = "DEFENSE_SCHEDULED"
	StudentDefended          StudentStatus = "DEFENDED"
	StudentArchived          StudentStatus = "ARCHIVED"
)

// Student represents a candidate working toward a thesis defense.
type Student struct {
	ID           string        `db:"id" json:"id"`
	UserID       string        `db:"user_id" json:"user_id"`
	Registration string        `db:"registration" json:"registration"`
	Level        AcademicLevel `db:"level" json:"level"`
	Program      string        `db:"program" json:"program"`
	AcademicYear string        `db:"academic_year" json:"academic_year"`
	Status       StudentStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches a Student with the owning user's identity.
type StudentDetail struct {
	Student
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Status    StudentStatus
	Level     AcademicLevel
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
