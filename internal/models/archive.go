package models

import "time"

// ArchiveEntry is the immutable catalog record of a completed defense,
// created exactly once when the session is finalized.
type ArchiveEntry struct {
	ID             string        `db:"id" json:"id"`
	DefenseID      string        `db:"defense_id" json:"defense_id"`
	Title          string        `db:"title" json:"title"`
	StudentName    string        `db:"student_name" json:"student_name"`
	SupervisorName string        `db:"supervisor_name" json:"supervisor_name"`
	Year           int           `db:"year" json:"year"`
	Level          AcademicLevel `db:"level" json:"level"`
	Program        string        `db:"program" json:"program"`
	Mention        Mention       `db:"mention" json:"mention"`
	FinalScore     float64       `db:"final_score" json:"final_score"`
	MemoirFile     string        `db:"memoir_file" json:"-"`
	AbstractFR     string        `db:"abstract_fr" json:"abstract_fr,omitempty"`
	AbstractEN     string        `db:"abstract_en" json:"abstract_en,omitempty"`
	Keywords       string        `db:"keywords" json:"keywords,omitempty"`
	Downloads      int           `db:"downloads" json:"downloads"`
	Public         bool          `db:"public" json:"public"`
	ArchivedAt     time.Time     `db:"archived_at" json:"archived_at"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// ArchiveFilter provides filters for browsing the catalog.
type ArchiveFilter struct {
	Year       int
	Level      AcademicLevel
	Program    string
	Mention    Mention
	Search     string
	PublicOnly bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
