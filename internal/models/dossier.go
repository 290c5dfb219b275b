package models

import "time"

// DossierVerification is the administrative review state of a dossier.
type DossierVerification string

const (
	DossierPendingReview DossierVerification = "PENDING"
	DossierVerified      DossierVerification = "VERIFIED"
	DossierIncomplete    DossierVerification = "INCOMPLETE"
)

// Dossier is the document package a student must complete before a defense
// can be scheduled. The five document fields hold storage-collaborator paths;
// Complete is derived from their presence and persisted alongside them.
type Dossier struct {
	ID           string `db:"id" json:"id"`
	StudentID    string `db:"student_id" json:"student_id"`
	AssignmentID string `db:"assignment_id" json:"assignment_id"`

	MemoirPDF            string `db:"memoir_pdf" json:"memoir_pdf,omitempty"`
	AbstractFR           string `db:"abstract_fr" json:"abstract_fr,omitempty"`
	AbstractEN           string `db:"abstract_en" json:"abstract_en,omitempty"`
	PlagiarismReport     string `db:"plagiarism_report" json:"plagiarism_report,omitempty"`
	SupervisorEvaluation string `db:"supervisor_evaluation" json:"supervisor_evaluation,omitempty"`

	Complete     bool                `db:"complete" json:"complete"`
	Authorized   bool                `db:"authorized" json:"authorized"`
	AuthorizedAt *time.Time          `db:"authorized_at" json:"authorized_at,omitempty"`
	SubmittedAt  *time.Time          `db:"submitted_at" json:"submitted_at,omitempty"`
	Verification DossierVerification `db:"verification" json:"verification"`
	AdminComment string              `db:"admin_comment" json:"admin_comment,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// AllDocumentsPresent reports whether the five required documents are set.
func (d Dossier) AllDocumentsPresent() bool {
	return d.MemoirPDF != "" &&
		d.AbstractFR != "" &&
		d.AbstractEN != "" &&
		d.PlagiarismReport != "" &&
		d.SupervisorEvaluation != ""
}

// ReadyForDefense is the document-completeness gate checked at scheduling.
func (d Dossier) ReadyForDefense() bool {
	return d.Complete && d.Authorized
}
