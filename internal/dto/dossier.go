package dto

import "github.com/noah-isme/memoire-api/internal/models"

// DocumentKind names one of the five required dossier documents.
type DocumentKind string

const (
	DocumentMemoir               DocumentKind = "memoir_pdf"
	DocumentAbstractFR           DocumentKind = "abstract_fr"
	DocumentAbstractEN           DocumentKind = "abstract_en"
	DocumentPlagiarismReport     DocumentKind = "plagiarism_report"
	DocumentSupervisorEvaluation DocumentKind = "supervisor_evaluation"
)

// DocumentKinds lists every accepted upload slot.
var DocumentKinds = []DocumentKind{
	DocumentMemoir,
	DocumentAbstractFR,
	DocumentAbstractEN,
	DocumentPlagiarismReport,
	DocumentSupervisorEvaluation,
}

// Valid reports whether the kind is one of the accepted slots.
func (k DocumentKind) Valid() bool {
	for _, known := range DocumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// AuthorizeDefenseRequest captures the supervisor's authorization decision.
type AuthorizeDefenseRequest struct {
	Authorize bool   `json:"authorize"`
	Comment   string `json:"comment"`
}

// VerifyDossierRequest captures the administrative review outcome.
type VerifyDossierRequest struct {
	Verification models.DossierVerification `json:"verification" validate:"required,oneof=VERIFIED INCOMPLETE"`
	Comment      string                     `json:"comment"`
}
