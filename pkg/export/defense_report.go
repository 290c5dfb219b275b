package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// DefenseReport carries the fields printed on a defense deliberation report.
type DefenseReport struct {
	StudentName    string
	TopicTitle     string
	Level          string
	Program        string
	Date           string
	Room           string
	PresidentName  string
	ReporterName   string
	ExaminerName   string
	SupervisorName string
	Scores         []ScoreLine
	FinalScore     float64
	Mention        string
	Appreciation   string
}

// ScoreLine is one role/score row of the report.
type ScoreLine struct {
	Role  string
	Name  string
	Score float64
}

// ReportRenderer renders deliberation reports as PDF documents.
type ReportRenderer struct{}

// NewReportRenderer constructs a renderer.
func NewReportRenderer() *ReportRenderer {
	return &ReportRenderer{}
}

// Render produces the PDF bytes for a completed defense.
func (r *ReportRenderer) Render(report DefenseReport) ([]byte, error) {
	if report.StudentName == "" || report.TopicTitle == "" {
		return nil, fmt.Errorf("report requires student and topic")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper("Proces-verbal de soutenance"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	writeField := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 8, value, "", "", false)
	}

	writeField("Candidat", report.StudentName)
	writeField("Sujet", report.TopicTitle)
	writeField("Niveau", report.Level)
	writeField("Filiere", report.Program)
	writeField("Date", report.Date)
	writeField("Salle", report.Room)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(70, 8, "Membre du jury", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 8, "Role", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Note", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, line := range report.Scores {
		pdf.CellFormat(70, 7, line.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(70, 7, line.Role, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f / 20", line.Score), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	writeField("Note finale", fmt.Sprintf("%.2f / 20", report.FinalScore))
	writeField("Mention", report.Mention)
	writeField("Appreciation", report.Appreciation)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
