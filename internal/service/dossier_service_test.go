package service

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type mockDossierStore struct {
	byID      map[string]models.Dossier
	byStudent map[string]models.Dossier
	updated   *models.Dossier
	verified  models.DossierVerification
}

func (m *mockDossierStore) FindByID(ctx context.Context, id string) (*models.Dossier, error) {
	if d, ok := m.byID[id]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDossierStore) FindByStudent(ctx context.Context, studentID string) (*models.Dossier, error) {
	if d, ok := m.byStudent[studentID]; ok {
		return &d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDossierStore) Create(ctx context.Context, dossier *models.Dossier) error {
	dossier.ID = "dossier-new"
	dossier.Verification = models.DossierPendingReview
	return nil
}

func (m *mockDossierStore) UpdateDocuments(ctx context.Context, dossier *models.Dossier) error {
	m.updated = dossier
	return nil
}

func (m *mockDossierStore) SetAuthorization(ctx context.Context, dossierID string, authorized bool, authorizedAt *time.Time) error {
	return nil
}

func (m *mockDossierStore) SetVerification(ctx context.Context, dossierID string, verification models.DossierVerification, comment string) error {
	m.verified = verification
	return nil
}

func (m *mockDossierStore) ListPendingReview(ctx context.Context) ([]models.Dossier, error) {
	return nil, nil
}

type mockDossierStudents struct {
	byUser   map[string]models.Student
	statuses map[string]models.StudentStatus
}

func (m *mockDossierStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDossierStudents) FindDetailByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	return &models.StudentDetail{
		Student:  models.Student{ID: id},
		FullName: "Awa Diop",
		Email:    "awa@univ.sn",
	}, nil
}

func (m *mockDossierStudents) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	if m.statuses == nil {
		m.statuses = map[string]models.StudentStatus{}
	}
	m.statuses[id] = status
	return nil
}

type mockDossierAssignments struct {
	byStudent map[string]models.Assignment
}

func (m *mockDossierAssignments) FindConfirmedByStudent(ctx context.Context, studentID string) (*models.Assignment, error) {
	if a, ok := m.byStudent[studentID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

type mockDossierSupervisors struct {
	byUser map[string]models.Supervisor
}

func (m *mockDossierSupervisors) FindByUserID(ctx context.Context, userID string) (*models.Supervisor, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockDocumentWriter struct {
	saved []string
}

func (m *mockDocumentWriter) SaveStream(filename string, r io.Reader) (string, error) {
	m.saved = append(m.saved, filename)
	return filename, nil
}

type mockDossierNotifier struct {
	verifications []models.DossierVerification
}

func (m *mockDossierNotifier) DossierVerified(name, email string, verification models.DossierVerification, comment string) {
	m.verifications = append(m.verifications, verification)
}

func newDossierFixture(dossiers *mockDossierStore) (*DossierService, *mockDossierStudents, *mockDocumentWriter, *mockDossierNotifier) {
	students := &mockDossierStudents{byUser: map[string]models.Student{
		"user-student": {ID: "student-1", Status: models.StudentAssigned},
	}}
	assignments := &mockDossierAssignments{byStudent: map[string]models.Assignment{
		"student-1": {ID: "assignment-1", StudentID: "student-1", SupervisorID: "sup-1", Status: models.AssignmentConfirmed},
	}}
	supervisors := &mockDossierSupervisors{byUser: map[string]models.Supervisor{
		"user-supervisor": {ID: "sup-1"},
		"user-other":      {ID: "sup-2"},
	}}
	writer := &mockDocumentWriter{}
	notifier := &mockDossierNotifier{}
	svc := NewDossierService(dossiers, students, assignments, supervisors, writer, notifier, 20<<20, nil, zap.NewNop())
	return svc, students, writer, notifier
}

func TestUploadDocumentCreatesDossierOnFirstUpload(t *testing.T) {
	dossiers := &mockDossierStore{byStudent: map[string]models.Dossier{}}
	svc, students, writer, _ := newDossierFixture(dossiers)

	dossier, err := svc.UploadDocument(context.Background(), "user-student", dto.DocumentMemoir, "memoire.pdf", 1024, strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "dossier-new", dossier.ID)
	assert.Equal(t, "dossiers/student-1/memoir_pdf.pdf", dossier.MemoirPDF)
	assert.False(t, dossier.Complete)
	assert.Len(t, writer.saved, 1)
	assert.Empty(t, students.statuses)
}

func TestUploadDocumentFifthDocumentFlipsComplete(t *testing.T) {
	dossiers := &mockDossierStore{byStudent: map[string]models.Dossier{
		"student-1": {
			ID:               "dossier-1",
			StudentID:        "student-1",
			AssignmentID:     "assignment-1",
			MemoirPDF:        "dossiers/student-1/memoir_pdf.pdf",
			AbstractFR:       "dossiers/student-1/abstract_fr.pdf",
			AbstractEN:       "dossiers/student-1/abstract_en.pdf",
			PlagiarismReport: "dossiers/student-1/plagiarism_report.pdf",
		},
	}}
	svc, students, _, _ := newDossierFixture(dossiers)

	dossier, err := svc.UploadDocument(context.Background(), "user-student", dto.DocumentSupervisorEvaluation, "eval.pdf", 1024, strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.True(t, dossier.Complete)
	require.NotNil(t, dossier.SubmittedAt)
	assert.Equal(t, models.DossierPendingReview, dossier.Verification)
	assert.Equal(t, models.StudentDossierSubmitted, students.statuses["student-1"])
}

func TestUploadDocumentRejectsNonPDF(t *testing.T) {
	dossiers := &mockDossierStore{byStudent: map[string]models.Dossier{}}
	svc, _, _, _ := newDossierFixture(dossiers)

	_, err := svc.UploadDocument(context.Background(), "user-student", dto.DocumentMemoir, "memoire.docx", 1024, strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadDocumentRejectsOversizedFile(t *testing.T) {
	dossiers := &mockDossierStore{byStudent: map[string]models.Dossier{}}
	svc, _, _, _ := newDossierFixture(dossiers)

	_, err := svc.UploadDocument(context.Background(), "user-student", dto.DocumentMemoir, "memoire.pdf", 64<<20, strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthorizeRequiresSupervisingFaculty(t *testing.T) {
	dossiers := &mockDossierStore{byID: map[string]models.Dossier{
		"dossier-1": {ID: "dossier-1", StudentID: "student-1", Complete: true},
	}}
	svc, _, _, _ := newDossierFixture(dossiers)

	_, err := svc.Authorize(context.Background(), "user-other", "dossier-1", dto.AuthorizeDefenseRequest{Authorize: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthorizeIncompleteDossier(t *testing.T) {
	dossiers := &mockDossierStore{byID: map[string]models.Dossier{
		"dossier-1": {ID: "dossier-1", StudentID: "student-1", Complete: false},
	}}
	svc, _, _, _ := newDossierFixture(dossiers)

	_, err := svc.Authorize(context.Background(), "user-supervisor", "dossier-1", dto.AuthorizeDefenseRequest{Authorize: true})
	require.ErrorIs(t, err, appErrors.ErrDossierIncomplete)
}

func TestAuthorizeMovesStudentToAuthorized(t *testing.T) {
	dossiers := &mockDossierStore{byID: map[string]models.Dossier{
		"dossier-1": {ID: "dossier-1", StudentID: "student-1", Complete: true},
	}}
	svc, students, _, _ := newDossierFixture(dossiers)

	dossier, err := svc.Authorize(context.Background(), "user-supervisor", "dossier-1", dto.AuthorizeDefenseRequest{Authorize: true})
	require.NoError(t, err)
	assert.True(t, dossier.Authorized)
	require.NotNil(t, dossier.AuthorizedAt)
	assert.Equal(t, models.StudentAuthorized, students.statuses["student-1"])
}

func TestVerifyNotifiesStudent(t *testing.T) {
	dossiers := &mockDossierStore{byID: map[string]models.Dossier{
		"dossier-1": {ID: "dossier-1", StudentID: "student-1", Complete: true},
	}}
	svc, _, _, notifier := newDossierFixture(dossiers)

	dossier, err := svc.Verify(context.Background(), "dossier-1", dto.VerifyDossierRequest{
		Verification: models.DossierVerified,
		Comment:      "Dossier conforme",
	})
	require.NoError(t, err)
	assert.Equal(t, models.DossierVerified, dossier.Verification)
	assert.Equal(t, []models.DossierVerification{models.DossierVerified}, notifier.verifications)
	assert.Equal(t, models.DossierVerified, dossiers.verified)
}
