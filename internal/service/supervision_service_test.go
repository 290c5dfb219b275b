package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type mockSupervisionStore struct {
	sessions map[string]models.SupervisionSession
	created  *models.SupervisionSession
	deleted  []string
}

func (m *mockSupervisionStore) FindByID(ctx context.Context, id string) (*models.SupervisionSession, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSupervisionStore) ListByAssignment(ctx context.Context, assignmentID string) ([]models.SupervisionSession, error) {
	var out []models.SupervisionSession
	for _, s := range m.sessions {
		if s.AssignmentID == assignmentID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSupervisionStore) Create(ctx context.Context, session *models.SupervisionSession) error {
	session.ID = "session-new"
	m.created = session
	return nil
}

func (m *mockSupervisionStore) Update(ctx context.Context, session *models.SupervisionSession) error {
	return nil
}

func (m *mockSupervisionStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSupervisionAssignments struct {
	assignments map[string]models.Assignment
}

func (m *mockSupervisionAssignments) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

type mockSupervisionStudents struct {
	students map[string]models.Student
	statuses map[string]models.StudentStatus
}

func (m *mockSupervisionStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSupervisionStudents) UpdateStatus(ctx context.Context, id string, status models.StudentStatus) error {
	if m.statuses == nil {
		m.statuses = map[string]models.StudentStatus{}
	}
	m.statuses[id] = status
	return nil
}

func newSupervisionFixture(sessions *mockSupervisionStore) (*SupervisionService, *mockSupervisionStudents) {
	assignments := &mockSupervisionAssignments{assignments: map[string]models.Assignment{
		"assignment-1": {ID: "assignment-1", StudentID: "student-1", SupervisorID: "sup-1", Status: models.AssignmentConfirmed},
		"assignment-2": {ID: "assignment-2", StudentID: "student-2", SupervisorID: "sup-1", Status: models.AssignmentPending},
	}}
	supervisors := &mockDossierSupervisors{byUser: map[string]models.Supervisor{
		"user-supervisor": {ID: "sup-1"},
		"user-other":      {ID: "sup-2"},
	}}
	students := &mockSupervisionStudents{students: map[string]models.Student{
		"student-1": {ID: "student-1", Status: models.StudentAssigned},
	}}
	svc := NewSupervisionService(sessions, assignments, supervisors, students, nil, zap.NewNop())
	return svc, students
}

func validLogSessionRequest() dto.LogSessionRequest {
	return dto.LogSessionRequest{
		HeldAt:       time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		DurationMins: 45,
		Subject:      "Revue du chapitre 2",
		Notes:        "Restructurer l'état de l'art",
		NextSteps:    "Rédiger la méthodologie",
	}
}

func TestLogSessionMovesStudentUnderSupervision(t *testing.T) {
	sessions := &mockSupervisionStore{sessions: map[string]models.SupervisionSession{}}
	svc, students := newSupervisionFixture(sessions)

	session, err := svc.LogSession(context.Background(), "user-supervisor", "assignment-1", validLogSessionRequest())
	require.NoError(t, err)
	assert.Equal(t, "session-new", session.ID)
	assert.Equal(t, "assignment-1", session.AssignmentID)
	assert.Equal(t, models.StudentUnderSupervision, students.statuses["student-1"])
}

func TestLogSessionRejectsForeignSupervisor(t *testing.T) {
	sessions := &mockSupervisionStore{sessions: map[string]models.SupervisionSession{}}
	svc, _ := newSupervisionFixture(sessions)

	_, err := svc.LogSession(context.Background(), "user-other", "assignment-1", validLogSessionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, sessions.created)
}

func TestLogSessionRejectsUnconfirmedAssignment(t *testing.T) {
	sessions := &mockSupervisionStore{sessions: map[string]models.SupervisionSession{}}
	svc, _ := newSupervisionFixture(sessions)

	_, err := svc.LogSession(context.Background(), "user-supervisor", "assignment-2", validLogSessionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDeleteSessionChecksOwnership(t *testing.T) {
	sessions := &mockSupervisionStore{sessions: map[string]models.SupervisionSession{
		"session-1": {ID: "session-1", AssignmentID: "assignment-1"},
	}}
	svc, _ := newSupervisionFixture(sessions)

	err := svc.DeleteSession(context.Background(), "user-other", "session-1")
	require.Error(t, err)

	err = svc.DeleteSession(context.Background(), "user-supervisor", "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"session-1"}, sessions.deleted)
}
