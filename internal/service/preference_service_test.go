package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type mockPreferenceStore struct {
	pending   map[string][]models.Assignment
	confirmed map[string]models.Assignment
	replaced  []models.Assignment
}

func (m *mockPreferenceStore) ListPendingByStudent(ctx context.Context, studentID string) ([]models.Assignment, error) {
	return m.pending[studentID], nil
}

func (m *mockPreferenceStore) FindConfirmedByStudent(ctx context.Context, studentID string) (*models.Assignment, error) {
	if a, ok := m.confirmed[studentID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPreferenceStore) ReplacePreferences(ctx context.Context, studentID string, prefs []models.Assignment) error {
	m.replaced = prefs
	return nil
}

type mockStudentLookup struct {
	students map[string]models.Student
}

func (m *mockStudentLookup) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.students[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockTopicLookup struct {
	topics map[string]models.Topic
}

func (m *mockTopicLookup) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	if t, ok := m.topics[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func newPreferenceFixture() (*PreferenceService, *mockPreferenceStore, *mockTopicLookup) {
	store := &mockPreferenceStore{confirmed: map[string]models.Assignment{}}
	students := &mockStudentLookup{students: map[string]models.Student{
		"user-1": {ID: "student-1", UserID: "user-1", Level: models.LevelM2, Status: models.StudentAwaitingTopic},
	}}
	topics := &mockTopicLookup{topics: map[string]models.Topic{
		"topic-1": {ID: "topic-1", SupervisorID: "sup-1", Level: models.LevelM2, Capacity: 2, Occupied: 0, Status: models.TopicApproved},
		"topic-2": {ID: "topic-2", SupervisorID: "sup-2", Level: models.LevelM2, Capacity: 1, Occupied: 0, Status: models.TopicApproved},
		"topic-3": {ID: "topic-3", SupervisorID: "sup-1", Level: models.LevelM1, Capacity: 1, Occupied: 0, Status: models.TopicApproved},
		"topic-4": {ID: "topic-4", SupervisorID: "sup-2", Level: models.LevelM2, Capacity: 1, Occupied: 1, Status: models.TopicApproved},
	}}
	svc := NewPreferenceService(store, students, topics, nil, zap.NewNop())
	return svc, store, topics
}

func TestChooseTopicsRecordsRanks(t *testing.T) {
	svc, store, _ := newPreferenceFixture()

	prefs, err := svc.ChooseTopics(context.Background(), "user-1", dto.ChooseTopicsRequest{
		TopicIDs: []string{"topic-2", "topic-1"},
	})
	require.NoError(t, err)
	require.Len(t, prefs, 2)
	assert.Equal(t, 1, prefs[0].Rank)
	assert.Equal(t, "topic-2", prefs[0].TopicID)
	assert.Equal(t, "sup-2", prefs[0].SupervisorID)
	assert.Equal(t, 2, prefs[1].Rank)
	assert.Equal(t, store.replaced, prefs)
}

func TestChooseTopicsRejectsLevelMismatch(t *testing.T) {
	svc, _, _ := newPreferenceFixture()

	_, err := svc.ChooseTopics(context.Background(), "user-1", dto.ChooseTopicsRequest{
		TopicIDs: []string{"topic-3"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChooseTopicsRejectsFullTopic(t *testing.T) {
	svc, _, _ := newPreferenceFixture()

	_, err := svc.ChooseTopics(context.Background(), "user-1", dto.ChooseTopicsRequest{
		TopicIDs: []string{"topic-4"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestChooseTopicsRejectsAssignedStudent(t *testing.T) {
	svc, store, _ := newPreferenceFixture()
	store.confirmed["student-1"] = models.Assignment{ID: "assign-1", Status: models.AssignmentConfirmed}

	_, err := svc.ChooseTopics(context.Background(), "user-1", dto.ChooseTopicsRequest{
		TopicIDs: []string{"topic-1"},
	})
	require.ErrorIs(t, err, appErrors.ErrAlreadyAssigned)
}

func TestChooseTopicsRejectsTooMany(t *testing.T) {
	svc, _, _ := newPreferenceFixture()

	_, err := svc.ChooseTopics(context.Background(), "user-1", dto.ChooseTopicsRequest{
		TopicIDs: []string{"topic-1", "topic-2", "topic-3", "topic-4"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
