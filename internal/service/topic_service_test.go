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

type mockTopicStore struct {
	topics    map[string]models.Topic
	created   *models.Topic
	reviewed  models.TopicStatus
	lastFiler models.TopicFilter
}

func (m *mockTopicStore) FindByID(ctx context.Context, id string) (*models.Topic, error) {
	if topic, ok := m.topics[id]; ok {
		return &topic, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTopicStore) FindDetailByID(ctx context.Context, id string) (*models.TopicDetail, error) {
	if topic, ok := m.topics[id]; ok {
		return &models.TopicDetail{Topic: topic, SupervisorName: "Pr. Ndiaye"}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTopicStore) List(ctx context.Context, filter models.TopicFilter) ([]models.TopicDetail, int, error) {
	m.lastFiler = filter
	var out []models.TopicDetail
	for _, topic := range m.topics {
		if filter.Status != "" && topic.Status != filter.Status {
			continue
		}
		if filter.Level != "" && topic.Level != filter.Level {
			continue
		}
		if filter.OnlyFree && !topic.HasFreeSeat() {
			continue
		}
		out = append(out, models.TopicDetail{Topic: topic})
	}
	return out, len(out), nil
}

func (m *mockTopicStore) Create(ctx context.Context, topic *models.Topic) error {
	topic.ID = "topic-new"
	m.created = topic
	return nil
}

func (m *mockTopicStore) Review(ctx context.Context, id string, status models.TopicStatus, note string) error {
	m.reviewed = status
	return nil
}

func newTopicFixture(store *mockTopicStore) *TopicService {
	supervisors := &mockDossierSupervisors{byUser: map[string]models.Supervisor{
		"user-supervisor": {ID: "sup-1"},
	}}
	return NewTopicService(store, supervisors, nil, zap.NewNop())
}

func validProposeRequest() dto.ProposeTopicRequest {
	return dto.ProposeTopicRequest{
		Title:       "Détection d'intrusions par apprentissage",
		Description: "Conception d'un système de détection d'intrusions fondé sur l'apprentissage automatique.",
		Level:       models.LevelM2,
		Keywords:    "sécurité, apprentissage",
		Capacity:    2,
	}
}

func TestProposeTopic(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{}}
	svc := newTopicFixture(store)

	topic, err := svc.Propose(context.Background(), "user-supervisor", validProposeRequest())
	require.NoError(t, err)
	assert.Equal(t, "topic-new", topic.ID)
	assert.Equal(t, "sup-1", topic.SupervisorID)
	assert.Equal(t, models.TopicProposed, topic.Status)
}

func TestProposeTopicRejectsNonSupervisor(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{}}
	svc := newTopicFixture(store)

	_, err := svc.Propose(context.Background(), "user-student", validProposeRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
}

func TestProposeTopicRejectsInvalidCapacity(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{}}
	svc := newTopicFixture(store)

	req := validProposeRequest()
	req.Capacity = 9
	_, err := svc.Propose(context.Background(), "user-supervisor", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewTopic(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{
		"topic-1": {ID: "topic-1", Status: models.TopicProposed},
	}}
	svc := newTopicFixture(store)

	topic, err := svc.Review(context.Background(), "topic-1", dto.ReviewTopicRequest{Approve: true, Comment: "Sujet pertinent"})
	require.NoError(t, err)
	assert.Equal(t, models.TopicApproved, topic.Status)
	assert.Equal(t, "Sujet pertinent", topic.ReviewNote)
	assert.Equal(t, models.TopicApproved, store.reviewed)
}

func TestReviewTopicTwice(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{
		"topic-1": {ID: "topic-1", Status: models.TopicApproved},
	}}
	svc := newTopicFixture(store)

	_, err := svc.Review(context.Background(), "topic-1", dto.ReviewTopicRequest{Approve: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestListOpenForLevelFiltersFullTopics(t *testing.T) {
	store := &mockTopicStore{topics: map[string]models.Topic{
		"topic-1": {ID: "topic-1", Status: models.TopicApproved, Level: models.LevelM2, Capacity: 2, Occupied: 1},
		"topic-2": {ID: "topic-2", Status: models.TopicApproved, Level: models.LevelM2, Capacity: 1, Occupied: 1},
		"topic-3": {ID: "topic-3", Status: models.TopicProposed, Level: models.LevelM2, Capacity: 2},
	}}
	svc := newTopicFixture(store)

	topics, err := svc.ListOpenForLevel(context.Background(), models.LevelM2)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "topic-1", topics[0].ID)
	assert.True(t, store.lastFiler.OnlyFree)
}
