package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type mockArchiveStore struct {
	entries   map[string]models.ArchiveEntry
	listCalls int
	downloads map[string]int
}

func (m *mockArchiveStore) FindByID(ctx context.Context, id string) (*models.ArchiveEntry, error) {
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockArchiveStore) List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, int, error) {
	m.listCalls++
	var out []models.ArchiveEntry
	for _, e := range m.entries {
		if filter.PublicOnly && !e.Public {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockArchiveStore) IncrementDownloads(ctx context.Context, id string) error {
	if m.downloads == nil {
		m.downloads = map[string]int{}
	}
	m.downloads[id]++
	return nil
}

func (m *mockArchiveStore) Years(ctx context.Context) ([]int, error) {
	return []int{2026, 2025}, nil
}

type mockCatalogCache struct {
	values map[string][]byte
	sets   int
}

func (m *mockCatalogCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *mockCatalogCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.values == nil {
		m.values = map[string][]byte{}
	}
	m.values[key] = data
	m.sets++
	return nil
}

type mockDownloadSigner struct {
	parseErr error
}

func (m *mockDownloadSigner) Generate(entryID, relPath string) (string, time.Time, error) {
	return "tok-" + entryID, time.Now().Add(15 * time.Minute), nil
}

func (m *mockDownloadSigner) Parse(token string, allowExpired bool) (string, string, time.Time, error) {
	if m.parseErr != nil {
		return "", "", time.Time{}, m.parseErr
	}
	return "entry-1", "archives/2026/memoire.pdf", time.Now().Add(10 * time.Minute), nil
}

type mockMemoirOpener struct {
	dir string
}

func (m *mockMemoirOpener) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(m.dir, filepath.Base(filename)))
}

func archiveFixtureEntries() map[string]models.ArchiveEntry {
	return map[string]models.ArchiveEntry{
		"entry-1": {
			ID:         "entry-1",
			Title:      "Détection d'anomalies réseau",
			Year:       2026,
			Mention:    models.MentionBien,
			FinalScore: 15.5,
			MemoirFile: "archives/2026/memoire.pdf",
			Public:     true,
		},
		"entry-2": {
			ID:     "entry-2",
			Title:  "Sujet confidentiel",
			Year:   2026,
			Public: false,
		},
	}
}

func TestBrowseCachesCatalogPage(t *testing.T) {
	store := &mockArchiveStore{entries: archiveFixtureEntries()}
	cache := &mockCatalogCache{}
	svc := NewArchiveService(store, cache, &mockDownloadSigner{}, &mockMemoirOpener{}, time.Minute, zap.NewNop())

	entries, pagination, err := svc.Browse(context.Background(), dto.CatalogQuery{Year: 2026})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, cache.sets)

	entries, _, err = svc.Browse(context.Background(), dto.CatalogQuery{Year: 2026})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, store.listCalls)
}

func TestGetHidesPrivateEntries(t *testing.T) {
	store := &mockArchiveStore{entries: archiveFixtureEntries()}
	svc := NewArchiveService(store, &mockCatalogCache{}, &mockDownloadSigner{}, &mockMemoirOpener{}, time.Minute, zap.NewNop())

	_, err := svc.Get(context.Background(), "entry-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDownloadLinkSignsMemoirPath(t *testing.T) {
	store := &mockArchiveStore{entries: archiveFixtureEntries()}
	svc := NewArchiveService(store, &mockCatalogCache{}, &mockDownloadSigner{}, &mockMemoirOpener{}, time.Minute, zap.NewNop())

	link, err := svc.DownloadLink(context.Background(), "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/catalog/download?token=tok-entry-1", link.URL)
	assert.NotEmpty(t, link.ExpiresAt)
}

func TestResolveDownloadCountsAndOpensFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memoire.pdf"), []byte("%PDF-1.4"), 0o644))

	store := &mockArchiveStore{entries: archiveFixtureEntries()}
	svc := NewArchiveService(store, &mockCatalogCache{}, &mockDownloadSigner{}, &mockMemoirOpener{dir: dir}, time.Minute, zap.NewNop())

	file, entry, err := svc.ResolveDownload(context.Background(), "tok-entry-1")
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "entry-1", entry.ID)
	assert.Equal(t, 1, store.downloads["entry-1"])
}

func TestResolveDownloadRejectsMismatchedPath(t *testing.T) {
	entries := archiveFixtureEntries()
	e := entries["entry-1"]
	e.MemoirFile = "archives/2026/autre.pdf"
	entries["entry-1"] = e

	store := &mockArchiveStore{entries: entries}
	svc := NewArchiveService(store, &mockCatalogCache{}, &mockDownloadSigner{}, &mockMemoirOpener{}, time.Minute, zap.NewNop())

	_, _, err := svc.ResolveDownload(context.Background(), "tok-entry-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
