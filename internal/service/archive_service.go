package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/memoire-api/internal/dto"
	"github.com/noah-isme/memoire-api/internal/models"
	appErrors "github.com/noah-isme/memoire-api/pkg/errors"
)

type archiveStore interface {
	FindByID(ctx context.Context, id string) (*models.ArchiveEntry, error)
	List(ctx context.Context, filter models.ArchiveFilter) ([]models.ArchiveEntry, int, error)
	IncrementDownloads(ctx context.Context, id string) error
	Years(ctx context.Context) ([]int, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type downloadSigner interface {
	Generate(entryID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (entryID, relPath string, expiresAt time.Time, err error)
}

type memoirOpener interface {
	Open(filename string) (*os.File, error)
}

type catalogMetrics interface {
	RecordCatalogLookup(hit bool)
}

type catalogPage struct {
	Entries    []models.ArchiveEntry `json:"entries"`
	Pagination models.Pagination     `json:"pagination"`
}

// ArchiveService exposes the memoir catalog. Public browsing is cached in
// Redis because the catalog only changes when a defense is finalized;
// downloads go through signed expiring tokens so memoir files are never
// served from a guessable path.
type ArchiveService struct {
	entries  archiveStore
	cache    catalogCache
	signer   downloadSigner
	store    memoirOpener
	metrics  catalogMetrics
	cacheTTL time.Duration
	logger   *zap.Logger
}

// WithMetrics attaches an instrumentation sink.
func (s *ArchiveService) WithMetrics(metrics catalogMetrics) *ArchiveService {
	s.metrics = metrics
	return s
}

// NewArchiveService constructs the service.
func NewArchiveService(entries archiveStore, cache catalogCache, signer downloadSigner, store memoirOpener, cacheTTL time.Duration, logger *zap.Logger) *ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ArchiveService{entries: entries, cache: cache, signer: signer, store: store, cacheTTL: cacheTTL, logger: logger}
}

// Browse returns public catalog entries, served from cache when possible.
func (s *ArchiveService) Browse(ctx context.Context, query dto.CatalogQuery) ([]models.ArchiveEntry, *models.Pagination, error) {
	filter := models.ArchiveFilter{
		Year:       query.Year,
		Level:      query.Level,
		Program:    query.Program,
		Mention:    query.Mention,
		Search:     query.Search,
		PublicOnly: true,
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}

	key := catalogCacheKey(filter)
	if s.cache != nil {
		var cached catalogPage
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCatalogLookup(true)
			}
			return cached.Entries, &cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCatalogLookup(false)
		}
	}

	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to browse catalog")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, catalogPage{Entries: entries, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return entries, &pagination, nil
}

// Get returns one public catalog entry.
func (s *ArchiveService) Get(ctx context.Context, entryID string) (*models.ArchiveEntry, error) {
	entry, err := s.entries.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "archive entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load archive entry")
	}
	if !entry.Public {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "archive entry not found")
	}
	return entry, nil
}

// Years returns the distinct years of the public catalog.
func (s *ArchiveService) Years(ctx context.Context) ([]int, error) {
	years, err := s.entries.Years(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog years")
	}
	return years, nil
}

// DownloadLink issues a signed expiring token for a memoir file.
func (s *ArchiveService) DownloadLink(ctx context.Context, entryID string) (*dto.DownloadLink, error) {
	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.MemoirFile == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no memoir file archived for this entry")
	}

	token, expiresAt, err := s.signer.Generate(entry.ID, entry.MemoirFile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.DownloadLink{
		URL:       fmt.Sprintf("/api/v1/catalog/download?token=%s", token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// ResolveDownload validates a signed token, bumps the download counter and
// opens the memoir file for streaming. The caller owns the returned handle.
func (s *ArchiveService) ResolveDownload(ctx context.Context, token string) (*os.File, *models.ArchiveEntry, error) {
	entryID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}

	entry, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	if entry.MemoirFile != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "download link does not match the archived file")
	}

	file, err := s.store.Open(entry.MemoirFile)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open memoir file")
	}

	if err := s.entries.IncrementDownloads(ctx, entry.ID); err != nil {
		s.logger.Warn("failed to count download", zap.String("entry_id", entry.ID), zap.Error(err))
	}
	return file, entry, nil
}

func catalogCacheKey(filter models.ArchiveFilter) string {
	return fmt.Sprintf("catalog:%d:%s:%s:%s:%s:%d:%d:%s:%s",
		filter.Year, filter.Level, filter.Program, filter.Mention, filter.Search,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
