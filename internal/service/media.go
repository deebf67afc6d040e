package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/matchdayhq/media-service/pkg/errors"
	"github.com/matchdayhq/media-service/pkg/slug"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/event"
	"github.com/matchdayhq/media-service/internal/profile"
	"github.com/matchdayhq/media-service/internal/repository"
	"github.com/matchdayhq/media-service/internal/storage"
)

// DefaultMaxUploadBytes caps uploads when no explicit limit is configured.
const DefaultMaxUploadBytes int64 = 1 << 30 // 1 GiB

// orphanedObjectsTotal counts objects left behind when the compensating
// delete after a failed metadata insert also fails. Any non-zero value means
// a storage leak that needs manual cleanup.
var orphanedObjectsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "media_orphaned_objects_total",
	Help: "Objects stranded in storage after both the metadata insert and the compensating delete failed",
})

// ProfileResolver looks up uploader display attributes. Lookups are
// best-effort; missing ids are simply absent from the result.
type ProfileResolver interface {
	GetBatch(ctx context.Context, uploaderIDs []string) map[string]profile.UploaderProfile
}

// MediaService is the ingestion coordinator: the only component that
// creates, deletes, or increments a media record. It owns the invariant
// that the record and its stored object rise and fall together.
type MediaService struct {
	repo           repository.MediaRepository
	router         *storage.Router
	producer       *event.Producer
	profiles       ProfileResolver
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewMediaService creates a new media service. A nil profiles resolver
// disables uploader enrichment; maxUploadBytes <= 0 selects the default cap.
func NewMediaService(
	repo repository.MediaRepository,
	router *storage.Router,
	producer *event.Producer,
	profiles ProfileResolver,
	logger *slog.Logger,
	maxUploadBytes int64,
) *MediaService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &MediaService{
		repo:           repo,
		router:         router,
		producer:       producer,
		profiles:       profiles,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// IngestInput holds the parameters for ingesting a media file.
type IngestInput struct {
	UploaderID  string
	TeamID      string
	Name        string
	Description string
	Source      string
	Tags        []string
	MediaType   domain.MediaType
	MimeType    string
	SizeBytes   int64
	Data        io.Reader
}

// MediaItem is a media record annotated with uploader display attributes.
type MediaItem struct {
	domain.MediaRecord
	Uploader *profile.UploaderProfile `json:"uploader,omitempty"`
}

// Ingest validates the input, writes the object to the backend selected by
// media type, and inserts the metadata row. If the insert fails the object
// is deleted again so no orphan survives a failed creation.
func (s *MediaService) Ingest(ctx context.Context, input *IngestInput) (*domain.MediaRecord, error) {
	// Identity check precedes all I/O.
	if input.UploaderID == "" {
		return nil, apperrors.Unauthorized("authenticated identity required to upload media")
	}

	if err := s.validateIngest(input); err != nil {
		return nil, err
	}

	store, err := s.router.ForMediaType(input.MediaType)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(input.Name))
	base := strings.TrimSuffix(input.Name, filepath.Ext(input.Name))
	key := fmt.Sprintf("%s/%s/%s-%s%s", input.TeamID, input.MediaType, id, slug.Generate(base), ext)

	result, err := store.Put(ctx, &storage.PutInput{
		Key:         key,
		ContentType: input.MimeType,
		Size:        input.SizeBytes,
		Data:        input.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	token, err := domain.NewShareToken()
	if err != nil {
		s.compensate(ctx, store, key)
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	record := &domain.MediaRecord{
		ID:              id,
		TeamID:          input.TeamID,
		UploaderID:      input.UploaderID,
		Name:            input.Name,
		Description:     input.Description,
		MediaType:       input.MediaType,
		MimeType:        input.MimeType,
		Extension:       ext,
		SizeBytes:       input.SizeBytes,
		Source:          input.Source,
		StorageProvider: store.Provider(),
		ObjectKey:       result.Key,
		URL:             result.URL,
		ShareToken:      token,
		Tags:            input.Tags,
		ViewCount:       0,
		DownloadCount:   0,
		UploadedAt:      time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.compensate(ctx, store, key)
		return nil, fmt.Errorf("create media record: %w", err)
	}

	// Publish event; errors are logged but do not fail the operation.
	if err := s.producer.PublishMediaUploaded(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.uploaded event",
			slog.String("media_id", record.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "media ingested",
		slog.String("media_id", record.ID),
		slog.String("team_id", record.TeamID),
		slog.String("media_type", string(record.MediaType)),
		slog.String("storage_provider", string(record.StorageProvider)),
		slog.Int64("size_bytes", record.SizeBytes),
	)

	return record, nil
}

// compensate removes an object written before a later step failed. Its own
// failure strands the object with no record pointing at it, so it is logged
// at error level and counted.
func (s *MediaService) compensate(ctx context.Context, store storage.ObjectStore, key string) {
	if err := store.Delete(ctx, key); err != nil {
		orphanedObjectsTotal.Inc()
		s.logger.ErrorContext(ctx, "ORPHANED OBJECT: compensating delete failed, object has no metadata record",
			slog.String("storage_provider", string(store.Provider())),
			slog.String("object_key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MediaService) validateIngest(input *IngestInput) error {
	if input.TeamID == "" {
		return apperrors.InvalidInput("team id is required")
	}
	if input.Name == "" {
		return apperrors.InvalidInput("file name is required")
	}
	if !domain.IsValidMediaType(input.MediaType) {
		return apperrors.InvalidInput(fmt.Sprintf("media type %q is not supported", input.MediaType))
	}
	if !domain.MatchesMediaType(input.MediaType, input.MimeType) {
		return apperrors.InvalidInput(fmt.Sprintf("mime type %q does not match media type %q", input.MimeType, input.MediaType))
	}
	if input.SizeBytes <= 0 {
		return apperrors.InvalidInput("file size must be greater than zero")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return apperrors.InvalidInput(fmt.Sprintf("file size %d exceeds maximum allowed size of %d bytes", input.SizeBytes, s.maxUploadBytes))
	}
	return nil
}

// Remove deletes the object first and the row second. A failed object
// delete aborts the operation with the row untouched: a row pointing at a
// missing object is detectable and retryable, an object with no row is a
// silent leak.
func (s *MediaService) Remove(ctx context.Context, actorID, id string) error {
	// Identity check precedes all I/O. Row-level delete permission is
	// enforced by the platform's policy layer, not re-checked here.
	if actorID == "" {
		return apperrors.Unauthorized("authenticated identity required to delete media")
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get media for delete: %w", err)
	}

	store, err := s.router.ByProvider(record.StorageProvider)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, record.ObjectKey); err != nil {
		s.logger.ErrorContext(ctx, "object delete failed, keeping metadata row",
			slog.String("media_id", id),
			slog.String("object_key", record.ObjectKey),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("delete object: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete media record: %w", err)
	}

	// Publish event; errors are logged but do not fail the operation.
	if err := s.producer.PublishMediaDeleted(ctx, id, record.TeamID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.deleted event",
			slog.String("media_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "media removed",
		slog.String("media_id", id),
		slog.String("team_id", record.TeamID),
	)

	return nil
}

// Get retrieves a media record by its ID.
func (s *MediaService) Get(ctx context.Context, id string) (*domain.MediaRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get media by id: %w", err)
	}
	return record, nil
}

// GetByShareToken retrieves a media record by its share token and counts
// the access as a view.
func (s *MediaService) GetByShareToken(ctx context.Context, token string) (*domain.MediaRecord, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("share token is required")
	}

	record, err := s.repo.GetByShareToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get media by share token: %w", err)
	}

	if err := s.repo.IncrementViewCount(ctx, record.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to count shared view",
			slog.String("media_id", record.ID),
			slog.String("error", err.Error()),
		)
	} else {
		record.ViewCount++
	}

	return record, nil
}

// RecordView atomically adds one to the record's view count.
func (s *MediaService) RecordView(ctx context.Context, id string) error {
	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// RecordDownload atomically adds one to the record's download count.
func (s *MediaService) RecordDownload(ctx context.Context, id string) error {
	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	return nil
}

// DownloadURL returns the object URL for a record and counts the download.
func (s *MediaService) DownloadURL(ctx context.Context, id string) (string, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get media for download: %w", err)
	}

	store, err := s.router.ByProvider(record.StorageProvider)
	if err != nil {
		return "", err
	}

	url, err := store.URL(ctx, record.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("resolve object url: %w", err)
	}

	if err := s.repo.IncrementDownloadCount(ctx, id); err != nil {
		return "", fmt.Errorf("increment download count: %w", err)
	}

	return url, nil
}

// List returns one page of the team's media newest first, along with the
// total match count, each item annotated with uploader display attributes
// when the profile service can supply them. Enrichment failures degrade to
// bare records, never to a failed list.
func (s *MediaService) List(ctx context.Context, teamID string, filters repository.Filters, offset, limit int) ([]MediaItem, int, error) {
	if teamID == "" {
		return nil, 0, apperrors.InvalidInput("team id is required")
	}

	records, total, err := s.repo.List(ctx, teamID, filters, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list media: %w", err)
	}

	items := make([]MediaItem, len(records))
	for i, r := range records {
		items[i] = MediaItem{MediaRecord: r}
	}

	if s.profiles == nil || len(records) == 0 {
		return items, total, nil
	}

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UploaderID)
	}

	resolved := s.profiles.GetBatch(ctx, ids)
	for i := range items {
		if p, ok := resolved[items[i].UploaderID]; ok {
			cp := p
			items[i].Uploader = &cp
		}
	}

	return items, total, nil
}
