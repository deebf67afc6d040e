package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/matchdayhq/media-service/pkg/errors"
	pkgkafka "github.com/matchdayhq/media-service/pkg/kafka"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/event"
	"github.com/matchdayhq/media-service/internal/profile"
	"github.com/matchdayhq/media-service/internal/repository"
	"github.com/matchdayhq/media-service/internal/storage"
	"github.com/matchdayhq/media-service/internal/storage/memory"
)

// --- Mock Repository ---

type mockMediaRepository struct {
	mock.Mock
}

func (m *mockMediaRepository) Create(ctx context.Context, record *domain.MediaRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) GetByShareToken(ctx context.Context, token string) (*domain.MediaRecord, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MediaRecord), args.Error(1)
}

func (m *mockMediaRepository) List(ctx context.Context, teamID string, filters repository.Filters, offset, limit int) ([]domain.MediaRecord, int, error) {
	args := m.Called(ctx, teamID, filters, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.MediaRecord), args.Int(1), args.Error(2)
}

func (m *mockMediaRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockMediaRepository) IncrementViewCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockMediaRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Object Store ---

type mockStore struct {
	mock.Mock
	provider domain.StorageProvider
}

func (m *mockStore) Put(ctx context.Context, input *storage.PutInput) (*storage.PutResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PutResult), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStore) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockStore) Provider() domain.StorageProvider {
	return m.provider
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo repository.MediaRepository, stores ...storage.ObjectStore) *MediaService {
	logger := newTestLogger()
	// Create a Kafka producer that will fail silently in tests (no real broker).
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	producer := event.NewProducer(kafkaProducer, logger)
	return NewMediaService(repo, storage.NewRouter(stores...), producer, nil, logger, 0)
}

func newMemoryStores() (*memory.Store, *memory.Store) {
	bucket := memory.New(domain.ProviderBucket, "http://localhost:9000/media")
	large := memory.New(domain.ProviderLargeObject, "http://localhost:9001/media")
	return bucket, large
}

func ingestInput(mediaType domain.MediaType, mimeType string) *IngestInput {
	return &IngestInput{
		UploaderID: "user-1",
		TeamID:     "team-1",
		Name:       "Matchday Highlights.mp4",
		MediaType:  mediaType,
		MimeType:   mimeType,
		SizeBytes:  1024,
		Data:       strings.NewReader("fake media data"),
	}
}

// --- Ingest ---

func TestIngest_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	bucket, large := newMemoryStores()
	svc := newTestService(repo, bucket, large)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.MediaRecord")).Return(nil)

	input := &IngestInput{
		UploaderID:  "user-1",
		TeamID:      "team-1",
		Name:        "Team Photo.jpg",
		Description: "Season opener",
		Source:      "upload",
		Tags:        []string{"season", "opener"},
		MediaType:   domain.MediaTypeImage,
		MimeType:    "image/jpeg",
		SizeBytes:   1024,
		Data:        strings.NewReader("fake image data"),
	}

	record, err := svc.Ingest(ctx, input)

	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "team-1", record.TeamID)
	assert.Equal(t, "user-1", record.UploaderID)
	assert.Equal(t, "Team Photo.jpg", record.Name)
	assert.Equal(t, domain.MediaTypeImage, record.MediaType)
	assert.Equal(t, ".jpg", record.Extension)
	assert.Equal(t, domain.ProviderBucket, record.StorageProvider)
	assert.Len(t, record.ShareToken, 43)
	assert.Zero(t, record.ViewCount)
	assert.Zero(t, record.DownloadCount)
	assert.NotZero(t, record.UploadedAt)
	assert.NotEmpty(t, record.URL)

	repo.AssertExpectations(t)
}

func TestIngest_RoutesVideoToLargeObjectStore(t *testing.T) {
	repo := new(mockMediaRepository)
	bucket, large := newMemoryStores()
	svc := newTestService(repo, bucket, large)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.MediaRecord")).Return(nil)

	record, err := svc.Ingest(ctx, ingestInput(domain.MediaTypeVideo, "video/mp4"))

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderLargeObject, record.StorageProvider)
	assert.Equal(t, 1, large.Len())
	assert.Equal(t, 0, bucket.Len())
}

func TestIngest_PreservesUploadedBytes(t *testing.T) {
	repo := new(mockMediaRepository)
	bucket, large := newMemoryStores()
	svc := newTestService(repo, bucket, large)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.MediaRecord")).Return(nil)

	payload := "exact bytes of the uploaded file"
	input := ingestInput(domain.MediaTypeDocument, "application/pdf")
	input.Name = "training-plan.pdf"
	input.Data = strings.NewReader(payload)

	record, err := svc.Ingest(ctx, input)

	require.NoError(t, err)
	reader, ok := bucket.Get(record.ObjectKey)
	require.True(t, ok)
	stored, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(stored))
}

func TestIngest_MissingIdentity(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	input := ingestInput(domain.MediaTypeImage, "image/png")
	input.UploaderID = ""

	record, err := svc.Ingest(ctx, input)

	assert.Nil(t, record)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	store.AssertNotCalled(t, "Put")
	repo.AssertNotCalled(t, "Create")
}

func TestIngest_ValidationFailuresPrecedeStorage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IngestInput)
	}{
		{"empty team id", func(in *IngestInput) { in.TeamID = "" }},
		{"empty file name", func(in *IngestInput) { in.Name = "" }},
		{"unknown media type", func(in *IngestInput) { in.MediaType = "archive" }},
		{"mime does not match type", func(in *IngestInput) { in.MimeType = "image/png" }},
		{"zero size", func(in *IngestInput) { in.SizeBytes = 0 }},
		{"exceeds max size", func(in *IngestInput) { in.SizeBytes = DefaultMaxUploadBytes + 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockMediaRepository)
			store := &mockStore{provider: domain.ProviderLargeObject}
			svc := newTestService(repo, store)

			input := ingestInput(domain.MediaTypeVideo, "video/mp4")
			tt.mutate(input)

			record, err := svc.Ingest(context.Background(), input)

			assert.Nil(t, record)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			store.AssertNotCalled(t, "Put")
			repo.AssertNotCalled(t, "Create")
		})
	}
}

func TestIngest_StorageError(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	store.On("Put", ctx, mock.AnythingOfType("*storage.PutInput")).
		Return(nil, errors.New("storage unavailable"))

	record, err := svc.Ingest(ctx, ingestInput(domain.MediaTypeImage, "image/jpeg"))

	assert.Nil(t, record)
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create")
}

func TestIngest_InsertFailureDeletesObject(t *testing.T) {
	repo := new(mockMediaRepository)
	bucket, large := newMemoryStores()
	svc := newTestService(repo, bucket, large)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.MediaRecord")).
		Return(errors.New("database unavailable"))

	record, err := svc.Ingest(ctx, ingestInput(domain.MediaTypeImage, "image/jpeg"))

	assert.Nil(t, record)
	assert.Error(t, err)
	assert.Equal(t, 0, bucket.Len())
	assert.Equal(t, 0, large.Len())
}

func TestIngest_CompensationFailureSurfacesInsertError(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	store.On("Put", ctx, mock.AnythingOfType("*storage.PutInput")).
		Return(&storage.PutResult{Key: "team-1/image/key", URL: "http://localhost:9000/media/key"}, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*domain.MediaRecord")).
		Return(errors.New("database unavailable"))
	store.On("Delete", ctx, mock.AnythingOfType("string")).
		Return(errors.New("storage unavailable"))

	record, err := svc.Ingest(ctx, ingestInput(domain.MediaTypeImage, "image/jpeg"))

	assert.Nil(t, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create media record")
	store.AssertExpectations(t)
}

// --- Remove ---

func sampleRecord() *domain.MediaRecord {
	return &domain.MediaRecord{
		ID:              "media-1",
		TeamID:          "team-1",
		UploaderID:      "user-1",
		Name:            "Team Photo.jpg",
		MediaType:       domain.MediaTypeImage,
		MimeType:        "image/jpeg",
		StorageProvider: domain.ProviderBucket,
		ObjectKey:       "team-1/image/media-1-team-photo.jpg",
		URL:             "http://localhost:9000/media/team-1/image/media-1-team-photo.jpg",
		ShareToken:      "token-1",
	}
}

func TestRemove_DeletesObjectThenRow(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	record := sampleRecord()
	repo.On("GetByID", ctx, record.ID).Return(record, nil)
	store.On("Delete", ctx, record.ObjectKey).Return(nil)
	repo.On("Delete", ctx, record.ID).Return(nil)

	err := svc.Remove(ctx, "user-1", record.ID)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestRemove_MissingIdentity(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)

	err := svc.Remove(context.Background(), "", "media-1")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	repo.AssertNotCalled(t, "GetByID")
	store.AssertNotCalled(t, "Delete")
}

func TestRemove_ObjectDeleteFailureKeepsRow(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	record := sampleRecord()
	repo.On("GetByID", ctx, record.ID).Return(record, nil)
	store.On("Delete", ctx, record.ObjectKey).Return(errors.New("storage unavailable"))

	err := svc.Remove(ctx, "user-1", record.ID)

	require.Error(t, err)
	repo.AssertNotCalled(t, "Delete")
}

func TestRemove_NotFound(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	repo.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	err := svc.Remove(ctx, "user-1", "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	store.AssertNotCalled(t, "Delete")
}

// --- Reads and counters ---

func TestGetByShareToken_CountsView(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	record := sampleRecord()
	record.ViewCount = 4
	repo.On("GetByShareToken", ctx, record.ShareToken).Return(record, nil)
	repo.On("IncrementViewCount", ctx, record.ID).Return(nil)

	got, err := svc.GetByShareToken(ctx, record.ShareToken)

	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ViewCount)
	repo.AssertExpectations(t)
}

func TestGetByShareToken_EmptyToken(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})

	_, err := svc.GetByShareToken(context.Background(), "")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "GetByShareToken")
}

func TestRecordView_NotFound(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})
	ctx := context.Background()

	repo.On("IncrementViewCount", ctx, "missing").Return(apperrors.NotFound("media_record", "missing"))

	err := svc.RecordView(ctx, "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDownloadURL_ResolvesAndCounts(t *testing.T) {
	repo := new(mockMediaRepository)
	store := &mockStore{provider: domain.ProviderBucket}
	svc := newTestService(repo, store)
	ctx := context.Background()

	record := sampleRecord()
	repo.On("GetByID", ctx, record.ID).Return(record, nil)
	store.On("URL", ctx, record.ObjectKey).Return(record.URL, nil)
	repo.On("IncrementDownloadCount", ctx, record.ID).Return(nil)

	url, err := svc.DownloadURL(ctx, record.ID)

	require.NoError(t, err)
	assert.Equal(t, record.URL, url)
	repo.AssertExpectations(t)
}

// countingRepo is a race-safe fake used to exercise concurrent counter calls.
type countingRepo struct {
	mockMediaRepository

	mu    sync.Mutex
	views int64
}

func (r *countingRepo) IncrementViewCount(_ context.Context, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views++
	return nil
}

func TestRecordView_Concurrent(t *testing.T) {
	repo := &countingRepo{}
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_ = svc.RecordView(ctx, "media-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(callers), repo.views)
}

// --- List ---

type fakeProfiles struct {
	profiles map[string]profile.UploaderProfile
}

func (f *fakeProfiles) GetBatch(_ context.Context, _ []string) map[string]profile.UploaderProfile {
	return f.profiles
}

func TestList_EnrichesUploaders(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})
	svc.profiles = &fakeProfiles{profiles: map[string]profile.UploaderProfile{
		"user-1": {ID: "user-1", DisplayName: "Alex Coach"},
	}}
	ctx := context.Background()

	records := []domain.MediaRecord{
		{ID: "media-1", TeamID: "team-1", UploaderID: "user-1"},
		{ID: "media-2", TeamID: "team-1", UploaderID: "user-2"},
	}
	repo.On("List", ctx, "team-1", repository.Filters{}, 0, 20).Return(records, 2, nil)

	items, total, err := svc.List(ctx, "team-1", repository.Filters{}, 0, 20)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, total)
	require.NotNil(t, items[0].Uploader)
	assert.Equal(t, "Alex Coach", items[0].Uploader.DisplayName)
	assert.Nil(t, items[1].Uploader)
}

func TestList_WithoutResolver(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})
	ctx := context.Background()

	repo.On("List", ctx, "team-1", repository.Filters{}, 0, 20).
		Return([]domain.MediaRecord{{ID: "media-1", UploaderID: "user-1"}}, 1, nil)

	items, total, err := svc.List(ctx, "team-1", repository.Filters{}, 0, 20)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Nil(t, items[0].Uploader)
}

func TestList_EmptyTeamID(t *testing.T) {
	repo := new(mockMediaRepository)
	svc := newTestService(repo, &mockStore{provider: domain.ProviderBucket})

	_, _, err := svc.List(context.Background(), "", repository.Filters{}, 0, 20)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "List")
}
