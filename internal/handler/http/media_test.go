package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/matchdayhq/media-service/pkg/errors"
	"github.com/matchdayhq/media-service/pkg/health"
	"github.com/matchdayhq/media-service/pkg/httputil"
	pkgkafka "github.com/matchdayhq/media-service/pkg/kafka"
	"github.com/matchdayhq/media-service/pkg/middleware"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/event"
	"github.com/matchdayhq/media-service/internal/repository"
	"github.com/matchdayhq/media-service/internal/service"
	"github.com/matchdayhq/media-service/internal/storage"
	"github.com/matchdayhq/media-service/internal/storage/memory"
)

// Ensure interfaces are satisfied at compile time.
var _ repository.MediaRepository = (*mockMediaRepository)(nil)

// --- Mock MediaRepository ---

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

// --- Test Helpers ---

const (
	testMediaID = "550e8400-e29b-41d4-a716-446655440001"
	testTeamID  = "550e8400-e29b-41d4-a716-446655440002"
	testActorID = "550e8400-e29b-41d4-a716-446655440003"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

func newTestRouter(repo repository.MediaRepository) (http.Handler, *memory.Store, *memory.Store) {
	bucket := memory.New(domain.ProviderBucket, "http://localhost:9000/media")
	large := memory.New(domain.ProviderLargeObject, "http://localhost:9001/media")
	svc := service.NewMediaService(repo, storage.NewRouter(bucket, large), testEventProducer(), nil, testLogger(), 0)
	router := NewRouter(svc, health.NewHandler(), testLogger(), RouterConfig{CORS: middleware.DefaultCORSConfig()})
	return router, bucket, large
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func sampleRecord() *domain.MediaRecord {
	return &domain.MediaRecord{
		ID:              testMediaID,
		TeamID:          testTeamID,
		UploaderID:      testActorID,
		Name:            "Team Photo.jpg",
		MediaType:       domain.MediaTypeImage,
		MimeType:        "image/jpeg",
		StorageProvider: domain.ProviderBucket,
		ObjectKey:       testTeamID + "/image/photo.jpg",
		URL:             "http://localhost:9000/media/" + testTeamID + "/image/photo.jpg",
		ShareToken:      "share-token-1",
	}
}

// --- Upload ---

func TestUpload_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, bucket, _ := newTestRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.MediaRecord")).Return(nil)

	body, contentType := multipartBody(t, map[string]string{
		"team_id":     testTeamID,
		"media_type":  "image",
		"description": "Season opener",
		"source":      "upload",
		"tags":        "season, opener",
	}, "Team Photo.jpg", "image/jpeg", "fake image data")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, testTeamID, data["team_id"])
	assert.Equal(t, testActorID, data["uploader_id"])
	assert.Equal(t, string(domain.ProviderBucket), data["storage_provider"])
	assert.Len(t, data["share_token"], 43)
	assert.Equal(t, 1, bucket.Len())
	repo.AssertExpectations(t)
}

func TestUpload_MissingIdentity(t *testing.T) {
	repo := new(mockMediaRepository)
	router, bucket, _ := newTestRouter(repo)

	body, contentType := multipartBody(t, map[string]string{
		"team_id":    testTeamID,
		"media_type": "image",
	}, "photo.jpg", "image/jpeg", "fake image data")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, bucket.Len())
	repo.AssertNotCalled(t, "Create")
}

func TestUpload_MissingFile(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("team_id", testTeamID))
	require.NoError(t, w.WriteField("media_type", "image"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_InvalidTeamID(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	body, contentType := multipartBody(t, map[string]string{
		"team_id":    "not-a-uuid",
		"media_type": "image",
	}, "photo.jpg", "image/jpeg", "fake image data")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestUpload_RoutesVideoToLargeObjectStore(t *testing.T) {
	repo := new(mockMediaRepository)
	router, bucket, large := newTestRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.MediaRecord")).Return(nil)

	body, contentType := multipartBody(t, map[string]string{
		"team_id":    testTeamID,
		"media_type": "video",
	}, "highlights.mp4", "video/mp4", "fake video data")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, large.Len())
	assert.Equal(t, 0, bucket.Len())
}

// --- Get ---

func TestGet_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	repo.On("GetByID", mock.Anything, testMediaID).Return(sampleRecord(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+testMediaID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, testMediaID, data["id"])
}

func TestGet_InvalidID(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "GetByID")
}

func TestGet_NotFound(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	repo.On("GetByID", mock.Anything, testMediaID).Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+testMediaID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- List ---

func TestList_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	records := []domain.MediaRecord{*sampleRecord(), *sampleRecord()}
	records[1].ID = "550e8400-e29b-41d4-a716-446655440009"
	repo.On("List", mock.Anything, testTeamID, repository.Filters{MediaType: domain.MediaTypeImage}, 0, 20).
		Return(records, 2, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?team_id="+testTeamID+"&media_type=image", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		TotalCount int               `json:"total_count"`
		Page       int               `json:"page"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, 1, resp.Page)
	repo.AssertExpectations(t)
}

func TestList_PaginationReachesRepository(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	// page=3&per_page=5 must translate into offset 10, limit 5 at the
	// repository, and the response total must come from the repository's
	// count, not from the page length.
	repo.On("List", mock.Anything, testTeamID, repository.Filters{}, 10, 5).
		Return([]domain.MediaRecord{*sampleRecord()}, 42, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?team_id="+testTeamID+"&page=3&per_page=5", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		TotalCount int               `json:"total_count"`
		Page       int               `json:"page"`
		TotalPages int               `json:"total_pages"`
		HasNext    bool              `json:"has_next"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 42, resp.TotalCount)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 9, resp.TotalPages)
	assert.True(t, resp.HasNext)
	repo.AssertExpectations(t)
}

func TestList_MissingTeamID(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "List")
}

func TestList_UnknownMediaTypeFilter(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?team_id="+testTeamID+"&media_type=archive", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "List")
}

// --- Delete ---

func TestDelete_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, bucket, _ := newTestRouter(repo)

	record := sampleRecord()
	_, err := bucket.Put(context.Background(), &storage.PutInput{
		Key:         record.ObjectKey,
		ContentType: record.MimeType,
		Data:        strings.NewReader("fake image data"),
	})
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, testMediaID).Return(record, nil)
	repo.On("Delete", mock.Anything, testMediaID).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/"+testMediaID, nil)
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, bucket.Len())
	repo.AssertExpectations(t)
}

func TestDelete_ObjectDeleteFailureKeepsRow(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	// Object key is absent from the store, so the object delete fails.
	repo.On("GetByID", mock.Anything, testMediaID).Return(sampleRecord(), nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/"+testMediaID, nil)
	req.Header.Set("X-Actor-ID", testActorID)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	repo.AssertNotCalled(t, "Delete")
}

func TestDelete_MissingIdentity(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/"+testMediaID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	repo.AssertNotCalled(t, "GetByID")
}

// --- Counters ---

func TestRecordView_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	repo.On("IncrementViewCount", mock.Anything, testMediaID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/"+testMediaID+"/view", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestRecordView_NotFound(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	repo.On("IncrementViewCount", mock.Anything, testMediaID).
		Return(apperrors.NotFound("media_record", testMediaID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/"+testMediaID+"/view", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownload_ResolvesURLAndCounts(t *testing.T) {
	repo := new(mockMediaRepository)
	router, bucket, _ := newTestRouter(repo)

	record := sampleRecord()
	_, err := bucket.Put(context.Background(), &storage.PutInput{
		Key:         record.ObjectKey,
		ContentType: record.MimeType,
		Data:        strings.NewReader("fake image data"),
	})
	require.NoError(t, err)

	repo.On("GetByID", mock.Anything, testMediaID).Return(record, nil)
	repo.On("IncrementDownloadCount", mock.Anything, testMediaID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/"+testMediaID+"/download", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Contains(t, data["url"], record.ObjectKey)
	repo.AssertExpectations(t)
}

// --- Shared access ---

func TestGetShared_Success(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	record := sampleRecord()
	repo.On("GetByShareToken", mock.Anything, record.ShareToken).Return(record, nil)
	repo.On("IncrementViewCount", mock.Anything, record.ID).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/shared/"+record.ShareToken, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, record.ID, data["id"])
}

func TestGetShared_NotFound(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	repo.On("GetByShareToken", mock.Anything, "unknown-token").Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/shared/unknown-token", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Middleware ---

func TestContentTypeJSON_RejectsUnsupported(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", strings.NewReader("plain text"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	repo := new(mockMediaRepository)
	router, _, _ := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
