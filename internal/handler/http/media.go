package http

import (
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matchdayhq/media-service/pkg/httputil"
	"github.com/matchdayhq/media-service/pkg/middleware"
	"github.com/matchdayhq/media-service/pkg/pagination"
	"github.com/matchdayhq/media-service/pkg/validator"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/repository"
	"github.com/matchdayhq/media-service/internal/service"
)

// MediaHandler handles HTTP requests for media endpoints.
type MediaHandler struct {
	service        *service.MediaService
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewMediaHandler creates a new media HTTP handler.
func NewMediaHandler(svc *service.MediaService, logger *slog.Logger, maxUploadBytes int64) *MediaHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxUploadBytes
	}
	return &MediaHandler{
		service:        svc,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// uploadForm carries the non-file fields of the upload form.
type uploadForm struct {
	TeamID    string `validate:"required,uuid4"`
	MediaType string `validate:"required,oneof=video image audio document"`
}

// Upload handles POST /api/v1/media (multipart/form-data).
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Parse multipart form with max file size limit.
	maxSize := h.maxUploadBytes + (1 << 20) // Add 1MB overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "file is required: " + err.Error()},
		})
		return
	}
	defer file.Close()

	form := uploadForm{
		TeamID:    r.FormValue("team_id"),
		MediaType: r.FormValue("media_type"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	input := &service.IngestInput{
		UploaderID:  middleware.ActorIDFromContext(r.Context()),
		TeamID:      form.TeamID,
		Name:        header.Filename,
		Description: r.FormValue("description"),
		Source:      r.FormValue("source"),
		Tags:        tags,
		MediaType:   domain.MediaType(form.MediaType),
		MimeType:    contentType,
		SizeBytes:   header.Size,
		Data:        file,
	}

	record, err := h.service.Ingest(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: record})
}

// Get handles GET /api/v1/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	record, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

// List handles GET /api/v1/media?team_id=...
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	teamID, ok := httputil.ParseUUID(w, r.URL.Query().Get("team_id"))
	if !ok {
		return
	}

	filters := repository.Filters{
		MediaType: domain.MediaType(r.URL.Query().Get("media_type")),
		Source:    r.URL.Query().Get("source"),
		Search:    r.URL.Query().Get("search"),
	}
	if filters.MediaType != "" && !domain.IsValidMediaType(filters.MediaType) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "unknown media type: " + string(filters.MediaType)},
		})
		return
	}

	params := pagination.FromRequest(r)

	items, total, err := h.service.List(r.Context(), teamID.String(), filters, params.Offset, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(items, total, params))
}

// Delete handles DELETE /api/v1/media/{id}.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), middleware.ActorIDFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}

// RecordView handles POST /api/v1/media/{id}/view.
func (h *MediaHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.RecordView(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "view_counted"}})
}

// Download handles POST /api/v1/media/{id}/download. It returns the object
// URL and counts the download.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	url, err := h.service.DownloadURL(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "url": url}})
}

// GetShared handles GET /api/v1/media/shared/{token}.
func (h *MediaHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "share token is required"},
		})
		return
	}

	record, err := h.service.GetByShareToken(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}
