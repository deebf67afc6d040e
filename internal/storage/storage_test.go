package storage_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/matchdayhq/media-service/pkg/errors"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/storage"
	"github.com/matchdayhq/media-service/internal/storage/memory"
)

func TestRouter_ForMediaType(t *testing.T) {
	large := memory.New(domain.ProviderLargeObject, "")
	general := memory.New(domain.ProviderBucket, "")
	router := storage.NewRouter(large, general)

	tests := []struct {
		mediaType domain.MediaType
		want      domain.StorageProvider
	}{
		{domain.MediaTypeVideo, domain.ProviderLargeObject},
		{domain.MediaTypeImage, domain.ProviderBucket},
		{domain.MediaTypeAudio, domain.ProviderBucket},
		{domain.MediaTypeDocument, domain.ProviderBucket},
	}

	for _, tt := range tests {
		t.Run(string(tt.mediaType), func(t *testing.T) {
			store, err := router.ForMediaType(tt.mediaType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.Provider())
		})
	}
}

func TestRouter_ByProvider_Unregistered(t *testing.T) {
	router := storage.NewRouter(memory.New(domain.ProviderBucket, ""))

	_, err := router.ByProvider(domain.ProviderLargeObject)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Contains(t, err.Error(), string(domain.ProviderLargeObject))
}

func TestRouter_ByProvider_EmptyRouter(t *testing.T) {
	router := storage.NewRouter()

	_, err := router.ByProvider(domain.ProviderBucket)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}
