package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"
)

// MediaType classifies an uploaded file.
type MediaType string

const (
	MediaTypeVideo    MediaType = "video"
	MediaTypeImage    MediaType = "image"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeDocument MediaType = "document"
)

// StorageProvider identifies which object-store backend holds the bytes.
type StorageProvider string

const (
	// ProviderLargeObject is the backend tuned for large video payloads.
	ProviderLargeObject StorageProvider = "large-object-store"

	// ProviderBucket is the general-purpose backend for everything else.
	ProviderBucket StorageProvider = "general-bucket-store"
)

// ProviderForMediaType is the static routing rule: video goes to the
// large-object store, every other type to the general bucket store.
func ProviderForMediaType(mt MediaType) StorageProvider {
	if mt == MediaTypeVideo {
		return ProviderLargeObject
	}
	return ProviderBucket
}

// ValidMediaTypes returns the set of accepted media types.
func ValidMediaTypes() []MediaType {
	return []MediaType{MediaTypeVideo, MediaTypeImage, MediaTypeAudio, MediaTypeDocument}
}

// IsValidMediaType checks whether the given media type is accepted.
func IsValidMediaType(mt MediaType) bool {
	for _, t := range ValidMediaTypes() {
		if t == mt {
			return true
		}
	}
	return false
}

// documentMIMETypes lists the accepted MIME types for document uploads.
// Video, image, and audio uploads are matched by MIME prefix instead.
var documentMIMETypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-powerpoint":                                     true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"text/plain": true,
	"text/csv":   true,
}

// MatchesMediaType checks whether a declared MIME type is plausible for the
// declared media type.
func MatchesMediaType(mt MediaType, mimeType string) bool {
	switch mt {
	case MediaTypeVideo:
		return strings.HasPrefix(mimeType, "video/")
	case MediaTypeImage:
		return strings.HasPrefix(mimeType, "image/")
	case MediaTypeAudio:
		return strings.HasPrefix(mimeType, "audio/")
	case MediaTypeDocument:
		return documentMIMETypes[mimeType]
	default:
		return false
	}
}

// MediaRecord is the persisted unit of truth for one uploaded object.
// StorageProvider and ObjectKey are written once at creation and never
// mutated; the pair is the only handle needed to later delete the object.
type MediaRecord struct {
	ID              string          `json:"id"`
	TeamID          string          `json:"team_id"`
	UploaderID      string          `json:"uploader_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MediaType       MediaType       `json:"media_type"`
	MimeType        string          `json:"mime_type"`
	Extension       string          `json:"extension"`
	SizeBytes       int64           `json:"size_bytes"`
	Source          string          `json:"source"`
	StorageProvider StorageProvider `json:"storage_provider"`
	ObjectKey       string          `json:"object_key"`
	URL             string          `json:"url"`
	ShareToken      string          `json:"share_token"`
	Tags            []string        `json:"tags"`
	ViewCount       int64           `json:"view_count"`
	DownloadCount   int64           `json:"download_count"`
	UploadedAt      time.Time       `json:"uploaded_at"`
}

// shareTokenBytes gives 256 bits of entropy; collision probability is
// negligible, and the database unique constraint backs it regardless.
const shareTokenBytes = 32

// NewShareToken generates an opaque, unguessable token for shareable access
// to a single record.
func NewShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
