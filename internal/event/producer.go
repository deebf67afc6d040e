package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/matchdayhq/media-service/pkg/kafka"

	"github.com/matchdayhq/media-service/internal/domain"
)

// Kafka topics for media domain events.
var (
	TopicMediaUploaded = pkgkafka.Topic("media", "uploaded")
	TopicMediaDeleted  = pkgkafka.Topic("media", "deleted")
)

// Aggregate type constant.
const AggregateTypeMedia = "media"

// Source identifier for events originating from the media service.
const SourceMediaService = "media-service"

// MediaUploadedData is the payload for a media.uploaded event.
type MediaUploadedData struct {
	ID              string   `json:"id"`
	TeamID          string   `json:"team_id"`
	UploaderID      string   `json:"uploader_id"`
	Name            string   `json:"name"`
	MediaType       string   `json:"media_type"`
	MimeType        string   `json:"mime_type"`
	SizeBytes       int64    `json:"size_bytes"`
	Source          string   `json:"source"`
	StorageProvider string   `json:"storage_provider"`
	URL             string   `json:"url"`
	Tags            []string `json:"tags,omitempty"`
}

// MediaDeletedData is the payload for a media.deleted event.
type MediaDeletedData struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
}

// Producer publishes media domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the media service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishMediaUploaded publishes a media.uploaded event.
func (p *Producer) PublishMediaUploaded(ctx context.Context, record *domain.MediaRecord) error {
	data := MediaUploadedData{
		ID:              record.ID,
		TeamID:          record.TeamID,
		UploaderID:      record.UploaderID,
		Name:            record.Name,
		MediaType:       string(record.MediaType),
		MimeType:        record.MimeType,
		SizeBytes:       record.SizeBytes,
		Source:          record.Source,
		StorageProvider: string(record.StorageProvider),
		URL:             record.URL,
		Tags:            record.Tags,
	}

	event, err := pkgkafka.NewEvent(TopicMediaUploaded, record.ID, AggregateTypeMedia, SourceMediaService, data)
	if err != nil {
		return fmt.Errorf("create media.uploaded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicMediaUploaded, event); err != nil {
		return fmt.Errorf("publish media.uploaded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published media.uploaded event",
		slog.String("media_id", record.ID),
		slog.String("team_id", record.TeamID),
	)

	return nil
}

// PublishMediaDeleted publishes a media.deleted event.
func (p *Producer) PublishMediaDeleted(ctx context.Context, id, teamID string) error {
	data := MediaDeletedData{ID: id, TeamID: teamID}

	event, err := pkgkafka.NewEvent(TopicMediaDeleted, id, AggregateTypeMedia, SourceMediaService, data)
	if err != nil {
		return fmt.Errorf("create media.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicMediaDeleted, event); err != nil {
		return fmt.Errorf("publish media.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published media.deleted event",
		slog.String("media_id", id),
	)

	return nil
}
