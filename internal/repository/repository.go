package repository

import (
	"context"

	"github.com/matchdayhq/media-service/internal/domain"
)

// Filters narrows a team-scoped media listing. Zero values mean "no filter".
type Filters struct {
	MediaType domain.MediaType
	Source    string
	Search    string
}

// MediaRepository defines the persistence operations for media records.
type MediaRepository interface {
	// Create inserts a new media record.
	Create(ctx context.Context, record *domain.MediaRecord) error

	// GetByID retrieves a media record by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.MediaRecord, error)

	// GetByShareToken retrieves a media record by its share token.
	GetByShareToken(ctx context.Context, token string) (*domain.MediaRecord, error)

	// List returns one page of the team's media records matching the
	// filters, newest first, along with the total match count.
	List(ctx context.Context, teamID string, filters Filters, offset, limit int) ([]domain.MediaRecord, int, error)

	// Delete removes a media record by its identifier.
	Delete(ctx context.Context, id string) error

	// IncrementViewCount atomically adds one to the record's view count.
	IncrementViewCount(ctx context.Context, id string) error

	// IncrementDownloadCount atomically adds one to the record's download
	// count.
	IncrementDownloadCount(ctx context.Context, id string) error
}
