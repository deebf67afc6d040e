package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matchdayhq/media-service/pkg/database"
	apperrors "github.com/matchdayhq/media-service/pkg/errors"

	"github.com/matchdayhq/media-service/internal/domain"
	"github.com/matchdayhq/media-service/internal/repository"
)

const mediaColumns = `id, team_id, uploader_id, name, description, media_type, mime_type, extension, size_bytes, source, storage_provider, object_key, url, share_token, tags, view_count, download_count, uploaded_at`

// MediaRepository implements repository.MediaRepository using PostgreSQL.
type MediaRepository struct {
	db database.DBTX
}

// NewMediaRepository creates a new PostgreSQL-backed media repository.
func NewMediaRepository(db database.DBTX) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts a new media record into the database.
func (r *MediaRepository) Create(ctx context.Context, m *domain.MediaRecord) error {
	query := `
		INSERT INTO media_records (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		m.ID,
		m.TeamID,
		m.UploaderID,
		m.Name,
		m.Description,
		m.MediaType,
		m.MimeType,
		m.Extension,
		m.SizeBytes,
		m.Source,
		m.StorageProvider,
		m.ObjectKey,
		m.URL,
		m.ShareToken,
		m.Tags,
		m.ViewCount,
		m.DownloadCount,
		m.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert media record: %w", err)
	}

	return nil
}

// GetByID retrieves a media record by its ID.
func (r *MediaRepository) GetByID(ctx context.Context, id string) (*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE id = $1`
	return r.scanMediaRecord(ctx, query, id)
}

// GetByShareToken retrieves a media record by its share token.
func (r *MediaRepository) GetByShareToken(ctx context.Context, token string) (*domain.MediaRecord, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_records WHERE share_token = $1`
	return r.scanMediaRecord(ctx, query, token)
}

// List returns one page of the team's media records matching the filters,
// newest first, along with the total match count.
func (r *MediaRepository) List(ctx context.Context, teamID string, filters repository.Filters, offset, limit int) ([]domain.MediaRecord, int, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + mediaColumns + `, count(*) OVER() AS total_count FROM media_records WHERE team_id = $1`)

	args := []any{teamID}

	if filters.MediaType != "" {
		args = append(args, filters.MediaType)
		sb.WriteString(` AND media_type = $` + strconv.Itoa(len(args)))
	}
	if filters.Source != "" {
		args = append(args, filters.Source)
		sb.WriteString(` AND source = $` + strconv.Itoa(len(args)))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		sb.WriteString(` AND name ILIKE $` + strconv.Itoa(len(args)))
	}

	sb.WriteString(` ORDER BY uploaded_at DESC`)

	args = append(args, limit)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	args = append(args, offset)
	sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list media records: %w", err)
	}
	defer rows.Close()

	var (
		records []domain.MediaRecord
		total   int
	)
	for rows.Next() {
		var m domain.MediaRecord
		if err := rows.Scan(
			&m.ID,
			&m.TeamID,
			&m.UploaderID,
			&m.Name,
			&m.Description,
			&m.MediaType,
			&m.MimeType,
			&m.Extension,
			&m.SizeBytes,
			&m.Source,
			&m.StorageProvider,
			&m.ObjectKey,
			&m.URL,
			&m.ShareToken,
			&m.Tags,
			&m.ViewCount,
			&m.DownloadCount,
			&m.UploadedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan media record row: %w", err)
		}
		records = append(records, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate media record rows: %w", err)
	}

	if records == nil {
		records = []domain.MediaRecord{}
	}

	return records, total, nil
}

// Delete removes a media record from the database by its ID.
func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM media_records WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete media record: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("media_record", id)
	}

	return nil
}

// IncrementViewCount atomically adds one to the record's view count. The
// increment happens in a single UPDATE so concurrent calls never lose
// updates.
func (r *MediaRepository) IncrementViewCount(ctx context.Context, id string) error {
	return r.increment(ctx, "view_count", id)
}

// IncrementDownloadCount atomically adds one to the record's download count.
func (r *MediaRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	return r.increment(ctx, "download_count", id)
}

func (r *MediaRepository) increment(ctx context.Context, column, id string) error {
	query := `UPDATE media_records SET ` + column + ` = ` + column + ` + 1 WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("media_record", id)
	}

	return nil
}

// scanMediaRecord executes a query expected to return a single media record.
func (r *MediaRepository) scanMediaRecord(ctx context.Context, query string, args ...any) (*domain.MediaRecord, error) {
	var m domain.MediaRecord
	if err := scanInto(r.db.QueryRow(ctx, query, args...), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan media record: %w", err)
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(row scanner, m *domain.MediaRecord) error {
	return row.Scan(
		&m.ID,
		&m.TeamID,
		&m.UploaderID,
		&m.Name,
		&m.Description,
		&m.MediaType,
		&m.MimeType,
		&m.Extension,
		&m.SizeBytes,
		&m.Source,
		&m.StorageProvider,
		&m.ObjectKey,
		&m.URL,
		&m.ShareToken,
		&m.Tags,
		&m.ViewCount,
		&m.DownloadCount,
		&m.UploadedAt,
	)
}
