package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVideoNotFound is returned when no row matches the video id.
var ErrVideoNotFound = errors.New("video not found")

// maxReasonLen bounds the failure text stored with a video row.
const maxReasonLen = 1000

type execer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// VideoRepository updates rows of the "Video" table owned by the web app.
type VideoRepository struct {
	db execer
}

func NewVideoRepository(db execer) *VideoRepository {
	return &VideoRepository{db: db}
}

// NewPool opens a pgx pool for databaseURL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return pool, nil
}

// The "Video" table has no error column; failure text goes to "description"
// the way the web app records failed uploads.
const (
	markCompletedSQL = `UPDATE "Video" SET "status" = 'completed', "videoUrl" = $2, "updatedAt" = now() WHERE "id" = $1`
	markFailedSQL    = `UPDATE "Video" SET "status" = 'failed', "description" = $2, "updatedAt" = now() WHERE "id" = $1`
	markUploadedSQL  = `UPDATE "Video" SET "status" = 'uploaded', "uploadStatus" = 'completed', "uploadedUrl" = $2, "updatedAt" = now() WHERE "id" = $1`
	markUploadErrSQL = `UPDATE "Video" SET "uploadStatus" = 'failed', "description" = $2, "updatedAt" = now() WHERE "id" = $1`
)

func (r *VideoRepository) MarkCompleted(ctx context.Context, videoID, videoURL string) error {
	return r.update(ctx, "mark completed", markCompletedSQL, videoID, videoURL)
}

func (r *VideoRepository) MarkFailed(ctx context.Context, videoID, reason string) error {
	return r.update(ctx, "mark failed", markFailedSQL, videoID, truncate("Finalize failed: "+reason))
}

func (r *VideoRepository) MarkUploaded(ctx context.Context, videoID, uploadedURL string) error {
	return r.update(ctx, "mark uploaded", markUploadedSQL, videoID, uploadedURL)
}

func (r *VideoRepository) MarkUploadFailed(ctx context.Context, videoID, reason string) error {
	return r.update(ctx, "mark upload failed", markUploadErrSQL, videoID, truncate("Upload failed: "+reason))
}

func (r *VideoRepository) update(ctx context.Context, op, query, videoID, value string) error {
	tag, err := r.db.Exec(ctx, query, videoID, value)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", op, videoID, ErrVideoNotFound)
	}
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxReasonLen {
		return s
	}
	return string(r[:maxReasonLen])
}
