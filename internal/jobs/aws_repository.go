package jobs

import (
	"context"
	"io"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
)

// AWSRepository is the artifact store gateway.
type AWSRepository interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (*models.Grant, error)
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*models.Grant, error)
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}
