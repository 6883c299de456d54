package jobs

import (
	"context"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
)

// TaskQueue schedules the fetch+transcode step on the background execution substrate.
type TaskQueue interface {
	EnqueuePrepare(ctx context.Context, job *models.Job) error
}
