package jobs

import (
	"context"
	"io"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
)

type UseCase interface {
	Submit(ctx context.Context, input *models.SubmitInput) (*models.Job, error)
	GetJob(ctx context.Context, externalID uuid.UUID) (*models.Job, error)
	GetStatus(ctx context.Context, externalID uuid.UUID) (*models.StatusView, error)
	GetReady(ctx context.Context, externalID uuid.UUID) (*models.ReadyView, error)
	ListJobs(ctx context.Context, status models.JobStatus, pq *utils.Pagination) (*models.JobList, error)
	Requeue(ctx context.Context, externalID uuid.UUID) (*models.Job, error)
	TranscriptVTT(ctx context.Context, externalID uuid.UUID) (io.ReadCloser, error)
	ReclaimExpired(ctx context.Context) (int64, error)
}

// WorkerUseCase is everything a transcription worker can do.
type WorkerUseCase interface {
	ClaimNext(ctx context.Context, worker *models.WorkerIdentity) (*models.ClaimGrant, error)
	Heartbeat(ctx context.Context, input *models.HeartbeatInput) (*models.Job, error)
	Complete(ctx context.Context, input *models.CompleteInput) (*models.Job, error)
}
