package jobs

import (
	"context"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
)

// Repository is the durable job store. Every write is a partial update of a single row.
type Repository interface {
	Create(ctx context.Context, job *models.Job) (*models.Job, error)
	GetByExternalID(ctx context.Context, externalID uuid.UUID) (*models.Job, error)
	// Update applies patch only if the job's current status is in patch.Guard().
	Update(ctx context.Context, externalID uuid.UUID, patch *models.JobPatch) (*models.Job, error)
	// ClaimNext flips the oldest awaiting_transcription job to transcribing. It returns nil, nil when
	// nothing is eligible.
	ClaimNext(ctx context.Context, claimID uuid.UUID, now, expiresAt time.Time) (*models.Job, error)
	ReleaseClaim(ctx context.Context, externalID, claimID uuid.UUID) error
	// Requeue puts a job whose status is in from back to queued with percent 0 and no artifacts.
	Requeue(ctx context.Context, externalID uuid.UUID, from []models.JobStatus, countAttempt bool) (*models.Job, error)
	ListJobs(ctx context.Context, status models.JobStatus, pq *utils.Pagination) (*models.JobList, error)
	ReclaimExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
