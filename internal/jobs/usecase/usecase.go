package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
)

type jobsUC struct {
	cfg       *config.Config
	jobRepo   jobs.Repository
	redisRepo jobs.RedisRepository
	awsRepo   jobs.AWSRepository
	queue     jobs.TaskQueue
	logger    logger.Logger
	now       func() time.Time
}

// NewJobsUseCase wires the client-facing operations. redisRepo may be nil, in which case status
// reads always go to the job store.
func NewJobsUseCase(
	cfg *config.Config,
	jobRepo jobs.Repository,
	redisRepo jobs.RedisRepository,
	awsRepo jobs.AWSRepository,
	queue jobs.TaskQueue,
	log logger.Logger,
) jobs.UseCase {
	return &jobsUC{
		cfg:       cfg,
		jobRepo:   jobRepo,
		redisRepo: redisRepo,
		awsRepo:   awsRepo,
		queue:     queue,
		logger:    log,
		now:       time.Now,
	}
}

func (u *jobsUC) Submit(ctx context.Context, input *models.SubmitInput) (*models.Job, error) {
	if input == nil {
		return nil, fmt.Errorf("invalid input: input is nil: %w", models.ErrValidation)
	}
	if err := utils.ValidateStruct(ctx, input); err != nil {
		u.logger.Errorf("Submit - ValidateStruct error: %v", err)
		return nil, err
	}

	job, err := u.jobRepo.Create(ctx, &models.Job{
		SourceURL: input.URL,
		Status:    models.JobStatusQueued,
		Step:      "queued",
		Message:   "Queued",
	})
	if err != nil {
		u.logger.Errorf("Submit - Create error: %v", err)
		return nil, err
	}

	if err = u.queue.EnqueuePrepare(ctx, job); err != nil {
		u.logger.Errorf("Submit - EnqueuePrepare error: %v", err)
		u.failUnscheduled(ctx, job.ExternalID, err)
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	u.logger.Infof("Submitted job %s for %s", job.ExternalID, job.SourceURL)
	return job, nil
}

func (u *jobsUC) GetJob(ctx context.Context, externalID uuid.UUID) (*models.Job, error) {
	return u.jobRepo.GetByExternalID(ctx, externalID)
}

// GetStatus serves from the status cache when it can. The cache only holds views read from the
// store and never accepts an older view over a newer one.
func (u *jobsUC) GetStatus(ctx context.Context, externalID uuid.UUID) (*models.StatusView, error) {
	if u.redisRepo != nil {
		cached, err := u.redisRepo.GetStatus(ctx, externalID)
		if err != nil {
			u.logger.Warnf("GetStatus - cache read error: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	job, err := u.jobRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	view := job.StatusView()
	if u.redisRepo != nil {
		if err = u.redisRepo.SetStatus(ctx, view, u.cfg.Redis.StatusCacheTTL); err != nil {
			u.logger.Warnf("GetStatus - cache write error: %v", err)
		}
	}
	return view, nil
}

func (u *jobsUC) GetReady(ctx context.Context, externalID uuid.UUID) (*models.ReadyView, error) {
	job, err := u.jobRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}

	view := &models.ReadyView{Job: job}
	targets := []struct {
		key string
		dst **string
	}{
		{job.SourceAudio, &view.SourceAudioURL},
		{job.NormalizedAudio, &view.NormalizedAudioURL},
		{job.TranscriptJSON, &view.TranscriptJSONURL},
		{job.TranscriptVTT, &view.TranscriptVTTURL},
	}
	for _, t := range targets {
		if t.key == "" {
			continue
		}
		grant, err := u.awsRepo.PresignGet(ctx, t.key, u.cfg.Worker.GrantTTL)
		if err != nil {
			u.logger.Errorf("GetReady - PresignGet error: %v", err)
			return nil, err
		}
		*t.dst = &grant.URL
	}
	return view, nil
}

func (u *jobsUC) ListJobs(ctx context.Context, status models.JobStatus, pq *utils.Pagination) (*models.JobList, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, models.ErrValidation)
	}
	return u.jobRepo.ListJobs(ctx, status, pq)
}

// Requeue sends a failed job back to queued with percent 0 and schedules it again.
func (u *jobsUC) Requeue(ctx context.Context, externalID uuid.UUID) (*models.Job, error) {
	job, err := u.jobRepo.Requeue(ctx, externalID, []models.JobStatus{models.JobStatusFailed}, false)
	if err != nil {
		u.logger.Errorf("Requeue - Requeue error: %v", err)
		return nil, err
	}
	if err = u.queue.EnqueuePrepare(ctx, job); err != nil {
		u.logger.Errorf("Requeue - EnqueuePrepare error: %v", err)
		u.failUnscheduled(ctx, job.ExternalID, err)
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}
	u.logger.Infof("Requeued job %s", job.ExternalID)
	return job, nil
}

// failUnscheduled marks a queued job with no prepare task behind it as failed, so it can be
// requeued instead of sitting in queued forever.
func (u *jobsUC) failUnscheduled(ctx context.Context, externalID uuid.UUID, cause error) {
	msg := models.TruncateMessage("QueueError: " + cause.Error())
	if _, err := u.jobRepo.Update(context.WithoutCancel(ctx), externalID, &models.JobPatch{
		Status:  models.Ptr(models.JobStatusFailed),
		Step:    models.Ptr("failed"),
		Message: &msg,
		When:    []models.JobStatus{models.JobStatusQueued},
	}); err != nil {
		u.logger.Errorf("marking job %s failed error: %v", externalID, err)
	}
}

func (u *jobsUC) TranscriptVTT(ctx context.Context, externalID uuid.UUID) (io.ReadCloser, error) {
	job, err := u.jobRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if job.TranscriptVTT == "" {
		return nil, fmt.Errorf("job %s has no transcript yet: %w", externalID, models.ErrNotFound)
	}
	return u.awsRepo.GetObject(ctx, job.TranscriptVTT)
}

// ReclaimExpired returns jobs whose claim outlived its grants to awaiting_transcription.
func (u *jobsUC) ReclaimExpired(ctx context.Context) (int64, error) {
	n, err := u.jobRepo.ReclaimExpired(ctx, u.now())
	if err != nil {
		u.logger.Errorf("ReclaimExpired - ReclaimExpired error: %v", err)
		return 0, err
	}
	if n > 0 {
		u.logger.Infof("Reclaimed %d expired claims", n)
	}
	return n, nil
}
