package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/google/uuid"
)

const releaseTimeout = 5 * time.Second

// ClaimNext hands the oldest awaiting job to the caller, or returns nil, nil when there is none.
// The claim itself is one store statement; grants are signed afterwards, outside of it. If signing
// fails the claim is released so the job is not stranded in transcribing.
func (w *workerUC) ClaimNext(ctx context.Context, worker *models.WorkerIdentity) (*models.ClaimGrant, error) {
	ttl := w.cfg.Worker.GrantTTL
	claimID := uuid.New()
	now := w.now()

	job, err := w.jobRepo.ClaimNext(ctx, claimID, now, now.Add(ttl))
	if err != nil {
		w.logger.Errorf("ClaimNext - ClaimNext error: %v", err)
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	grant, err := w.issueGrants(ctx, job, ttl)
	if err != nil {
		w.logger.Errorf("ClaimNext - issueGrants for %s error: %v", job.ExternalID, err)
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := w.jobRepo.ReleaseClaim(releaseCtx, job.ExternalID, claimID); rerr != nil {
			w.logger.Errorf("ClaimNext - ReleaseClaim for %s error: %v", job.ExternalID, rerr)
		}
		return nil, err
	}

	name := "unknown"
	if worker != nil {
		name = worker.Name
	}
	w.logger.Infof("Job %s claimed by worker %s until %s", job.ExternalID, name, now.Add(ttl).UTC().Format(time.RFC3339))
	return grant, nil
}

func (w *workerUC) issueGrants(ctx context.Context, job *models.Job, ttl time.Duration) (*models.ClaimGrant, error) {
	jsonKey, vttKey, err := models.TranscriptKeys(job.NormalizedAudio)
	if err != nil {
		return nil, err
	}
	read, err := w.awsRepo.PresignGet(ctx, job.NormalizedAudio, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign audio read: %w", err)
	}
	jsonWrite, err := w.awsRepo.PresignPut(ctx, jsonKey, models.TranscriptJSONContentType, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign transcript json write: %w", err)
	}
	vttWrite, err := w.awsRepo.PresignPut(ctx, vttKey, models.TranscriptVTTContentType, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign transcript vtt write: %w", err)
	}
	return &models.ClaimGrant{
		Job:                 job,
		AudioRead:           read,
		TranscriptJSONWrite: jsonWrite,
		TranscriptVTTWrite:  vttWrite,
		Settings: models.WorkerSettings{
			Model: w.cfg.Worker.Model,
			VAD:   w.cfg.Worker.VAD,
		},
		ValidFor: ttl,
	}, nil
}
