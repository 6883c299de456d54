package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/progress"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
)

// Complete records a worker's completion report. Transcript keys are derived from the normalized
// audio key exactly as at claim time; object existence is not checked. A report for a job that is
// already ready succeeds without writing anything.
func (w *workerUC) Complete(ctx context.Context, input *models.CompleteInput) (*models.Job, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		w.logger.Errorf("Complete - ValidateStruct error: %v", err)
		return nil, err
	}

	job, err := w.jobRepo.GetByExternalID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusReady {
		w.logger.Infof("Complete - job %s already ready, ignoring duplicate report", job.ExternalID)
		return job, nil
	}
	if job.NormalizedAudio == "" {
		return nil, fmt.Errorf("job %s has no normalized audio: %w", job.ExternalID, models.ErrPreconditionFailed)
	}
	jsonKey, vttKey, err := models.TranscriptKeys(job.NormalizedAudio)
	if err != nil {
		return nil, err
	}

	updated, err := w.jobRepo.Update(ctx, input.JobID, &models.JobPatch{
		Status:            models.Ptr(models.JobStatusReady),
		When:              []models.JobStatus{models.JobStatusTranscribing},
		Step:              models.Ptr("ready"),
		Percent:           models.Ptr(progress.ReadyPercent),
		Message:           models.Ptr("Transcript ready"),
		TranscriptJSONKey: &jsonKey,
		TranscriptVTTKey:  &vttKey,
		Language:          input.Language,
		SegmentCount:      input.SegmentCount,
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// A concurrent duplicate may have won the race.
			if again, gerr := w.jobRepo.GetByExternalID(ctx, input.JobID); gerr == nil && again.Status == models.JobStatusReady {
				return again, nil
			}
		}
		w.logger.Errorf("Complete - Update %s error: %v", input.JobID, err)
		return nil, err
	}
	w.logger.Infof("Job %s ready (language=%s segments=%v)", updated.ExternalID, updated.Language, updated.SegmentCount)
	return updated, nil
}
