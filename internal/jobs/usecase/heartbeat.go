package usecase

import (
	"context"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/progress"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
)

const (
	defaultHeartbeatPercent = 70
	defaultHeartbeatMessage = "Transcribing…"
)

// Heartbeat raises percent of a transcribing job to max(stored, min(99, reported)).
func (w *workerUC) Heartbeat(ctx context.Context, input *models.HeartbeatInput) (*models.Job, error) {
	if err := utils.ValidateStruct(ctx, input); err != nil {
		w.logger.Errorf("Heartbeat - ValidateStruct error: %v", err)
		return nil, err
	}
	percent := defaultHeartbeatPercent
	if input.Percent != nil {
		percent = *input.Percent
	}
	message := defaultHeartbeatMessage
	if input.Message != nil {
		message = *input.Message
	}

	job, err := w.jobRepo.Update(ctx, input.JobID, &models.JobPatch{
		When:        []models.JobStatus{models.JobStatusTranscribing},
		Step:        models.Ptr("transcribing"),
		Percent:     models.Ptr(progress.HeartbeatPercent(percent)),
		PercentMode: models.PercentMax,
		Message:     models.Ptr(models.TruncateMessage(message)),
	})
	if err != nil {
		w.logger.Warnf("Heartbeat - Update %s error: %v", input.JobID, err)
		return nil, err
	}
	return job, nil
}
