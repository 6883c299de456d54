// Package progress turns pipeline progress into bounded, forward-only job updates.
package progress

import (
	"context"
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/google/uuid"
)

type Updater interface {
	Update(ctx context.Context, externalID uuid.UUID, patch *models.JobPatch) (*models.Job, error)
}

// Update is one progress report. A nil Status leaves the status as it is. A positive Attempt drops
// the write once the job has been restarted under a newer prepare attempt.
type Update struct {
	Status  *models.JobStatus
	Step    string
	Message string
	Percent int
	Attempt int
}

// preparing is where a status-less report may land; once the job is handed to the GPU side the
// preparation run no longer owns it.
var preparing = []models.JobStatus{
	models.JobStatusQueued,
	models.JobStatusDownloading,
	models.JobStatusConverting,
}

type Reporter struct {
	store  Updater
	logger logger.Logger
}

func NewReporter(store Updater, log logger.Logger) *Reporter {
	return &Reporter{store: store, logger: log}
}

// Report writes u for jobID. Percent only ever rises. A status that is neither the current one nor
// reachable from it writes nothing and returns ErrInvalidTransition.
func (r *Reporter) Report(ctx context.Context, jobID uuid.UUID, u Update) (*models.Job, error) {
	patch := &models.JobPatch{
		Step:        models.Ptr(u.Step),
		Message:     models.Ptr(models.TruncateMessage(u.Message)),
		Percent:     models.Ptr(models.ClampPercent(u.Percent)),
		PercentMode: models.PercentMax,
		When:        preparing,
	}
	if u.Attempt > 0 {
		patch.Attempt = models.Ptr(u.Attempt)
	}
	if u.Status != nil {
		patch.Status = u.Status
		patch.When = models.AdvanceGuard(*u.Status)
	}
	job, err := r.store.Update(ctx, jobID, patch)
	if err != nil {
		return nil, fmt.Errorf("report progress for %s: %w", jobID, err)
	}
	r.logger.Debugf("progress %s: status=%s step=%s percent=%d", jobID, job.Status, job.Step, job.Percent)
	return job, nil
}
