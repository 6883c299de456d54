package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Preparer is what the task handler drives. *Processor implements it.
type Preparer interface {
	Prepare(ctx context.Context, jobID uuid.UUID) error
}

type TaskHandler struct {
	preparer Preparer
	cfg      *config.Config
	logger   logger.Logger
	cpuCheck func(maxCPUUsage float64) (bool, float64)
}

func NewTaskHandler(cfg *config.Config, preparer Preparer, log logger.Logger) *TaskHandler {
	return &TaskHandler{
		preparer: preparer,
		cfg:      cfg,
		logger:   log,
		cpuCheck: utils.CheckCPUUsage,
	}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := repository.ParsePreparePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if ok, usage := h.cpuCheck(h.cfg.Tasks.MaxCPUUsage); !ok {
		h.logger.Infof("CPU usage is high: %f, deferring job %s", usage, payload.JobID)
		return fmt.Errorf("cpu at %.1f%%: %w", usage, ErrOverloaded)
	}

	if err = h.preparer.Prepare(ctx, payload.JobID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// IsFailure keeps back-pressure retries from eating into the retry budget of a job.
func IsFailure(err error) bool {
	return !errors.Is(err, ErrOverloaded)
}
