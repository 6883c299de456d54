package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypePrepareAudio is the asynq task type of the fetch+transcode step.
const TypePrepareAudio = "audio:prepare"

// PreparePayload is the task body. The job id is the only correlation key the worker needs.
type PreparePayload struct {
	JobID uuid.UUID `json:"job_id"`
}

type asynqQueue struct {
	client *asynq.Client
	cfg    config.TasksConfig
}

func NewAsynqQueue(client *asynq.Client, cfg config.TasksConfig) jobs.TaskQueue {
	return &asynqQueue{client: client, cfg: cfg}
}

// NewPrepareTask builds the task for job. The task id includes the attempt counter so a requeued job
// is scheduled again while a duplicate enqueue of the same attempt is dropped by asynq.
func NewPrepareTask(job *models.Job, cfg config.TasksConfig) (*asynq.Task, error) {
	payload, err := json.Marshal(PreparePayload{JobID: job.ExternalID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prepare payload: %w", err)
	}
	return asynq.NewTask(
		TypePrepareAudio,
		payload,
		asynq.TaskID(fmt.Sprintf("prepare:%s:%d", job.ExternalID, job.Attempts)),
		asynq.Queue(cfg.Queue),
		asynq.MaxRetry(cfg.MaxRetry),
	), nil
}

func ParsePreparePayload(task *asynq.Task) (*PreparePayload, error) {
	var p PreparePayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prepare payload: %w", err)
	}
	if p.JobID == uuid.Nil {
		return nil, fmt.Errorf("prepare payload has no job id: %w", models.ErrValidation)
	}
	return &p, nil
}

func (q *asynqQueue) EnqueuePrepare(ctx context.Context, job *models.Job) error {
	task, err := NewPrepareTask(job, q.cfg)
	if err != nil {
		return err
	}
	if _, err = q.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue prepare task: %w", err)
	}
	return nil
}
