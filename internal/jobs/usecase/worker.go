package usecase

import (
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
)

// workerUC implements the worker protocol: claim, heartbeat and completion.
type workerUC struct {
	cfg     *config.Config
	jobRepo jobs.Repository
	awsRepo jobs.AWSRepository
	logger  logger.Logger
	now     func() time.Time
}

func NewWorkerUseCase(cfg *config.Config, jobRepo jobs.Repository, awsRepo jobs.AWSRepository, log logger.Logger) jobs.WorkerUseCase {
	return &workerUC{
		cfg:     cfg,
		jobRepo: jobRepo,
		awsRepo: awsRepo,
		logger:  log,
		now:     time.Now,
	}
}
