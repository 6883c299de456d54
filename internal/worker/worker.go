package worker

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/hibiken/asynq"
)

// overloadDelay is how long a task waits before retrying when the host was too busy to run it.
const overloadDelay = 15 * time.Second

type Worker struct {
	logger logger.Logger
	cfg    *config.Config
	server *asynq.Server
	mux    *asynq.ServeMux
}

func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.RedisAddr,
		Password: cfg.Redis.RedisPassword,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	if opt.Addr == "" {
		opt.Addr = ":6379"
	}
	if cfg.Redis.TLS {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opt
}

func NewWorker(cfg *config.Config, log logger.Logger, handler asynq.Handler) *Worker {
	server := asynq.NewServer(
		RedisOpt(cfg),
		asynq.Config{
			Concurrency:    cfg.Tasks.Concurrency,
			Queues:         map[string]int{cfg.Tasks.Queue: 1},
			RetryDelayFunc: retryDelay(cfg.Tasks.RetryDelay),
			IsFailure:      IsFailure,
			Logger:         log,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				log.Errorf("task %s failed (retry %d/%d): %v", task.Type(), retried, maxRetry, err)
			}),
		},
	)
	mux := asynq.NewServeMux()
	mux.Handle(repository.TypePrepareAudio, handler)

	return &Worker{
		logger: log,
		cfg:    cfg,
		server: server,
		mux:    mux,
	}
}

func retryDelay(fixed time.Duration) asynq.RetryDelayFunc {
	return func(n int, err error, task *asynq.Task) time.Duration {
		if !IsFailure(err) {
			return overloadDelay
		}
		return fixed
	}
}

func (w *Worker) Run() error {
	w.logger.Infof("Starting prepare worker (queue=%s concurrency=%d)", w.cfg.Tasks.Queue, w.cfg.Tasks.Concurrency)
	return w.server.Run(w.mux)
}
