package server

import (
	"context"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
)

const sweepLockKey = "lock:reclaim-expired-claims"

// Sweeper periodically returns expired claims to awaiting_transcription. With several API replicas
// only the one holding the Redis lock sweeps in a given interval.
type Sweeper struct {
	jobsUC   jobs.UseCase
	locker   jobs.RedisRepository
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(jobsUC jobs.UseCase, locker jobs.RedisRepository, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{jobsUC: jobsUC, locker: locker, interval: interval, logger: log}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Infof("Reclaim sweeper started, interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass if the lock can be taken.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.locker != nil {
		ok, err := s.locker.AcquireLock(ctx, sweepLockKey, s.interval/2)
		if err != nil {
			s.logger.Warnf("Sweeper - AcquireLock error: %v", err)
			return
		}
		if !ok {
			return
		}
	}
	if _, err := s.jobsUC.ReclaimExpired(ctx); err != nil {
		s.logger.Errorf("Sweeper - ReclaimExpired error: %v", err)
	}
}
