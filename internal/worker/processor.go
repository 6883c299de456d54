package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/progress"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/google/uuid"
)

const failWriteTimeout = 10 * time.Second

// restartable are the statuses a redelivered prepare task may start over from.
var restartable = []models.JobStatus{
	models.JobStatusQueued,
	models.JobStatusDownloading,
	models.JobStatusConverting,
	models.JobStatusFailed,
}

// preparing are the statuses a prepare run may still fail.
var preparing = []models.JobStatus{
	models.JobStatusQueued,
	models.JobStatusDownloading,
	models.JobStatusConverting,
}

// Processor runs the prepare step of one job: fetch, normalize, upload, hand over to transcription.
// Every step is safe to repeat; artifacts are always written to the same keys.
type Processor struct {
	cfg      *config.Config
	repo     jobs.Repository
	awsRepo  jobs.AWSRepository
	reporter *progress.Reporter
	executor Executor
	logger   logger.Logger

	mkdirTemp func(dir, pattern string) (string, error)
	mkdirAll  func(path string, perm os.FileMode) error
	removeAll func(path string) error
	open      func(name string) (*os.File, error)
}

func NewProcessor(
	cfg *config.Config,
	repo jobs.Repository,
	awsRepo jobs.AWSRepository,
	executor Executor,
	log logger.Logger,
) *Processor {
	return &Processor{
		cfg:       cfg,
		repo:      repo,
		awsRepo:   awsRepo,
		reporter:  progress.NewReporter(repo, log),
		executor:  executor,
		logger:    log,
		mkdirTemp: os.MkdirTemp,
		mkdirAll:  os.MkdirAll,
		removeAll: os.RemoveAll,
		open:      os.Open,
	}
}

// Prepare runs one attempt for jobID. A failure is recorded on the job and then returned so the
// task substrate can retry it.
func (p *Processor) Prepare(ctx context.Context, jobID uuid.UUID) error {
	job, err := p.repo.GetByExternalID(ctx, jobID)
	if err != nil {
		return err
	}
	if !isRestartable(job.Status) {
		p.logger.Infof("Prepare - job %s already %s, nothing to do", jobID, job.Status)
		return nil
	}

	job, err = p.repo.Requeue(ctx, jobID, restartable, true)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			p.logger.Infof("Prepare - job %s moved on concurrently: %v", jobID, err)
			return nil
		}
		return err
	}
	p.logger.Infof("Prepare - job %s attempt %d", jobID, job.Attempts)

	if err = p.run(ctx, job); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			p.logger.Warnf("Prepare - attempt %d for job %s superseded: %v", job.Attempts, jobID, err)
			return nil
		}
		p.fail(ctx, jobID, job.Attempts, err)
		return err
	}
	return nil
}

// run owns the job only while it is on the attempt Requeue handed out; every write below is fenced
// on that attempt so a superseded run cannot touch the job again.
func (p *Processor) run(ctx context.Context, job *models.Job) error {
	attempt := job.Attempts
	if _, err := p.reporter.Report(ctx, job.ExternalID, progress.Update{
		Status:  models.Ptr(models.JobStatusDownloading),
		Step:    "downloading",
		Message: "Fetching metadata…",
		Percent: progress.FetchBand.Low,
		Attempt: attempt,
	}); err != nil {
		return err
	}

	if err := p.mkdirAll(p.cfg.Fetcher.TempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	workDir, err := p.mkdirTemp(p.cfg.Fetcher.TempDir, "job-"+job.ExternalID.String()+"-*")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if rmErr := p.removeAll(workDir); rmErr != nil {
			p.logger.Warnf("Prepare - cleanup %s error: %v", workDir, rmErr)
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.Fetcher.Timeout)
	defer cancel()

	var (
		emitter    = p.reporter.NewEmitter(job.ExternalID, attempt)
		converting bool
		stageErr   error
	)
	hooks := FetchHooks{
		OnMetadata: func(meta models.Metadata) {
			if _, mErr := p.repo.Update(ctx, job.ExternalID, &models.JobPatch{
				Metadata: &meta,
				When:     []models.JobStatus{models.JobStatusDownloading},
				Attempt:  &attempt,
			}); mErr != nil {
				p.logger.Warnf("Prepare - metadata for %s error: %v", job.ExternalID, mErr)
			}
		},
		OnProgress: func(ev models.ProgressEvent) {
			if ev.Phase == models.PhaseNormalizing && !converting && stageErr == nil {
				stageErr = p.enterConverting(ctx, job.ExternalID, attempt)
				converting = stageErr == nil
			}
			if eErr := emitter.Emit(ctx, ev); eErr != nil {
				p.logger.Warnf("Prepare - progress for %s error: %v", job.ExternalID, eErr)
			}
		},
	}

	result, err := p.executor.FetchAndNormalize(fetchCtx, job.SourceURL, workDir, hooks)
	if err != nil {
		return err
	}
	if stageErr != nil {
		return stageErr
	}
	if !converting {
		if err = p.enterConverting(ctx, job.ExternalID, attempt); err != nil {
			return err
		}
	}

	ns := job.Namespace()
	sourceKey := models.ArtifactKey(ns, models.SourceAudioFile)
	normalizedKey := models.ArtifactKey(ns, models.NormalizedAudioFile)

	uploads := []struct {
		path, key, contentType string
		done                   float64
	}{
		{result.SourceAudioPath, sourceKey, models.SourceAudioContentType, 0.5},
		{result.NormalizedAudioPath, normalizedKey, models.NormalizedAudioContentType, 1},
	}
	for _, u := range uploads {
		if err = p.upload(ctx, u.path, u.key, u.contentType); err != nil {
			return err
		}
		if _, err = p.reporter.Report(ctx, job.ExternalID, progress.Update{
			Step:    "uploading",
			Message: "Uploading audio…",
			Percent: progress.UploadBand.At(u.done),
			Attempt: attempt,
		}); err != nil {
			return err
		}
	}

	if _, err = p.repo.Update(ctx, job.ExternalID, &models.JobPatch{
		Status:             models.Ptr(models.JobStatusAwaitingTranscription),
		Step:               models.Ptr("awaiting_transcription"),
		Percent:            models.Ptr(progress.AwaitingPercent),
		Message:            models.Ptr("Waiting for GPU worker…"),
		Metadata:           &result.Metadata,
		SourceAudioKey:     &sourceKey,
		NormalizedAudioKey: &normalizedKey,
		Attempt:            &attempt,
	}); err != nil {
		return fmt.Errorf("failed to hand job over to transcription: %w", err)
	}
	p.logger.Infof("Prepare - job %s awaiting transcription", job.ExternalID)
	return nil
}

func (p *Processor) enterConverting(ctx context.Context, jobID uuid.UUID, attempt int) error {
	_, err := p.reporter.Report(ctx, jobID, progress.Update{
		Status:  models.Ptr(models.JobStatusConverting),
		Step:    "converting",
		Message: "Converting to 16 kHz mono…",
		Percent: progress.NormalizeBand.Low,
		Attempt: attempt,
	})
	return err
}

func (p *Processor) upload(ctx context.Context, path, key, contentType string) error {
	f, err := p.open(path)
	if err != nil {
		return newExternalError(KindStorage, err, "open %s", path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return newExternalError(KindStorage, err, "stat %s", path)
	}
	if err = p.awsRepo.PutObject(ctx, key, contentType, f, info.Size()); err != nil {
		return newExternalError(KindStorage, err, "upload %s", key)
	}
	return nil
}

// fail records err on the job. It uses its own deadline so a cancelled attempt still leaves a trace.
func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, attempt int, cause error) {
	msg := FailureMessage(cause)
	p.logger.Errorf("Prepare - job %s failed: %s", jobID, msg)

	failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	if _, err := p.repo.Update(failCtx, jobID, &models.JobPatch{
		Status:  models.Ptr(models.JobStatusFailed),
		Step:    models.Ptr("failed"),
		Message: &msg,
		When:    preparing,
		Attempt: &attempt,
	}); err != nil {
		p.logger.Errorf("Prepare - marking job %s failed error: %v", jobID, err)
	}
}

func isRestartable(status models.JobStatus) bool {
	for _, st := range restartable {
		if st == status {
			return true
		}
	}
	return false
}
