package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/testsupport"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	cfg    *config.Config
	repo   jobs.Repository
	store  *testsupport.ArtifactStore
	queue  *testsupport.Queue
	cache  *testsupport.StatusCache
	jobs   *jobsUC
	worker *workerUC
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &fixture{
		cfg:   cfg,
		repo:  testsupport.MustOpenRepo(t, cfg),
		store: testsupport.NewArtifactStore(),
		queue: &testsupport.Queue{},
		cache: testsupport.NewStatusCache(),
	}
	f.jobs = NewJobsUseCase(cfg, f.repo, f.cache, f.store, f.queue, logger.NewNop()).(*jobsUC)
	f.worker = NewWorkerUseCase(cfg, f.repo, f.store, logger.NewNop()).(*workerUC)
	return f
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.jobs.Submit(ctx, &models.SubmitInput{URL: "https://www.youtube.com/watch?v=abc123"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 0, job.Percent)
	assert.Equal(t, []uuid.UUID{job.ExternalID}, f.queue.Enqueued)
}

func TestSubmitRejectsBadURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, url := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		_, err := f.jobs.Submit(ctx, &models.SubmitInput{URL: url})
		assert.ErrorIs(t, err, models.ErrValidation, url)
	}
	_, err := f.jobs.Submit(ctx, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	list, err := f.jobs.ListJobs(ctx, "", &utils.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, list.TotalCount)
	assert.Empty(t, f.queue.Enqueued)
}

func TestSubmitMarksJobFailedWhenQueueIsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.queue.Fail = errors.New("redis: connection refused")

	_, err := f.jobs.Submit(ctx, &models.SubmitInput{URL: "https://example.com/v"})
	require.Error(t, err)

	list, err := f.jobs.ListJobs(ctx, models.JobStatusFailed, &utils.Pagination{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, list.Jobs, 1)
	assert.Contains(t, list.Jobs[0].Message, "QueueError")
}

func TestGetStatusUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")

	view, err := f.jobs.GetStatus(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, view.Status)

	_, err = f.repo.Update(ctx, job.ExternalID, &models.JobPatch{Status: models.Ptr(models.JobStatusDownloading)})
	require.NoError(t, err)

	cached, err := f.jobs.GetStatus(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, cached.Status)

	_, err = f.jobs.GetStatus(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetStatusWithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	uc := NewJobsUseCase(f.cfg, f.repo, nil, f.store, f.queue, logger.NewNop())
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")

	_, err := f.repo.Update(ctx, job.ExternalID, &models.JobPatch{Status: models.Ptr(models.JobStatusDownloading)})
	require.NoError(t, err)
	view, err := uc.GetStatus(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDownloading, view.Status)
}

func TestGetReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	queued := testsupport.NewJob(t, f.repo, "https://example.com/a")
	view, err := f.jobs.GetReady(ctx, queued.ExternalID)
	require.NoError(t, err)
	assert.Nil(t, view.SourceAudioURL)
	assert.Nil(t, view.NormalizedAudioURL)
	assert.Nil(t, view.TranscriptJSONURL)
	assert.Nil(t, view.TranscriptVTTURL)

	awaiting := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/b")
	view, err = f.jobs.GetReady(ctx, awaiting.ExternalID)
	require.NoError(t, err)
	require.NotNil(t, view.SourceAudioURL)
	require.NotNil(t, view.NormalizedAudioURL)
	assert.Contains(t, *view.NormalizedAudioURL, awaiting.NormalizedAudio)
	assert.Nil(t, view.TranscriptVTTURL)

	f.store.FailSign = errors.New("signer down")
	_, err = f.jobs.GetReady(ctx, awaiting.ExternalID)
	assert.Error(t, err)
}

func TestListJobsRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.jobs.ListJobs(context.Background(), "finished", &utils.Pagination{Page: 1, Size: 10})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRequeue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")

	_, err := f.jobs.Requeue(ctx, job.ExternalID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.repo.Update(ctx, job.ExternalID, &models.JobPatch{
		Status:  models.Ptr(models.JobStatusFailed),
		Percent: models.Ptr(30),
		Message: models.Ptr("DownloadError: 403"),
	})
	require.NoError(t, err)

	requeued, err := f.jobs.Requeue(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, requeued.Status)
	assert.Equal(t, 0, requeued.Percent)
	assert.Equal(t, []uuid.UUID{job.ExternalID}, f.queue.Enqueued)

	_, err = f.jobs.Requeue(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRequeueMarksJobFailedWhenQueueIsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")
	_, err := f.repo.Update(ctx, job.ExternalID, &models.JobPatch{
		Status:  models.Ptr(models.JobStatusFailed),
		Message: models.Ptr("DownloadError: 403"),
	})
	require.NoError(t, err)

	f.queue.Fail = errors.New("redis: connection refused")
	_, err = f.jobs.Requeue(ctx, job.ExternalID)
	require.Error(t, err)

	got, err := f.repo.GetByExternalID(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.Message, "QueueError")
	assert.Empty(t, f.queue.Enqueued)

	f.queue.Fail = nil
	requeued, err := f.jobs.Requeue(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, requeued.Status)
	assert.Equal(t, []uuid.UUID{job.ExternalID}, f.queue.Enqueued)
}

func TestTranscriptVTT(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	_, err := f.jobs.TranscriptVTT(ctx, job.ExternalID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	grant, err := f.worker.ClaimNext(ctx, &models.WorkerIdentity{Name: "gpu-1"})
	require.NoError(t, err)
	f.store.Objects[grant.TranscriptVTTWrite.Key] = []byte("WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n")
	_, err = f.worker.Complete(ctx, &models.CompleteInput{JobID: job.ExternalID})
	require.NoError(t, err)

	rc, err := f.jobs.TranscriptVTT(ctx, job.ExternalID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "WEBVTT")
}

func TestReclaimExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	_, err := f.worker.ClaimNext(ctx, &models.WorkerIdentity{Name: "gpu-1"})
	require.NoError(t, err)

	n, err := f.jobs.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.jobs.now = func() time.Time { return time.Now().Add(f.cfg.Worker.GrantTTL + time.Minute) }
	n, err = f.jobs.ReclaimExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := f.repo.GetByExternalID(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAwaitingTranscription, got.Status)
}
