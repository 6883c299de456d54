package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/testsupport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gpu = &models.WorkerIdentity{Name: "gpu-1"}

func TestClaimNextEmpty(t *testing.T) {
	f := newFixture(t)
	testsupport.NewJob(t, f.repo, "https://example.com/still-queued")

	grant, err := f.worker.ClaimNext(context.Background(), gpu)
	require.NoError(t, err)
	assert.Nil(t, grant)
}

func TestClaimNextIssuesGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	grant, err := f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)
	require.NotNil(t, grant)

	ns := job.Namespace()
	assert.Equal(t, job.ExternalID, grant.Job.ExternalID)
	assert.Equal(t, models.JobStatusTranscribing, grant.Job.Status)
	assert.Equal(t, 65, grant.Job.Percent)
	assert.Equal(t, job.NormalizedAudio, grant.AudioRead.Key)
	assert.Equal(t, "GET", grant.AudioRead.Method)
	assert.Equal(t, ns+"/transcript.json", grant.TranscriptJSONWrite.Key)
	assert.Equal(t, "application/json", grant.TranscriptJSONWrite.ContentType)
	assert.Equal(t, ns+"/transcript.vtt", grant.TranscriptVTTWrite.Key)
	assert.Equal(t, "text/vtt", grant.TranscriptVTTWrite.ContentType)
	assert.Equal(t, f.cfg.Worker.GrantTTL, grant.ValidFor)
	assert.Equal(t, "faster-whisper-small", grant.Settings.Model)
	assert.True(t, grant.Settings.VAD)

	again, err := f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestClaimNextReleasesOnSignFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	f.store.FailSign = errors.New("signer down")
	_, err := f.worker.ClaimNext(ctx, gpu)
	require.Error(t, err)

	got, err := f.repo.GetByExternalID(ctx, job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusAwaitingTranscription, got.Status)
	assert.False(t, got.ClaimID.Valid)

	f.store.FailSign = nil
	grant, err := f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)
	require.NotNil(t, grant)
	assert.Equal(t, job.ExternalID, grant.Job.ExternalID)
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	_, err := f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: job.ExternalID, Percent: models.Ptr(80)})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)

	got, err := f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: job.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, 70, got.Percent)
	assert.Equal(t, "Transcribing…", got.Message)

	got, err = f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: job.ExternalID, Percent: models.Ptr(40), Message: models.Ptr("chunk 3/9")})
	require.NoError(t, err)
	assert.Equal(t, 70, got.Percent)
	assert.Equal(t, "chunk 3/9", got.Message)

	got, err = f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: job.ExternalID, Percent: models.Ptr(150)})
	require.NoError(t, err)
	assert.Equal(t, 99, got.Percent)
	assert.Equal(t, models.JobStatusTranscribing, got.Status)

	_, err = f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: uuid.New()})
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.worker.Heartbeat(ctx, &models.HeartbeatInput{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	_, err := f.worker.Complete(ctx, &models.CompleteInput{JobID: job.ExternalID})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)

	done, err := f.worker.Complete(ctx, &models.CompleteInput{
		JobID:        job.ExternalID,
		Language:     models.Ptr("en"),
		SegmentCount: models.Ptr(42),
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusReady, done.Status)
	assert.Equal(t, 100, done.Percent)
	assert.Equal(t, job.Namespace()+"/transcript.json", done.TranscriptJSON)
	assert.Equal(t, job.Namespace()+"/transcript.vtt", done.TranscriptVTT)
	assert.Equal(t, "en", done.Language)
	require.NotNil(t, done.SegmentCount)
	assert.Equal(t, 42, *done.SegmentCount)

	dup, err := f.worker.Complete(ctx, &models.CompleteInput{JobID: job.ExternalID, Language: models.Ptr("fr")})
	require.NoError(t, err)
	assert.Equal(t, "en", dup.Language)
	assert.Equal(t, done.UpdatedAt, dup.UpdatedAt)

	_, err = f.worker.Complete(ctx, &models.CompleteInput{JobID: uuid.New()})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCompleteWithoutNormalizedAudio(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")

	_, err := f.worker.Complete(context.Background(), &models.CompleteInput{JobID: job.ExternalID})
	assert.ErrorIs(t, err, models.ErrPreconditionFailed)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	submitted, err := f.jobs.Submit(ctx, &models.SubmitInput{URL: "https://www.youtube.com/watch?v=abc123"})
	require.NoError(t, err)
	id := submitted.ExternalID

	ns := submitted.Namespace()
	for _, st := range []models.JobStatus{models.JobStatusDownloading, models.JobStatusConverting} {
		_, err = f.repo.Update(ctx, id, &models.JobPatch{Status: models.Ptr(st)})
		require.NoError(t, err)
	}
	_, err = f.repo.Update(ctx, id, &models.JobPatch{
		Status:             models.Ptr(models.JobStatusAwaitingTranscription),
		Percent:            models.Ptr(65),
		SourceAudioKey:     models.Ptr(ns + "/source.mp3"),
		NormalizedAudioKey: models.Ptr(ns + "/audio_16k.wav"),
	})
	require.NoError(t, err)

	grant, err := f.worker.ClaimNext(ctx, gpu)
	require.NoError(t, err)
	require.NotNil(t, grant)

	hb, err := f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: id, Percent: models.Ptr(85)})
	require.NoError(t, err)
	assert.Equal(t, 85, hb.Percent)

	_, err = f.worker.Complete(ctx, &models.CompleteInput{JobID: id, Language: models.Ptr("en"), SegmentCount: models.Ptr(3)})
	require.NoError(t, err)

	ready, err := f.jobs.GetReady(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusReady, ready.Job.Status)
	for _, u := range []*string{ready.SourceAudioURL, ready.NormalizedAudioURL, ready.TranscriptJSONURL, ready.TranscriptVTTURL} {
		require.NotNil(t, u)
		assert.Contains(t, *u, ns)
	}
}

// Concurrent workers interleave claims, heartbeats and completions on a handful of jobs. No worker
// may ever read a job whose status or percent went backward since its own previous read.
func TestWorkerOperationsNeverMoveJobsBackward(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v").ExternalID
	}

	const workers = 6
	observed := make([]map[uuid.UUID][]*models.Job, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		observed[w] = make(map[uuid.UUID][]*models.Job)
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(int64(w + 1)))
			for i := 0; i < 40; i++ {
				id := ids[rnd.Intn(len(ids))]
				switch rnd.Intn(4) {
				case 0:
					_, _ = f.worker.ClaimNext(ctx, gpu)
				case 1:
					_, _ = f.worker.Heartbeat(ctx, &models.HeartbeatInput{JobID: id, Percent: models.Ptr(rnd.Intn(120))})
				case 2:
					_, _ = f.worker.Complete(ctx, &models.CompleteInput{JobID: id})
				}
				if job, err := f.repo.GetByExternalID(ctx, id); err == nil {
					observed[w][id] = append(observed[w][id], job)
				}
			}
		}(w)
	}
	wg.Wait()

	for w, perJob := range observed {
		for id, seen := range perJob {
			for i := 1; i < len(seen); i++ {
				prev, cur := seen[i-1], seen[i]
				assert.True(t, models.IsForward(prev.Status, cur.Status), "worker %d job %s: %s -> %s", w, id, prev.Status, cur.Status)
				assert.GreaterOrEqual(t, cur.Percent, prev.Percent, "worker %d job %s percent", w, id)
			}
		}
	}

	for _, id := range ids {
		job, err := f.repo.GetByExternalID(ctx, id)
		require.NoError(t, err)
		if job.Status == models.JobStatusReady {
			assert.Equal(t, 100, job.Percent)
		}
	}
}
