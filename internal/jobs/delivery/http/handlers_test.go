package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/amankumarsingh77/transcript-pipeline/internal/auth"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/usecase"
	"github.com/amankumarsingh77/transcript-pipeline/internal/middleware"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/internal/testsupport"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "test-token"

type apiFixture struct {
	e     *echo.Echo
	repo  jobs.Repository
	store *testsupport.ArtifactStore
	queue *testsupport.Queue
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	log := logger.NewNop()
	f := &apiFixture{
		e:     echo.New(),
		repo:  testsupport.MustOpenRepo(t, cfg),
		store: testsupport.NewArtifactStore(),
		queue: &testsupport.Queue{},
	}
	verifier, err := auth.NewVerifier(cfg.Worker)
	require.NoError(t, err)
	mw := middleware.NewMiddlewareManager(verifier, cfg, nil, log)

	jobsUC := usecase.NewJobsUseCase(cfg, f.repo, nil, f.store, f.queue, log)
	workerUC := usecase.NewWorkerUseCase(cfg, f.repo, f.store, log)
	MapJobRoutes(f.e.Group("/jobs"), NewJobsHandlers(jobsUC, log))
	MapWorkerRoutes(f.e.Group("/worker"), NewWorkerHandlers(workerUC, log), mw)
	return f
}

func (f *apiFixture) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestSubmitAndPoll(t *testing.T) {
	f := newAPI(t)

	rec := f.do(http.MethodPost, "/jobs", `{"url":"https://example.com/video123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created submitResponse
	decode(t, rec, &created)
	assert.Equal(t, models.JobStatusQueued, created.Status)
	assert.Equal(t, "/jobs/"+created.JobID.String(), rec.Header().Get(echo.HeaderLocation))

	rec = f.do(http.MethodGet, created.StatusURL, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view models.StatusView
	decode(t, rec, &view)
	assert.Equal(t, models.JobStatusQueued, view.Status)
	assert.Equal(t, 0, view.Percent)

	rec = f.do(http.MethodGet, "/jobs?status=queued", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.JobList
	decode(t, rec, &list)
	assert.Equal(t, 1, list.TotalCount)
}

func TestClientErrors(t *testing.T) {
	f := newAPI(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/jobs", `{"url":"nope"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/jobs/not-a-uuid/status", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/jobs/"+uuid.NewString()+"/status", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/jobs/"+uuid.NewString(), "", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/jobs?status=done", "", "").Code)

	job := testsupport.NewJob(t, f.repo, "https://example.com/v")
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/jobs/"+job.ExternalID.String()+"/requeue", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/jobs/"+job.ExternalID.String()+"/transcript.vtt", "", "").Code)
}

func TestWorkerAuth(t *testing.T) {
	f := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/worker/next", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/worker/next", "", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/worker/ping", "", "wrong").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/worker/heartbeat", `{"job_id":"`+uuid.NewString()+`"}`, "wrong").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/worker/ping", "", token).Code)
}

func TestWorkerNextEmpty(t *testing.T) {
	f := newAPI(t)
	rec := f.do(http.MethodPost, "/worker/next", "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWorkerConcurrentNext(t *testing.T) {
	f := newAPI(t)
	testsupport.NewAwaitingJob(t, f.repo, "https://example.com/v")

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = f.do(http.MethodPost, "/worker/next", "", token).Code
		}(i)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusNoContent}, codes)
}

func TestWorkerFlow(t *testing.T) {
	f := newAPI(t)
	job := testsupport.NewAwaitingJob(t, f.repo, "https://example.com/video123")
	id := job.ExternalID.String()

	rec := f.do(http.MethodPost, "/worker/next", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var next map[string]interface{}
	decode(t, rec, &next)
	assert.Equal(t, id, next["job_id"])
	assert.Equal(t, "https://example.com/video123", next["source_url"])
	assert.Contains(t, next["audio_read_url"], "audio_16k.wav")
	assert.Contains(t, next["transcript_json_write_url"], "content-type=application/json")
	assert.Contains(t, next["transcript_vtt_write_url"], "content-type=text/vtt")
	assert.EqualValues(t, 20, next["expires_in_minutes"])
	settings, ok := next["settings"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "faster-whisper-small", settings["model"])
	assert.Equal(t, true, settings["vad"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/worker/heartbeat", `{"job_id":"`+uuid.NewString()+`"}`, token).Code)
	rec = f.do(http.MethodPost, "/worker/heartbeat", `{"job_id":"`+id+`","percent":60}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/worker/heartbeat", `{"job_id":"`+id+`","percent":40}`, token).Code)

	got, err := f.repo.GetByExternalID(context.Background(), job.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 65, got.Percent)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/worker/complete", `{"job_id":"`+uuid.NewString()+`"}`, token).Code)
	rec = f.do(http.MethodPost, "/worker/complete", `{"job_id":"`+id+`","language":"en","segment_count":42}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/worker/complete", `{"job_id":"`+id+`","language":"en","segment_count":42}`, token).Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/worker/heartbeat", `{"job_id":"`+id+`"}`, token).Code)

	f.store.Objects[job.Namespace()+"/transcript.vtt"] = []byte("WEBVTT\n")
	rec = f.do(http.MethodGet, "/jobs/"+id+"/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready models.ReadyView
	decode(t, rec, &ready)
	assert.Equal(t, models.JobStatusReady, ready.Job.Status)
	assert.Equal(t, "en", ready.Job.Language)
	assert.NotNil(t, ready.TranscriptJSONURL)
	assert.NotNil(t, ready.TranscriptVTTURL)

	rec = f.do(http.MethodGet, "/jobs/"+id+"/transcript.vtt", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WEBVTT\n", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/vtt"))
}

func TestWorkerCompleteWithoutAudio(t *testing.T) {
	f := newAPI(t)
	job := testsupport.NewJob(t, f.repo, "https://example.com/v")

	rec := f.do(http.MethodPost, "/worker/complete", `{"job_id":"`+job.ExternalID.String()+`"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
