package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	stepTranscribing = "transcribing"
	stepAwaiting     = "awaiting_transcription"
	stepQueued       = "queued"

	msgClaimed   = "Transcribing on GPU worker…"
	msgReleased  = "Waiting for GPU worker…"
	msgReclaimed = "Claim expired; waiting for GPU worker…"
	msgQueued    = "Queued"
)

type jobRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewJobRepo(db *sqlx.DB) jobs.Repository {
	return &jobRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (r *jobRepo) Create(ctx context.Context, job *models.Job) (*models.Job, error) {
	now := r.now()
	if job.ExternalID == uuid.Nil {
		job.ExternalID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if _, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(createJobQuery),
		job.ExternalID,
		job.SourceURL,
		string(job.Status),
		job.Step,
		models.ClampPercent(job.Percent),
		models.TruncateMessage(job.Message),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return r.GetByExternalID(ctx, job.ExternalID)
}

func (r *jobRepo) GetByExternalID(ctx context.Context, externalID uuid.UUID) (*models.Job, error) {
	job := &models.Job{}
	if err := r.db.QueryRowxContext(
		ctx,
		r.db.Rebind(getJobByExternalIDQuery),
		externalID,
	).StructScan(job); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job %s: %w", externalID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job by external id: %w", err)
	}
	return job, nil
}

func (r *jobRepo) Update(ctx context.Context, externalID uuid.UUID, patch *models.JobPatch) (*models.Job, error) {
	if patch == nil {
		return nil, fmt.Errorf("nil patch: %w", models.ErrValidation)
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	query, args := buildUpdate(externalID, patch, r.now())
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if count == 0 {
		return nil, r.explainMiss(ctx, externalID, patch)
	}
	return r.GetByExternalID(ctx, externalID)
}

// explainMiss tells a missing job apart from a job whose status failed the guard.
func (r *jobRepo) explainMiss(ctx context.Context, externalID uuid.UUID, patch *models.JobPatch) error {
	current, err := r.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}
	if patch.Attempt != nil && current.Attempts != *patch.Attempt {
		return fmt.Errorf("job %s moved on to attempt %d, write for attempt %d dropped: %w",
			externalID, current.Attempts, *patch.Attempt, models.ErrInvalidTransition)
	}
	target := "unchanged"
	if patch.Status != nil {
		target = patch.Status.String()
	}
	return fmt.Errorf("job %s is %s, cannot move to %s: %w", externalID, current.Status, target, models.ErrInvalidTransition)
}

func (r *jobRepo) ClaimNext(ctx context.Context, claimID uuid.UUID, now, expiresAt time.Time) (*models.Job, error) {
	res, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(claimQuery(isSQLite(r.db))),
		string(models.JobStatusTranscribing),
		stepTranscribing,
		msgClaimed,
		claimID,
		now.UTC().Truncate(time.Microsecond),
		expiresAt.UTC().Truncate(time.Microsecond),
		r.now(),
		string(models.JobStatusAwaitingTranscription),
		string(models.JobStatusAwaitingTranscription),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	job := &models.Job{}
	if err = r.db.QueryRowxContext(
		ctx,
		r.db.Rebind(getJobByClaimIDQuery),
		claimID,
	).StructScan(job); err != nil {
		return nil, fmt.Errorf("failed to load claimed job: %w", err)
	}
	return job, nil
}

func (r *jobRepo) ReleaseClaim(ctx context.Context, externalID, claimID uuid.UUID) error {
	res, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(releaseClaimQuery),
		string(models.JobStatusAwaitingTranscription),
		stepAwaiting,
		msgReleased,
		r.now(),
		externalID,
		claimID,
		string(models.JobStatusTranscribing),
	)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	count, _ := res.RowsAffected()
	if count == 0 {
		return fmt.Errorf("claim %s on job %s is not held: %w", claimID, externalID, models.ErrInvalidTransition)
	}
	return nil
}

func (r *jobRepo) Requeue(ctx context.Context, externalID uuid.UUID, from []models.JobStatus, countAttempt bool) (*models.Job, error) {
	if len(from) == 0 {
		return nil, fmt.Errorf("requeue needs at least one source status: %w", models.ErrValidation)
	}
	attempt := 0
	if countAttempt {
		attempt = 1
	}
	args := []interface{}{
		string(models.JobStatusQueued),
		stepQueued,
		msgQueued,
		attempt,
		r.now(),
		externalID,
	}
	for _, st := range from {
		args = append(args, string(st))
	}
	query := fmt.Sprintf(requeueJobQuery, placeholders(len(from)))
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue job: %w", err)
	}
	count, _ := res.RowsAffected()
	if count == 0 {
		return nil, r.explainMiss(ctx, externalID, &models.JobPatch{Status: models.Ptr(models.JobStatusQueued)})
	}
	return r.GetByExternalID(ctx, externalID)
}

func (r *jobRepo) ListJobs(ctx context.Context, status models.JobStatus, pq *utils.Pagination) (*models.JobList, error) {
	var totalCount int
	if err := r.db.GetContext(
		ctx,
		&totalCount,
		r.db.Rebind(getTotalJobsQuery),
		string(status),
		string(status),
	); err != nil {
		return nil, fmt.Errorf("failed to get total jobs count: %w", err)
	}
	if totalCount == 0 {
		return &models.JobList{
			Jobs:       make([]*models.Job, 0),
			TotalCount: 0,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    false,
		}, nil
	}

	rows, err := r.db.QueryxContext(
		ctx,
		r.db.Rebind(getJobsQuery),
		string(status),
		string(status),
		pq.GetLimit(),
		pq.GetOffset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	list := make([]*models.Job, 0, pq.GetSize())
	for rows.Next() {
		var job models.Job
		if err = rows.StructScan(&job); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		list = append(list, &job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	return &models.JobList{
		Jobs:       list,
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (r *jobRepo) ReclaimExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(reclaimExpiredQuery),
		string(models.JobStatusAwaitingTranscription),
		stepAwaiting,
		msgReclaimed,
		r.now(),
		string(models.JobStatusTranscribing),
		cutoff.UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim expired claims: %w", err)
	}
	return res.RowsAffected()
}

// buildUpdate turns a patch into a single guarded UPDATE touching only the named columns.
func buildUpdate(externalID uuid.UUID, p *models.JobPatch, now time.Time) (string, []interface{}) {
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.Step != nil {
		set("step", *p.Step)
	}
	if p.Percent != nil {
		pct := models.ClampPercent(*p.Percent)
		if p.PercentMode == models.PercentMax {
			sets = append(sets, "percent = CASE WHEN percent < ? THEN ? ELSE percent END")
			args = append(args, pct, pct)
		} else {
			set("percent", pct)
		}
	}
	if p.Message != nil {
		set("message", models.TruncateMessage(*p.Message))
	}
	if m := p.Metadata; m != nil {
		set("youtube_id", m.YoutubeID)
		set("title", m.Title)
		set("channel_title", m.ChannelTitle)
		set("published_at", utcOrNil(m.PublishedAt))
		set("duration_sec", m.DurationSec)
	}
	if p.SourceAudioKey != nil {
		set("source_audio_key", *p.SourceAudioKey)
	}
	if p.NormalizedAudioKey != nil {
		set("normalized_audio_key", *p.NormalizedAudioKey)
	}
	if p.TranscriptJSONKey != nil {
		set("transcript_json_key", *p.TranscriptJSONKey)
	}
	if p.TranscriptVTTKey != nil {
		set("transcript_vtt_key", *p.TranscriptVTTKey)
	}
	if p.Language != nil {
		set("language", *p.Language)
	}
	if p.SegmentCount != nil {
		set("segment_count", *p.SegmentCount)
	}
	if p.ClearClaim {
		sets = append(sets, "claim_id = NULL", "claimed_at = NULL", "claim_expires_at = NULL")
	}
	set("updated_at", now)

	var b strings.Builder
	b.WriteString("UPDATE jobs SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" WHERE external_id = ?")
	args = append(args, externalID)

	if p.Attempt != nil {
		b.WriteString(" AND attempts = ?")
		args = append(args, *p.Attempt)
	}
	if guard := p.Guard(); len(guard) > 0 {
		b.WriteString(" AND status IN (")
		b.WriteString(placeholders(len(guard)))
		b.WriteString(")")
		for _, st := range guard {
			args = append(args, string(st))
		}
	}
	return b.String(), args
}

func claimQuery(sqlite bool) string {
	if sqlite {
		return fmt.Sprintf(claimNextJobQuery, "")
	}
	return fmt.Sprintf(claimNextJobQuery, postgresRowLock)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Truncate(time.Microsecond)
}
