package testsupport

import (
	"context"
	"os"
	"testing"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/postgres"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/sqlite"
	"github.com/jmoiron/sqlx"
)

// MustOpenDB opens and migrates the SQLite job store named by cfg and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sqlx.DB {
	t.Helper()

	db, err := sqlite.NewSqliteDB(cfg.Postgres.DSN)
	if err != nil {
		t.Fatalf("sqlite.NewSqliteDB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err = repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("repository.Migrate: %v", err)
	}
	return db
}

func MustOpenRepo(t testing.TB, cfg *config.Config) jobs.Repository {
	t.Helper()
	return repository.NewJobRepo(MustOpenDB(t, cfg))
}

// PostgresDSNEnv names a disposable Postgres database for the tests that need real row locks.
const PostgresDSNEnv = "TRANSCRIPT_TEST_POSTGRES_DSN"

// MustOpenPostgresRepo opens the database named by PostgresDSNEnv with an empty jobs table, or
// skips t when the variable is unset.
func MustOpenPostgresRepo(t testing.TB) jobs.Repository {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	cfg := NewConfig(t)
	cfg.Postgres.PgDriver = "pgx"
	cfg.Postgres.DSN = dsn
	db, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		t.Fatalf("postgres.NewPsqlDB: %v", err)
	}
	ctx := context.Background()
	if err = repository.Migrate(ctx, db); err != nil {
		t.Fatalf("repository.Migrate: %v", err)
	}
	if _, err = db.ExecContext(ctx, "DELETE FROM jobs"); err != nil {
		t.Fatalf("clear jobs: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(context.Background(), "DELETE FROM jobs")
		db.Close()
	})
	return repository.NewJobRepo(db)
}

// NewJob creates a queued job for sourceURL.
func NewJob(t testing.TB, repo jobs.Repository, sourceURL string) *models.Job {
	t.Helper()

	job, err := repo.Create(context.Background(), &models.Job{
		SourceURL: sourceURL,
		Status:    models.JobStatusQueued,
		Step:      "queued",
		Message:   "Queued",
	})
	if err != nil {
		t.Fatalf("repo.Create: %v", err)
	}
	return job
}

// NewAwaitingJob creates a job and walks it to awaiting_transcription with both audio keys set.
func NewAwaitingJob(t testing.TB, repo jobs.Repository, sourceURL string) *models.Job {
	t.Helper()

	ctx := context.Background()
	job := NewJob(t, repo, sourceURL)
	steps := []models.JobStatus{models.JobStatusDownloading, models.JobStatusConverting}
	for _, st := range steps {
		if _, err := repo.Update(ctx, job.ExternalID, &models.JobPatch{Status: models.Ptr(st)}); err != nil {
			t.Fatalf("repo.Update(%s): %v", st, err)
		}
	}
	ns := job.Namespace()
	job, err := repo.Update(ctx, job.ExternalID, &models.JobPatch{
		Status:             models.Ptr(models.JobStatusAwaitingTranscription),
		Percent:            models.Ptr(65),
		SourceAudioKey:     models.Ptr(models.ArtifactKey(ns, models.SourceAudioFile)),
		NormalizedAudioKey: models.Ptr(models.ArtifactKey(ns, models.NormalizedAudioFile)),
	})
	if err != nil {
		t.Fatalf("repo.Update(awaiting): %v", err)
	}
	return job
}
