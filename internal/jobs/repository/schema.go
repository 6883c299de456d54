package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                   BIGSERIAL PRIMARY KEY,
		external_id          UUID NOT NULL UNIQUE,
		source_url           TEXT NOT NULL,
		youtube_id           TEXT NOT NULL DEFAULT '',
		title                TEXT NOT NULL DEFAULT '',
		channel_title        TEXT NOT NULL DEFAULT '',
		published_at         TIMESTAMPTZ NULL,
		duration_sec         DOUBLE PRECISION NULL,
		status               TEXT NOT NULL,
		step                 TEXT NOT NULL DEFAULT '',
		percent              INTEGER NOT NULL DEFAULT 0 CHECK (percent BETWEEN 0 AND 100),
		message              VARCHAR(255) NOT NULL DEFAULT '',
		source_audio_key     TEXT NOT NULL DEFAULT '',
		normalized_audio_key TEXT NOT NULL DEFAULT '',
		transcript_json_key  TEXT NOT NULL DEFAULT '',
		transcript_vtt_key   TEXT NOT NULL DEFAULT '',
		language             TEXT NOT NULL DEFAULT '',
		segment_count        INTEGER NULL,
		attempts             INTEGER NOT NULL DEFAULT 0,
		claim_id             UUID NULL UNIQUE,
		claimed_at           TIMESTAMPTZ NULL,
		claim_expires_at     TIMESTAMPTZ NULL,
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_created_at_idx ON jobs (status, created_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id          TEXT NOT NULL UNIQUE,
		source_url           TEXT NOT NULL,
		youtube_id           TEXT NOT NULL DEFAULT '',
		title                TEXT NOT NULL DEFAULT '',
		channel_title        TEXT NOT NULL DEFAULT '',
		published_at         DATETIME NULL,
		duration_sec         REAL NULL,
		status               TEXT NOT NULL,
		step                 TEXT NOT NULL DEFAULT '',
		percent              INTEGER NOT NULL DEFAULT 0 CHECK (percent BETWEEN 0 AND 100),
		message              TEXT NOT NULL DEFAULT '',
		source_audio_key     TEXT NOT NULL DEFAULT '',
		normalized_audio_key TEXT NOT NULL DEFAULT '',
		transcript_json_key  TEXT NOT NULL DEFAULT '',
		transcript_vtt_key   TEXT NOT NULL DEFAULT '',
		language             TEXT NOT NULL DEFAULT '',
		segment_count        INTEGER NULL,
		attempts             INTEGER NOT NULL DEFAULT 0,
		claim_id             TEXT NULL UNIQUE,
		claimed_at           DATETIME NULL,
		claim_expires_at     DATETIME NULL,
		created_at           DATETIME NOT NULL,
		updated_at           DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_status_created_at_idx ON jobs (status, created_at)`,
}

// Migrate creates the jobs table for the driver db was opened with.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := postgresSchema
	if isSQLite(db) {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate jobs schema: %w", err)
		}
	}
	return nil
}

func isSQLite(db *sqlx.DB) bool {
	return db.DriverName() == "sqlite"
}
