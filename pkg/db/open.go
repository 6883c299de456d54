// Package db opens the job store named by the configuration.
package db

import (
	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/postgres"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/sqlite"
	"github.com/jmoiron/sqlx"
)

func Open(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Postgres.PgDriver == sqlite.DriverName {
		return sqlite.NewSqliteDB(cfg.Postgres.DSN)
	}
	return postgres.NewPsqlDB(cfg)
}
