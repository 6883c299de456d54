package testsupport

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig returns a config pointing at a fresh SQLite file and temp dir for t.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{AppVersion: "test", Port: ":0", Mode: "Development"},
		Postgres: config.DBConfig{
			PgDriver: "sqlite",
			DSN:      filepath.Join(base, "jobs.db"),
		},
		S3:     config.S3Config{Bucket: "test-bucket", Region: "us-east-1"},
		Logger: config.Logger{Development: true, Encoding: "console", Level: "debug"},
		Worker: config.WorkerConfig{
			AuthMode: "shared",
			APIToken: "test-token",
			GrantTTL: 20 * time.Minute,
			Model:    "faster-whisper-small",
			VAD:      true,
		},
		Tasks: config.TasksConfig{
			Queue:       "prepare",
			Concurrency: 1,
			MaxRetry:    2,
			RetryDelay:  30 * time.Second,
			MaxCPUUsage: 100,
		},
		Fetcher: config.FetcherConfig{
			YtDlpPath:   "yt-dlp",
			FfmpegPath:  "ffmpeg",
			FfprobePath: "ffprobe",
			TempDir:     filepath.Join(base, "tmp"),
			Timeout:     time.Minute,
		},
		Redis: config.RedisConfig{StatusCacheTTL: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func WithAuthMode(mode, secret string) ConfigOption {
	return func(c *config.Config) {
		c.Worker.AuthMode = mode
		switch mode {
		case "shared":
			c.Worker.APIToken = secret
		case "hashed":
			c.Worker.APITokenHash = secret
		case "jwt":
			c.Worker.JwtSecretKey = secret
		}
	}
}
