package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
worker:
  APIToken: secret
s3:
  Bucket: media
`)
	v, err := LoadConfig(path)
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "shared", cfg.Worker.AuthMode)
	assert.Equal(t, 20*time.Minute, cfg.Worker.GrantTTL)
	assert.Equal(t, "faster-whisper-small", cfg.Worker.Model)
	assert.Equal(t, 2, cfg.Tasks.MaxRetry)
	assert.Equal(t, 30*time.Second, cfg.Tasks.RetryDelay)
	assert.Equal(t, "pgx", cfg.Postgres.PgDriver)
	assert.Equal(t, "yt-dlp", cfg.Fetcher.YtDlpPath)
	assert.Equal(t, "media", cfg.S3.Bucket)
	assert.False(t, cfg.Worker.ReclaimExpiredClaims)
}

func TestParseConfigReadsDurations(t *testing.T) {
	path := writeConfig(t, `
worker:
  APIToken: secret
  GrantTTL: 5m
tasks:
  RetryDelay: 10s
`)
	v, err := LoadConfig(path)
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.Worker.GrantTTL)
	assert.Equal(t, 10*time.Second, cfg.Tasks.RetryDelay)
}

func TestValidateAuthModes(t *testing.T) {
	cases := []struct {
		name    string
		worker  WorkerConfig
		wantErr bool
	}{
		{"shared ok", WorkerConfig{AuthMode: "shared", APIToken: "t"}, false},
		{"shared missing token", WorkerConfig{AuthMode: "shared"}, true},
		{"hashed ok", WorkerConfig{AuthMode: "hashed", APITokenHash: "$2a$10$x"}, false},
		{"hashed missing hash", WorkerConfig{AuthMode: "hashed"}, true},
		{"jwt ok", WorkerConfig{AuthMode: "jwt", JwtSecretKey: "k"}, false},
		{"jwt missing key", WorkerConfig{AuthMode: "jwt"}, true},
		{"unknown", WorkerConfig{AuthMode: "oauth"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Worker: tc.worker, Postgres: DBConfig{PgDriver: "pgx"}}
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/transcripts/config.yml")
	assert.Equal(t, "/etc/transcripts/config.yml", ConfigPath())
}
