package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultConfigFile   = "config.yml"
	defaultGrantTTL     = 20 * time.Minute
	defaultModel        = "faster-whisper-small"
	defaultQueue        = "prepare"
	defaultMaxRetry     = 2
	defaultRetryDelay   = 30 * time.Second
	defaultConcurrency  = 2
	defaultMaxCPUUsage  = 90.0
	defaultTempDir      = "tmp_audio"
	defaultFetchTimeout = 30 * time.Minute
	defaultCacheTTL     = 2 * time.Second
	defaultSweepEvery   = time.Minute
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Worker   WorkerConfig
	Tasks    TasksConfig
	Fetcher  FetcherConfig
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    string
	AllowOrigins []string
}

// WorkerConfig covers the transcription-worker protocol: how workers authenticate, how long the
// grants handed out by a claim stay valid and what the worker should run.
type WorkerConfig struct {
	AuthMode             string
	APIToken             string
	APITokenHash         string
	JwtSecretKey         string
	GrantTTL             time.Duration
	Model                string
	VAD                  bool
	ReclaimExpiredClaims bool
	ReclaimInterval      time.Duration
}

// TasksConfig drives the asynq server that runs the fetch+transcode step.
type TasksConfig struct {
	Queue       string
	Concurrency int
	MaxRetry    int
	RetryDelay  time.Duration
	MaxCPUUsage float64
}

type FetcherConfig struct {
	YtDlpPath   string
	FfmpegPath  string
	FfprobePath string
	TempDir     string
	Timeout     time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	PgDriver string
	DSN      string
}

type RedisConfig struct {
	RedisAddr      string
	RedisPassword  string
	DB             int
	MinIdleConns   int
	PoolSize       int
	PoolTimeout    int
	TLS            bool
	StatusCacheTTL time.Duration
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// ConfigPath returns the config file location, CONFIG_PATH wins over the default.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigFile
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = "1M"
	}
	if c.Worker.AuthMode == "" {
		c.Worker.AuthMode = "shared"
	}
	if c.Worker.GrantTTL <= 0 {
		c.Worker.GrantTTL = defaultGrantTTL
	}
	if c.Worker.Model == "" {
		c.Worker.Model = defaultModel
	}
	if c.Worker.ReclaimInterval <= 0 {
		c.Worker.ReclaimInterval = defaultSweepEvery
	}
	if c.Tasks.Queue == "" {
		c.Tasks.Queue = defaultQueue
	}
	if c.Tasks.Concurrency <= 0 {
		c.Tasks.Concurrency = defaultConcurrency
	}
	if c.Tasks.MaxRetry <= 0 {
		c.Tasks.MaxRetry = defaultMaxRetry
	}
	if c.Tasks.RetryDelay <= 0 {
		c.Tasks.RetryDelay = defaultRetryDelay
	}
	if c.Tasks.MaxCPUUsage <= 0 {
		c.Tasks.MaxCPUUsage = defaultMaxCPUUsage
	}
	if c.Fetcher.YtDlpPath == "" {
		c.Fetcher.YtDlpPath = "yt-dlp"
	}
	if c.Fetcher.FfmpegPath == "" {
		c.Fetcher.FfmpegPath = "ffmpeg"
	}
	if c.Fetcher.FfprobePath == "" {
		c.Fetcher.FfprobePath = "ffprobe"
	}
	if c.Fetcher.TempDir == "" {
		c.Fetcher.TempDir = defaultTempDir
	}
	if c.Fetcher.Timeout <= 0 {
		c.Fetcher.Timeout = defaultFetchTimeout
	}
	if c.Postgres.PgDriver == "" {
		c.Postgres.PgDriver = "pgx"
	}
	if c.Redis.StatusCacheTTL <= 0 {
		c.Redis.StatusCacheTTL = defaultCacheTTL
	}
}

func (c *Config) Validate() error {
	switch c.Worker.AuthMode {
	case "shared":
		if c.Worker.APIToken == "" {
			return errors.New("worker.apitoken is required for shared auth mode")
		}
	case "hashed":
		if c.Worker.APITokenHash == "" {
			return errors.New("worker.apitokenhash is required for hashed auth mode")
		}
	case "jwt":
		if c.Worker.JwtSecretKey == "" {
			return errors.New("worker.jwtsecretkey is required for jwt auth mode")
		}
	default:
		return errors.New("worker.authmode must be one of shared, hashed, jwt")
	}
	switch c.Postgres.PgDriver {
	case "pgx", "sqlite":
	default:
		return errors.New("postgres.pgdriver must be pgx or sqlite")
	}
	return nil
}
