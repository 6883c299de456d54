package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/usecase"
	"github.com/amankumarsingh77/transcript-pipeline/internal/worker"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/aws"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "transcribectl",
	Short:         "Operate the transcript pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.ConfigPath(), "path to the config file")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what the job commands share. It is built lazily so commands like token need no store.
type app struct {
	cfg        *config.Config
	db         *sqlx.DB
	taskClient *asynq.Client
	jobsUC     jobs.UseCase
}

func (a *app) Close() {
	if a.taskClient != nil {
		a.taskClient.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func loadConfig() (*config.Config, error) {
	v, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config.ParseConfig(v)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewApiLogger(cfg)
	log.InitLogger()

	jobDB, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err = repository.Migrate(ctx, jobDB); err != nil {
		jobDB.Close()
		return nil, err
	}
	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		jobDB.Close()
		return nil, err
	}
	taskClient := asynq.NewClient(worker.RedisOpt(cfg))

	jobRepo := repository.NewJobRepo(jobDB)
	awsRepo := repository.NewAwsRepository(s3Client, presignClient, cfg.S3.Bucket)
	queue := repository.NewAsynqQueue(taskClient, cfg.Tasks)
	return &app{
		cfg:        cfg,
		db:         jobDB,
		taskClient: taskClient,
		jobsUC:     usecase.NewJobsUseCase(cfg, jobRepo, nil, awsRepo, queue, log),
	}, nil
}

// withApp runs fn with a freshly built app and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
