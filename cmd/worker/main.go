package main

import (
	"context"
	"log"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/internal/worker"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/aws"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
)

func main() {
	cfgFile, err := config.LoadConfig(config.ConfigPath())
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	jobDB, err := db.Open(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	defer jobDB.Close()
	if err = repository.Migrate(context.Background(), jobDB); err != nil {
		appLogger.Fatalf("could not migrate db: %s", err)
	}

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	jobRepo := repository.NewJobRepo(jobDB)
	awsRepo := repository.NewAwsRepository(s3Client, presignClient, cfg.S3.Bucket)
	processor := worker.NewProcessor(cfg, jobRepo, awsRepo, worker.NewExecutor(cfg.Fetcher), appLogger)
	handler := worker.NewTaskHandler(cfg, processor, appLogger)

	if err = worker.NewWorker(cfg, appLogger, handler).Run(); err != nil {
		appLogger.Fatalf("worker stopped: %s", err)
	}
}
