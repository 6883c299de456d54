package main

import (
	"context"
	"log"

	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	"github.com/amankumarsingh77/transcript-pipeline/internal/server"
	"github.com/amankumarsingh77/transcript-pipeline/internal/worker"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/aws"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/db/redis"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/hibiken/asynq"
)

func main() {
	log.Println("Starting server")
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
	appLogger.Infof("db connected, status: %#v", jobDB.Stats())

	redisClient, err := redis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer redisClient.Close()
	appLogger.Infof("redis connected")

	s3Client, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	taskClient := asynq.NewClient(worker.RedisOpt(cfg))
	defer taskClient.Close()

	s := server.NewServer(cfg, jobDB, redisClient, s3Client, presignClient, taskClient, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Fatalf("could not start server: %s", err)
	}
}
