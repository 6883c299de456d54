package server

import (
	"net/http"

	"github.com/amankumarsingh77/transcript-pipeline/internal/auth"
	jobsHttp "github.com/amankumarsingh77/transcript-pipeline/internal/jobs/delivery/http"
	jobsRepository "github.com/amankumarsingh77/transcript-pipeline/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/transcript-pipeline/internal/jobs/usecase"
	"github.com/amankumarsingh77/transcript-pipeline/internal/middleware"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/labstack/echo/v4"
)

// MapHandlers wires repositories, use cases and routes. The returned sweeper is nil unless expired
// claim reclaiming is switched on.
func (s *Server) MapHandlers(e *echo.Echo) (*Sweeper, error) {
	jobRepo := jobsRepository.NewJobRepo(s.db)
	awsRepo := jobsRepository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.Bucket)
	redisRepo := jobsRepository.NewRedisRepo(s.redisClient)
	queue := jobsRepository.NewAsynqQueue(s.taskClient, s.cfg.Tasks)

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, jobRepo, redisRepo, awsRepo, queue, s.logger)
	workerUC := jobsUsecase.NewWorkerUseCase(s.cfg, jobRepo, awsRepo, s.logger)

	verifier, err := auth.NewVerifier(s.cfg.Worker)
	if err != nil {
		return nil, err
	}
	mw := middleware.NewMiddlewareManager(verifier, s.cfg, s.cfg.Server.AllowOrigins, s.logger)
	e.Use(mw.RequestLoggerMiddleware)

	jobsHttp.MapJobRoutes(e.Group("/jobs"), jobsHttp.NewJobsHandlers(jobsUC, s.logger))
	jobsHttp.MapWorkerRoutes(e.Group("/worker"), jobsHttp.NewWorkerHandlers(workerUC, s.logger), mw)

	e.GET("/health", func(c echo.Context) error {
		s.logger.Debugf("Health check RequestID: %s", utils.GetRequestID(c))
		if err := s.db.PingContext(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "DB_UNAVAILABLE"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	if !s.cfg.Worker.ReclaimExpiredClaims {
		return nil, nil
	}
	return NewSweeper(jobsUC, redisRepo, s.cfg.Worker.ReclaimInterval, s.logger), nil
}
