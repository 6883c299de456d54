package http

import (
	"net/http"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/middleware"
	"github.com/labstack/echo/v4"
)

func MapJobRoutes(jobGroup *echo.Group, h jobs.Handlers) {
	jobGroup.POST("", h.Submit())
	jobGroup.GET("", h.ListJobs())
	jobGroup.GET("/:job_id", h.GetJob())
	jobGroup.GET("/:job_id/status", h.GetStatus())
	jobGroup.GET("/:job_id/ready", h.GetReady())
	jobGroup.GET("/:job_id/transcript.vtt", h.GetTranscriptVTT())
	jobGroup.POST("/:job_id/requeue", h.Requeue())
}

func MapWorkerRoutes(workerGroup *echo.Group, h jobs.WorkerHandlers, mw *middleware.MiddlewareManager) {
	auth := mw.WorkerAuthMiddleware(http.StatusUnauthorized)
	workerGroup.POST("/next", h.Next(), auth)
	workerGroup.POST("/heartbeat", h.Heartbeat(), mw.WorkerAuthMiddleware(http.StatusBadRequest))
	workerGroup.POST("/complete", h.Complete(), auth)
	workerGroup.GET("/ping", h.Ping(), auth)
}
