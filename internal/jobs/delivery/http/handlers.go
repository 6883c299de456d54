package http

import (
	"io"
	"net/http"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type jobsHandlers struct {
	jobsUC jobs.UseCase
	logger logger.Logger
}

func NewJobsHandlers(jobsUC jobs.UseCase, log logger.Logger) jobs.Handlers {
	return &jobsHandlers{
		jobsUC: jobsUC,
		logger: log,
	}
}

type submitResponse struct {
	JobID     uuid.UUID        `json:"job_id"`
	Status    models.JobStatus `json:"status"`
	StatusURL string           `json:"status_url"`
	ReadyURL  string           `json:"ready_url"`
}

func (h *jobsHandlers) Submit() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.SubmitInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		job, err := h.jobsUC.Submit(c.Request().Context(), input)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		base := "/jobs/" + job.ExternalID.String()
		c.Response().Header().Set(echo.HeaderLocation, base)
		return c.JSON(http.StatusCreated, submitResponse{
			JobID:     job.ExternalID,
			Status:    job.Status,
			StatusURL: base + "/status",
			ReadyURL:  base + "/ready",
		})
	}
}

func (h *jobsHandlers) ListJobs() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		list, err := h.jobsUC.ListJobs(c.Request().Context(), models.JobStatus(c.QueryParam("status")), pagination)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (h *jobsHandlers) GetJob() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		job, err := h.jobsUC.GetJob(c.Request().Context(), jobID)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, job)
	}
}

func (h *jobsHandlers) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		view, err := h.jobsUC.GetStatus(c.Request().Context(), jobID)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func (h *jobsHandlers) GetReady() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		view, err := h.jobsUC.GetReady(c.Request().Context(), jobID)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func (h *jobsHandlers) GetTranscriptVTT() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		body, err := h.jobsUC.TranscriptVTT(c.Request().Context(), jobID)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		defer body.Close()

		c.Response().Header().Set(echo.HeaderContentType, models.TranscriptVTTContentType+"; charset=utf-8")
		c.Response().WriteHeader(http.StatusOK)
		if _, err = io.Copy(c.Response(), body); err != nil {
			h.logger.Errorf("GetTranscriptVTT RequestID: %s, stream error: %v", utils.GetRequestID(c), err)
		}
		return nil
	}
}

func (h *jobsHandlers) Requeue() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID, err := uuid.Parse(c.Param("job_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
		}
		job, err := h.jobsUC.Requeue(c.Request().Context(), jobID)
		if err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, job)
	}
}
