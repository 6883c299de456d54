package http

import (
	"errors"
	"net/http"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/middleware"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type workerHandlers struct {
	workerUC jobs.WorkerUseCase
	logger   logger.Logger
}

func NewWorkerHandlers(workerUC jobs.WorkerUseCase, log logger.Logger) jobs.WorkerHandlers {
	return &workerHandlers{
		workerUC: workerUC,
		logger:   log,
	}
}

// nextResponse is the claim payload a transcription worker receives.
type nextResponse struct {
	JobID                  uuid.UUID             `json:"job_id"`
	SourceURL              string                `json:"source_url"`
	Metadata               models.Metadata       `json:"metadata"`
	AudioReadURL           string                `json:"audio_read_url"`
	TranscriptJSONWriteURL string                `json:"transcript_json_write_url"`
	TranscriptVTTWriteURL  string                `json:"transcript_vtt_write_url"`
	Settings               models.WorkerSettings `json:"settings"`
	ExpiresInMinutes       int                   `json:"expires_in_minutes"`
}

func newNextResponse(g *models.ClaimGrant) nextResponse {
	return nextResponse{
		JobID:                  g.Job.ExternalID,
		SourceURL:              g.Job.SourceURL,
		Metadata:               g.Job.Metadata,
		AudioReadURL:           g.AudioRead.URL,
		TranscriptJSONWriteURL: g.TranscriptJSONWrite.URL,
		TranscriptVTTWriteURL:  g.TranscriptVTTWrite.URL,
		Settings:               g.Settings,
		ExpiresInMinutes:       int(g.ValidFor.Minutes()),
	}
}

var okResponse = map[string]bool{"ok": true}

func (h *workerHandlers) Next() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		worker, _ := middleware.WorkerFromCtx(ctx)
		grant, err := h.workerUC.ClaimNext(ctx, worker)
		if err != nil {
			h.logger.Errorf("Next RequestID: %s, ERROR: %v", utils.GetRequestID(c), err)
			return utils.ErrorJSON(c, err)
		}
		if grant == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, newNextResponse(grant))
	}
}

// Heartbeat answers 400 for an unknown job, matching its bad-token answer.
func (h *workerHandlers) Heartbeat() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.HeartbeatInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if _, err := h.workerUC.Heartbeat(c.Request().Context(), input); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown job"})
			}
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, okResponse)
	}
}

func (h *workerHandlers) Complete() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.CompleteInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request payload"})
		}
		if _, err := h.workerUC.Complete(c.Request().Context(), input); err != nil {
			return utils.ErrorJSON(c, err)
		}
		return c.JSON(http.StatusOK, okResponse)
	}
}

func (h *workerHandlers) Ping() echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := map[string]interface{}{"ok": true}
		if worker, ok := middleware.WorkerFromCtx(c.Request().Context()); ok {
			resp["worker"] = worker.Name
		}
		return c.JSON(http.StatusOK, resp)
	}
}
