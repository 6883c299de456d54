package middleware

import (
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/auth"
	"github.com/amankumarsingh77/transcript-pipeline/internal/config"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/logger"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/labstack/echo/v4"
)

type MiddlewareManager struct {
	verifier auth.Verifier
	cfg      *config.Config
	origins  []string
	logger   logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(verifier auth.Verifier, cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{verifier: verifier, cfg: cfg, origins: origins, logger: logger}
}

// RequestLoggerMiddleware logs one line per request.
func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		req := c.Request()
		res := c.Response()
		mw.logger.Infof("RequestID: %s, Method: %s, URI: %s, Status: %v, Time: %s",
			utils.GetRequestID(c), req.Method, req.URL.String(), res.Status, time.Since(start))
		return err
	}
}
