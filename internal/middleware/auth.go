package middleware

import (
	"context"

	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/amankumarsingh77/transcript-pipeline/pkg/utils"
	"github.com/labstack/echo/v4"
)

type WorkerCtxKey struct{}

// WorkerAuthMiddleware rejects requests without a valid worker bearer token before any handler runs.
// failStatus is the code answered on rejection; the heartbeat endpoint historically answers 400.
func (mw *MiddlewareManager) WorkerAuthMiddleware(failStatus int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := utils.BearerToken(c)
			if !ok {
				mw.logger.Warnf("WorkerAuth RequestID: %s, missing bearer token", utils.GetRequestID(c))
				return c.JSON(failStatus, map[string]string{"error": "bad token"})
			}
			worker, err := mw.verifier.Verify(c.Request().Context(), token)
			if err != nil {
				mw.logger.Warnf("WorkerAuth RequestID: %s, ERROR: %v", utils.GetRequestID(c), err)
				return c.JSON(failStatus, map[string]string{"error": "bad token"})
			}

			c.Set("worker", worker)
			ctx := context.WithValue(c.Request().Context(), WorkerCtxKey{}, worker)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// WorkerFromCtx returns the identity stored by WorkerAuthMiddleware.
func WorkerFromCtx(ctx context.Context) (*models.WorkerIdentity, bool) {
	w, ok := ctx.Value(WorkerCtxKey{}).(*models.WorkerIdentity)
	return w, ok
}
