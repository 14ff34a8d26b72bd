package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/pkg/utils"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))

				utils.JSON(w, http.StatusInternalServerError, map[string]interface{}{
					"error": apperrors.Public(nil),
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
