package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"archie/internal/domain/entity"
	"archie/internal/infrastructure/correlation"
)

// Correlation opens a correlation scope per request, echoes the id in the response header and
// closes the scope on every exit path.
func Correlation(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, id, end := correlation.Begin(r.Context(), r.Header.Get(correlation.Header))
			defer end()

			w.Header().Set(correlation.Header, id)

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			stage := entity.StageCompleted
			if rw.status >= http.StatusBadRequest {
				stage = entity.StageFailed
			}
			logger.InfoContext(ctx, "request finished",
				"method", r.Method, "path", r.URL.Path, "status", rw.status,
				"stage", stage, "duration", time.Since(start))
		})
	}
}

// Recovery converts a panic into an INTERNAL_ERROR envelope. Details stay in the server log.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "panic in HTTP handler",
						"method", r.Method, "path", r.URL.Path, "panic", rec, "stack", string(debug.Stack()))
					code, env := failure(fmt.Errorf("panic: %v", rec))
					writeJSON(w, code, env)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
