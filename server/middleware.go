package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"tangled.sh/tangled.sh/notifications/log"
)

const HeaderRequestID = "X-Request-Id"

// RequestID tags each request with an id, reusing a well-formed one sent
// by the caller, and hands handlers a logger that carries it.
func (h *Handle) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := log.IntoContext(r.Context(), h.l.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handle) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		queryParams := r.URL.Query()
		queryAttrs := make([]any, 0, len(queryParams))
		for key, values := range queryParams {
			if len(values) == 1 {
				queryAttrs = append(queryAttrs, slog.String(key, values[0]))
			} else {
				queryAttrs = append(queryAttrs, slog.Any(key, values))
			}
		}

		h.logger(r).LogAttrs(r.Context(), slog.LevelInfo, "",
			slog.Group("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("range", r.Header.Get("Range")),
				slog.Group("query", queryAttrs...),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
			),
		)
	})
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}
