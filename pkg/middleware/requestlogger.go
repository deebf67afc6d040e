package middleware

import (
	"log/slog"
	"net/http"

	"github.com/matchdayhq/media-service/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// actor_id, trace_id, and span_id, and stores it in context. Downstream
// handlers retrieve it with logger.FromContext(ctx).
//
// Mount AFTER RequestLogging (correlation_id), Tracing (span context), and
// the identity middleware (actor_id).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if actorID := ActorIDFromContext(ctx); actorID != "" {
				ctx = logger.WithActorID(ctx, actorID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
