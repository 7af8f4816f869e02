package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/models"
)

const requestIDHeader = "X-Request-ID"

type ctxKey int

const (
	ctxLogger ctxKey = iota
	ctxToken
	ctxIdentity
)

// requestIDMiddleware reuses the client's X-Request-ID or generates one, and
// attaches a logger carrying it to the request context.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		logger := slog.Default().With("request_id", id)
		ctx := context.WithValue(r.Context(), ctxLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// metricsMiddleware records requests by route template, so /deals/{id} is one series.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		if route == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.ObserveRequest(r.Method, route, m.Code, m.Duration)
		loggerFrom(r.Context()).Debug("Request served",
			"method", r.Method, "route", route, "status", m.Code, "duration", m.Duration)
	})
}

// sessionMiddleware resolves a bearer token to an identity. A missing or
// stale token is not an error here; handlers decide what needs a caller.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		ctx := context.WithValue(r.Context(), ctxToken, token)
		if id := s.auth.Identity(token); id != nil {
			ctx = context.WithValue(ctx, ctxIdentity, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller is the signed-in identity, or nil.
func caller(r *http.Request) *models.Identity {
	id, _ := r.Context().Value(ctxIdentity).(*models.Identity)
	return id
}

func bearerToken(r *http.Request) string {
	t, _ := r.Context().Value(ctxToken).(string)
	return t
}
