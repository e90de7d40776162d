package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// loggingMiddleware logs every request and records it under the matched route pattern.
func loggingMiddleware(mux *http.ServeMux, logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := "unmatched"
		if _, pattern := mux.Handler(r); pattern != "" {
			endpoint = pattern
		}
		metrics.ObserveHTTP(endpoint, strconv.Itoa(recorder.status), dur.Seconds())

		logger.Info().
			Str("request_id", RequestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPAuth provides API-key auth and per-client rate limiting for HTTP endpoints.
type HTTPAuth struct {
	enabled  bool
	keys     *keyring
	limits   *clientLimits
	exempted map[string]bool
}

func NewHTTPAuth(cfg *config.APIConfig, shared domain.RateLimitStore, logger *zerolog.Logger) *HTTPAuth {
	return &HTTPAuth{
		enabled:  cfg.Auth.Enabled,
		keys:     newKeyring(cfg.Auth),
		limits:   newClientLimits(cfg, shared, logger),
		exempted: map[string]bool{"/healthz": true},
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.exempted[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		if a.enabled {
			_, err := a.keys.authenticate(
				r.Header.Get(a.keys.apiKeyHeader),
				r.Header.Get(a.keys.extraHeader),
				requiredPermissionHTTP(r),
			)
			if err != nil {
				statusCode := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if !a.limits.allow(r.Context(), "http", a.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requiredPermissionHTTP maps a request to "read:<resource>" or "write:<resource>".
func requiredPermissionHTTP(r *http.Request) string {
	resource, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch resource {
	case "users", "items", "bookings", "requests":
	default:
		return ""
	}

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return permReadPrefix + resource
	}
	return permWritePrefix + resource
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.keys.apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}
