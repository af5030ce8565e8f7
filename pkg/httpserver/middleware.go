package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"hosh/pkg/config"
	"hosh/pkg/logger"
)

// statusRecorder captures the status code written by the wrapped
// handler so the logging middleware can report it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs one structured line per request: method, path, status,
// duration. Grounded on the teacher's LoggingInterceptor field set
// (method/duration_ms/code), translated from a gRPC unary interceptor
// to an http.Handler wrapper.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		logFields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		if rec.status >= 500 {
			logger.Log.Error("request failed", logFields...)
		} else {
			logger.Log.Info("request completed", logFields...)
		}
	})
}

// CORS builds an origin-checking middleware from cfg, mirroring the
// teacher's gateway CORS middleware (exact-match or "*" origin,
// wildcard header expansion, preflight short-circuit). The teacher's
// config also carries an ExposedHeaders field; hosh's CORSConfig has
// no API surface that needs it (the JSON API exposes nothing beyond
// Content-Type), so that header is not set here.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowedHeaders := prepareAllowedHeaders(cfg.AllowedHeaders)
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	maxAge := time.Duration(cfg.MaxAge) * time.Second

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			allowedOrigin := ""
			for _, o := range cfg.AllowedOrigins {
				if o == "*" {
					allowedOrigin = "*"
					break
				}
				if o == origin {
					allowedOrigin = origin
					break
				}
			}

			if allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", int(maxAge.Seconds())))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// prepareAllowedHeaders expands a "*" wildcard to a concrete header
// list (browsers never send Authorization under a literal "*") and
// otherwise ensures Authorization is present.
func prepareAllowedHeaders(headers []string) string {
	for _, h := range headers {
		if h == "*" {
			return strings.Join([]string{
				"Accept",
				"Accept-Language",
				"Content-Language",
				"Content-Type",
				"Authorization",
				"Origin",
				"X-Requested-With",
			}, ", ")
		}
	}

	hasAuth := false
	for _, h := range headers {
		if strings.EqualFold(h, "Authorization") {
			hasAuth = true
			break
		}
	}
	if !hasAuth {
		headers = append(headers, "Authorization")
	}
	return strings.Join(headers, ", ")
}

// RequireAPIKey gates a handler behind the Dispatch API's shared
// secret, checked as an "api_key" query parameter per spec.md §6.
func RequireAPIKey(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != apiKey {
			http.Error(w, "invalid or missing api_key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
