// Package middleware provides HTTP middleware for the civic complaint API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/models"
)

type contextKey string

const actorContextKey contextKey = "actor"

// ActorResolver maps a bearer credential to an identity.
type ActorResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.Identity, error)
}

// ActorFrom returns the authenticated identity attached to the request
// context, or nil for guests.
func ActorFrom(ctx context.Context) *models.Identity {
	actor, _ := ctx.Value(actorContextKey).(*models.Identity)
	return actor
}

// StructuredLogger returns a middleware that logs HTTP requests with zap.
func StructuredLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.statusCode),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", r.Header.Get("X-Request-ID")),
			)
		})
	}
}

// RequireActor resolves the bearer token and attaches the identity to the
// request context, rejecting the request with 401 when no valid actor
// resolves. A store outage during resolution is not the caller's fault
// and surfaces as 503 instead.
func RequireActor(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolveActor(r, resolver)
			if errors.Is(err, models.ErrStoreUnavailable) {
				http.Error(w, `{"error": "Service temporarily unavailable, please try again later"}`, http.StatusServiceUnavailable)
				return
			}
			if err != nil {
				http.Error(w, `{"error": "Authentication required"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

// AttachActor resolves the bearer token when one is present and attaches
// the identity, but always lets the request through. Used by public
// endpoints that personalize for signed-in users, like the chatbot.
func AttachActor(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor, err := resolveActor(r, resolver); err == nil {
				r = r.WithContext(withActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveActor(r *http.Request, resolver ActorResolver) (*models.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || token == authHeader {
		return nil, models.ErrUnauthenticated
	}
	return resolver.ResolveToken(r.Context(), token)
}

func withActor(ctx context.Context, actor *models.Identity) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// RateLimitPerActor caps how many times an authenticated user may hit the
// wrapped endpoint per window, tracked in Redis with a per-user counter.
// A nil client disables the limiter; Redis outages fail open.
func RateLimitPerActor(rdb *redis.Client, limit int, window time.Duration, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFrom(r.Context())
			if rdb == nil || actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:complaints:%s", actor.ID)
			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.Warnw("Rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := rdb.Expire(r.Context(), key, window).Err(); err != nil {
					logger.Warnw("Rate limiter TTL failed", "error", err)
				}
			}

			if count > int64(limit) {
				retryAfter, _ := rdb.TTL(r.Context(), key).Result()
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
				http.Error(w, `{"error": "Rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
