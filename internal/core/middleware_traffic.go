package core

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"floodwatch/internal/types"
)

const (
	defaultRateLimitMax    = 300
	defaultRateLimitWindow = time.Minute
)

// RateLimit applies a fixed-window limit per client IP. Health and metrics
// scrapes are exempt. A store error lets the request through.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	limit, window := s.rateLimitSettings()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil || limit <= 0 || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		ip := extractClientIP(r)
		result, err := s.RateLimitStore.IncrementAndCheck(r.Context(), "ratelimit:"+ip, limit, window)
		if err != nil {
			s.Logger.Error("rate limit store error", slog.String("ip", ip), slog.String("error", err.Error()))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("ip", ip),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			retryAfter := max(int(time.Until(result.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			JSON(w, r, http.StatusTooManyRequests, APIErrorResponse{Error: ErrorDetail{
				Code:      string(types.ErrCodeRateLimited),
				Message:   "Rate limit exceeded. Please retry after the reset time.",
				RequestID: types.GetRequestID(r.Context()),
			}})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitSettings() (int, time.Duration) {
	limit, window := defaultRateLimitMax, defaultRateLimitWindow
	if s.Config != nil {
		if s.Config.Server.RateLimitMax != 0 {
			limit = s.Config.Server.RateLimitMax
		}
		if s.Config.Server.RateLimitWindow > 0 {
			window = s.Config.Server.RateLimitWindow
		}
	}
	return limit, window
}

// extractClientIP prefers the first X-Forwarded-For entry and falls back
// to RemoteAddr without its port.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
