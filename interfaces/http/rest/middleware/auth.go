package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"pathway-engine/pkg/auth"
	"pathway-engine/pkg/common"

	"go.uber.org/zap"
)

// AuthConfig configures the authentication middleware
type AuthConfig struct {
	Validator         *auth.JWTValidator
	Logger            *zap.Logger
	RequestsPerMinute int
	// SkipPaths are matched by prefix and bypass authentication entirely
	SkipPaths []string
}

// Authenticate validates bearer tokens and applies per-IP and per-user
// rate limits. Unauthenticated requests are throttled by client IP so a
// single source cannot brute-force tokens.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 120
	}
	ipLimiter := auth.NewSlidingWindowLimiter(cfg.RequestsPerMinute, time.Minute)
	userLimiter := auth.NewUserRateLimiter(cfg.RequestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range cfg.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			clientIP := getClientIP(r)
			allowed, err := ipLimiter.Allow(r.Context(), "ip:"+clientIP)
			if err == nil && !allowed {
				cfg.Logger.Warn("ip rate limit exceeded", zap.String("ip", clientIP))
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			token, err := extractBearerToken(r)
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
				return
			}

			claims, err := cfg.Validator.ValidateToken(token)
			if err != nil {
				code, message := "UNAUTHORIZED", "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					code, message = "TOKEN_EXPIRED", "token has expired"
				}
				cfg.Logger.Debug("token rejected",
					zap.String("ip", clientIP),
					zap.Error(err),
				)
				common.RespondError(w, http.StatusUnauthorized, code, message)
				return
			}

			allowed, err = userLimiter.Allow(r.Context(), claims.UserID)
			if err == nil && !allowed {
				cfg.Logger.Warn("user rate limit exceeded", zap.String("user_id", claims.UserID))
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			ctx = common.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated user lacks the role
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			for _, have := range user.Roles {
				if have == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.RespondError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("malformed authorization header")
	}
	return parts[1], nil
}

// getClientIP resolves the originating client address, trusting proxy
// headers when present.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
