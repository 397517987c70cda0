package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"cmseditor/pkg/auth"
	"cmseditor/pkg/common"
)

// Headers set by the Lambda entry point after API Gateway authorized the
// request
const (
	HeaderGatewayAuthorized = "X-API-Gateway-Authorized"
	HeaderUserID            = "X-User-ID"
	HeaderUserEmail         = "X-User-Email"
	HeaderUserRoles         = "X-User-Roles"
)

// Authenticate validates the bearer token of every request and stores the
// user in the request context
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Missing authentication token")
				return
			}

			user, err := validator.Authenticate(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", ClientIP(r)),
					zap.String("path", r.URL.Path),
				)
				message := "Invalid token"
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					message = "Token has expired"
				case errors.Is(err, auth.ErrInvalidSignature):
					message = "Invalid token signature"
				}
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r, user)))
		})
	}
}

// AuthenticateForLambda trusts the user headers the Lambda entry point
// derives from the API Gateway authorizer context
func AuthenticateForLambda(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderGatewayAuthorized) != "true" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Request not authorized by API Gateway")
				return
			}
			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Missing user context from API Gateway")
				return
			}

			var roles []string
			if v := r.Header.Get(HeaderUserRoles); v != "" {
				roles = strings.Split(v, ",")
			}

			logger.Debug("Request authorized by API Gateway", zap.String("user_id", userID))
			user := auth.NewUser(userID, r.Header.Get(HeaderUserEmail), roles)
			next.ServeHTTP(w, r.WithContext(withUser(r, user)))
		})
	}
}

// RequireRole rejects users that carry none of roles
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				common.RespondError(w, http.StatusUnauthorized, common.StandardErrorCodes.Unauthorized, "Unauthorized")
				return
			}
			if !user.HasRole(roles...) {
				common.RespondError(w, http.StatusForbidden, common.StandardErrorCodes.Forbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits requests per client address. Limiter failures are
// logged and the request is let through.
func RateLimitByIP(limiter auth.RateLimiter, limit int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logger.Error("Rate limiter error", zap.String("ip", ip), zap.Error(err))
			}
			if !allowed {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
				common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(r *http.Request, user *auth.UserContext) context.Context {
	return auth.SetUserInContext(r.Context(), user)
}

// extractToken reads the bearer token from the Authorization header or
// the auth_token cookie
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return h
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ClientIP returns the address of the client, honouring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
