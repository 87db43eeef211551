package middleware

import (
	"net/http"
	"time"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"
	"campus-store/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderSessionToken carries the opaque session token. A cookie with
	// CookieSessionToken is accepted as a fallback for browser clients.
	HeaderSessionToken = "X-Session-Token"
	CookieSessionToken = "session_token"

	// Context keys
	CtxUserID  = "user_id"
	CtxUserKey = "user"
	CtxToken   = "session_token"
)

// SessionAuth resolves the opaque session token to an active user and
// stores it on the context. Unknown, expired or disabled sessions abort
// with AUTH_003.
func SessionAuth(authSvc ports.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		user, err := authSvc.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserKey, user)
		c.Set(CtxToken, token)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if token := c.GetHeader(HeaderSessionToken); token != "" {
		return token
	}
	if token, err := c.Cookie(CookieSessionToken); err == nil {
		return token
	}
	return ""
}

// RequireRoles restricts a route to the given roles. Admins pass
// regardless, so an admin-capable route only needs its primary roles
// listed.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}
		if user.Role != domain.RoleAdmin {
			if _, ok := allowed[user.Role]; !ok {
				response.Error(c, apperror.ErrForbidden("You do not have permission to perform this action"))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by SessionAuth, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// RequestID assigns every request an ID and echoes it in the response
// header for client-side correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// RequestLogger logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
