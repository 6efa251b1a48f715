package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bookdrive/internal/common"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/dmitrijs2005/bookdrive/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
)

const (
	userContextKey  = "bookdrive.user"
	tokenContextKey = "bookdrive.token"
)

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

// requireSession rejects the request unless it carries a live session.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader(common.AuthorizationHeaderName))
		user, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

// optionalSession lets anonymous requests through. A token that is present
// must still be valid.
func (s *Server) optionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if token == "" {
			c.Next()
			return
		}
		user, err := s.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(userContextKey, user)
		c.Set(tokenContextKey, token)
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	raw, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := raw.(*models.User)
	return user
}

func currentToken(c *gin.Context) string {
	return c.GetString(tokenContextKey)
}

// rateLimited throttles a route per client address. Limiter failures let the
// request through.
func (s *Server) rateLimited(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || s.rateLimit <= 0 {
			c.Next()
			return
		}
		key := "auth:" + scope + ":" + c.ClientIP()
		decision, err := s.limiter.Allow(c.Request.Context(), key, s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.Warn(c.Request.Context(), "rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorMessage(c, http.StatusTooManyRequests, common.ErrRateLimited.Error())
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"url", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"agent", c.Request.UserAgent(),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error(c.Request.Context(), "panic recovered",
			"method", c.Request.Method, "url", c.Request.URL.Path, "panic", recovered)
		writeErrorMessage(c, http.StatusInternalServerError, common.ErrorInternal.Error())
	})
}
