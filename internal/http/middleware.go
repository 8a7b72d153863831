package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tweeter/internal/auth"
	"tweeter/internal/domain"
	"tweeter/internal/repository"
)

const (
	sessionCookie = "tweeter_session"

	currentUserKey = "current_user"
	sessionKey     = "session"
)

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
			"ip":      c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

// loadCurrentUser resolves the session token, if any, into the signed-in
// user. Invalid, revoked and orphaned sessions are treated as anonymous.
func (h *Handler) loadCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" || h.auth == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		session, err := h.auth.Resolve(ctx, token)
		if err != nil {
			if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrInvalidSession) {
				h.clearSessionCookie(c)
			} else {
				h.logger.WithError(err).Warn("resolve session")
			}
			c.Next()
			return
		}

		user, err := h.users.GetByID(ctx, session.UserID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				h.logger.WithError(err).WithField("user_id", session.UserID).Warn("load current user")
			}
			c.Next()
			return
		}

		c.Set(currentUserKey, user)
		c.Set(sessionKey, session)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}

func currentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func currentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*auth.Session)
	return session
}

func (h *Handler) requireSignedIn(c *gin.Context) {
	if currentUser(c) != nil {
		c.Next()
		return
	}
	h.redirect(c, "/users/sign_in", flashAlert, "You need to sign in or sign up before continuing.")
	c.Abort()
}

// requireTweetOwner lets mutations on a user's tweets through only when the
// path user is the signed-in user. It runs before any tweet is loaded.
func (h *Handler) requireTweetOwner(c *gin.Context) {
	user := currentUser(c)
	pathID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if user == nil || err != nil || user.ID != pathID {
		h.redirect(c, "/", flashAlert, "Invalid action")
		c.Abort()
		return
	}
	c.Next()
}

// rateLimited throttles requests per client IP. Limiter failures let the
// request through.
func (h *Handler) rateLimited(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}

		key := "ratelimit:" + bucket + ":" + c.ClientIP()
		allowed, _, retryAfter, err := h.limiter.CheckRateLimit(c.Request.Context(), key, h.rateLimit, h.rateWindow)
		if err != nil {
			h.logger.WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			seconds := int(retryAfter.Round(time.Second) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
