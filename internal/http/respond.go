package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tweeter/internal/auth"
	"tweeter/internal/service"
)

const (
	flashCookie = "tweeter_flash"
	flashKey    = "flash"

	flashNotice = "notice"
	flashAlert  = "alert"
)

// consumeFlash moves a pending flash message into the context of the next
// GET request and clears it.
func (h *Handler) consumeFlash() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		raw, err := c.Cookie(flashCookie)
		if err != nil || raw == "" {
			c.Next()
			return
		}

		h.setCookie(c, flashCookie, "", -1)
		if values, err := url.ParseQuery(raw); err == nil {
			kind := values.Get("kind")
			if kind == flashNotice || kind == flashAlert {
				c.Set(flashKey, gin.H{kind: values.Get("message")})
			}
		}
		c.Next()
	}
}

// redirect answers with 303 See Other. The message rides along in the body
// and in a flash cookie for the next page.
func (h *Handler) redirect(c *gin.Context, location, kind, message string) {
	h.redirectWith(c, location, kind, message, nil)
}

func (h *Handler) redirectWith(c *gin.Context, location, kind, message string, extra gin.H) {
	body := gin.H{"location": location}
	if message != "" {
		body[kind] = message
		h.setCookie(c, flashCookie, url.Values{"kind": {kind}, "message": {message}}.Encode(), 60)
	}
	for k, v := range extra {
		body[k] = v
	}
	c.Header("Location", location)
	c.JSON(http.StatusSeeOther, body)
}

// render writes a JSON page and attaches a pending flash message.
func (h *Handler) render(c *gin.Context, body gin.H) {
	if f, ok := c.Get(flashKey); ok {
		body[flashKey] = f
	}
	c.JSON(http.StatusOK, body)
}

// fail maps service errors onto responses. Validation failures echo the
// submitted input under resource.
func (h *Handler) fail(c *gin.Context, err error, resource string, input any) {
	if verr, ok := service.AsValidation(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.Fields, resource: input})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		notFound(c)
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
	case errors.Is(err, service.ErrForbidden):
		h.redirect(c, refererOr(c, "/"), flashAlert, "This action is not allowed")
	default:
		_ = c.Error(err)
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func refererOr(c *gin.Context, fallback string) string {
	if ref := c.GetHeader("Referer"); ref != "" {
		return ref
	}
	return fallback
}

// pathID parses a numeric path parameter. Malformed ids answer 404 since no
// record can match them.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		notFound(c)
		return 0, false
	}
	return id, true
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookieSecure, true)
}

func (h *Handler) setSessionCookie(c *gin.Context, session *auth.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	h.setCookie(c, sessionCookie, session.Token, maxAge)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	h.setCookie(c, sessionCookie, "", -1)
}
