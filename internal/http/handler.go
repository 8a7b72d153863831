package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tweeter/internal/auth"
	"tweeter/internal/domain"
	"tweeter/internal/service"
)

// Authenticator issues and resolves sign-in sessions.
type Authenticator interface {
	SignIn(ctx context.Context, userID int64, remember bool) (*auth.Session, error)
	Resolve(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, time.Duration, error)
}

// AvatarURLs resolves where avatar styles are served from.
type AvatarURLs interface {
	URL(ctx context.Context, avatar domain.Avatar, style string) string
	URLs(ctx context.Context, avatar domain.Avatar) map[string]string
}

// Options configures a Handler. Limiter may be nil to disable rate limiting.
type Options struct {
	Users        service.UserService
	Tweets       service.TweetService
	Auth         Authenticator
	Avatars      AvatarURLs
	Limiter      RateLimiter
	RateLimit    int
	RateWindow   time.Duration
	CookieSecure bool
	Logger       *logrus.Logger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	tweets       service.TweetService
	auth         Authenticator
	avatars      AvatarURLs
	limiter      RateLimiter
	rateLimit    int
	rateWindow   time.Duration
	cookieSecure bool
	logger       *logrus.Logger
}

func NewHandler(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	return &Handler{
		users:        opts.Users,
		tweets:       opts.Tweets,
		auth:         opts.Auth,
		avatars:      opts.Avatars,
		limiter:      opts.Limiter,
		rateLimit:    opts.RateLimit,
		rateWindow:   opts.RateWindow,
		cookieSecure: opts.CookieSecure,
		logger:       opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger), h.consumeFlash(), h.loadCurrentUser())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	router.GET("/", h.listTweets)
	router.GET("/tweets", h.listTweets)

	limited := h.rateLimited("auth")
	users := router.Group("/users")
	{
		users.GET("/sign_up", h.newRegistration)
		users.POST("", h.register)
		users.GET("/sign_in", h.newSession)
		users.POST("/sign_in", limited, h.signIn)
		users.DELETE("/sign_out", h.signOut)

		users.GET("/password/new", h.newPassword)
		users.GET("/password/edit", h.editPassword)
		users.POST("/password", limited, h.requestPasswordReset)
		users.PATCH("/password", limited, h.resetPassword)
		users.PUT("/password", limited, h.resetPassword)

		users.GET("/edit", h.requireSignedIn, h.editRegistration)
		users.PATCH("", h.requireSignedIn, h.updateRegistration)
		users.PUT("", h.requireSignedIn, h.updateRegistration)

		users.GET("", h.listUsers)
		users.GET("/:user_id", h.showUser)
		users.GET("/:user_id/edit", h.requireSignedIn, h.editUser)
		users.PATCH("/:user_id", h.requireSignedIn, h.updateUser)
		users.PUT("/:user_id", h.requireSignedIn, h.updateUser)
		users.DELETE("/:user_id", h.requireSignedIn, h.destroyUser)

		users.GET("/:user_id/tweets", h.listUserTweets)
		users.GET("/:user_id/tweets/new", h.requireTweetOwner, h.newTweet)
		users.POST("/:user_id/tweets", h.requireTweetOwner, h.createTweet)
		users.GET("/:user_id/tweets/:id", h.showTweet)
		users.GET("/:user_id/tweets/:id/edit", h.requireTweetOwner, h.editTweet)
		users.PATCH("/:user_id/tweets/:id", h.requireTweetOwner, h.updateTweet)
		users.PUT("/:user_id/tweets/:id", h.requireTweetOwner, h.updateTweet)
		users.DELETE("/:user_id/tweets/:id", h.requireTweetOwner, h.destroyTweet)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Location, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
