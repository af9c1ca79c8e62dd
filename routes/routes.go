package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"eventmanager/config"
	"eventmanager/metrics"
	"eventmanager/middlewares"
	"eventmanager/models"
	"eventmanager/services"
	"eventmanager/utils"
)

// HealthCheck pings one backing store.
type HealthCheck func(ctx context.Context) error

type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// Deps is everything the HTTP layer needs. Redis and Invalidator may be nil,
// which turns off the response cache and the daily quota.
type Deps struct {
	Auth          *services.AuthService
	Events        *services.EventService
	Registrations *services.RegistrationService
	Tokens        *utils.JWTManager
	Redis         *redis.Client
	Invalidator   *utils.CacheInvalidator
	Cookie        CookieConfig
	Limits        config.RateLimitConfig
	CacheTTL      time.Duration
	HealthChecks  map[string]HealthCheck
	Logger        zerolog.Logger
}

type deps struct {
	Deps
}

// RegisterRoutes mounts the API on server. The returned func stops the
// rate limiters' background sweepers.
func RegisterRoutes(server *gin.Engine, d Deps) func() {
	h := &deps{d}

	globalLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		Name:    "global",
		RPS:     d.Limits.GlobalRPS,
		Burst:   d.Limits.GlobalBurst,
		IdleTTL: 3 * time.Minute,
	})
	authLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		Name:    "auth",
		RPS:     d.Limits.AuthRPS,
		Burst:   d.Limits.AuthBurst,
		IdleTTL: 10 * time.Minute,
	})
	userLimiter := middlewares.NewRateLimiter(middlewares.LimiterConfig{
		Name:    "user",
		RPS:     d.Limits.UserRPS,
		Burst:   d.Limits.UserBurst,
		IdleTTL: 10 * time.Minute,
	})

	server.Use(
		metrics.Middleware(),
		middlewares.RequestLogger(d.Logger),
		globalLimiter.Middleware(middlewares.ByClientIP("ip")),
		middlewares.ResponseCache(d.Redis, d.CacheTTL),
	)

	server.GET("/healthz", h.health)
	server.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := server.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authLimiter.Middleware(middlewares.ByClientIP("signup")), h.signup)
	auth.POST("/login", authLimiter.Middleware(middlewares.ByClientIP("login")), h.login)
	auth.POST("/logout", h.logout)

	api.GET("/events", h.getEvents)
	api.GET("/events/:id", h.getEvent)

	protected := api.Group("")
	protected.Use(
		middlewares.Authenticate(d.Tokens, d.Cookie.Name),
		userLimiter.Middleware(middlewares.ByUser("u")),
		middlewares.Quota(d.Redis, middlewares.QuotaRule{
			Limit:  d.Limits.DailyQuota,
			Window: 24 * time.Hour,
			KeyFn:  middlewares.DailyUserQuotaKey,
		}),
	)

	organizer := protected.Group("")
	organizer.Use(middlewares.RequireRole(models.RoleOrganizer))
	organizer.POST("/events", h.createEvent)
	organizer.PUT("/events/:id", h.updateEvent)
	organizer.DELETE("/events/:id", h.deleteEvent)

	protected.POST("/events/:id/register", h.registerForEvent)
	protected.DELETE("/events/:id/register", h.cancelRegistration)
	protected.GET("/events/:id/registrations", h.eventRegistrations)
	protected.GET("/events/:id/registrations/status", h.registrationStatus)

	protected.GET("/users/me", h.me)
	protected.GET("/users/me/registrations", h.myRegistrations)
	protected.GET("/users/me/events", h.myEvents)

	return func() {
		globalLimiter.Close()
		authLimiter.Close()
		userLimiter.Close()
	}
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{ID: middlewares.CurrentUserID(c), Role: middlewares.CurrentRole(c)}
}
