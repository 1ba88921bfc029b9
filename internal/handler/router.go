package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/middleware"
)

// Router collects everything NewRouter wires into the engine.
type Router struct {
	Links       *LinkHandler
	Redirects   *RedirectHandler
	Pages       *PagesHandler
	Health      *HealthHandler
	Auth        *middleware.Auth
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	Logger      logrus.FieldLogger
	// TrustedProxies feed gin's ClientIP. Empty trusts no forwarding headers.
	TrustedProxies []string
}

// NewRouter builds the gin engine. Middleware runs in the order added.
func NewRouter(r Router) *gin.Engine {
	engine := gin.New()
	if err := engine.SetTrustedProxies(r.TrustedProxies); err != nil {
		r.Logger.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.Logger))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	engine.GET("/health", r.Health.Health)
	engine.GET("/ready", r.Health.Ready)
	engine.GET("/live", r.Health.Live)

	engine.GET(PathNotFound, r.Pages.NotFound)
	engine.GET(PathExpired, r.Pages.Expired)
	engine.GET(PathLimitReached, r.Pages.LimitReached)
	engine.GET(PathError, r.Pages.Error)

	engine.GET("/:shortCode", r.RateLimiter.Middleware(), r.Redirects.Redirect)

	api := engine.Group("/api/links")
	api.Use(r.RateLimiter.Middleware())
	{
		api.POST("", r.Auth.OptionalUser(), r.Links.Create)

		owned := api.Group("", r.Auth.RequireUser())
		owned.GET("", r.Links.List)
		owned.GET("/:id", r.Links.Get)
		owned.DELETE("/:id", r.Links.Delete)
		owned.GET("/:id/analytics", r.Links.Analytics)
		owned.GET("/:id/qr", r.Links.QR)
	}

	return engine
}
