// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rehanisg222/deploymentcrm/internal/config"
	"github.com/rehanisg222/deploymentcrm/internal/handler"
	"github.com/rehanisg222/deploymentcrm/internal/middleware"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth       *handler.AuthHandler
	Leads      *handler.LeadHandler
	Comments   *handler.CommentHandler
	Activities *handler.ActivityHandler
	Brokers    *handler.BrokerHandler
	Projects   *handler.ProjectHandler
	Users      *handler.UserHandler
	Health     echo.HandlerFunc
}

// Options carries what the protected group needs besides handlers.  A nil
// Redis client disables rate limiting and caching.
type Options struct {
	JWTSecret string
	Resolver  middleware.PrincipalResolver
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *zap.Logger
}

// RegisterRoutes mounts the health check.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth mounts the token endpoints.  They are public and share the
// rate limiter keyed by client address.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opts Options) {
	g := e.Group("/v1/auth", middleware.RateLimit(opts.RateLimit, opts.Redis, opts.Log))
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// Register mounts everything.
func Register(e *echo.Echo, h Handlers, opts Options) {
	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, opts)
	RegisterCRM(e, h, opts)
}
