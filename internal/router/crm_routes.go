package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rehanisg222/deploymentcrm/internal/access"
	"github.com/rehanisg222/deploymentcrm/internal/middleware"
)

// RegisterCRM mounts the authenticated API under /v1.  Every request
// carries a JWT and is resolved to a principal from the database before
// the role gates run.  Services repeat the role checks.
func RegisterCRM(e *echo.Echo, h Handlers, opts Options) {
	g := e.Group("/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.LoadPrincipal(opts.Resolver, opts.Log),
		middleware.RateLimit(opts.RateLimit, opts.Redis, opts.Log),
	)
	anyRole := middleware.RequireRole(access.RoleAdmin, access.RoleBroker)
	adminOnly := middleware.RequireRole(access.RoleAdmin)

	g.GET("/me", h.Users.Me, anyRole)
	g.POST("/users", h.Users.Create, adminOnly)

	g.GET("/leads", h.Leads.Get, anyRole)
	g.POST("/leads", h.Leads.Create, adminOnly)
	g.PUT("/leads", h.Leads.Update, anyRole)
	g.DELETE("/leads", h.Leads.Delete, adminOnly)

	g.GET("/lead-comments", h.Comments.List, anyRole)
	g.POST("/lead-comments", h.Comments.Create, anyRole)
	g.DELETE("/lead-comments", h.Comments.Delete, adminOnly)

	g.GET("/activities", h.Activities.Get, adminOnly)
	g.POST("/activities", h.Activities.Create, adminOnly)

	b := g.Group("/brokers", adminOnly)
	b.GET("", h.Brokers.Get)
	b.POST("", h.Brokers.Create)
	b.PUT("", h.Brokers.Update)
	b.DELETE("", h.Brokers.Delete)
	b.GET("/stats", h.Brokers.Stats, middleware.ResponseCache(opts.Cache, opts.Redis, opts.Log))
	b.POST("/link-user", h.Brokers.LinkUser)

	pr := g.Group("/projects", adminOnly)
	pr.GET("", h.Projects.Get)
	pr.POST("", h.Projects.Create)
	pr.PUT("", h.Projects.Update)
	pr.DELETE("", h.Projects.Delete)
}
