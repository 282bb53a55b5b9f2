package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-service/api"
	"user-service/internal/adapter/gin/handler"
	"user-service/internal/adapter/gin/middleware"
	"user-service/pkg/logger"
)

// APIPrefix is the path prefix every route is also mounted under.
const APIPrefix = "/api"

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	User   *handler.UserHandler
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
}

// Options configures optional router features.
type Options struct {
	Verifier       middleware.TokenVerifier
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	SwaggerEnabled bool
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(h Handlers, opts Options, log *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(logger.RequestIDMiddleware())
	router.Use(middleware.Logger(log))

	router.GET("/health", h.Health.Health)

	if opts.SwaggerEnabled {
		swaggerUI := httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
		router.GET("/swagger/*any", func(c *gin.Context) {
			// the document is embedded rather than registered with swag
			if c.Param("any") == "/doc.json" {
				c.Data(http.StatusOK, "application/json; charset=utf-8", api.SwaggerJSON)
				return
			}
			swaggerUI(c.Writer, c.Request)
		})
	}

	requireAuth := middleware.Auth(opts.Verifier, log)

	for _, prefix := range []string{"", APIPrefix} {
		g := router.Group(prefix)
		g.Use(opts.RateLimiter.Middleware())

		g.POST("/login", h.Auth.Login)
		g.POST("/users", h.User.CreateUser)

		users := g.Group("/users", requireAuth)
		{
			users.GET("", h.User.ListUsers)
			users.GET("/:id", h.User.GetUser)
			users.PUT("/:id", h.User.UpdateUser)
			users.DELETE("/:id", h.User.DeleteUser)
		}
	}

	return router
}
