package di

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-service/cmd/api/infrastructure"
	"user-service/internal/adapter/cache"
	"user-service/internal/adapter/db/mongodb"
	"user-service/internal/adapter/db/postgres"
	ginhandler "user-service/internal/adapter/gin/handler"
	"user-service/internal/adapter/gin/middleware"
	"user-service/internal/adapter/gin/router"
	"user-service/internal/adapter/repository/cached"
	"user-service/internal/config"
	"user-service/internal/usecase/auth"
	"user-service/internal/usecase/user"
	redisclient "user-service/pkg/redis"
	"user-service/pkg/security"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Mongo       *mongo.Client
	RedisClient *redisclient.Client
	UserUC      user.Usecase
	AuthUC      auth.Usecase
	RateLimiter *middleware.RateLimiter
	Router      *gin.Engine
}

// NewContainer creates and initializes all application dependencies.
// Resources opened before a failure are closed.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	checks := map[string]ginhandler.Checker{}

	repo, err := c.initRepository(ctx, checks)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		checks["redis"] = c.RedisClient.Check

		userCache := cache.NewRedisUserCache(c.RedisClient.Client, cfg.Redis.CacheTTL(), l)
		repo = cached.NewUserRepository(repo, userCache, l)

		c.RateLimiter = middleware.NewRateLimiter(c.RedisClient.Client, middleware.RateLimiterConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, l.Named("rate_limiter"))
	} else if cfg.RateLimit.Enabled {
		l.Warn("rate limiting requires Redis and is disabled")
	}

	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens, err := security.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, security.WithIssuer(cfg.Auth.JWTIssuer))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	c.UserUC = user.New(repo, hasher, l.Named("user"))
	c.AuthUC = auth.New(repo, hasher, tokens, l.Named("auth"))

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	c.Router = router.SetupRouter(router.Handlers{
		User:   ginhandler.NewUserHandler(c.UserUC, l),
		Auth:   ginhandler.NewAuthHandler(c.AuthUC, l),
		Health: ginhandler.NewHealthHandler(cfg.Logger.ServiceName, checks),
	}, router.Options{
		Verifier:       tokens,
		RateLimiter:    c.RateLimiter,
		SwaggerEnabled: cfg.App.SwaggerEnabled,
	}, l)

	return c, nil
}

// initRepository opens the store selected by DB_DRIVER and registers its
// health check.
func (c *Container) initRepository(ctx context.Context, checks map[string]ginhandler.Checker) (user.Repository, error) {
	cfg, l := c.Config, c.Logger

	if cfg.DB.Driver == config.DriverMongoDB {
		client, coll, err := infrastructure.NewMongo(ctx, cfg, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.Mongo = client
		checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return mongodb.NewUserRepo(coll, l), nil
	}

	db, err := infrastructure.NewDatabase(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db
	checks["database"] = infrastructure.PingDatabase(db)
	return postgres.NewUserRepo(db, l), nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if c.Mongo != nil {
		if err := c.Mongo.Disconnect(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect mongodb: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
