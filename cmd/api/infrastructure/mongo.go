package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"user-service/internal/adapter/db/mongodb"
	"user-service/internal/config"
)

// NewMongo connects to MongoDB, verifies the connection and returns the
// client with the users collection. Indexes are created when DB_AUTO_MIGRATE
// is set.
func NewMongo(ctx context.Context, cfg *config.Config, l *zap.Logger) (*mongo.Client, *mongo.Collection, error) {
	opts := options.Client().
		ApplyURI(cfg.DB.URL).
		SetMaxPoolSize(uint64(cfg.DB.MaxOpenConns)).
		SetMaxConnIdleTime(time.Duration(cfg.DB.ConnMaxIdleTimeSeconds) * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(cfg.DB.Name).Collection(mongodb.CollectionName)

	if cfg.DB.AutoMigrate {
		if err := mongodb.NewUserRepo(coll, l).EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
	}

	l.Info("mongodb connected successfully",
		zap.String("database", cfg.DB.Name),
		zap.Int("max_pool_size", cfg.DB.MaxOpenConns),
	)

	return client, coll, nil
}
