package cached

import (
	"context"
	"hash/maphash"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-service/internal/adapter/cache"
	domain "user-service/internal/domain/user"
	"user-service/internal/usecase/user"
)

// generationShards bounds the per-id write counters; ids sharing a shard only
// cost each other a skipped cache fill.
const generationShards = 256

// UserRepository implements user.Repository with a read-through cache on
// GetByID. Writes go to the wrapped repository first and then evict.
//
// A fill that raced a write must not outlive it: every successful write bumps
// the id's generation before evicting, and a fill whose generation moved while
// it was loading drops its own entry.
type UserRepository struct {
	db    user.Repository
	cache cache.UserCache
	log   *zap.Logger
	group singleflight.Group
	seed  maphash.Seed
	gens  [generationShards]atomic.Uint64
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository wraps db with cache.
func NewUserRepository(db user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		db:    db,
		cache: c,
		log:   log.Named("cached_repo"),
		seed:  maphash.MakeSeed(),
	}
}

// Create delegates to the wrapped repository.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.db.Create(ctx, u)
}

// List delegates to the wrapped repository.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.db.List(ctx)
}

// GetByEmail delegates to the wrapped repository.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.db.GetByEmail(ctx, email)
}

// GetByID serves from cache when possible. Concurrent misses for the same id
// share a single database read. Absent users are not cached.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u := r.fromCache(ctx, id); u != nil {
		return u, nil
	}

	result, err, shared := r.group.Do(cache.Key(id), func() (any, error) {
		// another flight may have filled the cache while this one waited
		if u := r.fromCache(ctx, id); u != nil {
			return u, nil
		}

		gen := r.generation(id)
		start := gen.Load()

		u, err := r.db.GetByID(ctx, id)
		if err != nil || u == nil {
			return u, err
		}

		if gen.Load() != start {
			return u, nil
		}
		if err := r.cache.Set(ctx, u); err != nil {
			r.log.Warn("failed to cache user", zap.String("id", id), zap.Error(err))
			return u, nil
		}
		if gen.Load() != start {
			r.log.Debug("user changed during cache fill", zap.String("id", id))
			r.evict(ctx, id)
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	u, _ := result.(*domain.User)
	if u == nil {
		return nil, nil
	}
	if shared {
		clone := *u
		return &clone, nil
	}
	return u, nil
}

// Update writes through and evicts the cached entry.
func (r *UserRepository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	u, err := r.db.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return u, nil
}

// Delete removes the user and evicts the cached entry.
func (r *UserRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.db.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return u, nil
}

func (r *UserRepository) fromCache(ctx context.Context, id string) *domain.User {
	u, err := r.cache.Get(ctx, id)
	if err != nil {
		r.log.Warn("cache read failed, falling back to database", zap.String("id", id), zap.Error(err))
		return nil
	}
	return u
}

func (r *UserRepository) generation(id string) *atomic.Uint64 {
	return &r.gens[maphash.String(r.seed, id)%generationShards]
}

// invalidate must run after the write is committed.
func (r *UserRepository) invalidate(ctx context.Context, id string) {
	r.generation(id).Add(1)
	r.evict(ctx, id)
}

func (r *UserRepository) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to evict cached user", zap.String("id", id), zap.Error(err))
	}
}
