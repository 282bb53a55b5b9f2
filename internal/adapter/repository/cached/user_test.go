package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-service/internal/adapter/cache"
	domain "user-service/internal/domain/user"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func setupTestRepo(t *testing.T) (*UserRepository, *MockRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	db := new(MockRepository)
	return NewUserRepository(db, cache.NewRedisUserCache(client, time.Minute, log), log), db, mr
}

func TestGetByID_ReadThrough(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Name: "Ann"}, nil).Once()

	first, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", first.Name)
	assert.True(t, mr.Exists("user:u-1"))

	second, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", second.Name)

	db.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestGetByID_AbsentNotCached(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	db.On("GetByID", ctx, "ghost").Return(nil, nil)

	u, err := repo.GetByID(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, mr.Exists("user:ghost"))

	_, _ = repo.GetByID(ctx, "ghost")
	db.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestGetByID_DatabaseError(t *testing.T) {
	repo, db, _ := setupTestRepo(t)
	ctx := context.Background()

	db.On("GetByID", ctx, "u-1").Return(nil, errors.New("db down"))

	u, err := repo.GetByID(ctx, "u-1")
	assert.Nil(t, u)
	assert.EqualError(t, err, "db down")
}

func TestGetByID_CacheDownFallsBack(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()
	mr.Close()

	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1"}, nil)

	u, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
}

func TestGetByID_ConcurrentMisses(t *testing.T) {
	repo, db, _ := setupTestRepo(t)
	ctx := context.Background()

	release := make(chan struct{})
	db.On("GetByID", ctx, "u-1").
		Run(func(mock.Arguments) { <-release }).
		Return(&domain.User{ID: "u-1"}, nil)

	var wg sync.WaitGroup
	results := make([]*domain.User, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := repo.GetByID(ctx, "u-1")
			assert.NoError(t, err)
			results[i] = u
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, u := range results {
		require.NotNil(t, u)
		assert.Equal(t, "u-1", u.ID)
	}
	db.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestUpdate_Evicts(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Name: "Ann"}, nil).Once()
	_, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, mr.Exists("user:u-1"))

	name := "Anna"
	patch := domain.Patch{Name: &name}
	db.On("Update", ctx, "u-1", patch).Return(&domain.User{ID: "u-1", Name: "Anna"}, nil)

	u, err := repo.Update(ctx, "u-1", patch)
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Name)
	assert.False(t, mr.Exists("user:u-1"))
}

func TestUpdate_ErrorKeepsCache(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("user:u-1", `{"id":"u-1"}`))
	db.On("Update", ctx, "u-1", domain.Patch{}).Return(nil, errors.New("boom"))

	_, err := repo.Update(ctx, "u-1", domain.Patch{})
	assert.Error(t, err)
	assert.True(t, mr.Exists("user:u-1"))
}

func TestDelete_Evicts(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("user:u-1", `{"id":"u-1"}`))
	db.On("Delete", ctx, "u-1").Return(&domain.User{ID: "u-1"}, nil)

	u, err := repo.Delete(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.False(t, mr.Exists("user:u-1"))
}

func TestDelegates(t *testing.T) {
	repo, db, _ := setupTestRepo(t)
	ctx := context.Background()

	in := &domain.User{Name: "Ann"}
	db.On("Create", ctx, in).Return(&domain.User{ID: "u-1", Name: "Ann"}, nil)
	db.On("List", ctx).Return([]domain.User{{ID: "u-1"}}, nil)
	db.On("GetByEmail", ctx, "ann@example.com").Return(&domain.User{ID: "u-1"}, nil)

	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.ID)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	byEmail, err := repo.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	db.AssertExpectations(t)
}

func TestGetByID_WriteDuringFillIsNotCached(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()
	name := "New"
	patch := domain.Patch{Name: &name}

	db.On("Update", ctx, "u-1", patch).Return(&domain.User{ID: "u-1", Name: "New"}, nil).Once()
	// the update commits while this read still holds the old row
	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Name: "Old"}, nil).Run(func(mock.Arguments) {
		_, err := repo.Update(ctx, "u-1", patch)
		require.NoError(t, err)
	}).Once()

	stale, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Old", stale.Name)
	assert.False(t, mr.Exists("user:u-1"))

	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Name: "New"}, nil).Once()

	fresh, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "New", fresh.Name)
	assert.True(t, mr.Exists("user:u-1"))
	db.AssertExpectations(t)
}

func TestGetByID_FillAfterWriteIsCached(t *testing.T) {
	repo, db, mr := setupTestRepo(t)
	ctx := context.Background()

	db.On("Delete", ctx, "u-1").Return(&domain.User{ID: "u-1"}, nil).Once()
	_, err := repo.Delete(ctx, "u-1")
	require.NoError(t, err)

	db.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Name: "Back"}, nil).Once()
	_, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("user:u-1"))
}
