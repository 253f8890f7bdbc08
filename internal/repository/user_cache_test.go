package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/domain"
)

// countingRepository records how often GetByID reaches the backing store.
type countingRepository struct {
	UserRepository
	gets int
}

func (r *countingRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.gets++
	return r.UserRepository.GetByID(ctx, id)
}

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *countingRepository, UserRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &countingRepository{UserRepository: NewMemoryUserRepository()}
	return mr, backing, NewCachedUserRepository(backing, client, time.Minute, zap.NewNop())
}

func TestCachedGetByIDReadsThrough(t *testing.T) {
	mr, backing, repo := newCacheFixture(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 3; i++ {
		user, err := repo.GetByID(ctx, "u1")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if user.Name != "Ada" || user.Email != "ada@example.com" {
			t.Fatalf("unexpected user %+v", user)
		}
	}
	if backing.gets != 1 {
		t.Errorf("backing store hit %d times, want 1", backing.gets)
	}
	if !mr.Exists(userCacheKey("u1")) {
		t.Error("expected cache entry to exist")
	}
	if ttl := mr.TTL(userCacheKey("u1")); ttl != time.Minute {
		t.Errorf("cache ttl = %v, want 1m", ttl)
	}
}

func TestCachedUpdateAndDeleteEvict(t *testing.T) {
	mr, _, repo := newCacheFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "u1", Name: "Ada"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.GetByID(ctx, "u1"); err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	user.Name = "Grace"
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if mr.Exists(userCacheKey("u1")) {
		t.Fatal("update should evict the cache entry")
	}
	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Grace" {
		t.Errorf("Name = %q, want Grace", got.Name)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists(userCacheKey("u1")) {
		t.Fatal("delete should evict the cache entry")
	}
	if _, err := repo.GetByID(ctx, "u1"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("GetByID after delete: err = %v, want pgx.ErrNoRows", err)
	}
}

// racingRepository returns a snapshot taken before running a concurrent
// write, mimicking a read that loses the race against a commit.
type racingRepository struct {
	UserRepository
	during func()
}

func (r *racingRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.UserRepository.GetByID(ctx, id)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return user, err
}

func TestCachedReadRacingUpdateDoesNotStoreStaleRow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backing := &racingRepository{UserRepository: NewMemoryUserRepository()}
	repo := NewCachedUserRepository(backing, client, time.Minute, zap.NewNop())
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{ID: "u1", Name: "Ada"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	backing.during = func() {
		if err := repo.Update(ctx, &domain.User{ID: "u1", Name: "Grace"}); err != nil {
			t.Errorf("Update: %v", err)
		}
	}

	stale, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stale.Name != "Ada" {
		t.Fatalf("racing read Name = %q, want the pre-update snapshot", stale.Name)
	}
	if mr.Exists(userCacheKey("u1")) {
		t.Fatal("a read that raced an update must not populate the cache")
	}

	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Grace" {
		t.Errorf("Name = %q, want Grace", got.Name)
	}
	if !mr.Exists(userCacheKey("u1")) {
		t.Error("a read after the update should be cached")
	}
}

func TestCachedMissIsNotCached(t *testing.T) {
	mr, _, repo := newCacheFixture(t)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("err = %v, want pgx.ErrNoRows", err)
	}
	if mr.Exists(userCacheKey("missing")) {
		t.Fatal("misses must not be cached")
	}
}

func TestCachedFallsThroughWhenRedisDown(t *testing.T) {
	mr, backing, repo := newCacheFixture(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{ID: "u1", Name: "Ada"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.Close()

	user, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID with redis down: %v", err)
	}
	if user.Name != "Ada" || backing.gets != 1 {
		t.Fatalf("expected pass-through read, got %+v after %d gets", user, backing.gets)
	}
}

func TestCorruptCacheEntryIsIgnored(t *testing.T) {
	mr, backing, repo := newCacheFixture(t)
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.User{ID: "u1", Name: "Ada"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mr.Set(userCacheKey("u1"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	user, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if user.Name != "Ada" || backing.gets != 1 {
		t.Fatalf("expected backing read, got %+v after %d gets", user, backing.gets)
	}
}

func TestNewCachedUserRepositoryDisabled(t *testing.T) {
	base := NewMemoryUserRepository()
	if got := NewCachedUserRepository(base, nil, time.Minute, zap.NewNop()); got != base {
		t.Error("nil client should return the wrapped repository")
	}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if got := NewCachedUserRepository(base, client, 0, zap.NewNop()); got != base {
		t.Error("zero ttl should return the wrapped repository")
	}
}
