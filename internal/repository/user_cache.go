package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/userkit/user-service/internal/domain"
)

const (
	userCacheKeyPrefix     = "user:"
	userGenerationPrefix   = "user-gen:"
	userGenerationLifetime = 24 * time.Hour
)

// storeIfCurrent caches an entry only when the user's generation still equals
// the one observed before the backing read. Writers bump the generation after
// committing, so a read that raced a write never repopulates the old row.
var storeIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '' end
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

type cachedUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// cachedUserRepository is a read-through Redis cache for GetByID. Redis
// failures are logged and the call falls through to the wrapped repository.
type cachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps next with a Redis cache. A nil client or a
// non-positive ttl returns next unchanged.
func NewCachedUserRepository(next UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) UserRepository {
	if client == nil || ttl <= 0 {
		return next
	}
	return &cachedUserRepository{UserRepository: next, client: client, ttl: ttl, logger: logger}
}

func userCacheKey(id string) string {
	return userCacheKeyPrefix + id
}

func userGenerationKey(id string) string {
	return userGenerationPrefix + id
}

func (r *cachedUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var generation string
	vals, err := r.client.MGet(ctx, userCacheKey(id), userGenerationKey(id)).Result()
	cacheable := err == nil
	if err != nil {
		r.logger.Warn("user cache read failed", zap.String("user_id", id), zap.Error(err))
	} else {
		if raw, ok := vals[0].(string); ok {
			var cu cachedUser
			if jsonErr := json.Unmarshal([]byte(raw), &cu); jsonErr == nil {
				return &domain.User{ID: cu.ID, Name: cu.Name, Email: cu.Email, CreatedAt: cu.CreatedAt, UpdatedAt: cu.UpdatedAt}, nil
			}
			r.logger.Warn("discarding corrupt user cache entry", zap.String("user_id", id))
		}
		generation, _ = vals[1].(string)
	}

	user, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cacheable {
		r.store(ctx, user, generation)
	}
	return user, nil
}

func (r *cachedUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Update(ctx, user); err != nil {
		return err
	}
	r.invalidate(ctx, user.ID)
	return nil
}

func (r *cachedUserRepository) Delete(ctx context.Context, id string) error {
	if err := r.UserRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *cachedUserRepository) store(ctx context.Context, user *domain.User, generation string) {
	payload, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return
	}
	keys := []string{userCacheKey(user.ID), userGenerationKey(user.ID)}
	if err := storeIfCurrent.Run(ctx, r.client, keys, generation, payload, r.ttl.Milliseconds()).Err(); err != nil {
		r.logger.Warn("user cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// invalidate bumps the user's generation and drops the cached entry in one transaction.
func (r *cachedUserRepository) invalidate(ctx context.Context, id string) {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, userGenerationKey(id))
		pipe.Expire(ctx, userGenerationKey(id), userGenerationLifetime)
		pipe.Del(ctx, userCacheKey(id))
		return nil
	})
	if err != nil {
		r.logger.Warn("user cache eviction failed", zap.String("user_id", id), zap.Error(err))
	}
}
