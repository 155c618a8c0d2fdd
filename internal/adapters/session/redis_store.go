package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/trilho-habit-sync/internal/core/domain"
)

const (
	redisTokenKey = "trilho:token"
	redisUserKey  = "trilho:user"
)

// RedisStore shares credentials between processes through Redis. Keys
// expire after ttl when it is positive.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStore) Load(ctx context.Context) (*Credentials, error) {
	token, err := r.client.Get(ctx, redisTokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis read token: %w", err)
	}

	creds := &Credentials{Token: token}

	raw, err := r.client.Get(ctx, redisUserKey).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, fmt.Errorf("session: redis read user: %w", err)
	default:
		var user domain.User
		if err := json.Unmarshal(raw, &user); err != nil {
			log.Printf("[SESSION] Corrupted user entry, ignoring: %v", err)
		} else {
			creds.User = user
		}
	}

	return creds, nil
}

func (r *RedisStore) Save(ctx context.Context, creds Credentials) error {
	user, err := json.Marshal(creds.User)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisTokenKey, creds.Token, r.ttl)
		pipe.Set(ctx, redisUserKey, user, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: redis save: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, redisTokenKey, redisUserKey).Err(); err != nil {
		return fmt.Errorf("session: redis clear: %w", err)
	}
	return nil
}
