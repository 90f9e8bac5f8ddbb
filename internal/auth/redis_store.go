package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/memberhub/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const sessionKeyPrefix = "memberhub-session||"

// RedisStore keeps sessions in redis, one key per session token,
// with the idle expiry enforced through the key TTL
type RedisStore struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewRedisStore(ttl time.Duration, redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (rs *RedisStore) Create(ctx context.Context, session Session) (string, error) {
	token, err := rs.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	sessionKey := sessionKeyPrefix + token
	if err := rs.redisClient.Set(ctx, sessionKey, sessionJson, rs.ttl).Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (rs *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := rs.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal([]byte(cmd.Val()), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// idle expiry: each touch buys the session another full TTL
	if err := rs.redisClient.Expire(ctx, sessionKey, rs.ttl).Err(); err != nil {
		log.Errorf("refresh session %s ttl: %s", sessionKey, err)
	}

	return &session, nil
}

func (rs *RedisStore) Destroy(ctx context.Context, token string) error {
	sessionKey := sessionKeyPrefix + token
	return rs.redisClient.Del(ctx, sessionKey).Err()
}
