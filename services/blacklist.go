package services

import (
	"context"
	"time"

	"subsidy-crm/crm-service/logging"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist keeps revoked JWTs in Redis until they would have expired
// anyway. With no Redis configured it degrades to allowing every token, which
// matches pre-logout behavior.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func (b *TokenBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if b.client == nil {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err()
}

func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if b.client == nil {
		return false
	}
	_, err := b.client.Get(ctx, blacklistKey(token)).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logging.Logger.Warnf("Event ID: BLACKLIST_READ_FAILED, Description: Redis blacklist lookup failed: %v", err)
		return false
	}
	return true
}

func blacklistKey(token string) string {
	return "jwt:blacklist:" + token
}
