package repositories

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenPrefix = "revoked_token:"

// TokenDenylist records bearer tokens revoked before their expiry. Tokens are
// stored by digest so the raw credential never lands in redis.
type TokenDenylist struct {
	rdb *redis.Client
}

func NewTokenDenylist(rdb *redis.Client) *TokenDenylist {
	return &TokenDenylist{rdb: rdb}
}

// NewRedisClient builds a client for addr, matching how the other services
// connect to the shared redis.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedTokenPrefix + hex.EncodeToString(sum[:])
}

// Revoke denies token for ttl. A non-positive ttl keeps the entry until it is
// removed by hand.
func (d *TokenDenylist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return d.rdb.Set(ctx, tokenKey(token), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := d.rdb.Get(ctx, tokenKey(token)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *TokenDenylist) Close() error {
	return d.rdb.Close()
}
