package tokenstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	revokedKeyPrefix = "auth:revoked:"
	backendKeyPrefix = "auth:backend:"
)

// Store 记录已注销的 token，保留到 token 自然过期
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Revoke 注销 token；ttl<=0 说明已过期，无需记录
func (s *Store) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return fmt.Errorf("empty token id")
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.rdb.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked token 是否已注销
func (s *Store) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

// SaveBackendToken 记录本地 token 对应的认证后端 token
func (s *Store) SaveBackendToken(ctx context.Context, tokenID, backendToken string, ttl time.Duration) error {
	if tokenID == "" || backendToken == "" || ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, backendKeyPrefix+tokenID, backendToken, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save backend token: %w", err)
	}
	return nil
}

// BackendToken 未记录时返回空字符串
func (s *Store) BackendToken(ctx context.Context, tokenID string) (string, error) {
	if tokenID == "" {
		return "", nil
	}
	val, err := s.rdb.Get(ctx, backendKeyPrefix+tokenID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get backend token: %w", err)
	}
	return val, nil
}

// ForgetBackendToken 注销时删除
func (s *Store) ForgetBackendToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return nil
	}
	return s.rdb.Del(ctx, backendKeyPrefix+tokenID).Err()
}

// RandomCode n 字节随机数的十六进制表示
func RandomCode(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
