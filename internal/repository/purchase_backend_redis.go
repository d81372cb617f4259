package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/qs3c/khip_server/internal/model"
)

// RedisBackend 把购买记录保存在一个 redis string key 中
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	if key == "" {
		key = DefaultPurchaseKey
	}
	return &RedisBackend{
		client: client,
		key:    key,
	}
}

func (b *RedisBackend) Load(ctx context.Context) ([]*model.Purchase, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", b.key, err)
	}
	return decodePurchases(data)
}

func (b *RedisBackend) Save(ctx context.Context, purchases []*model.Purchase) error {
	data, err := encodePurchases(purchases)
	if err != nil {
		return err
	}

	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", b.key, err)
	}
	return nil
}
