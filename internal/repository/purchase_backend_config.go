package repository

import (
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/khip_server/config"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendGorm   = "gorm"
)

// NewBackendFromConfig 按 store.backend 选择持久化方式，db 和 rdb 只在对应后端需要时使用
func NewBackendFromConfig(cfg config.StoreConfig, db *gorm.DB, rdb *redis.Client) (PurchaseBackend, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory:
		return NewMemoryBackend(nil), nil
	case BackendFile:
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("store.file_path is required for the file backend")
		}
		return NewFileBackend(cfg.FilePath), nil
	case BackendRedis, "":
		if rdb == nil {
			return nil, fmt.Errorf("redis client is required for the redis backend")
		}
		return NewRedisBackend(rdb, cfg.Key), nil
	case BackendGorm:
		if db == nil {
			return nil, fmt.Errorf("database is required for the gorm backend")
		}
		return NewGormBackend(db, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
