package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/khip_server/internal/model"
)

// GormBackend 把购买记录保存在 kv_entries 表的一行中
type GormBackend struct {
	db  *gorm.DB
	key string
}

func NewGormBackend(db *gorm.DB, key string) *GormBackend {
	if key == "" {
		key = DefaultPurchaseKey
	}
	return &GormBackend{
		db:  db,
		key: key,
	}
}

func (b *GormBackend) Load(ctx context.Context) ([]*model.Purchase, error) {
	var entry model.KVEntry
	err := b.db.WithContext(ctx).Where(&model.KVEntry{Key: b.key}).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", b.key, err)
	}
	return decodePurchases([]byte(entry.Value))
}

func (b *GormBackend) Save(ctx context.Context, purchases []*model.Purchase) error {
	data, err := encodePurchases(purchases)
	if err != nil {
		return err
	}

	entry := &model.KVEntry{
		Key:   b.key,
		Value: string(data),
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", b.key, err)
	}
	return nil
}
