package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/qs3c/khip_server/internal/model"
)

// DefaultPurchaseKey 购买记录所在的存储槽
const DefaultPurchaseKey = "khip_purchases"

var ErrCorruptState = errors.New("persisted purchase state is corrupt")

// PurchaseBackend 购买记录的持久化后端，每次整体读写
type PurchaseBackend interface {
	Load(ctx context.Context) ([]*model.Purchase, error)
	Save(ctx context.Context, purchases []*model.Purchase) error
}

func encodePurchases(purchases []*model.Purchase) ([]byte, error) {
	if purchases == nil {
		purchases = []*model.Purchase{}
	}
	data, err := json.Marshal(purchases)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purchases: %w", err)
	}
	return data, nil
}

// decodePurchases 空内容视为空集合；无法解析返回 ErrCorruptState
func decodePurchases(data []byte) ([]*model.Purchase, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var purchases []*model.Purchase
	if err := json.Unmarshal(data, &purchases); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	// 过滤掉 null 元素
	result := purchases[:0]
	for _, p := range purchases {
		if p != nil {
			result = append(result, p)
		}
	}
	return result, nil
}

// MemoryBackend 进程内后端，保存序列化后的原始字节
type MemoryBackend struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryBackend(initial []byte) *MemoryBackend {
	return &MemoryBackend{data: initial}
}

func (b *MemoryBackend) Load(ctx context.Context) ([]*model.Purchase, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return decodePurchases(b.data)
}

func (b *MemoryBackend) Save(ctx context.Context, purchases []*model.Purchase) error {
	data, err := encodePurchases(purchases)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
	b.saves++
	return nil
}

// Raw 返回当前保存的字节
func (b *MemoryBackend) Raw() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}

// SaveCount 返回 Save 被调用的次数
func (b *MemoryBackend) SaveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
