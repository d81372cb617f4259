package model

import (
	"time"
)

// KVEntry 键值槽，一个 key 保存一份完整的序列化数据
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `gorm:"type:longtext;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
