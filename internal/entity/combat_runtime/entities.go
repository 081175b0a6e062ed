// Package combat_runtime 对应 Postgres combat_runtime 模式下的玩家持久状态表
// 所有结算写入均为 upsert 或带冲突处理的 insert-once
package combat_runtime

import (
	"time"

	"github.com/aarondl/null/v8"
)

// MaterialStack 玩家材料堆叠，(user_id, material_id, style_id) 唯一
type MaterialStack struct {
	UserID     string    `boil:"user_id" json:"user_id"`
	MaterialID string    `boil:"material_id" json:"material_id"`
	StyleID    string    `boil:"style_id" json:"style_id"`
	Quantity   int       `boil:"quantity" json:"quantity"`
	UpdatedAt  time.Time `boil:"updated_at" json:"updated_at"`
}

// PlayerItem 玩家物品实例
// (source_id, item_type_id, slot_no) 唯一，保证同一结算重试不会重复发放
type PlayerItem struct {
	ID         string    `boil:"id" json:"id"`
	UserID     string    `boil:"user_id" json:"user_id"`
	ItemTypeID string    `boil:"item_type_id" json:"item_type_id"`
	Level      int       `boil:"level" json:"level"`
	SourceID   string    `boil:"source_id" json:"source_id"`
	SlotNo     int       `boil:"slot_no" json:"slot_no"`
	CreatedAt  time.Time `boil:"created_at" json:"created_at"`
}

// Wallet 玩家钱包
type Wallet struct {
	UserID     string    `boil:"user_id" json:"user_id"`
	GoldAmount int64     `boil:"gold_amount" json:"gold_amount"`
	UpdatedAt  time.Time `boil:"updated_at" json:"updated_at"`
}

// CurrencyTransaction 货币流水行
// (source_type, source_id, code) 唯一索引拒绝重复入账
type CurrencyTransaction struct {
	ID         string    `boil:"id" json:"id"`
	UserID     string    `boil:"user_id" json:"user_id"`
	Code       string    `boil:"code" json:"code"`
	Amount     int64     `boil:"amount" json:"amount"`
	SourceType string    `boil:"source_type" json:"source_type"`
	SourceID   string    `boil:"source_id" json:"source_id"`
	CreatedAt  time.Time `boil:"created_at" json:"created_at"`
}

// Progression 玩家等级与经验
type Progression struct {
	UserID     string    `boil:"user_id" json:"user_id"`
	Level      int       `boil:"level" json:"level"`
	Experience int       `boil:"experience" json:"experience"`
	UpdatedAt  time.Time `boil:"updated_at" json:"updated_at"`
}

// CombatHistory 玩家在某地点的战绩，(user_id, location_id) 唯一
type CombatHistory struct {
	UserID        string      `boil:"user_id" json:"user_id"`
	LocationID    string      `boil:"location_id" json:"location_id"`
	Attempts      int         `boil:"attempts" json:"attempts"`
	Victories     int         `boil:"victories" json:"victories"`
	Defeats       int         `boil:"defeats" json:"defeats"`
	CurrentStreak int         `boil:"current_streak" json:"current_streak"`
	BestStreak    int         `boil:"best_streak" json:"best_streak"`
	LastSessionID null.String `boil:"last_session_id" json:"last_session_id,omitempty"`
	UpdatedAt     time.Time   `boil:"updated_at" json:"updated_at"`
}
