// Package combat_config 对应 Postgres combat_config 模式下的配置表
// 敌人池、战利品池与图鉴数据均为只读参照数据
package combat_config

import (
	"time"

	"github.com/aarondl/null/v8"
)

// EnemyType 敌人模板
// 实际属性按 base + tier_offset + tier_increment*(tier-1) 缩放
type EnemyType struct {
	ID            string      `boil:"id" json:"id"`
	Code          string      `boil:"code" json:"code"`
	Name          string      `boil:"name" json:"name"`
	BaseAtk       int         `boil:"base_atk" json:"base_atk"`
	BaseDef       int         `boil:"base_def" json:"base_def"`
	BaseHP        int         `boil:"base_hp" json:"base_hp"`
	TierOffset    int         `boil:"tier_offset" json:"tier_offset"`
	TierIncrement int         `boil:"tier_increment" json:"tier_increment"`
	Accuracy      float64     `boil:"accuracy" json:"accuracy"`
	GoldReward    int64       `boil:"gold_reward" json:"gold_reward"`
	ExpReward     int         `boil:"exp_reward" json:"exp_reward"`
	StyleID       null.String `boil:"style_id" json:"style_id,omitempty"`
	Description   null.String `boil:"description" json:"description,omitempty"`
	IsActive      bool        `boil:"is_active" json:"is_active"`
	CreatedAt     time.Time   `boil:"created_at" json:"created_at"`
}

// EnemyPool 敌人池，location_id 为空表示通用池
type EnemyPool struct {
	ID         string      `boil:"id" json:"id"`
	LocationID null.String `boil:"location_id" json:"location_id,omitempty"`
	MinLevel   null.Int    `boil:"min_level" json:"min_level,omitempty"`
	MaxLevel   null.Int    `boil:"max_level" json:"max_level,omitempty"`
	IsActive   bool        `boil:"is_active" json:"is_active"`
}

// EnemyPoolMember 敌人池成员
type EnemyPoolMember struct {
	ID          string `boil:"id" json:"id"`
	PoolID      string `boil:"pool_id" json:"pool_id"`
	EnemyTypeID string `boil:"enemy_type_id" json:"enemy_type_id"`
	Weight      int    `boil:"weight" json:"weight"`
	Tier        int    `boil:"tier" json:"tier"`
}

// LootPool 战利品池，location_id 为空表示通用池
type LootPool struct {
	ID         string      `boil:"id" json:"id"`
	LocationID null.String `boil:"location_id" json:"location_id,omitempty"`
	MinLevel   null.Int    `boil:"min_level" json:"min_level,omitempty"`
	MaxLevel   null.Int    `boil:"max_level" json:"max_level,omitempty"`
	IsActive   bool        `boil:"is_active" json:"is_active"`
}

// LootEntry 战利品池条目，ref_id 指向材料或物品类型
type LootEntry struct {
	ID      string      `boil:"id" json:"id"`
	PoolID  string      `boil:"pool_id" json:"pool_id"`
	RefID   string      `boil:"ref_id" json:"ref_id"`
	Kind    string      `boil:"kind" json:"kind"` // "material" / "item"
	Weight  int         `boil:"weight" json:"weight"`
	Tier    int         `boil:"tier" json:"tier"`
	StyleID null.String `boil:"style_id" json:"style_id,omitempty"`
	QtyMin  int         `boil:"qty_min" json:"qty_min"`
	QtyMax  int         `boil:"qty_max" json:"qty_max"`
}

// MaterialDetail 材料图鉴行
type MaterialDetail struct {
	ID     string `boil:"id" json:"id"`
	Code   string `boil:"code" json:"code"`
	Name   string `boil:"name" json:"name"`
	Rarity string `boil:"rarity" json:"rarity"`
}

// ItemDetail 物品类型图鉴行
type ItemDetail struct {
	ID     string `boil:"id" json:"id"`
	Code   string `boil:"code" json:"code"`
	Name   string `boil:"name" json:"name"`
	Rarity string `boil:"rarity" json:"rarity"`
}
