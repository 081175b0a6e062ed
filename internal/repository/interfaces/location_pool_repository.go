package interfaces

import (
	"context"

	"tsu-combat/internal/entity/combat_config"
)

// EnemyPoolWithMembers 敌人池及其成员
type EnemyPoolWithMembers struct {
	Pool    combat_config.EnemyPool
	Members []combat_config.EnemyPoolMember
}

// LootPoolWithEntries 战利品池及其条目
type LootPoolWithEntries struct {
	Pool    combat_config.LootPool
	Entries []combat_config.LootEntry
}

// LocationPoolRepository 按地点查询敌人池与战利品池配置
// 返回地点专属池与通用池的并集，并按等级过滤
type LocationPoolRepository interface {
	GetEnemyPools(ctx context.Context, locationID string, level int) ([]EnemyPoolWithMembers, error)
	GetLootPools(ctx context.Context, locationID string, level int) ([]LootPoolWithEntries, error)
	// GetEnemyTypes 批量获取敌人模板
	GetEnemyTypes(ctx context.Context, ids []string) (map[string]*combat_config.EnemyType, error)
	// GetMaterialDetails / GetItemDetails 批量水合图鉴行，避免 N+1 查询
	GetMaterialDetails(ctx context.Context, ids []string) (map[string]*combat_config.MaterialDetail, error)
	GetItemDetails(ctx context.Context, ids []string) (map[string]*combat_config.ItemDetail, error)
	// LocationExists 地点是否存在有效的敌人池配置
	LocationExists(ctx context.Context, locationID string) (bool, error)
}
