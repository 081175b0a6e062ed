package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"tsu-combat/internal/entity/combat_config"
	"tsu-combat/internal/repository/interfaces"
)

type locationPoolRepositoryImpl struct {
	db *sql.DB
}

// NewLocationPoolRepository 创建地点池配置仓储实例
func NewLocationPoolRepository(db *sql.DB) interfaces.LocationPoolRepository {
	return &locationPoolRepositoryImpl{db: db}
}

// GetEnemyPools 查询地点专属与通用敌人池的并集，按等级过滤
func (r *locationPoolRepositoryImpl) GetEnemyPools(ctx context.Context, locationID string, level int) ([]interfaces.EnemyPoolWithMembers, error) {
	query := `
SELECT p.id, p.location_id, p.min_level, p.max_level, p.is_active,
       m.id, m.pool_id, m.enemy_type_id, m.weight, m.tier
FROM combat_config.enemy_pools p
JOIN combat_config.enemy_pool_members m ON m.pool_id = p.id
WHERE p.is_active = TRUE
  AND (p.location_id = $1 OR p.location_id IS NULL)
  AND (p.min_level IS NULL OR p.min_level <= $2)
  AND (p.max_level IS NULL OR p.max_level >= $2)
ORDER BY p.id, m.id
`
	rows, err := r.db.QueryContext(ctx, query, locationID, level)
	if err != nil {
		return nil, fmt.Errorf("查询敌人池失败: %w", err)
	}
	defer rows.Close()

	var result []interfaces.EnemyPoolWithMembers
	index := make(map[string]int)

	for rows.Next() {
		var pool combat_config.EnemyPool
		var member combat_config.EnemyPoolMember
		if err := rows.Scan(
			&pool.ID, &pool.LocationID, &pool.MinLevel, &pool.MaxLevel, &pool.IsActive,
			&member.ID, &member.PoolID, &member.EnemyTypeID, &member.Weight, &member.Tier,
		); err != nil {
			return nil, fmt.Errorf("扫描敌人池行失败: %w", err)
		}

		i, ok := index[pool.ID]
		if !ok {
			i = len(result)
			index[pool.ID] = i
			result = append(result, interfaces.EnemyPoolWithMembers{Pool: pool})
		}
		result[i].Members = append(result[i].Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历敌人池失败: %w", err)
	}
	return result, nil
}

// GetLootPools 查询地点专属与通用战利品池的并集，按等级过滤
func (r *locationPoolRepositoryImpl) GetLootPools(ctx context.Context, locationID string, level int) ([]interfaces.LootPoolWithEntries, error) {
	query := `
SELECT p.id, p.location_id, p.min_level, p.max_level, p.is_active,
       e.id, e.pool_id, e.ref_id, e.kind, e.weight, e.tier, e.style_id, e.qty_min, e.qty_max
FROM combat_config.loot_pools p
JOIN combat_config.loot_entries e ON e.pool_id = p.id
WHERE p.is_active = TRUE
  AND (p.location_id = $1 OR p.location_id IS NULL)
  AND (p.min_level IS NULL OR p.min_level <= $2)
  AND (p.max_level IS NULL OR p.max_level >= $2)
ORDER BY p.id, e.id
`
	rows, err := r.db.QueryContext(ctx, query, locationID, level)
	if err != nil {
		return nil, fmt.Errorf("查询战利品池失败: %w", err)
	}
	defer rows.Close()

	var result []interfaces.LootPoolWithEntries
	index := make(map[string]int)

	for rows.Next() {
		var pool combat_config.LootPool
		var entry combat_config.LootEntry
		if err := rows.Scan(
			&pool.ID, &pool.LocationID, &pool.MinLevel, &pool.MaxLevel, &pool.IsActive,
			&entry.ID, &entry.PoolID, &entry.RefID, &entry.Kind, &entry.Weight, &entry.Tier,
			&entry.StyleID, &entry.QtyMin, &entry.QtyMax,
		); err != nil {
			return nil, fmt.Errorf("扫描战利品池行失败: %w", err)
		}

		i, ok := index[pool.ID]
		if !ok {
			i = len(result)
			index[pool.ID] = i
			result = append(result, interfaces.LootPoolWithEntries{Pool: pool})
		}
		result[i].Entries = append(result[i].Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历战利品池失败: %w", err)
	}
	return result, nil
}

// GetEnemyTypes 批量获取敌人模板
func (r *locationPoolRepositoryImpl) GetEnemyTypes(ctx context.Context, ids []string) (map[string]*combat_config.EnemyType, error) {
	result := make(map[string]*combat_config.EnemyType)
	if len(ids) == 0 {
		return result, nil
	}

	query := `
SELECT id, code, name, base_atk, base_def, base_hp,
       tier_offset, tier_increment, accuracy, gold_reward, exp_reward,
       style_id, description, is_active, created_at
FROM combat_config.enemy_types
WHERE id = ANY($1) AND is_active = TRUE
`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("查询敌人模板失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		et := &combat_config.EnemyType{}
		if err := rows.Scan(
			&et.ID, &et.Code, &et.Name, &et.BaseAtk, &et.BaseDef, &et.BaseHP,
			&et.TierOffset, &et.TierIncrement, &et.Accuracy, &et.GoldReward, &et.ExpReward,
			&et.StyleID, &et.Description, &et.IsActive, &et.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描敌人模板失败: %w", err)
		}
		result[et.ID] = et
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历敌人模板失败: %w", err)
	}
	return result, nil
}

// GetMaterialDetails 批量水合材料图鉴行
func (r *locationPoolRepositoryImpl) GetMaterialDetails(ctx context.Context, ids []string) (map[string]*combat_config.MaterialDetail, error) {
	result := make(map[string]*combat_config.MaterialDetail)
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, rarity FROM combat_config.materials WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("查询材料图鉴失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		md := &combat_config.MaterialDetail{}
		if err := rows.Scan(&md.ID, &md.Code, &md.Name, &md.Rarity); err != nil {
			return nil, fmt.Errorf("扫描材料图鉴失败: %w", err)
		}
		result[md.ID] = md
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历材料图鉴失败: %w", err)
	}
	return result, nil
}

// GetItemDetails 批量水合物品类型图鉴行
func (r *locationPoolRepositoryImpl) GetItemDetails(ctx context.Context, ids []string) (map[string]*combat_config.ItemDetail, error) {
	result := make(map[string]*combat_config.ItemDetail)
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, rarity FROM combat_config.item_types WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("查询物品图鉴失败: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it := &combat_config.ItemDetail{}
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.Rarity); err != nil {
			return nil, fmt.Errorf("扫描物品图鉴失败: %w", err)
		}
		result[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历物品图鉴失败: %w", err)
	}
	return result, nil
}

// LocationExists 地点是否存在有效的敌人池配置
func (r *locationPoolRepositoryImpl) LocationExists(ctx context.Context, locationID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS(
  SELECT 1 FROM combat_config.enemy_pools
  WHERE location_id = $1 AND is_active = TRUE
)`, locationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("检查地点配置失败: %w", err)
	}
	return exists, nil
}
