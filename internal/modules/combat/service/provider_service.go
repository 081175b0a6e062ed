package service

import (
	"context"
	"math/rand"
	"sync"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/xerrors"
	"tsu-combat/internal/repository/interfaces"
)

// 单场战斗的战利品抽取数量范围
const (
	lootDrawsMin = 1
	lootDrawsMax = 3
)

// ProviderService 敌人与战利品供给服务
// 负责池配置查询、加权抽取、层级缩放与样式继承
type ProviderService struct {
	pools interfaces.LocationPoolRepository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewProviderService 创建供给服务，rng 可注入以保证测试确定性
func NewProviderService(pools interfaces.LocationPoolRepository, rng *rand.Rand) *ProviderService {
	return &ProviderService{
		pools: pools,
		rng:   rng,
	}
}

// roll 串行化对共享随机源的访问
func (s *ProviderService) roll(fn func(rng *rand.Rand)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.rng)
}

// scaleStat 层级缩放公式
func scaleStat(base, tierOffset, tierIncrement, tier int) int {
	if tier < 1 {
		tier = 1
	}
	return base + tierOffset + tierIncrement*(tier-1)
}

// SelectEnemy 为一场新战斗选取敌人
// 候选为地点专属池与通用池的并集（已按等级过滤），加权抽取一名后按层级缩放属性
func (s *ProviderService) SelectEnemy(ctx context.Context, locationID string, combatLevel int) (*combatmodel.EnemySnapshot, error) {
	poolList, err := s.pools.GetEnemyPools(ctx, locationID, combatLevel)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_enemy_pools", "combat_config.enemy_pools", err)
	}

	var entries []WeightedEntry
	for _, p := range poolList {
		for _, m := range p.Members {
			entries = append(entries, WeightedEntry{
				RefID:  m.EnemyTypeID,
				Kind:   "enemy",
				Weight: m.Weight,
				Tier:   m.Tier,
			})
		}
	}
	if len(entries) == 0 {
		return nil, xerrors.New(xerrors.CodeEnemyPoolEmpty, "该地点没有可用的敌人").
			WithMetadata("location_id", locationID).
			WithMetadata("combat_level", combatLevel)
	}

	var picked []WeightedEntry
	s.roll(func(rng *rand.Rand) {
		picked = SelectWeighted(rng, entries, 1)
	})
	if len(picked) == 0 {
		return nil, xerrors.New(xerrors.CodeEnemyPoolEmpty, "敌人池所有条目权重无效").
			WithMetadata("location_id", locationID)
	}
	chosen := picked[0]

	types, err := s.pools.GetEnemyTypes(ctx, []string{chosen.RefID})
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_enemy_types", "combat_config.enemy_types", err)
	}
	et, ok := types[chosen.RefID]
	if !ok {
		return nil, xerrors.NewNotFoundError("enemy_type", chosen.RefID)
	}

	return &combatmodel.EnemySnapshot{
		EnemyTypeID: et.ID,
		Code:        et.Code,
		Name:        et.Name,
		Tier:        chosen.Tier,
		Atk:         scaleStat(et.BaseAtk, et.TierOffset, et.TierIncrement, chosen.Tier),
		Def:         scaleStat(et.BaseDef, et.TierOffset, et.TierIncrement, chosen.Tier),
		MaxHP:       scaleStat(et.BaseHP, et.TierOffset, et.TierIncrement, chosen.Tier),
		StyleID:     et.StyleID.String,
		GoldReward:  et.GoldReward,
		ExpReward:   et.ExpReward,
		Accuracy:    et.Accuracy,
	}, nil
}

// LootSelection 一次战利品抽取的结果
type LootSelection struct {
	Materials []combatmodel.MaterialGrant
	Items     []combatmodel.ItemGrant
}

// SelectLoot 为获胜的战斗抽取战利品
// 与敌人同层级的条目权重按层级放大；选中条目的样式一律继承敌人的 style_id，
// 有样式的敌人只会掉落同样式战利品
func (s *ProviderService) SelectLoot(ctx context.Context, locationID string, combatLevel int, enemy *combatmodel.EnemySnapshot) (*LootSelection, error) {
	poolList, err := s.pools.GetLootPools(ctx, locationID, combatLevel)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_loot_pools", "combat_config.loot_pools", err)
	}

	var entries []WeightedEntry
	for _, p := range poolList {
		for _, e := range p.Entries {
			weight := e.Weight
			if e.Tier == enemy.Tier && enemy.Tier > 1 {
				weight *= enemy.Tier
			}
			entries = append(entries, WeightedEntry{
				RefID:   e.RefID,
				Kind:    e.Kind,
				Weight:  weight,
				Tier:    e.Tier,
				StyleID: e.StyleID.String,
				QtyMin:  e.QtyMin,
				QtyMax:  e.QtyMax,
			})
		}
	}

	selection := &LootSelection{}
	if len(entries) == 0 {
		// 地点未配置战利品时只有金币与经验
		return selection, nil
	}

	var picked []WeightedEntry
	quantities := make(map[int]int)
	s.roll(func(rng *rand.Rand) {
		count := lootDrawsMin + rng.Intn(lootDrawsMax-lootDrawsMin+1)
		picked = SelectWeighted(rng, entries, count)
		for i, e := range picked {
			qty := e.QtyMin
			if e.QtyMax > e.QtyMin {
				qty += rng.Intn(e.QtyMax - e.QtyMin + 1)
			}
			if qty < 1 {
				qty = 1
			}
			quantities[i] = qty
		}
	})

	var materialIDs, itemIDs []string
	for _, e := range picked {
		switch e.Kind {
		case "material":
			materialIDs = append(materialIDs, e.RefID)
		case "item":
			itemIDs = append(itemIDs, e.RefID)
		}
	}

	// 一种类型一次批量查询，避免 N+1
	materials, err := s.pools.GetMaterialDetails(ctx, materialIDs)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_material_details", "combat_config.materials", err)
	}
	items, err := s.pools.GetItemDetails(ctx, itemIDs)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_item_details", "combat_config.item_types", err)
	}

	for i, e := range picked {
		switch e.Kind {
		case "material":
			md, ok := materials[e.RefID]
			if !ok {
				return nil, xerrors.NewNotFoundError("material", e.RefID)
			}
			selection.Materials = append(selection.Materials, combatmodel.MaterialGrant{
				MaterialID: md.ID,
				Code:       md.Code,
				Name:       md.Name,
				StyleID:    enemy.StyleID,
				Quantity:   quantities[i],
			})
		case "item":
			it, ok := items[e.RefID]
			if !ok {
				return nil, xerrors.NewNotFoundError("item_type", e.RefID)
			}
			selection.Items = append(selection.Items, combatmodel.ItemGrant{
				ItemTypeID: it.ID,
				Code:       it.Code,
				Name:       it.Name,
				Level:      combatLevel,
			})
		}
	}

	return selection, nil
}
