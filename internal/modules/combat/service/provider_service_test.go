package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsu-combat/internal/entity/combat_config"
	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/xerrors"
	"tsu-combat/internal/repository/interfaces"
)

// fakePoolRepo 进程内的池配置仓储桩
type fakePoolRepo struct {
	enemyPools []interfaces.EnemyPoolWithMembers
	lootPools  []interfaces.LootPoolWithEntries
	enemyTypes map[string]*combat_config.EnemyType
	materials  map[string]*combat_config.MaterialDetail
	items      map[string]*combat_config.ItemDetail
	locations  map[string]bool
}

func (f *fakePoolRepo) GetEnemyPools(ctx context.Context, locationID string, level int) ([]interfaces.EnemyPoolWithMembers, error) {
	return f.enemyPools, nil
}

func (f *fakePoolRepo) GetLootPools(ctx context.Context, locationID string, level int) ([]interfaces.LootPoolWithEntries, error) {
	return f.lootPools, nil
}

func (f *fakePoolRepo) GetEnemyTypes(ctx context.Context, ids []string) (map[string]*combat_config.EnemyType, error) {
	result := make(map[string]*combat_config.EnemyType)
	for _, id := range ids {
		if et, ok := f.enemyTypes[id]; ok {
			result[id] = et
		}
	}
	return result, nil
}

func (f *fakePoolRepo) GetMaterialDetails(ctx context.Context, ids []string) (map[string]*combat_config.MaterialDetail, error) {
	result := make(map[string]*combat_config.MaterialDetail)
	for _, id := range ids {
		if md, ok := f.materials[id]; ok {
			result[id] = md
		}
	}
	return result, nil
}

func (f *fakePoolRepo) GetItemDetails(ctx context.Context, ids []string) (map[string]*combat_config.ItemDetail, error) {
	result := make(map[string]*combat_config.ItemDetail)
	for _, id := range ids {
		if it, ok := f.items[id]; ok {
			result[id] = it
		}
	}
	return result, nil
}

func (f *fakePoolRepo) LocationExists(ctx context.Context, locationID string) (bool, error) {
	return f.locations[locationID], nil
}

func newShadowWolfRepo() *fakePoolRepo {
	return &fakePoolRepo{
		enemyPools: []interfaces.EnemyPoolWithMembers{
			{
				Pool: combat_config.EnemyPool{ID: "pool-1", LocationID: null.StringFrom("forest")},
				Members: []combat_config.EnemyPoolMember{
					{PoolID: "pool-1", EnemyTypeID: "wolf", Weight: 10, Tier: 2},
				},
			},
		},
		lootPools: []interfaces.LootPoolWithEntries{
			{
				Pool: combat_config.LootPool{ID: "loot-1", LocationID: null.StringFrom("forest")},
				Entries: []combat_config.LootEntry{
					{PoolID: "loot-1", RefID: "fang", Kind: "material", Weight: 10, Tier: 2, StyleID: null.StringFrom("normal"), QtyMin: 1, QtyMax: 3},
					{PoolID: "loot-1", RefID: "blade", Kind: "item", Weight: 5, Tier: 2, QtyMin: 1, QtyMax: 1},
				},
			},
		},
		enemyTypes: map[string]*combat_config.EnemyType{
			"wolf": {
				ID: "wolf", Code: "shadow_wolf", Name: "影狼",
				BaseAtk: 20, BaseDef: 8, BaseHP: 60,
				TierOffset: 2, TierIncrement: 5,
				Accuracy: 0.3, GoldReward: 120, ExpReward: 45,
				StyleID: null.StringFrom("shadow"),
			},
		},
		materials: map[string]*combat_config.MaterialDetail{
			"fang": {ID: "fang", Code: "wolf_fang", Name: "狼牙", Rarity: "common"},
		},
		items: map[string]*combat_config.ItemDetail{
			"blade": {ID: "blade", Code: "shadow_blade", Name: "影刃", Rarity: "rare"},
		},
		locations: map[string]bool{"forest": true},
	}
}

func TestSelectEnemy(t *testing.T) {
	t.Run("按层级缩放敌人属性", func(t *testing.T) {
		provider := NewProviderService(newShadowWolfRepo(), rand.New(rand.NewSource(1)))

		enemy, err := provider.SelectEnemy(context.Background(), "forest", 5)
		require.NoError(t, err)

		assert.Equal(t, "wolf", enemy.EnemyTypeID)
		assert.Equal(t, "shadow_wolf", enemy.Code)
		assert.Equal(t, 2, enemy.Tier)
		// base + offset + increment*(tier-1)
		assert.Equal(t, 20+2+5, enemy.Atk)
		assert.Equal(t, 8+2+5, enemy.Def)
		assert.Equal(t, 60+2+5, enemy.MaxHP)
		assert.Equal(t, "shadow", enemy.StyleID)
		assert.Equal(t, int64(120), enemy.GoldReward)
		assert.Equal(t, 45, enemy.ExpReward)
	})

	t.Run("空敌人池返回业务错误", func(t *testing.T) {
		repo := newShadowWolfRepo()
		repo.enemyPools = nil
		provider := NewProviderService(repo, rand.New(rand.NewSource(1)))

		_, err := provider.SelectEnemy(context.Background(), "forest", 5)
		require.Error(t, err)
		var appErr *xerrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, xerrors.CodeEnemyPoolEmpty, appErr.Code)
	})

	t.Run("敌人模板缺失返回未找到错误", func(t *testing.T) {
		repo := newShadowWolfRepo()
		repo.enemyTypes = nil
		provider := NewProviderService(repo, rand.New(rand.NewSource(1)))

		_, err := provider.SelectEnemy(context.Background(), "forest", 5)
		require.Error(t, err)
		var appErr *xerrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, xerrors.CodeResourceNotFound, appErr.Code)
	})

	t.Run("多成员池按权重抽取", func(t *testing.T) {
		repo := newShadowWolfRepo()
		repo.enemyPools[0].Members = append(repo.enemyPools[0].Members,
			combat_config.EnemyPoolMember{PoolID: "pool-1", EnemyTypeID: "bear", Weight: 10, Tier: 1},
		)
		repo.enemyTypes["bear"] = &combat_config.EnemyType{
			ID: "bear", Code: "cave_bear", Name: "穴熊",
			BaseAtk: 30, BaseDef: 12, BaseHP: 100,
			GoldReward: 200, ExpReward: 80,
		}
		provider := NewProviderService(repo, rand.New(rand.NewSource(7)))

		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			enemy, err := provider.SelectEnemy(context.Background(), "forest", 5)
			require.NoError(t, err)
			seen[enemy.EnemyTypeID] = true
		}
		assert.True(t, seen["wolf"], "同权重下狼应该出现")
		assert.True(t, seen["bear"], "同权重下熊应该出现")
	})
}

func TestSelectLoot(t *testing.T) {
	enemy := &combatmodel.EnemySnapshot{
		EnemyTypeID: "wolf",
		Tier:        2,
		StyleID:     "shadow",
		GoldReward:  120,
		ExpReward:   45,
	}

	t.Run("掉落样式一律继承敌人样式", func(t *testing.T) {
		provider := NewProviderService(newShadowWolfRepo(), rand.New(rand.NewSource(1)))

		for i := 0; i < 50; i++ {
			loot, err := provider.SelectLoot(context.Background(), "forest", 5, enemy)
			require.NoError(t, err)
			for _, m := range loot.Materials {
				assert.Equal(t, "shadow", m.StyleID)
				assert.NotEqual(t, "normal", m.StyleID)
			}
		}
	})

	t.Run("物品实例使用当前战斗等级", func(t *testing.T) {
		provider := NewProviderService(newShadowWolfRepo(), rand.New(rand.NewSource(2)))

		foundItem := false
		for i := 0; i < 100 && !foundItem; i++ {
			loot, err := provider.SelectLoot(context.Background(), "forest", 7, enemy)
			require.NoError(t, err)
			for _, it := range loot.Items {
				assert.Equal(t, 7, it.Level)
				assert.Equal(t, "blade", it.ItemTypeID)
				foundItem = true
			}
		}
		assert.True(t, foundItem, "多次抽取后应该至少掉落一次物品")
	})

	t.Run("材料数量落在配置区间内", func(t *testing.T) {
		provider := NewProviderService(newShadowWolfRepo(), rand.New(rand.NewSource(3)))

		for i := 0; i < 100; i++ {
			loot, err := provider.SelectLoot(context.Background(), "forest", 5, enemy)
			require.NoError(t, err)
			for _, m := range loot.Materials {
				assert.GreaterOrEqual(t, m.Quantity, 1)
				assert.LessOrEqual(t, m.Quantity, 3)
			}
		}
	})

	t.Run("空战利品池返回空结果而非错误", func(t *testing.T) {
		repo := newShadowWolfRepo()
		repo.lootPools = nil
		provider := NewProviderService(repo, rand.New(rand.NewSource(4)))

		loot, err := provider.SelectLoot(context.Background(), "forest", 5, enemy)
		require.NoError(t, err)
		assert.Empty(t, loot.Materials)
		assert.Empty(t, loot.Items)
	})

	t.Run("同层级条目权重被放大", func(t *testing.T) {
		repo := newShadowWolfRepo()
		// 基础权重相同，只有 fang 与敌人同层级
		repo.lootPools[0].Entries = []combat_config.LootEntry{
			{PoolID: "loot-1", RefID: "fang", Kind: "material", Weight: 10, Tier: 2, QtyMin: 1, QtyMax: 1},
			{PoolID: "loot-1", RefID: "pelt", Kind: "material", Weight: 10, Tier: 1, QtyMin: 1, QtyMax: 1},
		}
		repo.materials["pelt"] = &combat_config.MaterialDetail{ID: "pelt", Code: "wolf_pelt", Name: "狼皮", Rarity: "common"}
		provider := NewProviderService(repo, rand.New(rand.NewSource(5)))

		fangFirst, peltFirst := 0, 0
		for i := 0; i < 3000; i++ {
			loot, err := provider.SelectLoot(context.Background(), "forest", 5, enemy)
			require.NoError(t, err)
			if len(loot.Materials) == 0 {
				continue
			}
			switch loot.Materials[0].MaterialID {
			case "fang":
				fangFirst++
			case "pelt":
				peltFirst++
			}
		}
		// tier=2 的 fang 有效权重翻倍，首位出现次数应明显占优
		assert.Greater(t, fangFirst, peltFirst)
	})
}
