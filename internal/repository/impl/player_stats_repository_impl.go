package impl

import (
	"context"
	"database/sql"
	"fmt"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/repository/interfaces"
)

type playerStatsRepositoryImpl struct {
	db *sql.DB
}

// NewPlayerStatsRepository 创建玩家属性仓储实例
func NewPlayerStatsRepository(db *sql.DB) interfaces.PlayerStatsRepository {
	return &playerStatsRepositoryImpl{db: db}
}

// GetEquippedStats 读取玩家装备属性聚合视图
// 视图由游戏服维护；未配置武器时转盘度数回退为默认分配
func (r *playerStatsRepositoryImpl) GetEquippedStats(ctx context.Context, userID string) (*combatmodel.PlayerSnapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id 不能为空")
	}

	query := `
SELECT atk, def, max_hp,
       LEAST(GREATEST(accuracy, 0), 1),
       COALESCE(crit_bonus, 0),
       COALESCE(band_injure_deg, 10),
       COALESCE(band_miss_deg, 50),
       COALESCE(band_graze_deg, 80),
       COALESCE(band_normal_deg, 180),
       COALESCE(band_crit_deg, 40)
FROM combat_runtime.player_combat_stats_v
WHERE user_id = $1
`
	snap := &combatmodel.PlayerSnapshot{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&snap.Atk, &snap.Def, &snap.MaxHP,
		&snap.Accuracy, &snap.CritBonus,
		&snap.Bands.InjureDeg, &snap.Bands.MissDeg, &snap.Bands.GrazeDeg,
		&snap.Bands.NormalDeg, &snap.Bands.CritDeg,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("玩家战斗属性不存在: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("查询玩家战斗属性失败: %w", err)
	}
	return snap, nil
}
