package interfaces

import (
	"context"

	"tsu-combat/internal/model/combatmodel"
)

// PlayerStatsRepository 读取玩家当前装备属性的聚合视图
// 仅在开战时调用一次，之后会话内使用快照
type PlayerStatsRepository interface {
	// GetEquippedStats 返回玩家的战斗属性快照，含武器转盘分配
	GetEquippedStats(ctx context.Context, userID string) (*combatmodel.PlayerSnapshot, error)
}
