package interfaces

import (
	"context"

	"github.com/volatiletech/sqlboiler/v4/boil"

	"tsu-combat/internal/entity/combat_runtime"
)

// CombatHistoryRepository 玩家地点战绩仓储
type CombatHistoryRepository interface {
	// Upsert 记录一次终局战斗
	// 以 session_id 做幂等检查：同一会话重复结算不会二次计入战绩
	Upsert(ctx context.Context, exec boil.ContextExecutor, userID, locationID, sessionID string, victory bool) error
	// Get 查询战绩，无记录时返回 nil
	Get(ctx context.Context, userID, locationID string) (*combat_runtime.CombatHistory, error)
}
