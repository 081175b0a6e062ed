package interfaces

import (
	"context"

	"github.com/volatiletech/sqlboiler/v4/boil"
)

// ProgressionRepository 玩家等级与经验仓储
type ProgressionRepository interface {
	// AddExperience 累加经验并结算升级，返回是否升级与最新等级
	AddExperience(ctx context.Context, exec boil.ContextExecutor, userID string, amount int) (leveledUp bool, newLevel int, err error)
	// GetLevel 查询玩家等级，无记录时返回 1
	GetLevel(ctx context.Context, userID string) (int, error)
}
