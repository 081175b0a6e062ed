package interfaces

import (
	"context"

	"github.com/volatiletech/sqlboiler/v4/boil"
)

// MaterialRepository 玩家材料堆叠仓储
type MaterialRepository interface {
	// IncrementStack 累加或创建材料堆叠（upsert）
	// 首次获得与已有堆叠走同一条路径
	IncrementStack(ctx context.Context, exec boil.ContextExecutor, userID, materialID, styleID string, qty int) error
	// GetStackQuantity 查询堆叠数量，不存在时返回 0
	GetStackQuantity(ctx context.Context, userID, materialID, styleID string) (int, error)
}
