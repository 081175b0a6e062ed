package interfaces

import (
	"context"

	"github.com/volatiletech/sqlboiler/v4/boil"
)

// ItemRepository 玩家物品实例仓储
type ItemRepository interface {
	// CreateInstance 按战斗等级创建物品实例
	// (source_id, item_type_id, slot_no) 冲突时静默跳过，保证结算重试不重复发放
	CreateInstance(ctx context.Context, exec boil.ContextExecutor, userID, itemTypeID string, level int, sourceID string, slotNo int) error
}
