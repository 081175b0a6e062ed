package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/google/uuid"

	"tsu-combat/internal/repository/interfaces"
)

type itemRepositoryImpl struct {
	db *sql.DB
}

// NewItemRepository 创建物品实例仓储
func NewItemRepository(db *sql.DB) interfaces.ItemRepository {
	return &itemRepositoryImpl{db: db}
}

// CreateInstance 创建物品实例，冲突时跳过
// slot_no 区分同一结算中发放的多个同类型物品
func (r *itemRepositoryImpl) CreateInstance(ctx context.Context, exec boil.ContextExecutor, userID, itemTypeID string, level int, sourceID string, slotNo int) error {
	if userID == "" || itemTypeID == "" || sourceID == "" {
		return fmt.Errorf("user_id、item_type_id 和 source_id 不能为空")
	}
	if level < 1 {
		level = 1
	}
	if exec == nil {
		exec = r.db
	}

	query := `
INSERT INTO combat_runtime.player_items (id, user_id, item_type_id, level, source_id, slot_no, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (source_id, item_type_id, slot_no) DO NOTHING
`
	_, err := exec.ExecContext(ctx, query, uuid.New().String(), userID, itemTypeID, level, sourceID, slotNo)
	if err != nil {
		return fmt.Errorf("创建物品实例失败: %w", err)
	}
	return nil
}
