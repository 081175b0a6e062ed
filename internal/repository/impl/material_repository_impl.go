package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volatiletech/sqlboiler/v4/boil"

	"tsu-combat/internal/repository/interfaces"
)

type materialRepositoryImpl struct {
	db *sql.DB
}

// NewMaterialRepository 创建材料堆叠仓储实例
func NewMaterialRepository(db *sql.DB) interfaces.MaterialRepository {
	return &materialRepositoryImpl{db: db}
}

// IncrementStack 累加或创建材料堆叠
func (r *materialRepositoryImpl) IncrementStack(ctx context.Context, exec boil.ContextExecutor, userID, materialID, styleID string, qty int) error {
	if userID == "" || materialID == "" {
		return fmt.Errorf("user_id 和 material_id 不能为空")
	}
	if qty <= 0 {
		return fmt.Errorf("材料数量必须为正: %d", qty)
	}
	if exec == nil {
		exec = r.db
	}

	// 插入或累加，首次获得与已有堆叠走同一条路径
	query := `
INSERT INTO combat_runtime.material_stacks (user_id, material_id, style_id, quantity, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (user_id, material_id, style_id) DO UPDATE
SET quantity = combat_runtime.material_stacks.quantity + $4,
    updated_at = NOW()
`
	_, err := exec.ExecContext(ctx, query, userID, materialID, styleID, qty)
	if err != nil {
		return fmt.Errorf("更新材料堆叠失败: %w", err)
	}
	return nil
}

// GetStackQuantity 查询堆叠数量
func (r *materialRepositoryImpl) GetStackQuantity(ctx context.Context, userID, materialID, styleID string) (int, error) {
	var qty int
	err := r.db.QueryRowContext(ctx, `
SELECT quantity FROM combat_runtime.material_stacks
WHERE user_id = $1 AND material_id = $2 AND style_id = $3`,
		userID, materialID, styleID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("查询材料堆叠失败: %w", err)
	}
	return qty, nil
}
