package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volatiletech/sqlboiler/v4/boil"

	"tsu-combat/internal/repository/interfaces"
)

type progressionRepositoryImpl struct {
	db *sql.DB
}

// NewProgressionRepository 创建玩家进度仓储实例
func NewProgressionRepository(db *sql.DB) interfaces.ProgressionRepository {
	return &progressionRepositoryImpl{db: db}
}

// xpToNext 升到下一级所需经验
func xpToNext(level int) int {
	return 100 * level
}

// AddExperience 累加经验并结算升级
// 经验与等级在同一行维护；调用方负责将其纳入结算事务
func (r *progressionRepositoryImpl) AddExperience(ctx context.Context, exec boil.ContextExecutor, userID string, amount int) (bool, int, error) {
	if userID == "" {
		return false, 0, fmt.Errorf("user_id 不能为空")
	}
	if amount < 0 {
		return false, 0, fmt.Errorf("经验值不能为负: %d", amount)
	}
	if exec == nil {
		exec = r.db
	}

	upsert := `
INSERT INTO combat_runtime.progressions (user_id, level, experience, updated_at)
VALUES ($1, 1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE
SET experience = combat_runtime.progressions.experience + $2,
    updated_at = NOW()
RETURNING level, experience
`
	var level, exp int
	if err := exec.QueryRowContext(ctx, upsert, userID, amount).Scan(&level, &exp); err != nil {
		return false, 0, fmt.Errorf("累加经验失败: %w", err)
	}

	// 结算升级，经验溢出逐级折算
	newLevel, newExp := level, exp
	for newExp >= xpToNext(newLevel) {
		newExp -= xpToNext(newLevel)
		newLevel++
	}
	if newLevel == level {
		return false, level, nil
	}

	update := `
UPDATE combat_runtime.progressions
SET level = $2, experience = $3, updated_at = NOW()
WHERE user_id = $1
`
	if _, err := exec.ExecContext(ctx, update, userID, newLevel, newExp); err != nil {
		return false, 0, fmt.Errorf("写入升级结果失败: %w", err)
	}
	return true, newLevel, nil
}

// GetLevel 查询玩家等级
func (r *progressionRepositoryImpl) GetLevel(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id 不能为空")
	}
	var level int
	err := r.db.QueryRowContext(ctx,
		`SELECT level FROM combat_runtime.progressions WHERE user_id = $1`, userID).Scan(&level)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("查询玩家等级失败: %w", err)
	}
	return level, nil
}
