package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volatiletech/sqlboiler/v4/boil"

	"tsu-combat/internal/entity/combat_runtime"
	"tsu-combat/internal/repository/interfaces"
)

type combatHistoryRepositoryImpl struct {
	db *sql.DB
}

// NewCombatHistoryRepository 创建战绩仓储实例
func NewCombatHistoryRepository(db *sql.DB) interfaces.CombatHistoryRepository {
	return &combatHistoryRepositoryImpl{db: db}
}

// Upsert 记录一次终局战斗
// last_session_id 相同的重复调用不改任何计数
func (r *combatHistoryRepositoryImpl) Upsert(ctx context.Context, exec boil.ContextExecutor, userID, locationID, sessionID string, victory bool) error {
	if userID == "" || locationID == "" || sessionID == "" {
		return fmt.Errorf("user_id、location_id 和 session_id 不能为空")
	}
	if exec == nil {
		exec = r.db
	}

	win, loss, streak := 0, 1, 0
	if victory {
		win, loss, streak = 1, 0, 1
	}

	query := `
INSERT INTO combat_runtime.combat_histories AS ch
  (user_id, location_id, attempts, victories, defeats, current_streak, best_streak, last_session_id, updated_at)
VALUES ($1, $2, 1, $3, $4, $5, $5, $6, NOW())
ON CONFLICT (user_id, location_id) DO UPDATE
SET attempts       = ch.attempts + 1,
    victories      = ch.victories + $3,
    defeats        = ch.defeats + $4,
    current_streak = CASE WHEN $3 = 1 THEN ch.current_streak + 1 ELSE 0 END,
    best_streak    = GREATEST(ch.best_streak, CASE WHEN $3 = 1 THEN ch.current_streak + 1 ELSE 0 END),
    last_session_id = $6,
    updated_at     = NOW()
WHERE ch.last_session_id IS DISTINCT FROM $6
`
	_, err := exec.ExecContext(ctx, query, userID, locationID, win, loss, streak, sessionID)
	if err != nil {
		return fmt.Errorf("更新战绩失败: %w", err)
	}
	return nil
}

// Get 查询战绩
func (r *combatHistoryRepositoryImpl) Get(ctx context.Context, userID, locationID string) (*combat_runtime.CombatHistory, error) {
	h := &combat_runtime.CombatHistory{}
	err := r.db.QueryRowContext(ctx, `
SELECT user_id, location_id, attempts, victories, defeats,
       current_streak, best_streak, last_session_id, updated_at
FROM combat_runtime.combat_histories
WHERE user_id = $1 AND location_id = $2`,
		userID, locationID).Scan(
		&h.UserID, &h.LocationID, &h.Attempts, &h.Victories, &h.Defeats,
		&h.CurrentStreak, &h.BestStreak, &h.LastSessionID, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询战绩失败: %w", err)
	}
	return h, nil
}
