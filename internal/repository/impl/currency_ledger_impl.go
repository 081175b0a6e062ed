package impl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/google/uuid"

	"tsu-combat/internal/repository/interfaces"
)

type currencyLedgerImpl struct {
	db *sql.DB
}

// NewCurrencyLedger 创建货币仓储实例
func NewCurrencyLedger(db *sql.DB) interfaces.CurrencyLedger {
	return &currencyLedgerImpl{db: db}
}

// ApplyDelta 先插流水再改余额
// 流水行插入失败于唯一索引时说明该来源已入账，余额不再变动
func (r *currencyLedgerImpl) ApplyDelta(ctx context.Context, exec boil.ContextExecutor, userID, code string, amount int64, sourceType, sourceID string) (bool, error) {
	if userID == "" || code == "" || sourceType == "" || sourceID == "" {
		return false, fmt.Errorf("user_id、code、source_type 和 source_id 不能为空")
	}
	if exec == nil {
		exec = r.db
	}

	ledgerQuery := `
INSERT INTO combat_runtime.currency_transactions (id, user_id, code, amount, source_type, source_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (source_type, source_id, code) DO NOTHING
`
	res, err := exec.ExecContext(ctx, ledgerQuery, uuid.New().String(), userID, code, amount, sourceType, sourceID)
	if err != nil {
		return false, fmt.Errorf("写入货币流水失败: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("读取流水写入结果失败: %w", err)
	}
	if rows == 0 {
		// 同一来源已入账
		return false, nil
	}

	walletQuery := `
INSERT INTO combat_runtime.wallets (user_id, gold_amount, updated_at)
VALUES ($1, GREATEST($2, 0), NOW())
ON CONFLICT (user_id) DO UPDATE
SET gold_amount = GREATEST(combat_runtime.wallets.gold_amount + $2, 0),
    updated_at = NOW()
`
	if _, err := exec.ExecContext(ctx, walletQuery, userID, amount); err != nil {
		return false, fmt.Errorf("更新钱包余额失败: %w", err)
	}
	return true, nil
}

// GetBalance 查询余额
func (r *currencyLedgerImpl) GetBalance(ctx context.Context, userID, code string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("user_id 不能为空")
	}
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT gold_amount FROM combat_runtime.wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("查询钱包余额失败: %w", err)
	}
	return balance, nil
}
