package interfaces

import (
	"context"

	"github.com/volatiletech/sqlboiler/v4/boil"
)

// CurrencyLedger 玩家货币仓储，余额变动必须伴随流水行
type CurrencyLedger interface {
	// ApplyDelta 先插入流水行再 upsert 钱包余额
	// (source_type, source_id, code) 的唯一索引拒绝重复入账；
	// 重复时不改余额，返回 applied=false
	ApplyDelta(ctx context.Context, exec boil.ContextExecutor, userID, code string, amount int64, sourceType, sourceID string) (applied bool, err error)
	// GetBalance 查询余额，钱包不存在时返回 0
	GetBalance(ctx context.Context, userID, code string) (int64, error)
}
