// Package store 管理战斗会话的短生命周期存储
// 会话只存在于这里，其他组件一律通过 SessionStore 接口访问
package store

import (
	"context"
	"errors"
	"time"

	"tsu-combat/internal/model/combatmodel"
)

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("会话不存在或已过期")

// SessionTTL 会话存活时长，每次成功变更后刷新
const SessionTTL = 15 * time.Minute

// SettleLockTTL 结算锁存活时长，防止持锁方崩溃后永久锁死
const SettleLockTTL = 30 * time.Second

// SettledBundleTTL 已结算奖励包的缓存时长
// 会话删除后重复的完成请求在此窗口内仍能拿到缓存奖励
const SettledBundleTTL = 24 * time.Hour

// SessionStore 会话存储接口
type SessionStore interface {
	// Get 读取会话，不存在或已过期返回 ErrNotFound
	Get(ctx context.Context, sessionID string) (*combatmodel.CombatSession, error)
	// Put 写入会话并将 TTL 重置为 ttl
	Put(ctx context.Context, session *combatmodel.CombatSession, ttl time.Duration) error
	// Delete 删除会话，幂等
	Delete(ctx context.Context, sessionID string) error

	// AcquireSettleLock 抢占结算锁，同一会话同一时刻只允许一个结算方
	AcquireSettleLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	// ReleaseSettleLock 释放结算锁
	ReleaseSettleLock(ctx context.Context, sessionID string) error

	// CacheSettledBundle 缓存已结算的奖励包，在会话删除后仍可查询
	CacheSettledBundle(ctx context.Context, sessionID string, bundle *combatmodel.RewardBundle, ttl time.Duration) error
	// GetSettledBundle 读取已结算奖励包，不存在返回 nil
	GetSettledBundle(ctx context.Context, sessionID string) (*combatmodel.RewardBundle, error)

	// CountActive 统计当前存活会话数
	CountActive(ctx context.Context) (int, error)
	// SweepExpired 清除已过期但尚未被回收的会话，返回清除数量
	SweepExpired(ctx context.Context) (int, error)
}
