package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/redis"
)

// 结算锁与奖励包缓存的前缀不能落在会话扫描模式 sessionKeyPrefix+"*" 之内，
// 否则 CountActive/SweepExpired 会把锁键当成会话处理
const (
	sessionKeyPrefix = "combat:session:"
	settleLockPrefix = "combat:settle_lock:"
	settledKeyPrefix = "combat:settled:"
)

// RedisStore 基于 Redis 的会话存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 会话存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Get 读取并反序列化会话
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*combatmodel.CombatSession, error) {
	raw, err := s.client.GetString(ctx, sessionKey(sessionID))
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	session := &combatmodel.CombatSession{}
	if err := json.Unmarshal([]byte(raw), session); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}
	return session, nil
}

// Put 序列化并写入会话，重置 TTL
func (s *RedisStore) Put(ctx context.Context, session *combatmodel.CombatSession, ttl time.Duration) error {
	if session == nil || session.SessionID == "" {
		return fmt.Errorf("会话或 session_id 不能为空")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := s.client.SetWithTTL(ctx, sessionKey(session.SessionID), data, ttl); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// Delete 删除会话
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteKey(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	return nil
}

// AcquireSettleLock 以 SETNX 抢占结算锁
func (s *RedisStore) AcquireSettleLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNXWithTTL(ctx, settleLockPrefix+sessionID, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("抢占结算锁失败: %w", err)
	}
	return ok, nil
}

// ReleaseSettleLock 释放结算锁
func (s *RedisStore) ReleaseSettleLock(ctx context.Context, sessionID string) error {
	if err := s.client.DeleteKey(ctx, settleLockPrefix+sessionID); err != nil {
		return fmt.Errorf("释放结算锁失败: %w", err)
	}
	return nil
}

// CacheSettledBundle 缓存已结算奖励包
func (s *RedisStore) CacheSettledBundle(ctx context.Context, sessionID string, bundle *combatmodel.RewardBundle, ttl time.Duration) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("序列化奖励包失败: %w", err)
	}
	if err := s.client.SetWithTTL(ctx, settledKeyPrefix+sessionID, data, ttl); err != nil {
		return fmt.Errorf("缓存奖励包失败: %w", err)
	}
	return nil
}

// GetSettledBundle 读取已结算奖励包
func (s *RedisStore) GetSettledBundle(ctx context.Context, sessionID string) (*combatmodel.RewardBundle, error) {
	raw, err := s.client.GetString(ctx, settledKeyPrefix+sessionID)
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取奖励包缓存失败: %w", err)
	}

	bundle := &combatmodel.RewardBundle{}
	if err := json.Unmarshal([]byte(raw), bundle); err != nil {
		return nil, fmt.Errorf("反序列化奖励包失败: %w", err)
	}
	return bundle, nil
}

// CountActive 以 SCAN 统计存活会话键数量
func (s *RedisStore) CountActive(ctx context.Context) (int, error) {
	var count int
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 200).Result()
		if err != nil {
			return 0, fmt.Errorf("扫描会话键失败: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// SweepExpired 清除 expires_at 已过但键仍存在的会话
// Redis TTL 正常会自动回收，此处兜底处理 TTL 与业务过期时间不一致的残留
func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	removed := 0
	now := time.Now()
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("扫描会话键失败: %w", err)
		}

		for _, key := range keys {
			raw, err := s.client.GetString(ctx, key)
			if err == goredis.Nil {
				continue
			}
			if err != nil {
				return removed, fmt.Errorf("读取会话失败: %w", err)
			}
			session := &combatmodel.CombatSession{}
			if err := json.Unmarshal([]byte(raw), session); err != nil {
				// 坏数据直接清除
				if derr := s.client.DeleteKey(ctx, key); derr == nil {
					removed++
				}
				continue
			}
			if session.ExpiresAt.Before(now) {
				if err := s.client.DeleteKey(ctx, key); err != nil {
					return removed, fmt.Errorf("清除过期会话失败: %w", err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}
