package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tsu-combat/internal/model/combatmodel"
)

// MemoryStore 纯内存会话存储，供单元测试与模拟工具使用
// 语义与 RedisStore 保持一致（含过期与结算锁）
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	locks    map[string]time.Time
	settled  map[string]settledEntry
	now      func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type settledEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]time.Time),
		settled:  make(map[string]settledEntry),
		now:      time.Now,
	}
}

// SetClock 注入时间源，测试过期行为用
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get 读取会话
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*combatmodel.CombatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok || entry.expiresAt.Before(s.now()) {
		delete(s.sessions, sessionID)
		return nil, ErrNotFound
	}

	session := &combatmodel.CombatSession{}
	if err := json.Unmarshal(entry.data, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Put 写入会话并重置 TTL
func (s *MemoryStore) Put(ctx context.Context, session *combatmodel.CombatSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = memoryEntry{
		data:      data,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete 删除会话
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// AcquireSettleLock 抢占结算锁
func (s *MemoryStore) AcquireSettleLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if until, ok := s.locks[sessionID]; ok && until.After(s.now()) {
		return false, nil
	}
	s.locks[sessionID] = s.now().Add(ttl)
	return true, nil
}

// ReleaseSettleLock 释放结算锁
func (s *MemoryStore) ReleaseSettleLock(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, sessionID)
	return nil
}

// CacheSettledBundle 缓存已结算奖励包
func (s *MemoryStore) CacheSettledBundle(ctx context.Context, sessionID string, bundle *combatmodel.RewardBundle, ttl time.Duration) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled[sessionID] = settledEntry{
		data:      data,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// GetSettledBundle 读取已结算奖励包
func (s *MemoryStore) GetSettledBundle(ctx context.Context, sessionID string) (*combatmodel.RewardBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.settled[sessionID]
	if !ok || entry.expiresAt.Before(s.now()) {
		delete(s.settled, sessionID)
		return nil, nil
	}

	bundle := &combatmodel.RewardBundle{}
	if err := json.Unmarshal(entry.data, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

// CountActive 统计存活会话数
func (s *MemoryStore) CountActive(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	now := s.now()
	for _, entry := range s.sessions {
		if entry.expiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// SweepExpired 清除过期会话
func (s *MemoryStore) SweepExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := s.now()
	for id, entry := range s.sessions {
		if !entry.expiresAt.After(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
