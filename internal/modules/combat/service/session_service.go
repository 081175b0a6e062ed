package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/modules/combat/store"
	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/metrics"
	"tsu-combat/internal/pkg/xerrors"
	"tsu-combat/internal/repository/interfaces"
)

// keyedMutex 按 session_id 串行化动作，防止并发攻击请求破坏 HP 与回合数
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedMutexEntry
}

type keyedMutexEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*keyedMutexEntry)}
}

// Lock 锁定指定键，返回解锁函数
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedMutexEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

// TurnResult 一次攻防动作的结果
type TurnResult struct {
	SessionID string                    `json:"session_id"`
	Event     combatmodel.TurnEvent     `json:"event"`
	Status    combatmodel.SessionStatus `json:"status"`
	PlayerHP  int                       `json:"player_hp"`
	EnemyHP   int                       `json:"enemy_hp"`
}

// SessionSummary 会话只读视图
type SessionSummary struct {
	SessionID  string                    `json:"session_id"`
	UserID     string                    `json:"user_id"`
	LocationID string                    `json:"location_id"`
	Status     combatmodel.SessionStatus `json:"status"`
	TurnNumber int                       `json:"turn_number"`
	PlayerHP   int                       `json:"player_hp"`
	PlayerMax  int                       `json:"player_max_hp"`
	Enemy      combatmodel.EnemySnapshot `json:"enemy"`
	EnemyHP    int                       `json:"enemy_hp"`
	CombatLog  []combatmodel.TurnEvent   `json:"combat_log"`
	ExpiresAt  time.Time                 `json:"expires_at"`
}

// CompleteResult 完成请求的结果
type CompleteResult struct {
	Bundle         *combatmodel.RewardBundle `json:"bundle"`
	AlreadySettled bool                      `json:"already_settled"`
}

// SessionService 战斗会话服务：状态机与对外操作入口
type SessionService struct {
	store       store.SessionStore
	provider    *ProviderService
	settlement  *SettlementService
	playerStats interfaces.PlayerStatsRepository
	progression interfaces.ProgressionRepository

	locks  *keyedMutex
	logger log.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewSessionService 创建会话服务
func NewSessionService(
	sessionStore store.SessionStore,
	provider *ProviderService,
	settlement *SettlementService,
	playerStats interfaces.PlayerStatsRepository,
	progression interfaces.ProgressionRepository,
	rng *rand.Rand,
	logger log.Logger,
) *SessionService {
	return &SessionService{
		store:       sessionStore,
		provider:    provider,
		settlement:  settlement,
		playerStats: playerStats,
		progression: progression,
		locks:       newKeyedMutex(),
		logger:      logger,
		rng:         rng,
	}
}

// rollDegrees 掷一个随机点击度数，用于敌方行动与被动防御判定
func (s *SessionService) rollDegrees() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() * 360
}

// defaultEnemyBands 敌人没有武器概念，使用固定转盘分配
var defaultEnemyBands = combatmodel.BandConfig{
	InjureDeg: 10,
	MissDeg:   60,
	GrazeDeg:  80,
	NormalDeg: 170,
	CritDeg:   40,
}

// StartCombat 创建战斗会话
// 玩家属性与敌人在此刻快照，之后的装备变化不影响本场战斗
func (s *SessionService) StartCombat(ctx context.Context, userID, locationID string) (*SessionSummary, error) {
	if userID == "" || locationID == "" {
		return nil, xerrors.NewValidationError("request", "user_id 和 location_id 不能为空")
	}

	exists, err := s.provider.pools.LocationExists(ctx, locationID)
	if err != nil {
		return nil, xerrors.NewDatabaseError("location_exists", "combat_config.locations", err)
	}
	if !exists {
		return nil, xerrors.NewLocationNotFoundError(locationID)
	}

	player, err := s.playerStats.GetEquippedStats(ctx, userID)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_equipped_stats", "combat_runtime.player_combat_stats_v", err)
	}

	combatLevel, err := s.progression.GetLevel(ctx, userID)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_level", "combat_runtime.player_progression", err)
	}

	enemy, err := s.provider.SelectEnemy(ctx, locationID, combatLevel)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &combatmodel.CombatSession{
		SessionID:       uuid.New().String(),
		UserID:          userID,
		LocationID:      locationID,
		Player:          *player,
		Enemy:           *enemy,
		CurrentPlayerHP: player.MaxHP,
		CurrentEnemyHP:  enemy.MaxHP,
		TurnNumber:      0,
		Status:          combatmodel.StatusOngoing,
		CreatedAt:       now,
		ExpiresAt:       now.Add(store.SessionTTL),
	}

	if err := s.store.Put(ctx, session, store.SessionTTL); err != nil {
		return nil, xerrors.NewCacheError("put_session", err)
	}

	metrics.DefaultCombatMetrics.RecordSessionStarted(locationID, "")
	s.logger.InfoContext(ctx, "战斗会话创建",
		log.String("session_id", session.SessionID),
		log.String("user_id", userID),
		log.String("location_id", locationID),
		log.String("enemy_code", enemy.Code),
		log.Int("enemy_tier", enemy.Tier),
	)

	return toSummary(session), nil
}

// loadOngoing 读取会话并校验其处于进行中状态
func (s *SessionService) loadOngoing(ctx context.Context, sessionID string) (*combatmodel.CombatSession, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err == store.ErrNotFound {
		return nil, xerrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, xerrors.NewCacheError("get_session", err)
	}
	if session.Status != combatmodel.StatusOngoing {
		return nil, xerrors.NewSessionNotOngoingError(sessionID, string(session.Status))
	}
	return session, nil
}

// deriveStatus 根据双方 HP 重新推导会话状态
// 敌方先判定：同回合双方归零按胜利处理
func deriveStatus(session *combatmodel.CombatSession) combatmodel.SessionStatus {
	if session.CurrentEnemyHP <= 0 {
		return combatmodel.StatusVictory
	}
	if session.CurrentPlayerHP <= 0 {
		return combatmodel.StatusDefeat
	}
	return combatmodel.StatusOngoing
}

// SubmitAttack 玩家攻击回合
// 玩家转盘判定攻击区，敌方独立判定防御区；随后敌方反击（玩家自伤时跳过），
// 玩家再独立判定防御区削减反击伤害
func (s *SessionService) SubmitAttack(ctx context.Context, sessionID string, tapDegrees float64) (*TurnResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.loadOngoing(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	playerZone, err := ResolveZone(tapDegrees, session.Player.Bands, session.Player.Accuracy)
	if err != nil {
		return nil, err
	}
	metrics.DefaultCombatMetrics.RecordZoneHit("player", string(playerZone), "")

	attack, err := ResolveAttack(playerZone, session.Player.Atk, session.Enemy.Def, session.Player.CritBonus)
	if err != nil {
		return nil, err
	}

	event := combatmodel.TurnEvent{
		Turn:   session.TurnNumber + 1,
		Actor:  "player",
		Action: "attack",
		Zone:   playerZone,
	}

	// 对敌伤害要过敌方的独立防御判定
	if attack.DamageToDefender > 0 {
		enemyDefZone, zerr := ResolveZone(s.rollDegrees(), defaultEnemyBands, session.Enemy.Accuracy)
		if zerr != nil {
			return nil, zerr
		}
		event.DefenseZone = enemyDefZone
		dmg, derr := ApplyDefense(attack.DamageToDefender, enemyDefZone, 0)
		if derr != nil {
			return nil, derr
		}
		event.DamageToEnemy = dmg
	}

	if playerZone == combatmodel.ZoneInjure {
		// 自伤反噬，且敌方本回合不再反击
		event.DamageToPlayer = attack.SelfDamage
		event.Note = "自伤反噬"
	} else if event.DamageToEnemy < session.CurrentEnemyHP {
		// 本击足以击杀时敌方不再反击
		counter, cerr := s.resolveEnemyStrike(session)
		if cerr != nil {
			return nil, cerr
		}
		event.DamageToPlayer = counter.damageToPlayer
		event.DamageToEnemy += counter.enemySelfDamage
		if counter.note != "" {
			event.Note = counter.note
		}
	}

	s.applyTurn(session, &event)

	if err := s.store.Put(ctx, session, store.SessionTTL); err != nil {
		return nil, xerrors.NewCacheError("put_session", err)
	}

	return &TurnResult{
		SessionID: sessionID,
		Event:     event,
		Status:    session.Status,
		PlayerHP:  session.CurrentPlayerHP,
		EnemyHP:   session.CurrentEnemyHP,
	}, nil
}

// SubmitDefend 玩家防御回合
// 敌方发起攻击，玩家用点击度数判定防御区；本回合不对敌方造成主动伤害
func (s *SessionService) SubmitDefend(ctx context.Context, sessionID string, tapDegrees float64) (*TurnResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.loadOngoing(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	playerDefZone, err := ResolveZone(tapDegrees, session.Player.Bands, session.Player.Accuracy)
	if err != nil {
		return nil, err
	}
	metrics.DefaultCombatMetrics.RecordZoneHit("player", string(playerDefZone), "")

	event := combatmodel.TurnEvent{
		Turn:        session.TurnNumber + 1,
		Actor:       "player",
		Action:      "defend",
		Zone:        playerDefZone,
		DefenseZone: playerDefZone,
	}

	enemyZone, err := ResolveZone(s.rollDegrees(), defaultEnemyBands, session.Enemy.Accuracy)
	if err != nil {
		return nil, err
	}
	metrics.DefaultCombatMetrics.RecordZoneHit("enemy", string(enemyZone), "")

	strike, err := ResolveAttack(enemyZone, session.Enemy.Atk, session.Player.Def, 0)
	if err != nil {
		return nil, err
	}

	if enemyZone == combatmodel.ZoneInjure {
		event.DamageToEnemy = strike.SelfDamage
		event.Note = "敌方自伤"
	} else if strike.DamageToDefender > 0 {
		dmg, derr := ApplyDefense(strike.DamageToDefender, playerDefZone, 0)
		if derr != nil {
			return nil, derr
		}
		event.DamageToPlayer = dmg
	}

	s.applyTurn(session, &event)

	if err := s.store.Put(ctx, session, store.SessionTTL); err != nil {
		return nil, xerrors.NewCacheError("put_session", err)
	}

	return &TurnResult{
		SessionID: sessionID,
		Event:     event,
		Status:    session.Status,
		PlayerHP:  session.CurrentPlayerHP,
		EnemyHP:   session.CurrentEnemyHP,
	}, nil
}

type enemyStrike struct {
	damageToPlayer  int
	enemySelfDamage int
	note            string
}

// resolveEnemyStrike 敌方反击：随机行动区，玩家随机被动防御
func (s *SessionService) resolveEnemyStrike(session *combatmodel.CombatSession) (enemyStrike, error) {
	enemyZone, err := ResolveZone(s.rollDegrees(), defaultEnemyBands, session.Enemy.Accuracy)
	if err != nil {
		return enemyStrike{}, err
	}
	metrics.DefaultCombatMetrics.RecordZoneHit("enemy", string(enemyZone), "")

	strike, err := ResolveAttack(enemyZone, session.Enemy.Atk, session.Player.Def, 0)
	if err != nil {
		return enemyStrike{}, err
	}

	if enemyZone == combatmodel.ZoneInjure {
		return enemyStrike{enemySelfDamage: strike.SelfDamage, note: "敌方自伤"}, nil
	}
	if strike.DamageToDefender == 0 {
		return enemyStrike{}, nil
	}

	playerDefZone, err := ResolveZone(s.rollDegrees(), session.Player.Bands, session.Player.Accuracy)
	if err != nil {
		return enemyStrike{}, err
	}
	dmg, err := ApplyDefense(strike.DamageToDefender, playerDefZone, 0)
	if err != nil {
		return enemyStrike{}, err
	}
	return enemyStrike{damageToPlayer: dmg}, nil
}

// applyTurn 应用伤害、追加日志、推进回合并重推状态
func (s *SessionService) applyTurn(session *combatmodel.CombatSession, event *combatmodel.TurnEvent) {
	session.CurrentEnemyHP -= event.DamageToEnemy
	if session.CurrentEnemyHP < 0 {
		session.CurrentEnemyHP = 0
	}
	session.CurrentPlayerHP -= event.DamageToPlayer
	if session.CurrentPlayerHP < 0 {
		session.CurrentPlayerHP = 0
	}

	event.PlayerHP = session.CurrentPlayerHP
	event.EnemyHP = session.CurrentEnemyHP

	session.CombatLog = append(session.CombatLog, *event)
	session.TurnNumber++
	session.ExpiresAt = time.Now().Add(store.SessionTTL)
	session.Status = deriveStatus(session)
}

// CompleteCombat 结算终局会话，幂等
// 重复调用返回缓存的奖励包而不是重复入账
func (s *SessionService) CompleteCombat(ctx context.Context, sessionID string) (*CompleteResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err == store.ErrNotFound {
		// 会话已删除：若有结算缓存则属于重复完成请求
		bundle, berr := s.store.GetSettledBundle(ctx, sessionID)
		if berr != nil {
			return nil, xerrors.NewCacheError("get_settled_bundle", berr)
		}
		if bundle != nil {
			return &CompleteResult{Bundle: bundle, AlreadySettled: true}, nil
		}
		return nil, xerrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, xerrors.NewCacheError("get_session", err)
	}

	if !session.IsTerminal() {
		return nil, xerrors.New(xerrors.CodeSessionNotTerminal, "战斗尚未结束，不能结算").
			WithSession(session.UserID, sessionID).
			WithMetadata("status", string(session.Status))
	}

	acquired, err := s.store.AcquireSettleLock(ctx, sessionID, store.SettleLockTTL)
	if err != nil {
		return nil, xerrors.NewCacheError("acquire_settle_lock", err)
	}
	if !acquired {
		metrics.DefaultCombatMetrics.RecordSettlementConflict("")
		return nil, xerrors.NewSettlementInProgressError(sessionID)
	}
	defer func() {
		if rerr := s.store.ReleaseSettleLock(ctx, sessionID); rerr != nil {
			s.logger.WarnContext(ctx, "释放结算锁失败",
				log.String("session_id", sessionID),
				log.Any("error", rerr),
			)
		}
	}()

	bundle, err := s.settlement.Settle(ctx, session)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Bundle: bundle}, nil
}

// AbandonCombat 放弃战斗：直接删除会话，奖励作废
// 结算一旦开始（结算锁被占用），放弃请求被拒绝
func (s *SessionService) AbandonCombat(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err == store.ErrNotFound {
		return xerrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return xerrors.NewCacheError("get_session", err)
	}

	acquired, err := s.store.AcquireSettleLock(ctx, sessionID, store.SettleLockTTL)
	if err != nil {
		return xerrors.NewCacheError("acquire_settle_lock", err)
	}
	if !acquired {
		return xerrors.NewSettlementInProgressError(sessionID)
	}
	defer func() {
		_ = s.store.ReleaseSettleLock(ctx, sessionID)
	}()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return xerrors.NewCacheError("delete_session", err)
	}

	metrics.DefaultCombatMetrics.RecordSessionFinished("abandoned", time.Since(session.CreatedAt), "")
	s.logger.InfoContext(ctx, "战斗会话放弃",
		log.String("session_id", sessionID),
		log.String("user_id", session.UserID),
	)
	s.settlement.publishEvent(ctx, "abandoned", session, nil)
	return nil
}

// GetSession 会话只读视图
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err == store.ErrNotFound {
		return nil, xerrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, xerrors.NewCacheError("get_session", err)
	}
	return toSummary(session), nil
}

// GetActiveSessionCount 当前存活会话数，供管理端 RPC 使用
func (s *SessionService) GetActiveSessionCount(ctx context.Context) (int, error) {
	return s.store.CountActive(ctx)
}

// ForceExpireSession 管理端强制过期一个会话
func (s *SessionService) ForceExpireSession(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err == store.ErrNotFound {
		return xerrors.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return xerrors.NewCacheError("get_session", err)
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return xerrors.NewCacheError("delete_session", err)
	}
	metrics.DefaultCombatMetrics.RecordSessionFinished("expired", time.Since(session.CreatedAt), "")
	return nil
}

func toSummary(session *combatmodel.CombatSession) *SessionSummary {
	return &SessionSummary{
		SessionID:  session.SessionID,
		UserID:     session.UserID,
		LocationID: session.LocationID,
		Status:     session.Status,
		TurnNumber: session.TurnNumber,
		PlayerHP:   session.CurrentPlayerHP,
		PlayerMax:  session.Player.MaxHP,
		Enemy:      session.Enemy,
		EnemyHP:    session.CurrentEnemyHP,
		CombatLog:  session.CombatLog,
		ExpiresAt:  session.ExpiresAt,
	}
}
