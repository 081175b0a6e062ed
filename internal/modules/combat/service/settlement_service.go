package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/volatiletech/sqlboiler/v4/boil"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/modules/combat/store"
	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/metrics"
	"tsu-combat/internal/pkg/notify"
	"tsu-combat/internal/pkg/xerrors"
	"tsu-combat/internal/repository/interfaces"
)

const (
	settleMaxAttempts = 3
	settleRetryDelay  = 100 * time.Millisecond

	goldCurrencyCode = "gold"
	sourceTypeCombat = "combat_settlement"
)

// Tx 结算事务需要的最小能力集合
type Tx interface {
	boil.ContextExecutor
	Commit() error
	Rollback() error
}

// TxBeginner 开启结算事务
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// SQLTxBeginner 基于 database/sql 的事务开启器
type SQLTxBeginner struct {
	DB *sql.DB
}

func NewSQLTxBeginner(db *sql.DB) *SQLTxBeginner {
	return &SQLTxBeginner{DB: db}
}

// Begin 开启一个默认隔离级别的事务
func (b *SQLTxBeginner) Begin(ctx context.Context) (Tx, error) {
	return b.DB.BeginTx(ctx, nil)
}

// SettlementService 奖励结算服务
// 所有数据库副作用在单个事务内完成；流水行的唯一索引充当入账标记，
// 保证同一会话无论重试多少次只入账一次
type SettlementService struct {
	db          TxBeginner
	provider    *ProviderService
	sessions    store.SessionStore
	currency    interfaces.CurrencyLedger
	materials   interfaces.MaterialRepository
	items       interfaces.ItemRepository
	progression interfaces.ProgressionRepository
	history     interfaces.CombatHistoryRepository
	logger      log.Logger
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	db TxBeginner,
	provider *ProviderService,
	sessions store.SessionStore,
	currency interfaces.CurrencyLedger,
	materials interfaces.MaterialRepository,
	items interfaces.ItemRepository,
	progression interfaces.ProgressionRepository,
	history interfaces.CombatHistoryRepository,
	logger log.Logger,
) *SettlementService {
	return &SettlementService{
		db:          db,
		provider:    provider,
		sessions:    sessions,
		currency:    currency,
		materials:   materials,
		items:       items,
		progression: progression,
		history:     history,
		logger:      logger,
	}
}

// Settle 结算一个终局会话
// 调用方负责持有结算锁；本方法负责构建奖励包、落库、缓存与删除会话
func (s *SettlementService) Settle(ctx context.Context, session *combatmodel.CombatSession) (*combatmodel.RewardBundle, error) {
	start := time.Now()

	bundle, err := s.buildBundle(ctx, session)
	if err != nil {
		return nil, err
	}

	// 先把奖励包挂到会话上再执行副作用：
	// 落库中途崩溃后重试会复用同一份掉落，不会重掷
	if session.PendingBundle == nil {
		session.PendingBundle = bundle
		if perr := s.sessions.Put(ctx, session, store.SessionTTL); perr != nil {
			return nil, xerrors.NewCacheError("put_pending_bundle", perr)
		}
	}

	var applied bool
	var lastErr error
	for attempt := 1; attempt <= settleMaxAttempts; attempt++ {
		applied, lastErr = s.persist(ctx, session, bundle)
		if lastErr == nil {
			break
		}
		s.logger.WarnContext(ctx, "奖励落库失败，准备重试",
			log.String("session_id", session.SessionID),
			log.Int("attempt", attempt),
			log.Any("error", lastErr),
		)
		if attempt < settleMaxAttempts {
			time.Sleep(settleRetryDelay * time.Duration(attempt))
		}
	}
	if lastErr != nil {
		return nil, xerrors.Wrap(lastErr, xerrors.CodeSettlementFailed, "奖励结算失败").
			WithSession(session.UserID, session.SessionID)
	}

	// 先缓存再删除：删除后到达的重复请求仍能命中结算缓存
	if cerr := s.sessions.CacheSettledBundle(ctx, session.SessionID, bundle, store.SettledBundleTTL); cerr != nil {
		s.logger.WarnContext(ctx, "写入结算缓存失败",
			log.String("session_id", session.SessionID),
			log.Any("error", cerr),
		)
	}
	if derr := s.sessions.Delete(ctx, session.SessionID); derr != nil {
		s.logger.WarnContext(ctx, "删除已结算会话失败",
			log.String("session_id", session.SessionID),
			log.Any("error", derr),
		)
	}

	// 上次事务已提交、只剩清理的重结算不重复发事件和指标
	if applied {
		s.publishEvent(ctx, string(bundle.Outcome), session, bundle)
		s.recordMetrics(session, bundle, time.Since(start))
	}

	s.logger.InfoContext(ctx, "战斗结算完成",
		log.String("session_id", session.SessionID),
		log.String("user_id", session.UserID),
		log.String("outcome", string(bundle.Outcome)),
		log.Int64("gold", bundle.Gold),
		log.Int("materials", len(bundle.Materials)),
		log.Int("items", len(bundle.Items)),
		log.Int("experience", bundle.Experience),
	)
	return bundle, nil
}

// buildBundle 构建奖励包，已有挂起包时直接复用
// 战败不掉落也不给经验，只计入战绩
func (s *SettlementService) buildBundle(ctx context.Context, session *combatmodel.CombatSession) (*combatmodel.RewardBundle, error) {
	if session.PendingBundle != nil {
		return session.PendingBundle, nil
	}

	bundle := &combatmodel.RewardBundle{
		SessionID: session.SessionID,
		Outcome:   session.Status,
		Turns:     session.TurnNumber,
	}

	if session.Status != combatmodel.StatusVictory {
		return bundle, nil
	}

	bundle.Gold = session.Enemy.GoldReward
	bundle.Experience = session.Enemy.ExpReward

	combatLevel, err := s.progression.GetLevel(ctx, session.UserID)
	if err != nil {
		return nil, xerrors.NewDatabaseError("get_level", "combat_runtime.player_progression", err)
	}

	loot, err := s.provider.SelectLoot(ctx, session.LocationID, combatLevel, &session.Enemy)
	if err != nil {
		return nil, err
	}
	bundle.Materials = loot.Materials
	bundle.Items = loot.Items
	return bundle, nil
}

// persist 在单个事务内执行全部数据库副作用
// 流水行已存在（applied=false）说明之前的事务已提交，跳过剩余写入
func (s *SettlementService) persist(ctx context.Context, session *combatmodel.CombatSession, bundle *combatmodel.RewardBundle) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	applied, err := s.currency.ApplyDelta(ctx, tx,
		session.UserID, goldCurrencyCode, bundle.Gold,
		sourceTypeCombat, session.SessionID)
	if err != nil {
		return false, err
	}
	if !applied {
		// 前一次结算已经提交，本次只需走后续的缓存与清理
		level, lerr := s.progression.GetLevel(ctx, session.UserID)
		if lerr == nil {
			bundle.NewLevel = level
		}
		return false, nil
	}

	for _, m := range bundle.Materials {
		if err := s.materials.IncrementStack(ctx, tx, session.UserID, m.MaterialID, m.StyleID, m.Quantity); err != nil {
			return false, err
		}
	}
	for i, it := range bundle.Items {
		if err := s.items.CreateInstance(ctx, tx, session.UserID, it.ItemTypeID, it.Level, session.SessionID, i); err != nil {
			return false, err
		}
	}

	if bundle.Experience > 0 {
		leveledUp, newLevel, err := s.progression.AddExperience(ctx, tx, session.UserID, bundle.Experience)
		if err != nil {
			return false, err
		}
		bundle.LeveledUp = leveledUp
		bundle.NewLevel = newLevel
	}

	victory := bundle.Outcome == combatmodel.StatusVictory
	if err := s.history.Upsert(ctx, tx, session.UserID, session.LocationID, session.SessionID, victory); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// publishEvent 发布战斗事件，失败只记日志
func (s *SettlementService) publishEvent(ctx context.Context, result string, session *combatmodel.CombatSession, bundle *combatmodel.RewardBundle) {
	subject := notify.SubjectCombatSettled
	if result == "abandoned" {
		subject = notify.SubjectCombatAbandoned
	}
	payload := map[string]interface{}{
		"session_id":  session.SessionID,
		"user_id":     session.UserID,
		"location_id": session.LocationID,
		"result":      result,
		"turns":       session.TurnNumber,
	}
	if bundle != nil {
		payload["gold"] = bundle.Gold
		payload["experience"] = bundle.Experience
		payload["material_count"] = len(bundle.Materials)
		payload["item_count"] = len(bundle.Items)
	}
	if err := notify.PublishCombatEvent(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "发布战斗事件失败",
			log.String("session_id", session.SessionID),
			log.String("subject", subject),
			log.Any("error", err),
		)
	}
}

func (s *SettlementService) recordMetrics(session *combatmodel.CombatSession, bundle *combatmodel.RewardBundle, elapsed time.Duration) {
	m := metrics.DefaultCombatMetrics
	m.RecordSettlement(elapsed, "")
	m.RecordSessionFinished(string(bundle.Outcome), time.Since(session.CreatedAt), "")
	if bundle.Gold > 0 {
		m.RecordLootAwarded("gold", 1, "")
	}
	if len(bundle.Materials) > 0 {
		m.RecordLootAwarded("material", len(bundle.Materials), "")
	}
	if len(bundle.Items) > 0 {
		m.RecordLootAwarded("item", len(bundle.Items), "")
	}
	if bundle.Experience > 0 {
		m.RecordLootAwarded("experience", 1, "")
	}
}
