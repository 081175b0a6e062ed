package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsu-combat/internal/entity/combat_runtime"
	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/modules/combat/store"
	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/xerrors"
)

// ---------------------------------------------------------------------------
// 进程内仓储桩
// ---------------------------------------------------------------------------

type fakeStatsRepo struct {
	snapshot combatmodel.PlayerSnapshot
}

func (f *fakeStatsRepo) GetEquippedStats(ctx context.Context, userID string) (*combatmodel.PlayerSnapshot, error) {
	snap := f.snapshot
	return &snap, nil
}

type fakeProgressionRepo struct {
	mu        sync.Mutex
	levels    map[string]int
	addCalls  []int
	leveledUp bool
	newLevel  int
}

func (f *fakeProgressionRepo) AddExperience(ctx context.Context, exec boil.ContextExecutor, userID string, amount int) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, amount)
	return f.leveledUp, f.newLevel, nil
}

func (f *fakeProgressionRepo) GetLevel(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lvl, ok := f.levels[userID]; ok {
		return lvl, nil
	}
	return 1, nil
}

type ledgerCall struct {
	userID     string
	code       string
	amount     int64
	sourceType string
	sourceID   string
}

type fakeCurrencyLedger struct {
	mu       sync.Mutex
	applied  map[string]bool
	calls    []ledgerCall
	failures int // 前 N 次调用返回错误，用于重试测试
}

func (f *fakeCurrencyLedger) ApplyDelta(ctx context.Context, exec boil.ContextExecutor, userID, code string, amount int64, sourceType, sourceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return false, errors.New("连接中断")
	}
	key := sourceType + "/" + sourceID + "/" + code
	if f.applied == nil {
		f.applied = make(map[string]bool)
	}
	if f.applied[key] {
		return false, nil
	}
	f.applied[key] = true
	f.calls = append(f.calls, ledgerCall{userID, code, amount, sourceType, sourceID})
	return true, nil
}

func (f *fakeCurrencyLedger) GetBalance(ctx context.Context, userID, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, c := range f.calls {
		if c.userID == userID && c.code == code {
			total += c.amount
		}
	}
	return total, nil
}

type materialCall struct {
	userID     string
	materialID string
	styleID    string
	qty        int
}

type fakeMaterialRepo struct {
	mu    sync.Mutex
	calls []materialCall
}

func (f *fakeMaterialRepo) IncrementStack(ctx context.Context, exec boil.ContextExecutor, userID, materialID, styleID string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, materialCall{userID, materialID, styleID, qty})
	return nil
}

func (f *fakeMaterialRepo) GetStackQuantity(ctx context.Context, userID, materialID, styleID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, c := range f.calls {
		if c.userID == userID && c.materialID == materialID && c.styleID == styleID {
			total += c.qty
		}
	}
	return total, nil
}

type itemCall struct {
	userID     string
	itemTypeID string
	level      int
	sourceID   string
	slotNo     int
}

type fakeItemRepo struct {
	mu    sync.Mutex
	calls []itemCall
}

func (f *fakeItemRepo) CreateInstance(ctx context.Context, exec boil.ContextExecutor, userID, itemTypeID string, level int, sourceID string, slotNo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, itemCall{userID, itemTypeID, level, sourceID, slotNo})
	return nil
}

type historyCall struct {
	userID     string
	locationID string
	sessionID  string
	victory    bool
}

type fakeHistoryRepo struct {
	mu    sync.Mutex
	calls []historyCall
}

func (f *fakeHistoryRepo) Upsert(ctx context.Context, exec boil.ContextExecutor, userID, locationID, sessionID string, victory bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, historyCall{userID, locationID, sessionID, victory})
	return nil
}

func (f *fakeHistoryRepo) Get(ctx context.Context, userID, locationID string) (*combat_runtime.CombatHistory, error) {
	return nil, nil
}

// fakeTx 满足结算事务接口的空执行器
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(query string, args ...interface{}) (sql.Result, error) { return nil, nil }
func (t *fakeTx) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRow(query string, args ...interface{}) *sql.Row { return nil }
func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}
func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type fakeTxBeginner struct {
	mu  sync.Mutex
	txs []*fakeTx
}

func (b *fakeTxBeginner) Begin(ctx context.Context) (Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &fakeTx{}
	b.txs = append(b.txs, tx)
	return tx, nil
}

// ---------------------------------------------------------------------------
// 测试装配
// ---------------------------------------------------------------------------

type combatHarness struct {
	store       *store.MemoryStore
	stats       *fakeStatsRepo
	progression *fakeProgressionRepo
	currency    *fakeCurrencyLedger
	materials   *fakeMaterialRepo
	items       *fakeItemRepo
	history     *fakeHistoryRepo
	pools       *fakePoolRepo

	settlement *SettlementService
	sessions   *SessionService
}

func nopLogger() log.Logger {
	return log.NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// 全普通区转盘让玩家攻击判定变得确定
var allNormalBands = combatmodel.BandConfig{NormalDeg: 360}

func newCombatHarness(seed int64) *combatHarness {
	h := &combatHarness{
		store: store.NewMemoryStore(),
		stats: &fakeStatsRepo{
			snapshot: combatmodel.PlayerSnapshot{
				Atk:   500,
				Def:   100,
				MaxHP: 1000,
				Bands: allNormalBands,
			},
		},
		progression: &fakeProgressionRepo{newLevel: 1},
		currency:    &fakeCurrencyLedger{},
		materials:   &fakeMaterialRepo{},
		items:       &fakeItemRepo{},
		history:     &fakeHistoryRepo{},
		pools:       newShadowWolfRepo(),
	}

	logger := nopLogger()
	provider := NewProviderService(h.pools, rand.New(rand.NewSource(seed)))
	h.settlement = NewSettlementService(
		&fakeTxBeginner{}, provider, h.store,
		h.currency, h.materials, h.items, h.progression, h.history,
		logger,
	)
	h.sessions = NewSessionService(
		h.store, provider, h.settlement,
		h.stats, h.progression,
		rand.New(rand.NewSource(seed+1)), logger,
	)
	return h
}

func appErrCode(t *testing.T, err error) xerrors.ErrorCode {
	t.Helper()
	var appErr *xerrors.AppError
	require.True(t, errors.As(err, &appErr), "期望 AppError，实际: %v", err)
	return appErr.Code
}

// fightToVictory 用压倒性属性打到胜利
func fightToVictory(t *testing.T, h *combatHarness, sessionID string) {
	t.Helper()
	for i := 0; i < 20; i++ {
		result, err := h.sessions.SubmitAttack(context.Background(), sessionID, 100)
		require.NoError(t, err)
		if result.Status == combatmodel.StatusVictory {
			return
		}
	}
	t.Fatal("20回合内未能取胜")
}

// ---------------------------------------------------------------------------
// 会话生命周期
// ---------------------------------------------------------------------------

func TestStartCombat(t *testing.T) {
	t.Run("创建带双方快照的进行中会话", func(t *testing.T) {
		h := newCombatHarness(1)

		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		assert.NotEmpty(t, summary.SessionID)
		assert.Equal(t, combatmodel.StatusOngoing, summary.Status)
		assert.Equal(t, 1000, summary.PlayerHP)
		assert.Equal(t, summary.Enemy.MaxHP, summary.EnemyHP)
		assert.Equal(t, "shadow_wolf", summary.Enemy.Code)
		assert.Zero(t, summary.TurnNumber)
		assert.False(t, summary.ExpiresAt.IsZero())

		// 会话可以按 ID 再次读取
		again, err := h.sessions.GetSession(context.Background(), summary.SessionID)
		require.NoError(t, err)
		assert.Equal(t, summary.SessionID, again.SessionID)
	})

	t.Run("未知地点被拒绝", func(t *testing.T) {
		h := newCombatHarness(1)

		_, err := h.sessions.StartCombat(context.Background(), "user-1", "void")
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeLocationNotFound, appErrCode(t, err))
	})

	t.Run("空参数被拒绝", func(t *testing.T) {
		h := newCombatHarness(1)

		_, err := h.sessions.StartCombat(context.Background(), "", "forest")
		require.Error(t, err)
		_, err = h.sessions.StartCombat(context.Background(), "user-1", "")
		require.Error(t, err)
	})
}

func TestSubmitAttack(t *testing.T) {
	t.Run("攻击推进回合并记录日志", func(t *testing.T) {
		h := newCombatHarness(2)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		result, err := h.sessions.SubmitAttack(context.Background(), summary.SessionID, 100)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Event.Turn)
		assert.Equal(t, "player", result.Event.Actor)
		assert.Equal(t, "attack", result.Event.Action)
		assert.Equal(t, combatmodel.ZoneNormal, result.Event.Zone)
		assert.GreaterOrEqual(t, result.PlayerHP, 0)
		assert.GreaterOrEqual(t, result.EnemyHP, 0)

		after, err := h.sessions.GetSession(context.Background(), summary.SessionID)
		if result.Status == combatmodel.StatusOngoing {
			require.NoError(t, err)
			assert.Equal(t, 1, after.TurnNumber)
			assert.Len(t, after.CombatLog, 1)
		}
	})

	t.Run("击杀一击时敌方不再反击", func(t *testing.T) {
		h := newCombatHarness(2)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		// 把敌方血量压到1，任何命中都致死
		session, err := h.store.Get(context.Background(), summary.SessionID)
		require.NoError(t, err)
		session.CurrentEnemyHP = 1
		require.NoError(t, h.store.Put(context.Background(), session, store.SessionTTL))

		result, err := h.sessions.SubmitAttack(context.Background(), summary.SessionID, 100)
		require.NoError(t, err)

		assert.Equal(t, combatmodel.StatusVictory, result.Status)
		assert.Equal(t, 0, result.EnemyHP)
		assert.Zero(t, result.Event.DamageToPlayer, "已被击杀的敌人不应反击")
		assert.Equal(t, summary.PlayerMax, result.PlayerHP)
	})

	t.Run("压倒性攻击力很快取胜", func(t *testing.T) {
		h := newCombatHarness(3)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		// atk 500 对 def 15，除非敌方连续暴击格挡否则几回合内必杀
		fightToVictory(t, h, summary.SessionID)

		after, err := h.sessions.GetSession(context.Background(), summary.SessionID)
		require.NoError(t, err)
		assert.Equal(t, combatmodel.StatusVictory, after.Status)
		assert.Zero(t, after.EnemyHP)
	})

	t.Run("终局会话拒绝继续攻击", func(t *testing.T) {
		h := newCombatHarness(4)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)
		fightToVictory(t, h, summary.SessionID)

		_, err = h.sessions.SubmitAttack(context.Background(), summary.SessionID, 100)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeSessionNotOngoing, appErrCode(t, err))
	})

	t.Run("不存在的会话返回未找到", func(t *testing.T) {
		h := newCombatHarness(5)
		_, err := h.sessions.SubmitAttack(context.Background(), "ghost", 100)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeSessionNotFound, appErrCode(t, err))
	})

	t.Run("越界点击度数被拒绝", func(t *testing.T) {
		h := newCombatHarness(6)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		_, err = h.sessions.SubmitAttack(context.Background(), summary.SessionID, 400)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeInvalidTapDegrees, appErrCode(t, err))

		// 非法输入不应该消耗回合
		after, err := h.sessions.GetSession(context.Background(), summary.SessionID)
		require.NoError(t, err)
		assert.Zero(t, after.TurnNumber)
	})

	t.Run("弱小玩家最终战败", func(t *testing.T) {
		h := newCombatHarness(7)
		h.stats.snapshot = combatmodel.PlayerSnapshot{
			Atk:   1,
			Def:   0,
			MaxHP: 1,
			Bands: allNormalBands,
		}
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		var status combatmodel.SessionStatus
		for i := 0; i < 50; i++ {
			result, err := h.sessions.SubmitAttack(context.Background(), summary.SessionID, 100)
			require.NoError(t, err)
			status = result.Status
			if status != combatmodel.StatusOngoing {
				break
			}
		}
		assert.Equal(t, combatmodel.StatusDefeat, status)
	})
}

func TestSubmitDefend(t *testing.T) {
	t.Run("防御回合不主动伤害敌人", func(t *testing.T) {
		h := newCombatHarness(8)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		result, err := h.sessions.SubmitDefend(context.Background(), summary.SessionID, 100)
		require.NoError(t, err)

		assert.Equal(t, "defend", result.Event.Action)
		assert.Equal(t, 1, result.Event.Turn)
		// 防御回合对敌伤害只可能来自敌方自伤
		if result.Event.DamageToEnemy > 0 {
			assert.Equal(t, "敌方自伤", result.Event.Note)
		}
	})

	t.Run("防御削减敌方来袭伤害", func(t *testing.T) {
		h := newCombatHarness(9)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		// 多回合防御，承受的单回合伤害不应超过敌方裸攻
		for i := 0; i < 10; i++ {
			result, err := h.sessions.SubmitDefend(context.Background(), summary.SessionID, 100)
			require.NoError(t, err)
			assert.LessOrEqual(t, result.Event.DamageToPlayer, summary.Enemy.Atk)
			if result.Status != combatmodel.StatusOngoing {
				break
			}
		}
	})
}

func TestAbandonCombat(t *testing.T) {
	t.Run("放弃后会话被删除且没有任何入账", func(t *testing.T) {
		h := newCombatHarness(10)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		require.NoError(t, h.sessions.AbandonCombat(context.Background(), summary.SessionID))

		_, err = h.sessions.GetSession(context.Background(), summary.SessionID)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeSessionNotFound, appErrCode(t, err))
		assert.Empty(t, h.currency.calls)
		assert.Empty(t, h.history.calls)
	})

	t.Run("重复放弃返回未找到", func(t *testing.T) {
		h := newCombatHarness(11)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		require.NoError(t, h.sessions.AbandonCombat(context.Background(), summary.SessionID))
		err = h.sessions.AbandonCombat(context.Background(), summary.SessionID)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeSessionNotFound, appErrCode(t, err))
	})

	t.Run("结算进行中时放弃被拒绝", func(t *testing.T) {
		h := newCombatHarness(12)
		summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)

		acquired, err := h.store.AcquireSettleLock(context.Background(), summary.SessionID, store.SettleLockTTL)
		require.NoError(t, err)
		require.True(t, acquired)

		err = h.sessions.AbandonCombat(context.Background(), summary.SessionID)
		require.Error(t, err)
		assert.Equal(t, xerrors.CodeSettlementInProgress, appErrCode(t, err))
	})
}

func TestForceExpireSession(t *testing.T) {
	h := newCombatHarness(13)
	summary, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
	require.NoError(t, err)

	require.NoError(t, h.sessions.ForceExpireSession(context.Background(), summary.SessionID))
	_, err = h.sessions.GetSession(context.Background(), summary.SessionID)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeSessionNotFound, appErrCode(t, err))

	err = h.sessions.ForceExpireSession(context.Background(), summary.SessionID)
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeSessionNotFound, appErrCode(t, err))
}

func TestGetActiveSessionCount(t *testing.T) {
	h := newCombatHarness(14)
	for i := 0; i < 3; i++ {
		_, err := h.sessions.StartCombat(context.Background(), "user-1", "forest")
		require.NoError(t, err)
	}
	count, err := h.sessions.GetActiveSessionCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
