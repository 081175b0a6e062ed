package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CombatMetrics 战斗业务指标收集器
type CombatMetrics struct {
	// 当前进行中的战斗会话数
	ActiveSessions *prometheus.GaugeVec

	// 创建的战斗会话总数（按地点分组）
	SessionsStartedTotal *prometheus.CounterVec

	// 结束的战斗会话总数（按结果分组：victory/defeat/abandoned/expired）
	SessionsFinishedTotal *prometheus.CounterVec

	// 战斗会话时长直方图（从创建到结束）
	SessionDuration *prometheus.HistogramVec

	// 转盘判定总数（按行动方和命中区分组）
	ZoneHitsTotal *prometheus.CounterVec

	// 发放的战利品总数（按类型分组：material/item/gold/experience）
	LootAwardedTotal *prometheus.CounterVec

	// 结算耗时直方图
	SettlementDuration *prometheus.HistogramVec

	// 结算锁竞争次数（并发结算请求被拒绝）
	SettlementConflictsTotal *prometheus.CounterVec
}

var (
	// DefaultCombatMetrics 默认的战斗指标实例
	DefaultCombatMetrics *CombatMetrics
)

// SessionBuckets 是针对战斗会话时长优化的 buckets
// 单次战斗预期时长: 10秒到几分钟
// 单位：秒
var SessionBuckets = []float64{
	5,   // 5s
	10,  // 10s
	30,  // 30s
	60,  // 1分钟
	120, // 2分钟
	300, // 5分钟
	900, // 15分钟 - 会话TTL上限
}

// SettlementBuckets 是针对结算耗时优化的 buckets
// 结算涉及多次数据库写入，预期在几十毫秒内完成
// 单位：秒
var SettlementBuckets = []float64{
	0.01, // 10ms
	0.05, // 50ms
	0.1,  // 100ms
	0.25, // 250ms
	0.5,  // 500ms
	1,    // 1s
	2.5,  // 2.5s
}

// init 初始化默认指标
func init() {
	DefaultCombatMetrics = NewCombatMetrics("tsu")
}

// NewCombatMetrics 创建新的战斗指标收集器
func NewCombatMetrics(namespace string) *CombatMetrics {
	return NewCombatMetricsWithRegistry(namespace, GetRegisterer())
}

// NewCombatMetricsWithRegistry 创建新的战斗指标收集器（使用自定义注册表）
func NewCombatMetricsWithRegistry(namespace string, registerer prometheus.Registerer) *CombatMetrics {
	factory := promauto.With(registerer)

	return &CombatMetrics{
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "active_sessions",
				Help:      "Current number of ongoing combat sessions",
			},
			[]string{"service"},
		),

		SessionsStartedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "sessions_started_total",
				Help:      "Total number of combat sessions created by location",
			},
			[]string{"location", "service"},
		),

		SessionsFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "sessions_finished_total",
				Help:      "Total number of finished combat sessions by result (victory/defeat/abandoned/expired)",
			},
			[]string{"result", "service"},
		),

		SessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "session_duration_seconds",
				Help:      "Combat session duration from creation to completion",
				Buckets:   SessionBuckets,
			},
			[]string{"service"},
		),

		ZoneHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "zone_hits_total",
				Help:      "Total number of dial resolutions by actor (player/enemy) and hit zone",
			},
			[]string{"actor", "zone", "service"},
		),

		LootAwardedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "loot_awarded_total",
				Help:      "Total number of rewards granted by kind (material/item/gold/experience)",
			},
			[]string{"kind", "service"},
		),

		SettlementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "settlement_duration_seconds",
				Help:      "Reward settlement duration in seconds",
				Buckets:   SettlementBuckets,
			},
			[]string{"service"},
		),

		SettlementConflictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "combat",
				Name:      "settlement_conflicts_total",
				Help:      "Total number of settlement attempts rejected by the settlement lock",
			},
			[]string{"service"},
		),
	}
}

// RecordSessionStarted 记录战斗会话创建
func (m *CombatMetrics) RecordSessionStarted(location, service string) {
	service = normalizeServiceName(service)
	m.SessionsStartedTotal.WithLabelValues(location, service).Inc()
	m.ActiveSessions.WithLabelValues(service).Inc()
}

// RecordSessionFinished 记录战斗会话结束
//
// 参数:
//   - result: 结束方式 ("victory", "defeat", "abandoned", "expired")
//   - duration: 会话存活时长
func (m *CombatMetrics) RecordSessionFinished(result string, duration time.Duration, service string) {
	service = normalizeServiceName(service)
	m.SessionsFinishedTotal.WithLabelValues(result, service).Inc()
	m.SessionDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.ActiveSessions.WithLabelValues(service).Dec()
}

// RecordZoneHit 记录一次转盘判定
//
// 参数:
//   - actor: 行动方 ("player" 或 "enemy")
//   - zone: 命中区名称 ("injure", "miss", "graze", "normal", "critical")
func (m *CombatMetrics) RecordZoneHit(actor, zone, service string) {
	service = normalizeServiceName(service)
	m.ZoneHitsTotal.WithLabelValues(actor, zone, service).Inc()
}

// RecordLootAwarded 记录战利品发放
func (m *CombatMetrics) RecordLootAwarded(kind string, count int, service string) {
	service = normalizeServiceName(service)
	m.LootAwardedTotal.WithLabelValues(kind, service).Add(float64(count))
}

// RecordSettlement 记录一次完整的奖励结算
func (m *CombatMetrics) RecordSettlement(duration time.Duration, service string) {
	service = normalizeServiceName(service)
	m.SettlementDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordSettlementConflict 记录一次结算锁竞争
func (m *CombatMetrics) RecordSettlementConflict(service string) {
	service = normalizeServiceName(service)
	m.SettlementConflictsTotal.WithLabelValues(service).Inc()
}

// SetActiveSessions 全量校准当前会话数（供清扫任务使用）
func (m *CombatMetrics) SetActiveSessions(count int, service string) {
	service = normalizeServiceName(service)
	m.ActiveSessions.WithLabelValues(service).Set(float64(count))
}
