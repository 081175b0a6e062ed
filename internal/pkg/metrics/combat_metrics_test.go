package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewCombatMetrics(t *testing.T) {
	t.Run("创建战斗指标收集器", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewCombatMetricsWithRegistry("test", reg)

		assert.NotNil(t, metrics)
		assert.NotNil(t, metrics.ActiveSessions)
		assert.NotNil(t, metrics.SessionsStartedTotal)
		assert.NotNil(t, metrics.SessionsFinishedTotal)
		assert.NotNil(t, metrics.SessionDuration)
		assert.NotNil(t, metrics.ZoneHitsTotal)
		assert.NotNil(t, metrics.LootAwardedTotal)
		assert.NotNil(t, metrics.SettlementDuration)
		assert.NotNil(t, metrics.SettlementConflictsTotal)
	})
}

func TestCombatMetrics_SessionLifecycle(t *testing.T) {
	t.Run("会话创建与结束", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewCombatMetricsWithRegistry("test", reg)
		service := "combat"

		metrics.RecordSessionStarted("forest", service)
		metrics.RecordSessionStarted("forest", service)
		metrics.RecordSessionStarted("cave", service)

		assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ActiveSessions.WithLabelValues(service)))
		assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SessionsStartedTotal.WithLabelValues("forest", service)))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionsStartedTotal.WithLabelValues("cave", service)))

		metrics.RecordSessionFinished("victory", 45*time.Second, service)
		metrics.RecordSessionFinished("abandoned", 10*time.Second, service)

		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ActiveSessions.WithLabelValues(service)))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionsFinishedTotal.WithLabelValues("victory", service)))
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionsFinishedTotal.WithLabelValues("abandoned", service)))
	})
}

func TestCombatMetrics_RecordZoneHit(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		zone  string
		times int
	}{
		{
			name:  "玩家暴击",
			actor: "player",
			zone:  "critical",
			times: 3,
		},
		{
			name:  "敌方普通命中",
			actor: "enemy",
			zone:  "normal",
			times: 5,
		},
		{
			name:  "玩家自伤",
			actor: "player",
			zone:  "injure",
			times: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			metrics := NewCombatMetricsWithRegistry("test", reg)
			service := "combat"

			for i := 0; i < tt.times; i++ {
				metrics.RecordZoneHit(tt.actor, tt.zone, service)
			}

			count := testutil.ToFloat64(metrics.ZoneHitsTotal.WithLabelValues(tt.actor, tt.zone, service))
			assert.Equal(t, float64(tt.times), count)
		})
	}
}

func TestCombatMetrics_RecordLootAwarded(t *testing.T) {
	t.Run("按类型累加战利品数量", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewCombatMetricsWithRegistry("test", reg)
		service := "combat"

		metrics.RecordLootAwarded("material", 2, service)
		metrics.RecordLootAwarded("material", 3, service)
		metrics.RecordLootAwarded("gold", 150, service)

		assert.Equal(t, float64(5), testutil.ToFloat64(metrics.LootAwardedTotal.WithLabelValues("material", service)))
		assert.Equal(t, float64(150), testutil.ToFloat64(metrics.LootAwardedTotal.WithLabelValues("gold", service)))
	})
}

func TestCombatMetrics_SettlementConflicts(t *testing.T) {
	t.Run("结算锁竞争计数", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewCombatMetricsWithRegistry("test", reg)
		service := "combat"

		metrics.RecordSettlementConflict(service)
		metrics.RecordSettlementConflict(service)

		assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SettlementConflictsTotal.WithLabelValues(service)))

		// 结算耗时记录不应 panic
		metrics.RecordSettlement(80*time.Millisecond, service)
	})
}

func TestCombatMetrics_SetActiveSessions(t *testing.T) {
	t.Run("全量校准会话数", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics := NewCombatMetricsWithRegistry("test", reg)
		service := "combat"

		metrics.RecordSessionStarted("forest", service)
		metrics.SetActiveSessions(7, service)

		assert.Equal(t, float64(7), testutil.ToFloat64(metrics.ActiveSessions.WithLabelValues(service)))
	})
}
