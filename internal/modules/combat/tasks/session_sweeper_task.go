package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tsu-combat/internal/modules/combat/store"
	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/metrics"
	"tsu-combat/internal/pkg/notify"
)

// SessionSweeperTask 定时清扫业务过期的战斗会话
// Redis TTL 已经保证过期键最终消失，这里补偿性扫描并校准存活会话指标
type SessionSweeperTask struct {
	store  store.SessionStore
	logger log.Logger
	cron   *cron.Cron
}

// NewSessionSweeperTask 创建清扫任务实例
func NewSessionSweeperTask(sessionStore store.SessionStore, logger log.Logger) *SessionSweeperTask {
	return &SessionSweeperTask{
		store:  sessionStore,
		logger: logger,
	}
}

// Start 启动定时任务
func (t *SessionSweeperTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// 每10分钟执行一次清扫
	// Cron 表达式: 秒 分 时 日 月 周
	_, err := t.cron.AddFunc("0 */10 * * * *", func() {
		t.sweep()
	})
	if err != nil {
		t.logger.Error("【定时任务】添加会话清扫任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【定时任务】会话清扫已启动 - 每10分钟执行")
}

// sweep 执行一轮清扫并校准指标
func (t *SessionSweeperTask) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := t.store.SweepExpired(ctx)
	if err != nil {
		t.logger.Error("【定时任务】会话清扫失败", err)
		return
	}

	count, err := t.store.CountActive(ctx)
	if err != nil {
		t.logger.Error("【定时任务】统计存活会话失败", err)
		return
	}
	metrics.DefaultCombatMetrics.SetActiveSessions(count, "")

	if swept > 0 {
		if err := notify.PublishCombatEvent(ctx, notify.SubjectCombatExpired, map[string]interface{}{
			"swept_count": swept,
			"swept_at":    time.Now().Unix(),
		}); err != nil {
			t.logger.Warn("【定时任务】过期事件发布失败", "error", err)
		}
	}

	t.logger.Info("【定时任务】会话清扫完成",
		"swept_count", swept,
		"active_count", count,
	)
}

// Stop 停止定时任务（优雅关闭）
func (t *SessionSweeperTask) Stop() {
	if t.cron != nil {
		t.cron.Stop()
		t.logger.Info("【定时任务】会话清扫已停止")
	}
}
