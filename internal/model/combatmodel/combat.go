// Package combatmodel 定义战斗会话的领域模型
// 会话是短生命周期对象，仅存在于会话存储中，配置与玩家持久状态见 entity 包
package combatmodel

import "time"

// SessionStatus 会话状态
type SessionStatus string

const (
	StatusOngoing SessionStatus = "ongoing" // 战斗进行中
	StatusVictory SessionStatus = "victory" // 玩家获胜，待结算
	StatusDefeat  SessionStatus = "defeat"  // 玩家战败，待结算
	StatusSettled SessionStatus = "settled" // 奖励已结算
)

// Zone 转盘命中区
type Zone string

const (
	ZoneInjure   Zone = "injure"   // 自伤区
	ZoneMiss     Zone = "miss"     // 落空区
	ZoneGraze    Zone = "graze"    // 擦伤区
	ZoneNormal   Zone = "normal"   // 普通命中区
	ZoneCritical Zone = "critical" // 暴击区
)

// BandConfig 武器转盘的五区度数分配，总和不超过360
// 超出分配总和的剩余弧段按落空处理
type BandConfig struct {
	InjureDeg float64 `json:"injure_deg"`
	MissDeg   float64 `json:"miss_deg"`
	GrazeDeg  float64 `json:"graze_deg"`
	NormalDeg float64 `json:"normal_deg"`
	CritDeg   float64 `json:"crit_deg"`
}

// Total 返回已分配的总度数
func (b BandConfig) Total() float64 {
	return b.InjureDeg + b.MissDeg + b.GrazeDeg + b.NormalDeg + b.CritDeg
}

// PlayerSnapshot 战斗开始时的玩家属性快照
// 开战后装备变化不影响进行中的会话
type PlayerSnapshot struct {
	Atk       int        `json:"atk"`
	Def       int        `json:"def"`
	MaxHP     int        `json:"max_hp"`
	Accuracy  float64    `json:"accuracy"` // [0,1]
	CritBonus float64    `json:"crit_bonus"`
	Bands     BandConfig `json:"bands"`
}

// EnemySnapshot 选中敌人的快照（模板属性经层级缩放后）
type EnemySnapshot struct {
	EnemyTypeID string  `json:"enemy_type_id"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Tier        int     `json:"tier"`
	Atk         int     `json:"atk"`
	Def         int     `json:"def"`
	MaxHP       int     `json:"max_hp"`
	StyleID     string  `json:"style_id,omitempty"`
	GoldReward  int64   `json:"gold_reward"`
	ExpReward   int     `json:"exp_reward"`
	Accuracy    float64 `json:"accuracy"`
}

// TurnEvent 战斗日志中的一回合记录
type TurnEvent struct {
	Turn           int    `json:"turn"`
	Actor          string `json:"actor"`  // "player" / "enemy"
	Action         string `json:"action"` // "attack" / "defend"
	Zone           Zone   `json:"zone"`
	DefenseZone    Zone   `json:"defense_zone,omitempty"`
	DamageToEnemy  int    `json:"damage_to_enemy"`
	DamageToPlayer int    `json:"damage_to_player"`
	PlayerHP       int    `json:"player_hp"`
	EnemyHP        int    `json:"enemy_hp"`
	Note           string `json:"note,omitempty"`
}

// CombatSession 战斗会话
// 生命周期完全由会话存储管理；同一 session_id 的动作串行执行
type CombatSession struct {
	SessionID       string         `json:"session_id"`
	UserID          string         `json:"user_id"`
	LocationID      string         `json:"location_id"`
	Player          PlayerSnapshot `json:"player"`
	Enemy           EnemySnapshot  `json:"enemy"`
	CurrentPlayerHP int            `json:"current_player_hp"`
	CurrentEnemyHP  int            `json:"current_enemy_hp"`
	TurnNumber      int            `json:"turn_number"`
	Status          SessionStatus  `json:"status"`
	CombatLog       []TurnEvent    `json:"combat_log"`
	// PendingBundle 在结算首次构建奖励后写入，重试时直接复用而不重新随机
	PendingBundle *RewardBundle `json:"pending_bundle,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

// IsTerminal 会话是否已进入终局（胜利或战败）
func (s *CombatSession) IsTerminal() bool {
	return s.Status == StatusVictory || s.Status == StatusDefeat
}

// MaterialGrant 结算发放的材料
type MaterialGrant struct {
	MaterialID string `json:"material_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	StyleID    string `json:"style_id"`
	Quantity   int    `json:"quantity"`
}

// ItemGrant 结算发放的物品实例
type ItemGrant struct {
	ItemTypeID string `json:"item_type_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
}

// RewardBundle 终局会话的奖励包，每个会话最多构建一次、消费一次
type RewardBundle struct {
	SessionID  string          `json:"session_id"`
	Outcome    SessionStatus   `json:"outcome"` // victory / defeat
	Gold       int64           `json:"gold"`
	Materials  []MaterialGrant `json:"materials"`
	Items      []ItemGrant     `json:"items"`
	Experience int             `json:"experience"`
	LeveledUp  bool            `json:"leveled_up"`
	NewLevel   int             `json:"new_level,omitempty"`
	Turns      int             `json:"turns"`
}
