package service

import (
	"math"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/xerrors"
)

// MinDamage 命中后的保底伤害
const MinDamage = 1

// 命中区伤害倍率，暴击区在此基础上叠加武器暴击加成
const (
	multInjure   = -0.5
	multMiss     = 0.0
	multGraze    = 0.6
	multNormal   = 1.0
	multCritBase = 1.6
)

// zoneMultiplier 返回命中区的基础倍率
func zoneMultiplier(zone combatmodel.Zone, critBonus float64) (float64, error) {
	switch zone {
	case combatmodel.ZoneInjure:
		return multInjure, nil
	case combatmodel.ZoneMiss:
		return multMiss, nil
	case combatmodel.ZoneGraze:
		return multGraze, nil
	case combatmodel.ZoneNormal:
		return multNormal, nil
	case combatmodel.ZoneCritical:
		return multCritBase + critBonus, nil
	default:
		return 0, xerrors.New(xerrors.CodeUnknownHitZone, "未知的命中区").
			WithMetadata("zone", string(zone))
	}
}

// AttackResult 一次攻击判定的伤害输出
type AttackResult struct {
	DamageToDefender int
	SelfDamage       int
}

// ResolveAttack 计算攻击伤害
// 常规区: max(MinDamage, atk*mult − def)；落空区伤害为 0；
// 自伤区对防守方零伤害，攻击方承受双倍反噬
func ResolveAttack(zone combatmodel.Zone, atk, def int, critBonus float64) (AttackResult, error) {
	mult, err := zoneMultiplier(zone, critBonus)
	if err != nil {
		return AttackResult{}, err
	}

	switch zone {
	case combatmodel.ZoneMiss:
		return AttackResult{}, nil
	case combatmodel.ZoneInjure:
		// 反噬以攻击力一半为基数，保底后翻倍
		base := int(math.Round(float64(atk) * -multInjure))
		if base < MinDamage {
			base = MinDamage
		}
		return AttackResult{SelfDamage: base * 2}, nil
	}

	raw := int(math.Round(float64(atk)*mult)) - def
	if raw < MinDamage {
		raw = MinDamage
	}
	return AttackResult{DamageToDefender: raw}, nil
}

// BlockedFraction 将命中区倍率折算为格挡比例
// 暴击区格挡最多(1.0)，自伤区最少(0)；玩家与敌人共用同一折算
func BlockedFraction(defenseZone combatmodel.Zone, critBonus float64) (float64, error) {
	mult, err := zoneMultiplier(defenseZone, critBonus)
	if err != nil {
		return 0, err
	}
	critMult := multCritBase + critBonus

	fraction := mult / critMult
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return fraction, nil
}

// ApplyDefense 按防守方独立判定的防御区削减来袭伤害
// 玩家防御与敌人防御走同一条路径，绝不各写一份公式
func ApplyDefense(incoming int, defenseZone combatmodel.Zone, critBonus float64) (int, error) {
	if incoming <= 0 {
		return 0, nil
	}
	blocked, err := BlockedFraction(defenseZone, critBonus)
	if err != nil {
		return 0, err
	}

	final := int(math.Round(float64(incoming) * (1 - blocked)))
	if final < MinDamage {
		final = MinDamage
	}
	return final, nil
}
