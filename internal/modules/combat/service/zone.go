package service

import (
	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/xerrors"
)

// accuracyShrink 命中率对自伤区与落空区的最大收缩比例
// accuracy=1 时这两个区收缩一半，释放的弧度按比例划给普通区与暴击区
const accuracyShrink = 0.5

// ScaleBands 按命中率重算五区度数分配
// 总度数保持不变，任何区的宽度都不会变为负数；accuracy=0 时原样返回
func ScaleBands(bands combatmodel.BandConfig, accuracy float64) combatmodel.BandConfig {
	if accuracy <= 0 {
		return bands
	}
	if accuracy > 1 {
		accuracy = 1
	}

	factor := 1 - accuracyShrink*accuracy
	scaled := bands
	scaled.InjureDeg = bands.InjureDeg * factor
	scaled.MissDeg = bands.MissDeg * factor

	freed := (bands.InjureDeg + bands.MissDeg) - (scaled.InjureDeg + scaled.MissDeg)
	gainBase := bands.NormalDeg + bands.CritDeg
	if gainBase <= 0 {
		// 没有可受益的区，保持原分配
		return bands
	}
	scaled.NormalDeg = bands.NormalDeg + freed*(bands.NormalDeg/gainBase)
	scaled.CritDeg = bands.CritDeg + freed*(bands.CritDeg/gainBase)

	return scaled
}

// ResolveZone 将点击度数映射到命中区
// 五区从 0° 起按 自伤→落空→擦伤→普通→暴击 的固定顺序排布；
// 分配总和之外的剩余弧段按落空处理
func ResolveZone(tapDegrees float64, bands combatmodel.BandConfig, accuracy float64) (combatmodel.Zone, error) {
	if tapDegrees < 0 || tapDegrees >= 360 {
		return "", xerrors.New(xerrors.CodeInvalidTapDegrees, "点击度数必须在 [0,360) 区间内").
			WithMetadata("tap_degrees", tapDegrees)
	}
	if accuracy < 0 || accuracy > 1 {
		return "", xerrors.New(xerrors.CodeInvalidAccuracy, "命中率必须在 [0,1] 区间内").
			WithMetadata("accuracy", accuracy)
	}
	if bands.Total() > 360 {
		return "", xerrors.New(xerrors.CodeInvalidParams, "转盘度数分配总和超过360").
			WithMetadata("total_deg", bands.Total())
	}

	scaled := ScaleBands(bands, accuracy)

	cum := scaled.InjureDeg
	if tapDegrees < cum {
		return combatmodel.ZoneInjure, nil
	}
	cum += scaled.MissDeg
	if tapDegrees < cum {
		return combatmodel.ZoneMiss, nil
	}
	cum += scaled.GrazeDeg
	if tapDegrees < cum {
		return combatmodel.ZoneGraze, nil
	}
	cum += scaled.NormalDeg
	if tapDegrees < cum {
		return combatmodel.ZoneNormal, nil
	}
	cum += scaled.CritDeg
	if tapDegrees < cum {
		return combatmodel.ZoneCritical, nil
	}

	// 未分配的剩余弧段
	return combatmodel.ZoneMiss, nil
}
