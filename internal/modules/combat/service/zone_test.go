package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tsu-combat/internal/model/combatmodel"
	"tsu-combat/internal/pkg/xerrors"
)

// 标准测试转盘：自伤5° 落空45° 擦伤60° 普通200° 暴击50°，合计360°
var testBands = combatmodel.BandConfig{
	InjureDeg: 5,
	MissDeg:   45,
	GrazeDeg:  60,
	NormalDeg: 200,
	CritDeg:   50,
}

func TestResolveZone(t *testing.T) {
	t.Run("零命中率时按原始分配判定", func(t *testing.T) {
		cases := []struct {
			name string
			tap  float64
			want combatmodel.Zone
		}{
			{"自伤区起点", 0, combatmodel.ZoneInjure},
			{"自伤区内", 4.9, combatmodel.ZoneInjure},
			{"落空区边界", 5, combatmodel.ZoneMiss},
			{"落空区内", 10, combatmodel.ZoneMiss},
			{"擦伤区边界", 50, combatmodel.ZoneGraze},
			{"普通区边界", 110, combatmodel.ZoneNormal},
			{"普通区深处", 300, combatmodel.ZoneNormal},
			{"暴击区边界", 310, combatmodel.ZoneCritical},
			{"暴击区内", 330, combatmodel.ZoneCritical},
			{"暴击区末端", 359.9, combatmodel.ZoneCritical},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				zone, err := ResolveZone(tc.tap, testBands, 0)
				require.NoError(t, err)
				assert.Equal(t, tc.want, zone)
			})
		}
	})

	t.Run("分配总和不足360时剩余弧段按落空处理", func(t *testing.T) {
		partial := combatmodel.BandConfig{
			InjureDeg: 5,
			MissDeg:   45,
			GrazeDeg:  60,
			NormalDeg: 150,
			CritDeg:   40,
		}
		require.Equal(t, float64(300), partial.Total())

		zone, err := ResolveZone(350, partial, 0)
		require.NoError(t, err)
		assert.Equal(t, combatmodel.ZoneMiss, zone)
	})

	t.Run("命中率提升后落空区收缩", func(t *testing.T) {
		// accuracy=1 时自伤与落空各收缩一半：自伤 [0,2.5) 落空 [2.5,25)
		zone, err := ResolveZone(30, testBands, 1)
		require.NoError(t, err)
		assert.Equal(t, combatmodel.ZoneGraze, zone)

		// 同一点击在零命中率下仍是落空
		zone, err = ResolveZone(30, testBands, 0)
		require.NoError(t, err)
		assert.Equal(t, combatmodel.ZoneMiss, zone)
	})

	t.Run("点击度数越界返回参数错误", func(t *testing.T) {
		for _, tap := range []float64{-0.1, 360, 720} {
			_, err := ResolveZone(tap, testBands, 0)
			require.Error(t, err)
			var appErr *xerrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, xerrors.CodeInvalidTapDegrees, appErr.Code)
		}
	})

	t.Run("命中率越界返回参数错误", func(t *testing.T) {
		for _, acc := range []float64{-0.01, 1.01} {
			_, err := ResolveZone(100, testBands, acc)
			require.Error(t, err)
			var appErr *xerrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, xerrors.CodeInvalidAccuracy, appErr.Code)
		}
	})

	t.Run("分配总和超过360被拒绝", func(t *testing.T) {
		bad := testBands
		bad.NormalDeg = 300
		_, err := ResolveZone(100, bad, 0)
		require.Error(t, err)
		var appErr *xerrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, xerrors.CodeInvalidParams, appErr.Code)
	})
}

func TestScaleBands(t *testing.T) {
	t.Run("缩放保持总度数不变", func(t *testing.T) {
		for _, acc := range []float64{0, 0.25, 0.5, 0.75, 1} {
			scaled := ScaleBands(testBands, acc)
			assert.InDelta(t, testBands.Total(), scaled.Total(), 1e-9, "accuracy=%v", acc)
		}
	})

	t.Run("满命中率时自伤与落空各收缩一半", func(t *testing.T) {
		scaled := ScaleBands(testBands, 1)
		assert.InDelta(t, 2.5, scaled.InjureDeg, 1e-9)
		assert.InDelta(t, 22.5, scaled.MissDeg, 1e-9)
		assert.InDelta(t, 60, scaled.GrazeDeg, 1e-9)
		// 释放的 25° 按 200:50 的比例划给普通区与暴击区
		assert.InDelta(t, 220, scaled.NormalDeg, 1e-9)
		assert.InDelta(t, 55, scaled.CritDeg, 1e-9)
	})

	t.Run("命中率越高落空区越窄", func(t *testing.T) {
		prev := ScaleBands(testBands, 0)
		for _, acc := range []float64{0.2, 0.5, 0.8, 1} {
			cur := ScaleBands(testBands, acc)
			assert.Less(t, cur.MissDeg, prev.MissDeg)
			assert.Less(t, cur.InjureDeg, prev.InjureDeg)
			assert.Greater(t, cur.NormalDeg, prev.NormalDeg)
			prev = cur
		}
	})

	t.Run("没有受益区时保持原始分配", func(t *testing.T) {
		degenerate := combatmodel.BandConfig{InjureDeg: 100, MissDeg: 200}
		scaled := ScaleBands(degenerate, 1)
		assert.Equal(t, degenerate, scaled)
	})

	t.Run("超出1的命中率按1处理", func(t *testing.T) {
		assert.Equal(t, ScaleBands(testBands, 1), ScaleBands(testBands, 5))
	})
}
