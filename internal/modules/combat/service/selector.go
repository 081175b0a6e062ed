package service

import (
	"math/rand"
)

// WeightedEntry 参与加权抽取的条目
// RefID 允许重复，不同权重的同名条目各自独立参与抽取
type WeightedEntry struct {
	RefID   string
	Kind    string // "enemy" / "material" / "item"
	Weight  int
	Tier    int
	StyleID string
	QtyMin  int
	QtyMax  int
}

// SelectWeighted 按权重无放回抽取 count 个条目
// 每一槽的抽中概率与剩余条目的权重成正比；权重 ≤0 的条目不参与；
// 累计权重按插入顺序扫描，同权重条目由先后顺序决定归属
func SelectWeighted(rng *rand.Rand, entries []WeightedEntry, count int) []WeightedEntry {
	if count <= 0 || len(entries) == 0 {
		return nil
	}

	// 只保留有效条目，保持原始顺序
	pool := make([]WeightedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Weight > 0 {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}

	selected := make([]WeightedEntry, 0, count)
	for slot := 0; slot < count; slot++ {
		total := 0
		for _, e := range pool {
			total += e.Weight
		}

		roll := rng.Intn(total)
		cum := 0
		picked := -1
		for i, e := range pool {
			cum += e.Weight
			if roll < cum {
				picked = i
				break
			}
		}

		selected = append(selected, pool[picked])
		pool = append(pool[:picked], pool[picked+1:]...)
	}
	return selected
}
