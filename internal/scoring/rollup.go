package scoring

import "math"

// Item is one weighted contribution to a rollup. A nil or NaN Score means
// the child has no valid achievement.
type Item struct {
	Code   string
	Weight float64
	Score  *float64
}

// Rollup returns the weighted mean of the items that have a score and a
// positive, finite weight. The bool is false when no item qualifies.
func Rollup(items []Item) (float64, bool) {
	var weighted, total float64
	for _, it := range items {
		if it.Score == nil || math.IsNaN(*it.Score) || !(it.Weight > 0) || math.IsInf(it.Weight, 1) {
			continue
		}
		weighted += it.Weight * *it.Score
		total += it.Weight
	}
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

func rollupPtr(items []Item) *float64 {
	v, ok := Rollup(items)
	if !ok {
		return nil
	}
	return &v
}

func ptr(v float64) *float64 {
	return &v
}
