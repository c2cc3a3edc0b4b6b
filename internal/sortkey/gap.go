package sortkey

// Between returns a key strictly between lower and upper. hasLower/hasUpper=false means
// the bound is open. ok=false when no integer fits.
func Between(lower int64, hasLower bool, upper int64, hasUpper bool) (int64, bool) {
	switch {
	case !hasLower && !hasUpper:
		return Gap, true
	case !hasUpper:
		return lower + Gap, true
	case !hasLower:
		if upper > Gap {
			return upper - Gap, true
		}
		if upper > 1 {
			return upper / 2, true
		}
		return 0, false
	}
	if upper-lower > 1 {
		return lower + (upper-lower)/2, true
	}
	return 0, false
}

// planGapInsert keeps every sibling's key except the moved one, unless its neighbours
// leave no room. Then the smallest window around the moved item whose outer bounds can
// hold it is spread evenly.
func planGapInsert(final []Sibling, movedIdx int) (Plan, error) {
	lower, hasLower, upper, hasUpper := bounds(final, movedIdx, movedIdx)
	if k, ok := Between(lower, hasLower, upper, hasUpper); ok {
		p := Plan{Order: keysOf(final)}
		p.Order[movedIdx].SortOrder = k
		if final[movedIdx].SortOrder != k {
			p.Changed = []Key{p.Order[movedIdx]}
		}
		return p, nil
	}

	lo, hi := minimalValidWindow(final, movedIdx)
	lower, hasLower, upper, _ = bounds(final, lo, hi)
	if !hasLower {
		lower = 0
	}
	size := int64(hi - lo + 1)
	step := Gap
	if hi+1 < len(final) {
		step = (upper - lower) / (size + 1)
	}

	p := Plan{Order: keysOf(final), UsedFallback: true}
	for i := lo; i <= hi; i++ {
		k := lower + int64(i-lo+1)*step
		p.Order[i].SortOrder = k
	}
	for i, k := range p.Order {
		if k.SortOrder != final[i].SortOrder {
			p.Changed = append(p.Changed, k)
		}
	}
	return p, nil
}

func bounds(final []Sibling, lo, hi int) (lower int64, hasLower bool, upper int64, hasUpper bool) {
	if lo > 0 {
		lower, hasLower = final[lo-1].SortOrder, true
	}
	if hi+1 < len(final) {
		upper, hasUpper = final[hi+1].SortOrder, true
	}
	return
}

// minimalValidWindow finds the smallest [lo, hi] containing movedIdx whose outer bounds
// leave at least one free integer per window slot. Windows reaching the end of the list
// are always valid since the upper bound is open.
func minimalValidWindow(final []Sibling, movedIdx int) (lo, hi int) {
	valid := func(lo, hi int) bool {
		lower, hasLower, upper, hasUpper := bounds(final, lo, hi)
		if !hasUpper {
			return true
		}
		if !hasLower {
			lower = 0
		}
		return upper-lower-1 >= int64(hi-lo+1)
	}

	for size := 1; size <= len(final); size++ {
		startMin := movedIdx - (size - 1)
		if startMin < 0 {
			startMin = 0
		}
		startMax := movedIdx
		if startMax+size > len(final) {
			startMax = len(final) - size
		}
		// Prefer windows that extend to the right: they touch the displaced neighbours.
		for lo := startMax; lo >= startMin; lo-- {
			hi := lo + size - 1
			if lo <= movedIdx && movedIdx <= hi && valid(lo, hi) {
				return lo, hi
			}
		}
	}
	return 0, len(final) - 1
}
