// Package money implements integer-cent arithmetic for the receipt/ledger
// domain. Every monetary value in this system is a non-negative int64 of
// cents; this package is the only place that rounds.
package money

import "sort"

// IntegerScale computes floor(unitPriceCents * quantity), the subtotal for
// a line with a possibly fractional quantity (e.g. 1.5 kg of something).
func IntegerScale(unitPriceCents int64, quantity float64) int64 {
	if unitPriceCents <= 0 || quantity <= 0 {
		return 0
	}
	return int64(float64(unitPriceCents) * quantity)
}

// Allocate distributes total across weights, producing integer parts that
// sum exactly to total. Each part is proportional to its weight; the
// leftover cents from flooring are handed out one at a time, in order of
// largest fractional remainder, ties broken by ascending index.
func Allocate(total int64, weights []float64) []int64 {
	parts := make([]int64, len(weights))
	if total <= 0 || len(weights) == 0 {
		return parts
	}

	var weightSum float64
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}
	if weightSum <= 0 {
		return parts
	}

	type remainder struct {
		index int
		frac  float64
	}
	remainders := make([]remainder, len(weights))

	var allocated int64
	for i, w := range weights {
		if w <= 0 {
			remainders[i] = remainder{index: i, frac: 0}
			continue
		}
		share := float64(total) * w / weightSum
		floor := int64(share)
		parts[i] = floor
		allocated += floor
		remainders[i] = remainder{index: i, frac: share - float64(floor)}
	}

	leftover := total - allocated
	if leftover <= 0 {
		return parts
	}

	sort.SliceStable(remainders, func(a, b int) bool {
		if remainders[a].frac != remainders[b].frac {
			return remainders[a].frac > remainders[b].frac
		}
		return remainders[a].index < remainders[b].index
	})

	for i := int64(0); i < leftover && int(i) < len(remainders); i++ {
		parts[remainders[i].index]++
	}
	return parts
}

// Sum adds up a slice of cent amounts.
func Sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}
	return total
}

// Max returns the larger of a and b.
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
