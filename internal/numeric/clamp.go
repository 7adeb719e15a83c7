// Package numeric collects small generic numeric helpers, currently
// the planner's tick clamp, rather than duplicating a clamp per
// integer width.
package numeric

import "golang.org/x/exp/constraints"

// Clamp restricts v to the closed interval [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
