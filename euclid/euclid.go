// Package euclid builds Euclidean rhythm masks via Bjorklund's algorithm,
// applies per-bar rotation drift, and evaluates the step-gating condition
// stack (PROB/PRE/NOT_PRE/FILL/EVERY_N) from spec §4.2.
package euclid

import (
	"groove-engine/config"
	"groove-engine/rng"
)

// Mask is one bar's onset pattern: Mask[i] is true iff step i fires.
type Mask []bool

// Bjorklund distributes fills onsets as evenly as possible across steps
// slots using the standard Euclidean-rhythm bucket construction. fills <= 0
// yields an all-false mask; fills >= steps yields an all-true mask.
func Bjorklund(steps, fills int) Mask {
	mask := make(Mask, steps)
	if steps <= 0 {
		return mask
	}
	if fills <= 0 {
		return mask
	}
	if fills >= steps {
		for i := range mask {
			mask[i] = true
		}
		return mask
	}

	counts := []int{}
	remainders := []int{fills}
	divisor := steps - fills
	level := 0
	for {
		counts = append(counts, divisor/remainders[level])
		remainders = append(remainders, divisor%remainders[level])
		divisor = remainders[level]
		level++
		if remainders[level] <= 1 {
			break
		}
	}
	counts = append(counts, divisor)

	pattern := bjorklundBuild(level, counts, remainders)
	for i := 0; i < steps; i++ {
		mask[i] = pattern[i%len(pattern)]
	}
	return mask
}

// bjorklundBuild recursively concatenates the bucket sequence the counts/
// remainders recurrence describes: level -1 is a single rest, level -2 a
// single onset, and every other level repeats the level below counts[level]
// times, tacking on one level-2-down bucket when remainders[level] != 0.
func bjorklundBuild(level int, counts, remainders []int) []bool {
	if level == -1 {
		return []bool{false}
	}
	if level == -2 {
		return []bool{true}
	}
	var res []bool
	for i := 0; i < counts[level]; i++ {
		res = append(res, bjorklundBuild(level-1, counts, remainders)...)
	}
	if remainders[level] != 0 {
		res = append(res, bjorklundBuild(level-2, counts, remainders)...)
	}
	return res
}

// Rotate returns mask rotated left by offset steps (onset that was at
// index i moves to index (i-offset) mod len, i.e. positive offset shifts
// onsets earlier). Offset may be negative or larger than len(mask).
func Rotate(mask Mask, offset int) Mask {
	n := len(mask)
	if n == 0 {
		return mask
	}
	out := make(Mask, n)
	off := ((offset % n) + n) % n
	for i := 0; i < n; i++ {
		out[i] = mask[(i+off)%n]
	}
	return out
}

// RotationOffset computes the per-bar rotation offset: round(rate*bar +
// initial), optionally clamped to ±maxRate*(barIndex+1) per the guard's
// max_rot_rate (spec §4.2, §4.6 point 4 — guard never allows kick rotation
// beyond this when kick_immutable, enforced by the caller).
func RotationOffset(ratePerBar float64, barIndex int, initial float64, maxRate float64) int {
	raw := ratePerBar*float64(barIndex) + initial
	if maxRate > 0 {
		maxAbs := maxRate * float64(barIndex+1)
		if raw > maxAbs {
			raw = maxAbs
		}
		if raw < -maxAbs {
			raw = -maxAbs
		}
	}
	return roundInt(raw)
}

func roundInt(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}

// History gives the condition stack read-only access to other layers'
// prior-bar masks, for PRE/NOT_PRE. It never needs the current bar's own
// in-progress mask.
type History interface {
	// PriorOnset reports whether layer had an onset at step in bar-1.
	// Returns false for bar 0 (no prior bar).
	PriorOnset(layer string, step int) bool
}

// ApplyConditions runs the condition stack left-to-right: an onset
// survives iff every condition in conds keeps it. barsPerPhrase is the
// FILL grouping (spec hardcodes "4-bar phrase" for FILL).
func ApplyConditions(mask Mask, bar int, conds []config.Condition, st *rng.State, hist History, barsPerPhrase int) Mask {
	if len(conds) == 0 {
		return mask
	}
	out := make(Mask, len(mask))
	copy(out, mask)
	for _, cond := range conds {
		for step, onset := range out {
			if !onset {
				continue
			}
			if !conditionKeeps(cond, bar, step, st, hist, barsPerPhrase) {
				out[step] = false
			}
		}
	}
	return out
}

func conditionKeeps(cond config.Condition, bar, step int, st *rng.State, hist History, barsPerPhrase int) bool {
	switch cond.Kind {
	case config.CondProb:
		return st.Bernoulli(cond.Prob)
	case config.CondPre:
		return hist != nil && hist.PriorOnset(cond.Layer, step)
	case config.CondNotPre:
		return hist == nil || !hist.PriorOnset(cond.Layer, step)
	case config.CondFill:
		if barsPerPhrase <= 0 {
			barsPerPhrase = 4
		}
		return (bar+1)%barsPerPhrase == 0
	case config.CondEveryN:
		n := cond.N
		if n <= 0 {
			n = 1
		}
		return (bar+cond.Offset)%n == 0
	default:
		return true
	}
}
