// Package density implements the target-density clamp (with void-bias
// selection) and the post-schedule accent pass from spec §4.4.
package density

import "groove-engine/rng"

// LocalWeight is the sum of (1 - circularDistance(step, k)/16) over every
// kick onset step k, per spec §4.4's void-bias definition. Steps near a
// kick have high weight; steps far from every kick ("voids") have low
// weight.
func LocalWeight(step int, kickSteps []int) float64 {
	const n = 16
	w := 0.0
	for _, k := range kickSteps {
		d := circularDistance(step, k, n)
		contribution := 1.0 - float64(d)/float64(n)
		if contribution > 0 {
			w += contribution
		}
	}
	return w
}

func circularDistance(a, b, n int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= n
	if d > n/2 {
		d = n - d
	}
	return d
}

// AccentMode steers where the accent pass is biased to land.
type AccentMode string

const (
	AccentRandom          AccentMode = "random"
	AccentOffbeatFocused  AccentMode = "offbeat_focused"
	AccentDownbeatFocused AccentMode = "downbeat_focused"
)

// DefaultAccentGain is the velocity multiplier applied when an onset is
// accented.
const DefaultAccentGain = 1.25

// ClampToTarget adjusts mask's onset count into [target-tol, target+tol]
// by removing or adding onsets, always preferring low-LocalWeight
// ("void") steps first for both directions: when thinning, voids go first
// so onsets near the kick survive; when filling, voids are the ones that
// get filled.
func ClampToTarget(mask []bool, target, tol int, kickSteps []int, st *rng.State) []bool {
	out := make([]bool, len(mask))
	copy(out, mask)

	count := countOnsets(out)
	lo, hi := target-tol, target+tol
	if lo < 0 {
		lo = 0
	}

	if count > hi {
		candidates := rankByWeight(out, kickSteps, true)
		for _, step := range candidates {
			if count <= hi {
				break
			}
			out[step] = false
			count--
		}
	} else if count < lo {
		offCandidates := rankByWeight(invert(out), kickSteps, true)
		for _, step := range offCandidates {
			if count >= lo {
				break
			}
			if !out[step] {
				out[step] = true
				count++
			}
		}
	}
	_ = st // reserved for future tie-break randomisation; kept explicit per no-global-RNG rule
	return out
}

func invert(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, v := range mask {
		out[i] = !v
	}
	return out
}

func countOnsets(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}

// rankByWeight returns the onset steps of mask ordered by ascending
// LocalWeight (lowest/"void" first). Ties break by step index for
// determinism.
func rankByWeight(mask []bool, kickSteps []int, onsetsOnly bool) []int {
	type scored struct {
		step   int
		weight float64
	}
	var items []scored
	for i, v := range mask {
		if onsetsOnly && !v {
			continue
		}
		items = append(items, scored{step: i, weight: LocalWeight(i, kickSteps)})
	}
	// stable insertion sort: dataset is at most 16 items per bar.
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && (items[j].weight < items[j-1].weight ||
			(items[j].weight == items[j-1].weight && items[j].step < items[j-1].step)) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.step
	}
	return out
}

// AccentPass multiplies base velocities by DefaultAccentGain with
// probability accentProb for each surviving onset, steered by mode.
// Velocities are clamped to the valid MIDI range [1,127]. Velocity is
// never moved in time by this pass (spec §3: "Accent pass may raise
// velocity but not move the event").
func AccentPass(mask []bool, baseVelocity uint8, accentProb float64, mode AccentMode, st *rng.State) []uint8 {
	out := make([]uint8, len(mask))
	for step, onset := range mask {
		if !onset {
			continue
		}
		out[step] = baseVelocity
		if !shouldAccent(step, accentProb, mode, st) {
			continue
		}
		v := float64(baseVelocity) * DefaultAccentGain
		if v > 127 {
			v = 127
		}
		out[step] = uint8(v)
	}
	return out
}

func shouldAccent(step int, accentProb float64, mode AccentMode, st *rng.State) bool {
	p := accentProb
	switch mode {
	case AccentOffbeatFocused:
		if step%4 == 2 { // the "and" of each beat
			p *= 1.8
		} else {
			p *= 0.4
		}
	case AccentDownbeatFocused:
		if step%4 == 0 {
			p *= 1.8
		} else {
			p *= 0.4
		}
	case AccentRandom, "":
		// no steering
	}
	if p > 1 {
		p = 1
	}
	return st.Bernoulli(p)
}
