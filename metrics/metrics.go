// Package metrics computes the per-bar controller inputs from spec §4.5:
// entrainment (E), syncopation (S), hat density (H), and mean micro-timing
// magnitude (T_ms). All are read-only functions of a bar's onset masks —
// no state is kept between bars, the controller owns that.
package metrics

// strongSteps are the four quarter-note downbeats of a 16-step bar.
var strongSteps = map[int]bool{0: true, 4: true, 8: true, 12: true}

// Entrainment returns the normalized period-4 autocorrelation of the union
// onset mask: the fraction of onsets that have a matching onset exactly
// one quarter-note (4 steps) later. An empty mask has E = 0.
func Entrainment(unionMask []bool) float64 {
	n := len(unionMask)
	if n == 0 {
		return 0
	}
	onsets := 0
	matches := 0
	for i, v := range unionMask {
		if !v {
			continue
		}
		onsets++
		if unionMask[(i+4)%n] {
			matches++
		}
	}
	if onsets == 0 {
		return 0
	}
	e := float64(matches) / float64(onsets)
	return clamp01(e)
}

// Syncopation returns the [0,1]-rescaled difference between onsets on weak
// metric positions and onsets on strong (downbeat) positions.
func Syncopation(unionMask []bool) float64 {
	n := len(unionMask)
	weak, strong := 0, 0
	for i, v := range unionMask {
		if !v {
			continue
		}
		if strongSteps[i] {
			strong++
		} else {
			weak++
		}
	}
	maxStrong := 0
	for i := 0; i < n; i++ {
		if strongSteps[i] {
			maxStrong++
		}
	}
	raw := float64(weak - strong)
	// raw ranges over [-maxStrong, n-maxStrong]; rescale to [0,1].
	lo, hi := float64(-maxStrong), float64(n-maxStrong)
	if hi <= lo {
		return 0
	}
	return clamp01((raw - lo) / (hi - lo))
}

// HatDensity is the fraction of 16th-note steps carrying a hat onset.
func HatDensity(hatMask []bool) float64 {
	if len(hatMask) == 0 {
		return 0
	}
	n := 0
	for _, v := range hatMask {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(hatMask))
}

// MicroMeanAbs returns the mean absolute micro-timing offset (in whatever
// unit offsets are expressed in — the caller passes ticks) across a
// layer's onsets in a bar. Zero onsets yields 0.
func MicroMeanAbs(offsets []int64) float64 {
	if len(offsets) == 0 {
		return 0
	}
	sum := int64(0)
	for _, o := range offsets {
		if o < 0 {
			o = -o
		}
		sum += o
	}
	return float64(sum) / float64(len(offsets))
}

// Union ORs a set of per-layer masks into a single bar-length mask.
func Union(masks ...[]bool) []bool {
	if len(masks) == 0 {
		return nil
	}
	n := len(masks[0])
	out := make([]bool, n)
	for _, m := range masks {
		for i := 0; i < n && i < len(m); i++ {
			if m[i] {
				out[i] = true
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
