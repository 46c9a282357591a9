// Package micro implements per-onset micro-timing: swing, beat-bin offset
// sampling, per-layer caps, and choke groups (spec §4.3). The ordering
// invariant — swing, then beat-bin, then cap — is enforced by Offset,
// which is the only entry point callers should use.
package micro

import "groove-engine/rng"

// Swing returns the swing contribution for a step: on odd 16th-steps, add
// round((swingPercent-0.5) * stepTicks * 2); even steps get zero.
func Swing(step int, swingPercent float64, stepTicks int64) int64 {
	if step%2 == 0 {
		return 0
	}
	return roundI64((swingPercent - 0.5) * float64(stepTicks) * 2)
}

// BeatBin samples a discrete millisecond offset from the layer's
// beat_bins_ms/beat_bins_probs distribution, converts it to ticks, and
// clamps it to beatBinCapMs before conversion. Returns 0 if the layer has
// no configured bins.
func BeatBin(st *rng.State, binsMs, binsProbs []float64, capMs float64, bpm, ppq int) int64 {
	if len(binsMs) == 0 || len(binsMs) != len(binsProbs) {
		return 0
	}
	idx := st.WeightedChoice(binsProbs)
	if idx < 0 {
		return 0
	}
	ms := binsMs[idx]
	if capMs > 0 {
		if ms > capMs {
			ms = capMs
		}
		if ms < -capMs {
			ms = -capMs
		}
	}
	return msToTicks(ms, bpm, ppq)
}

func msToTicks(ms float64, bpm, ppq int) int64 {
	return roundI64(ms * float64(ppq) * float64(bpm) / 60000.0)
}

// Cap clamps |offset| to capTicks, which the caller has already converted
// to ticks; the drum engine passes the layer's MicroMs. A capTicks of 0 or
// less leaves the offset unclamped.
func Cap(offset, capTicks int64) int64 {
	if capTicks <= 0 {
		return offset
	}
	if offset > capTicks {
		return capTicks
	}
	if offset < -capTicks {
		return -capTicks
	}
	return offset
}

// Offset computes the full per-onset micro-timing offset in the
// spec-mandated order: swing, then beat-bin, then cap.
func Offset(st *rng.State, step int, swingPercent float64, stepTicks int64, binsMs, binsProbs []float64, binCapMs float64, capTicks int64, bpm, ppq int) int64 {
	off := Swing(step, swingPercent, stepTicks)
	off += BeatBin(st, binsMs, binsProbs, binCapMs, bpm, ppq)
	return Cap(off, capTicks)
}

// ChokeMask removes any onset in mask at a step where chokedBy has an
// onset (spec §4.3: "any onset in layer L1 at step s suppresses any onset
// of L2 at step s... outright removal before scheduling").
func ChokeMask(mask, chokedBy []bool) []bool {
	out := make([]bool, len(mask))
	copy(out, mask)
	for i := range out {
		if i < len(chokedBy) && chokedBy[i] {
			out[i] = false
		}
	}
	return out
}

func roundI64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}
	return int64(f - 0.5)
}
