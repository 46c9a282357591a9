// Package timebase converts between musical time (bars, steps, ms) and MIDI
// ticks. It holds no state beyond the tempo/resolution triple.
package timebase

import "groove-engine/groove_errors"

// StepsPerBar is fixed by spec: every bar is 16 sixteenth-note steps.
const StepsPerBar = 16

// Timebase is the tempo/resolution/length triple shared by every engine.
type Timebase struct {
	BPM  int // [60, 240]
	PPQ  int // one of {96, 192, 480, 960, 1920}
	Bars int // [1, 128]
}

// allowedPPQ are the resolutions spec §3 recognises.
var allowedPPQ = map[int]bool{96: true, 192: true, 480: true, 960: true, 1920: true}

// Validate checks the Timebase invariants from spec §3: bpm/bars ranges,
// ppq membership, and ppq % 4 == 0.
func (tb Timebase) Validate() error {
	if tb.BPM < 60 || tb.BPM > 240 {
		return groove_errors.NewInvalidConfiguration("bpm", "must be in [60,240]")
	}
	if tb.Bars < 1 || tb.Bars > 128 {
		return groove_errors.NewInvalidConfiguration("bars", "must be in [1,128]")
	}
	if !allowedPPQ[tb.PPQ] {
		return groove_errors.NewInvalidConfiguration("ppq", "must be one of 96,192,480,960,1920")
	}
	if tb.PPQ%4 != 0 {
		return groove_errors.NewInvalidConfiguration("ppq", "must be divisible by 4")
	}
	return nil
}

// StepTicks returns the tick length of one 16th-note step.
func (tb Timebase) StepTicks() int64 {
	return StepTicks(tb.PPQ)
}

// StepTicks is the package-level form used by callers that only have a ppq.
func StepTicks(ppq int) int64 {
	return int64(ppq / 4)
}

// BarTicks returns the tick length of one bar (4/4, 16 steps).
func (tb Timebase) BarTicks() int64 {
	return tb.StepTicks() * StepsPerBar
}

// TickAt returns the absolute tick of a given (bar, step).
func (tb Timebase) TickAt(bar, step int) int64 {
	return int64(bar)*tb.BarTicks() + int64(step)*tb.StepTicks()
}

// TotalBars is a convenience accessor mirroring spec naming.
func (tb Timebase) TotalBars() int { return tb.Bars }

// TicksFromMs converts a millisecond offset to ticks at the given bpm/ppq.
// ticks = ms * ppq * bpm / 60000
func TicksFromMs(ms float64, bpm, ppq int) int64 {
	return int64(round(ms * float64(ppq) * float64(bpm) / 60000.0))
}

// MicrosPerQuarter derives the SMF tempo meta-event value from bpm.
func MicrosPerQuarter(bpm int) int {
	return 60_000_000 / bpm
}

func round(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}
