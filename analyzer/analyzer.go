// Package analyzer implements the Drum Analyzer (spec §4.7): it partitions
// the merged drum event stream by bar, buckets each onset to its nearest
// 16th-step, and derives a read-only per-step SlotGrid that the bass and
// lead engines build on.
package analyzer

import (
	"groove-engine/event"
	"groove-engine/timebase"
)

// SlotLabel describes one 16th-step of a bar relative to the drum pattern.
type SlotLabel struct {
	IsKick     bool
	PreKick    bool
	PostKick   bool
	SnareZone  bool
	BarStart   bool
	BarEnd     bool
	HatDense   bool
	HatSparse  bool
	FillZone   bool
}

// SlotGrid is one bar's 16 SlotLabels, frozen once built.
type SlotGrid [16]SlotLabel

// kickNotes/snareNotes/hatNotes classify onsets by MIDI note for the
// purpose of slot labelling. These mirror the GM kit's voice assignment
// (drum.Kits["gm"]) since the analyzer only sees raw pitches, not layer
// names.
var (
	kickNotes  = map[uint8]bool{35: true, 36: true}
	snareNotes = map[uint8]bool{38: true, 39: true, 40: true} // snare + clap
	hatNotes   = map[uint8]bool{42: true, 44: true, 46: true}
)

// Analyze partitions a drum event stream (absolute ticks, already merged
// and sorted) into one SlotGrid per bar. barsPerFillGroup is the FILL
// grouping window (spec hardcodes 4).
func Analyze(events []event.Event, tb timebase.Timebase, barsPerFillGroup int) []SlotGrid {
	if barsPerFillGroup <= 0 {
		barsPerFillGroup = 4
	}
	grids := make([]SlotGrid, tb.Bars)

	kickSteps := make([][16]bool, tb.Bars)
	kickHere := make([][16]bool, tb.Bars) // kick within a quarter step of the grid line
	snareSteps := make([][16]bool, tb.Bars)
	hatSteps := make([][16]bool, tb.Bars)

	for _, ev := range events {
		if ev.Type != event.NoteOn || ev.Track != event.TrackDrums {
			continue
		}
		bar, step := nearestStep(ev.Tick, tb)
		if bar < 0 || bar >= tb.Bars {
			continue
		}
		switch {
		case kickNotes[ev.Pitch]:
			kickSteps[bar][step] = true
			if d := ev.Tick - tb.TickAt(bar, step); d >= -tb.StepTicks()/4 && d <= tb.StepTicks()/4 {
				kickHere[bar][step] = true
			}
		case snareNotes[ev.Pitch]:
			snareSteps[bar][step] = true
		case hatNotes[ev.Pitch]:
			hatSteps[bar][step] = true
		}
	}

	for bar := 0; bar < tb.Bars; bar++ {
		for s := 0; s < 16; s++ {
			label := SlotLabel{
				IsKick:    kickHere[bar][s],
				PreKick:   kickSteps[bar][(s+1)%16],
				PostKick:  kickSteps[bar][(s+16-1)%16],
				SnareZone: anyWithinOne(snareSteps[bar], s),
				BarStart:  s == 0,
				BarEnd:    s == 15,
				HatDense:  hatWindowCount(hatSteps[bar], s) >= 3,
				HatSparse: hatWindowCount(hatSteps[bar], s) == 0,
				FillZone:  isFillZone(bar, s, barsPerFillGroup),
			}
			grids[bar][s] = label
		}
	}
	return grids
}

// nearestStep buckets an absolute tick to its nearest 16th-step within a
// bar, rounding at half a step. IsKick additionally requires the kick to lie
// within ±step_ticks/4 of the step's grid tick.
func nearestStep(tick int64, tb timebase.Timebase) (bar, step int) {
	stepTicks := tb.StepTicks()
	if stepTicks <= 0 {
		return -1, -1
	}
	absoluteStep := (tick + stepTicks/2) / stepTicks
	bar = int(absoluteStep / 16)
	step = int(absoluteStep % 16)
	return bar, step
}

func anyWithinOne(steps [16]bool, s int) bool {
	for d := -1; d <= 1; d++ {
		idx := ((s+d)%16 + 16) % 16
		if steps[idx] {
			return true
		}
	}
	return false
}

func hatWindowCount(steps [16]bool, s int) int {
	n := 0
	for d := -2; d <= 2; d++ {
		idx := ((s+d)%16 + 16) % 16
		if steps[idx] {
			n++
		}
	}
	return n
}

// isFillZone reports whether (bar, step) is one of the last two steps of
// the last bar of a barsPerFillGroup-bar group.
func isFillZone(bar, step, barsPerFillGroup int) bool {
	isLastBarOfGroup := (bar+1)%barsPerFillGroup == 0
	return isLastBarOfGroup && step >= 14
}
