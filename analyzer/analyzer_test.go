package analyzer

import (
	"testing"

	"groove-engine/event"
	"groove-engine/timebase"
)

func tb() timebase.Timebase {
	return timebase.Timebase{BPM: 120, PPQ: 1920, Bars: 4}
}

func kickOn(bar, step int, tb timebase.Timebase) event.Event {
	return event.Event{
		Tick:  tb.TickAt(bar, step),
		Track: event.TrackDrums,
		Type:  event.NoteOn,
		Pitch: 36,
	}
}

func TestAnalyzeMarksKickAndSurroundingSteps(t *testing.T) {
	timeb := tb()
	events := []event.Event{kickOn(0, 4, timeb)}
	grids := Analyze(events, timeb, 4)
	if !grids[0][4].IsKick {
		t.Fatalf("expected step 4 to be marked is_kick")
	}
	if !grids[0][3].PreKick {
		t.Fatalf("expected step 3 to be marked pre_kick (kick at s+1)")
	}
	if !grids[0][5].PostKick {
		t.Fatalf("expected step 5 to be marked post_kick (kick at s-1)")
	}
}

func TestAnalyzeBarStartAndEnd(t *testing.T) {
	timeb := tb()
	grids := Analyze(nil, timeb, 4)
	if !grids[0][0].BarStart {
		t.Fatalf("expected step 0 to be bar_start")
	}
	if !grids[0][15].BarEnd {
		t.Fatalf("expected step 15 to be bar_end")
	}
}

func TestAnalyzeSnareZoneWithinOneStep(t *testing.T) {
	timeb := tb()
	events := []event.Event{{
		Tick: timeb.TickAt(1, 8), Track: event.TrackDrums, Type: event.NoteOn, Pitch: 38,
	}}
	grids := Analyze(events, timeb, 4)
	if !grids[1][7].SnareZone || !grids[1][8].SnareZone || !grids[1][9].SnareZone {
		t.Fatalf("expected steps 7,8,9 to be snare_zone, got %+v", grids[1])
	}
	if grids[1][6].SnareZone {
		t.Fatalf("step 6 is two steps from the snare and should not be snare_zone")
	}
}

func TestAnalyzeHatDensity(t *testing.T) {
	timeb := tb()
	var events []event.Event
	for _, s := range []int{0, 1, 2, 3} {
		events = append(events, event.Event{
			Tick: timeb.TickAt(2, s), Track: event.TrackDrums, Type: event.NoteOn, Pitch: 42,
		})
	}
	grids := Analyze(events, timeb, 4)
	if !grids[2][1].HatDense {
		t.Fatalf("expected step 1 to be hat_dense with 4 hats within its window")
	}
	if !grids[2][10].HatSparse {
		t.Fatalf("expected step 10 to be hat_sparse with no hats nearby")
	}
}

func TestAnalyzeFillZoneOnLastTwoStepsOfGroup(t *testing.T) {
	timeb := tb()
	grids := Analyze(nil, timeb, 4)
	if !grids[3][14].FillZone || !grids[3][15].FillZone {
		t.Fatalf("expected last two steps of bar 3 (last bar of a 4-bar group) to be fill_zone")
	}
	if grids[0][14].FillZone || grids[2][15].FillZone {
		t.Fatalf("did not expect fill_zone outside the last bar of the group")
	}
}

func TestAnalyzeIgnoresNonDrumTracks(t *testing.T) {
	timeb := tb()
	events := []event.Event{{Tick: 0, Track: event.TrackBass, Type: event.NoteOn, Pitch: 36}}
	grids := Analyze(events, timeb, 4)
	if grids[0][0].IsKick {
		t.Fatalf("bass events must not influence drum slot labels")
	}
}
