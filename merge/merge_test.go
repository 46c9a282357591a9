package merge

import (
	"testing"

	"groove-engine/event"
)

func TestMergeSortsByTick(t *testing.T) {
	in := []event.Event{
		{Tick: 100, Type: event.NoteOn, Track: event.TrackDrums, Pitch: 36},
		{Tick: 0, Type: event.NoteOn, Track: event.TrackDrums, Pitch: 36},
		{Tick: 50, Type: event.NoteOn, Track: event.TrackBass, Pitch: 40},
	}
	out := Merge(in)
	for i := 1; i < len(out); i++ {
		if out[i].Tick < out[i-1].Tick {
			t.Fatalf("not sorted: %v", out)
		}
	}
	if out[0].Tick != 0 {
		t.Fatalf("expected tick 0 first, got %d", out[0].Tick)
	}
}

func TestMergeNoteOffBeforeNoteOnAtSameTick(t *testing.T) {
	in := []event.Event{
		{Tick: 10, Type: event.NoteOn, Track: event.TrackDrums, Pitch: 36},
		{Tick: 10, Type: event.NoteOff, Track: event.TrackDrums, Pitch: 38},
	}
	out := Merge(in)
	if out[0].Type != event.NoteOff {
		t.Fatalf("expected note_off first at equal tick, got %+v", out[0])
	}
}

func TestMergeIsStableAndDeterministic(t *testing.T) {
	in := []event.Event{
		{Tick: 5, Type: event.NoteOn, Track: event.TrackDrums, Pitch: 36, Velocity: 1},
		{Tick: 5, Type: event.NoteOn, Track: event.TrackDrums, Pitch: 36, Velocity: 2},
	}
	out1 := Merge(in)
	out2 := Merge(in)
	if out1[0].Velocity != out2[0].Velocity || out1[0].Velocity != 1 {
		t.Fatalf("merge is not stable/deterministic: %+v vs %+v", out1, out2)
	}
}

func TestClipToRangeDropsOnsetsAtOrPastEnd(t *testing.T) {
	in := []event.Event{
		{Tick: 100, Type: event.NoteOn},
		{Tick: 200, Type: event.NoteOn},
	}
	out := ClipToRange(in, 150)
	if len(out) != 1 || out[0].Tick != 100 {
		t.Fatalf("expected only the sub-boundary onset to survive, got %+v", out)
	}
}

func TestClipToRangeTruncatesNoteOffs(t *testing.T) {
	in := []event.Event{{Tick: 300, Type: event.NoteOff}}
	out := ClipToRange(in, 150)
	if len(out) != 1 || out[0].Tick != 150 {
		t.Fatalf("expected note_off clipped to boundary, got %+v", out)
	}
}

func TestDeltaEncodePerTrack(t *testing.T) {
	in := []event.Event{
		{Tick: 10, Track: event.TrackDrums, Type: event.NoteOn},
		{Tick: 20, Track: event.TrackDrums, Type: event.NoteOn},
		{Tick: 15, Track: event.TrackBass, Type: event.NoteOn},
	}
	byTrack := DeltaEncodePerTrack(in)
	drums := byTrack[event.TrackDrums]
	if drums[0].Delta != 10 || drums[1].Delta != 10 {
		t.Fatalf("unexpected drum deltas: %+v", drums)
	}
	bass := byTrack[event.TrackBass]
	if bass[0].Delta != 15 {
		t.Fatalf("unexpected bass delta: %+v", bass)
	}
}
