// Package merge implements the Event Merger (spec §4.11): a stable sort of
// every engine's absolute-tick event lists into one ordered stream, plus
// delta-encoding and start-of-bar/end-of-bar boundary clipping.
package merge

import (
	"sort"

	"groove-engine/event"
)

// Merge stably sorts events by (tick, note_off-before-note_on, track,
// pitch) — spec §4.11 and the Sort Law (spec §8 invariant 7). The input
// slice is not mutated.
func Merge(events []event.Event) []event.Event {
	out := make([]event.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.Type != b.Type {
			// note_off (0x80) sorts before note_on (0x90) at the same tick.
			return a.Type == event.NoteOff
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.Pitch < b.Pitch
	})
	return out
}

// ClipToRange drops (or truncates) events outside [0, endTick), so a
// spurious note-off generated past the configured bar count never leaks
// into the output. Note-on events at or past endTick are dropped; note-off
// events past endTick are clipped to endTick.
func ClipToRange(events []event.Event, endTick int64) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.Tick < 0 {
			continue
		}
		if e.Type == event.NoteOn && e.Tick >= endTick {
			continue
		}
		if e.Tick > endTick {
			e.Tick = endTick
		}
		out = append(out, e)
	}
	return out
}

// DeltaEvent pairs an event with its tick delta since the previous event
// on the same track — the representation gomidi/smf tracks want.
type DeltaEvent struct {
	Delta int64
	Event event.Event
}

// DeltaEncodePerTrack groups a globally-sorted event stream by track and
// returns, for each track present, its events in order with deltas
// relative to the previous event on that same track (first event's delta
// is relative to tick 0).
func DeltaEncodePerTrack(sorted []event.Event) map[event.Track][]DeltaEvent {
	out := make(map[event.Track][]DeltaEvent)
	last := make(map[event.Track]int64)
	for _, e := range sorted {
		prev := last[e.Track]
		out[e.Track] = append(out[e.Track], DeltaEvent{Delta: e.Tick - prev, Event: e})
		last[e.Track] = e.Tick
	}
	return out
}
