// Package midiwriter turns a merged, delta-encoded event stream into a
// Standard MIDI File (spec §4.12 export format). It is grounded on the
// teacher's gitlab.com/gomidi/midi/v2 dependency, extended to that
// library's smf subpackage since the teacher only ever talked to live
// ports, never wrote a file to disk.
package midiwriter

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"groove-engine/event"
	"groove-engine/merge"
	"groove-engine/timebase"
)

// trackOrder fixes which track each engine's events land on and in what
// left-to-right order they appear in the file.
var trackOrder = []event.Track{event.TrackDrums, event.TrackBass, event.TrackLead}

// Write renders a full SMF from the already-sorted event stream and saves
// it to path. tb supplies the PPQ for the time format and BPM for the
// tempo meta event; one meta track carries tempo/meter, one note track
// per engine follows in trackOrder.
func Write(path string, sorted []event.Event, tb timebase.Timebase) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tb.PPQ)

	var meta smf.Track
	meta.Add(0, smf.MetaMeter(4, 4))
	meta.Add(0, smf.MetaTempo(float64(tb.BPM)))
	meta.Close(0)
	if err := s.Add(meta); err != nil {
		return fmt.Errorf("midiwriter: adding tempo track: %w", err)
	}

	byTrack := merge.DeltaEncodePerTrack(sorted)
	for _, name := range trackOrder {
		deltas := byTrack[name]
		if len(deltas) == 0 {
			continue
		}
		var tr smf.Track
		tr.Add(0, smf.MetaTrackSequenceName(string(name)))
		for _, d := range deltas {
			delta := uint32(d.Delta)
			switch d.Event.Type {
			case event.NoteOn:
				tr.Add(delta, midi.NoteOn(d.Event.Channel, d.Event.Pitch, d.Event.Velocity))
			case event.NoteOff:
				tr.Add(delta, midi.NoteOff(d.Event.Channel, d.Event.Pitch))
			}
		}
		tr.Close(0)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("midiwriter: adding %s track: %w", name, err)
		}
	}

	if err := s.WriteFile(path); err != nil {
		return fmt.Errorf("midiwriter: writing %s: %w", path, err)
	}
	return nil
}
