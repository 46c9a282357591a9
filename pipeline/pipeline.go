// Package pipeline wires the whole generative chain together: validate
// config, run the drum engine, analyze its output into a slot grid, run
// bass and lead on top of that grid, merge every engine's events into one
// sorted stream, and clip it to the configured bar count (spec §2's
// end-to-end diagram, spec §6's output contract).
package pipeline

import (
	"groove-engine/analyzer"
	"groove-engine/bass"
	"groove-engine/config"
	"groove-engine/diagnostics"
	"groove-engine/drum"
	"groove-engine/event"
	"groove-engine/groove_errors"
	"groove-engine/internal/debug"
	"groove-engine/lead"
	"groove-engine/merge"
	"groove-engine/timebase"
)

// barsPerFillGroup is the drum analyzer's fill-zone window (spec §4.7):
// the last two steps of the last bar in every run of this many bars.
const barsPerFillGroup = 4

// Result is everything a caller needs after one full run.
type Result struct {
	Config    *config.Config
	Timebase  timebase.Timebase
	Events    []event.Event
	BassNotes []bass.Note
	LeadNotes []lead.LeadNote
	Grids     []analyzer.SlotGrid
	Diag      *diagnostics.Log
}

// Run validates cfg and executes drums, then bass and lead as cfg.Mode
// permits, returning the merged, clipped, sorted event stream.
func Run(cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, groove_errors.Wrap(err, "pipeline: invalid configuration")
	}

	tb := timebase.Timebase{BPM: cfg.BPM, PPQ: cfg.PPQ, Bars: cfg.Bars}
	diag := &diagnostics.Log{}

	debug.Log("drum", "generating %d bars at %d bpm, ppq %d", cfg.Bars, cfg.BPM, cfg.PPQ)
	drumEngine := drum.NewEngine(cfg, cfg.KitName, diag)
	drumEvents := drumEngine.Generate()
	debug.Log("drum", "produced %d raw events", len(drumEvents))

	all := make([]event.Event, len(drumEvents))
	copy(all, drumEvents)

	var bassNotes []bass.Note
	var leadNotes []lead.LeadNote
	grids := analyzer.Analyze(drumEvents, tb, barsPerFillGroup)

	if cfg.Mode == config.ModeDrumsBass || cfg.Mode == config.ModeFull {
		bassEngine := bass.NewEngine(cfg.Bass, cfg.Weights, cfg.Tags, cfg.Seed, diag)
		bassNotes = bassEngine.Generate(grids)
		debug.Log("bass", "produced %d notes", len(bassNotes))
		all = append(all, bassNotesToEvents(bassNotes, tb)...)
	}

	if cfg.Mode == config.ModeFull {
		leadEngine := lead.NewEngine(*cfg.Lead, cfg.Weights, cfg.Seed, tb, diag)
		leadNotes = leadEngine.Generate(grids, bassNotes, cfg.Tags)
		debug.Log("lead", "produced %d notes", len(leadNotes))
		all = append(all, leadNotesToEvents(leadNotes)...)
	}

	sorted := merge.Merge(all)
	sorted = merge.ClipToRange(sorted, tb.BarTicks()*int64(tb.Bars))
	debug.Log("merge", "final stream has %d events", len(sorted))

	return &Result{
		Config: cfg, Timebase: tb, Events: sorted,
		BassNotes: bassNotes, LeadNotes: leadNotes, Grids: grids, Diag: diag,
	}, nil
}

func bassNotesToEvents(notes []bass.Note, tb timebase.Timebase) []event.Event {
	stepTicks := tb.StepTicks()
	var out []event.Event
	for _, n := range notes {
		start := tb.TickAt(n.Bar, n.Step)
		duration := int64(n.DurationSteps) * stepTicks
		on, off := event.NoteOnOff(event.TrackBass, 1, n.Pitch, n.Velocity, start, duration)
		out = append(out, on, off)
	}
	return out
}

func leadNotesToEvents(notes []lead.LeadNote) []event.Event {
	var out []event.Event
	for _, n := range notes {
		on, off := event.NoteOnOff(event.TrackLead, 2, n.Pitch, n.Velocity, n.StartTick, n.DurationTicks)
		out = append(out, on, off)
	}
	return out
}
