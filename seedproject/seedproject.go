// Package seedproject persists one generation run to disk as a seed
// folder: the config that produced it, run metadata, and a per-track
// Standard MIDI File. It is adapted from the teacher's
// sequencer/project.go (ProjectDir/SaveProject/ListProjects), generalised
// from a live TUI's project/save hierarchy to a one-shot seed export
// (spec §4.15). It only writes — listing and loading back a previously
// saved seed directory is out of scope (SPEC_FULL.md §1).
package seedproject

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"groove-engine/config"
	"groove-engine/diagnostics"
	"groove-engine/event"
	"groove-engine/midiwriter"
	"groove-engine/pipeline"
)

// Metadata is written alongside config.json so a seed folder is
// self-describing without re-running generation.
type Metadata struct {
	SeedID      string               `json:"seedId"`
	Seed        uint64               `json:"seed"`
	Mode        config.Mode          `json:"mode"`
	Bars        int                  `json:"bars"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Diagnostics []diagnostics.Entry  `json:"diagnostics,omitempty"`
}

// SeedsDir returns the root directory every seed folder lives under.
func SeedsDir(baseDir string) string {
	return filepath.Join(baseDir, "seeds")
}

// SeedDir returns the path to a specific seed's folder.
func SeedDir(baseDir, seedID string) string {
	return filepath.Join(SeedsDir(baseDir), seedID)
}

// Save writes config.json, metadata.json, and a drums/bass/leads MIDI file
// per track present in res.Events, under baseDir/seeds/<seedID>/.
func Save(baseDir, seedID string, res *pipeline.Result) error {
	dir := SeedDir(baseDir, seedID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("seedproject: creating %s: %w", dir, err)
	}

	if err := writeJSON(filepath.Join(dir, "config.json"), res.Config); err != nil {
		return err
	}

	meta := Metadata{
		SeedID: seedID, Seed: res.Config.Seed, Mode: res.Config.Mode, Bars: res.Config.Bars,
		GeneratedAt: time.Now(), Diagnostics: res.Diag.Entries,
	}
	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return err
	}

	byTrack := splitByTrack(res.Events)
	for track, events := range byTrack {
		subdir := filepath.Join(dir, trackDirName(track))
		if err := os.MkdirAll(subdir, 0755); err != nil {
			return fmt.Errorf("seedproject: creating %s: %w", subdir, err)
		}
		path := filepath.Join(subdir, "main.mid")
		if err := midiwriter.Write(path, events, res.Timebase); err != nil {
			return err
		}
	}

	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("seedproject: marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("seedproject: writing %s: %w", path, err)
	}
	return nil
}

func trackDirName(t event.Track) string {
	switch t {
	case event.TrackDrums:
		return "drums"
	case event.TrackBass:
		return "bass"
	case event.TrackLead:
		return "leads"
	default:
		return string(t)
	}
}

func splitByTrack(events []event.Event) map[event.Track][]event.Event {
	out := make(map[event.Track][]event.Event)
	for _, e := range events {
		out[e.Track] = append(out[e.Track], e)
	}
	return out
}
