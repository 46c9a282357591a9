// Command groove-gen runs the generative pipeline once against a
// hardcoded sample configuration and saves the result as a seed project.
// Mirrors the teacher's cmd/miditest: no flag parsing, just a small set
// of switchable demo actions.
package main

import (
	"fmt"
	"os"

	"groove-engine/config"
	"groove-engine/internal/debug"
	"groove-engine/pipeline"
	"groove-engine/seedproject"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "gen":
		generate()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("groove-gen")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  gen   - generate a sample warehouse-techno pattern and save it as a seed")
}

func sampleConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeFull
	cfg.Bars = 16
	cfg.Tags = []string{"warehouse", "key_9_aeolian"}

	cfg.Layers["kick"] = config.LayerConfig{Steps: 16, Fills: 4, Note: 36, Velocity: 112, SwingPercent: 0.5}
	cfg.Layers["hat_c"] = config.LayerConfig{
		Steps: 16, Fills: 10, Note: 42, Velocity: 85, SwingPercent: 0.56,
		AccentProb: 0.3, AccentMode: "offbeat_focused",
	}
	cfg.Layers["hat_o"] = config.LayerConfig{Steps: 16, Fills: 3, Note: 46, Velocity: 95, SwingPercent: 0.5}
	cfg.Layers["clap"] = config.LayerConfig{
		Steps: 16, Fills: 2, Note: 39, Velocity: 100, SwingPercent: 0.5,
		Conditions: []config.Condition{{Kind: config.CondPre, Layer: "kick"}},
	}
	cfg.Layers["hat_c"] = withChoke(cfg.Layers["hat_c"], "hat_o")

	cfg.Bass = &config.BassConfig{
		RootNote: 33, FixedMode: "pocket_groove", RegisterLo: 28, RegisterHi: 52, GravityCenter: 33,
	}
	cfg.Lead = &config.LeadConfig{
		RootPC: 9, ScaleType: "aeolian", DefaultRootOctave: 4,
		MinPhraseBars: 4, MaxPhraseBars: 4, CallResponsePattern: "CR",
		RegisterLo: 57, RegisterHi: 81, GravityCenter: 69,
		MaxStepJitter: 1, MinInterNoteGapSteps: 1, MinSemitoneDistance: 3,
		AvoidRootOnBassHits: true, BassInteraction: true,
	}

	return cfg
}

func withChoke(lc config.LayerConfig, target string) config.LayerConfig {
	lc.ChokeWithNote = target
	return lc
}

func generate() {
	if err := debug.Enable("groove-gen.log"); err != nil {
		fmt.Printf("warning: debug logging disabled: %v\n", err)
	}
	defer debug.Disable()

	cfg := sampleConfig()
	res, err := pipeline.Run(cfg)
	if err != nil {
		fmt.Printf("generation failed: %v\n", err)
		os.Exit(1)
	}

	seedID := fmt.Sprintf("seed-%d", cfg.Seed)
	if err := seedproject.Save(".", seedID, res); err != nil {
		fmt.Printf("save failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("generated %d events across %d bars (seed %d)\n", len(res.Events), cfg.Bars, cfg.Seed)
	if res.Diag.HasAny() {
		fmt.Printf("  %d diagnostics recorded (constraint relaxations, dropped events)\n", len(res.Diag.Entries))
	}
	fmt.Printf("saved to ./seeds/%s\n", seedID)
}
