package drum

import (
	"testing"

	"groove-engine/config"
	"groove-engine/diagnostics"
	"groove-engine/event"
)

func metronomeConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bars = 4
	return cfg
}

func TestKickOnlyEngineProducesFourEvenlySpacedOnsetsPerBar(t *testing.T) {
	cfg := metronomeConfig()
	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	events := e.Generate()

	var onsets []event.Event
	for _, ev := range events {
		if ev.Type == event.NoteOn {
			onsets = append(onsets, ev)
		}
	}
	if len(onsets) != 4*4 {
		t.Fatalf("expected 16 kick onsets across 4 bars, got %d", len(onsets))
	}
	barTicks := e.tb.BarTicks()
	stepTicks := e.tb.StepTicks()
	// Bjorklund(16, 4)'s true onset steps, not the naive evenly-spaced
	// 0,4,8,12 phase.
	for bar := 0; bar < 4; bar++ {
		for i, step := range []int{3, 7, 11, 15} {
			want := int64(bar)*barTicks + int64(step)*stepTicks
			got := onsets[bar*4+i].Tick
			if got != want {
				t.Fatalf("bar %d onset %d: want tick %d got %d", bar, i, want, got)
			}
		}
	}
}

func TestKickLayerIsImmutableAcrossBarsWhenGuarded(t *testing.T) {
	cfg := metronomeConfig()
	cfg.Guard.KickImmutable = true
	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	if e.governed["kick"] {
		t.Fatalf("kick must not be a governed (controller-driven) layer when kick_immutable is set")
	}
}

func TestChokeGroupRemovesCollidingOnset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bars = 1
	cfg.Layers["hat_o"] = config.LayerConfig{Steps: 16, Fills: 16, Note: 46, Velocity: 90}
	hatC := cfg.Layers["kick"]
	hatC.ChokeWithNote = "hat_o" // kick chokes hat_o wherever kick fires
	cfg.Layers["kick"] = hatC

	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	events := e.Generate()

	kickSteps := map[int64]bool{}
	for _, ev := range events {
		if ev.Type == event.NoteOn && ev.Pitch == 36 {
			kickSteps[ev.Tick] = true
		}
	}
	for _, ev := range events {
		if ev.Type == event.NoteOn && ev.Pitch == 46 && kickSteps[ev.Tick] {
			t.Fatalf("hat_o onset at tick %d should have been choked by a simultaneous kick", ev.Tick)
		}
	}
}

func TestEventsPairEveryNoteOnWithANoteOff(t *testing.T) {
	cfg := metronomeConfig()
	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	events := e.Generate()
	on, off := 0, 0
	for _, ev := range events {
		if ev.Type == event.NoteOn {
			on++
		} else {
			off++
		}
	}
	if on != off {
		t.Fatalf("expected equal note-on/note-off counts, got %d on %d off", on, off)
	}
}

func TestThinBiasModulatorReducesHatOnsetsNearKick(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bars = 4
	cfg.Targets.HatDensityTarget = 0 // isolate thinning from the density clamp
	cfg.Layers["hat_c"] = config.LayerConfig{Steps: 16, Fills: 16, Velocity: 80}
	cfg.Modulators = []config.ModulatorConfig{
		{ParamPath: "thin_bias", Mode: config.ModulatorSine, MinVal: -1, MaxVal: -1},
	}
	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	if !e.governed["hat_c"] {
		t.Fatalf("expected hat_c to be a governed layer")
	}
	kickSteps := e.kickSteps(1, nil)
	nearKick := map[int]bool{}
	for _, k := range kickSteps {
		for d := -1; d <= 1; d++ {
			nearKick[((k+d)%16+16)%16] = true
		}
	}
	events := e.Generate()

	barTicks := e.tb.BarTicks()
	stepTicks := e.tb.StepTicks()
	for _, ev := range events {
		if ev.Type != event.NoteOn || ev.Pitch != 42 {
			continue
		}
		step := int((ev.Tick % barTicks) / stepTicks)
		if nearKick[step] {
			t.Fatalf("expected thin_bias=-1 to clear hat onset at step %d (within one step of a kick), got an event at tick %d", step, ev.Tick)
		}
	}
}

func TestKickRotationRateModulatorOverridesConfiguredRotation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bars = 2
	kc := cfg.Layers["kick"]
	kc.RotationRatePerBar = 0
	cfg.Layers["kick"] = kc
	cfg.Guard.MaxRotRate = 0
	cfg.Modulators = []config.ModulatorConfig{
		{ParamPath: "kick.rotation_rate_per_bar", Mode: config.ModulatorSine, MinVal: 2, MaxVal: 2},
	}
	e := NewEngine(cfg, "gm", &diagnostics.Log{})
	bar0 := e.kickSteps(0, map[string]float64{"kick.rotation_rate_per_bar": 2})
	bar1 := e.kickSteps(1, map[string]float64{"kick.rotation_rate_per_bar": 2})
	if equalIntSlices(bar0, bar1) {
		t.Fatalf("expected modulated rotation rate to shift the kick mask between bars, got identical masks %v", bar0)
	}
}

func equalIntSlices(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGenerateIsDeterministicAcrossRuns(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bars = 6
	cfg.Layers["hat_c"] = config.LayerConfig{Steps: 16, Fills: 8, Velocity: 80, AccentProb: 0.2}
	cfg.Targets.HatDensityTarget = 0.5
	cfg.Targets.HatDensityTol = 0.1

	e1 := NewEngine(cfg, "gm", &diagnostics.Log{})
	e2 := NewEngine(cfg, "gm", &diagnostics.Log{})
	out1 := e1.Generate()
	out2 := e2.Generate()
	if len(out1) != len(out2) {
		t.Fatalf("expected deterministic event count, got %d vs %d", len(out1), len(out2))
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("event %d differs between runs: %+v vs %+v", i, out1[i], out2[i])
		}
	}
}
