package controller

import (
	"strings"
	"testing"

	"groove-engine/config"
	"groove-engine/rng"
)

func baseCfg() *config.Config {
	c := config.DefaultConfig()
	c.Guard = config.Guard{MinE: 0.6, MaxRotRate: 0.3, MaxDeltaPerBar: 0.2, KickImmutable: true}
	c.Targets = config.Targets{SLow: 0.2, SHigh: 0.6}
	return c
}

func TestNewSeedsProbabilitiesFromBaseline(t *testing.T) {
	baseline := map[string][]bool{"hat": {true, false, false, false, true, false, false, false}}
	c := New(baseCfg(), baseline, []string{"hat"})
	p := c.Probabilities("hat")
	if p[0] < 0.9 {
		t.Fatalf("expected onset step seeded high, got %f", p[0])
	}
	if p[1] > 0.1 {
		t.Fatalf("expected silent step seeded low, got %f", p[1])
	}
}

func TestStepGuardTriggersRescueOnLowEntrainment(t *testing.T) {
	c := New(baseCfg(), map[string][]bool{"hat": make([]bool, 16)}, []string{"hat"})
	st := rng.Derive(1, "test")
	before := c.Probabilities("hat")[1]
	c.Step(1, BarMetrics{E: 0.1, S: 0.3}, st)
	if !c.RescuedOnBar(1) {
		t.Fatalf("expected rescue on bar 1 with E below guard.minE")
	}
	after := c.Probabilities("hat")[1]
	if after > before {
		t.Fatalf("expected rescue to reduce offbeat probability, got %f -> %f", before, after)
	}
}

func TestStepNoRescueWhenEntrainmentHealthy(t *testing.T) {
	c := New(baseCfg(), map[string][]bool{"hat": make([]bool, 16)}, []string{"hat"})
	st := rng.Derive(1, "test")
	c.Step(1, BarMetrics{E: 0.9, S: 0.3}, st)
	if c.RescuedOnBar(1) {
		t.Fatalf("did not expect rescue when E is healthy")
	}
}

func TestStepBiasMovesTowardStrongStepsWhenSyncopationLow(t *testing.T) {
	c := New(baseCfg(), map[string][]bool{"hat": make([]bool, 16)}, []string{"hat"})
	st := rng.Derive(1, "test")
	c.Step(1, BarMetrics{E: 0.9, S: 0.05}, st)
	p := c.Probabilities("hat")
	if p[0] <= p[1] {
		t.Fatalf("expected strong step 0 probability to rise above weak step 1 when S below target, got p0=%f p1=%f", p[0], p[1])
	}
}

func TestBiasStepIsBoundedByMaxDeltaPerBarNotMaxRotRate(t *testing.T) {
	cfg := baseCfg()
	cfg.Guard.MaxRotRate = 10 // deliberately huge: must not affect BIAS step size
	cfg.Guard.MaxDeltaPerBar = 0.01
	c := New(cfg, map[string][]bool{"hat": make([]bool, 16)}, []string{"hat"})
	st := rng.Derive(1, "test")
	before := c.Probabilities("hat")[0]
	c.Step(1, BarMetrics{E: 0.9, S: 0.05}, st)
	after := c.Probabilities("hat")[0]
	if d := after - before; d > cfg.Guard.MaxDeltaPerBar+1e-9 {
		t.Fatalf("BIAS step exceeded guard.MaxDeltaPerBar: moved %f, bound %f", d, cfg.Guard.MaxDeltaPerBar)
	}
}

func TestModulatorRandomWalkStaysWithinBounds(t *testing.T) {
	cfg := baseCfg()
	cfg.Modulators = []config.ModulatorConfig{
		{ParamPath: "thin_bias", Mode: config.ModulatorRandomWalk, MinVal: 0, MaxVal: 1, StepPerBar: 0.05, MaxDeltaPerBar: 0.1},
	}
	c := New(cfg, map[string][]bool{}, nil)
	st := rng.Derive(42, "test")
	for bar := 0; bar < 20; bar++ {
		_, mv := c.Step(bar, BarMetrics{E: 0.9}, st)
		v := mv["thin_bias"]
		if v < 0 || v > 1 {
			t.Fatalf("modulator escaped bounds: %f", v)
		}
	}
}

func TestModulatorSineIsBounded(t *testing.T) {
	cfg := baseCfg()
	cfg.Modulators = []config.ModulatorConfig{
		{ParamPath: "accent.prob", Mode: config.ModulatorSine, MinVal: 0.2, MaxVal: 0.8},
	}
	c := New(cfg, map[string][]bool{}, nil)
	st := rng.Derive(7, "test")
	for bar := 0; bar < 50; bar++ {
		_, mv := c.Step(bar, BarMetrics{E: 0.9}, st)
		v := mv["accent.prob"]
		if v < 0.2 || v > 0.8 {
			t.Fatalf("sine modulator escaped bounds at bar %d: %f", bar, v)
		}
	}
}

func TestMeasureComputesEntropyOnlyForMixedMask(t *testing.T) {
	silent := make([]bool, 16)
	m := Measure(0, silent, silent, nil)
	if m.Entropy != 0 {
		t.Fatalf("expected zero entropy for silent bar, got %f", m.Entropy)
	}
	full := make([]bool, 16)
	for i := range full {
		full[i] = true
	}
	m2 := Measure(0, full, full, nil)
	if m2.Entropy != 0 {
		t.Fatalf("expected zero entropy for fully dense bar, got %f", m2.Entropy)
	}
	mixed := make([]bool, 16)
	mixed[0], mixed[4] = true, true
	m3 := Measure(0, mixed, mixed, nil)
	if m3.Entropy <= 0 {
		t.Fatalf("expected positive entropy for a partially onset bar, got %f", m3.Entropy)
	}
}

func TestCSVWriterEmitsHeaderAndRows(t *testing.T) {
	c := New(baseCfg(), map[string][]bool{"hat": make([]bool, 16)}, []string{"hat"})
	var buf strings.Builder
	c.SetCSVWriter(&buf)
	st := rng.Derive(1, "test")
	c.Step(0, BarMetrics{}, st)
	out := buf.String()
	if !strings.HasPrefix(out, "bar,E,S,H_density,entropy\n") {
		t.Fatalf("expected CSV header first, got %q", out)
	}
	if strings.Count(out, "\n") < 2 {
		t.Fatalf("expected at least one data row, got %q", out)
	}
}
