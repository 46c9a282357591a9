// Package drum implements the drum engine (spec §4.1-§4.4, §4.6): per-bar
// Euclidean step cores, the condition stack, micro-timing, choke groups,
// the density clamp, the accent pass, and the feedback-controller variant
// that drives non-immutable layers from the controller's probability
// vectors instead of a fixed fills count.
package drum

import (
	"sort"

	"groove-engine/config"
	"groove-engine/controller"
	"groove-engine/density"
	"groove-engine/diagnostics"
	"groove-engine/euclid"
	"groove-engine/event"
	"groove-engine/internal/debug"
	"groove-engine/metrics"
	"groove-engine/micro"
	"groove-engine/rng"
	"groove-engine/timebase"
)

// Engine generates the drum track for a whole run, bar by bar, threading
// the feedback controller's state forward exactly once per bar.
type Engine struct {
	cfg      *config.Config
	tb       timebase.Timebase
	kit      Kit
	seed     uint64
	diag     *diagnostics.Log
	ctrl     *controller.Controller
	governed map[string]bool
	layerOrd []string
}

// NewEngine builds a drum Engine for cfg, logging recoverable issues into
// diag. kitName selects the note mapping (falls back to GM).
func NewEngine(cfg *config.Config, kitName string, diag *diagnostics.Log) *Engine {
	e := &Engine{
		cfg:  cfg,
		tb:   timebase.Timebase{BPM: cfg.BPM, PPQ: cfg.PPQ, Bars: cfg.Bars},
		kit:  GetKit(kitName),
		seed: cfg.Seed,
		diag: diag,
	}
	for name := range cfg.Layers {
		e.layerOrd = append(e.layerOrd, name)
	}
	sort.Strings(e.layerOrd)

	e.governed = make(map[string]bool)
	baseline := make(map[string][]bool, len(e.layerOrd))
	var governedNames []string
	for _, name := range e.layerOrd {
		if name == "kick" && cfg.Guard.KickImmutable {
			continue
		}
		e.governed[name] = true
		governedNames = append(governedNames, name)
		baseline[name] = e.structuralMask(name, 0, nil)
	}
	e.ctrl = controller.New(cfg, baseline, governedNames)
	return e
}

// history answers euclid's PRE/NOT_PRE condition lookups against the prior
// bar's structural (pre-controller) mask.
type history struct {
	prior map[string][]bool
}

func (h *history) PriorOnset(layer string, step int) bool {
	m := h.prior[layer]
	if step < 0 || step >= len(m) {
		return false
	}
	return m[step]
}

// structuralMask computes the plain Euclidean step core for one layer/bar:
// Bjorklund, rotation, then the condition stack. It never consults the
// controller, so it is also what seeds the controller's probability
// vectors and what the kick layer (when immutable) always uses.
func (e *Engine) structuralMask(name string, bar int, hist euclid.History) euclid.Mask {
	return e.structuralMaskWithMods(name, bar, hist, nil)
}

// structuralMaskWithMods is structuralMask with access to this bar's
// modulator values, so the kick.rotation_rate_per_bar param path (spec
// §8's recognised param_path list) can override the layer's configured
// rotation_rate_per_bar live.
func (e *Engine) structuralMaskWithMods(name string, bar int, hist euclid.History, modValues map[string]float64) euclid.Mask {
	lc := e.cfg.Layers[name]
	base := euclid.Bjorklund(lc.Steps, lc.Fills)
	rotRate := lc.RotationRatePerBar
	if name == "kick" {
		if v, ok := modValues["kick.rotation_rate_per_bar"]; ok {
			rotRate = v
		}
	}
	rot := lc.Rot
	if rotRate != 0 {
		rot = euclid.RotationOffset(rotRate, bar, float64(lc.Rot), e.cfg.Guard.MaxRotRate)
	}
	mask := euclid.Rotate(base, rot)
	if len(lc.Conditions) > 0 {
		st := rng.Derive(e.seed, "drum", name, bar, "cond")
		mask = euclid.ApplyConditions(mask, bar, lc.Conditions, st, hist, 4)
	}
	return mask
}

// Generate runs every bar in order and returns the merged (but not yet
// cross-track merged) drum event stream.
func (e *Engine) Generate() []event.Event {
	var events []event.Event
	prior := &history{prior: map[string][]bool{}}
	var prevMetrics controller.BarMetrics

	for bar := 0; bar < e.cfg.Bars; bar++ {
		debug.LogEvery(8, "drum", "bar %d/%d", bar, e.cfg.Bars)
		_, modValues := e.ctrl.Step(bar, prevMetrics, rng.Derive(e.seed, "drum", "controller", bar))
		rescued := e.ctrl.RescuedOnBar(bar)
		kickSteps := e.kickSteps(bar, modValues)

		layerMasks := make(map[string][]bool, len(e.layerOrd))
		layerVel := make(map[string][]uint8, len(e.layerOrd))
		layerOffsets := make(map[string][]int64, len(e.layerOrd))

		for _, name := range e.layerOrd {
			structural := e.structuralMaskWithMods(name, bar, prior, modValues)

			var mask []bool
			if e.governed[name] && bar > 0 {
				mask = e.sampleGoverned(name, bar)
			} else {
				mask = append([]bool(nil), structural...)
			}

			if e.governed[name] && isHatLayer(name) {
				if bias, ok := modValues["thin_bias"]; ok {
					st := rng.Derive(e.seed, "drum", name, bar, "thin")
					mask = thinNearKick(mask, kickSteps, bias, st)
				}
			}

			if e.governed[name] && isHatLayer(name) && e.cfg.Targets.HatDensityTarget > 0 {
				target := int(e.cfg.Targets.HatDensityTarget*float64(len(mask)) + 0.5)
				tol := int(e.cfg.Targets.HatDensityTol*float64(len(mask)) + 0.5)
				st := rng.Derive(e.seed, "drum", name, bar, "density")
				mask = density.ClampToTarget(mask, target, tol, kickSteps, st)
			}

			layerMasks[name] = mask
			prior.prior[name] = structural
		}

		// Choke groups: a layer with ChokeWithNote set removes the named
		// layer's onsets wherever it has an onset itself.
		for _, name := range e.layerOrd {
			lc := e.cfg.Layers[name]
			if lc.ChokeWithNote == "" {
				continue
			}
			target, ok := layerMasks[lc.ChokeWithNote]
			if !ok {
				continue
			}
			layerMasks[lc.ChokeWithNote] = micro.ChokeMask(target, layerMasks[name])
		}

		for _, name := range e.layerOrd {
			lc := e.cfg.Layers[name]
			mask := layerMasks[name]

			accentProb := lc.AccentProb
			if v, ok := modValues["accent.prob"]; ok {
				accentProb = v
			}
			st := rng.Derive(e.seed, "drum", name, bar, "accent")
			vel := density.AccentPass(mask, lc.Velocity, accentProb, density.AccentMode(lc.AccentMode), st)
			layerVel[name] = vel

			swing := lc.SwingPercent
			if rescued || swing == 0 {
				swing = 0.5
			}
			if v, ok := modValues[name+".swing_percent"]; ok && !rescued {
				swing = v
			}
			ratchetProb := lc.RatchetProb
			if v, ok := modValues[name+".ratchet_prob"]; ok {
				ratchetProb = v
			}

			offsets := make([]int64, len(mask))
			microSt := rng.Derive(e.seed, "drum", name, bar, "micro")
			capTicks := timebase.TicksFromMs(lc.MicroMs, e.cfg.BPM, e.cfg.PPQ)
			for step, onset := range mask {
				if !onset {
					continue
				}
				off := micro.Offset(microSt, step, swing, e.tb.StepTicks(), lc.BeatBinsMs, lc.BeatBinsProbs, lc.BeatBinCapMs, capTicks, e.cfg.BPM, e.cfg.PPQ)
				offsets[step] = off
			}
			layerOffsets[name] = offsets

			note := e.kit.NoteFor(name, lc.Note)
			dur := e.tb.StepTicks() / 2
			if dur < 1 {
				dur = 1
			}
			for step, onset := range mask {
				if !onset {
					continue
				}
				velocity := vel[step]
				if velocity == 0 {
					velocity = lc.Velocity
				}
				start := e.tb.TickAt(bar, step) + offsets[step]
				if start < 0 {
					start = 0
				}
				on, off := event.NoteOnOff(event.TrackDrums, 9, note, velocity, start, dur)
				events = append(events, on, off)

				ratchetSt := rng.Derive(e.seed, "drum", name, bar, step, "ratchet")
				if lc.RatchetRepeat > 1 && ratchetSt.Bernoulli(ratchetProb) {
					sub := e.tb.StepTicks() / int64(lc.RatchetRepeat)
					for r := 1; r < lc.RatchetRepeat; r++ {
						rs := start + int64(r)*sub
						ron, roff := event.NoteOnOff(event.TrackDrums, 9, note, velocity, rs, dur)
						events = append(events, ron, roff)
					}
				}
			}
		}

		allMasks := make([][]bool, 0, len(layerMasks))
		for _, name := range e.layerOrd {
			allMasks = append(allMasks, layerMasks[name])
		}
		union := metrics.Union(allMasks...)
		var allOffsets []int64
		for _, name := range e.layerOrd {
			for _, o := range layerOffsets[name] {
				if o != 0 {
					allOffsets = append(allOffsets, o)
				}
			}
		}
		hat := layerMasks[primaryHatLayer(e.layerOrd)]
		prevMetrics = controller.Measure(bar, union, hat, allOffsets)
	}

	return events
}

// sampleGoverned draws a fresh bar's onset mask from the controller's
// current probability vector for name, using a bar/layer-scoped RNG state.
func (e *Engine) sampleGoverned(name string, bar int) []bool {
	p := e.ctrl.Probabilities(name)
	st := rng.Derive(e.seed, "drum", name, bar, "sample")
	mask := make([]bool, 16)
	for i := 0; i < 16; i++ {
		mask[i] = st.Bernoulli(p[i])
	}
	return mask
}

// kickSteps returns the onset steps of the kick layer's structural mask for
// bar, used by the density clamp's void-bias weighting. Layers without a
// "kick" entry get an empty slice (every step has zero weight).
func (e *Engine) kickSteps(bar int, modValues map[string]float64) []int {
	if _, ok := e.cfg.Layers["kick"]; !ok {
		return nil
	}
	mask := e.structuralMaskWithMods("kick", bar, nil, modValues)
	var steps []int
	for i, v := range mask {
		if v {
			steps = append(steps, i)
		}
	}
	return steps
}

// thinNearKick probabilistically drops hat onsets within one step of a
// kick onset, biased by bias (negative bias thins; since keep
// probabilities are capped at 1 and only existing onsets are kept, a
// bias of 0 or more leaves the mask unchanged),
// ported from original_source/conditions.py's thin_probs_near_kick.
func thinNearKick(mask []bool, kickSteps []int, bias float64, st *rng.State) []bool {
	n := len(mask)
	if n == 0 {
		return mask
	}
	probs := make([]float64, n)
	for i := range probs {
		probs[i] = 1.0
	}
	for _, k := range kickSteps {
		for d := -1; d <= 1; d++ {
			idx := ((k+d)%n + n) % n
			p := probs[idx] + bias
			if p < 0 {
				p = 0
			}
			if p > 1 {
				p = 1
			}
			probs[idx] = p
		}
	}
	out := make([]bool, n)
	for i, onset := range mask {
		if !onset {
			continue
		}
		out[i] = st.Bernoulli(probs[i])
	}
	return out
}

func isHatLayer(name string) bool {
	return name == "hat_c" || name == "hat_o" || name == "hat"
}

func primaryHatLayer(names []string) string {
	for _, n := range names {
		if isHatLayer(n) {
			return n
		}
	}
	return ""
}
