// Package controller implements the feedback variant of the drum engine
// (spec §4.6): a closed-loop controller that drives per-layer, per-step
// probability vectors toward configured entrainment/syncopation targets,
// applies long-horizon parameter modulators, and enforces a rescue
// guardrail. It never touches the kick layer when guard.kick_immutable is
// set — that layer is always generated by the plain Euclidean step core.
package controller

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"groove-engine/config"
	"groove-engine/metrics"
	"groove-engine/rng"
)

// BarMetrics is the set of measurements fed back into the controller
// after each bar (spec §4.5).
type BarMetrics struct {
	Bar       int
	E         float64
	S         float64
	H         float64
	T         float64
	Entropy   float64
}

// ModulatorState tracks one configured modulator's current value and, for
// "ou"/"sine", its phase/relaxation bookkeeping.
type ModulatorState struct {
	Cfg   config.ModulatorConfig
	Value float64
	bar   int
}

// Controller owns the per-layer probability vectors and modulator state
// across the whole run. It is not safe for concurrent use — the pipeline
// calls Step once per bar, strictly in order, matching spec §5.
type Controller struct {
	guard       config.Guard
	targets     config.Targets
	probs       map[string][16]float64
	modulators  []*ModulatorState
	governed    map[string]bool
	rescueBar   int // bar index of the most recent rescue, or -1
	csvWriter   *csv.Writer
}

// New builds a Controller seeded from each governed layer's Euclidean
// baseline mask for bar 0: onset steps start at probability 0.92, silent
// steps at 0.06, so the first controller-influenced bar (bar 1) starts
// close to the structural pattern and then drifts under feedback.
func New(cfg *config.Config, baselineMasks map[string][]bool, governedLayers []string) *Controller {
	c := &Controller{
		guard:    cfg.Guard,
		targets:  cfg.Targets,
		probs:    make(map[string][16]float64),
		governed: make(map[string]bool),
		rescueBar: -1,
	}
	for _, name := range governedLayers {
		c.governed[name] = true
		var p [16]float64
		mask := baselineMasks[name]
		for i := 0; i < 16; i++ {
			if i < len(mask) && mask[i] {
				p[i] = 0.92
			} else {
				p[i] = 0.06
			}
		}
		c.probs[name] = p
	}
	for _, m := range cfg.Modulators {
		c.modulators = append(c.modulators, &ModulatorState{Cfg: m, Value: midpoint(m.MinVal, m.MaxVal)})
	}
	return c
}

// SetCSVWriter enables best-effort per-bar CSV logging of
// (bar,E,S,H_density,entropy). Failures to write are swallowed, per
// spec §7/§4.6 point 5 ("CSV logging is best-effort").
func (c *Controller) SetCSVWriter(w io.Writer) {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"bar", "E", "S", "H_density", "entropy"})
	c.csvWriter = cw
}

// Probabilities returns the current (post-update) probability vector for a
// governed layer.
func (c *Controller) Probabilities(layer string) [16]float64 {
	return c.probs[layer]
}

// RescuedOnBar reports whether the most recent Step call triggered rescue.
func (c *Controller) RescuedOnBar(bar int) bool {
	return c.rescueBar == bar
}

// Step runs MEASURE -> BIAS -> MODULATE -> GUARD for the bar about to be
// generated, using the previous bar's measured metrics (the zero value for
// bar 0, which has no predecessor). It mutates and returns the probability
// vectors for every governed layer, plus the current modulator values
// keyed by param_path.
func (c *Controller) Step(bar int, prev BarMetrics, st *rng.State) (probs map[string][16]float64, modValues map[string]float64) {
	// MEASURE happens before Step is called (the pipeline computes prev
	// from the bar that was just emitted); here we react to it.

	// BIAS: sync-biased Markov update per governed layer.
	for name := range c.governed {
		p := c.probs[name]
		for i := 0; i < 16; i++ {
			if prev.S < c.targets.SLow {
				p[i] = clamp01(boundedStep(p[i], 0.5*(p[i]+weightStrong(i)), c.guard.MaxDeltaPerBar))
			} else if prev.S > c.targets.SHigh {
				p[i] = clamp01(boundedStep(p[i], 0.5*(p[i]+weightOffbeat(i)), c.guard.MaxDeltaPerBar))
			}
		}
		c.probs[name] = p
	}

	// MODULATE: advance every configured long-horizon modulator.
	modValues = make(map[string]float64, len(c.modulators))
	for _, m := range c.modulators {
		m.advance(bar, st)
		modValues[m.Cfg.ParamPath] = m.Value
	}

	// GUARD: rescue if entrainment has collapsed.
	c.rescueBar = -1
	if bar > 0 && prev.E < c.guard.MinE {
		c.rescue()
		c.rescueBar = bar
	}

	if c.csvWriter != nil {
		_ = c.csvWriter.Write([]string{
			strconv.Itoa(bar),
			strconv.FormatFloat(prev.E, 'f', 4, 64),
			strconv.FormatFloat(prev.S, 'f', 4, 64),
			strconv.FormatFloat(prev.H, 'f', 4, 64),
			strconv.FormatFloat(prev.Entropy, 'f', 4, 64),
		})
		c.csvWriter.Flush()
	}

	out := make(map[string][16]float64, len(c.probs))
	for k, v := range c.probs {
		out[k] = v
	}
	return out, modValues
}

// rescue halves the probabilities of every non-downbeat step of each
// governed layer. The drum engine reads RescuedOnBar and straightens swing
// to 0.5 for that bar. Rotation offsets are computed from the bar index
// alone and are not reset by a rescue.
func (c *Controller) rescue() {
	for name := range c.governed {
		p := c.probs[name]
		for i := 0; i < 16; i++ {
			if !isStrongStep(i) {
				p[i] *= 0.5
			}
		}
		c.probs[name] = p
	}
}

// Measure computes BarMetrics from a bar's union mask, hat mask, and
// per-layer absolute micro-timing offsets.
func Measure(bar int, unionMask, hatMask []bool, allOffsets []int64) BarMetrics {
	e := metrics.Entrainment(unionMask)
	s := metrics.Syncopation(unionMask)
	h := metrics.HatDensity(hatMask)
	t := metrics.MicroMeanAbs(allOffsets)
	return BarMetrics{Bar: bar, E: e, S: s, H: h, T: t, Entropy: entropyOf(unionMask)}
}

func entropyOf(mask []bool) float64 {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	if n == 0 || n == len(mask) {
		return 0
	}
	p := float64(n) / float64(len(mask))
	q := 1 - p
	return -(p*log2(p) + q*log2(q))
}

func log2(x float64) float64 {
	return math.Log2(x)
}

func sin(x float64) float64 {
	return math.Sin(x)
}

func isStrongStep(i int) bool {
	return i%4 == 0
}

func weightStrong(i int) float64 {
	if isStrongStep(i) {
		return 0.85
	}
	return 0.15
}

func weightOffbeat(i int) float64 {
	if i%2 == 1 {
		return 0.85
	}
	return 0.15
}

// boundedStep moves cur toward target by at most maxDelta.
func boundedStep(cur, target, maxDelta float64) float64 {
	if maxDelta <= 0 {
		maxDelta = 0.2
	}
	delta := target - cur
	if delta > maxDelta {
		delta = maxDelta
	}
	if delta < -maxDelta {
		delta = -maxDelta
	}
	return cur + delta
}

func (m *ModulatorState) advance(bar int, st *rng.State) {
	switch m.Cfg.Mode {
	case config.ModulatorRandomWalk:
		step := st.TruncNormal(0, m.Cfg.StepPerBar, -m.Cfg.MaxDeltaPerBar, m.Cfg.MaxDeltaPerBar)
		m.Value = clampRange(m.Value+step, m.Cfg.MinVal, m.Cfg.MaxVal)
	case config.ModulatorOU:
		mid := midpoint(m.Cfg.MinVal, m.Cfg.MaxVal)
		tau := m.Cfg.Tau
		if tau <= 0 {
			tau = 1
		}
		pull := (mid - m.Value) / tau
		delta := clampRange(pull, -m.Cfg.MaxDeltaPerBar, m.Cfg.MaxDeltaPerBar)
		m.Value = clampRange(m.Value+delta, m.Cfg.MinVal, m.Cfg.MaxVal)
	case config.ModulatorSine:
		mid := midpoint(m.Cfg.MinVal, m.Cfg.MaxVal)
		amp := (m.Cfg.MaxVal - m.Cfg.MinVal) / 2
		m.Value = mid + amp*sin(float64(bar)*0.3+m.Cfg.Phase)
	}
	m.bar = bar
}

func midpoint(lo, hi float64) float64 { return (lo + hi) / 2 }

func clamp01(v float64) float64 { return clampRange(v, 0, 1) }

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
