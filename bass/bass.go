// Package bass implements the Groove Bass engine (spec §4.8): mode
// selection from configuration, seed tags, or analyzed drum energy; a
// per-step scoring pass over the frozen drum SlotGrid; motif-based pitch
// assignment with periodic mode-safe variation; and post-construction
// validation with bounded retry and constraint relaxation.
package bass

import (
	"math"
	"sort"

	"groove-engine/analyzer"
	"groove-engine/config"
	"groove-engine/diagnostics"
	"groove-engine/rng"
)

// Mode is one of the six bass behaviour profiles (spec §3 BassMode).
type Mode string

const (
	SubAnchor       Mode = "sub_anchor"
	RootFifthDriver Mode = "root_fifth_driver"
	PocketGroove    Mode = "pocket_groove"
	RollingOstinato Mode = "rolling_ostinato"
	OffbeatStabs    Mode = "offbeat_stabs"
	LeadIsh         Mode = "lead_ish"
)

// Profile carries one mode's fixed behaviour (spec §3 "each mode carries").
type Profile struct {
	DensityMin, DensityMax float64 // fraction of 16 steps
	PitchPoolSemis         []int   // offsets from root note
	SlotWeights            map[string]float64
	ForbidsKickOverlap     bool
	AnchorLabel            string // slot label this mode's onsets prefer to anchor on
	MaxConsecutiveNotes    int
}

// Profiles are the fixed per-mode parameters, grounded on spec §4.8's
// pitch-pool set {root, root-12, root+7, root+12, root+10, root+14} and its
// per-mode density/kick-overlap language.
var Profiles = map[Mode]Profile{
	SubAnchor: {
		DensityMin: 0.06, DensityMax: 0.25,
		PitchPoolSemis:      []int{0, -12},
		SlotWeights:         map[string]float64{"bar_start": 1.0, "is_kick": 0.6},
		ForbidsKickOverlap:  true,
		AnchorLabel:         "bar_start",
		MaxConsecutiveNotes: 2,
	},
	RootFifthDriver: {
		DensityMin: 0.4, DensityMax: 0.7,
		PitchPoolSemis:      []int{0, 7, 12},
		SlotWeights:         map[string]float64{"is_kick": 1.0, "post_kick": 0.5},
		ForbidsKickOverlap:  false,
		AnchorLabel:         "is_kick",
		MaxConsecutiveNotes: 4,
	},
	PocketGroove: {
		DensityMin: 0.3, DensityMax: 0.55,
		PitchPoolSemis:      []int{0, 7, 10},
		SlotWeights:         map[string]float64{"post_kick": 1.0, "hat_sparse": 0.4},
		ForbidsKickOverlap:  true,
		AnchorLabel:         "post_kick",
		MaxConsecutiveNotes: 3,
	},
	RollingOstinato: {
		DensityMin: 0.5, DensityMax: 0.85,
		PitchPoolSemis:      []int{0, 7, 12, 10, 14},
		SlotWeights:         map[string]float64{"hat_dense": 0.8, "is_kick": 0.6},
		ForbidsKickOverlap:  false,
		AnchorLabel:         "hat_dense",
		MaxConsecutiveNotes: 6,
	},
	OffbeatStabs: {
		DensityMin: 0.15, DensityMax: 0.35,
		PitchPoolSemis:      []int{0, 7},
		SlotWeights:         map[string]float64{"pre_kick": 1.0, "snare_zone": 0.5},
		ForbidsKickOverlap:  true,
		AnchorLabel:         "pre_kick",
		MaxConsecutiveNotes: 2,
	},
	LeadIsh: {
		DensityMin: 0.3, DensityMax: 0.6,
		PitchPoolSemis:      []int{0, 7, 12, 14},
		SlotWeights:         map[string]float64{"snare_zone": 0.7, "bar_end": 0.6},
		ForbidsKickOverlap:  false,
		AnchorLabel:         "snare_zone",
		MaxConsecutiveNotes: 4,
	},
}

// Note is a single scheduled bass onset (spec §3 BassNote), expressed in
// bar/step terms; the pipeline converts it to an absolute-tick event.
type Note struct {
	Bar           int
	Step          int
	Pitch         uint8
	DurationSteps int
	Velocity      uint8
}

// MotifEntry is one member of the running (step, pool_index) motif spec
// §4.8 threads across bars.
type MotifEntry struct {
	Step      int
	PoolIndex int
}

// Engine generates the bass track bar by bar against a frozen SlotGrid.
type Engine struct {
	cfg     *config.BassConfig
	weights config.Weights
	tags    []string
	seed    uint64
	diag    *diagnostics.Log
	motif   []MotifEntry
}

// NewEngine builds a bass Engine. cfg must be non-nil (the pipeline only
// constructs one when the run mode includes bass).
func NewEngine(cfg *config.BassConfig, weights config.Weights, tags []string, seed uint64, diag *diagnostics.Log) *Engine {
	return &Engine{cfg: cfg, weights: weights, tags: tags, seed: seed, diag: diag}
}

// Generate produces the bass note list for every bar in grids.
func (e *Engine) Generate(grids []analyzer.SlotGrid) []Note {
	var notes []Note
	for bar, grid := range grids {
		mode := e.selectMode(bar, grid)
		barNotes := e.generateBarWithRetry(bar, grid, mode)
		notes = append(notes, barNotes...)
		e.updateMotif(bar, barNotes, mode)
	}
	return notes
}

func (e *Engine) selectMode(bar int, grid analyzer.SlotGrid) Mode {
	if e.cfg.FixedMode != "" {
		return Mode(e.cfg.FixedMode)
	}
	if bar < len(e.cfg.PerBarModes) && e.cfg.PerBarModes[bar] != "" {
		return Mode(e.cfg.PerBarModes[bar])
	}
	st := rng.Derive(e.seed, "bass", "mode", bar)
	switch {
	case hasAnyTag(e.tags, "minimal", "dubby"):
		return pickOne(st, SubAnchor, OffbeatStabs)
	case hasAnyTag(e.tags, "warehouse", "urgent", "industrial"):
		return pickOne(st, RootFifthDriver, PocketGroove, RollingOstinato)
	case hasAnyTag(e.tags, "rolling", "hypnotic"):
		return pickOne(st, RollingOstinato, PocketGroove)
	default:
		return energyBandMode(grid)
	}
}

func hasAnyTag(tags []string, want ...string) bool {
	set := make(map[string]bool, len(want))
	for _, w := range want {
		set[w] = true
	}
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}

func pickOne(st *rng.State, modes ...Mode) Mode {
	idx := st.IntRange(0, len(modes)-1)
	return modes[idx]
}

// energyBandMode maps a bar's analyzed drum energy (kick_count, hat
// density proxy, snare_count) to a mode band, per spec §4.8's "otherwise
// choose by energy band" fallback.
func energyBandMode(grid analyzer.SlotGrid) Mode {
	kickCount, snareCount, denseCount := 0, 0, 0
	for _, s := range grid {
		if s.IsKick {
			kickCount++
		}
		if s.SnareZone {
			snareCount++
		}
		if s.HatDense {
			denseCount++
		}
	}
	energy := float64(kickCount) + float64(denseCount)/4 + float64(snareCount)/8
	switch {
	case energy < 4:
		return SubAnchor
	case energy < 8:
		return PocketGroove
	default:
		return RollingOstinato
	}
}

// generateBarWithRetry runs the score-and-select step, retrying with a
// fresh RNG sub-seed up to 4 times on validation failure, then relaxing
// constraints in the fixed order kick-overlap -> density -> motif
// coherence (spec §4.8, Open Question (c)).
func (e *Engine) generateBarWithRetry(bar int, grid analyzer.SlotGrid, mode Mode) []Note {
	const maxRetries = 4
	relaxKickOverlap, relaxDensity, relaxMotif := false, false, false

	var notes []Note
	for attempt := 0; attempt <= maxRetries+3; attempt++ {
		st := rng.Derive(e.seed, "bass", "notes", bar, attempt)
		notes = e.generateBar(bar, grid, mode, st, relaxKickOverlap, relaxDensity)
		if e.validate(bar, notes, grid, mode, relaxKickOverlap, relaxDensity, relaxMotif) {
			return notes
		}
		switch attempt {
		case maxRetries:
			relaxKickOverlap = true
		case maxRetries + 1:
			relaxDensity = true
		case maxRetries + 2:
			relaxMotif = true
		}
	}
	e.diag.Add(diagnostics.ConstraintUnsatisfiable, "bass", bar, "validation failed after %d retries and full relaxation for mode %s", maxRetries, mode)
	return notes
}

func (e *Engine) generateBar(bar int, grid analyzer.SlotGrid, mode Mode, st *rng.State, relaxKickOverlap, relaxDensity bool) []Note {
	profile := Profiles[mode]
	scores := make([]float64, 16)
	for step := 0; step < 16; step++ {
		scores[step] = e.scoreStep(step, grid, profile, mode, relaxKickOverlap)
	}

	density := (profile.DensityMin + profile.DensityMax) / 2
	target := int(density*16 + 0.5)
	if target < 1 {
		target = 1
	}

	order := make([]int, 16)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	minGap := 1
	chosen := make([]bool, 16)
	var count int
	consecutive := 0
	lastStep := -1
	for _, step := range order {
		if count >= target {
			break
		}
		if scores[step] <= 0 {
			continue
		}
		if grid[step].IsKick && profile.ForbidsKickOverlap && !relaxKickOverlap && !grid[step].BarStart {
			continue
		}
		if lastStep >= 0 && circularGap(lastStep, step) < minGap {
			continue
		}
		if consecutive >= profile.MaxConsecutiveNotes {
			continue
		}
		chosen[step] = true
		count++
		if lastStep >= 0 && circularGap(lastStep, step) == 1 {
			consecutive++
		} else {
			consecutive = 1
		}
		lastStep = step
	}

	rootNote := e.cfg.RootNote
	var notes []Note
	for step := 0; step < 16; step++ {
		if !chosen[step] {
			continue
		}
		poolIdx := e.poolIndexForStep(step, profile)
		pitch := e.assignPitch(rootNote, profile, poolIdx)
		notes = append(notes, Note{
			Bar: bar, Step: step, Pitch: pitch, DurationSteps: 2, Velocity: 95,
		})
	}
	return notes
}

func (e *Engine) scoreStep(step int, grid analyzer.SlotGrid, profile Profile, mode Mode, relaxKickOverlap bool) float64 {
	label := grid[step]
	w := e.weights

	tagScore := 0.0
	for name, weight := range profile.SlotWeights {
		if labelActive(label, name) {
			tagScore += weight
		}
	}

	anchor := 0.0
	if labelActive(label, profile.AnchorLabel) {
		anchor = 1.0
	}

	strength := 0.0
	if label.BarStart || label.SnareZone || label.IsKick {
		strength = 1.0
	}

	sparsity := 0.0
	if label.HatSparse {
		sparsity = 0.5
	}

	kickAvoidPenalty := 0.0
	if label.IsKick && profile.ForbidsKickOverlap && !relaxKickOverlap {
		kickAvoidPenalty = 1.0
	}

	return w.WRoleTag*tagScore + w.WAnchor*anchor + w.WStrength*strength + w.WDensity*sparsity - w.WOverlap*kickAvoidPenalty
}

func labelActive(l analyzer.SlotLabel, name string) bool {
	switch name {
	case "is_kick":
		return l.IsKick
	case "pre_kick":
		return l.PreKick
	case "post_kick":
		return l.PostKick
	case "snare_zone":
		return l.SnareZone
	case "bar_start":
		return l.BarStart
	case "bar_end":
		return l.BarEnd
	case "hat_dense":
		return l.HatDense
	case "hat_sparse":
		return l.HatSparse
	case "fill_zone":
		return l.FillZone
	default:
		return false
	}
}

func circularGap(a, b int) int {
	d := b - a
	if d < 0 {
		d += 16
	}
	return d
}

// poolIndexForStep resolves the running motif's pool index for step, or
// falls back to index 0 (root) for a step the motif has not seen yet.
func (e *Engine) poolIndexForStep(step int, profile Profile) int {
	for _, m := range e.motif {
		if m.Step == step {
			if m.PoolIndex < len(profile.PitchPoolSemis) {
				return m.PoolIndex
			}
		}
	}
	return 0
}

// assignPitch folds root+pool-offset into [RegisterLo, RegisterHi], then
// among every octave that still fits the register picks the one nearest
// GravityCenter (spec §4.8's per-mode pitch pool is a set of semitone
// offsets from root; GravityCenter decides which octave of that offset
// the bass actually sits in, the way lead.assignPitch's gravity_center
// picks an octave for a scale degree).
func (e *Engine) assignPitch(root uint8, profile Profile, poolIdx int) uint8 {
	if poolIdx < 0 || poolIdx >= len(profile.PitchPoolSemis) {
		poolIdx = 0
	}
	semis := profile.PitchPoolSemis[poolIdx]
	base := int(root) + semis
	lo, hi := int(e.cfg.RegisterLo), int(e.cfg.RegisterHi)
	for base < lo {
		base += 12
	}
	for base > hi {
		base -= 12
	}

	best := base
	bestDist := math.Abs(float64(base) - e.cfg.GravityCenter)
	for cand := base - 12; cand >= lo; cand -= 12 {
		if d := math.Abs(float64(cand) - e.cfg.GravityCenter); d < bestDist {
			best, bestDist = cand, d
		}
	}
	for cand := base + 12; cand <= hi; cand += 12 {
		if d := math.Abs(float64(cand) - e.cfg.GravityCenter); d < bestDist {
			best, bestDist = cand, d
		}
	}

	if best < 0 {
		best = 0
	}
	if best > 127 {
		best = 127
	}
	return uint8(best)
}

// updateMotif rebuilds the running (step, pool_index) motif from the bar
// just generated, applying one mode-safe variation at 2/4/8-bar boundaries
// (every even bar after bar 0): +1 pool index, root<->fifth swap, or -1
// pool index. No octave substitution is applied to the motif.
func (e *Engine) updateMotif(bar int, notes []Note, mode Mode) {
	profile := Profiles[mode]
	next := make([]MotifEntry, 0, len(notes))
	for _, n := range notes {
		idx := e.poolIndexForStep(n.Step, profile)
		next = append(next, MotifEntry{Step: n.Step, PoolIndex: idx})
	}

	if isVariationBoundary(bar) && len(next) > 0 {
		st := rng.Derive(e.seed, "bass", "motif-variation", bar)
		vi := st.IntRange(0, len(next)-1)
		switch st.IntRange(0, 2) {
		case 0:
			if next[vi].PoolIndex+1 < len(profile.PitchPoolSemis) {
				next[vi].PoolIndex++
			}
		case 1:
			next[vi].PoolIndex = swapRootFifth(next[vi].PoolIndex, profile)
		case 2:
			// step one pool index down.
			if next[vi].PoolIndex > 0 {
				next[vi].PoolIndex--
			}
		}
	}
	e.motif = next
}

func swapRootFifth(idx int, profile Profile) int {
	for i, semis := range profile.PitchPoolSemis {
		if semis == 0 && idx != i {
			return i
		}
		if semis == 7 && idx != i {
			return i
		}
	}
	return idx
}

func isVariationBoundary(bar int) bool {
	return bar > 0 && (bar%2 == 0 || bar%4 == 0 || bar%8 == 0)
}

// validate checks the constraints spec §4.8 names: density band, register
// compliance, kick-overlap policy, and motif coherence (Hamming similarity
// against the running motif). Each check can be individually relaxed.
func (e *Engine) validate(bar int, notes []Note, grid analyzer.SlotGrid, mode Mode, relaxKickOverlap, relaxDensity, relaxMotif bool) bool {
	profile := Profiles[mode]

	if !relaxDensity {
		lo := int(profile.DensityMin * 16)
		hi := int(profile.DensityMax*16 + 0.999)
		if len(notes) < lo || len(notes) > hi {
			return false
		}
	}

	for _, n := range notes {
		if n.Pitch < e.cfg.RegisterLo || n.Pitch > e.cfg.RegisterHi {
			return false
		}
		if !relaxKickOverlap && profile.ForbidsKickOverlap && grid[n.Step].IsKick && !grid[n.Step].BarStart {
			return false
		}
	}

	if !relaxMotif && len(e.motif) > 0 && len(notes) > 0 {
		similarity := hammingSimilarity(notesToStepSet(notes), motifToStepSet(e.motif))
		if similarity < 0.5 && !isVariationBoundary(bar) {
			return false
		}
	}
	return true
}

func notesToStepSet(notes []Note) [16]bool {
	var out [16]bool
	for _, n := range notes {
		out[n.Step] = true
	}
	return out
}

func motifToStepSet(motif []MotifEntry) [16]bool {
	var out [16]bool
	for _, m := range motif {
		out[m.Step] = true
	}
	return out
}

func hammingSimilarity(a, b [16]bool) float64 {
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / 16.0
}
