package lead

import (
	"sort"

	"groove-engine/analyzer"
	"groove-engine/bass"
	"groove-engine/config"
	"groove-engine/diagnostics"
	"groove-engine/rng"
	"groove-engine/timebase"
)

// ToneCategory is the function a note plays against the active harmony.
type ToneCategory string

const (
	ToneChord   ToneCategory = "chord"
	ToneColor   ToneCategory = "color"
	TonePassing ToneCategory = "passing"
)

// LeadNote is a LogicalNote after tone/pitch/slot assignment (spec §3).
type LeadNote struct {
	LogicalNote
	ToneCategory  ToneCategory
	Degree        int
	OctaveOffset  int
	Pitch         uint8
	Velocity      uint8
	StartTick     int64
	DurationTicks int64
}

// functionProfiles gives {chord, color, passing} sampling weights keyed by
// "<phrase_position>_<strong|weak>" (spec §4.10's
// function_profiles[role.phrase_position.beat_strength]).
var functionProfiles = map[string][3]float64{ // [chord, color, passing]
	"start_strong": {0.8, 0.15, 0.05},
	"start_weak":   {0.6, 0.3, 0.1},
	"inner_strong": {0.5, 0.3, 0.2},
	"inner_weak":   {0.25, 0.35, 0.4},
	"end_strong":   {0.85, 0.1, 0.05},
	"end_weak":     {0.5, 0.3, 0.2},
}

// phraseEndResolutionDegrees are the 0-indexed scale-degree offsets
// corresponding to spec's "usually {1,5}" (tonic and fifth, 1-indexed).
var phraseEndResolutionDegrees = []int{0, 4}

// Engine drives the full planner + realiser pipeline for one run.
type Engine struct {
	cfg     config.LeadConfig
	weights config.Weights
	seed    uint64
	tb      timebase.Timebase
	diag    *diagnostics.Log
}

// NewEngine builds a lead Engine.
func NewEngine(cfg config.LeadConfig, weights config.Weights, seed uint64, tb timebase.Timebase, diag *diagnostics.Log) *Engine {
	return &Engine{cfg: cfg, weights: weights, seed: seed, tb: tb, diag: diag}
}

// Generate runs the planner then the realiser and returns the finished
// lead note list in bar/step order.
func (e *Engine) Generate(grids []analyzer.SlotGrid, bassNotes []bass.Note, tags []string) []LeadNote {
	key := DeriveKeySpec(tags, bassNotes, e.cfg)
	segments := PlanPhrases(len(grids), e.cfg.MinPhraseBars, e.cfg.MaxPhraseBars, e.cfg.CallResponsePattern)

	bassByBarStep := indexBassNotes(bassNotes)

	var notes []LeadNote
	registerDrift := 0.0
	var prevPitch uint8
	havePrev := false

	for segIdx, seg := range segments {
		if e.cfg.RegisterDriftPerPhrase != 0 {
			st := rng.Derive(e.seed, "lead/drift", segIdx)
			sign := 1.0
			if st.Bernoulli(0.5) {
				sign = -1.0
			}
			registerDrift += sign * e.cfg.RegisterDriftPerPhrase
		}

		rhythm := pickRhythmTemplate(e.seed, segIdx, seg.BarEnd-seg.BarStart, seg.Role)
		contour := pickContourTemplate(e.seed, segIdx, seg.BarEnd-seg.BarStart, seg.Role)
		degreeOffsets := cumulativeSum(contour.DegreeIntervals)

		var segLogical []LogicalNote
		for bar := seg.BarStart; bar < seg.BarEnd; bar++ {
			isFirstBar := bar == seg.BarStart
			isLastBar := bar == seg.BarEnd-1
			for i, ev := range rhythm.Events {
				pos := "inner"
				if isFirstBar && i == 0 {
					pos = "start"
				} else if isLastBar && i == len(rhythm.Events)-1 {
					pos = "end"
				}
				strength := 0.0
				if bar < len(grids) && ev.StepOffset < 16 && beatStrong(grids[bar][ev.StepOffset]) {
					strength = 1.0
				}
				segLogical = append(segLogical, LogicalNote{
					PhraseID:       segIdx,
					Role:           seg.Role,
					PhrasePosition: pos,
					Bar:            bar,
					Step:           ev.StepOffset,
					BeatStrength:   strength,
					TensionLabel:   contour.TensionProfile[i%len(contour.TensionProfile)],
					ContourIndex:   i,
					Accent:         ev.Accent,
				})
			}
		}

		for i, ln := range segLogical {
			degree := degreeOffsets[i%len(degreeOffsets)]
			tone := e.sampleToneCategory(ln)
			if ln.PhrasePosition == "end" && (ln.TensionLabel == "resolve" || seg.ResolutionRequired) {
				degree = nearestResolutionDegree(degree)
			}

			pitch, octaveOffset := e.assignPitch(key, degree, havePrev, prevPitch, registerDrift, contour, i)
			prevPitch = pitch
			havePrev = true

			leadNote := LeadNote{
				LogicalNote: ln, ToneCategory: tone, Degree: degree, OctaveOffset: octaveOffset,
				Pitch: pitch, Velocity: 90,
			}
			if leadNote.Accent {
				leadNote.Velocity = 110
			}
			notes = append(notes, leadNote)
		}
	}

	notes = e.alignToSlots(notes, grids)
	notes = e.assignDurations(notes, grids)
	if e.cfg.BassInteraction {
		notes = e.avoidBass(notes, key, bassByBarStep)
	}
	return notes
}

func beatStrong(l analyzer.SlotLabel) bool {
	return l.BarStart || l.SnareZone || l.IsKick
}

func cumulativeSum(intervals []int) []int {
	out := make([]int, len(intervals))
	sum := 0
	for i, v := range intervals {
		sum += v
		out[i] = sum
	}
	if len(out) == 0 {
		out = []int{0}
	}
	return out
}

func nearestResolutionDegree(degree int) int {
	best := phraseEndResolutionDegrees[0]
	bestDist := absInt(degree - best)
	for _, d := range phraseEndResolutionDegrees[1:] {
		if dist := absInt(degree - d); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (e *Engine) sampleToneCategory(ln LogicalNote) ToneCategory {
	strength := "weak"
	if ln.BeatStrength > 0 {
		strength = "strong"
	}
	key := ln.PhrasePosition + "_" + strength
	profile, ok := functionProfiles[key]
	if !ok {
		profile = functionProfiles["inner_weak"]
	}
	st := rng.Derive(e.seed, "lead/tone", ln.Bar, ln.Step, ln.PhraseID)
	idx := st.WeightedChoice(profile[:])
	switch idx {
	case 0:
		return ToneChord
	case 1:
		return ToneColor
	default:
		return TonePassing
	}
}

// assignPitch implements spec §4.10's degree->pitch + voice-leading cost:
// the first note of the run lands on the in-scale pitch nearest
// gravity_center; every later note picks the octave (-1,0,+1) minimising
// α·|semitone_jump| + β·|pitch-gravity_center| + γ·violate_emphasis.
func (e *Engine) assignPitch(key KeySpec, degree int, havePrev bool, prevPitch uint8, registerDrift float64, contour ContourTemplate, contourIdx int) (uint8, int) {
	gravity := e.cfg.GravityCenter + registerDrift
	lo, hi := e.cfg.RegisterLo, e.cfg.RegisterHi

	if !havePrev {
		return nearestInRegister(key, degree, gravity, lo, hi)
	}

	isEmphasis := false
	for _, idx := range contour.EmphasisIndices {
		if idx == contourIdx {
			isEmphasis = true
			break
		}
	}

	bestPitch := prevPitch
	bestOctave := 0
	bestCost := -1.0
	w := e.weights
	for oct := -1; oct <= 1; oct++ {
		cand := key.PitchForDegree(degree, oct)
		if cand < lo || cand > hi {
			continue
		}
		jump := absInt(int(cand) - int(prevPitch))
		violatesEmphasis := 0.0
		if isEmphasis && jump < 2 {
			violatesEmphasis = 1.0 // an emphasis index calls for a real move, not a near-repeat
		}
		cost := w.Alpha*float64(jump) + w.Beta*absFloat(float64(cand)-gravity) + w.Gamma*violatesEmphasis
		if bestCost < 0 || cost < bestCost {
			bestCost, bestPitch, bestOctave = cost, cand, oct
		}
	}
	return bestPitch, bestOctave
}

func nearestInRegister(key KeySpec, degree int, gravity float64, lo, hi uint8) (uint8, int) {
	best := key.PitchForDegree(degree, 0)
	bestOctave := 0
	bestDist := absFloat(float64(best) - gravity)
	for oct := -2; oct <= 2; oct++ {
		cand := key.PitchForDegree(degree, oct)
		if cand < lo || cand > hi {
			continue
		}
		if d := absFloat(float64(cand) - gravity); d < bestDist {
			best, bestOctave, bestDist = cand, oct, d
		}
	}
	return best, bestOctave
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// alignToSlots scores candidate steps within ±max_step_jitter of each
// note's nominal step and moves it to the best-scoring one, enforcing
// min_inter_note_gap_steps sequentially within each bar (spec §4.10). A
// note with no candidate step that satisfies the gap is dropped and logged
// as EventDropped.
func (e *Engine) alignToSlots(notes []LeadNote, grids []analyzer.SlotGrid) []LeadNote {
	byBar := map[int][]int{} // bar -> indices into notes, in order
	for i, n := range notes {
		byBar[n.Bar] = append(byBar[n.Bar], i)
	}

	w := e.weights
	jitter := e.cfg.MaxStepJitter
	gap := e.cfg.MinInterNoteGapSteps
	dropped := make([]bool, len(notes))

	for bar, idxs := range byBar {
		if bar >= len(grids) {
			continue
		}
		grid := grids[bar]
		lastStep := -1000
		for _, idx := range idxs {
			n := &notes[idx]
			bestStep := n.Step
			bestScore := -1e18
			for d := -jitter; d <= jitter; d++ {
				step := n.Step + d
				if step < 0 || step > 15 {
					continue
				}
				if step-lastStep < gap {
					continue
				}
				label := grid[step]
				pref := 0.0
				if beatStrong(label) {
					pref = 1.0
				}
				anchor := 0.0
				if label.IsKick || label.SnareZone {
					anchor = 1.0
				}
				strong := 0.0
				if beatStrong(label) {
					strong = 1.0
				}
				sparsity := 0.0
				if label.HatSparse {
					sparsity = 0.5
				}
				overlap := 0.0
				if absInt(d) > 0 {
					overlap = float64(absInt(d)) * 0.1
				}
				score := w.WRoleTag*pref + w.WAnchor*anchor + w.WStrength*strong + w.WDensity*sparsity - w.WOverlap*overlap
				if score > bestScore {
					bestScore, bestStep = score, step
				}
			}
			if bestScore == -1e18 {
				dropped[idx] = true
				continue
			}
			n.Step = bestStep
			lastStep = bestStep
		}
	}
	kept := notes[:0]
	for i, n := range notes {
		if dropped[i] {
			e.diag.Add(diagnostics.EventDropped, "lead", n.Bar, "no slot near step %d satisfies the minimum gap", n.Step)
			continue
		}
		kept = append(kept, n)
	}
	return kept
}

// assignDurations converts rhythm length_steps to ticks and clips each
// note to the next note's start tick, then sorts the result by start tick.
func (e *Engine) assignDurations(notes []LeadNote, grids []analyzer.SlotGrid) []LeadNote {
	for i := range notes {
		notes[i].StartTick = e.tb.TickAt(notes[i].Bar, notes[i].Step)
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].StartTick < notes[j].StartTick })

	stepTicks := e.tb.StepTicks()
	defaultLen := stepTicks * 2
	for i := range notes {
		dur := defaultLen
		if i+1 < len(notes) {
			next := notes[i+1].StartTick
			if notes[i].StartTick+dur > next {
				dur = next - notes[i].StartTick
			}
		}
		if dur < 1 {
			dur = 1
		}
		notes[i].DurationTicks = dur
	}
	return notes
}

// indexBassNotes keys bass notes by (bar, step) for overlap lookup.
func indexBassNotes(bassNotes []bass.Note) map[[2]int]bass.Note {
	out := make(map[[2]int]bass.Note, len(bassNotes))
	for _, n := range bassNotes {
		out[[2]int{n.Bar, n.Step}] = n
	}
	return out
}

// avoidBass implements spec §4.10's bass-interaction avoidance, trying in
// order: substitute the next scale degree up, shift octave within
// register, shorten the lead note (Open Question (c)'s fixed priority).
// The substitution does not consult the note's tone category.
func (e *Engine) avoidBass(notes []LeadNote, key KeySpec, bassByBarStep map[[2]int]bass.Note) []LeadNote {
	minDist := e.cfg.MinSemitoneDistance
	lo, hi := e.cfg.RegisterLo, e.cfg.RegisterHi
	for i := range notes {
		n := &notes[i]
		bn, ok := bassByBarStep[[2]int{n.Bar, n.Step}]
		if !ok {
			continue
		}
		if e.cfg.AvoidRootOnBassHits && n.Step == 0 && int(bn.Pitch)%12 == key.RootPC {
			n.Degree++
			n.Pitch = clampRegister(key.PitchForDegree(n.Degree, n.OctaveOffset), lo, hi)
		}
		if absInt(int(n.Pitch)-int(bn.Pitch)) >= minDist {
			continue
		}
		// 1: substitute the next scale degree up.
		n.Degree++
		alt := clampRegister(key.PitchForDegree(n.Degree, n.OctaveOffset), lo, hi)
		if absInt(int(alt)-int(bn.Pitch)) >= minDist {
			n.Pitch = alt
			continue
		}
		n.Degree--
		// 2: shift octave within register.
		if shifted, ok := shiftOctaveWithinRegister(n.Pitch, lo, hi, bn.Pitch, minDist); ok {
			n.Pitch = shifted
			continue
		}
		// 3: shorten the lead note so it no longer overlaps the bass hit.
		n.DurationTicks /= 2
		if n.DurationTicks < 1 {
			n.DurationTicks = 1
		}
	}
	return notes
}

func clampRegister(pitch, lo, hi uint8) uint8 {
	if pitch < lo {
		return lo
	}
	if pitch > hi {
		return hi
	}
	return pitch
}

func shiftOctaveWithinRegister(pitch, lo, hi, avoidPitch uint8, minDist int) (uint8, bool) {
	for _, delta := range []int{12, -12, 24, -24} {
		cand := int(pitch) + delta
		if cand < int(lo) || cand > int(hi) {
			continue
		}
		if absInt(cand-int(avoidPitch)) >= minDist {
			return uint8(cand), true
		}
	}
	return pitch, false
}
