// Package lead implements the Lead Planner and Realiser (spec §4.9-§4.10):
// key derivation, phrase/call-response planning, rhythm+contour template
// fusion, tone-category sampling, degree-to-pitch voice-leading, slot
// alignment against the drum grid, and bass-interaction avoidance.
package lead

import (
	"strconv"
	"strings"

	"groove-engine/bass"
	"groove-engine/config"
)

// KeySpec is the active key/scale (spec §3).
type KeySpec struct {
	RootPC            int
	ScaleType         string
	DefaultRootOctave int
}

// scaleSemitones are the ascending in-octave semitone offsets per scale
// type spec §3 recognises.
var scaleSemitones = map[string][]int{
	"aeolian":    {0, 2, 3, 5, 7, 8, 10},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
	"phrygian":   {0, 1, 3, 5, 7, 8, 10},
	"minor_pent": {0, 3, 5, 7, 10},
}

// Degrees returns the scale's ascending semitone offsets within one
// octave, defaulting to aeolian for an unrecognised scale type.
func (k KeySpec) Degrees() []int {
	if d, ok := scaleSemitones[k.ScaleType]; ok {
		return d
	}
	return scaleSemitones["aeolian"]
}

// PitchForDegree resolves a scale degree (may exceed the octave span, may
// be negative) and an octave offset relative to DefaultRootOctave to a
// MIDI pitch.
func (k KeySpec) PitchForDegree(degree, octaveOffset int) uint8 {
	degs := k.Degrees()
	n := len(degs)
	octave := degree / n
	idx := degree % n
	if idx < 0 {
		idx += n
		octave--
	}
	semitone := k.RootPC + degs[idx] + 12*(k.DefaultRootOctave+octave+octaveOffset)
	if semitone < 0 {
		semitone = 0
	}
	if semitone > 127 {
		semitone = 127
	}
	return uint8(semitone)
}

// DeriveKeySpec implements spec §4.9's ordered key derivation: seed tags
// of the form key_<pc>_<scale>, else a pitch-class histogram of supplied
// bass notes, else the configured default.
func DeriveKeySpec(tags []string, bassNotes []bass.Note, cfg config.LeadConfig) KeySpec {
	for _, t := range tags {
		if pc, scale, ok := parseKeyTag(t); ok {
			return KeySpec{RootPC: pc, ScaleType: scale, DefaultRootOctave: cfg.DefaultRootOctave}
		}
	}
	if len(bassNotes) > 0 {
		var hist [12]int
		for _, n := range bassNotes {
			hist[int(n.Pitch)%12]++
		}
		best, bestPC := -1, cfg.RootPC
		for pc, count := range hist {
			if count > best {
				best, bestPC = count, pc
			}
		}
		return KeySpec{RootPC: bestPC, ScaleType: cfg.ScaleType, DefaultRootOctave: cfg.DefaultRootOctave}
	}
	return KeySpec{RootPC: cfg.RootPC, ScaleType: cfg.ScaleType, DefaultRootOctave: cfg.DefaultRootOctave}
}

func parseKeyTag(tag string) (pc int, scale string, ok bool) {
	parts := strings.Split(tag, "_")
	if len(parts) != 3 || parts[0] != "key" {
		return 0, "", false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 || n > 11 {
		return 0, "", false
	}
	if _, known := scaleSemitones[parts[2]]; !known {
		return 0, "", false
	}
	return n, parts[2], true
}

// ChordSpec is one bar's harmony (spec §3 HarmonyTrack entry). The MVP
// harmony is constant across the whole run.
type ChordSpec struct {
	TonicDegree      int
	ChordToneDegrees []int
	ColorToneDegrees []int
}

// ConstantHarmony returns the same triad-based ChordSpec for every bar.
func ConstantHarmony(bars int) []ChordSpec {
	chord := ChordSpec{TonicDegree: 0, ChordToneDegrees: []int{0, 2, 4}, ColorToneDegrees: []int{1, 3, 5, 6}}
	out := make([]ChordSpec, bars)
	for i := range out {
		out[i] = chord
	}
	return out
}

// PhraseSegment is one tile of the phrase plan (spec §3 PhrasePlan entry).
type PhraseSegment struct {
	BarStart, BarEnd int // [BarStart, BarEnd)
	Role             string // CALL or RESP
	FormLabel        string
	ResolutionRequired bool
}

// PlanPhrases tiles [0, bars) into segments of length L in [minBars,
// maxBars], preferring an L that divides bars exactly; when none does, the
// last segment truncates (spec §4.9, Open Question (a)). call_response
// pattern letters ('C'/'R') are applied cyclically across segments.
func PlanPhrases(bars, minBars, maxBars int, pattern string) []PhraseSegment {
	if minBars <= 0 {
		minBars = 1
	}
	if maxBars < minBars {
		maxBars = minBars
	}
	length := maxBars
	for l := maxBars; l >= minBars; l-- {
		if bars%l == 0 {
			length = l
			break
		}
	}
	if pattern == "" {
		pattern = "C"
	}

	var segments []PhraseSegment
	bar := 0
	idx := 0
	for bar < bars {
		end := bar + length
		if end > bars {
			end = bars
		}
		role := "CALL"
		if pattern[idx%len(pattern)] == 'R' {
			role = "RESP"
		}
		segments = append(segments, PhraseSegment{
			BarStart: bar, BarEnd: end, Role: role, FormLabel: string(pattern[idx%len(pattern)]),
		})
		bar = end
		idx++
	}
	if len(segments) > 0 {
		last := len(segments) - 1
		segments[last].ResolutionRequired = true
		for i := range segments {
			if (i+1)%len(pattern) == 0 {
				segments[i].ResolutionRequired = true
			}
		}
	}
	return segments
}

// LogicalNote is one metric slot of the motif plan, before tone/pitch
// assignment (spec §3 MotifPlan entry).
type LogicalNote struct {
	PhraseID       int
	Role           string
	PhrasePosition string // start, inner, end
	Bar, Step      int
	BeatStrength   float64
	TensionLabel   string
	ContourIndex   int
	Accent         bool
}
