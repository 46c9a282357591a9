package lead

import "groove-engine/rng"

// RhythmEvent is one entry of a rhythm template (spec §4.10).
type RhythmEvent struct {
	StepOffset  int
	LengthSteps int
	Accent      bool
	AnchorType  string // bar_start, is_kick, snare_zone, ...
}

// RhythmTemplate is filtered by role and bar count before the weighted
// draw that picks one per phrase segment.
type RhythmTemplate struct {
	Name    string
	Role    string // CALL, RESP, or "" for either
	MinBars int
	MaxBars int
	Weight  float64
	Events  []RhythmEvent
}

// ContourTemplate supplies the degree-offset shape fused onto a rhythm
// template's events (spec §4.10).
type ContourTemplate struct {
	Name            string
	Role            string
	MinBars         int
	MaxBars         int
	Weight          float64
	DegreeIntervals []int // cumulative sum gives target degree offsets
	EmphasisIndices []int
	TensionProfile  []string
}

// RhythmTemplates is the built-in library. A sparse call phrase, a denser
// call phrase, and a settling response phrase — enough variety for the
// fusion step to have a real choice without growing the table unbounded.
var RhythmTemplates = []RhythmTemplate{
	{
		Name: "call_sparse", Role: "CALL", MinBars: 1, MaxBars: 8, Weight: 1.0,
		Events: []RhythmEvent{
			{StepOffset: 0, LengthSteps: 4, Accent: true, AnchorType: "bar_start"},
			{StepOffset: 6, LengthSteps: 3, AnchorType: "is_kick"},
			{StepOffset: 10, LengthSteps: 3, AnchorType: "snare_zone"},
		},
	},
	{
		Name: "call_running", Role: "CALL", MinBars: 1, MaxBars: 8, Weight: 0.8,
		Events: []RhythmEvent{
			{StepOffset: 0, LengthSteps: 2, Accent: true, AnchorType: "bar_start"},
			{StepOffset: 2, LengthSteps: 2, AnchorType: ""},
			{StepOffset: 4, LengthSteps: 2, AnchorType: "is_kick"},
			{StepOffset: 8, LengthSteps: 2, AnchorType: ""},
			{StepOffset: 12, LengthSteps: 4, AnchorType: "snare_zone"},
		},
	},
	{
		Name: "resp_settle", Role: "RESP", MinBars: 1, MaxBars: 8, Weight: 1.0,
		Events: []RhythmEvent{
			{StepOffset: 0, LengthSteps: 4, AnchorType: "bar_start"},
			{StepOffset: 8, LengthSteps: 8, Accent: true, AnchorType: "bar_end"},
		},
	},
}

// ContourTemplates is the built-in contour library.
var ContourTemplates = []ContourTemplate{
	{
		Name: "rising_arc", Role: "CALL", MinBars: 1, MaxBars: 8, Weight: 1.0,
		DegreeIntervals: []int{0, 1, 1, 2, -1}, EmphasisIndices: []int{0, 3}, TensionProfile: []string{"stable", "build", "build", "tense", "resolve"},
	},
	{
		Name: "wave", Role: "CALL", MinBars: 1, MaxBars: 8, Weight: 0.7,
		DegreeIntervals: []int{0, 2, -1, 1, -2}, EmphasisIndices: []int{1}, TensionProfile: []string{"stable", "tense", "resolve", "build", "resolve"},
	},
	{
		Name: "descending_settle", Role: "RESP", MinBars: 1, MaxBars: 8, Weight: 1.0,
		DegreeIntervals: []int{0, -1, -1}, EmphasisIndices: []int{0}, TensionProfile: []string{"stable", "build", "resolve"},
	},
}

// pickRhythmTemplate filters by role and bar count, then draws with RNG
// weighted by template Weight, keyed to (seed, "lead/rhythm", segmentID).
func pickRhythmTemplate(root uint64, segmentID, bars int, role string) RhythmTemplate {
	var candidates []RhythmTemplate
	for _, t := range RhythmTemplates {
		if (t.Role == "" || t.Role == role) && bars >= t.MinBars && bars <= t.MaxBars {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = RhythmTemplates
	}
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	st := rng.Derive(root, "lead/rhythm", segmentID)
	idx := st.WeightedChoice(weights)
	if idx < 0 {
		idx = 0
	}
	return candidates[idx]
}

func pickContourTemplate(root uint64, segmentID, bars int, role string) ContourTemplate {
	var candidates []ContourTemplate
	for _, c := range ContourTemplates {
		if (c.Role == "" || c.Role == role) && bars >= c.MinBars && bars <= c.MaxBars {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		candidates = ContourTemplates
	}
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	st := rng.Derive(root, "lead/contour", segmentID)
	idx := st.WeightedChoice(weights)
	if idx < 0 {
		idx = 0
	}
	return candidates[idx]
}
