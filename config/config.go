// Package config holds the declarative input record the generative
// pipeline is built from: tempo/resolution, per-layer rhythm parameters,
// controller targets/guardrails, and modulator definitions. It mirrors the
// teacher's config.Config (plain JSON-tagged structs with a DefaultConfig
// constructor) but the fields are spec §3/§6's, not a Launchpad profile.
//
// Reading a config file off disk and parsing CLI flags remain the job of
// an external collaborator; this package only defines the shape and
// validates it (spec §7: configuration errors are fatal and surfaced
// before any generation).
package config

import "groove-engine/groove_errors"

// Mode selects how much of the pipeline runs.
type Mode string

const (
	ModeDrumsOnly Mode = "drums_only"
	ModeDrumsBass Mode = "drums+bass"
	ModeFull      Mode = "full"
)

// Condition is one entry of a layer's condition stack (spec §4.2).
type Condition struct {
	Kind string `json:"kind"` // PROB, PRE, NOT_PRE, FILL, EVERY_N
	// PROB
	Prob float64 `json:"prob,omitempty"`
	// PRE / NOT_PRE
	Layer string `json:"layer,omitempty"`
	// EVERY_N
	N      int `json:"n,omitempty"`
	Offset int `json:"offset,omitempty"`
}

const (
	CondProb    = "PROB"
	CondPre     = "PRE"
	CondNotPre  = "NOT_PRE"
	CondFill    = "FILL"
	CondEveryN  = "EVERY_N"
)

// LayerConfig configures one drum layer (kick, hat, snare, clap, ...).
type LayerConfig struct {
	Steps int `json:"steps"` // Euclidean total steps, normally 16
	Fills int `json:"fills"` // Euclidean onset count
	Rot   int `json:"rot"`   // initial rotation offset

	Note     uint8 `json:"note"`     // MIDI note number
	Velocity uint8 `json:"velocity"` // base velocity

	SwingPercent float64 `json:"swingPercent"` // [0.5, 0.62]
	MicroMs      float64 `json:"microMs"`      // micro-timing cap in ms (converted to ticks by the drum engine)

	BeatBinsMs      []float64 `json:"beatBinsMs,omitempty"`
	BeatBinsProbs   []float64 `json:"beatBinsProbs,omitempty"`
	BeatBinCapMs    float64   `json:"beatBinCapMs,omitempty"`

	OffbeatsOnly bool `json:"offbeatsOnly,omitempty"`

	RatchetProb   float64 `json:"ratchetProb,omitempty"`   // [0, 0.3]
	RatchetRepeat int     `json:"ratchetRepeat,omitempty"` // subdivisions per ratchet

	ChokeWithNote string `json:"chokeWithNote,omitempty"` // layer name this layer chokes

	RotationRatePerBar float64 `json:"rotationRatePerBar,omitempty"`

	GhostPre1Prob        float64 `json:"ghostPre1Prob,omitempty"`
	DisplaceInto2Prob    float64 `json:"displaceInto2Prob,omitempty"`

	AccentProb float64 `json:"accentProb,omitempty"` // [0,1], post-schedule accent pass
	AccentMode string  `json:"accentMode,omitempty"` // random, offbeat_focused, downbeat_focused

	Conditions []Condition `json:"conditions,omitempty"`
}

// Targets are the controller's per-bar metric targets (spec §4.5/§4.6).
type Targets struct {
	SLow              float64 `json:"sLow"`
	SHigh             float64 `json:"sHigh"`
	ETarget           float64 `json:"eTarget"`
	TMsCap            float64 `json:"tMsCap"`
	HLow              float64 `json:"hLow"`
	HHigh             float64 `json:"hHigh"`
	HatDensityTarget  float64 `json:"hatDensityTarget"`
	HatDensityTol     float64 `json:"hatDensityTol"`
}

// Guard holds the controller's safety rails (spec §4.6).
type Guard struct {
	MinE          float64 `json:"minE"`
	MaxRotRate    float64 `json:"maxRotRate"`
	KickImmutable bool    `json:"kickImmutable"`

	// MaxDeltaPerBar bounds the BIAS stage's per-bar probability-space
	// step (spec §4.6 point 2's "bounded by max_delta_per_bar"), distinct
	// from MaxRotRate, which bounds Euclidean rotation drift (§4.2/§4.6
	// point 4) and lives in a different unit (steps, not probability).
	MaxDeltaPerBar float64 `json:"maxDeltaPerBar"`
}

// ModulatorMode enumerates the long-horizon modulator shapes (spec §4.6).
type ModulatorMode string

const (
	ModulatorRandomWalk ModulatorMode = "random_walk"
	ModulatorOU         ModulatorMode = "ou"
	ModulatorSine       ModulatorMode = "sine"
)

// knownBareParamPaths enumerates the param_path values spec §6 recognises.
// Per-layer paths (e.g. "hat_c.swing_percent") are validated structurally:
// any "<layer>.swing_percent" or "<layer>.ratchet_prob" is accepted as
// long as <layer> names a configured layer.
var knownBareParamPaths = map[string]bool{
	"thin_bias":                  true,
	"accent.prob":                true,
	"kick.rotation_rate_per_bar": true,
}

// ModulatorConfig drives one named parameter path over the life of the
// generation (spec §4.6 point 3).
type ModulatorConfig struct {
	ParamPath      string        `json:"paramPath"`
	Mode           ModulatorMode `json:"mode"`
	MinVal         float64       `json:"minVal"`
	MaxVal         float64       `json:"maxVal"`
	StepPerBar     float64       `json:"stepPerBar,omitempty"`
	Tau            float64       `json:"tau,omitempty"`   // only for "ou"
	MaxDeltaPerBar float64       `json:"maxDeltaPerBar"`
	Phase          float64       `json:"phase,omitempty"` // only for "sine"
}

// Weights are the §9(b) scoring coefficients, exposed as configuration
// with the spec-stated defaults.
type Weights struct {
	WRoleTag  float64 `json:"wRoleTag"`
	WAnchor   float64 `json:"wAnchor"`
	WStrength float64 `json:"wStrength"`
	WDensity  float64 `json:"wDensity"`
	WOverlap  float64 `json:"wOverlap"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Gamma     float64 `json:"gamma"`
}

// DefaultWeights returns the exact defaults named in spec §9(b).
func DefaultWeights() Weights {
	return Weights{
		WRoleTag: 1.0, WAnchor: 0.6, WStrength: 0.5, WDensity: 0.3, WOverlap: 2.0,
		Alpha: 1.0, Beta: 0.3, Gamma: 0.5,
	}
}

// Config is the full declarative input to the pipeline.
type Config struct {
	Mode Mode `json:"mode"`
	BPM  int  `json:"bpm"`
	PPQ  int  `json:"ppq"`
	Bars int  `json:"bars"`
	Seed uint64 `json:"seed"`

	// KitName selects a drum.Kit by name; unrecognised or empty falls
	// back to the default kit.
	KitName string `json:"kitName,omitempty"`

	Layers map[string]LayerConfig `json:"layers"`

	Targets    Targets           `json:"targets"`
	Guard      Guard             `json:"guard"`
	Modulators []ModulatorConfig `json:"modulators,omitempty"`

	Weights Weights `json:"weights,omitempty"`

	// Bass/lead selection, optional depending on Mode.
	Bass *BassConfig `json:"bass,omitempty"`
	Lead *LeadConfig `json:"lead,omitempty"`

	// Tags seed the bass mode heuristic and lead key derivation (spec
	// §4.8/§4.9), e.g. "warehouse", "key_9_aeolian".
	Tags []string `json:"tags,omitempty"`
}

// BassConfig configures the groove bass engine (spec §4.8).
type BassConfig struct {
	RootNote      uint8    `json:"rootNote"`
	FixedMode     string   `json:"fixedMode,omitempty"`     // one BassMode name, or ""
	PerBarModes   []string `json:"perBarModes,omitempty"`    // overrides FixedMode per bar
	RegisterLo    uint8    `json:"registerLo"`
	RegisterHi    uint8    `json:"registerHi"`
	GravityCenter float64  `json:"gravityCenter"`
}

// LeadConfig configures the lead planner/realiser (spec §4.9/§4.10).
type LeadConfig struct {
	RootPC             int     `json:"rootPc"`             // 0-11, used if Tags has no key_<pc>_<scale>
	ScaleType          string  `json:"scaleType"`          // aeolian, dorian, phrygian, minor_pent
	DefaultRootOctave  int     `json:"defaultRootOctave"`
	MinPhraseBars      int     `json:"minPhraseBars"`
	MaxPhraseBars      int     `json:"maxPhraseBars"`
	CallResponsePattern string `json:"callResponsePattern"` // e.g. "CRCR"
	RegisterLo         uint8   `json:"registerLo"`
	RegisterHi         uint8   `json:"registerHi"`
	GravityCenter      float64 `json:"gravityCenter"`
	RegisterDriftPerPhrase float64 `json:"registerDriftPerPhrase"`
	MaxStepJitter      int     `json:"maxStepJitter"`
	MinInterNoteGapSteps int   `json:"minInterNoteGapSteps"`
	AvoidRootOnBassHits bool   `json:"avoidRootOnBassHits"`
	MinSemitoneDistance int    `json:"minSemitoneDistance"`
	BassInteraction    bool    `json:"bassInteraction"`
}

// DefaultConfig returns a minimal, valid drums-only configuration — a
// starting point for callers to override, mirroring the teacher's
// DefaultConfig().
func DefaultConfig() *Config {
	return &Config{
		Mode: ModeDrumsOnly,
		BPM:  120,
		PPQ:  1920,
		Bars: 8,
		Seed: 1,
		Layers: map[string]LayerConfig{
			"kick": {Steps: 16, Fills: 4, Note: 36, Velocity: 110, SwingPercent: 0.5},
		},
		Targets: Targets{
			SLow: 0.2, SHigh: 0.6, ETarget: 0.75, TMsCap: 12,
			HLow: 0.4, HHigh: 0.85, HatDensityTarget: 0.6, HatDensityTol: 0.1,
		},
		Guard: Guard{MinE: 0.6, MaxRotRate: 2.0, MaxDeltaPerBar: 0.2, KickImmutable: true},
		Weights: DefaultWeights(),
	}
}

// Validate enforces the ranges spec §3/§6/§7 declare. It is always run
// before generation starts; any failure is fatal (InvalidConfiguration) or
// a reference error (ReferenceMissing for unknown param_path/scale).
func (c *Config) Validate() error {
	if c.BPM < 60 || c.BPM > 240 {
		return groove_errors.NewInvalidConfiguration("bpm", "must be in [60,240]")
	}
	if !isAllowedPPQ(c.PPQ) {
		return groove_errors.NewInvalidConfiguration("ppq", "must be one of 96,192,480,960,1920")
	}
	if c.PPQ%4 != 0 {
		return groove_errors.NewInvalidConfiguration("ppq", "must be divisible by 4")
	}
	if c.Bars < 1 || c.Bars > 128 {
		return groove_errors.NewInvalidConfiguration("bars", "must be in [1,128]")
	}
	if len(c.Layers) == 0 {
		return groove_errors.NewInvalidConfiguration("layers", "must configure at least one layer")
	}
	if len(c.Layers) > 8 {
		return groove_errors.NewInvalidConfiguration("layers", "at most 8 layers supported")
	}
	for name, lc := range c.Layers {
		if err := lc.validate(name); err != nil {
			return err
		}
		if lc.ChokeWithNote != "" {
			if _, ok := c.Layers[lc.ChokeWithNote]; !ok {
				return groove_errors.NewReferenceMissing("layer.chokeWithNote", lc.ChokeWithNote)
			}
		}
	}
	for _, m := range c.Modulators {
		if err := c.validateModulator(m); err != nil {
			return err
		}
	}
	if c.Mode == ModeDrumsBass || c.Mode == ModeFull {
		if c.Bass == nil {
			return groove_errors.NewInvalidConfiguration("bass", "required when mode includes bass")
		}
		if c.Bass.RegisterLo > c.Bass.RegisterHi {
			return groove_errors.NewInvalidConfiguration("bass.registerLo", "must be <= registerHi")
		}
	}
	if c.Mode == ModeFull {
		if c.Lead == nil {
			return groove_errors.NewInvalidConfiguration("lead", "required when mode is full")
		}
		if err := c.Lead.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (lc LayerConfig) validate(name string) error {
	if lc.Steps <= 0 {
		return groove_errors.NewInvalidConfiguration(name+".steps", "must be > 0")
	}
	if lc.Fills < 0 || lc.Fills > lc.Steps {
		return groove_errors.NewInvalidConfiguration(name+".fills", "must be in [0,steps]")
	}
	if lc.SwingPercent != 0 && (lc.SwingPercent < 0.5 || lc.SwingPercent > 0.62) {
		return groove_errors.NewInvalidConfiguration(name+".swingPercent", "must be in [0.5,0.62]")
	}
	if lc.RatchetProb < 0 || lc.RatchetProb > 0.3 {
		return groove_errors.NewInvalidConfiguration(name+".ratchetProb", "must be in [0,0.3]")
	}
	if len(lc.BeatBinsMs) != len(lc.BeatBinsProbs) {
		return groove_errors.NewInvalidConfiguration(name+".beatBinsProbs", "must have same length as beatBinsMs")
	}
	for _, cond := range lc.Conditions {
		switch cond.Kind {
		case CondProb, CondPre, CondNotPre, CondFill, CondEveryN:
		default:
			return groove_errors.NewReferenceMissing(name+".conditions.kind", cond.Kind)
		}
	}
	return nil
}

func (lead LeadConfig) validate() error {
	switch lead.ScaleType {
	case "aeolian", "dorian", "phrygian", "minor_pent":
	default:
		return groove_errors.NewReferenceMissing("lead.scaleType", lead.ScaleType)
	}
	if lead.RootPC < 0 || lead.RootPC > 11 {
		return groove_errors.NewInvalidConfiguration("lead.rootPc", "must be in [0,11]")
	}
	if lead.MinPhraseBars <= 0 || lead.MaxPhraseBars < lead.MinPhraseBars {
		return groove_errors.NewInvalidConfiguration("lead.minPhraseBars/maxPhraseBars", "must satisfy 0 < min <= max")
	}
	if lead.RegisterLo > lead.RegisterHi {
		return groove_errors.NewInvalidConfiguration("lead.registerLo", "must be <= registerHi")
	}
	return nil
}

func (c *Config) validateModulator(m ModulatorConfig) error {
	if !isKnownParamPath(m.ParamPath, c.Layers) {
		return groove_errors.NewReferenceMissing("modulator.paramPath", m.ParamPath)
	}
	switch m.Mode {
	case ModulatorRandomWalk, ModulatorOU, ModulatorSine:
	default:
		return groove_errors.NewReferenceMissing("modulator.mode", string(m.Mode))
	}
	if m.MaxVal < m.MinVal {
		return groove_errors.NewInvalidConfiguration("modulator.maxVal", "must be >= minVal")
	}
	if m.Mode == ModulatorOU && m.Tau <= 0 {
		return groove_errors.NewInvalidConfiguration("modulator.tau", "must be > 0 for ou mode")
	}
	return nil
}

func isAllowedPPQ(ppq int) bool {
	switch ppq {
	case 96, 192, 480, 960, 1920:
		return true
	}
	return false
}

// isKnownParamPath recognises the bare paths from spec §6 plus any
// "<layer>.swing_percent" / "<layer>.ratchet_prob" where <layer> is
// configured.
func isKnownParamPath(path string, layers map[string]LayerConfig) bool {
	if knownBareParamPaths[path] {
		return true
	}
	for name := range layers {
		if path == name+".swing_percent" || path == name+".ratchet_prob" {
			return true
		}
	}
	return false
}
