package drum

// Kit maps named drum voices to MIDI note numbers. Adapted from the
// teacher's sequencer.DrumKit (a fixed 16-slot array keyed by position) —
// here the mapping is by voice name, since layers are configured by name
// rather than fixed slot index.
type Kit struct {
	Name  string
	Notes map[string]uint8
}

// Kits holds the note mappings for every drum machine this engine knows
// about, carried over from the teacher's kit table.
var Kits = map[string]Kit{
	"gm": {
		Name: "General MIDI",
		Notes: map[string]uint8{
			"kick": 36, "snare": 38, "hat_c": 42, "hat_o": 46,
			"tom_lo": 41, "tom_mid": 43, "tom_hi": 45,
			"crash": 49, "ride": 51, "clap": 39, "rim": 37,
			"cowbell": 56, "clave": 75, "maracas": 70,
			"conga_lo": 64, "conga_hi": 63,
		},
	},
	"rd8": {
		Name: "Behringer RD-8",
		Notes: map[string]uint8{
			"kick": 36, "snare": 40, "hat_c": 42, "hat_o": 46,
			"tom_lo": 45, "tom_mid": 48, "tom_hi": 50,
			"crash": 49, "ride": 51, "clap": 39, "rim": 37,
			"cowbell": 56, "clave": 75, "maracas": 70,
			"conga_lo": 64, "conga_hi": 63,
		},
	},
	"tr8s": {
		Name: "Roland TR-8S",
		Notes: map[string]uint8{
			"kick": 36, "snare": 38, "hat_c": 42, "hat_o": 46,
			"tom_lo": 41, "tom_mid": 43, "tom_hi": 45,
			"crash": 49, "ride": 51, "clap": 39, "rim": 37,
			"cowbell": 56, "clave": 75, "maracas": 70,
			"conga_lo": 62, "conga_hi": 63,
		},
	},
	"er1": {
		Name: "Korg ER-1",
		Notes: map[string]uint8{
			"kick": 36, "snare": 38, "hat_c": 42, "hat_o": 46,
			"tom_lo": 40, "tom_mid": 41, "tom_hi": 43,
			"crash": 49, "ride": 45, "clap": 39,
		},
	},
}

// DefaultKitName mirrors the teacher's DefaultKit.
const DefaultKitName = "gm"

// NoteFor resolves a layer's MIDI note: the explicitly configured note when
// it is non-zero, else the kit's note for the layer name, else 36.
func (k Kit) NoteFor(layerName string, configuredNote uint8) uint8 {
	if n, ok := k.Notes[layerName]; ok && configuredNote == 0 {
		return n
	}
	if configuredNote != 0 {
		return configuredNote
	}
	if n, ok := k.Notes[layerName]; ok {
		return n
	}
	return 36
}

// GetKit returns a kit by name, defaulting to GM if unknown.
func GetKit(name string) Kit {
	if kit, ok := Kits[name]; ok {
		return kit
	}
	return Kits[DefaultKitName]
}
