// Package diagnostics accumulates the recoverable half of the spec §7
// error taxonomy: ConstraintUnsatisfiable and EventDropped. Neither ever
// becomes a Go error or aborts the pipeline; both are recorded here and
// surfaced to the caller alongside the generated output.
package diagnostics

import "fmt"

// Kind identifies a recoverable condition.
type Kind string

const (
	ConstraintUnsatisfiable Kind = "ConstraintUnsatisfiable"
	EventDropped            Kind = "EventDropped"
)

// Entry is one recorded occurrence.
type Entry struct {
	Kind    Kind   `json:"kind"`
	Stage   string `json:"stage"`   // "bass", "lead", ...
	Bar     int    `json:"bar"`
	Message string `json:"message"`
}

// Log collects diagnostics entries across a whole generation run. The zero
// value is ready to use.
type Log struct {
	Entries []Entry `json:"entries,omitempty"`
}

// Add appends an entry.
func (l *Log) Add(kind Kind, stage string, bar int, format string, args ...any) {
	l.Entries = append(l.Entries, Entry{
		Kind:    kind,
		Stage:   stage,
		Bar:     bar,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasAny reports whether any diagnostics were recorded, so callers can
// decide whether generation degraded to BestEffort (spec §7).
func (l *Log) HasAny() bool {
	return l != nil && len(l.Entries) > 0
}

// CountKind returns the number of entries of a given kind.
func (l *Log) CountKind(kind Kind) int {
	n := 0
	for _, e := range l.Entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
