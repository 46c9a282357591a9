package euclid

import (
	"testing"

	"groove-engine/config"
	"groove-engine/rng"
)

func onsetSteps(m Mask) []int {
	var out []int
	for i, v := range m {
		if v {
			out = append(out, i)
		}
	}
	return out
}

func TestBjorklundFourOnSixteen(t *testing.T) {
	m := Bjorklund(16, 4)
	got := onsetSteps(m)
	want := []int{3, 7, 11, 15}
	if !equalInts(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBjorklundTresillo(t *testing.T) {
	m := Bjorklund(8, 3)
	got := onsetSteps(m)
	want := []int{1, 4, 7}
	if !equalInts(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestBjorklundZeroFills(t *testing.T) {
	m := Bjorklund(16, 0)
	if len(onsetSteps(m)) != 0 {
		t.Fatalf("expected no onsets")
	}
}

func TestBjorklundAllFills(t *testing.T) {
	m := Bjorklund(8, 8)
	if len(onsetSteps(m)) != 8 {
		t.Fatalf("expected all steps onset")
	}
}

func TestRotatePreservesOnsetCount(t *testing.T) {
	m := Bjorklund(16, 4)
	r := Rotate(m, 3)
	if len(onsetSteps(r)) != len(onsetSteps(m)) {
		t.Fatalf("rotation changed onset count")
	}
}

func TestRotationOffsetClamped(t *testing.T) {
	off := RotationOffset(5.0, 10, 0, 1.0)
	maxAbs := 1.0 * 11
	if float64(off) > maxAbs {
		t.Fatalf("rotation offset %d exceeded clamp %f", off, maxAbs)
	}
}

type fakeHistory map[string]map[int]bool

func (h fakeHistory) PriorOnset(layer string, step int) bool {
	return h[layer][step]
}

func TestApplyConditionsFill(t *testing.T) {
	m := Bjorklund(16, 4)
	conds := []config.Condition{{Kind: config.CondFill}}
	st := rng.Derive(1, "test")

	notFinal := ApplyConditions(m, 0, conds, st, nil, 4)
	if len(onsetSteps(notFinal)) != 0 {
		t.Fatalf("expected FILL to clear non-final bar")
	}
	final := ApplyConditions(m, 3, conds, st, nil, 4)
	if len(onsetSteps(final)) != len(onsetSteps(m)) {
		t.Fatalf("expected FILL to keep final bar intact")
	}
}

func TestApplyConditionsPre(t *testing.T) {
	m := Bjorklund(16, 4) // onsets at 3, 7, 11, 15
	conds := []config.Condition{{Kind: config.CondPre, Layer: "kick"}}
	st := rng.Derive(1, "test")
	hist := fakeHistory{"kick": {3: true, 11: true}}

	out := ApplyConditions(m, 1, conds, st, hist, 4)
	got := onsetSteps(out)
	want := []int{3, 11}
	if !equalInts(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestApplyConditionsEveryN(t *testing.T) {
	m := Bjorklund(16, 4)
	conds := []config.Condition{{Kind: config.CondEveryN, N: 2, Offset: 0}}
	st := rng.Derive(1, "test")

	evenBar := ApplyConditions(m, 2, conds, st, nil, 4)
	oddBar := ApplyConditions(m, 3, conds, st, nil, 4)
	if len(onsetSteps(evenBar)) == 0 {
		t.Fatalf("expected even bar to keep onsets")
	}
	if len(onsetSteps(oddBar)) != 0 {
		t.Fatalf("expected odd bar to clear onsets")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
