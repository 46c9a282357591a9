package density

import (
	"testing"

	"groove-engine/rng"
)

func TestLocalWeightHighNearKick(t *testing.T) {
	kicks := []int{0}
	near := LocalWeight(1, kicks)
	far := LocalWeight(8, kicks)
	if near <= far {
		t.Fatalf("expected step near kick to outweigh far step: near=%f far=%f", near, far)
	}
}

func TestClampToTargetThins(t *testing.T) {
	mask := make([]bool, 16)
	for i := range mask {
		mask[i] = true
	}
	st := rng.Derive(1, "test")
	out := ClampToTarget(mask, 4, 0, []int{0}, st)
	if countOnsets(out) != 4 {
		t.Fatalf("expected exactly 4 onsets, got %d", countOnsets(out))
	}
	// the kick step and its immediate neighbours carry the highest local
	// weight, so they are the last to be removed.
	for _, k := range []int{0, 1, 15} {
		if !out[k] {
			t.Fatalf("expected kick-adjacent step %d to survive thinning", k)
		}
	}
}

func TestClampToTargetFills(t *testing.T) {
	mask := make([]bool, 16)
	mask[0] = true
	st := rng.Derive(1, "test")
	out := ClampToTarget(mask, 4, 0, []int{0}, st)
	if countOnsets(out) != 4 {
		t.Fatalf("expected exactly 4 onsets after filling, got %d", countOnsets(out))
	}
}

func TestClampToTargetWithinToleranceNoOp(t *testing.T) {
	mask := []bool{true, false, true, false}
	st := rng.Derive(1, "test")
	out := ClampToTarget(mask, 2, 1, nil, st)
	if countOnsets(out) != 2 {
		t.Fatalf("expected unchanged onset count, got %d", countOnsets(out))
	}
}

func TestAccentPassNeverMovesOnsetsAndClampsVelocity(t *testing.T) {
	mask := []bool{true, false, true, true}
	st := rng.Derive(1, "test")
	out := AccentPass(mask, 120, 1.0, AccentRandom, st)
	for i, onset := range mask {
		if onset && out[i] == 0 {
			t.Fatalf("expected onset step %d to keep a velocity", i)
		}
		if !onset && out[i] != 0 {
			t.Fatalf("accent pass introduced a new onset at step %d", i)
		}
		if out[i] > 127 {
			t.Fatalf("velocity %d exceeds MIDI max", out[i])
		}
	}
}
