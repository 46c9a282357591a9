package rng

import "testing"

func TestDeriveIsDeterministic(t *testing.T) {
	a := Derive(42, "drum", "kick", 3)
	b := Derive(42, "drum", "kick", 3)

	for i := 0; i < 100; i++ {
		va, vb := a.Uint64(), b.Uint64()
		if va != vb {
			t.Fatalf("step %d: diverged: %d != %d", i, va, vb)
		}
	}
}

func TestDeriveDistinguishesTags(t *testing.T) {
	a := Derive(42, "drum", "kick", 0)
	b := Derive(42, "drum", "kick", 1)
	if a.Uint64() == b.Uint64() {
		t.Fatalf("different bar index produced identical first draw")
	}
}

func TestDeriveAvoidsTagConcatenationCollision(t *testing.T) {
	a := Derive(1, "a", "b")
	b := Derive(1, "ab")
	if a.Uint64() == b.Uint64() {
		t.Fatalf("tag concatenation collided")
	}
}

func TestIntRangeBounds(t *testing.T) {
	st := Derive(7, "test")
	for i := 0; i < 1000; i++ {
		v := st.IntRange(3, 9)
		if v < 3 || v > 9 {
			t.Fatalf("IntRange out of bounds: %d", v)
		}
	}
}

func TestBernoulliEdges(t *testing.T) {
	st := Derive(7, "test")
	for i := 0; i < 10; i++ {
		if st.Bernoulli(0) {
			t.Fatalf("p=0 returned true")
		}
		if !st.Bernoulli(1) {
			t.Fatalf("p=1 returned false")
		}
	}
}

func TestWeightedChoiceEmpty(t *testing.T) {
	st := Derive(7, "test")
	if got := st.WeightedChoice(nil); got != -1 {
		t.Fatalf("expected -1 for empty weights, got %d", got)
	}
	if got := st.WeightedChoice([]float64{0, -1, 0}); got != -1 {
		t.Fatalf("expected -1 for all-nonpositive weights, got %d", got)
	}
}

func TestWeightedChoiceDistribution(t *testing.T) {
	st := Derive(7, "test")
	counts := make([]int, 3)
	weights := []float64{1, 0, 3}
	for i := 0; i < 4000; i++ {
		idx := st.WeightedChoice(weights)
		if idx < 0 || idx >= 3 {
			t.Fatalf("index out of range: %d", idx)
		}
		counts[idx]++
	}
	if counts[1] != 0 {
		t.Fatalf("zero-weight index was chosen %d times", counts[1])
	}
	if counts[2] < counts[0] {
		t.Fatalf("higher-weight index chosen less often: %v", counts)
	}
}

func TestTruncNormalClamped(t *testing.T) {
	st := Derive(7, "test")
	for i := 0; i < 1000; i++ {
		v := st.TruncNormal(0, 100, -1, 1)
		if v < -1 || v > 1 {
			t.Fatalf("TruncNormal escaped clamp: %f", v)
		}
	}
}
