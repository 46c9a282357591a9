package timebase

import "testing"

func TestValidateRejectsOutOfRangeFields(t *testing.T) {
	cases := []Timebase{
		{BPM: 30, PPQ: 480, Bars: 8},
		{BPM: 120, PPQ: 500, Bars: 8},
		{BPM: 120, PPQ: 480, Bars: 0},
		{BPM: 120, PPQ: 480, Bars: 200},
	}
	for _, tb := range cases {
		if err := tb.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", tb)
		}
	}
}

func TestValidateAcceptsEachAllowedPPQ(t *testing.T) {
	for _, ppq := range []int{96, 192, 480, 960, 1920} {
		tb := Timebase{BPM: 120, PPQ: ppq, Bars: 8}
		if err := tb.Validate(); err != nil {
			t.Fatalf("expected ppq %d to be valid: %v", ppq, err)
		}
	}
}

func TestStepAndBarTicks(t *testing.T) {
	tb := Timebase{BPM: 120, PPQ: 480, Bars: 4}
	if got := tb.StepTicks(); got != 120 {
		t.Fatalf("expected step ticks 120, got %d", got)
	}
	if got := tb.BarTicks(); got != 1920 {
		t.Fatalf("expected bar ticks 1920, got %d", got)
	}
}

func TestTickAtIsMonotonicWithinAndAcrossBars(t *testing.T) {
	tb := Timebase{BPM: 120, PPQ: 480, Bars: 4}
	if got, want := tb.TickAt(0, 0), int64(0); got != want {
		t.Fatalf("TickAt(0,0) = %d, want %d", got, want)
	}
	if got, want := tb.TickAt(1, 0), tb.BarTicks(); got != want {
		t.Fatalf("TickAt(1,0) = %d, want %d", got, want)
	}
	if got, want := tb.TickAt(0, 15), tb.StepTicks()*15; got != want {
		t.Fatalf("TickAt(0,15) = %d, want %d", got, want)
	}
}

func TestTicksFromMsRoundTripsAgainstBPM(t *testing.T) {
	// One quarter note at 120 bpm lasts exactly 500 ms.
	ticks := TicksFromMs(500, 120, 480)
	if ticks != 480 {
		t.Fatalf("expected 480 ticks for a quarter note at 120bpm/480ppq, got %d", ticks)
	}
}

func TestMicrosPerQuarter(t *testing.T) {
	if got := MicrosPerQuarter(120); got != 500000 {
		t.Fatalf("expected 500000 us/quarter at 120bpm, got %d", got)
	}
}

func TestTotalBarsMirrorsBarsField(t *testing.T) {
	tb := Timebase{BPM: 100, PPQ: 96, Bars: 12}
	if tb.TotalBars() != 12 {
		t.Fatalf("expected TotalBars 12, got %d", tb.TotalBars())
	}
}
