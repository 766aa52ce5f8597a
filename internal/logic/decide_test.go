package logic

import "testing"

func TestDecideLockedClosedIsRedAndResets(t *testing.T) {
	for tick := uint(0); tick < BlinkPeriod; tick++ {
		c, next := Decide(Locked, Closed, tick)
		if c != Red {
			t.Errorf("tick %d: got %s, want red", tick, c)
		}
		if next != 0 {
			t.Errorf("tick %d: next tick got %d, want 0", tick, next)
		}
	}
}

func TestDecideUnlockedIsGreenAndResets(t *testing.T) {
	for _, h := range []HingeState{Open, Closed} {
		for tick := uint(0); tick < BlinkPeriod; tick++ {
			c, next := Decide(Unlocked, h, tick)
			if c != Green {
				t.Errorf("%s tick %d: got %s, want green", h, tick, c)
			}
			if next != 0 {
				t.Errorf("%s tick %d: next tick got %d, want 0", h, tick, next)
			}
		}
	}
}

func TestDecideLockedOpenBlinks(t *testing.T) {
	tests := []struct {
		tick     uint
		wantC    Color
		wantNext uint
	}{
		{0, Red, 1},
		{4, Red, 5},
		{5, Green, 6},
		{9, Green, 0},
	}
	for _, tt := range tests {
		c, next := Decide(Locked, Open, tt.tick)
		if c != tt.wantC || next != tt.wantNext {
			t.Errorf("tick %d: got (%s, %d), want (%s, %d)", tt.tick, c, next, tt.wantC, tt.wantNext)
		}
	}
}

// 1000 iterations of Locked+Open must produce blocks of exactly 5 red
// followed by 5 green.
func TestDecideLockedOpenThousandIterations(t *testing.T) {
	var tick uint
	for i := 0; i < 1000; i++ {
		var c Color
		c, tick = Decide(Locked, Open, tick)

		want := Red
		if (i/5)%2 == 1 {
			want = Green
		}
		if c != want {
			t.Fatalf("iteration %d: got %s, want %s", i, c, want)
		}
	}
}

func TestDecideClosingResetsBlinkPhase(t *testing.T) {
	var tick uint
	for i := 0; i < 7; i++ {
		_, tick = Decide(Locked, Open, tick)
	}
	if tick != 7 {
		t.Fatalf("tick after 7 iterations: got %d, want 7", tick)
	}

	c, tick := Decide(Locked, Closed, tick)
	if c != Red || tick != 0 {
		t.Fatalf("closing: got (%s, %d), want (red, 0)", c, tick)
	}

	// Reopening starts a fresh red phase.
	c, _ = Decide(Locked, Open, tick)
	if c != Red {
		t.Errorf("reopen: got %s, want red", c)
	}
}
