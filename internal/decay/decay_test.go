package decay

import "testing"

func TestApplyZeroIdleUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	for _, score := range []int{0, 40, 80, 85, 90, 100} {
		if got := Apply(score, 0, 10, cfg); got != score {
			t.Fatalf("score %d with zero idle changed to %d", score, got)
		}
	}
}

func TestApplyInsideBandUnchanged(t *testing.T) {
	cfg := DefaultConfig()
	for score := cfg.TargetLow; score <= cfg.TargetHigh; score++ {
		if got := Apply(score, 3600, 10, cfg); got != score {
			t.Fatalf("in-band score %d changed to %d", score, got)
		}
	}
}

func TestApplyPullsTowardBand(t *testing.T) {
	cfg := DefaultConfig()

	// Two idle minutes at fatigue 1.0 pulls 2 points.
	if got := Apply(60, 120, 10, cfg); got != 62 {
		t.Fatalf("pull up = %d, want 62", got)
	}
	if got := Apply(98, 120, 10, cfg); got != 96 {
		t.Fatalf("pull down = %d, want 96", got)
	}

	// Sub-unit idle rounds to no movement.
	if got := Apply(60, 5, 10, cfg); got != 60 {
		t.Fatalf("short idle moved score to %d", got)
	}
}

func TestApplyCapAndNoOvershoot(t *testing.T) {
	cfg := DefaultConfig()

	// An hour idle would pull 60 points; MaxStep caps it at 5.
	if got := Apply(40, 3600, 10, cfg); got != 45 {
		t.Fatalf("capped pull = %d, want 45", got)
	}

	// One point below the band: the pull stops at the band edge.
	if got := Apply(79, 3600, 10, cfg); got != cfg.TargetLow {
		t.Fatalf("pull up overshoot: %d, want %d", got, cfg.TargetLow)
	}
	if got := Apply(92, 3600, 10, cfg); got != cfg.TargetHigh {
		t.Fatalf("pull down overshoot: %d, want %d", got, cfg.TargetHigh)
	}
}

func TestFatigueScalesPull(t *testing.T) {
	cfg := DefaultConfig()

	// Two idle minutes: 2 points at fatigue 1.0, 3 at 1.5, 4 at 2.0.
	if got := Apply(60, 120, 49, cfg); got != 62 {
		t.Fatalf("fresh session pull = %d, want 62", got)
	}
	if got := Apply(60, 120, 150, cfg); got != 63 {
		t.Fatalf("mid session pull = %d, want 63", got)
	}
	if got := Apply(60, 120, 300, cfg); got != 64 {
		t.Fatalf("long session pull = %d, want 64", got)
	}
}
