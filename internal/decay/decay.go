// Package decay implements idle-time mean reversion of the score toward the
// stasis band, scaled by session fatigue. It models growing uncertainty in
// the absence of fresh evidence and runs once per evaluation cycle.
package decay

import "math"

// #region config

// FatigueStep is one row of the session-length fatigue table.
type FatigueStep struct {
	MinTurns   int     `yaml:"min_turns"`
	Multiplier float64 `yaml:"multiplier"`
}

// Config holds mean-reversion tuning.
type Config struct {
	TargetLow   int           `yaml:"target_low"`    // stasis band floor
	TargetHigh  int           `yaml:"target_high"`   // stasis band ceiling
	RatePerUnit float64       `yaml:"rate_per_unit"` // points pulled per idle unit at fatigue 1.0
	UnitSeconds float64       `yaml:"unit_seconds"`  // idle seconds per decay unit
	MaxStep     int           `yaml:"max_step"`      // cap on one cycle's pull
	Fatigue     []FatigueStep `yaml:"fatigue"`
}

// DefaultConfig returns the standard stasis band [80,90] with a gentle pull.
func DefaultConfig() Config {
	return Config{
		TargetLow:   80,
		TargetHigh:  90,
		RatePerUnit: 1.0,
		UnitSeconds: 60,
		MaxStep:     5,
		Fatigue: []FatigueStep{
			{MinTurns: 0, Multiplier: 1.0},
			{MinTurns: 50, Multiplier: 1.25},
			{MinTurns: 150, Multiplier: 1.5},
			{MinTurns: 300, Multiplier: 2.0},
		},
	}
}

// #endregion config

// #region fatigue

// fatigueFor resolves the multiplier for a session turn count against a table
// sorted by ascending MinTurns.
func fatigueFor(totalTurns int, table []FatigueStep) float64 {
	mult := 1.0
	for _, step := range table {
		if totalTurns >= step.MinTurns {
			mult = step.Multiplier
		}
	}
	return mult
}

// #endregion fatigue

// #region apply

// Apply pulls score toward the stasis band. Zero idle time or a score already
// inside the band leaves the score unchanged. The pull never overshoots the
// nearer band edge.
func Apply(score int, idleSeconds float64, totalTurns int, config Config) int {
	if idleSeconds <= 0 {
		return score
	}
	if score >= config.TargetLow && score <= config.TargetHigh {
		return score
	}

	units := idleSeconds / config.UnitSeconds
	pull := int(math.Round(config.RatePerUnit * units * fatigueFor(totalTurns, config.Fatigue)))
	if pull <= 0 {
		return score
	}
	if config.MaxStep > 0 && pull > config.MaxStep {
		pull = config.MaxStep
	}

	if score < config.TargetLow {
		if score+pull > config.TargetLow {
			return config.TargetLow
		}
		return score + pull
	}
	if score-pull < config.TargetHigh {
		return config.TargetHigh
	}
	return score - pull
}

// #endregion apply
