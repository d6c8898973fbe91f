// Package tier maps the score onto named permission bands. Resolution is a
// pure lookup against a static partition of [0,100]; callers may invoke it
// any number of times per turn.
package tier

import (
	"fmt"
	"sort"
)

// #region capability

// Capability is one permitted action class.
type Capability string

const (
	CapRead             Capability = "read"
	CapScratchWrite     Capability = "scratch_write"
	CapWorkspaceWrite   Capability = "workspace_write"
	CapProductionGated  Capability = "production_write_gated"
	CapProductionDirect Capability = "production_write_unrestricted"
)

// #endregion capability

// #region tier

// Tier is a named permission band over an inclusive score range.
type Tier struct {
	Name         string       `yaml:"name"`
	Min          int          `yaml:"min"`
	Max          int          `yaml:"max"`
	Capabilities []Capability `yaml:"capabilities"`
}

// Allows reports whether the tier grants a capability.
func (t Tier) Allows(cap Capability) bool {
	for _, c := range t.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// #endregion tier

// #region default-tiers

// DefaultTiers returns the standard six-band partition of [0,100].
// Boundaries are inclusive on both ends of each band.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "LOCKDOWN", Min: 0, Max: 9, Capabilities: []Capability{}},
		{Name: "IGNORANCE", Min: 10, Max: 29, Capabilities: []Capability{CapRead}},
		{Name: "HYPOTHESIS", Min: 30, Max: 54, Capabilities: []Capability{CapRead, CapScratchWrite}},
		{Name: "WORKING", Min: 55, Max: 84, Capabilities: []Capability{CapRead, CapScratchWrite, CapWorkspaceWrite}},
		{Name: "VALIDATED", Min: 85, Max: 94, Capabilities: []Capability{CapRead, CapScratchWrite, CapWorkspaceWrite, CapProductionGated}},
		{Name: "AUTONOMOUS", Min: 95, Max: 100, Capabilities: []Capability{CapRead, CapScratchWrite, CapWorkspaceWrite, CapProductionGated, CapProductionDirect}},
	}
}

// #endregion default-tiers

// #region resolver

// Resolver answers score → tier lookups against a validated partition.
type Resolver struct {
	tiers []Tier
}

// NewResolver validates that tiers partition [0,100] with no gap or overlap
// and returns a resolver over them.
func NewResolver(tiers []Tier) (*Resolver, error) {
	if err := ValidatePartition(tiers); err != nil {
		return nil, err
	}
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })
	return &Resolver{tiers: sorted}, nil
}

// Resolve maps a score to its tier. Scores outside [0,100] cannot occur under
// correct clamping; they are pinned to the nearest band rather than guessed.
func (r *Resolver) Resolve(score int) Tier {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	for _, t := range r.tiers {
		if score >= t.Min && score <= t.Max {
			return t
		}
	}
	// Unreachable given a validated partition.
	return r.tiers[len(r.tiers)-1]
}

// Tiers returns the partition in ascending order.
func (r *Resolver) Tiers() []Tier {
	return append([]Tier(nil), r.tiers...)
}

// #endregion resolver

// #region validate

// ValidatePartition checks that tiers cover [0,100] exactly once with unique
// names.
func ValidatePartition(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers defined")
	}
	sorted := append([]Tier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	names := make(map[string]bool, len(sorted))
	for _, t := range sorted {
		if t.Name == "" {
			return fmt.Errorf("tier with empty name")
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate tier name %q", t.Name)
		}
		names[t.Name] = true
		if t.Min > t.Max {
			return fmt.Errorf("tier %q: min %d > max %d", t.Name, t.Min, t.Max)
		}
	}
	if sorted[0].Min != 0 {
		return fmt.Errorf("partition starts at %d, want 0", sorted[0].Min)
	}
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Min != prev.Max+1 {
			return fmt.Errorf("gap or overlap between %q (max %d) and %q (min %d)", prev.Name, prev.Max, cur.Name, cur.Min)
		}
	}
	if sorted[len(sorted)-1].Max != 100 {
		return fmt.Errorf("partition ends at %d, want 100", sorted[len(sorted)-1].Max)
	}
	return nil
}

// #endregion validate
