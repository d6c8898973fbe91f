// confidence-replay runs a recorded fixture through the pure engine and
// reports per-turn scores plus any expectation mismatches. Nothing is
// persisted; the tool exists for regression fixtures and tuning experiments.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/confidence-gate/internal/config"
	"github.com/danielpatrickdp/confidence-gate/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	cfgPath := flag.String("config", os.Getenv("CONFIDENCE_CONFIG"), "path to YAML config overlay")
	verbose := flag.Bool("v", false, "print every turn, not just mismatches")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: confidence-replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}
	os.Exit(run(*fixturePath, *cfgPath, *verbose))
}

func run(fixturePath, cfgPath string, verbose bool) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	eng, err := cfg.BuildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		return 2
	}

	fixture, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture: %v\n", err)
		return 2
	}

	if verbose {
		results := replay.ReplayFrom(eng, replay.StartState(eng, fixture), fixture.ToEvents())
		fmt.Printf("%-5s %5s %-12s %-6s %s\n", "turn", "score", "tier", "verdict", "reason")
		for _, r := range results {
			fmt.Printf("%-5d %5d %-12s %-6s %s\n", r.Turn, r.Score, r.Tier, r.Decision, r.Trace.Reason)
		}
	}

	summary := replay.RunFixture(eng, fixture)
	fmt.Printf("%s: %d turns, %d allow / %d deny, final score %d (%s)\n",
		fixture.Description, summary.TotalTurns, summary.Allows, summary.Denies,
		summary.FinalScore, summary.FinalTier)

	if len(summary.Mismatches) > 0 {
		for _, m := range summary.Mismatches {
			fmt.Fprintf(os.Stderr, "mismatch: %s\n", m)
		}
		return 1
	}
	fmt.Println("all expectations met")
	return 0
}

// #endregion main
