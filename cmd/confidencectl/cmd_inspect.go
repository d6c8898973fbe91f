package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// #region disputes

var disputesCmd = &cobra.Command{
	Use:   "disputes",
	Short: "List the append-only dispute ledger",
	RunE:  runDisputes,
}

func runDisputes(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ledger, err := store.ListDisputes()
	if err != nil {
		return err
	}
	if len(ledger) == 0 {
		fmt.Println("no disputes recorded")
		return nil
	}
	fmt.Printf("%-36s %-20s %-20s %s\n", "id", "signal", "recorded", "reason")
	for _, d := range ledger {
		fmt.Printf("%-36s %-20s %-20s %s\n",
			d.DisputeID, d.Signal, d.CreatedAt.Format(time.RFC3339), d.Reason)
	}
	return nil
}

// #endregion disputes

// #region signals

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List the signal catalog with effective tuning",
	RunE:  runSignals,
}

func runSignals(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := cfg.BuildEngine()
	if err != nil {
		return err
	}

	catalog := eng.Catalog()
	fmt.Printf("%d signals\n", catalog.Len())
	fmt.Printf("%-20s %-10s %6s %9s\n", "name", "class", "delta", "cooldown")
	for _, name := range catalog.Names() {
		s, _ := catalog.Lookup(name)
		fmt.Printf("%-20s %-10s %+6d %9d\n", s.Name, s.Class, s.Delta, s.Cooldown)
	}
	return nil
}

// #endregion signals

// #region tiers

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the tier ladder and its capabilities",
	RunE:  runTiers,
}

func runTiers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := cfg.BuildEngine()
	if err != nil {
		return err
	}

	fmt.Printf("%-12s %-9s %s\n", "tier", "range", "capabilities")
	for _, t := range eng.Resolver().Tiers() {
		fmt.Printf("%-12s %3d-%-5d %s\n", t.Name, t.Min, t.Max, joinCaps(t))
	}
	return nil
}

// #endregion tiers
