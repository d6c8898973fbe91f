package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/confidence-gate/internal/rpc"
	"github.com/danielpatrickdp/confidence-gate/internal/tier"
)

// #region status

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session snapshot",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if daemonAddr != "" {
		return remoteStatus()
	}

	store, eng, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.GetStatus()
	if err != nil {
		return err
	}
	resolved := eng.Resolver().Resolve(st.Score)

	fmt.Printf("Session %s\n", st.SessionID)
	fmt.Println(strings.Repeat("-", 52))
	fmt.Printf("  score         %d\n", st.Score)
	fmt.Printf("  tier          %s\n", resolved.Name)
	fmt.Printf("  capabilities  %s\n", joinCaps(resolved))
	fmt.Printf("  turn          %d\n", st.Turn)
	fmt.Printf("  streak        %d (x%.2f)\n", st.StreakCount, st.StreakMult)
	if !st.LastActivity.IsZero() {
		fmt.Printf("  last activity %s\n", st.LastActivity.Format(time.RFC3339))
	}
	return nil
}

func remoteStatus() error {
	client, err := rpc.NewClient(daemonAddr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rpc.DefaultCallTimeout)
	defer cancel()
	info, err := client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s\n", info.SessionID)
	fmt.Println(strings.Repeat("-", 52))
	fmt.Printf("  score   %d\n", info.Score)
	fmt.Printf("  tier    %s\n", info.Tier)
	fmt.Printf("  turn    %d\n", info.Turn)
	fmt.Printf("  streak  %d (x%.2f)\n", info.StreakCount, info.StreakMult)
	return nil
}

// #endregion status

// #region history

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent decisions, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max rows to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	decisions, err := store.ListDecisions(historyLimit)
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		fmt.Println("no decisions recorded")
		return nil
	}

	fmt.Printf("%-5s %-14s %5s %5s %-12s %-6s %s\n", "turn", "tool", "from", "to", "tier", "verdict", "reason")
	for _, d := range decisions {
		tool := d.Tool
		if tool == "" {
			tool = "-"
		}
		fmt.Printf("%-5d %-14s %5d %5d %-12s %-6s %s\n",
			d.Turn, truncate(tool, 14), d.ScoreBefore, d.ScoreAfter, d.Tier, d.Decision, truncate(d.Reason, 60))
	}
	return nil
}

// #endregion history

// #region dispute

var disputeReason string

var disputeCmd = &cobra.Command{
	Use:   "dispute <signal>",
	Short: "Record a false-positive claim against a signal",
	Long: `Record a dispute against a signal. The score is never retroactively
adjusted; each dispute lengthens the signal's effective cooldown so a noisy
detector fires less often.`,
	Args: cobra.ExactArgs(1),
	RunE: runDispute,
}

func init() {
	disputeCmd.Flags().StringVar(&disputeReason, "reason", "", "why the firing was wrong")
}

func runDispute(cmd *cobra.Command, args []string) error {
	signalName := args[0]
	if daemonAddr != "" {
		client, err := rpc.NewClient(daemonAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), rpc.DefaultCallTimeout)
		defer cancel()
		id, err := client.Dispute(ctx, signalName, disputeReason)
		if err != nil {
			return err
		}
		fmt.Printf("dispute %s recorded against %s\n", id, signalName)
		return nil
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.RecordDispute(signalName, disputeReason)
	if err != nil {
		return err
	}
	fmt.Printf("dispute %s recorded against %s\n", rec.DisputeID, rec.Signal)
	return nil
}

// #endregion dispute

// #region reset

var resetReason string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the session back to defaults",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetReason, "reason", "manual reset", "audit reason")
}

func runReset(cmd *cobra.Command, args []string) error {
	if daemonAddr != "" {
		client, err := rpc.NewClient(daemonAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), rpc.DefaultCallTimeout)
		defer cancel()
		if err := client.Reset(ctx, resetReason); err != nil {
			return err
		}
		fmt.Println("session reset")
		return nil
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Reset(resetReason); err != nil {
		return err
	}
	fmt.Println("session reset")
	return nil
}

// #endregion reset

// #region helpers

func joinCaps(t tier.Tier) string {
	if len(t.Capabilities) == 0 {
		return "none"
	}
	names := make([]string, len(t.Capabilities))
	for i, c := range t.Capabilities {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// #endregion helpers
