package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examdiag/internal/store"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect logged oracle calls",
}

// openCallLog opens the configured store. Unlike serve and diagnose, the
// calls commands need a real DSN.
func openCallLog(cmd *cobra.Command) (store.EventRepo, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.DSN == "" {
		return nil, nil, fmt.Errorf("no call log configured: set store.dsn, EXAMDIAG_STORE_DSN or --dsn")
	}
	return openStore(cmd.Context(), cfg)
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent oracle calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		batchID, _ := cmd.Flags().GetString("batch")

		repo, closeStore, err := openCallLog(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		calls, err := repo.QueryOracleCalls(cmd.Context(), store.QueryOpts{
			Limit:   limit,
			Purpose: purpose,
			BatchID: batchID,
		})
		if err != nil {
			return fmt.Errorf("query calls: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(calls) == 0 {
			fmt.Fprintln(out, "No oracle calls found.")
			return nil
		}
		printCallList(out, calls)
		return nil
	},
}

func printCallList(out io.Writer, calls []store.OracleCall) {
	fmt.Fprintf(out, "%-5s  %-19s  %-8s  %-18s  %-24s  %-6s  %-6s  %-7s  %s\n",
		"ID", "Timestamp", "Batch", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(out, strings.Repeat("─", 110))

	for _, c := range calls {
		ok := "✓"
		if !c.Success {
			ok = "✗"
		}
		fmt.Fprintf(out, "%-5d  %-19s  %-8s  %-18s  %-24s  %-6d  %-6d  %-7d  %s\n",
			c.ID,
			c.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(c.BatchID, 8),
			truncate(c.Purpose, 18),
			truncate(c.Model, 24),
			c.InputTokens,
			c.OutputTokens,
			c.LatencyMs,
			ok,
		)
	}
}

var callsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View the full request and response of an oracle call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		repo, closeStore, err := openCallLog(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		c, err := repo.GetOracleCall(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get call: %w", err)
		}
		if c == nil {
			return fmt.Errorf("call %d not found", id)
		}
		printCall(cmd.OutOrStdout(), c)
		return nil
	},
}

func printCall(out io.Writer, c *store.OracleCall) {
	sep := strings.Repeat("─", 60)

	fmt.Fprintf(out, "ID:        %d\n", c.ID)
	fmt.Fprintf(out, "Time:      %s\n", c.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Batch:     %s\n", c.BatchID)
	fmt.Fprintf(out, "Provider:  %s\n", c.Provider)
	fmt.Fprintf(out, "Model:     %s\n", c.Model)
	fmt.Fprintf(out, "Purpose:   %s\n", c.Purpose)
	fmt.Fprintf(out, "Tokens:    %d in / %d out\n", c.InputTokens, c.OutputTokens)
	fmt.Fprintf(out, "Latency:   %dms\n", c.LatencyMs)
	fmt.Fprintf(out, "Success:   %v\n", c.Success)
	if c.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", c.ErrorMessage)
	}

	for _, section := range []struct{ title, body string }{
		{"REQUEST", c.RequestBody},
		{"RESPONSE", c.ResponseBody},
	} {
		fmt.Fprintln(out)
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, section.title)
		fmt.Fprintln(out, sep)
		if section.body != "" {
			fmt.Fprintln(out, section.body)
		} else {
			fmt.Fprintln(out, "(not captured)")
		}
	}
}

var callsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated oracle token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeStore, err := openCallLog(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		stats, err := repo.UsageByPurpose(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(stats) == 0 {
			fmt.Fprintln(out, "No oracle usage recorded yet.")
			return nil
		}
		printUsage(out, stats)
		return nil
	},
}

func printUsage(out io.Writer, stats []store.PurposeUsage) {
	line := strings.Repeat("─", 80)
	fmt.Fprintln(out, "Usage by Purpose")
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%-18s  %6s  %6s  %10s  %10s  %10s  %8s\n",
		"Purpose", "Calls", "Failed", "Input", "Output", "Total", "Avg Ms")
	fmt.Fprintln(out, line)

	var totalCalls, totalFailed, totalIn, totalOut int
	for _, st := range stats {
		fmt.Fprintf(out, "%-18s  %6d  %6d  %10d  %10d  %10d  %8d\n",
			truncate(st.Purpose, 18), st.Calls, st.Failures, st.InputTokens, st.OutputTokens,
			st.InputTokens+st.OutputTokens, st.AvgLatencyMs)
		totalCalls += st.Calls
		totalFailed += st.Failures
		totalIn += st.InputTokens
		totalOut += st.OutputTokens
	}

	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%-18s  %6d  %6d  %10d  %10d  %10d\n",
		"TOTAL", totalCalls, totalFailed, totalIn, totalOut, totalIn+totalOut)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	callsListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	callsListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. answer-judgement)")
	callsListCmd.Flags().StringP("batch", "b", "", "Filter by batch ID")

	callsCmd.AddCommand(callsListCmd)
	callsCmd.AddCommand(callsViewCmd)
	callsCmd.AddCommand(callsStatsCmd)
}
