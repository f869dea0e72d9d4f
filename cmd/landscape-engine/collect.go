// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/landscape-engine/internal/collect"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect <topic>",
	Short: "Collect and filter records without analysis",
	Long: `Collect queries every enabled source, normalizes and merges the records,
and applies the keyword relevance filter. It prints per-source counts and
the relevant records; nothing is analyzed or saved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := requestFromFlags(ctx, cmd, args, a.keywords)
	if err != nil {
		return err
	}
	res, err := a.collector.Collect(ctx, req)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	all, _ := cmd.Flags().GetBool("all")
	formatCollectOutput(req, res, all)
	return nil
}

func formatCollectOutput(req types.ResearchRequest, res *types.CollectionResult, all bool) {
	fmt.Fprintf(os.Stdout, "Keywords: %s\n\n", strings.Join(req.Keywords, ", "))
	fmt.Fprintf(os.Stdout, "%-20s  %7s  %8s  %10s  %7s  %s\n", "Source", "Fetched", "Narrowed", "Normalized", "Skipped", "Status")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, s := range res.Sources {
		status := "ok"
		switch {
		case s.Failed:
			status = "failed: " + s.Err
		case s.Err != "":
			status = "partial: " + s.Err
		}
		fmt.Fprintf(os.Stdout, "%-20s  %7d  %8d  %10d  %7d  %s\n",
			s.Source.Label(), s.Fetched, s.Narrowed, s.Normalized, s.Skipped, status)
	}
	fmt.Fprintf(os.Stdout, "\n%s; condition: %s\n\n", collect.Summary(res), res.Condition())

	records := res.Filtered
	if all {
		records = res.Merged
	}
	if len(records) == 0 {
		fmt.Println("No records.")
		return
	}
	fmt.Fprintf(os.Stdout, "%-12s  %-22s  %-50s  %s\n", "Source", "ID", "Title", "Status/Phase")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for _, r := range records {
		fmt.Fprintf(os.Stdout, "%-12s  %-22s  %-50s  %s\n",
			r.Source, truncate(r.NativeID, 22), truncate(r.Title, 50), r.StatusOrPhase)
	}
	fmt.Fprintf(os.Stdout, "\n%d records\n", len(records))
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	addRequestFlags(collectCmd)
	collectCmd.Flags().Bool("all", false, "list every merged record, not only relevant ones")
	collectCmd.Flags().Bool("json", false, "print the collection result as JSON")

	rootCmd.AddCommand(collectCmd)
}
