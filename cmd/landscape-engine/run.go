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

	"github.com/pdiddy/landscape-engine/internal/pipeline"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Run a full competitive landscape research",
	Long: `Run collects records for the topic from every enabled source, keeps the
relevant ones, analyzes up to the analysis cap, summarizes them and writes
the raw data, analyses and landscape report to the output directory.

Progress is printed to stderr. Without --keywords, keywords are generated
from the topic (AI when configured, otherwise the built-in dictionary).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func runResearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		a.cfg.Output.Dir = dir
	}
	if cmd.Flags().Changed("html") {
		a.cfg.Output.HTML, _ = cmd.Flags().GetBool("html")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := requestFromFlags(ctx, cmd, args, a.keywords)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Keywords: %s\n", strings.Join(req.Keywords, ", "))

	runner, err := a.runner()
	if err != nil {
		return err
	}
	out := runner.Run(ctx, req, pipeline.ProgressFunc(func(p types.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %-11s %s\n", p.Percent, p.Stage, p.Message)
	}))

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		printOutcome(out)
	}

	if out.Status == types.StatusError {
		return fmt.Errorf("run %s failed: %s", out.RunID, out.Message)
	}
	return nil
}

func printOutcome(out types.RunOutcome) {
	fmt.Fprintf(os.Stdout, "Run:     %s\n", out.RunID)
	fmt.Fprintf(os.Stdout, "Status:  %s\n", out.Status)
	fmt.Fprintf(os.Stdout, "Message: %s\n", out.Message)
	if out.AnalysisTruncated {
		fmt.Fprintf(os.Stdout, "Note:    analysis limited to %d records\n", len(out.Analyses))
	}
	if out.SummaryFallback {
		fmt.Fprintln(os.Stdout, "Note:    statistical summary (AI summary unavailable)")
	}
	for _, line := range []struct{ label, path string }{
		{"Raw data", out.Saved.RawData},
		{"Analyses", out.Saved.Analyses},
		{"Summary", out.Saved.Summary},
		{"HTML", out.Saved.HTML},
	} {
		if line.path != "" {
			fmt.Fprintf(os.Stdout, "%-9s%s\n", line.label+":", line.path)
		}
	}
	if out.Saved.ArchiveID != 0 {
		fmt.Fprintf(os.Stdout, "Archive: #%d\n", out.Saved.ArchiveID)
	}
}

func init() {
	addRequestFlags(runCmd)
	runCmd.Flags().String("output-dir", "", "directory for result files (overrides output.dir)")
	runCmd.Flags().Bool("html", false, "also render the report as HTML")
	runCmd.Flags().Bool("json", false, "print the run outcome as JSON")

	rootCmd.AddCommand(runCmd)
}
