// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/landscape-engine/internal/archive"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Search and export archived runs",
	Long: `Archive queries the SQLite run archive written when output.archive_path
is set. Every finished run stores its merged records and analyses with a
full-text index over titles, analyses and raw payloads.`,
}

var archiveSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over archived records",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		q := archiveQueryFromFlags(cmd, args)
		if q.Text == "" && q.Source == "" && q.RunID == "" {
			return fmt.Errorf("query or filter required: provide a search query, --source, or --run")
		}
		hits, err := store.Search(cmd.Context(), q)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}
		formatHits(hits)
		return nil
	},
}

var archiveRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No archived runs.")
			return nil
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-30s  %-8s  %7s  %s\n", "Run", "Topic", "Mode", "Records", "Finished")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
		for _, r := range runs {
			fmt.Fprintf(os.Stdout, "%-36s  %-30s  %-8s  %7d  %s\n",
				r.RunID, truncate(r.Topic, 30), r.Mode, r.RecordCount, r.FinishedAt)
		}
		return nil
	},
}

var archiveExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export archived records to stdout as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		format, _ := cmd.Flags().GetString("format")
		return store.Export(cmd.Context(), os.Stdout, archiveQueryFromFlags(cmd, args), format)
	},
}

// openArchive opens the configured archive without building the rest of
// the application.
func openArchive() (*archive.Store, func(), error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	if a.archive == nil {
		a.close()
		return nil, nil, types.ConfigError("output.archive_path is not set")
	}
	return a.archive, a.close, nil
}

func archiveQueryFromFlags(cmd *cobra.Command, args []string) archive.Query {
	src, _ := cmd.Flags().GetString("source")
	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")
	return archive.Query{
		Text:       strings.Join(args, " "),
		Source:     types.SourceID(src),
		RunID:      runID,
		MaxResults: limit,
	}
}

func formatHits(hits []archive.Hit) {
	if len(hits) == 0 {
		fmt.Println("No results found.")
		return
	}
	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-22s  %-50s  %s\n", "Rank", "Source", "ID", "Title", "Topic")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))
	for i, h := range hits {
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-22s  %-50s  %s\n",
			i+1, h.Source, truncate(h.NativeID, 22), truncate(h.Title, 50), h.Topic)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
}

func init() {
	for _, c := range []*cobra.Command{archiveSearchCmd, archiveExportCmd} {
		c.Flags().String("source", "", "filter by source: trials, literature, regulatory")
		c.Flags().String("run", "", "filter by run id")
	}
	archiveSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	archiveSearchCmd.Flags().Bool("json", false, "output results as JSON")
	archiveRunsCmd.Flags().Int("limit", 20, "maximum runs to list")
	archiveExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	archiveCmd.AddCommand(archiveSearchCmd)
	archiveCmd.AddCommand(archiveRunsCmd)
	archiveCmd.AddCommand(archiveExportCmd)

	rootCmd.AddCommand(archiveCmd)
}
