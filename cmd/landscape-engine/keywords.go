// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords <topic>",
	Short: "Preview the search keywords generated for a topic",
	Long: `Keywords prints the keywords a run would use for the topic. With an
Anthropic API key they come from the model; otherwise, or when the model
fails, from the built-in therapeutic-area dictionary. Use --drug for
pipeline-mode keywords.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		topic := strings.Join(args, " ")
		drug, _ := cmd.Flags().GetString("drug")
		indication, _ := cmd.Flags().GetString("indication")

		var kw []string
		if drug != "" {
			kw = a.keywords.PipelineKeywords(drug, indication)
		} else if kw, err = a.keywords.KeywordsFor(cmd.Context(), topic); err != nil {
			return err
		}
		for _, k := range kw {
			fmt.Fprintln(os.Stdout, k)
		}
		return nil
	},
}

func init() {
	keywordsCmd.Flags().String("drug", "", "drug name for pipeline-mode keywords")
	keywordsCmd.Flags().String("indication", "", "indication for pipeline-mode keywords")

	rootCmd.AddCommand(keywordsCmd)
}
