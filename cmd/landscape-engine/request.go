// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/landscape-engine/internal/keywords"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// addRequestFlags registers the flags that describe a research request.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "topic", "research mode: topic or pipeline")
	cmd.Flags().String("drug", "", "drug name (pipeline mode; defaults to the topic)")
	cmd.Flags().String("indication", "", "indication to narrow results (pipeline mode)")
	cmd.Flags().String("keywords", "", "comma-separated keywords (default: generated from the topic)")
}

// requestFromFlags builds a validated request from args and flags,
// generating keywords through kp when none are given.
func requestFromFlags(ctx context.Context, cmd *cobra.Command, args []string, kp *keywords.ModelProvider) (types.ResearchRequest, error) {
	topic := strings.TrimSpace(strings.Join(args, " "))
	modeFlag, _ := cmd.Flags().GetString("mode")
	drug, _ := cmd.Flags().GetString("drug")
	indication, _ := cmd.Flags().GetString("indication")
	kwFlag, _ := cmd.Flags().GetString("keywords")

	mode := types.ResearchMode(strings.ToLower(modeFlag))
	if mode == types.ModePipeline && strings.TrimSpace(drug) == "" {
		drug = topic
	}

	var kw []string
	for _, k := range strings.Split(kwFlag, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	if len(kw) == 0 && topic != "" {
		var err error
		if mode == types.ModePipeline {
			kw = kp.PipelineKeywords(drug, indication)
		} else if kw, err = kp.KeywordsFor(ctx, topic); err != nil {
			fmt.Fprintf(os.Stderr, "warning: keyword generation failed: %v\n", err)
		}
		if len(kw) == 0 {
			kw = []string{strings.ToLower(topic)}
		}
	}

	req, err := types.NewResearchRequest(topic, mode, drug, indication, kw)
	if err != nil {
		return req, types.ConfigError("%v", err)
	}
	return req, nil
}
