// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// FallbackSummarizer renders the statistical summary without a model.
type FallbackSummarizer struct{}

// Summarize never fails.
func (FallbackSummarizer) Summarize(_ context.Context, req types.ResearchRequest, analyses []types.Analysis) (string, error) {
	return FallbackSummary(req, analyses), nil
}

type count struct {
	name string
	n    int
}

type stats struct {
	sponsors, phases, statuses, sources map[string]int
}

func tally(analyses []types.Analysis) stats {
	st := stats{
		sponsors: map[string]int{},
		phases:   map[string]int{},
		statuses: map[string]int{},
		sources:  map[string]int{},
	}
	for _, a := range analyses {
		st.sponsors[orUnknown(a.Sponsor)]++
		st.phases[orUnknown(a.Phase)]++
		st.statuses[orUnknown(a.Status)]++
		st.sources[a.Source.Label()]++
	}
	return st
}

// ranked sorts by count descending, then name.
func ranked(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].name < out[j].name
	})
	return out
}

func keys(m map[string]int) []string {
	var out []string
	for _, c := range ranked(m) {
		out = append(out, c.name)
	}
	return out
}

func topName(cs []count, def string) string {
	if len(cs) == 0 {
		return def
	}
	return cs[0].name
}

// FallbackSummary builds a Markdown landscape report from sponsor, phase,
// and status counts. It is used whenever the model is unavailable.
func FallbackSummary(req types.ResearchRequest, analyses []types.Analysis) string {
	if len(analyses) == 0 {
		return "No record analyses available for summary generation."
	}

	st := tally(analyses)
	sponsors := ranked(st.sponsors)
	phases := ranked(st.phases)
	statuses := ranked(st.statuses)
	top := sponsors
	if len(top) > 5 {
		top = top[:5]
	}

	var b strings.Builder
	title := "Competitive Landscape Summary"
	if req.Topic != "" {
		title = "Competitive Landscape: " + req.Topic
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Executive Summary\n")
	fmt.Fprintf(&b, "Analysis of %d records reveals a competitive landscape with %d unique sponsors. ",
		len(analyses), len(sponsors))
	fmt.Fprintf(&b, "%s is the most common development phase, and %s is the most common status.\n\n",
		topName(phases, "Unknown"), topName(statuses, "Unknown"))

	b.WriteString("## Competitive Analysis\n")
	b.WriteString("**Top Sponsors by Record Count:**\n")
	for _, c := range top {
		fmt.Fprintf(&b, "- %s: %d records\n", c.name, c.n)
	}
	b.WriteString("\n**Phase Distribution:**\n")
	for _, c := range phases {
		fmt.Fprintf(&b, "- %s: %d records\n", c.name, c.n)
	}
	b.WriteString("\n**Status Distribution:**\n")
	for _, c := range statuses {
		fmt.Fprintf(&b, "- %s: %d records\n", c.name, c.n)
	}
	b.WriteString("\n**Records by Source:**\n")
	for _, c := range ranked(st.sources) {
		fmt.Fprintf(&b, "- %s: %d records\n", c.name, c.n)
	}

	b.WriteString("\n## Market Opportunities\n")
	fmt.Fprintf(&b, "- Monitor %s for partnership opportunities\n", topName(top, "leading sponsors"))
	fmt.Fprintf(&b, "- Focus on %s development phases\n", topName(phases, "the most active"))
	b.WriteString("- Track emerging therapeutic approaches and mechanisms\n")

	b.WriteString("\n## Risk Assessment\n")
	b.WriteString("- Competitive intensity varies by therapeutic area\n")
	b.WriteString("- Clinical development timelines and success rates\n")
	b.WriteString("- Regulatory approval pathways and market access\n")

	b.WriteString("\n*Note: This summary was generated from record statistics because AI summarization was unavailable.*\n")
	return b.String()
}
