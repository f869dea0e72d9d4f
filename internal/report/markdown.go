// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders and persists the artifacts of a finished run.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Document renders the landscape Markdown document: the run
// configuration, the summary, and record counts per source.
func Document(a types.Artifacts, generated time.Time) string {
	var b strings.Builder
	req := a.Request

	b.WriteString("# Competitive Landscape Summary\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", generated.Format("2006-01-02 15:04:05"))

	b.WriteString("## Research Configuration\n\n")
	fmt.Fprintf(&b, "- **Research Topic**: %s\n", req.Topic)
	fmt.Fprintf(&b, "- **Research Type**: %s\n", modeLabel(req.Mode))
	if req.Mode == types.ModePipeline {
		fmt.Fprintf(&b, "- **Drug**: %s\n", req.DrugName)
		if req.Indication != "" {
			fmt.Fprintf(&b, "- **Indication**: %s\n", req.Indication)
		}
	}
	fmt.Fprintf(&b, "- **Keywords Used**: %s\n", strings.Join(req.Keywords, ", "))
	if a.RunID != "" {
		fmt.Fprintf(&b, "- **Run ID**: %s\n", a.RunID)
	}

	b.WriteString("\n## Overview\n\n")
	b.WriteString(strings.TrimSpace(a.Summary))
	b.WriteString("\n\n## Data Sources Summary\n\n")

	b.WriteString("| Source | Records | Status |\n|---|---:|---|\n")
	for _, s := range a.Sources {
		fmt.Fprintf(&b, "| %s | %d | %s |\n", s.Source.Label(), a.Counts[s.Source], sourceState(s))
	}
	return b.String()
}

func modeLabel(m types.ResearchMode) string {
	if m == types.ModePipeline {
		return "Pipeline"
	}
	return "Topic"
}

func sourceState(s types.SourceStatus) string {
	switch {
	case s.Failed:
		return "unavailable"
	case s.Err != "":
		return "partial"
	default:
		return "ok"
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts Markdown into a standalone HTML page.
func RenderHTML(title, md string) (string, error) {
	var content bytes.Buffer
	if err := markdown.Convert([]byte(md), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>body{font-family:system-ui,sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem;line-height:1.5;color:#1c1917;} " +
		"table{border-collapse:collapse;} th,td{border:1px solid #a8a29e;padding:0.3rem 0.5rem;text-align:left;} " +
		"h1,h2{border-bottom:1px solid #e7e5e4;padding-bottom:0.2rem;}</style></head><body>" +
		content.String() +
		"</body></html>", nil
}
