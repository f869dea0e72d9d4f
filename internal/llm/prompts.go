// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

const analysisSystemPrompt = "You are a pharmaceutical competitive intelligence analyst. Be concise and factual; do not invent data that is not in the record."

const summarySystemPrompt = "You are a senior pharmaceutical competitive intelligence analyst writing for business development executives. Use Markdown headings and bullet lists."

var analysisTemplate = template.Must(template.New("analysis").Parse(`Analyze this {{.Kind}} record for the research topic "{{.Topic}}" and provide insights.
Title: {{.Title}}
{{- range .Fields}}
{{.Name}}: {{.Value}}
{{- end}}

Please provide:
1. Key therapeutic focus
2. Potential market impact
3. Competitive positioning
4. Risk assessment
`))

var summaryTemplate = template.Must(template.New("summary").Parse(`Based on the following data about "{{.Topic}}", provide a comprehensive competitive intelligence summary.

RECORD DATA:
{{- range .Lines}}
{{.}}
{{- end}}

ANALYSIS CONTEXT:
Total records: {{.Total}}
Unique sponsors: {{.Sponsors}}
Phases represented: {{.Phases}}
Status distribution: {{.Statuses}}

Provide a detailed competitive landscape analysis with these sections:

## Executive Summary
Overall market dynamics, key indications, significant developments, market maturity.

## Competitive Analysis
Major companies and their strategic focus, pipeline depth, most advanced candidates, emerging players.

## Market Opportunities
Underserved areas, partnership opportunities, investment priorities, regulatory considerations.

## Risk Assessment
Competitive threats, clinical development risks, market entry barriers, reimbursement challenges.

Format as a professional report with actionable insights.
`))

type promptField struct {
	Name  string
	Value string
}

type analysisPromptData struct {
	Kind   string
	Topic  string
	Title  string
	Fields []promptField
}

type summaryPromptData struct {
	Topic    string
	Lines    []string
	Total    int
	Sponsors int
	Phases   string
	Statuses string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// appendField adds name only when at least one value is non-blank.
func appendField(fields []promptField, name string, values ...string) []promptField {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return fields
	}
	return append(fields, promptField{Name: name, Value: strings.Join(kept, ", ")})
}
