// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Analyzer produces a short analysis of one record.
type Analyzer interface {
	Analyze(ctx context.Context, topic string, rec *types.DataRecord) (types.Analysis, error)
}

// analysisMaxTokens bounds a per-record analysis reply.
const analysisMaxTokens = 1024

// ModelAnalyzer asks the model for each record's analysis. Calls are
// guarded by the shared breaker.
type ModelAnalyzer struct {
	client  *Client
	breaker *Breaker
	log     logger.Logger
}

// NewModelAnalyzer returns an analyzer over client guarded by b.
func NewModelAnalyzer(client *Client, b *Breaker, log logger.Logger) *ModelAnalyzer {
	if log == nil {
		log = logger.NewNop()
	}
	if b == nil {
		b = &Breaker{}
	}
	return &ModelAnalyzer{client: client, breaker: b, log: log}
}

// Analyze returns the model's analysis of rec. On any failure it returns
// the error and callers fall back to BasicAnalysis.
func (a *ModelAnalyzer) Analyze(ctx context.Context, topic string, rec *types.DataRecord) (types.Analysis, error) {
	out := BasicAnalysis(rec)
	prompt, err := render(analysisTemplate, analysisPrompt(topic, rec))
	if err != nil {
		return out, err
	}

	var text string
	err = a.breaker.Guard("analyze", func() error {
		var err error
		text, err = a.client.Complete(ctx, analysisSystemPrompt, prompt, analysisMaxTokens)
		return err
	})
	if err != nil {
		a.log.Warn("record analysis failed", logger.String("record", rec.Key()), logger.Err(err))
		return out, err
	}
	out.Text = text
	out.Fallback = false
	return out, nil
}

func analysisPrompt(topic string, rec *types.DataRecord) analysisPromptData {
	d := analysisPromptData{Topic: topic, Title: rec.Title}
	switch {
	case rec.Trial != nil:
		t := rec.Trial
		d.Kind = "clinical trial"
		d.Fields = appendField(d.Fields, "Trial ID", t.NCTID)
		d.Fields = appendField(d.Fields, "Phase", t.Phases...)
		d.Fields = appendField(d.Fields, "Status", t.OverallStatus)
		d.Fields = appendField(d.Fields, "Sponsor", t.LeadSponsor)
		d.Fields = appendField(d.Fields, "Conditions", t.Conditions...)
		d.Fields = appendField(d.Fields, "Interventions", t.Interventions...)
	case rec.Article != nil:
		a := rec.Article
		d.Kind = "scientific publication"
		d.Fields = appendField(d.Fields, "PMID", a.PMID)
		d.Fields = appendField(d.Fields, "Journal", a.Journal)
		d.Fields = appendField(d.Fields, "Authors", firstN(a.Authors, 5)...)
		d.Fields = appendField(d.Fields, "MeSH terms", a.MeshTerms...)
		d.Fields = appendField(d.Fields, "Abstract", truncate(a.Abstract, 1500))
	case rec.Regulatory != nil:
		r := rec.Regulatory
		d.Kind = "FDA " + string(r.Kind)
		d.Fields = appendField(d.Fields, "Brand names", r.BrandNames...)
		d.Fields = appendField(d.Fields, "Generic names", r.GenericNames...)
		d.Fields = appendField(d.Fields, "Manufacturers", r.Manufacturers...)
		d.Fields = appendField(d.Fields, "Indications", truncate(r.Indications, 1000))
		d.Fields = appendField(d.Fields, "Reactions", firstN(r.Reactions, 10)...)
		d.Fields = appendField(d.Fields, "Recall reason", r.Reason)
		d.Fields = appendField(d.Fields, "Classification", r.Classification)
	default:
		d.Kind = string(rec.Source)
		d.Fields = appendField(d.Fields, "Status", rec.StatusOrPhase)
		d.Fields = appendField(d.Fields, "Sponsor", rec.SponsorOrOwner)
	}
	return d
}

// BasicAnalysis builds an analysis from the record fields alone.
func BasicAnalysis(rec *types.DataRecord) types.Analysis {
	a := types.Analysis{
		RecordID: rec.NativeID,
		Source:   rec.Source,
		Title:    rec.Title,
		Status:   rec.StatusOrPhase,
		Sponsor:  rec.SponsorOrOwner,
		Fallback: true,
	}
	switch {
	case rec.Trial != nil:
		a.Phase = strings.Join(rec.Trial.Phases, ", ")
		if a.Phase == "" {
			a.Phase = "Not specified"
		}
		a.Status = rec.Trial.OverallStatus
		a.Text = fmt.Sprintf("Basic analysis: Trial %s by %s is in %s status.",
			orUnknown(rec.Title), orUnknown(a.Sponsor), orUnknown(a.Status))
	case rec.Article != nil:
		a.Phase = "Publication"
		a.Status = "Published"
		a.Sponsor = rec.Article.Journal
		a.Text = fmt.Sprintf("Basic analysis: Article %s published in %s.",
			orUnknown(rec.Title), orUnknown(rec.Article.Journal))
	case rec.Regulatory != nil:
		a.Phase = regulatoryPhase(rec.Regulatory.Kind)
		a.Text = fmt.Sprintf("Basic analysis: FDA %s record %s from %s.",
			rec.Regulatory.Kind, orUnknown(rec.Title), orUnknown(a.Sponsor))
	default:
		a.Phase = "Not specified"
		a.Text = fmt.Sprintf("Basic analysis: Record %s.", orUnknown(rec.Title))
	}
	a.Text += " AI analysis not available."
	return a
}

func regulatoryPhase(k types.RegulatoryKind) string {
	switch k {
	case types.RegulatoryLabel:
		return "Approved (label)"
	case types.RegulatoryAdverseEvent:
		return "Post-market (adverse event)"
	case types.RegulatoryRecall:
		return "Post-market (recall)"
	default:
		return "Regulatory"
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
