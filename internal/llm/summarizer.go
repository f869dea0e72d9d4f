// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Summarizer turns per-record analyses into a landscape report.
type Summarizer interface {
	Summarize(ctx context.Context, req types.ResearchRequest, analyses []types.Analysis) (string, error)
}

// errNoAnalyses is returned when there is nothing to summarize.
var errNoAnalyses = errors.New("no analyses to summarize")

// ModelSummarizer asks the model for the landscape report.
type ModelSummarizer struct {
	client *Client
	log    logger.Logger
}

// NewModelSummarizer returns a summarizer over client.
func NewModelSummarizer(client *Client, log logger.Logger) *ModelSummarizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ModelSummarizer{client: client, log: log}
}

// Summarize sends every titled analysis's metadata in one prompt.
func (s *ModelSummarizer) Summarize(ctx context.Context, req types.ResearchRequest, analyses []types.Analysis) (string, error) {
	var valid []types.Analysis
	for _, a := range analyses {
		if a.Title != "" && a.Text != "" {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return "", errNoAnalyses
	}

	st := tally(valid)
	data := summaryPromptData{
		Topic:    req.Topic,
		Total:    len(valid),
		Sponsors: len(st.sponsors),
		Phases:   strings.Join(keys(st.phases), ", "),
		Statuses: strings.Join(keys(st.statuses), ", "),
	}
	for _, a := range valid {
		data.Lines = append(data.Lines, fmt.Sprintf("Source: %s | Title: %s | Sponsor: %s | Phase: %s | Status: %s",
			a.Source.Label(), a.Title, orUnknown(a.Sponsor), orUnknown(a.Phase), orUnknown(a.Status)))
	}
	prompt, err := render(summaryTemplate, data)
	if err != nil {
		return "", err
	}

	s.log.Info("requesting landscape summary", logger.String("model", s.client.Model()), logger.Int("analyses", len(valid)))
	return s.client.Complete(ctx, summarySystemPrompt, prompt, 0)
}

// BreakerSummarizer guards another Summarizer with the shared breaker.
type BreakerSummarizer struct {
	next    Summarizer
	breaker *Breaker
}

// WithBreaker wraps s so that a rate-limit failure trips b and every later
// call is refused without reaching s.
func WithBreaker(s Summarizer, b *Breaker) *BreakerSummarizer {
	return &BreakerSummarizer{next: s, breaker: b}
}

// Summarize delegates unless the breaker is open.
func (b *BreakerSummarizer) Summarize(ctx context.Context, req types.ResearchRequest, analyses []types.Analysis) (string, error) {
	var text string
	err := b.breaker.Guard("summarize", func() error {
		var err error
		text, err = b.next.Summarize(ctx, req, analyses)
		return err
	})
	return text, err
}
