// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keywords

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/landscape-engine/internal/llm"
	"github.com/pdiddy/landscape-engine/internal/logger"
)

const keywordPrompt = `Generate 10-15 highly specific keywords for searching clinical trials, literature, and FDA records about: "%s"

Focus on:
- Drug names and synonyms (e.g., pembrolizumab, Keytruda)
- Disease subtypes and specific conditions (e.g., NSCLC, HER2-positive)
- Mechanisms of action (e.g., PD-1 inhibitor, checkpoint inhibitor)
- Biomarkers and molecular targets (e.g., EGFR, ALK)
- Clinical endpoints and outcomes (e.g., PFS, OS, ORR)
- Treatment approaches (e.g., immunotherapy, targeted therapy)

Exclude generic terms like "cancer", "trial", "treatment", "therapy" unless they are part of a specific term.

Return only the keywords as a comma-separated list, no explanations.`

// listMarker matches a leading bullet or "1." / "1)" enumeration.
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s*`)

// maxModelKeywords caps a model-suggested keyword list.
const maxModelKeywords = 15

// ModelProvider asks the model for keywords and falls back to the
// dictionary on any failure or an empty answer.
type ModelProvider struct {
	client   *llm.Client
	breaker  *llm.Breaker
	fallback *Dictionary
	log      logger.Logger
}

// NewModelProvider returns a provider over client. A nil client makes it
// a plain dictionary lookup.
func NewModelProvider(client *llm.Client, b *llm.Breaker, fallback *Dictionary, log logger.Logger) *ModelProvider {
	if fallback == nil {
		fallback = DefaultDictionary()
	}
	if b == nil {
		b = &llm.Breaker{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ModelProvider{client: client, breaker: b, fallback: fallback, log: log}
}

// KeywordsFor returns model keywords, or dictionary keywords when the
// model is unavailable.
func (p *ModelProvider) KeywordsFor(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if p.client == nil {
		return p.fallback.KeywordsFor(ctx, topic)
	}

	var text string
	err := p.breaker.Guard("keywords", func() error {
		var err error
		text, err = p.client.Complete(ctx, "", fmt.Sprintf(keywordPrompt, topic), 512)
		return err
	})
	if err != nil {
		p.log.Warn("keyword generation failed, using dictionary", logger.String("topic", topic), logger.Err(err))
		return p.fallback.KeywordsFor(ctx, topic)
	}

	kws := p.ParseList(text)
	if len(kws) == 0 {
		p.log.Warn("model returned no usable keywords, using dictionary", logger.String("topic", topic))
		return p.fallback.KeywordsFor(ctx, topic)
	}
	p.log.Info("generated keywords", logger.String("topic", topic), logger.Int("count", len(kws)))
	return kws, nil
}

// PipelineKeywords delegates to the dictionary.
func (p *ModelProvider) PipelineKeywords(drug, indication string) []string {
	return p.fallback.PipelineKeywords(drug, indication)
}

// ParseList splits a comma- or newline-separated model answer, strips list
// markers and quotes, lower-cases, and drops generic terms and repeats.
func (p *ModelProvider) ParseList(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' })
	var out []string
	for _, f := range fields {
		kw := strings.ToLower(strings.TrimSpace(f))
		kw = listMarker.ReplaceAllString(kw, "")
		kw = strings.Trim(kw, "\"'`")
		kw = strings.TrimSpace(kw)
		if kw == "" || p.fallback.IsGeneric(kw) {
			continue
		}
		out = append(out, kw)
	}
	return limit(dedupe(out), maxModelKeywords)
}
