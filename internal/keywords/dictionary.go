// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords turns a research topic into the keyword set used for
// source queries and relevance filtering.
package keywords

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v3"
)

//go:embed dictionary.yaml
var dictionaryYAML []byte

// Limits applied to dictionary results.
const (
	generalPerSubarea = 3
	generalLimit      = 10
	areaLimit         = 12
	contextLimit      = 12
	minContextLength  = 3
)

// ErrEmptyTopic is returned for a blank topic.
var ErrEmptyTopic = errors.New("topic is empty")

// Provider produces keywords for a research topic.
type Provider interface {
	KeywordsFor(ctx context.Context, topic string) ([]string, error)
}

// Area is one therapeutic area. An area has either Keywords or Subareas.
type Area struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Subareas []Area   `yaml:"subareas"`
}

// DiseaseTerms adds Keywords when any trigger occurs in the topic.
type DiseaseTerms struct {
	Triggers []string `yaml:"triggers"`
	Keywords []string `yaml:"keywords"`
}

// Dictionary is the offline keyword source.
type Dictionary struct {
	Areas   []Area `yaml:"areas"`
	Context struct {
		DrugSuffixes []string       `yaml:"drug_suffixes"`
		Brands       []string       `yaml:"brands"`
		DiseaseTerms []DiseaseTerms `yaml:"disease_terms"`
	} `yaml:"context"`
	GenericTerms []string `yaml:"generic_terms"`
	Pipeline     struct {
		Base       []string `yaml:"base"`
		Indication []string `yaml:"indication"`
		Drug       []string `yaml:"drug"`
	} `yaml:"pipeline"`
}

// ParseDictionary decodes a YAML dictionary.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing keyword dictionary: %w", err)
	}
	if len(d.Areas) == 0 {
		return nil, errors.New("keyword dictionary has no areas")
	}
	return &d, nil
}

// DefaultDictionary returns the embedded dictionary.
func DefaultDictionary() *Dictionary {
	d, err := ParseDictionary(dictionaryYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// KeywordsFor matches the topic against the dictionary:
//   - an area with a matching sub-area yields that sub-area's list;
//   - an area without a matching sub-area yields the first three keywords
//     of each sub-area, at most ten;
//   - a flat area yields at most twelve keywords;
//   - otherwise keywords come from drug-like words, known brands, disease
//     terms, and the topic itself.
func (d *Dictionary) KeywordsFor(_ context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	lower := strings.ToLower(topic)

	for _, area := range d.Areas {
		if !strings.Contains(lower, area.Name) {
			continue
		}
		if len(area.Subareas) == 0 {
			return limit(area.Keywords, areaLimit), nil
		}
		for _, sub := range area.Subareas {
			if strings.Contains(lower, sub.Name) {
				return clone(sub.Keywords), nil
			}
		}
		var general []string
		for _, sub := range area.Subareas {
			general = append(general, limit(sub.Keywords, generalPerSubarea)...)
		}
		return limit(general, generalLimit), nil
	}
	return d.contextKeywords(topic), nil
}

func (d *Dictionary) contextKeywords(topic string) []string {
	lower := strings.ToLower(topic)
	var out []string
	for _, word := range strings.Fields(lower) {
		if containsAny(word, d.Context.DrugSuffixes) || contains(d.Context.Brands, word) {
			out = append(out, word)
		}
	}
	for _, dt := range d.Context.DiseaseTerms {
		if containsAny(lower, dt.Triggers) {
			out = append(out, dt.Keywords...)
			break
		}
	}
	out = append(out, lower)

	var kept []string
	for _, k := range dedupe(out) {
		if len(k) >= minContextLength {
			kept = append(kept, k)
		}
	}
	return limit(kept, contextLimit)
}

// PipelineKeywords returns the fixed drug-pipeline keyword set for a drug
// and optional indication.
func (d *Dictionary) PipelineKeywords(drug, indication string) []string {
	out := []string{strings.ToLower(strings.TrimSpace(drug))}
	out = append(out, d.Pipeline.Base...)
	if ind := strings.ToLower(strings.TrimSpace(indication)); ind != "" {
		out = append(out, ind)
		out = append(out, d.Pipeline.Indication...)
	}
	out = append(out, d.Pipeline.Drug...)
	return dedupe(out)
}

// IsGeneric reports whether kw is too broad to be a useful keyword.
func (d *Dictionary) IsGeneric(kw string) bool {
	return contains(d.GenericTerms, strings.ToLower(strings.TrimSpace(kw)))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dedupe drops blanks and repeats, keeping first occurrences.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func limit(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return clone(in)
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
