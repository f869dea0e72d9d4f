// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package relevance decides whether a record is about the requested topic.
//
// A record is relevant when any keyword, lower-cased, occurs as a substring
// of the lower-cased record text: its title followed by the JSON encoding
// of its full raw payload. Blank keywords are ignored, and an empty keyword
// set matches nothing.
package relevance

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// IsRelevant reports whether any keyword occurs in the record text.
func IsRelevant(rec *types.DataRecord, keywords []string) bool {
	terms := prepare(keywords)
	if len(terms) == 0 || rec == nil {
		return false
	}
	text := recordText(rec)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// Filter returns the relevant records in their original order. Filtering
// the result again with the same keywords returns it unchanged.
func Filter(records []*types.DataRecord, keywords []string) []*types.DataRecord {
	m := NewMatcher(keywords)
	out := make([]*types.DataRecord, 0, len(records))
	for _, rec := range records {
		if m.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Matcher matches many records against one keyword set with a single
// Aho-Corasick automaton. A Matcher is not safe for concurrent use.
type Matcher struct {
	terms []string
	ac    *ahocorasick.Matcher
}

// NewMatcher compiles the keyword set.
func NewMatcher(keywords []string) *Matcher {
	terms := prepare(keywords)
	m := &Matcher{terms: terms}
	if len(terms) > 0 {
		m.ac = ahocorasick.NewStringMatcher(terms)
	}
	return m
}

// Match reports whether any keyword occurs in the record text.
func (m *Matcher) Match(rec *types.DataRecord) bool {
	if m.ac == nil || rec == nil {
		return false
	}
	return len(m.ac.Match([]byte(recordText(rec)))) > 0
}

// Matched returns the keywords found in the record text, in keyword order.
func (m *Matcher) Matched(rec *types.DataRecord) []string {
	if m.ac == nil || rec == nil {
		return nil
	}
	hits := m.ac.Match([]byte(recordText(rec)))
	found := make(map[int]bool, len(hits))
	for _, h := range hits {
		found[h] = true
	}
	var out []string
	for i, t := range m.terms {
		if found[i] {
			out = append(out, t)
		}
	}
	return out
}

// prepare lower-cases keywords and drops all-blank ones and duplicates.
// Surrounding spaces are kept: " pd-1" only matches after a space.
func prepare(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(k)
		if strings.TrimSpace(k) == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// recordText is the lower-cased title plus the payload JSON. HTML escaping
// is disabled so keywords containing &, <, or > still match.
func recordText(rec *types.DataRecord) string {
	var b bytes.Buffer
	b.WriteString(rec.Title)
	b.WriteByte('\n')
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec.RawPayload); err != nil {
		b.WriteString(rec.NativeID)
	}
	return strings.ToLower(b.String())
}
