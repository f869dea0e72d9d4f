// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import "strings"

// cleanTerms trims keywords and drops blanks, preserving order.
func cleanTerms(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// quote wraps a term in double quotes, dropping any quotes it contains.
func quote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, "") + `"`
}

// quoteIfPhrase quotes terms that contain whitespace.
func quoteIfPhrase(term string) string {
	if strings.ContainsAny(term, " \t") {
		return quote(term)
	}
	return term
}

// orGroup joins terms with OR. More than one term is parenthesized so the
// group can be AND-combined with other clauses.
func orGroup(terms []string, q func(string) string) string {
	switch len(terms) {
	case 0:
		return ""
	case 1:
		return q(terms[0])
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = q(t)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// andClauses joins the non-empty clauses with AND.
func andClauses(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " AND ")
}

// firstN returns at most n leading elements of s.
func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
