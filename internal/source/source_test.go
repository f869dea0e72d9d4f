// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

func TestPageSize(t *testing.T) {
	tests := []struct {
		name                  string
		configured, remaining int
		want                  int
	}{
		{"within bounds", 50, 200, 50},
		{"clamped to maximum", 500, 1000, 100},
		{"zero uses maximum", 0, 1000, 100},
		{"limited by remaining", 100, 7, 7},
		{"never below one", 100, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageSize(tt.configured, tt.remaining))
		})
	}
}

func TestOrGroup(t *testing.T) {
	assert.Equal(t, "", orGroup(nil, quote))
	assert.Equal(t, `"keytruda"`, orGroup([]string{"keytruda"}, quote))
	assert.Equal(t, `(pembrolizumab OR "PD-1 inhibitor")`, orGroup([]string{"pembrolizumab", "PD-1 inhibitor"}, quoteIfPhrase))
}

func TestCleanTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, cleanTerms([]string{" a ", "", "  ", "b c"}))
}

func TestBuildTrialsTerm(t *testing.T) {
	tests := []struct {
		name string
		req  types.ResearchRequest
		want string
	}{
		{"keywords only", types.ResearchRequest{Keywords: []string{"car-t", "cd19"}}, "(car-t OR cd19)"},
		{"drug narrows", types.ResearchRequest{Keywords: []string{"obesity", "glp-1 agonist"}, DrugName: "semaglutide"}, `(obesity OR "glp-1 agonist") AND semaglutide`},
		{"multi-word drug quoted", types.ResearchRequest{Keywords: []string{"x"}, DrugName: "insulin glargine"}, `x AND "insulin glargine"`},
		{"no keywords", types.ResearchRequest{Keywords: []string{" "}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildTrialsTerm(tt.req))
		})
	}
}

func TestBuildPubMedTerm(t *testing.T) {
	req := types.ResearchRequest{Keywords: []string{"keytruda", "pembrolizumab"}, DrugName: "pembrolizumab", Indication: "lung cancer"}
	assert.Equal(t,
		`(keytruda OR pembrolizumab) AND pembrolizumab AND "lung cancer" AND ("2020"[Date - Publication] : "3000"[Date - Publication])`,
		buildPubMedTerm(req, 2020))
	assert.Equal(t, "keytruda", buildPubMedTerm(types.ResearchRequest{Keywords: []string{"keytruda"}}, 0))
	assert.Equal(t, "", buildPubMedTerm(types.ResearchRequest{DrugName: "x"}, 2020))
}

func TestBuildFDASearch(t *testing.T) {
	kw := []string{"pd-1", "checkpoint", "melanoma", "nsclc"}
	tests := []struct {
		name string
		kind string
		req  types.ResearchRequest
		want string
	}{
		{"label keywords", KindLabel, types.ResearchRequest{Keywords: kw[:2]}, `("pd-1" OR "checkpoint")`},
		{"label with drug and indication", KindLabel, types.ResearchRequest{Keywords: kw[:1], DrugName: "pembrolizumab", Indication: "melanoma"},
			`openfda.generic_name:"pembrolizumab" AND "pd-1" AND indications_and_usage:"melanoma"`},
		{"event with drug", KindEvent, types.ResearchRequest{Keywords: kw, DrugName: "pembrolizumab"}, `patient.drug.medicinalproduct:"pembrolizumab"`},
		{"event first three keywords", KindEvent, types.ResearchRequest{Keywords: kw}, `("pd-1" OR "checkpoint" OR "melanoma")`},
		{"enforcement with drug ignores indication", KindEnforcement, types.ResearchRequest{Keywords: kw, DrugName: "x", Indication: "y"}, `product_description:"x"`},
		{"no terms", KindEvent, types.ResearchRequest{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFDASearch(fdaEndpoints[tt.kind], tt.req))
		})
	}
}

func TestFromConfigOrder(t *testing.T) {
	cfg := types.DefaultConfig().Sources
	clients := FromConfig(cfg, logger.NewNop())
	ids := make([]types.SourceID, len(clients))
	for i, c := range clients {
		ids[i] = c.ID()
	}
	assert.Equal(t, types.AllSources, ids)

	cfg.Literature.Enabled = false
	clients = FromConfig(cfg, nil)
	assert.Len(t, clients, 2)
	assert.Equal(t, types.SourceRegulatory, clients[1].ID())
}

func TestDig(t *testing.T) {
	m := map[string]any{"a": map[string]any{"b": map[string]any{"c": "x"}}, "s": "str"}
	assert.Equal(t, "x", digString(m, "a", "b", "c"))
	assert.Equal(t, "", digString(m, "a", "missing", "c"))
	assert.Equal(t, "", digString(m, "s", "deeper"))
	assert.Nil(t, dig(nil, "a"))
}
