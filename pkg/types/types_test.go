// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResearchRequest(t *testing.T) {
	tests := []struct {
		name       string
		topic      string
		mode       ResearchMode
		drug       string
		indication string
		keywords   []string
		wantErr    string
		wantDrug   string
	}{
		{name: "topic mode", topic: "Keytruda", mode: ModeTopic, keywords: []string{"keytruda"}},
		{name: "empty mode defaults to topic", topic: "CAR-T", keywords: []string{"car-t"}},
		{name: "topic mode drops drug name", topic: "GLP-1", mode: ModeTopic, drug: "semaglutide", keywords: []string{"glp-1"}, wantDrug: ""},
		{name: "pipeline mode keeps drug", topic: "Ozempic", mode: ModePipeline, drug: " semaglutide ", indication: "obesity", keywords: []string{"semaglutide"}, wantDrug: "semaglutide"},
		{name: "missing topic", topic: "  ", keywords: []string{"x"}, wantErr: "topic is required"},
		{name: "missing keywords", topic: "x", wantErr: "at least one keyword"},
		{name: "pipeline without drug", topic: "x", mode: ModePipeline, keywords: []string{"x"}, wantErr: "drug name is required"},
		{name: "unknown mode", topic: "x", mode: "other", keywords: []string{"x"}, wantErr: "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewResearchRequest(tt.topic, tt.mode, tt.drug, tt.indication, tt.keywords)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDrug, req.DrugName)
		})
	}
}

func TestNewResearchRequestCopiesKeywords(t *testing.T) {
	kw := []string{"a", "b"}
	req, err := NewResearchRequest("topic", ModeTopic, "", "", kw)
	require.NoError(t, err)
	kw[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, req.Keywords)
}

func TestDataRecordStampOnce(t *testing.T) {
	r := &DataRecord{Source: SourceTrials, NativeID: "NCT1"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, r.Stamp("Keytruda", now))
	assert.Equal(t, "Keytruda", r.TopicTag)
	assert.Equal(t, now, r.CollectedAt)

	err := r.Stamp("Other", now.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, "Keytruda", r.TopicTag)
	assert.Equal(t, now, r.CollectedAt)
}

func TestDataRecordStampZeroTime(t *testing.T) {
	r := &DataRecord{Source: SourceTrials, NativeID: "NCT1"}
	assert.Error(t, r.Stamp("x", time.Time{}))
	assert.False(t, r.Stamped())
}

func TestCollectionResultCondition(t *testing.T) {
	rec := &DataRecord{Source: SourceTrials, NativeID: "NCT1"}
	ok := SourceStatus{Source: SourceTrials}
	failed := SourceStatus{Source: SourceLiterature, Failed: true}

	tests := []struct {
		name string
		res  CollectionResult
		want Condition
	}{
		{"filtered records", CollectionResult{Merged: []*DataRecord{rec}, Filtered: []*DataRecord{rec}, Sources: []SourceStatus{ok}}, ConditionOK},
		{"merged but nothing relevant", CollectionResult{Merged: []*DataRecord{rec}, Sources: []SourceStatus{ok}}, ConditionNoRelevantData},
		{"sources answered empty", CollectionResult{Sources: []SourceStatus{ok, failed}}, ConditionNoData},
		{"every source failed", CollectionResult{Sources: []SourceStatus{failed, {Source: SourceRegulatory, Failed: true}}}, ConditionAllSourcesUnavailable},
		{"no sources", CollectionResult{}, ConditionNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.res.Condition())
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("fetching: %w", SourceUnavailable(SourceTrials, "search", errors.New("HTTP 503")))

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrMalformedRecord)
	assert.Equal(t, KindSourceUnavailable, KindOf(err))
	assert.Contains(t, err.Error(), "source_unavailable: trials: search: HTTP 503")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "no sources", mutate: func(c *Config) {
			c.Sources.Trials.Enabled = false
			c.Sources.Literature.Enabled = false
			c.Sources.Regulatory.Enabled = false
		}, wantErr: "no sources enabled"},
		{name: "empty base url", mutate: func(c *Config) { c.Sources.Trials.BaseURL = "" }, wantErr: "sources.trials.base_url"},
		{name: "disabled source may be empty", mutate: func(c *Config) {
			c.Sources.Trials.Enabled = false
			c.Sources.Trials.BaseURL = ""
		}},
		{name: "non-positive max results", mutate: func(c *Config) { c.Sources.Literature.MaxResults = 0 }, wantErr: "max_results"},
		{name: "zero analysis cap", mutate: func(c *Config) { c.Pipeline.AnalysisCap = 0 }, wantErr: "analysis_cap"},
		{name: "unknown endpoint", mutate: func(c *Config) { c.Sources.Regulatory.Endpoints = []string{"ndc"} }, wantErr: "unknown endpoint"},
		{name: "redis without address", mutate: func(c *Config) { c.Server.ProgressBackend = ProgressRedis }, wantErr: "redis_addr"},
		{name: "unknown backend", mutate: func(c *Config) { c.Server.ProgressBackend = "etcd" }, wantErr: "unknown backend"},
		{name: "empty output dir", mutate: func(c *Config) { c.Output.Dir = " " }, wantErr: "output.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSourceID(t *testing.T) {
	for in, want := range map[string]SourceID{"trials": SourceTrials, "PubMed": SourceLiterature, "fda": SourceRegulatory} {
		got, err := ParseSourceID(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSourceID("scopus")
	assert.Error(t, err)
}
