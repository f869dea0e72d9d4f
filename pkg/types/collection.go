// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SourceStatus records what happened to one source during a run.
type SourceStatus struct {
	Source SourceID `json:"source" yaml:"source"`

	// Fetched is the number of raw records returned by the client.
	Fetched int `json:"fetched" yaml:"fetched"`

	// Narrowed is the number of raw records left after any source-specific
	// post-fetch filter (e.g. active trials only).
	Narrowed int `json:"narrowed" yaml:"narrowed"`

	// Normalized is the number of records that became DataRecords.
	Normalized int `json:"normalized" yaml:"normalized"`

	// Skipped counts malformed records dropped during normalization.
	Skipped int `json:"skipped" yaml:"skipped"`

	// Failed is true when the client could not fetch at all.
	Failed bool   `json:"failed" yaml:"failed"`
	Err    string `json:"error,omitempty" yaml:"error,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Condition classifies the overall result of a collection run.
type Condition string

const (
	// ConditionOK means at least one record survived relevance filtering.
	ConditionOK Condition = "ok"

	// ConditionNoRelevantData means sources returned records but none
	// matched the keywords.
	ConditionNoRelevantData Condition = "no_relevant_data"

	// ConditionNoData means at least one source answered but every source
	// returned zero records.
	ConditionNoData Condition = "no_data"

	// ConditionAllSourcesUnavailable means every source failed to respond.
	ConditionAllSourcesUnavailable Condition = "all_sources_unavailable"
)

// CollectionResult is the per-run aggregate produced by the collector.
// Filtered is a subset of Merged, and Merged is the concatenation of
// RecordsBySource taken in Order.
type CollectionResult struct {
	RecordsBySource map[SourceID][]*DataRecord `json:"records_by_source" yaml:"records_by_source"`
	Order           []SourceID                 `json:"order" yaml:"order"`
	Merged          []*DataRecord              `json:"merged" yaml:"merged"`
	Filtered        []*DataRecord              `json:"filtered" yaml:"filtered"`
	Sources         []SourceStatus             `json:"sources" yaml:"sources"`

	// DuplicatesRemoved counts records dropped because their
	// (source, native id) pair was already present in the run.
	DuplicatesRemoved int `json:"duplicates_removed" yaml:"duplicates_removed"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Status returns the status entry for a source, or false if the source
// was not registered for this run.
func (c *CollectionResult) Status(id SourceID) (SourceStatus, bool) {
	for _, s := range c.Sources {
		if s.Source == id {
			return s, true
		}
	}
	return SourceStatus{}, false
}

// FailedSources returns the sources whose fetch failed.
func (c *CollectionResult) FailedSources() []SourceID {
	var out []SourceID
	for _, s := range c.Sources {
		if s.Failed {
			out = append(out, s.Source)
		}
	}
	return out
}

// Condition distinguishes a run where every source was unreachable from
// one where sources answered with nothing, and both from a run where
// records came back but none were relevant.
func (c *CollectionResult) Condition() Condition {
	if len(c.Filtered) > 0 {
		return ConditionOK
	}
	if len(c.Merged) > 0 {
		return ConditionNoRelevantData
	}
	if len(c.Sources) > 0 && len(c.FailedSources()) == len(c.Sources) {
		return ConditionAllSourcesUnavailable
	}
	return ConditionNoData
}

// Counts returns the number of merged records per source in Order.
func (c *CollectionResult) Counts() map[SourceID]int {
	out := make(map[SourceID]int, len(c.Order))
	for _, id := range c.Order {
		out[id] = len(c.RecordsBySource[id])
	}
	return out
}
