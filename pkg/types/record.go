// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared by the collection pipeline,
// the summarization stage, and the result sinks.
package types

import (
	"fmt"
	"strings"
	"time"
)

// SourceID identifies one external data provider.
type SourceID string

const (
	SourceTrials     SourceID = "trials"
	SourceLiterature SourceID = "literature"
	SourceRegulatory SourceID = "regulatory"
)

// AllSources lists every source in registration order. The collector
// iterates sources in this order when building the merged record list.
var AllSources = []SourceID{SourceTrials, SourceLiterature, SourceRegulatory}

// Label returns the human-readable name used in reports.
func (s SourceID) Label() string {
	switch s {
	case SourceTrials:
		return "ClinicalTrials.gov"
	case SourceLiterature:
		return "PubMed"
	case SourceRegulatory:
		return "openFDA"
	}
	return string(s)
}

// ParseSourceID converts a config or CLI string into a SourceID.
func ParseSourceID(s string) (SourceID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trials", "clinical_trials", "clinicaltrials":
		return SourceTrials, nil
	case "literature", "pubmed":
		return SourceLiterature, nil
	case "regulatory", "fda", "openfda":
		return SourceRegulatory, nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// ResearchMode selects how keywords are derived for a request.
type ResearchMode string

const (
	ModeTopic    ResearchMode = "topic"
	ModePipeline ResearchMode = "pipeline"
)

// ResearchRequest is the input to one run. It is passed by value and
// never modified after construction.
type ResearchRequest struct {
	Topic      string       `json:"topic" yaml:"topic"`
	Mode       ResearchMode `json:"mode" yaml:"mode"`
	DrugName   string       `json:"drug_name,omitempty" yaml:"drug_name,omitempty"`
	Indication string       `json:"indication,omitempty" yaml:"indication,omitempty"`
	Keywords   []string     `json:"keywords" yaml:"keywords"`
}

// NewResearchRequest builds a validated request. The keyword slice is
// copied so later changes by the caller do not leak into the run.
// In topic mode the drug name and indication are dropped.
func NewResearchRequest(topic string, mode ResearchMode, drugName, indication string, keywords []string) (ResearchRequest, error) {
	if mode == "" {
		mode = ModeTopic
	}
	req := ResearchRequest{
		Topic:    strings.TrimSpace(topic),
		Mode:     mode,
		Keywords: append([]string(nil), keywords...),
	}
	if mode == ModePipeline {
		req.DrugName = strings.TrimSpace(drugName)
		req.Indication = strings.TrimSpace(indication)
	}
	if err := req.Validate(); err != nil {
		return ResearchRequest{}, err
	}
	return req, nil
}

// Validate checks the request invariants: a topic, a known mode, a drug
// name in pipeline mode, and at least one keyword.
func (r ResearchRequest) Validate() error {
	if r.Topic == "" {
		return fmt.Errorf("research request: topic is required")
	}
	switch r.Mode {
	case ModeTopic:
	case ModePipeline:
		if r.DrugName == "" {
			return fmt.Errorf("research request: drug name is required in pipeline mode")
		}
	default:
		return fmt.Errorf("research request: unknown mode %q", r.Mode)
	}
	if len(r.Keywords) == 0 {
		return fmt.Errorf("research request: at least one keyword is required")
	}
	return nil
}

// DataRecord is the normalized envelope for one record from any source.
// Exactly one of Trial, Article, and Regulatory is set, matching Source.
type DataRecord struct {
	Source         SourceID       `json:"source_id" yaml:"source_id"`
	NativeID       string         `json:"native_id" yaml:"native_id"`
	Title          string         `json:"title" yaml:"title"`
	StatusOrPhase  string         `json:"status_or_phase,omitempty" yaml:"status_or_phase,omitempty"`
	SponsorOrOwner string         `json:"sponsor_or_owner,omitempty" yaml:"sponsor_or_owner,omitempty"`
	PublishedAt    *time.Time     `json:"published_or_recorded_at,omitempty" yaml:"published_or_recorded_at,omitempty"`
	RawPayload     map[string]any `json:"raw_payload" yaml:"raw_payload"`

	Trial      *TrialDetail      `json:"trial,omitempty" yaml:"trial,omitempty"`
	Article    *ArticleDetail    `json:"article,omitempty" yaml:"article,omitempty"`
	Regulatory *RegulatoryDetail `json:"regulatory,omitempty" yaml:"regulatory,omitempty"`

	TopicTag    string    `json:"topic_tag" yaml:"topic_tag"`
	CollectedAt time.Time `json:"collected_at" yaml:"collected_at"`
}

// Key returns the (source, native id) pair that is unique within a run.
func (r *DataRecord) Key() string {
	return string(r.Source) + ":" + r.NativeID
}

// Stamped reports whether collection metadata has been set.
func (r *DataRecord) Stamped() bool {
	return !r.CollectedAt.IsZero()
}

// Stamp sets the topic tag and collection time. It may be called once;
// a second call returns an error and leaves the record unchanged.
func (r *DataRecord) Stamp(topic string, at time.Time) error {
	if r.Stamped() {
		return fmt.Errorf("record %s already stamped at %s", r.Key(), r.CollectedAt.Format(time.RFC3339))
	}
	if at.IsZero() {
		return fmt.Errorf("record %s: zero collection time", r.Key())
	}
	r.TopicTag = topic
	r.CollectedAt = at
	return nil
}

// TrialDetail holds the fields specific to a clinical-trial registration.
type TrialDetail struct {
	NCTID          string   `json:"nct_id" yaml:"nct_id"`
	OverallStatus  string   `json:"overall_status" yaml:"overall_status"`
	Phases         []string `json:"phases" yaml:"phases"`
	Conditions     []string `json:"conditions" yaml:"conditions"`
	Interventions  []string `json:"interventions" yaml:"interventions"`
	LeadSponsor    string   `json:"lead_sponsor" yaml:"lead_sponsor"`
	StartDate      string   `json:"start_date" yaml:"start_date"`
	CompletionDate string   `json:"completion_date" yaml:"completion_date"`
	URL            string   `json:"url" yaml:"url"`
}

// ArticleDetail holds the fields specific to a literature record.
type ArticleDetail struct {
	PMID      string   `json:"pmid" yaml:"pmid"`
	Abstract  string   `json:"abstract" yaml:"abstract"`
	Authors   []string `json:"authors" yaml:"authors"`
	Journal   string   `json:"journal" yaml:"journal"`
	MeshTerms []string `json:"mesh_terms" yaml:"mesh_terms"`
	URL       string   `json:"url" yaml:"url"`
}

// RegulatoryKind distinguishes the openFDA datasets.
type RegulatoryKind string

const (
	RegulatoryLabel        RegulatoryKind = "label"
	RegulatoryAdverseEvent RegulatoryKind = "adverse_event"
	RegulatoryRecall       RegulatoryKind = "recall"
)

// RegulatoryDetail holds the fields specific to a regulatory record.
type RegulatoryDetail struct {
	Kind           RegulatoryKind `json:"kind" yaml:"kind"`
	BrandNames     []string       `json:"brand_names" yaml:"brand_names"`
	GenericNames   []string       `json:"generic_names" yaml:"generic_names"`
	Manufacturers  []string       `json:"manufacturers" yaml:"manufacturers"`
	SubstanceNames []string       `json:"substance_names" yaml:"substance_names"`
	Routes         []string       `json:"routes" yaml:"routes"`
	DosageForms    []string       `json:"dosage_forms" yaml:"dosage_forms"`
	Indications    string         `json:"indications" yaml:"indications"`
	Reactions      []string       `json:"reactions" yaml:"reactions"`
	Serious        bool           `json:"serious" yaml:"serious"`
	Reason         string         `json:"reason" yaml:"reason"`
	Classification string         `json:"classification" yaml:"classification"`
}
