// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage is a state of the pipeline runner.
type Stage string

const (
	StageStarting    Stage = "starting"
	StageCollecting  Stage = "collecting"
	StageAnalyzing   Stage = "analyzing"
	StageSummarizing Stage = "summarizing"
	StageSaving      Stage = "saving"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// RunStatus is the coarse status a poller sees.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusNoData    RunStatus = "no_data"
	StatusError     RunStatus = "error"
)

// Progress is one progress report emitted by the runner.
type Progress struct {
	Stage     Stage     `json:"stage" yaml:"stage"`
	Percent   int       `json:"percent" yaml:"percent"`
	Message   string    `json:"message" yaml:"message"`
	Status    RunStatus `json:"status" yaml:"status"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Analysis is the per-record output of the analyzer.
type Analysis struct {
	RecordID string   `json:"record_id" yaml:"record_id"`
	Source   SourceID `json:"source_id" yaml:"source_id"`
	Title    string   `json:"title" yaml:"title"`
	Text     string   `json:"analysis" yaml:"analysis"`
	Phase    string   `json:"phase,omitempty" yaml:"phase,omitempty"`
	Status   string   `json:"status,omitempty" yaml:"status,omitempty"`
	Sponsor  string   `json:"sponsor,omitempty" yaml:"sponsor,omitempty"`

	// Fallback is true when the text came from the local generator
	// instead of the model.
	Fallback bool `json:"fallback" yaml:"fallback"`
}

// Artifacts is everything a result sink persists for one run.
type Artifacts struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	Request    ResearchRequest  `json:"request" yaml:"request"`
	Records    []*DataRecord    `json:"records" yaml:"records"`
	Analyses   []Analysis       `json:"analyses" yaml:"analyses"`
	Summary    string           `json:"summary" yaml:"summary"`
	Counts     map[SourceID]int `json:"counts" yaml:"counts"`
	Sources    []SourceStatus   `json:"sources" yaml:"sources"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
}

// SavedArtifacts lists where a sink put each artifact. Empty fields mean
// the sink does not produce that artifact.
type SavedArtifacts struct {
	RawData   string `json:"raw_data,omitempty" yaml:"raw_data,omitempty"`
	Analyses  string `json:"analyses,omitempty" yaml:"analyses,omitempty"`
	Summary   string `json:"summary,omitempty" yaml:"summary,omitempty"`
	HTML      string `json:"html,omitempty" yaml:"html,omitempty"`
	ArchiveID int64  `json:"archive_id,omitempty" yaml:"archive_id,omitempty"`
}

// RunOutcome is the final result of one pipeline run.
type RunOutcome struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	Request    ResearchRequest   `json:"request" yaml:"request"`
	Status     RunStatus         `json:"status" yaml:"status"`
	Condition  Condition         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Stage      Stage             `json:"stage" yaml:"stage"`
	Message    string            `json:"message" yaml:"message"`
	Collection *CollectionResult `json:"collection,omitempty" yaml:"collection,omitempty"`
	Analyses   []Analysis        `json:"analyses,omitempty" yaml:"analyses,omitempty"`

	// AnalysisTruncated is true when more records were relevant than the
	// analysis cap allowed through.
	AnalysisTruncated bool `json:"analysis_truncated" yaml:"analysis_truncated"`

	Summary         string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	SummaryFallback bool           `json:"summary_fallback" yaml:"summary_fallback"`
	Saved           SavedArtifacts `json:"saved" yaml:"saved"`
	Err             string         `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
