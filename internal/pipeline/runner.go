// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one research run: collect, analyze each
// relevant record, summarize, and persist, reporting progress at every
// stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/landscape-engine/internal/collect"
	"github.com/pdiddy/landscape-engine/internal/llm"
	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/metrics"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Collector gathers records for a request. *collect.Collector satisfies it.
type Collector interface {
	Collect(ctx context.Context, req types.ResearchRequest) (*types.CollectionResult, error)
}

// ResultSink persists the artifacts of a finished run.
type ResultSink interface {
	Save(ctx context.Context, a types.Artifacts) (types.SavedArtifacts, error)
}

// DefaultAnalysisCap bounds per-record analysis calls when unset.
const DefaultAnalysisCap = 10

// Options wires a Runner. Only Collector is required: a nil Analyzer uses
// basic analyses, a nil Summarizer uses the statistical summary, and a nil
// Sink skips persistence.
type Options struct {
	Collector   Collector
	Analyzer    llm.Analyzer
	Summarizer  llm.Summarizer
	Sink        ResultSink
	AnalysisCap int
	Log         logger.Logger
	Metrics     *metrics.Metrics
}

// Runner executes runs. It keeps no per-run state and may serve
// concurrent runs.
type Runner struct {
	opts Options
	log  logger.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Collector == nil {
		return nil, types.ConfigError("pipeline requires a collector")
	}
	if opts.AnalysisCap == 0 {
		opts.AnalysisCap = DefaultAnalysisCap
	}
	if opts.AnalysisCap < 1 {
		return nil, types.ConfigError("analysis cap must be at least 1, got %d", opts.AnalysisCap)
	}
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{opts: opts, log: log, Now: time.Now, NewID: uuid.NewString}, nil
}

// AnalysisCap returns the per-run analysis ceiling.
func (r *Runner) AnalysisCap() int { return r.opts.AnalysisCap }

// Run executes one run with a fresh id.
func (r *Runner) Run(ctx context.Context, req types.ResearchRequest, sink ProgressSink) types.RunOutcome {
	return r.RunWithID(ctx, r.NewID(), req, sink)
}

// RunWithID executes one run under a caller-chosen id. The run is single
// pass: a failed stage ends the run in StageError without retry.
func (r *Runner) RunWithID(ctx context.Context, runID string, req types.ResearchRequest, sink ProgressSink) types.RunOutcome {
	run := &run{
		Runner: r,
		m:      NewMachine(sink, r.Now),
		log:    r.log.With(logger.String("run_id", runID), logger.String("topic", req.Topic)),
		out: types.RunOutcome{
			RunID:     runID,
			Request:   req,
			Status:    types.StatusRunning,
			StartedAt: r.Now(),
		},
	}
	run.execute(ctx)
	run.out.Stage = run.m.Stage()
	run.out.FinishedAt = r.Now()
	r.opts.Metrics.RunFinished(string(run.out.Status))
	run.log.Info("run finished",
		logger.String("status", string(run.out.Status)),
		logger.String("condition", string(run.out.Condition)),
		logger.Duration("elapsed", run.out.FinishedAt.Sub(run.out.StartedAt)),
	)
	return run.out
}

// run holds the state of one execution.
type run struct {
	*Runner
	m   *Machine
	log logger.Logger
	out types.RunOutcome
}

func (r *run) execute(ctx context.Context) {
	req := r.out.Request
	_ = r.m.Advance(types.StageStarting, 0, fmt.Sprintf("Starting research on %q", req.Topic))
	if err := req.Validate(); err != nil {
		r.fail("Invalid research request", err)
		return
	}

	res, ok := r.collect(ctx, req)
	if !ok {
		return
	}

	switch res.Condition() {
	case types.ConditionAllSourcesUnavailable:
		r.fail("All data sources are unavailable: "+joinSources(res.FailedSources()),
			errors.New(string(types.ConditionAllSourcesUnavailable)))
		return
	case types.ConditionNoData:
		r.finishNoData(fmt.Sprintf("No data found for %q in any source", req.Topic))
		return
	case types.ConditionNoRelevantData:
		r.finishNoData(fmt.Sprintf("Found %d records but none matched the keywords", len(res.Merged)))
		return
	}

	if !r.analyze(ctx, res.Filtered) {
		return
	}
	if !r.summarize(ctx) {
		return
	}
	if !r.save(ctx) {
		return
	}

	msg := fmt.Sprintf("Research complete: %d relevant records, %d analyzed", len(res.Filtered), len(r.out.Analyses))
	if r.out.SummaryFallback {
		msg += " (statistical summary)"
	}
	r.out.Status = types.StatusCompleted
	r.out.Message = msg
	_ = r.m.Finish(types.StatusCompleted, msg)
}

func (r *run) collect(ctx context.Context, req types.ResearchRequest) (*types.CollectionResult, bool) {
	if err := r.m.Advance(types.StageCollecting, 10, "Collecting data from clinical trials, literature, and regulatory sources"); err != nil {
		r.fail("Internal state error", err)
		return nil, false
	}
	res, err := r.opts.Collector.Collect(ctx, req)
	if err != nil {
		r.fail("Data collection failed", err)
		return nil, false
	}
	r.out.Collection = res
	r.out.Condition = res.Condition()
	_ = r.m.Update(30, "Collected "+collect.Summary(res))
	return res, true
}

func (r *run) analyze(ctx context.Context, records []*types.DataRecord) bool {
	limit := r.opts.AnalysisCap
	msg := fmt.Sprintf("Analyzing %d relevant records", len(records))
	if len(records) > limit {
		msg = fmt.Sprintf("Analyzing %d of %d relevant records (analysis cap %d)", limit, len(records), limit)
		records = records[:limit]
		r.out.AnalysisTruncated = true
	}
	if err := r.m.Advance(types.StageAnalyzing, 40, msg); err != nil {
		r.fail("Internal state error", err)
		return false
	}

	analyses := make([]types.Analysis, 0, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			r.out.Analyses = analyses
			r.fail("Run cancelled during analysis", err)
			return false
		}
		analyses = append(analyses, r.analyzeOne(ctx, rec))
		_ = r.m.Update(40+30*(i+1)/len(records), fmt.Sprintf("Analyzed %d/%d: %s", i+1, len(records), rec.Title))
	}
	r.out.Analyses = analyses
	return true
}

func (r *run) analyzeOne(ctx context.Context, rec *types.DataRecord) types.Analysis {
	if r.opts.Analyzer == nil {
		return llm.BasicAnalysis(rec)
	}
	a, err := r.opts.Analyzer.Analyze(ctx, r.out.Request.Topic, rec)
	if err != nil {
		r.log.Debug("using basic analysis", logger.String("record", rec.Key()), logger.Err(err))
		return llm.BasicAnalysis(rec)
	}
	return a
}

func (r *run) summarize(ctx context.Context) bool {
	if err := r.m.Advance(types.StageSummarizing, 80, "Generating competitive landscape summary"); err != nil {
		r.fail("Internal state error", err)
		return false
	}
	if err := ctx.Err(); err != nil {
		r.fail("Run cancelled before summary", err)
		return false
	}

	req := r.out.Request
	if r.opts.Summarizer == nil {
		r.out.Summary = llm.FallbackSummary(req, r.out.Analyses)
		r.out.SummaryFallback = true
		_ = r.m.Update(90, "Statistical summary generated")
		return true
	}

	text, err := r.opts.Summarizer.Summarize(ctx, req, r.out.Analyses)
	if err != nil {
		r.out.Summary = llm.FallbackSummary(req, r.out.Analyses)
		r.out.SummaryFallback = true
		if errors.Is(err, types.ErrSummarizerRateLimited) {
			r.log.Warn("summarizer rate limited, using statistical summary", logger.Err(err))
			_ = r.m.Update(90, "AI summary unavailable (rate limited); using statistical summary")
			return true
		}
		r.log.Warn("summarizer failed, using statistical summary", logger.Err(err))
		_ = r.m.Update(90, "AI summary failed; using statistical summary")
		return true
	}
	r.out.Summary = text
	_ = r.m.Update(90, "Summary generated")
	return true
}

func (r *run) save(ctx context.Context) bool {
	if err := r.m.Advance(types.StageSaving, 95, "Saving results"); err != nil {
		r.fail("Internal state error", err)
		return false
	}
	if r.opts.Sink == nil {
		return true
	}
	res := r.out.Collection
	saved, err := r.opts.Sink.Save(ctx, types.Artifacts{
		RunID:      r.out.RunID,
		Request:    r.out.Request,
		Records:    res.Merged,
		Analyses:   r.out.Analyses,
		Summary:    r.out.Summary,
		Counts:     res.Counts(),
		Sources:    res.Sources,
		FinishedAt: r.Now(),
	})
	if err != nil {
		r.fail("Saving results failed", err)
		return false
	}
	r.out.Saved = saved
	return true
}

func (r *run) finishNoData(msg string) {
	r.out.Status = types.StatusNoData
	r.out.Message = msg
	r.log.Info("run ended without data", logger.String("reason", msg))
	_ = r.m.Finish(types.StatusNoData, msg)
}

func (r *run) fail(msg string, err error) {
	r.out.Status = types.StatusError
	r.out.Message = msg
	if err != nil {
		r.out.Err = err.Error()
		msg = msg + ": " + err.Error()
	}
	r.log.Error("run failed", logger.String("reason", msg))
	_ = r.m.Fail(msg)
}

func joinSources(ids []types.SourceID) string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = id.Label()
	}
	return strings.Join(labels, ", ")
}
