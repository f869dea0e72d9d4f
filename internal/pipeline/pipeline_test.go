// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/landscape-engine/internal/llm"
	"github.com/pdiddy/landscape-engine/internal/metrics"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

type fakeCollector struct {
	res *types.CollectionResult
	err error
}

func (f *fakeCollector) Collect(context.Context, types.ResearchRequest) (*types.CollectionResult, error) {
	return f.res, f.err
}

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	failOn map[string]bool
	onCall func(n int)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string, rec *types.DataRecord) (types.Analysis, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall(n)
	}
	if f.failOn[rec.NativeID] {
		return types.Analysis{}, errors.New("model error")
	}
	return types.Analysis{RecordID: rec.NativeID, Source: rec.Source, Title: rec.Title, Text: "model analysis"}, nil
}

type fakeSummarizer struct {
	text string
	err  error
	got  []types.Analysis
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ types.ResearchRequest, a []types.Analysis) (string, error) {
	f.got = a
	return f.text, f.err
}

type fakeSink struct {
	saved []types.Artifacts
	err   error
}

func (f *fakeSink) Save(_ context.Context, a types.Artifacts) (types.SavedArtifacts, error) {
	f.saved = append(f.saved, a)
	return types.SavedArtifacts{Summary: "out/summary.md"}, f.err
}

type recorder struct {
	mu      sync.Mutex
	reports []types.Progress
}

func (r *recorder) Report(p types.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, p)
}

func (r *recorder) stages() []types.Stage {
	var out []types.Stage
	for _, p := range r.reports {
		if len(out) == 0 || out[len(out)-1] != p.Stage {
			out = append(out, p.Stage)
		}
	}
	return out
}

func (r *recorder) last() types.Progress { return r.reports[len(r.reports)-1] }

func records(n int) []*types.DataRecord {
	out := make([]*types.DataRecord, n)
	for i := range out {
		out[i] = &types.DataRecord{Source: types.SourceTrials, NativeID: fmt.Sprintf("NCT%d", i), Title: fmt.Sprintf("Trial %d", i),
			Trial: &types.TrialDetail{NCTID: fmt.Sprintf("NCT%d", i), LeadSponsor: "Merck"}}
	}
	return out
}

func result(merged, filtered []*types.DataRecord, statuses ...types.SourceStatus) *types.CollectionResult {
	if len(statuses) == 0 {
		statuses = []types.SourceStatus{{Source: types.SourceTrials}}
	}
	return &types.CollectionResult{
		RecordsBySource: map[types.SourceID][]*types.DataRecord{types.SourceTrials: merged},
		Order:           []types.SourceID{types.SourceTrials},
		Merged:          merged,
		Filtered:        filtered,
		Sources:         statuses,
	}
}

var request = types.ResearchRequest{Topic: "Keytruda", Mode: types.ModeTopic, Keywords: []string{"keytruda"}}

func newRunner(t *testing.T, opts Options) *Runner {
	t.Helper()
	r, err := New(opts)
	require.NoError(t, err)
	r.NewID = func() string { return "run-1" }
	return r
}

func TestRunCompletes(t *testing.T) {
	recs := records(3)
	an := &fakeAnalyzer{failOn: map[string]bool{"NCT1": true}}
	sum := &fakeSummarizer{text: "# Landscape"}
	sink := &fakeSink{}
	m := metrics.New(nil)
	r := newRunner(t, Options{Collector: &fakeCollector{res: result(recs, recs)}, Analyzer: an, Summarizer: sum, Sink: sink, Metrics: m})

	rec := &recorder{}
	out := r.Run(context.Background(), request, rec)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, types.StageComplete, out.Stage)
	assert.Equal(t, types.ConditionOK, out.Condition)
	assert.Equal(t, "# Landscape", out.Summary)
	assert.False(t, out.SummaryFallback)
	assert.Equal(t, "out/summary.md", out.Saved.Summary)

	require.Len(t, out.Analyses, 3)
	assert.False(t, out.Analyses[0].Fallback)
	assert.True(t, out.Analyses[1].Fallback, "a failed analysis falls back to the basic one")
	assert.Len(t, sum.got, 3)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, "run-1", sink.saved[0].RunID)
	assert.Len(t, sink.saved[0].Records, 3)

	assert.Equal(t, []types.Stage{types.StageStarting, types.StageCollecting, types.StageAnalyzing, types.StageSummarizing, types.StageSaving, types.StageComplete}, rec.stages())
	assert.Equal(t, 100, rec.last().Percent)
	assert.Equal(t, types.StatusCompleted, rec.last().Status)

	prev := -1
	for _, p := range rec.reports {
		assert.GreaterOrEqual(t, p.Percent, prev, "percent never decreases on the success path")
		prev = p.Percent
	}
	assert.InDelta(t, 1, testutil.ToFloat64(m.Runs.WithLabelValues("completed")), 0)
}

func TestRunCapsAnalysis(t *testing.T) {
	recs := records(15)
	an := &fakeAnalyzer{}
	r := newRunner(t, Options{Collector: &fakeCollector{res: result(recs, recs)}, Analyzer: an, AnalysisCap: 10})

	rec := &recorder{}
	out := r.Run(context.Background(), request, rec)

	assert.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, 10, an.calls)
	assert.Len(t, out.Analyses, 10)
	assert.True(t, out.AnalysisTruncated)

	var found bool
	for _, p := range rec.reports {
		if p.Stage == types.StageAnalyzing && p.Percent == 40 {
			assert.Equal(t, "Analyzing 10 of 15 relevant records (analysis cap 10)", p.Message)
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunNoDataConditions(t *testing.T) {
	recs := records(2)
	down := types.SourceStatus{Source: types.SourceTrials, Failed: true, Err: "HTTP 503"}
	tests := []struct {
		name      string
		res       *types.CollectionResult
		status    types.RunStatus
		stage     types.Stage
		condition types.Condition
		message   string
	}{
		{"all sources empty", result(nil, nil), types.StatusNoData, types.StageComplete, types.ConditionNoData, `No data found for "Keytruda" in any source`},
		{"nothing relevant", result(recs, nil), types.StatusNoData, types.StageComplete, types.ConditionNoRelevantData, "Found 2 records but none matched the keywords"},
		{"all sources down", result(nil, nil, down), types.StatusError, types.StageError, types.ConditionAllSourcesUnavailable, "All data sources are unavailable: ClinicalTrials.gov"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			an := &fakeAnalyzer{}
			sink := &fakeSink{}
			r := newRunner(t, Options{Collector: &fakeCollector{res: tt.res}, Analyzer: an, Sink: sink})
			rec := &recorder{}
			out := r.Run(context.Background(), request, rec)

			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.stage, out.Stage)
			assert.Equal(t, tt.condition, out.Condition)
			assert.Equal(t, tt.message, out.Message)
			assert.Zero(t, an.calls)
			assert.Empty(t, sink.saved)
			assert.Equal(t, tt.status, rec.last().Status)
		})
	}
}

func TestRunSummarizerFallback(t *testing.T) {
	recs := records(2)
	tests := []struct {
		name string
		sum  llm.Summarizer
		msg  string
	}{
		{"rate limited", &fakeSummarizer{err: types.RateLimited("summarize", errors.New("429"))}, "AI summary unavailable (rate limited); using statistical summary"},
		{"other failure", &fakeSummarizer{err: errors.New("timeout")}, "AI summary failed; using statistical summary"},
		{"no summarizer", nil, "Statistical summary generated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(t, Options{Collector: &fakeCollector{res: result(recs, recs)}, Summarizer: tt.sum})
			rec := &recorder{}
			out := r.Run(context.Background(), request, rec)

			assert.Equal(t, types.StatusCompleted, out.Status)
			assert.True(t, out.SummaryFallback)
			assert.Contains(t, out.Summary, "## Executive Summary")
			assert.Contains(t, out.Message, "statistical summary")

			var msgs []string
			for _, p := range rec.reports {
				msgs = append(msgs, p.Message)
			}
			assert.Contains(t, msgs, tt.msg)
		})
	}
}

func TestRunFailures(t *testing.T) {
	recs := records(1)
	tests := []struct {
		name      string
		collector Collector
		sink      ResultSink
		req       types.ResearchRequest
		message   string
	}{
		{"invalid request", &fakeCollector{res: result(recs, recs)}, nil, types.ResearchRequest{Topic: "x"}, "Invalid research request"},
		{"collector error", &fakeCollector{err: context.DeadlineExceeded}, nil, request, "Data collection failed"},
		{"sink error", &fakeCollector{res: result(recs, recs)}, &fakeSink{err: errors.New("disk full")}, request, "Saving results failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(t, Options{Collector: tt.collector, Sink: tt.sink})
			rec := &recorder{}
			out := r.Run(context.Background(), tt.req, rec)

			assert.Equal(t, types.StatusError, out.Status)
			assert.Equal(t, types.StageError, out.Stage)
			assert.Equal(t, tt.message, out.Message)
			assert.NotEmpty(t, out.Err)
			assert.Equal(t, types.StageError, rec.last().Stage)
			assert.Equal(t, 0, rec.last().Percent)
		})
	}
}

func TestRunCancelledDuringAnalysis(t *testing.T) {
	recs := records(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	an := &fakeAnalyzer{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	r := newRunner(t, Options{Collector: &fakeCollector{res: result(recs, recs)}, Analyzer: an})
	out := r.Run(ctx, request, nil)

	assert.Equal(t, types.StatusError, out.Status)
	assert.Equal(t, "Run cancelled during analysis", out.Message)
	assert.Equal(t, 2, an.calls)
	assert.Len(t, out.Analyses, 2)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = New(Options{Collector: &fakeCollector{}, AnalysisCap: -1})
	assert.ErrorIs(t, err, types.ErrConfiguration)

	r, err := New(Options{Collector: &fakeCollector{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalysisCap, r.AnalysisCap())
}

func TestMachine(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &recorder{}
	m := NewMachine(rec, func() time.Time { return now })

	assert.Error(t, m.Update(5, "before start"))
	require.NoError(t, m.Advance(types.StageStarting, 0, "start"))
	require.NoError(t, m.Advance(types.StageCollecting, 10, "collect"))
	assert.Error(t, m.Advance(types.StageCollecting, 10, "again"), "no re-entry")
	assert.Error(t, m.Advance(types.StageStarting, 0, "back"), "no going back")
	require.NoError(t, m.Update(30, "more"))
	require.NoError(t, m.Update(20, "lower"))
	assert.Equal(t, 30, m.Percent())

	require.NoError(t, m.Advance(types.StageSaving, 95, "skip ahead"))
	assert.Error(t, m.Finish(types.StatusRunning, "bad status"))
	require.NoError(t, m.Finish(types.StatusNoData, "nothing"))
	assert.Error(t, m.Fail("after end"))
	assert.Error(t, m.Advance(types.StageComplete, 100, "after end"))
	assert.Error(t, m.Update(100, "after end"))

	assert.Equal(t, types.StageComplete, m.Stage())
	assert.Equal(t, types.StatusNoData, rec.last().Status)
	assert.Equal(t, now, rec.last().UpdatedAt)
	assert.Equal(t, 30, rec.reports[3].Percent, "lower update keeps the higher percent")
}

func TestMachineFailFromAnyStage(t *testing.T) {
	for _, stage := range []types.Stage{types.StageStarting, types.StageCollecting, types.StageAnalyzing, types.StageSummarizing, types.StageSaving} {
		m := NewMachine(nil, nil)
		require.NoError(t, m.Advance(stage, 50, ""))
		require.NoError(t, m.Fail("boom"), stage)
		assert.Equal(t, types.StageError, m.Stage())
		assert.Error(t, m.Fail("twice"))
	}
}

func TestProgressFunc(t *testing.T) {
	var got types.Progress
	ProgressFunc(func(p types.Progress) { got = p }).Report(types.Progress{Percent: 7})
	assert.Equal(t, 7, got.Percent)
}
