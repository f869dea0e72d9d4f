// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"time"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// ProgressSink receives progress reports. Report must not block the
// runner; implementations that persist reports do so without waiting on
// readers.
type ProgressSink interface {
	Report(p types.Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(p types.Progress)

// Report calls f(p).
func (f ProgressFunc) Report(p types.Progress) { f(p) }

type nopSink struct{}

func (nopSink) Report(types.Progress) {}

// stageOrder is the forward order of non-error stages.
var stageOrder = map[types.Stage]int{
	types.StageStarting:    0,
	types.StageCollecting:  1,
	types.StageAnalyzing:   2,
	types.StageSummarizing: 3,
	types.StageSaving:      4,
	types.StageComplete:    5,
}

// Machine tracks the runner's stage and forwards every change to a sink.
// Stages only move forward; stages may be skipped but never re-entered,
// and nothing moves out of a terminal stage. StageError is reachable from
// any non-terminal stage.
type Machine struct {
	stage   types.Stage
	started bool
	percent int
	sink    ProgressSink
	now     func() time.Time
}

// NewMachine returns a machine that has not yet entered StageStarting.
func NewMachine(sink ProgressSink, now func() time.Time) *Machine {
	if sink == nil {
		sink = nopSink{}
	}
	if now == nil {
		now = time.Now
	}
	return &Machine{sink: sink, now: now}
}

// Stage returns the current stage.
func (m *Machine) Stage() types.Stage { return m.stage }

// Percent returns the last reported percentage.
func (m *Machine) Percent() int { return m.percent }

// Advance moves to a later non-terminal or complete stage and reports it
// with status running, or completed for StageComplete.
func (m *Machine) Advance(to types.Stage, percent int, message string) error {
	status := types.StatusRunning
	if to == types.StageComplete {
		status = types.StatusCompleted
	}
	return m.transition(to, percent, message, status)
}

// Finish moves to StageComplete with the given status, which is either
// completed or no_data.
func (m *Machine) Finish(status types.RunStatus, message string) error {
	if status != types.StatusCompleted && status != types.StatusNoData {
		return fmt.Errorf("invalid completion status %q", status)
	}
	return m.transition(types.StageComplete, 100, message, status)
}

// Fail moves to StageError.
func (m *Machine) Fail(message string) error {
	if m.started && m.stage.Terminal() {
		return fmt.Errorf("run already ended in stage %s", m.stage)
	}
	m.started = true
	m.stage = types.StageError
	m.percent = 0
	m.emit(message, types.StatusError)
	return nil
}

// Update reports progress within the current stage. The percentage never
// decreases.
func (m *Machine) Update(percent int, message string) error {
	if !m.started || m.stage.Terminal() {
		return fmt.Errorf("cannot update progress in stage %q", m.stage)
	}
	if percent > m.percent {
		m.percent = percent
	}
	m.emit(message, types.StatusRunning)
	return nil
}

func (m *Machine) transition(to types.Stage, percent int, message string, status types.RunStatus) error {
	next, ok := stageOrder[to]
	if !ok {
		return fmt.Errorf("unknown stage %q", to)
	}
	if m.started {
		if m.stage.Terminal() {
			return fmt.Errorf("run already ended in stage %s", m.stage)
		}
		if next <= stageOrder[m.stage] {
			return fmt.Errorf("cannot move from %s to %s", m.stage, to)
		}
	}
	m.started = true
	m.stage = to
	m.percent = percent
	m.emit(message, status)
	return nil
}

func (m *Machine) emit(message string, status types.RunStatus) {
	m.sink.Report(types.Progress{
		Stage:     m.stage,
		Percent:   m.percent,
		Message:   message,
		Status:    status,
		UpdatedAt: m.now(),
	})
}
