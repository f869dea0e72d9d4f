// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package progress stores the pollable state of runs started through the
// HTTP front end.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// ErrNotFound is returned for unknown or expired run ids.
var ErrNotFound = errors.New("run not found")

// State is everything a poller can see about one run.
type State struct {
	RunID     string                `json:"run_id"`
	Request   types.ResearchRequest `json:"request"`
	Progress  types.Progress        `json:"progress"`
	Outcome   *types.RunOutcome     `json:"outcome,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// Done reports whether the run has reached a terminal stage.
func (s State) Done() bool {
	return s.Progress.Stage.Terminal()
}

// Store keeps run state for a bounded retention period. Every Put
// restarts the retention clock.
type Store interface {
	Put(ctx context.Context, st State) error
	Get(ctx context.Context, runID string) (State, error)
	Close() error
}

// Tracker forwards progress reports for one run into a Store. It
// satisfies the pipeline progress sink.
type Tracker struct {
	ctx   context.Context
	store Store
	state State
	log   logger.Logger
}

// Start stores the initial state of a run and returns its tracker.
func Start(ctx context.Context, store Store, runID string, req types.ResearchRequest, now time.Time, log logger.Logger) (*Tracker, error) {
	if log == nil {
		log = logger.NewNop()
	}
	t := &Tracker{
		ctx:   ctx,
		store: store,
		log:   log.With(logger.String("run_id", runID)),
		state: State{
			RunID:   runID,
			Request: req,
			Progress: types.Progress{
				Stage:     types.StageStarting,
				Message:   "Run queued",
				Status:    types.StatusRunning,
				UpdatedAt: now,
			},
			CreatedAt: now,
		},
	}
	if err := store.Put(ctx, t.state); err != nil {
		return nil, err
	}
	return t, nil
}

// Report stores p as the run's latest progress. Store failures are
// logged; a run never fails because its progress could not be recorded.
func (t *Tracker) Report(p types.Progress) {
	t.state.Progress = p
	if err := t.store.Put(t.ctx, t.state); err != nil {
		t.log.Warn("storing progress failed", logger.String("stage", string(p.Stage)), logger.Err(err))
	}
}

// Finish stores the run outcome alongside the final progress. It still
// writes after the run context is cancelled.
func (t *Tracker) Finish(out types.RunOutcome) error {
	t.state.Outcome = &out
	return t.store.Put(context.WithoutCancel(t.ctx), t.state)
}
