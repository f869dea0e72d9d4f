// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect fans a research request out to every source client,
// normalizes and merges what comes back, and applies the relevance filter.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/metrics"
	"github.com/pdiddy/landscape-engine/internal/relevance"
	"github.com/pdiddy/landscape-engine/internal/source"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Normalizer converts a raw record into a DataRecord. normalize.Registry
// satisfies it.
type Normalizer interface {
	Normalize(raw source.RawRecord) (*types.DataRecord, error)
}

// Collector runs one collection per call. It holds no per-run state, so a
// single Collector may serve concurrent runs.
type Collector struct {
	clients    []source.Client
	normalizer Normalizer
	log        logger.Logger
	metrics    *metrics.Metrics

	// Now stamps collected_at. Tests replace it.
	Now func() time.Time
}

// New returns a Collector over clients in their registration order.
func New(clients []source.Client, n Normalizer, log logger.Logger, m *metrics.Metrics) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		clients:    clients,
		normalizer: n,
		log:        log,
		metrics:    m,
		Now:        time.Now,
	}
}

// Sources returns the registered source ids in order.
func (c *Collector) Sources() []types.SourceID {
	ids := make([]types.SourceID, len(c.clients))
	for i, cl := range c.clients {
		ids[i] = cl.ID()
	}
	return ids
}

type fetchResult struct {
	status  types.SourceStatus
	records []*types.DataRecord
}

// Collect queries all sources concurrently and waits for every one of them
// before merging. A source that fails contributes zero records and a failed
// SourceStatus; it never fails the collection. Collect returns an error only
// for an invalid request or a cancelled context.
func (c *Collector) Collect(ctx context.Context, req types.ResearchRequest) (*types.CollectionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	started := c.Now()
	c.log.Info("collecting",
		logger.String("topic", req.Topic),
		logger.String("mode", string(req.Mode)),
		logger.Strings("keywords", req.Keywords),
		logger.Int("sources", len(c.clients)),
	)

	mapper := iter.Mapper[source.Client, fetchResult]{MaxGoroutines: len(c.clients)}
	results := mapper.Map(c.clients, func(cl *source.Client) fetchResult {
		return c.fetch(ctx, *cl, req)
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	res := merge(c.clients, results, req.Topic, c.Now())
	res.StartedAt = started
	res.Filtered = relevance.Filter(res.Merged, req.Keywords)
	res.Duration = c.Now().Sub(started)

	c.metrics.AddRecords(metrics.StageDuplicate, res.DuplicatesRemoved)
	c.metrics.AddRecords(metrics.StageMerged, len(res.Merged))
	c.metrics.AddRecords(metrics.StageFiltered, len(res.Filtered))

	c.log.Info("collection finished",
		logger.String("topic", req.Topic),
		logger.Int("merged", len(res.Merged)),
		logger.Int("filtered", len(res.Filtered)),
		logger.Int("duplicates", res.DuplicatesRemoved),
		logger.String("condition", string(res.Condition())),
		logger.Duration("elapsed", res.Duration),
	)
	return res, nil
}

// merge concatenates per-source records in registration order, drops
// repeated (source, native id) pairs, and stamps each kept record.
func merge(clients []source.Client, results []fetchResult, topic string, at time.Time) *types.CollectionResult {
	res := &types.CollectionResult{
		RecordsBySource: make(map[types.SourceID][]*types.DataRecord, len(clients)),
		Merged:          []*types.DataRecord{},
	}
	seen := make(map[string]bool)
	for i, cl := range clients {
		id := cl.ID()
		if _, ok := res.RecordsBySource[id]; !ok {
			res.Order = append(res.Order, id)
			res.RecordsBySource[id] = []*types.DataRecord{}
		}
		for _, rec := range results[i].records {
			key := rec.Key()
			if seen[key] {
				res.DuplicatesRemoved++
				continue
			}
			if err := rec.Stamp(topic, at); err != nil {
				continue
			}
			seen[key] = true
			res.RecordsBySource[id] = append(res.RecordsBySource[id], rec)
			res.Merged = append(res.Merged, rec)
		}
		res.Sources = append(res.Sources, results[i].status)
	}
	return res
}

// fetch runs one client and normalizes its records. A panicking client is
// recorded as failed.
func (c *Collector) fetch(ctx context.Context, cl source.Client, req types.ResearchRequest) (fr fetchResult) {
	id := cl.ID()
	log := c.log.With(logger.String("source", string(id)))
	fr.status.Source = id
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			fr.records = nil
			fr.status.Failed = true
			fr.status.Err = fmt.Sprintf("panic: %v", r)
			log.Error("source client panicked", logger.Any("panic", r))
		}
		fr.status.Duration = time.Since(start)
		c.metrics.ObserveFetch(string(id), outcome(fr.status), fr.status.Duration)
		c.metrics.AddRecords(metrics.StageFetched, fr.status.Fetched)
		c.metrics.AddRecords(metrics.StageNormalized, fr.status.Normalized)
		c.metrics.AddRecords(metrics.StageSkipped, fr.status.Skipped)
	}()

	raw, err := cl.Fetch(ctx, req)
	fr.status.Fetched = len(raw)
	if err != nil {
		fr.status.Err = err.Error()
		if len(raw) == 0 {
			fr.status.Failed = true
			log.Warn("source unavailable", logger.Err(err))
			return fr
		}
		log.Warn("source returned partial results", logger.Int("records", len(raw)), logger.Err(err))
	}

	if n, ok := cl.(source.Narrower); ok {
		raw = n.Narrow(raw)
	}
	fr.status.Narrowed = len(raw)

	fr.records = make([]*types.DataRecord, 0, len(raw))
	for _, r := range raw {
		rec, err := c.normalizer.Normalize(r)
		if err != nil {
			fr.status.Skipped++
			log.Warn("skipping record", logger.Err(err))
			continue
		}
		fr.records = append(fr.records, rec)
	}
	fr.status.Normalized = len(fr.records)

	log.Debug("source fetched",
		logger.Int("fetched", fr.status.Fetched),
		logger.Int("narrowed", fr.status.Narrowed),
		logger.Int("normalized", fr.status.Normalized),
		logger.Int("skipped", fr.status.Skipped),
	)
	return fr
}

func outcome(s types.SourceStatus) string {
	switch {
	case s.Failed:
		return metrics.OutcomeFailed
	case s.Err != "":
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeOK
	}
}

// Summary renders per-source counts on one line, e.g.
// "trials=5 literature=failed regulatory=3 (merged 8, relevant 2)".
func Summary(res *types.CollectionResult) string {
	var parts []string
	for _, s := range res.Sources {
		switch {
		case s.Failed:
			parts = append(parts, fmt.Sprintf("%s=failed", s.Source))
		case s.Err != "":
			parts = append(parts, fmt.Sprintf("%s=%d(partial)", s.Source, len(res.RecordsBySource[s.Source])))
		default:
			parts = append(parts, fmt.Sprintf("%s=%d", s.Source, len(res.RecordsBySource[s.Source])))
		}
	}
	return fmt.Sprintf("%s (merged %d, relevant %d)", strings.Join(parts, " "), len(res.Merged), len(res.Filtered))
}
