// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

// Query holds parameters for archive searches.
type Query struct {
	// Text is matched against titles, analyses and payloads. Each
	// whitespace-separated term must appear.
	Text string

	// Source filters by data source.
	Source types.SourceID

	// RunID filters by run.
	RunID string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Hit is one archived record returned by Search.
type Hit struct {
	RunID    string         `db:"run_id" json:"run_id" yaml:"run_id"`
	Topic    string         `db:"topic" json:"topic" yaml:"topic"`
	Source   types.SourceID `db:"source" json:"source_id" yaml:"source_id"`
	NativeID string         `db:"native_id" json:"native_id" yaml:"native_id"`
	Title    string         `db:"title" json:"title" yaml:"title"`
	Status   string         `db:"status" json:"status_or_phase,omitempty" yaml:"status_or_phase,omitempty"`
	Sponsor  string         `db:"sponsor" json:"sponsor_or_owner,omitempty" yaml:"sponsor_or_owner,omitempty"`
	Analysis string         `db:"analysis" json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Rank     float64        `db:"rank" json:"-" yaml:"-"`
}

// Search queries archived records with optional full-text search and
// filters. Full-text results are ranked by relevance; filter-only results
// are newest run first.
func (s *Store) Search(ctx context.Context, q Query) ([]Hit, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		match  = ftsQuery(q.Text)
		useFTS = match != ""
	)

	if useFTS {
		qb.WriteString(
			`SELECT r.run_id, r.topic, rec.source, rec.native_id, rec.title, rec.status,
				rec.sponsor, rec.analysis, records_fts.rank AS rank
			FROM records_fts
			JOIN records rec ON rec.rowid = records_fts.rowid
			JOIN runs r ON r.id = rec.run_pk
			WHERE records_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(
			`SELECT r.run_id, r.topic, rec.source, rec.native_id, rec.title, rec.status,
				rec.sponsor, rec.analysis, 0.0 AS rank
			FROM records rec
			JOIN runs r ON r.id = rec.run_pk
			WHERE 1=1`)
	}

	if q.Source != "" {
		qb.WriteString(` AND rec.source = ?`)
		args = append(args, string(q.Source))
	}
	if q.RunID != "" {
		qb.WriteString(` AND r.run_id = ?`)
		args = append(args, q.RunID)
	}

	if useFTS {
		qb.WriteString(` ORDER BY records_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY r.finished_at DESC, rec.rowid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	var hits []Hit
	if err := s.db.SelectContext(ctx, &hits, qb.String(), args...); err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	return hits, nil
}

// ftsQuery quotes every term so user input such as "PD-1" is matched
// literally instead of parsed as FTS5 syntax.
func ftsQuery(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

// Run is the archived header of one pipeline run.
type Run struct {
	ArchiveID   int64              `json:"archive_id" yaml:"archive_id"`
	RunID       string             `json:"run_id" yaml:"run_id"`
	Topic       string             `json:"topic" yaml:"topic"`
	Mode        types.ResearchMode `json:"mode" yaml:"mode"`
	DrugName    string             `json:"drug_name,omitempty" yaml:"drug_name,omitempty"`
	Indication  string             `json:"indication,omitempty" yaml:"indication,omitempty"`
	Keywords    []string           `json:"keywords" yaml:"keywords"`
	Summary     string             `json:"summary" yaml:"summary"`
	RecordCount int                `json:"record_count" yaml:"record_count"`
	FinishedAt  string             `json:"finished_at" yaml:"finished_at"`
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit,
	); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]Run, len(rows))
	for i, row := range rows {
		runs[i] = Run{
			ArchiveID:   row.ID,
			RunID:       row.RunID,
			Topic:       row.Topic,
			Mode:        types.ResearchMode(row.Mode),
			DrugName:    row.DrugName,
			Indication:  row.Indication,
			Summary:     row.Summary,
			RecordCount: row.RecordCount,
			FinishedAt:  row.FinishedAt,
		}
		if err := json.Unmarshal([]byte(row.Keywords), &runs[i].Keywords); err != nil {
			return nil, fmt.Errorf("decoding keywords of run %s: %w", row.RunID, err)
		}
	}
	return runs, nil
}

// Records returns the archived records of one run in their original
// order.
func (s *Store) Records(ctx context.Context, runID string) ([]*types.DataRecord, error) {
	var data []string
	if err := s.db.SelectContext(ctx, &data,
		`SELECT rec.data FROM records rec JOIN runs r ON r.id = rec.run_pk
		 WHERE r.run_id = ? ORDER BY rec.rowid`, runID,
	); err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	out := make([]*types.DataRecord, 0, len(data))
	for _, d := range data {
		var rec types.DataRecord
		if err := json.Unmarshal([]byte(d), &rec); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
