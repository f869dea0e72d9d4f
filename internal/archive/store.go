// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps finished runs in a SQLite database with a
// full-text index over record titles, payloads and analyses.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/landscape-engine/pkg/types"
)

const defaultMaxResults = 20

// Store manages the run archive database.
type Store struct {
	db         *sqlx.DB
	maxResults int
}

// Open opens or creates the archive at path and creates the schema if it
// does not exist.
func Open(path string, maxResults int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	s := &Store{db: db, maxResults: maxResults}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			topic TEXT NOT NULL,
			mode TEXT NOT NULL,
			drug_name TEXT NOT NULL DEFAULT '',
			indication TEXT NOT NULL DEFAULT '',
			keywords TEXT NOT NULL,
			summary TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_pk INTEGER NOT NULL REFERENCES runs(id),
			source TEXT NOT NULL,
			native_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL,
			sponsor TEXT NOT NULL,
			analysis TEXT NOT NULL,
			content TEXT NOT NULL,
			data TEXT NOT NULL,
			UNIQUE (run_pk, source, native_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_pk)`,
		`CREATE INDEX IF NOT EXISTS idx_records_source ON records(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.Get(&ftsExists,
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE records_fts USING fts5(title, analysis, content, content=records, content_rowid=rowid)`,
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, title, analysis, content) VALUES (new.rowid, new.title, new.analysis, new.content);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title, analysis, content) VALUES('delete', old.rowid, old.title, old.analysis, old.content);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

type runRow struct {
	ID          int64  `db:"id"`
	RunID       string `db:"run_id"`
	Topic       string `db:"topic"`
	Mode        string `db:"mode"`
	DrugName    string `db:"drug_name"`
	Indication  string `db:"indication"`
	Keywords    string `db:"keywords"`
	Summary     string `db:"summary"`
	RecordCount int    `db:"record_count"`
	FinishedAt  string `db:"finished_at"`
}

type recordRow struct {
	RunPK    int64  `db:"run_pk"`
	Source   string `db:"source"`
	NativeID string `db:"native_id"`
	Title    string `db:"title"`
	Status   string `db:"status"`
	Sponsor  string `db:"sponsor"`
	Analysis string `db:"analysis"`
	Content  string `db:"content"`
	Data     string `db:"data"`
}

// Save archives a finished run and its merged records. Saving a run id
// again replaces the earlier copy. It satisfies the pipeline result sink.
func (s *Store) Save(ctx context.Context, a types.Artifacts) (types.SavedArtifacts, error) {
	var saved types.SavedArtifacts

	keywords, err := json.Marshal(a.Request.Keywords)
	if err != nil {
		return saved, fmt.Errorf("encoding keywords: %w", err)
	}
	finished := a.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return saved, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE run_pk IN (SELECT id FROM runs WHERE run_id = ?)`, a.RunID,
	); err != nil {
		return saved, fmt.Errorf("deleting old records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, a.RunID); err != nil {
		return saved, fmt.Errorf("deleting old run: %w", err)
	}

	res, err := tx.NamedExecContext(ctx,
		`INSERT INTO runs (run_id, topic, mode, drug_name, indication, keywords, summary, record_count, finished_at)
		 VALUES (:run_id, :topic, :mode, :drug_name, :indication, :keywords, :summary, :record_count, :finished_at)`,
		runRow{
			RunID:       a.RunID,
			Topic:       a.Request.Topic,
			Mode:        string(a.Request.Mode),
			DrugName:    a.Request.DrugName,
			Indication:  a.Request.Indication,
			Keywords:    string(keywords),
			Summary:     a.Summary,
			RecordCount: len(a.Records),
			FinishedAt:  finished.UTC().Format(time.RFC3339),
		})
	if err != nil {
		return saved, fmt.Errorf("inserting run: %w", err)
	}
	runPK, err := res.LastInsertId()
	if err != nil {
		return saved, fmt.Errorf("reading run id: %w", err)
	}

	analyses := make(map[string]string, len(a.Analyses))
	for _, an := range a.Analyses {
		analyses[string(an.Source)+":"+an.RecordID] = an.Text
	}

	stmt, err := tx.PrepareNamedContext(ctx,
		`INSERT OR IGNORE INTO records (run_pk, source, native_id, title, status, sponsor, analysis, content, data)
		 VALUES (:run_pk, :source, :native_id, :title, :status, :sponsor, :analysis, :content, :data)`)
	if err != nil {
		return saved, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range a.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return saved, fmt.Errorf("encoding record %s: %w", rec.Key(), err)
		}
		payload, err := json.Marshal(rec.RawPayload)
		if err != nil {
			return saved, fmt.Errorf("encoding payload %s: %w", rec.Key(), err)
		}
		row := recordRow{
			RunPK:    runPK,
			Source:   string(rec.Source),
			NativeID: rec.NativeID,
			Title:    rec.Title,
			Status:   rec.StatusOrPhase,
			Sponsor:  rec.SponsorOrOwner,
			Analysis: analyses[rec.Key()],
			Content:  string(payload),
			Data:     string(data),
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return saved, fmt.Errorf("inserting record %s: %w", rec.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return saved, fmt.Errorf("committing run: %w", err)
	}
	saved.ArchiveID = runPK
	return saved, nil
}
