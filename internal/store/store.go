// Package store keeps an audit journal of translation runs in SQLite. The
// journal is write-mostly: it is never consulted to translate text.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/bhilidoc/internal"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL,
		format TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		service TEXT NOT NULL,
		output_file TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		blocks INTEGER DEFAULT 0,
		sentences INTEGER DEFAULT 0,
		fallbacks INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	-- run_blocks stores the source and translated text of every block of a run
	CREATE TABLE IF NOT EXISTS run_blocks (
		run_id TEXT NOT NULL,
		block_idx INTEGER NOT NULL,
		unit TEXT NOT NULL,
		source_text TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		fallbacks INTEGER DEFAULT 0,
		PRIMARY KEY (run_id, block_idx),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Run is a row of the runs table.
type Run struct {
	ID         string
	InputFile  string
	Format     string
	SourceLang string
	TargetLang string
	Service    string
	OutputFile string
	Status     string
	Blocks     int
	Sentences  int
	Fallbacks  int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunStats are the counters recorded when a run finishes.
type RunStats struct {
	Blocks    int
	Sentences int
	Fallbacks int
}

// BlockRecord is a row of the run_blocks table.
type BlockRecord struct {
	Index          int
	Unit           string
	SourceText     string
	TranslatedText string
	Fallbacks      int
}

// StartRun records a new run in the running state and returns its ID. An
// ID is generated when req.ID is empty.
func (s *Store) StartRun(ctx context.Context, req internal.RunRequest) (string, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	started := req.Timestamp
	if started.IsZero() {
		started = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_file, format, source_lang, target_lang, service, output_file, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, req.InputFile, req.Format, req.SourceLang, req.TargetLang, req.Service, req.OutputFile, StatusRunning, started)
	if err != nil {
		return "", err
	}
	return id, nil
}

// SaveBlocks stores the blocks of a run in one transaction.
func (s *Store) SaveBlocks(ctx context.Context, runID string, blocks []BlockRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_blocks (run_id, block_idx, unit, source_text, translated_text, fallbacks) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range blocks {
		if _, err := stmt.ExecContext(ctx, runID, b.Index, b.Unit, normalizeText(b.SourceText), normalizeText(b.TranslatedText), b.Fallbacks); err != nil {
			return fmt.Errorf("block %d: %w", b.Index, err)
		}
	}
	return tx.Commit()
}

// FinishRun closes a run with its final status and counters. A non-nil
// runErr is stored as the failure message.
func (s *Store) FinishRun(ctx context.Context, runID, status string, stats RunStats, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, blocks = ?, sentences = ?, fallbacks = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, stats.Blocks, stats.Sentences, stats.Fallbacks, msg, time.Now(), runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, input_file, format, source_lang, target_lang, service, output_file, status, blocks, sentences, fallbacks, error, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.InputFile, &r.Format, &r.SourceLang, &r.TargetLang, &r.Service, &r.OutputFile,
		&r.Status, &r.Blocks, &r.Sentences, &r.Fallbacks, &r.Error, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}

// ListRuns returns runs newest first. A limit of zero or less returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// RunBlocks returns the blocks of a run in block order.
func (s *Store) RunBlocks(ctx context.Context, runID string) ([]BlockRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT block_idx, unit, source_text, translated_text, fallbacks FROM run_blocks WHERE run_id = ? ORDER BY block_idx`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []BlockRecord
	for rows.Next() {
		var b BlockRecord
		if err := rows.Scan(&b.Index, &b.Unit, &b.SourceText, &b.TranslatedText, &b.Fallbacks); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// ClearRuns removes every run and its blocks, returning the number of runs
// deleted.
func (s *Store) ClearRuns(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_blocks`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// Devanagari text compares equal across input sources.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
