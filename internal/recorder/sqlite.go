package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"VCPSentinel/internal/model"
)

// SQLiteRecorder persists scan results and diagnostics to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the result cache be read while a scan writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			scan_date      TEXT PRIMARY KEY,
			run_id         TEXT NOT NULL,
			symbols        TEXT NOT NULL,
			universe_size  INTEGER,
			evaluated      INTEGER,
			batches_failed INTEGER,
			symbols_failed INTEGER NOT NULL DEFAULT 0,
			latest_session TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS diagnostics (
			id           TEXT PRIMARY KEY,
			timestamp    INTEGER NOT NULL,
			scan_date    TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			pass         INTEGER NOT NULL,
			report       TEXT,
			requested_by INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_diag_symbol ON diagnostics(symbol, scan_date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}

	// Columns added after the first release; older databases lack them.
	added := []string{
		`ALTER TABLE scan_results ADD COLUMN symbols_failed INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE scan_results ADD COLUMN latest_session TEXT NOT NULL DEFAULT ''`,
	}
	for _, s := range added {
		if _, err := r.db.Exec(s); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// SaveScan stores res as the result for its date, replacing any earlier one.
func (r *SQLiteRecorder) SaveScan(res *model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols, err := json.Marshal(res.Symbols)
	if err != nil {
		return fmt.Errorf("encode symbols: %w", err)
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO scan_results
		(scan_date, run_id, symbols, universe_size, evaluated, batches_failed,
		 symbols_failed, latest_session, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(scan_date) DO UPDATE SET
			run_id = excluded.run_id,
			symbols = excluded.symbols,
			universe_size = excluded.universe_size,
			evaluated = excluded.evaluated,
			batches_failed = excluded.batches_failed,
			symbols_failed = excluded.symbols_failed,
			latest_session = excluded.latest_session,
			created_at = excluded.created_at`,
		res.ScanDate, res.RunID, string(symbols),
		res.UniverseSize, res.Evaluated, res.BatchesFailed,
		res.SymbolsFailed, res.LatestSession, created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save scan %s: %w", res.ScanDate, err)
	}
	return tx.Commit()
}

// LoadScan returns the stored result for date (YYYY-MM-DD) or ErrNotFound.
func (r *SQLiteRecorder) LoadScan(date string) (*model.ScanResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		res     = &model.ScanResult{ScanDate: date}
		symbols string
		created int64
	)
	err := r.db.QueryRow(`SELECT run_id, symbols, universe_size, evaluated, batches_failed,
		symbols_failed, latest_session, created_at
		FROM scan_results WHERE scan_date = ?`, date).
		Scan(&res.RunID, &symbols, &res.UniverseSize, &res.Evaluated, &res.BatchesFailed,
			&res.SymbolsFailed, &res.LatestSession, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scan %s: %w", date, err)
	}
	if err := json.Unmarshal([]byte(symbols), &res.Symbols); err != nil {
		return nil, fmt.Errorf("decode symbols for %s: %w", date, err)
	}
	res.CreatedAt = time.Unix(created, 0)
	return res, nil
}

// RecordDiagnostic appends a diagnostic to the log, assigning an ID if unset.
func (r *SQLiteRecorder) RecordDiagnostic(rec *DiagnosticRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO diagnostics
		(id, timestamp, scan_date, symbol, pass, report, requested_by)
		VALUES (?,?,?,?,?,?,?)`,
		rec.ID, rec.CreatedAt.Unix(), rec.ScanDate, rec.Symbol, rec.Pass, rec.Report, rec.RequestedBy,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
