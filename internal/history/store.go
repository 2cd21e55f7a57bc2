// Package history keeps an optional SQLite log of analysis runs so that
// report changes on unchanged inputs can be spotted.
package history

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	apperrors "depusage/internal/errors"
)

// Run is one recorded variant analysis.
type Run struct {
	ID            string    `json:"id"`
	Variant       string    `json:"variant"`
	CreatedAt     time.Time `json:"createdAt"`
	Fingerprint   string    `json:"fingerprint"`
	Remove        int       `json:"remove"`
	Add           int       `json:"add"`
	Misconfigured int       `json:"misconfigured"`
	Report        string    `json:"-"`

	// Regression is set when the previous run of the same variant had the
	// same fingerprint but a different report.
	Regression bool `json:"regression,omitempty"`
}

// NewRun creates a run with a fresh id.
func NewRun(variant, fingerprint string, report []byte, remove, add, misconfigured int) *Run {
	return &Run{
		ID:            uuid.New().String(),
		Variant:       variant,
		CreatedAt:     time.Now().UTC(),
		Fingerprint:   fingerprint,
		Remove:        remove,
		Add:           add,
		Misconfigured: misconfigured,
		Report:        string(report),
	}
}

// Fingerprint hashes input descriptions with BLAKE2b-256.
func Fingerprint(items []string) string {
	sum := blake2b.Sum256([]byte(strings.Join(items, "\n")))
	return hex.EncodeToString(sum[:])
}

// ListOptions filters List.
type ListOptions struct {
	Variant string
	Limit   int
}

// Store provides persistence for runs in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the history database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, unavailable("cannot create history directory", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, unavailable("cannot open history database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, unavailable("cannot set pragma", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, unavailable("cannot initialize history schema", err)
	}
	return store, nil
}

// initializeSchema creates the runs table.
func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			variant TEXT NOT NULL,
			created_at TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			remove_count INTEGER NOT NULL,
			add_count INTEGER NOT NULL,
			misconfigured_count INTEGER NOT NULL,
			report TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_variant ON runs(variant, seq);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Record inserts a run.
func (s *Store) Record(run *Run) error {
	_, err := s.conn.Exec(`
		INSERT INTO runs (id, variant, created_at, fingerprint, remove_count, add_count, misconfigured_count, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Variant,
		run.CreatedAt.Format(time.RFC3339Nano),
		run.Fingerprint,
		run.Remove,
		run.Add,
		run.Misconfigured,
		run.Report,
	)
	if err != nil {
		return unavailable("cannot record run", err)
	}

	s.logger.Debug("Recorded run",
		"runId", run.ID,
		"variant", run.Variant,
	)
	return nil
}

// List returns runs newest first, with Regression computed against each
// run's predecessor for the same variant.
func (s *Store) List(opts ListOptions) ([]Run, error) {
	query := `
		SELECT id, variant, created_at, fingerprint, remove_count, add_count, misconfigured_count, report
		FROM runs
	`
	var args []interface{}
	if opts.Variant != "" {
		query += " WHERE variant = ?"
		args = append(args, opts.Variant)
	}
	query += " ORDER BY seq ASC"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, unavailable("cannot list runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	last := make(map[string]Run)
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(
			&run.ID,
			&run.Variant,
			&createdAt,
			&run.Fingerprint,
			&run.Remove,
			&run.Add,
			&run.Misconfigured,
			&run.Report,
		); err != nil {
			return nil, unavailable("cannot scan run", err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

		if prev, ok := last[run.Variant]; ok {
			run.Regression = prev.Fingerprint == run.Fingerprint && prev.Report != run.Report
		}
		runs = append(runs, run)
		last[run.Variant] = run
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error iterating runs", err)
	}

	// Newest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func unavailable(msg string, err error) error {
	return apperrors.New(apperrors.HistoryUnavailable, msg, fmt.Errorf("history: %w", err))
}
