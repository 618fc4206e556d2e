// Package calibrate loads recorded gate decisions into SQLite and derives
// per-path statistics and threshold recommendations from them.
package calibrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/glyphgate/internal/audit"
)

// ErrNoSamples is returned when a query has no decisions to work from.
var ErrNoSamples = errors.New("calibrate: no recorded decisions")

const schemaV1 = `
CREATE TABLE IF NOT EXISTS decisions (
	entry_hash    TEXT PRIMARY KEY,
	ts            TEXT NOT NULL DEFAULT '',
	operation_id  TEXT NOT NULL DEFAULT '',
	path          TEXT NOT NULL,
	from_tier     INTEGER NOT NULL,
	to_tier       INTEGER NOT NULL,
	structural    REAL NOT NULL DEFAULT 0,
	environmental REAL NOT NULL DEFAULT 0,
	semantic      REAL NOT NULL DEFAULT 0,
	unmeasured    INTEGER NOT NULL DEFAULT 0,
	weight        REAL NOT NULL,
	threshold     REAL NOT NULL,
	combiner      TEXT NOT NULL DEFAULT '',
	passed        INTEGER NOT NULL,
	config_hash   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_decisions_path ON decisions(path);
CREATE INDEX IF NOT EXISTS idx_decisions_weight ON decisions(weight);
`

// Store is a SQLite calibration database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("calibrate: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schemaV1); err != nil {
		db.Close()
		return nil, fmt.Errorf("calibrate: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import loads every decision from an audit log. Entries already present
// are skipped, so importing the same log twice is a no-op. Returns the
// number of new rows.
func (s *Store) Import(ctx context.Context, logPath string) (int, error) {
	entries, err := audit.ReadAll(logPath)
	if err != nil {
		return 0, fmt.Errorf("calibrate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("calibrate: begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO decisions
		(entry_hash, ts, operation_id, path, from_tier, to_tier,
		 structural, environmental, semantic, unmeasured,
		 weight, threshold, combiner, passed, config_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("calibrate: prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("calibrate: marshal entry: %w", err)
		}
		res, err := stmt.ExecContext(ctx,
			audit.HashLine(line), e.Timestamp, e.OperationID, e.Path, e.FromTier, e.ToTier,
			e.Delta.Structural, e.Delta.Environmental, e.Delta.Semantic, boolInt(e.Unmeasured),
			e.Weight, e.Threshold, e.Combiner, boolInt(e.Decision == audit.DecisionPass), e.ConfigHash)
		if err != nil {
			return 0, fmt.Errorf("calibrate: insert decision: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("calibrate: commit import: %w", err)
	}
	return inserted, nil
}

// PathStat aggregates the decisions recorded for one escalation path.
type PathStat struct {
	Path       string  `json:"path"`
	Total      int     `json:"total"`
	Passed     int     `json:"passed"`
	Unmeasured int     `json:"unmeasured"`
	MeanWeight float64 `json:"mean_weight"`
	MinWeight  float64 `json:"min_weight"`
	MaxWeight  float64 `json:"max_weight"`
}

// PassRate is Passed/Total.
func (p PathStat) PassRate() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Passed) / float64(p.Total)
}

// PathStats returns one row per escalation path, ordered by path.
func (s *Store) PathStats(ctx context.Context) ([]PathStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COUNT(*), SUM(passed), SUM(unmeasured),
		       AVG(weight), MIN(weight), MAX(weight)
		FROM decisions
		GROUP BY path
		ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("calibrate: query path stats: %w", err)
	}
	defer rows.Close()

	var out []PathStat
	for rows.Next() {
		var p PathStat
		if err := rows.Scan(&p.Path, &p.Total, &p.Passed, &p.Unmeasured, &p.MeanWeight, &p.MinWeight, &p.MaxWeight); err != nil {
			return nil, fmt.Errorf("calibrate: scan path stats: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Recommendation is a threshold derived from recorded weights.
type Recommendation struct {
	Path           string  `json:"path,omitempty"`
	TargetPassRate float64 `json:"target_pass_rate"`
	Threshold      float64 `json:"threshold"`
	PassRate       float64 `json:"pass_rate"`
	Samples        int     `json:"samples"`
}

// Recommend returns the highest threshold under which at least
// targetPassRate of the recorded measured decisions would pass. Unmeasured
// decisions carry no drift information and are excluded. An empty path
// considers every path.
func (s *Store) Recommend(ctx context.Context, targetPassRate float64, path string) (Recommendation, error) {
	rec := Recommendation{Path: path, TargetPassRate: targetPassRate}
	if targetPassRate <= 0 || targetPassRate > 1 || math.IsNaN(targetPassRate) {
		return rec, fmt.Errorf("calibrate: target pass rate %v outside (0, 1]", targetPassRate)
	}

	query := `SELECT weight FROM decisions WHERE unmeasured = 0`
	args := []any{}
	if path != "" {
		query += ` AND path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY weight DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return rec, fmt.Errorf("calibrate: query weights: %w", err)
	}
	defer rows.Close()

	var weights []float64
	for rows.Next() {
		var w float64
		if err := rows.Scan(&w); err != nil {
			return rec, fmt.Errorf("calibrate: scan weight: %w", err)
		}
		weights = append(weights, w)
	}
	if err := rows.Err(); err != nil {
		return rec, fmt.Errorf("calibrate: read weights: %w", err)
	}
	if len(weights) == 0 {
		return rec, ErrNoSamples
	}

	need := int(math.Ceil(targetPassRate*float64(len(weights)) - 1e-9))
	if need < 1 {
		need = 1
	}
	rec.Threshold = weights[need-1]
	passing := 0
	for _, w := range weights {
		if w >= rec.Threshold {
			passing++
		}
	}
	rec.Samples = len(weights)
	rec.PassRate = float64(passing) / float64(len(weights))
	return rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
