// Package results persists evaluation runs to SQLite, so experiment
// outcomes can be compared across detectors and parameter choices.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aycadem/anomeval/pkg/eval"
)

const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	algorithm       TEXT NOT NULL,
	dataset         TEXT NOT NULL,
	threshold       REAL NOT NULL,
	auc             REAL NOT NULL,
	accuracy        REAL NOT NULL,
	precision       REAL NOT NULL,
	recall          REAL NOT NULL,
	specificity     REAL NOT NULL,
	f1_score        REAL NOT NULL,
	true_positives  INTEGER NOT NULL,
	false_positives INTEGER NOT NULL,
	true_negatives  INTEGER NOT NULL,
	false_negatives INTEGER NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_algorithm_idx ON runs (algorithm, created_at);
`

// Run is one persisted evaluation outcome.
type Run struct {
	ID             string
	Algorithm      string
	Dataset        string
	Threshold      float64
	AUC            float64
	Accuracy       float64
	Precision      float64
	Recall         float64
	Specificity    float64
	F1             float64
	TruePositives  int
	FalsePositives int
	TrueNegatives  int
	FalseNegatives int
	CreatedAt      time.Time
}

// FromResult flattens an evaluation result into a Run record.
func FromResult(algorithm, dataset string, r *eval.Result) *Run {
	return &Run{
		Algorithm:      algorithm,
		Dataset:        dataset,
		Threshold:      r.Threshold,
		AUC:            r.AUC,
		Accuracy:       r.Metrics.Accuracy,
		Precision:      r.Metrics.Precision,
		Recall:         r.Metrics.Recall,
		Specificity:    r.Metrics.Specificity,
		F1:             r.Metrics.F1,
		TruePositives:  r.Confusion.TruePositives,
		FalsePositives: r.Confusion.FalsePositives,
		TrueNegatives:  r.Confusion.TrueNegatives,
		FalseNegatives: r.Confusion.FalseNegatives,
	}
}

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("results: database path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("results: opening %s: %w", path, err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts a run, assigning an ID and timestamp when missing.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, algorithm, dataset, threshold, auc,
			accuracy, precision, recall, specificity, f1_score,
			true_positives, false_positives, true_negatives, false_negatives,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Algorithm, run.Dataset, run.Threshold, run.AUC,
		run.Accuracy, run.Precision, run.Recall, run.Specificity, run.F1,
		run.TruePositives, run.FalsePositives, run.TrueNegatives, run.FalseNegatives,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("results: saving run %s: %w", run.ID, err)
	}
	return nil
}

// List returns the most recent runs, newest first, optionally filtered by
// algorithm. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, algorithm string, limit int) ([]Run, error) {
	query := `
		SELECT id, algorithm, dataset, threshold, auc,
		       accuracy, precision, recall, specificity, f1_score,
		       true_positives, false_positives, true_negatives, false_negatives,
		       created_at
		FROM runs`
	args := []any{}
	if algorithm != "" {
		query += " WHERE algorithm = ?"
		args = append(args, algorithm)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("results: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.Algorithm, &r.Dataset, &r.Threshold, &r.AUC,
			&r.Accuracy, &r.Precision, &r.Recall, &r.Specificity, &r.F1,
			&r.TruePositives, &r.FalsePositives, &r.TrueNegatives, &r.FalseNegatives,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("results: scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
