package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalysisRun is one persisted analysis of a module.
type AnalysisRun struct {
	ID         uuid.UUID       `json:"id"`
	ModuleName string          `json:"module_name"`
	ModulePath string          `json:"module_path"`
	CommitSHA  string          `json:"commit_sha,omitempty"`
	ModelCount int             `json:"model_count"`
	ViewCount  int             `json:"view_count"`
	RuleCount  int             `json:"rule_count"`
	MenuCount  int             `json:"menu_count"`
	Snapshot   json.RawMessage `json:"snapshot"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store provides analysis-run persistence.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over an open database.
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the runs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id UUID PRIMARY KEY,
		module_name TEXT NOT NULL,
		module_path TEXT NOT NULL,
		commit_sha TEXT,
		model_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		rule_count INTEGER NOT NULL DEFAULT 0,
		menu_count INTEGER NOT NULL DEFAULT 0,
		snapshot JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_module_name ON analysis_runs(module_name);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveRun inserts a run record.
func (s *Store) SaveRun(ctx context.Context, run *AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (
			id, module_name, module_path, commit_sha,
			model_count, view_count, rule_count, menu_count,
			snapshot, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.ModuleName, run.ModulePath, run.CommitSHA,
		run.ModelCount, run.ViewCount, run.RuleCount, run.MenuCount,
		run.Snapshot, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}
	return nil
}

// GetRun retrieves one run by id, or nil when absent.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*AnalysisRun, error) {
	query := `
		SELECT id, module_name, module_path, commit_sha,
			   model_count, view_count, rule_count, menu_count,
			   snapshot, created_at
		FROM analysis_runs WHERE id = $1
	`
	run := &AnalysisRun{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.ModuleName, &run.ModulePath, &run.CommitSHA,
		&run.ModelCount, &run.ViewCount, &run.RuleCount, &run.MenuCount,
		&run.Snapshot, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, module_name, module_path, commit_sha,
			   model_count, view_count, rule_count, menu_count,
			   snapshot, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		run := &AnalysisRun{}
		if err := rows.Scan(
			&run.ID, &run.ModuleName, &run.ModulePath, &run.CommitSHA,
			&run.ModelCount, &run.ViewCount, &run.RuleCount, &run.MenuCount,
			&run.Snapshot, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
