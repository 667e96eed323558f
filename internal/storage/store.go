// Package storage persists the pipeline's audit trail: terminal jobs and
// the decisions they produced. The queue itself stays in-process; this
// store exists so operators can answer "what did we decide and why"
// after the job record has been evicted.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/hook-warden/internal/core"
)

// JobRecord is the persisted form of a terminal job.
type JobRecord struct {
	JobID       string         `db:"job_id"       json:"jobId"`
	Repository  string         `db:"repository"   json:"repository"`
	EventType   core.EventType `db:"event_type"   json:"eventType"`
	Priority    core.Priority  `db:"priority"     json:"priority"`
	State       core.JobState  `db:"state"        json:"state"`
	Attempts    int            `db:"attempts"     json:"attempts"`
	EnqueuedAt  time.Time      `db:"enqueued_at"  json:"enqueuedAt"`
	CompletedAt time.Time      `db:"completed_at" json:"completedAt"`
	Error       string         `db:"error"        json:"error,omitempty"`
}

// DecisionRecord is one persisted automation decision.
type DecisionRecord struct {
	JobID          string            `db:"job_id"          json:"jobId"`
	Action         core.Action       `db:"action"          json:"action"`
	Reason         string            `db:"reason"          json:"reason"`
	TargetWorkflow string            `db:"target_workflow" json:"targetWorkflow,omitempty"`
	Metadata       map[string]string `db:"-"               json:"metadata,omitempty"`
	CreatedAt      time.Time         `db:"created_at"      json:"createdAt"`
}

// Store defines the audit persistence operations the pipeline needs.
type Store interface {
	// SaveJobResult persists a terminal job and its decisions in one
	// transaction.
	SaveJobResult(ctx context.Context, rec *JobRecord, decisions []core.AutomationDecision) error

	// DecisionsForJob returns the persisted decisions for a job id, or
	// core.ErrJobNotFound when the job was never persisted.
	DecisionsForJob(ctx context.Context, jobID string) ([]DecisionRecord, error)

	// RecentJobs returns the most recently completed job records.
	RecentJobs(ctx context.Context, limit int) ([]JobRecord, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Store backed by Postgres.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveJobResult inserts the job row and its decision rows atomically.
func (s *postgresStore) SaveJobResult(ctx context.Context, rec *JobRecord, decisions []core.AutomationDecision) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const jobQuery = `
		INSERT INTO job_results (job_id, repository, event_type, priority, state, attempts, enqueued_at, completed_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, jobQuery,
		rec.JobID, rec.Repository, rec.EventType, rec.Priority, rec.State,
		rec.Attempts, rec.EnqueuedAt, rec.CompletedAt, rec.Error,
	); err != nil {
		return fmt.Errorf("failed to insert job result: %w", err)
	}

	const decisionQuery = `
		INSERT INTO decisions (job_id, action, reason, target_workflow, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	now := time.Now().UTC()
	for _, d := range decisions {
		metadata, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode decision metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, decisionQuery,
			rec.JobID, d.Action, d.Reason, d.TargetWorkflow, metadata, now,
		); err != nil {
			return fmt.Errorf("failed to insert decision: %w", err)
		}
	}

	return tx.Commit()
}

// DecisionsForJob retrieves persisted decisions for a job id.
func (s *postgresStore) DecisionsForJob(ctx context.Context, jobID string) ([]DecisionRecord, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM job_results WHERE job_id = $1)`, jobID); err != nil {
		return nil, fmt.Errorf("failed to look up job %s: %w", jobID, err)
	}
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobID, core.ErrJobNotFound)
	}

	rows, err := s.db.QueryxContext(ctx,
		`SELECT job_id, action, reason, target_workflow, metadata, created_at
		 FROM decisions WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var metadata []byte
		if err := rows.Scan(&rec.JobID, &rec.Action, &rec.Reason, &rec.TargetWorkflow, &metadata, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode decision metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentJobs retrieves the latest terminal job records.
func (s *postgresStore) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []JobRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT job_id, repository, event_type, priority, state, attempts, enqueued_at, completed_at, error
		 FROM job_results ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query recent jobs: %w", err)
	}
	return records, nil
}
