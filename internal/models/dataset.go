package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// Dataset identifies one ingested manifest.
type Dataset struct {
	bun.BaseModel `bun:"table:datasets,alias:d"`

	DatasetID   string    `bun:"dataset_id,pk" json:"dataset_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	IngestRunID *string   `bun:"ingest_run_id" json:"ingest_run_id,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Validate checks that required dataset fields are present.
func (d *Dataset) Validate() error {
	if d.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if d.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// IngestRun records one pipeline invocation against a dataset.
type IngestRun struct {
	bun.BaseModel `bun:"table:ingest_runs,alias:r"`

	ID         int64      `bun:"id,pk,autoincrement" json:"id"`
	RunID      string     `bun:"run_id,unique,notnull" json:"run_id"`
	DatasetID  string     `bun:"dataset_id,notnull" json:"dataset_id"`
	StartedAt  time.Time  `bun:"started_at,notnull" json:"started_at"`
	FinishedAt *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
	Status     RunStatus  `bun:"status,notnull" json:"status"`
	Stats      RunStats   `bun:"stats,type:text" json:"stats"`
	FailStage  *string    `bun:"fail_stage" json:"fail_stage,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Validate checks that required run fields are present.
func (r *IngestRun) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id is required")
	}
	if r.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if r.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// Finished reports whether the run reached a terminal state.
func (r *IngestRun) Finished() bool {
	return r.Status.Terminal()
}
