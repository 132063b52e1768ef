package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

// ErrRunAlreadyFinished is returned when a terminal transition is attempted
// on a run that already reached a terminal state.
var ErrRunAlreadyFinished = errors.New("ingest run already finished")

// UpsertDataset creates the dataset row on first ingest. On re-ingest only
// the display name is refreshed; the link to the creating run stays.
func UpsertDataset(ctx context.Context, db *bun.DB, ds *models.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	_, err := db.NewInsert().
		Model(ds).
		On("CONFLICT (dataset_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Exec(ctx)

	return err
}

// InsertRun records a new pipeline invocation in the running state.
func InsertRun(ctx context.Context, db *bun.DB, run *models.IngestRun) error {
	if err := run.Validate(); err != nil {
		return err
	}

	_, err := db.NewInsert().Model(run).Exec(ctx)
	return err
}

// FinishRun performs the exactly-once terminal transition of a run. The
// WHERE guard on status makes a second call a no-op reported as
// ErrRunAlreadyFinished.
func FinishRun(ctx context.Context, db *bun.DB, runID string, status models.RunStatus, stats models.RunStats, failStage *string) error {
	if !status.Terminal() {
		return errors.New("finish requires a terminal status")
	}

	now := time.Now()
	res, err := db.NewUpdate().
		Model((*models.IngestRun)(nil)).
		Set("status = ?", status).
		Set("stats = ?", stats).
		Set("finished_at = ?", now).
		Set("fail_stage = ?", failStage).
		Where("run_id = ?", runID).
		Where("status = ?", models.RunRunning).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunAlreadyFinished
	}
	return nil
}

// GetRun fetches one run by its run identifier.
func GetRun(ctx context.Context, db *bun.DB, runID string) (*models.IngestRun, error) {
	run := new(models.IngestRun)
	err := db.NewSelect().
		Model(run).
		Where("run_id = ?", runID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns returns recent runs, newest first.
func ListRuns(ctx context.Context, db *bun.DB, limit int) ([]*models.IngestRun, error) {
	if limit <= 0 {
		limit = 100
	}

	var runs []*models.IngestRun
	err := db.NewSelect().
		Model(&runs).
		OrderExpr("started_at DESC").
		Limit(limit).
		Scan(ctx)

	return runs, err
}

// DatasetSummary is a dataset row with its molecule count for listings.
type DatasetSummary struct {
	DatasetID     string    `bun:"dataset_id" json:"dataset_id"`
	Name          string    `bun:"name" json:"name"`
	IngestRunID   *string   `bun:"ingest_run_id" json:"ingest_run_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
	MoleculeCount int       `bun:"molecule_count" json:"molecule_count"`
}

// ListDatasets returns all datasets with per-dataset molecule counts,
// newest first.
func ListDatasets(ctx context.Context, db *bun.DB) ([]DatasetSummary, error) {
	var summaries []DatasetSummary
	err := db.NewSelect().
		TableExpr("datasets AS d").
		ColumnExpr("d.dataset_id, d.name, d.ingest_run_id, d.created_at").
		ColumnExpr("(SELECT COUNT(*) FROM discovered_molecules m WHERE m.dataset_id = d.dataset_id) AS molecule_count").
		OrderExpr("d.created_at DESC").
		Scan(ctx, &summaries)

	return summaries, err
}
