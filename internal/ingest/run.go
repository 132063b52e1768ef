package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
	"github.com/mzaitsev/molecule-explorer/internal/repositories"
)

// Stage names a pipeline stage for failure attribution.
type Stage string

const (
	StageManifest   Stage = "manifest"
	StageStructures Stage = "structures"
)

// ErrAlreadyFinished is returned when a tracker is finalized twice.
var ErrAlreadyFinished = errors.New("run already finalized")

// Tracker owns the lifecycle of one ingest run: created running, finalized
// exactly once as succeeded or failed, with accumulated statistics. Both
// load stages report into the same tracker.
type Tracker struct {
	db          *bun.DB
	run         *models.IngestRun
	datasetName string
	stats       models.RunStats
	finished    bool
}

// Begin records a new run in the running state and returns its tracker.
// An empty runID gets a fresh UUID. The dataset row itself is created by
// the manifest stage, after input validation, so a rejected manifest
// leaves no dataset behind; datasetName is carried here until then.
func Begin(ctx context.Context, db *bun.DB, datasetID, datasetName, runID string) (*Tracker, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	run := &models.IngestRun{
		RunID:     runID,
		DatasetID: datasetID,
		StartedAt: time.Now(),
		Status:    models.RunRunning,
	}
	if err := repositories.InsertRun(ctx, db, run); err != nil {
		return nil, err
	}

	return &Tracker{db: db, run: run, datasetName: datasetName}, nil
}

// RunID returns the run identifier threaded through both load stages.
func (t *Tracker) RunID() string {
	return t.run.RunID
}

// DatasetID returns the target dataset of this run.
func (t *Tracker) DatasetID() string {
	return t.run.DatasetID
}

// DatasetName returns the display name for the dataset, defaulting to the
// dataset identifier.
func (t *Tracker) DatasetName() string {
	if t.datasetName == "" {
		return t.run.DatasetID
	}
	return t.datasetName
}

// Stats returns a snapshot of the accumulated statistics with the coverage
// ratio filled in.
func (t *Tracker) Stats() models.RunStats {
	s := t.stats
	s.CoverageRatio = s.Coverage()
	return s
}

// RecordManifest folds a manifest stage result into the run statistics.
func (t *Tracker) RecordManifest(res ManifestResult) {
	t.stats.RowsUpserted += res.RowsUpserted
}

// RecordStructures folds a structure stage result into the run statistics.
func (t *Tracker) RecordStructures(res StructureResult) {
	t.stats.GeometryMatched += res.Matched
	t.stats.GeometryUnmatched += res.Unmatched
	t.stats.GeometryErrors += res.Errors
}

// Succeed finalizes the run as succeeded with its final statistics.
func (t *Tracker) Succeed(ctx context.Context) error {
	return t.finish(ctx, models.RunSucceeded, nil)
}

// Fail finalizes the run as failed, keeping whatever partial statistics were
// accumulated and recording the stage that failed.
func (t *Tracker) Fail(ctx context.Context, stage Stage) error {
	s := string(stage)
	return t.finish(ctx, models.RunFailed, &s)
}

func (t *Tracker) finish(ctx context.Context, status models.RunStatus, failStage *string) error {
	if t.finished {
		return ErrAlreadyFinished
	}
	t.finished = true

	return repositories.FinishRun(ctx, t.db, t.run.RunID, status, t.Stats(), failStage)
}
