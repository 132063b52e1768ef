package ingest

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
	"github.com/mzaitsev/molecule-explorer/internal/repositories"
	"github.com/mzaitsev/molecule-explorer/internal/sources/manifest"
)

// DefaultChunkSize bounds the rows committed per write.
const DefaultChunkSize = 500

// ManifestResult summarizes one manifest load.
type ManifestResult struct {
	RowsRead     int `json:"rows_read"`
	RowsUpserted int `json:"rows_upserted"`
	RowsSkipped  int `json:"rows_skipped"`
}

// LoadManifest streams a manifest CSV into the hot metadata table for the
// tracker's dataset. A missing required column aborts before any row is
// written; rows with a bad chemical identifier are skipped and counted.
func LoadManifest(ctx context.Context, db *bun.DB, tracker *Tracker, path string, chunkSize int) (ManifestResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var res ManifestResult

	r, err := manifest.Open(path)
	if err != nil {
		return res, err
	}
	defer r.Close()

	// The dataset row appears only after the header validated, so a
	// rejected manifest never creates a dataset.
	runID := tracker.RunID()
	ds := &models.Dataset{
		DatasetID:   tracker.DatasetID(),
		Name:        tracker.DatasetName(),
		IngestRunID: &runID,
	}
	if err := repositories.UpsertDataset(ctx, db, ds); err != nil {
		return res, err
	}

	chunk := make([]*models.MoleculeMetadata, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := upsertMoleculesRetry(ctx, db, chunk); err != nil {
			return err
		}
		res.RowsUpserted += len(chunk)
		tracker.RecordManifest(ManifestResult{RowsUpserted: len(chunk)})
		chunk = chunk[:0]
		return nil
	}

	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		res.RowsRead++

		m, err := manifest.MapRow(row, tracker.DatasetID(), tracker.RunID())
		if err != nil {
			res.RowsSkipped++
			log.Printf("manifest row %d skipped: %v", res.RowsRead, err)
			continue
		}

		chunk = append(chunk, m)
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// upsertMoleculesRetry retries a chunk write once on store-level failure,
// assuming transient contention. A second failure is fatal for the run.
func upsertMoleculesRetry(ctx context.Context, db *bun.DB, chunk []*models.MoleculeMetadata) error {
	if err := repositories.UpsertMolecules(ctx, db, chunk); err != nil {
		log.Printf("metadata chunk write failed, retrying once: %v", err)
		return repositories.UpsertMolecules(ctx, db, chunk)
	}
	return nil
}
