package ingest

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
	"github.com/mzaitsev/molecule-explorer/internal/repositories"
	"github.com/mzaitsev/molecule-explorer/internal/sources/sdf"
)

// StructureResult summarizes one structure batch load.
type StructureResult struct {
	Parsed    int `json:"parsed"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Errors    int `json:"errors"`
}

// FileResult is the per-file breakdown of a structure load.
type FileResult struct {
	Path string `json:"path"`
	StructureResult
}

func (r *StructureResult) add(other StructureResult) {
	r.Parsed += other.Parsed
	r.Matched += other.Matched
	r.Unmatched += other.Unmatched
	r.Errors += other.Errors
}

// LoadStructures streams one or more structure batch files into the
// geometry tables. Records are written only when their identifier already
// has a metadata row in the dataset; the rest are counted as unmatched.
// Files are processed one at a time so per-file counts stay attributable.
func LoadStructures(ctx context.Context, db *bun.DB, tracker *Tracker, paths []string, chunkSize int) (StructureResult, []FileResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var (
		total StructureResult
		files []FileResult
	)

	for _, path := range paths {
		res, err := loadStructureFile(ctx, db, tracker, path, chunkSize)
		files = append(files, FileResult{Path: path, StructureResult: res})
		total.add(res)
		if err != nil {
			return total, files, err
		}
	}

	return total, files, nil
}

// pending is one parsed record awaiting its join probe.
type pending struct {
	cid int64
	rec *sdf.Record
}

func loadStructureFile(ctx context.Context, db *bun.DB, tracker *Tracker, path string, chunkSize int) (StructureResult, error) {
	var res StructureResult

	r, err := sdf.Open(path)
	if err != nil {
		return res, err
	}
	defer r.Close()

	chunk := make([]pending, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		matched, unmatched, err := writeChunk(ctx, db, tracker, chunk)
		if err != nil {
			return err
		}
		res.Matched += matched
		res.Unmatched += unmatched
		tracker.RecordStructures(StructureResult{Matched: matched, Unmatched: unmatched})
		chunk = chunk[:0]
		return nil
	}

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		res.Parsed++

		cid, err := sdf.CID(rec)
		if err != nil {
			res.Errors++
			tracker.RecordStructures(StructureResult{Errors: 1})
			log.Printf("structure record %d in %s skipped: %v", res.Parsed, path, err)
			continue
		}

		chunk = append(chunk, pending{cid: cid, rec: rec})
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

// writeChunk probes the store for the chunk's identifiers, maps the matched
// records into hot and cold rows, and commits them as one transaction with
// a single retry on failure.
func writeChunk(ctx context.Context, db *bun.DB, tracker *Tracker, chunk []pending) (matched, unmatched int, err error) {
	cids := make([]int64, len(chunk))
	for i, p := range chunk {
		cids[i] = p.cid
	}

	existing, err := repositories.ExistingCIDs(ctx, db, tracker.DatasetID(), cids)
	if err != nil {
		return 0, 0, err
	}

	var (
		hot  []*models.MoleculeGeometry
		cold []*models.MoleculeGeometryCold
	)
	for _, p := range chunk {
		if !existing[p.cid] {
			unmatched++
			continue
		}
		h, c := sdf.MapRecord(p.rec, tracker.DatasetID(), p.cid, tracker.RunID())
		hot = append(hot, h)
		cold = append(cold, c)
	}

	if err := repositories.UpsertGeometryChunk(ctx, db, hot, cold); err != nil {
		log.Printf("geometry chunk write failed, retrying once: %v", err)
		if err := repositories.UpsertGeometryChunk(ctx, db, hot, cold); err != nil {
			return 0, 0, err
		}
	}

	return len(hot), unmatched, nil
}
