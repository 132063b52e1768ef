package pubchem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
)

// DefaultBatchSize is the number of CIDs requested per PUG call. PubChem
// accepts comma-joined lists; staying around this size keeps single
// responses to a few megabytes.
const DefaultBatchSize = 100

// Fetcher downloads conformer batches for a CID list and concatenates them
// into one SDF stream consumable by the structure loader.
type Fetcher struct {
	client    *Client
	batchSize int
}

// NewFetcher creates a fetcher over an existing client.
func NewFetcher(client *Client, batchSize int) *Fetcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Fetcher{client: client, batchSize: batchSize}
}

// FetchResult summarizes one conformer download.
type FetchResult struct {
	CIDsRequested  int   `json:"cids_requested"`
	BatchesFetched int   `json:"batches_fetched"`
	BatchesEmpty   int   `json:"batches_empty"`
	BatchesFailed  int   `json:"batches_failed"`
	BytesWritten   int64 `json:"bytes_written"`
}

// DownloadConformers fetches 3D records for the given CIDs batch by batch,
// writing the raw SDF to w. A batch with no 3D conformers or a batch that
// keeps failing after retries is logged and skipped; only write failures
// and cancellation abort the download.
func (f *Fetcher) DownloadConformers(ctx context.Context, cids []int64, w io.Writer) (FetchResult, error) {
	res := FetchResult{CIDsRequested: len(cids)}

	for start := 0; start < len(cids); start += f.batchSize {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		end := start + f.batchSize
		if end > len(cids) {
			end = len(cids)
		}
		batch := cids[start:end]

		data, err := f.client.FetchConformerSDF(ctx, batch)
		if errors.Is(err, ErrNoConformers) {
			res.BatchesEmpty++
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		if err != nil {
			log.Printf("conformer batch %d-%d failed: %v", batch[0], batch[len(batch)-1], err)
			res.BatchesFailed++
			continue
		}

		n, err := w.Write(data)
		if err != nil {
			return res, fmt.Errorf("write sdf: %w", err)
		}
		res.BytesWritten += int64(n)
		res.BatchesFetched++

		log.Printf("fetched conformers for %d/%d compounds", end, len(cids))
	}

	return res, nil
}
