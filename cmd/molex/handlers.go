package main

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/config"
	"github.com/mzaitsev/molecule-explorer/internal/database"
	"github.com/mzaitsev/molecule-explorer/internal/ingest"
	"github.com/mzaitsev/molecule-explorer/internal/migrations"
	"github.com/mzaitsev/molecule-explorer/internal/ratelimit"
	"github.com/mzaitsev/molecule-explorer/internal/repositories"
	"github.com/mzaitsev/molecule-explorer/internal/server"
	"github.com/mzaitsev/molecule-explorer/internal/sources/pubchem"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func openDB(cfg *config.Config) (*bun.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, cfg.Database.Debug)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrations.RunMigrations(context.Background(), db)
}

func runLoadManifest(datasetID, datasetName, path string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return err
	}

	tracker, err := ingest.Begin(ctx, db, datasetID, datasetName, "")
	if err != nil {
		return err
	}

	res, err := ingest.LoadManifest(ctx, db, tracker, path, cfg.Ingest.ChunkSize)
	if err != nil {
		if ferr := tracker.Fail(ctx, ingest.StageManifest); ferr != nil {
			fmt.Fprintf(os.Stderr, "finalize run: %v\n", ferr)
		}
		return fmt.Errorf("manifest load failed (run %s): %w", tracker.RunID(), err)
	}

	if err := tracker.Succeed(ctx); err != nil {
		return err
	}

	fmt.Printf("manifest ingest done: dataset=%s run=%s\n", datasetID, tracker.RunID())
	fmt.Printf("  rows read=%d upserted=%d skipped=%d\n", res.RowsRead, res.RowsUpserted, res.RowsSkipped)
	return nil
}

func runFetchStructures(datasetID, out string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return err
	}

	cids, err := repositories.DatasetCIDs(ctx, db, datasetID, limit)
	if err != nil {
		return err
	}
	if len(cids) == 0 {
		return fmt.Errorf("dataset %s has no molecules; load a manifest first", datasetID)
	}

	limiter := ratelimit.New(cfg.PubChem.RateLimit)
	client := pubchem.NewClient(limiter, cfg.PubChem.BaseURL, cfg.PubChem.RateLimit.MaxRetries)
	fetcher := pubchem.NewFetcher(client, cfg.PubChem.BatchSize)

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(out, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	res, ferr := fetcher.DownloadConformers(ctx, cids, w)
	if gz != nil {
		if err := gz.Close(); err != nil && ferr == nil {
			ferr = err
		}
	}
	if err := f.Close(); err != nil && ferr == nil {
		ferr = err
	}
	if ferr != nil {
		return fmt.Errorf("conformer download failed: %w", ferr)
	}

	fmt.Printf("conformer download done: dataset=%s out=%s\n", datasetID, out)
	fmt.Printf("  cids=%d batches fetched=%d empty=%d failed=%d bytes=%d\n",
		res.CIDsRequested, res.BatchesFetched, res.BatchesEmpty, res.BatchesFailed, res.BytesWritten)
	fmt.Printf("  next: molex load-structures --dataset-id %s %s\n", datasetID, out)
	return nil
}

func runLoadStructures(datasetID string, paths []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return err
	}

	tracker, err := ingest.Begin(ctx, db, datasetID, "", "")
	if err != nil {
		return err
	}

	res, files, err := ingest.LoadStructures(ctx, db, tracker, paths, cfg.Ingest.ChunkSize)
	if err != nil {
		if ferr := tracker.Fail(ctx, ingest.StageStructures); ferr != nil {
			fmt.Fprintf(os.Stderr, "finalize run: %v\n", ferr)
		}
		return fmt.Errorf("structure load failed (run %s): %w", tracker.RunID(), err)
	}

	if err := tracker.Succeed(ctx); err != nil {
		return err
	}

	fmt.Printf("structure ingest done: dataset=%s run=%s\n", datasetID, tracker.RunID())
	for _, f := range files {
		fmt.Printf("  %s: parsed=%d matched=%d unmatched=%d errors=%d\n",
			f.Path, f.Parsed, f.Matched, f.Unmatched, f.Errors)
	}
	fmt.Printf("  total: parsed=%d matched=%d unmatched=%d errors=%d\n",
		res.Parsed, res.Matched, res.Unmatched, res.Errors)
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.RunMigrations(ctx, db); err != nil {
		return err
	}

	return server.New(db, port).ListenAndServe()
}
