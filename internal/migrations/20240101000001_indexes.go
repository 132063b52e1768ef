package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	// Migration 2: indexes for the browse query paths.
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_molecules_seed_name ON discovered_molecules(dataset_id, seed_name)",
			"CREATE INDEX IF NOT EXISTS idx_molecules_method ON discovered_molecules(dataset_id, discovery_method)",
			"CREATE INDEX IF NOT EXISTS idx_molecules_weight ON discovered_molecules(dataset_id, molecular_weight)",
			"CREATE INDEX IF NOT EXISTS idx_molecules_run ON discovered_molecules(ingest_run_id)",
			"CREATE INDEX IF NOT EXISTS idx_geometry_energy ON molecule_geometry(dataset_id, mmff94_energy)",
			"CREATE INDEX IF NOT EXISTS idx_geometry_volume ON molecule_geometry(dataset_id, shape_volume)",
			"CREATE INDEX IF NOT EXISTS idx_runs_dataset ON ingest_runs(dataset_id)",
			"CREATE INDEX IF NOT EXISTS idx_runs_started ON ingest_runs(started_at DESC)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_molecules_seed_name",
			"DROP INDEX IF EXISTS idx_molecules_method",
			"DROP INDEX IF EXISTS idx_molecules_weight",
			"DROP INDEX IF EXISTS idx_molecules_run",
			"DROP INDEX IF EXISTS idx_geometry_energy",
			"DROP INDEX IF EXISTS idx_geometry_volume",
			"DROP INDEX IF EXISTS idx_runs_dataset",
			"DROP INDEX IF EXISTS idx_runs_started",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
