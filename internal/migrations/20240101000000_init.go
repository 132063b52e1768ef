package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

func init() {
	// Migration 1: create tables. The cold partition carries a foreign key
	// to the hot geometry table so deleting a conformer drops its payloads.
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.Dataset)(nil),
			(*models.IngestRun)(nil),
			(*models.MoleculeMetadata)(nil),
			(*models.MoleculeGeometry)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		_, err := db.NewCreateTable().
			Model((*models.MoleculeGeometryCold)(nil)).
			IfNotExists().
			ForeignKey(`("dataset_id", "cid") REFERENCES "molecule_geometry" ("dataset_id", "cid") ON DELETE CASCADE`).
			Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.MoleculeGeometryCold)(nil),
			(*models.MoleculeGeometry)(nil),
			(*models.MoleculeMetadata)(nil),
			(*models.IngestRun)(nil),
			(*models.Dataset)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
