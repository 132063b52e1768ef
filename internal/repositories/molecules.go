package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

// ErrNotFound is returned by single-row lookups with no matching row.
var ErrNotFound = errors.New("not found")

// UpsertMolecules performs a batch upsert of manifest rows keyed by
// (dataset_id, cid). Re-running on an updated manifest converges to the new
// manifest's contents.
func UpsertMolecules(ctx context.Context, db bun.IDB, molecules []*models.MoleculeMetadata) error {
	if len(molecules) == 0 {
		return nil
	}

	_, err := db.NewInsert().
		Model(&molecules).
		On("CONFLICT (dataset_id, cid) DO UPDATE").
		Set("smiles = EXCLUDED.smiles").
		Set("inchi_key = EXCLUDED.inchi_key").
		Set("molecular_formula = EXCLUDED.molecular_formula").
		Set("molecular_weight = EXCLUDED.molecular_weight").
		Set("exact_mass = EXCLUDED.exact_mass").
		Set("xlogp3 = EXCLUDED.xlogp3").
		Set("tpsa = EXCLUDED.tpsa").
		Set("hba = EXCLUDED.hba").
		Set("hbd = EXCLUDED.hbd").
		Set("rotatable_bonds = EXCLUDED.rotatable_bonds").
		Set("discovery_method = EXCLUDED.discovery_method").
		Set("discovery_seed = EXCLUDED.discovery_seed").
		Set("seed_name = EXCLUDED.seed_name").
		Set("seed_smiles = EXCLUDED.seed_smiles").
		Set("name = EXCLUDED.name").
		Set("ingest_run_id = EXCLUDED.ingest_run_id").
		Exec(ctx)

	return err
}

// ExistingCIDs returns the subset of cids that already have a metadata row in
// the dataset. The structure loader probes one chunk at a time rather than
// loading the whole manifest into memory.
func ExistingCIDs(ctx context.Context, db *bun.DB, datasetID string, cids []int64) (map[int64]bool, error) {
	existing := make(map[int64]bool, len(cids))
	if len(cids) == 0 {
		return existing, nil
	}

	var found []int64
	err := db.NewSelect().
		Model((*models.MoleculeMetadata)(nil)).
		Column("cid").
		Where("dataset_id = ?", datasetID).
		Where("cid IN (?)", bun.In(cids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, err
	}

	for _, cid := range found {
		existing[cid] = true
	}
	return existing, nil
}

// DatasetCIDs lists the chemical identifiers of a dataset in ascending
// order, optionally capped. The conformer fetcher uses it to build its
// download list.
func DatasetCIDs(ctx context.Context, db *bun.DB, datasetID string, limit int) ([]int64, error) {
	q := db.NewSelect().
		Model((*models.MoleculeMetadata)(nil)).
		Column("cid").
		Where("dataset_id = ?", datasetID).
		OrderExpr("cid ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var cids []int64
	err := q.Scan(ctx, &cids)
	return cids, err
}

// UpsertGeometryChunk writes matched hot and cold geometry rows in one
// transaction so the cold-requires-hot invariant never observes a hot-only
// state from outside.
func UpsertGeometryChunk(ctx context.Context, db *bun.DB, hot []*models.MoleculeGeometry, cold []*models.MoleculeGeometryCold) error {
	if len(hot) == 0 {
		return nil
	}
	if len(hot) != len(cold) {
		return fmt.Errorf("geometry chunk mismatch: %d hot rows, %d cold rows", len(hot), len(cold))
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&hot).
			On("CONFLICT (dataset_id, cid) DO UPDATE").
			Set("conformer_id = EXCLUDED.conformer_id").
			Set("mmff94_energy = EXCLUDED.mmff94_energy").
			Set("conformer_rmsd = EXCLUDED.conformer_rmsd").
			Set("effective_rotor_count = EXCLUDED.effective_rotor_count").
			Set("shape_volume = EXCLUDED.shape_volume").
			Set("shape_selfoverlap = EXCLUDED.shape_selfoverlap").
			Set("heavy_atom_count = EXCLUDED.heavy_atom_count").
			Set("component_count = EXCLUDED.component_count").
			Set("ingest_run_id = EXCLUDED.ingest_run_id").
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewInsert().
			Model(&cold).
			On("CONFLICT (dataset_id, cid) DO UPDATE").
			Set("molblock = EXCLUDED.molblock").
			Set("shape_fingerprint = EXCLUDED.shape_fingerprint").
			Set("pharmacophore_features = EXCLUDED.pharmacophore_features").
			Set("mmff94_partial_charges = EXCLUDED.mmff94_partial_charges").
			Set("coordinate_type = EXCLUDED.coordinate_type").
			Exec(ctx)
		return err
	})
}

// GetMolecule fetches one molecule with its hot geometry, if any.
func GetMolecule(ctx context.Context, db *bun.DB, datasetID string, cid int64) (*models.MoleculeMetadata, error) {
	molecule := new(models.MoleculeMetadata)
	err := db.NewSelect().
		Model(molecule).
		Where("m.dataset_id = ?", datasetID).
		Where("m.cid = ?", cid).
		Relation("Geometry").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return molecule, err
}

// GetGeometryCold fetches the cold payload row for one molecule.
func GetGeometryCold(ctx context.Context, db *bun.DB, datasetID string, cid int64) (*models.MoleculeGeometryCold, error) {
	cold := new(models.MoleculeGeometryCold)
	err := db.NewSelect().
		Model(cold).
		Where("dataset_id = ?", datasetID).
		Where("cid = ?", cid).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cold, err
}

// ListFamilies returns the distinct seed names of a dataset.
func ListFamilies(ctx context.Context, db *bun.DB, datasetID string) ([]string, error) {
	var families []string
	err := db.NewSelect().
		Model((*models.MoleculeMetadata)(nil)).
		ColumnExpr("DISTINCT seed_name").
		Where("dataset_id = ?", datasetID).
		Where("seed_name IS NOT NULL").
		OrderExpr("seed_name").
		Scan(ctx, &families)

	return families, err
}

// SeedInfo is one distinct discovery seed within a dataset.
type SeedInfo struct {
	DiscoverySeed *string `bun:"discovery_seed" json:"discovery_seed"`
	SeedName      *string `bun:"seed_name" json:"seed_name"`
	SeedSMILES    *string `bun:"seed_smiles" json:"seed_smiles"`
}

// ListSeeds returns the distinct seeds of a dataset, optionally filtered to
// one family.
func ListSeeds(ctx context.Context, db *bun.DB, datasetID, family string) ([]SeedInfo, error) {
	q := db.NewSelect().
		Model((*models.MoleculeMetadata)(nil)).
		ColumnExpr("DISTINCT discovery_seed, seed_name, seed_smiles").
		Where("dataset_id = ?", datasetID)

	if family != "" {
		q = q.Where("seed_name = ?", family).OrderExpr("discovery_seed")
	} else {
		q = q.OrderExpr("seed_name, discovery_seed")
	}

	var seeds []SeedInfo
	err := q.Scan(ctx, &seeds)
	return seeds, err
}

// SortSpec orders a molecule listing by one field.
type SortSpec struct {
	Field string `json:"field"`
	Dir   string `json:"dir"`
}

// Range bounds a numeric filter, inclusive on both ends.
type Range struct {
	Min float64
	Max float64
}

// MoleculeQuery filters, sorts, and paginates a molecule listing.
type MoleculeQuery struct {
	SeedName string
	Methods  []string
	Ranges   map[string]Range
	Sort     []SortSpec
	Limit    int
	Offset   int
}

// Column whitelist for range filters and sorting. Geometry columns force a
// join against the hot geometry table; cold columns are deliberately not
// reachable from here.
var queryColumns = map[string]struct {
	expr     string
	geometry bool
}{
	"molecular_weight": {"m.molecular_weight", false},
	"exact_mass":       {"m.exact_mass", false},
	"TPSA":             {"m.tpsa", false},
	"XLogP3":           {"m.xlogp3", false},
	"HBA":              {"m.hba", false},
	"HBD":              {"m.hbd", false},
	"rotatable_bonds":  {"m.rotatable_bonds", false},
	"mmff94_energy":    {"g.mmff94_energy", true},
	"shape_volume":     {"g.shape_volume", true},
}

func (q MoleculeQuery) needsGeometry() bool {
	for field := range q.Ranges {
		if col, ok := queryColumns[field]; ok && col.geometry {
			return true
		}
	}
	for _, s := range q.Sort {
		if col, ok := queryColumns[s.Field]; ok && col.geometry {
			return true
		}
	}
	return false
}

func applyMoleculeFilters(sel *bun.SelectQuery, datasetID string, q MoleculeQuery) *bun.SelectQuery {
	sel = sel.Where("m.dataset_id = ?", datasetID)

	if q.needsGeometry() {
		sel = sel.Join("LEFT JOIN molecule_geometry AS g ON g.dataset_id = m.dataset_id AND g.cid = m.cid")
	}
	if q.SeedName != "" {
		sel = sel.Where("m.seed_name = ?", q.SeedName)
	}
	if len(q.Methods) > 0 {
		sel = sel.Where("m.discovery_method IN (?)", bun.In(q.Methods))
	}
	for field, r := range q.Ranges {
		col, ok := queryColumns[field]
		if !ok {
			continue
		}
		sel = sel.Where(col.expr+" IS NOT NULL").
			Where(col.expr+" >= ?", r.Min).
			Where(col.expr+" <= ?", r.Max)
	}

	return sel
}

// QueryMolecules lists molecules of a dataset with filters, sorting, and
// pagination, plus the unpaginated total.
func QueryMolecules(ctx context.Context, db *bun.DB, datasetID string, q MoleculeQuery) ([]*models.MoleculeMetadata, int, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	sel := applyMoleculeFilters(db.NewSelect().Model((*models.MoleculeMetadata)(nil)).ColumnExpr("m.*"), datasetID, q)

	ordered := false
	for _, s := range q.Sort {
		col, ok := queryColumns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Dir == "desc" {
			dir = "DESC"
		}
		sel = sel.OrderExpr(col.expr + " " + dir)
		ordered = true
	}
	if !ordered {
		sel = sel.OrderExpr("m.cid ASC")
	}

	var molecules []*models.MoleculeMetadata
	err := sel.Limit(limit).Offset(q.Offset).Scan(ctx, &molecules)
	if err != nil {
		return nil, 0, err
	}

	total, err := applyMoleculeFilters(db.NewSelect().Model((*models.MoleculeMetadata)(nil)), datasetID, q).Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return molecules, total, nil
}

// FieldAggregate summarizes one numeric field over a filtered listing.
type FieldAggregate struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}

// AggregateMolecules returns count/min/max per filterable numeric field,
// under the same filters as QueryMolecules. Fields with no non-null values
// are omitted.
func AggregateMolecules(ctx context.Context, db *bun.DB, datasetID string, q MoleculeQuery) (map[string]FieldAggregate, error) {
	result := make(map[string]FieldAggregate)

	for field, col := range queryColumns {
		sel := db.NewSelect().
			Model((*models.MoleculeMetadata)(nil)).
			ColumnExpr("COUNT(*) AS count").
			ColumnExpr(fmt.Sprintf("MIN(%s) AS min", col.expr)).
			ColumnExpr(fmt.Sprintf("MAX(%s) AS max", col.expr)).
			Where("m.dataset_id = ?", datasetID).
			Where(col.expr + " IS NOT NULL")

		if col.geometry {
			sel = sel.Join("LEFT JOIN molecule_geometry AS g ON g.dataset_id = m.dataset_id AND g.cid = m.cid")
		}
		if q.SeedName != "" {
			sel = sel.Where("m.seed_name = ?", q.SeedName)
		}
		if len(q.Methods) > 0 {
			sel = sel.Where("m.discovery_method IN (?)", bun.In(q.Methods))
		}

		var agg FieldAggregate
		if err := sel.Scan(ctx, &agg.Count, &agg.Min, &agg.Max); err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", field, err)
		}
		if agg.Count > 0 {
			result[field] = agg
		}
	}

	return result, nil
}
