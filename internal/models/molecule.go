package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// MoleculeMetadata is the hot per-molecule row from the manifest, one per
// (dataset_id, cid).
type MoleculeMetadata struct {
	bun.BaseModel `bun:"table:discovered_molecules,alias:m"`

	DatasetID        string          `bun:"dataset_id,pk" json:"dataset_id"`
	CID              int64           `bun:"cid,pk" json:"cid"`
	SMILES           *string         `bun:"smiles" json:"smiles,omitempty"`
	InChIKey         *string         `bun:"inchi_key" json:"inchi_key,omitempty"`
	MolecularFormula *string         `bun:"molecular_formula" json:"molecular_formula,omitempty"`
	MolecularWeight  *float64        `bun:"molecular_weight" json:"molecular_weight,omitempty"`
	ExactMass        *float64        `bun:"exact_mass" json:"exact_mass,omitempty"`
	XLogP3           *float64        `bun:"xlogp3" json:"xlogp3,omitempty"`
	TPSA             *float64        `bun:"tpsa" json:"tpsa,omitempty"`
	HBA              *int            `bun:"hba" json:"hba,omitempty"`
	HBD              *int            `bun:"hbd" json:"hbd,omitempty"`
	RotatableBonds   *int            `bun:"rotatable_bonds" json:"rotatable_bonds,omitempty"`
	DiscoveryMethod  DiscoveryMethod `bun:"discovery_method,notnull" json:"discovery_method"`
	DiscoverySeed    *string         `bun:"discovery_seed" json:"discovery_seed,omitempty"`
	SeedName         *string         `bun:"seed_name" json:"seed_name,omitempty"`
	SeedSMILES       *string         `bun:"seed_smiles" json:"seed_smiles,omitempty"`
	Name             *string         `bun:"name" json:"name,omitempty"`
	IngestRunID      string          `bun:"ingest_run_id,notnull" json:"ingest_run_id"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Geometry *MoleculeGeometry `bun:"rel:has-one,join:dataset_id=dataset_id,join:cid=cid" json:"geometry,omitempty"`
}

// Validate checks that required metadata fields are present.
func (m *MoleculeMetadata) Validate() error {
	if m.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if m.CID <= 0 {
		return errors.New("cid must be positive")
	}
	if m.DiscoveryMethod == "" {
		return errors.New("discovery_method is required")
	}
	if m.IngestRunID == "" {
		return errors.New("ingest_run_id is required")
	}
	return nil
}

// HasSeed reports whether the molecule carries discovery-seed provenance.
func (m *MoleculeMetadata) HasSeed() bool {
	return m.SeedName != nil && *m.SeedName != ""
}

// MoleculeGeometry is the hot conformer row for a molecule matched to its
// manifest entry.
type MoleculeGeometry struct {
	bun.BaseModel `bun:"table:molecule_geometry,alias:g"`

	DatasetID           string    `bun:"dataset_id,pk" json:"dataset_id"`
	CID                 int64     `bun:"cid,pk" json:"cid"`
	ConformerID         *string   `bun:"conformer_id" json:"conformer_id,omitempty"`
	MMFF94Energy        *float64  `bun:"mmff94_energy" json:"mmff94_energy,omitempty"`
	ConformerRMSD       *float64  `bun:"conformer_rmsd" json:"conformer_rmsd,omitempty"`
	EffectiveRotorCount *int      `bun:"effective_rotor_count" json:"effective_rotor_count,omitempty"`
	ShapeVolume         *float64  `bun:"shape_volume" json:"shape_volume,omitempty"`
	ShapeSelfOverlap    *float64  `bun:"shape_selfoverlap" json:"shape_selfoverlap,omitempty"`
	HeavyAtomCount      *int      `bun:"heavy_atom_count" json:"heavy_atom_count,omitempty"`
	ComponentCount      *int      `bun:"component_count" json:"component_count,omitempty"`
	IngestRunID         string    `bun:"ingest_run_id,notnull" json:"ingest_run_id"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Cold *MoleculeGeometryCold `bun:"rel:has-one,join:dataset_id=dataset_id,join:cid=cid" json:"-"`
}

// Validate checks that required geometry fields are present.
func (g *MoleculeGeometry) Validate() error {
	if g.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if g.CID <= 0 {
		return errors.New("cid must be positive")
	}
	if g.IngestRunID == "" {
		return errors.New("ingest_run_id is required")
	}
	return nil
}

// MoleculeGeometryCold holds the large per-molecule payloads. Never touched
// by listing queries; fetched only for single-molecule detail or 3D views.
type MoleculeGeometryCold struct {
	bun.BaseModel `bun:"table:molecule_geometry_cold,alias:gc"`

	DatasetID             string    `bun:"dataset_id,pk" json:"dataset_id"`
	CID                   int64     `bun:"cid,pk" json:"cid"`
	Molblock              string    `bun:"molblock,notnull" json:"molblock"`
	ShapeFingerprint      []byte    `bun:"shape_fingerprint" json:"-"`
	PharmacophoreFeatures []byte    `bun:"pharmacophore_features" json:"-"`
	MMFF94PartialCharges  []byte    `bun:"mmff94_partial_charges" json:"-"`
	CoordinateType        []byte    `bun:"coordinate_type" json:"-"`
	CreatedAt             time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Validate checks that required cold fields are present.
func (c *MoleculeGeometryCold) Validate() error {
	if c.DatasetID == "" {
		return errors.New("dataset_id is required")
	}
	if c.CID <= 0 {
		return errors.New("cid must be positive")
	}
	if c.Molblock == "" {
		return errors.New("molblock is required")
	}
	return nil
}
