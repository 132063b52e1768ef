package manifest

// Row is one raw manifest record as it appears in the CSV. Every field is
// decoded as text; the mapper owns parsing and per-field tolerance.
type Row struct {
	PubChemCID       string `csv:"PubChem_CID"`
	SMILES           string `csv:"SMILES"`
	InChIKey         string `csv:"InChIKey"`
	MolecularFormula string `csv:"molecular_formula"`
	MolecularWeight  string `csv:"molecular_weight"`
	ExactMass        string `csv:"exact_mass"`
	XLogP3           string `csv:"XLogP3"`
	TPSA             string `csv:"TPSA"`
	HBA              string `csv:"HBA"`
	HBD              string `csv:"HBD"`
	RotatableBonds   string `csv:"rotatable_bonds"`
	DiscoveryMethod  string `csv:"discovery_method"`
	DiscoverySeed    string `csv:"discovery_seed"`
	Name             string `csv:"name"`
}

// RequiredColumns must all be present in the manifest header; a manifest
// missing any of them is rejected before a single row is written.
var RequiredColumns = []string{
	"PubChem_CID",
	"SMILES",
	"InChIKey",
	"molecular_formula",
	"molecular_weight",
	"exact_mass",
	"discovery_method",
	"discovery_seed",
}
