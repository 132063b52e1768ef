package manifest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

func TestParseDiscoverySeed(t *testing.T) {
	cases := []struct {
		in         string
		wantName   string
		wantSMILES string
	}{
		{"solvent:CCO", "solvent", "CCO"},
		{"solvent", "solvent", ""},
		{"a:b:c", "a", "b:c"},
		{"", "", ""},
		{"  spaced : CCO ", "spaced", "CCO"},
	}

	for _, tc := range cases {
		name, smiles := ParseDiscoverySeed(tc.in)
		if name != tc.wantName || smiles != tc.wantSMILES {
			t.Fatalf("ParseDiscoverySeed(%q) = (%q, %q), want (%q, %q)",
				tc.in, name, smiles, tc.wantName, tc.wantSMILES)
		}
	}
}

func TestMapRow(t *testing.T) {
	row := &Row{
		PubChemCID:      "2244",
		SMILES:          "CC(=O)OC1=CC=CC=C1C(=O)O",
		InChIKey:        "BSYNRYMUTXBXSQ-UHFFFAOYSA-N",
		MolecularWeight: "180.16",
		ExactMass:       "180.042",
		XLogP3:          "1.2",
		HBA:             "4",
		DiscoveryMethod: "similarity",
		DiscoverySeed:   "aspirin:CC(=O)OC1=CC=CC=C1C(=O)O",
	}

	m, err := MapRow(row, "ds", "run-1")
	if err != nil {
		t.Fatalf("map row: %v", err)
	}
	if m.CID != 2244 {
		t.Fatalf("unexpected cid: %d", m.CID)
	}
	if m.DiscoveryMethod != models.MethodSim2D {
		t.Fatalf("expected similarity to normalize to sim2d, got %q", m.DiscoveryMethod)
	}
	if m.SeedName == nil || *m.SeedName != "aspirin" {
		t.Fatalf("unexpected seed name: %v", m.SeedName)
	}
	if m.SeedSMILES == nil || *m.SeedSMILES != "CC(=O)OC1=CC=CC=C1C(=O)O" {
		t.Fatalf("unexpected seed smiles: %v", m.SeedSMILES)
	}
	if m.MolecularWeight == nil || *m.MolecularWeight != 180.16 {
		t.Fatalf("unexpected weight: %v", m.MolecularWeight)
	}
	if m.TPSA != nil {
		t.Fatalf("missing TPSA must map to nil")
	}
}

func TestMapRowFloatFormattedCID(t *testing.T) {
	m, err := MapRow(&Row{PubChemCID: "2244.0"}, "ds", "run-1")
	if err != nil {
		t.Fatalf("map row: %v", err)
	}
	if m.CID != 2244 {
		t.Fatalf("unexpected cid: %d", m.CID)
	}
}

func TestMapRowBadCID(t *testing.T) {
	for _, bad := range []string{"", "abc", "12.5"} {
		if _, err := MapRow(&Row{PubChemCID: bad}, "ds", "run-1"); err == nil {
			t.Fatalf("expected error for cid %q", bad)
		}
	}
}

const sampleManifest = `PubChem_CID,SMILES,InChIKey,molecular_formula,molecular_weight,exact_mass,discovery_method,discovery_seed,name
2244,CC(=O)OC1=CC=CC=C1C(=O)O,BSYNRYMUTXBXSQ-UHFFFAOYSA-N,C9H8O4,180.16,180.042,substructure,aspirin:CC(=O)OC1=CC=CC=C1C(=O)O,aspirin
702,CCO,LFQSCWFLJHTTHZ-UHFFFAOYSA-N,C2H6O,46.07,46.042,sim2d,solvent:CCO,ethanol
`

func TestReaderStreamsRows(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}

	var cids []string
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		cids = append(cids, row.PubChemCID)
	}

	if len(cids) != 2 || cids[0] != "2244" || cids[1] != "702" {
		t.Fatalf("unexpected cids: %v", cids)
	}
}

func TestReaderRejectsMissingColumns(t *testing.T) {
	// molecular_weight column dropped.
	csv := "PubChem_CID,SMILES,InChIKey,molecular_formula,exact_mass,discovery_method,discovery_seed\n"
	_, err := NewReader(strings.NewReader(csv))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "molecular_weight") {
		t.Fatalf("error should name the missing column: %v", err)
	}
}
