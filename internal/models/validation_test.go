package models

import (
	"encoding/json"
	"testing"
)

func TestDatasetValidate(t *testing.T) {
	valid := &Dataset{DatasetID: "pubchem-aspirin-v1", Name: "Aspirin analogs"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid dataset, got error: %v", err)
	}

	invalid := &Dataset{}
	if err := invalid.Validate(); err == nil {
		t.Fatalf("expected error for invalid dataset")
	}
}

func TestIngestRunValidate(t *testing.T) {
	run := &IngestRun{RunID: "run-1", DatasetID: "ds", Status: RunRunning}
	if err := run.Validate(); err != nil {
		t.Fatalf("expected valid run, got error: %v", err)
	}
	if run.Finished() {
		t.Fatalf("running run must not be finished")
	}

	run.Status = RunSucceeded
	if !run.Finished() {
		t.Fatalf("succeeded run must be finished")
	}
}

func TestMoleculeMetadataValidate(t *testing.T) {
	seed := "solvent"
	m := &MoleculeMetadata{
		DatasetID:       "ds",
		CID:             2244,
		DiscoveryMethod: MethodSubstructure,
		IngestRunID:     "run-1",
		SeedName:        &seed,
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid metadata, got error: %v", err)
	}
	if !m.HasSeed() {
		t.Fatalf("expected seed provenance")
	}

	m.CID = 0
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error for non-positive cid")
	}
}

func TestGeometryValidate(t *testing.T) {
	g := &MoleculeGeometry{DatasetID: "ds", CID: 2244, IngestRunID: "run-1"}
	if err := g.Validate(); err != nil {
		t.Fatalf("expected valid geometry, got error: %v", err)
	}

	cold := &MoleculeGeometryCold{DatasetID: "ds", CID: 2244}
	if err := cold.Validate(); err == nil {
		t.Fatalf("expected error for cold row without molblock")
	}
	cold.Molblock = "stub"
	if err := cold.Validate(); err != nil {
		t.Fatalf("expected valid cold row, got error: %v", err)
	}
}

func TestNormalizeDiscoveryMethod(t *testing.T) {
	cases := map[string]DiscoveryMethod{
		"":             MethodSubstructure,
		"  ":           MethodSubstructure,
		"similarity":   MethodSim2D,
		"Substructure": MethodSubstructure,
		"SIM3D":        MethodSim3D,
		"docking":      DiscoveryMethod("docking"),
	}
	for raw, want := range cases {
		if got := NormalizeDiscoveryMethod(raw); got != want {
			t.Fatalf("NormalizeDiscoveryMethod(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestRunStatsCoverage(t *testing.T) {
	s := RunStats{RowsUpserted: 3, GeometryMatched: 2}
	if got := s.Coverage(); got < 0.66 || got > 0.67 {
		t.Fatalf("unexpected coverage: %f", got)
	}

	empty := RunStats{}
	if got := empty.Coverage(); got != 0 {
		t.Fatalf("empty manifest coverage must be 0, got %f", got)
	}
}

func TestRunStatsScanValue(t *testing.T) {
	s := RunStats{RowsUpserted: 10, GeometryMatched: 7, GeometryUnmatched: 2, GeometryErrors: 1, CoverageRatio: 0.7}
	v, err := s.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var decoded RunStats
	if err := decoded.Scan(v); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if decoded != s {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}

	// The browse API serializes stats with the wire field names.
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"rows_upserted", "geometry_matched", "geometry_unmatched", "geometry_errors", "coverage_ratio"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing stats field %q", key)
		}
	}
}
