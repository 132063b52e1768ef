package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

// ParseDiscoverySeed splits a raw discovery seed into its name and seed
// structural notation on the first colon only. A value without a colon is
// all name. Total: never fails.
func ParseDiscoverySeed(raw string) (seedName, seedSMILES string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ""
	}

	name, rest, found := strings.Cut(s, ":")
	if !found {
		return s, ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(rest)
}

// MapRow converts one manifest row into a metadata model. A non-parseable
// chemical identifier is the only mapping failure; every other field is
// optional and degrades to NULL.
func MapRow(row *Row, datasetID, runID string) (*models.MoleculeMetadata, error) {
	cid, err := parseCID(row.PubChemCID)
	if err != nil {
		return nil, err
	}

	seedName, seedSMILES := ParseDiscoverySeed(row.DiscoverySeed)

	m := &models.MoleculeMetadata{
		DatasetID:        datasetID,
		CID:              cid,
		SMILES:           optString(row.SMILES),
		InChIKey:         optString(row.InChIKey),
		MolecularFormula: optString(row.MolecularFormula),
		MolecularWeight:  optFloat(row.MolecularWeight),
		ExactMass:        optFloat(row.ExactMass),
		XLogP3:           optFloat(row.XLogP3),
		TPSA:             optFloat(row.TPSA),
		HBA:              optInt(row.HBA),
		HBD:              optInt(row.HBD),
		RotatableBonds:   optInt(row.RotatableBonds),
		DiscoveryMethod:  models.NormalizeDiscoveryMethod(row.DiscoveryMethod),
		DiscoverySeed:    optString(row.DiscoverySeed),
		SeedName:         optString(seedName),
		SeedSMILES:       optString(seedSMILES),
		Name:             optString(row.Name),
		IngestRunID:      runID,
	}
	return m, nil
}

// parseCID accepts integers and float-formatted integers ("2244.0"), which
// spreadsheet exports produce.
func parseCID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty chemical identifier")
	}

	if cid, err := strconv.ParseInt(s, 10, 64); err == nil {
		return cid, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid chemical identifier %q", raw)
	}
	return int64(f), nil
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func optInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}
