package sdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

// CID extracts the chemical identifier from a record's fixed tag. A record
// without it cannot be joined and is counted as a parse error upstream.
func CID(rec *Record) (int64, error) {
	raw, ok := rec.Tag(TagCompoundCID)
	if !ok {
		return 0, fmt.Errorf("record has no %s tag", TagCompoundCID)
	}

	s := strings.TrimSpace(raw)
	if cid, err := strconv.ParseInt(s, 10, 64); err == nil {
		return cid, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid %s value %q", TagCompoundCID, raw)
	}
	return int64(f), nil
}

// MapRecord splits one record into its hot geometry row and cold payload
// row. Unparseable scalar tags degrade to NULL; the molblock and binary
// tags go to the cold partition verbatim.
func MapRecord(rec *Record, datasetID string, cid int64, runID string) (*models.MoleculeGeometry, *models.MoleculeGeometryCold) {
	hot := &models.MoleculeGeometry{
		DatasetID:           datasetID,
		CID:                 cid,
		ConformerID:         tagString(rec, TagConformerID),
		MMFF94Energy:        tagFloat(rec, TagMMFF94Energy),
		ConformerRMSD:       tagFloat(rec, TagConformerRMSD),
		EffectiveRotorCount: tagInt(rec, TagEffectiveRotor),
		ShapeVolume:         tagFloat(rec, TagShapeVolume),
		ShapeSelfOverlap:    tagFloat(rec, TagShapeOverlap),
		HeavyAtomCount:      tagInt(rec, TagHeavyAtomCount),
		ComponentCount:      tagInt(rec, TagComponentCount),
		IngestRunID:         runID,
	}

	cold := &models.MoleculeGeometryCold{
		DatasetID:             datasetID,
		CID:                   cid,
		Molblock:              rec.Molblock,
		ShapeFingerprint:      tagBytes(rec, TagShapeFingerprint),
		PharmacophoreFeatures: tagBytes(rec, TagPharmacophore),
		MMFF94PartialCharges:  tagBytes(rec, TagPartialCharges),
		CoordinateType:        tagBytes(rec, TagCoordinateType),
	}

	return hot, cold
}

func tagString(rec *Record, name string) *string {
	v, ok := rec.Tag(name)
	if !ok {
		return nil
	}
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	return &s
}

func tagFloat(rec *Record, name string) *float64 {
	v, ok := rec.Tag(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	return &f
}

func tagInt(rec *Record, name string) *int {
	v, ok := rec.Tag(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func tagBytes(rec *Record, name string) []byte {
	v, ok := rec.Tag(name)
	if !ok {
		return nil
	}
	return []byte(v)
}
