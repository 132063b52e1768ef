package sdf

import (
	"strings"
)

// Well-known PubChem tag names carried in conformer SDF records.
const (
	TagCompoundCID = "PUBCHEM_COMPOUND_CID"

	TagConformerID    = "PUBCHEM_CONFORMER_ID"
	TagMMFF94Energy   = "PUBCHEM_MMFF94_ENERGY"
	TagConformerRMSD  = "PUBCHEM_CONFORMER_RMSD"
	TagEffectiveRotor = "PUBCHEM_EFFECTIVE_ROTOR_COUNT"
	TagShapeVolume    = "PUBCHEM_SHAPE_VOLUME"
	TagShapeOverlap   = "PUBCHEM_SHAPE_SELFOVERLAP"
	TagHeavyAtomCount = "PUBCHEM_HEAVY_ATOM_COUNT"
	TagComponentCount = "PUBCHEM_COMPONENT_COUNT"

	TagShapeFingerprint = "PUBCHEM_SHAPE_FINGERPRINT"
	TagPharmacophore    = "PUBCHEM_PHARMACOPHORE_FEATURES"
	TagPartialCharges   = "PUBCHEM_MMFF94_PARTIAL_CHARGES"
	TagCoordinateType   = "PUBCHEM_COORDINATE_TYPE"
)

// Record is one parsed SDF entry: the structural table text plus its
// declared tag/value pairs.
type Record struct {
	Molblock string
	Tags     map[string]string
}

// Tag returns a tag value and whether it was declared.
func (r *Record) Tag(name string) (string, bool) {
	v, ok := r.Tags[name]
	return v, ok
}

// parseRecord splits the raw lines of one $$$$-delimited entry into the
// molblock (everything through "M  END") and the tag section. Multi-line
// tag values are preserved with their internal newlines.
func parseRecord(lines []string) *Record {
	rec := &Record{Tags: make(map[string]string)}

	end := -1
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == "M  END" {
			end = i
			break
		}
	}

	var tagLines []string
	if end >= 0 {
		rec.Molblock = strings.Join(lines[:end+1], "\n") + "\n"
		tagLines = lines[end+1:]
	} else {
		// No structural table terminator; the whole record is tag data.
		tagLines = lines
	}

	var (
		name  string
		value []string
	)
	flush := func() {
		if name != "" {
			rec.Tags[name] = strings.TrimRight(strings.Join(value, "\n"), "\n")
		}
		name = ""
		value = nil
	}

	for _, line := range tagLines {
		if tag, ok := parseTagHeader(line); ok {
			flush()
			name = tag
			continue
		}
		if name != "" {
			value = append(value, line)
		}
	}
	flush()

	return rec
}

// parseTagHeader recognizes data-item headers of the form "> <NAME>", with
// any amount of surrounding noise PubChem emits (registry numbers etc.).
func parseTagHeader(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, ">") {
		return "", false
	}

	open := strings.Index(s, "<")
	if open < 0 {
		return "", false
	}
	off := strings.Index(s[open:], ">")
	if off < 0 {
		return "", false
	}
	return s[open+1 : open+off], true
}
