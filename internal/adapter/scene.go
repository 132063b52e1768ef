// Package adapter converts stored structural tables into scene descriptions
// for an external 3D viewer. Pure transforms: same input, same output, no
// external state.
package adapter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mzaitsev/molecule-explorer/internal/models"
)

// ErrInvalidMolblock wraps all structural-table parse failures, including
// declared-count mismatches.
var ErrInvalidMolblock = errors.New("invalid molblock")

// Atom is one positioned atom in the scene.
type Atom struct {
	Element string  `json:"element"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// Bond connects two atoms by their 1-based positions in the atom list.
type Bond struct {
	FromIndex int     `json:"from_index"`
	ToIndex   int     `json:"to_index"`
	Order     float64 `json:"order"`
}

// Feature is one pharmacophore annotation over a set of atoms.
type Feature struct {
	Kind  string `json:"kind"`
	Atoms []int  `json:"atoms"`
}

// Scene is the normalized structure description submitted to the external
// visualization service. Annotation arrays are present only when the
// corresponding payload was stored.
type Scene struct {
	Atoms                 []Atom    `json:"atoms"`
	Bonds                 []Bond    `json:"bonds"`
	PartialCharges        []float64 `json:"partial_charges,omitempty"`
	PharmacophoreFeatures []Feature `json:"pharmacophore_features,omitempty"`
}

// BuildScene converts one stored cold geometry row into a scene. Optional
// payloads that were never stored simply leave their annotation arrays
// absent.
func BuildScene(cold *models.MoleculeGeometryCold) (*Scene, error) {
	scene, err := ParseMolblock(cold.Molblock)
	if err != nil {
		return nil, err
	}

	if cold.MMFF94PartialCharges != nil {
		charges, err := parsePartialCharges(string(cold.MMFF94PartialCharges), len(scene.Atoms))
		if err != nil {
			return nil, err
		}
		scene.PartialCharges = charges
	}

	if cold.PharmacophoreFeatures != nil {
		features, err := parsePharmacophoreFeatures(string(cold.PharmacophoreFeatures))
		if err != nil {
			return nil, err
		}
		scene.PharmacophoreFeatures = features
	}

	return scene, nil
}

// ParseMolblock parses a V2000 structural table into atoms and bonds. The
// output counts must exactly match the counts declared on the header line;
// a mismatch is an error, never a silent truncation.
func ParseMolblock(molblock string) (*Scene, error) {
	lines := strings.Split(strings.ReplaceAll(molblock, "\r\n", "\n"), "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: missing counts line", ErrInvalidMolblock)
	}

	counts := lines[3]
	numAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: bad atom count: %v", ErrInvalidMolblock, err)
	}
	numBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, fmt.Errorf("%w: bad bond count: %v", ErrInvalidMolblock, err)
	}

	if len(lines) < 4+numAtoms+numBonds {
		return nil, fmt.Errorf("%w: declared %d atoms and %d bonds, table is truncated",
			ErrInvalidMolblock, numAtoms, numBonds)
	}

	scene := &Scene{
		Atoms: make([]Atom, 0, numAtoms),
		Bonds: make([]Bond, 0, numBonds),
	}

	for i := 0; i < numAtoms; i++ {
		atom, err := parseAtomLine(lines[4+i])
		if err != nil {
			return nil, fmt.Errorf("%w: atom %d: %v", ErrInvalidMolblock, i+1, err)
		}
		scene.Atoms = append(scene.Atoms, atom)
	}

	for i := 0; i < numBonds; i++ {
		bond, err := parseBondLine(lines[4+numAtoms+i])
		if err != nil {
			return nil, fmt.Errorf("%w: bond %d: %v", ErrInvalidMolblock, i+1, err)
		}
		if bond.FromIndex < 1 || bond.FromIndex > numAtoms || bond.ToIndex < 1 || bond.ToIndex > numAtoms {
			return nil, fmt.Errorf("%w: bond %d references atom out of range", ErrInvalidMolblock, i+1)
		}
		scene.Bonds = append(scene.Bonds, bond)
	}

	return scene, nil
}

// Atom line columns per the V2000 table format: x 1-10, y 11-20, z 21-30,
// symbol 32-34.
func parseAtomLine(line string) (Atom, error) {
	x, err := fixedFloat(line, 0, 10)
	if err != nil {
		return Atom{}, err
	}
	y, err := fixedFloat(line, 10, 20)
	if err != nil {
		return Atom{}, err
	}
	z, err := fixedFloat(line, 20, 30)
	if err != nil {
		return Atom{}, err
	}

	element := strings.TrimSpace(slice(line, 31, 34))
	if element == "" {
		return Atom{}, fmt.Errorf("missing element symbol")
	}

	return Atom{Element: element, X: x, Y: y, Z: z}, nil
}

// Bond line columns: first atom 1-3, second atom 4-6, bond type 7-9.
// Aromatic bonds (type 4) are reported as order 1.5.
func parseBondLine(line string) (Bond, error) {
	from, err := fixedInt(line, 0, 3)
	if err != nil {
		return Bond{}, err
	}
	to, err := fixedInt(line, 3, 6)
	if err != nil {
		return Bond{}, err
	}
	kind, err := fixedInt(line, 6, 9)
	if err != nil {
		return Bond{}, err
	}

	order := float64(kind)
	if kind == 4 {
		order = 1.5
	}

	return Bond{FromIndex: from, ToIndex: to, Order: order}, nil
}

// parsePartialCharges decodes the stored charge payload: a count line, then
// "atom-index charge" pairs. The result is aligned by atom index over the
// full atom list; atoms without an entry stay at zero.
func parsePartialCharges(payload string, numAtoms int) ([]float64, error) {
	fieldsPerLine, err := payloadLines(payload)
	if err != nil {
		return nil, fmt.Errorf("partial charges: %w", err)
	}

	charges := make([]float64, numAtoms)
	for _, fields := range fieldsPerLine {
		if len(fields) != 2 {
			return nil, fmt.Errorf("partial charges: malformed entry %v", fields)
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx < 1 || idx > numAtoms {
			return nil, fmt.Errorf("partial charges: bad atom index %q", fields[0])
		}
		charge, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("partial charges: bad charge %q", fields[1])
		}
		charges[idx-1] = charge
	}

	return charges, nil
}

// parsePharmacophoreFeatures decodes the stored feature payload: a count
// line, then per feature an atom count, that many 1-based atom indices, and
// the feature kind.
func parsePharmacophoreFeatures(payload string) ([]Feature, error) {
	fieldsPerLine, err := payloadLines(payload)
	if err != nil {
		return nil, fmt.Errorf("pharmacophore features: %w", err)
	}

	features := make([]Feature, 0, len(fieldsPerLine))
	for _, fields := range fieldsPerLine {
		if len(fields) < 3 {
			return nil, fmt.Errorf("pharmacophore features: malformed entry %v", fields)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 1 || len(fields) != n+2 {
			return nil, fmt.Errorf("pharmacophore features: bad atom count in %v", fields)
		}
		atoms := make([]int, n)
		for i := 0; i < n; i++ {
			atoms[i], err = strconv.Atoi(fields[1+i])
			if err != nil {
				return nil, fmt.Errorf("pharmacophore features: bad atom index %q", fields[1+i])
			}
		}
		features = append(features, Feature{Kind: fields[n+1], Atoms: atoms})
	}

	return features, nil
}

// payloadLines checks a payload's declared entry count and returns the
// whitespace-split fields of each entry line.
func payloadLines(payload string) ([][]string, error) {
	lines := strings.Split(strings.TrimSpace(payload), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty payload")
	}

	declared, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, fmt.Errorf("bad entry count %q", lines[0])
	}

	var out [][]string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.Fields(line))
	}
	if len(out) != declared {
		return nil, fmt.Errorf("declared %d entries, found %d", declared, len(out))
	}
	return out, nil
}

func fixedInt(line string, from, to int) (int, error) {
	s := strings.TrimSpace(slice(line, from, to))
	if s == "" {
		return 0, fmt.Errorf("empty numeric field at %d:%d", from, to)
	}
	return strconv.Atoi(s)
}

func fixedFloat(line string, from, to int) (float64, error) {
	s := strings.TrimSpace(slice(line, from, to))
	if s == "" {
		return 0, fmt.Errorf("empty numeric field at %d:%d", from, to)
	}
	return strconv.ParseFloat(s, 64)
}

func slice(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}
