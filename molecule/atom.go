package molecule

import (
	"strings"

	"github.com/rosettacommons/mcore/geom"
)

// Atom is a single PDB ATOM/HETATM record, decoupled from the textual
// layout it was parsed from.
type Atom struct {
	Heteroatom bool
	Serial     int
	Name       string // 4 characters, as read (e.g. " N  ", " CA ", "CA  ").
	AltLoc     byte
	ResName    string // 3 characters.
	ChainID    byte
	ResSeq     int
	ICode      byte
	XYZ        geom.Vec3
	Occupancy  float64
	TempFactor float64
	Element    string // up to 2 characters.
	TERCount   int

	// OccupancyOverride marks an atom whose coordinates were not parseable
	// (e.g. a literal "nan") and were replaced with 0; downstream code may
	// randomize this atom's position before use.
	OccupancyOverride bool
}

// MissingDensity reports whether a is flagged as having no observed
// electron density: occupancy <= 0, a non-finite coordinate, or an explicit
// OccupancyOverride from a non-numeric coordinate literal.
func (a Atom) MissingDensity() bool {
	return a.Occupancy <= 0 || !a.XYZ.Finite() || a.OccupancyOverride
}

// VDWRadius looks up a's van der Waals radius in table, falling back to a
// generic heavy-atom default if the element is unrecognized. a.Element is
// matched after trimming surrounding space, since PDB's element column is
// right-justified (e.g. " N") but radius tables are keyed by the bare
// symbol ("N").
func (a Atom) VDWRadius(table RadiusTable) float64 {
	if r, ok := table[strings.TrimSpace(a.Element)]; ok {
		return r
	}
	if r, ok := table[defaultElementKey]; ok {
		return r
	}
	return defaultHeavyAtomRadius
}

// defaultElementKey is the RadiusTable key consulted when an atom's element
// has no explicit entry.
const defaultElementKey = "*"

// defaultHeavyAtomRadius is used only when neither the atom's element nor
// the "*" fallback key is present in the table.
const defaultHeavyAtomRadius = 1.7

// RadiusTable maps element symbols (as in Atom.Element) to van der Waals
// radii in Angstroms. Callers own and construct this table; it is not a
// process-wide singleton (spec §9: collapse globals into explicit config).
type RadiusTable map[string]float64

// DefaultRadiusTable returns a small built-in table covering the common
// organic elements seen in protein/nucleic-acid structures, sufficient for
// tests and simple callers. Production callers are expected to supply their
// own table sourced from a real force field.
func DefaultRadiusTable() RadiusTable {
	return RadiusTable{
		"H":               1.20,
		"C":               1.70,
		"N":               1.55,
		"O":               1.52,
		"S":               1.80,
		"P":               1.80,
		defaultElementKey: defaultHeavyAtomRadius,
	}
}
