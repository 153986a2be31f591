package pdbio

import "fmt"

// ParseError reports a malformed fixed-width column or an unrecognized
// mandatory field on a specific line. Parsing recovers by skipping the
// offending record (spec §7).
type ParseError struct {
	LineNo int
	Kind   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pdbio: parse error at line %d: %s", e.LineNo, e.Kind)
}

// UnrecognizedResidue reports a 3-letter residue code with no matching
// ResidueType candidate in the supplied ResidueTypeSet.
type UnrecognizedResidue struct {
	Code     string
	Position ResiduePosition
}

func (e *UnrecognizedResidue) Error() string {
	return fmt.Sprintf("pdbio: unrecognized residue %q at %v", e.Code, e.Position)
}

// MissingHeavyAtoms reports a residue whose best-scoring candidate
// ResidueType is still missing mainchain atoms. Fatal only under
// BuildOptions.ExitIfMissingHeavyAtoms.
type MissingHeavyAtoms struct {
	Position ResiduePosition
	Atoms    []string
}

func (e *MissingHeavyAtoms) Error() string {
	return fmt.Sprintf("pdbio: residue at %v is missing heavy atoms %v", e.Position, e.Atoms)
}

// ResiduePosition locates a residue within a parsed file, for error
// reporting.
type ResiduePosition struct {
	ChainID string
	ResSeq  int
	ICode   byte
}

func (p ResiduePosition) String() string {
	return fmt.Sprintf("chain %s resSeq %d iCode %q", p.ChainID, p.ResSeq, p.ICode)
}
