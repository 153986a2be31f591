package pdbio

// ResidueVariant marks a chemical modification layered onto a base
// ResidueType: a chain terminus, a branch connection, or a disulfide-bonded
// cysteine. Spec §4.7's post-pass attaches these after initial candidate
// selection, mirroring how Rosetta's PatchOperations compose onto a base
// type rather than being selected for up front.
type ResidueVariant int

const (
	VariantNone ResidueVariant = iota
	VariantUpperTerminus
	VariantLowerTerminus
	VariantBranchLower
	VariantDisulfide
)

func (v ResidueVariant) String() string {
	switch v {
	case VariantUpperTerminus:
		return "UpperTerminus"
	case VariantLowerTerminus:
		return "LowerTerminus"
	case VariantBranchLower:
		return "BranchLower"
	case VariantDisulfide:
		return "Disulfide"
	default:
		return "None"
	}
}

// ResidueType is a schema for one 3-letter residue code: its full atom list
// in declaration order, the subset considered mainchain/backbone, whether
// it participates in polymer (bond-append) connectivity, and whether it can
// carry a disulfide variant.
type ResidueType struct {
	Name3            string
	Atoms            []string // declaration order; drives tie-break in scoring.
	Mainchain        []string
	Polymer          bool
	DisulfideCapable bool
	// BaseName is the non-variant residue type name a carbohydrate-family
	// HETNAM record names explicitly (FileData.CarbohydrateBaseNames).
	// Empty for non-carbohydrate types, which have no such disambiguation.
	BaseName string
}

// HasAtom reports whether name (a raw 4-character PDB atom name) is part of
// this type's declared atom set.
func (rt *ResidueType) HasAtom(name string) bool {
	for _, a := range rt.Atoms {
		if a == name {
			return true
		}
	}
	return false
}

// ResidueTypeSet is the process-wide, read-only-after-init registry of
// known ResidueTypes, consulted by BuildPose. Spec §4.3 requires collapsing
// the ResidueTypeSet global into an explicitly-passed handle rather than a
// singleton; callers construct one (typically via DefaultResidueTypeSet)
// and thread it through BuildPose.
type ResidueTypeSet struct {
	byName3 map[string][]*ResidueType
}

// NewResidueTypeSet returns an empty set.
func NewResidueTypeSet() *ResidueTypeSet {
	return &ResidueTypeSet{byName3: make(map[string][]*ResidueType)}
}

// Register adds rt as a candidate for its Name3, in declaration order
// relative to other candidates already registered under the same code.
func (s *ResidueTypeSet) Register(rt *ResidueType) {
	s.byName3[rt.Name3] = append(s.byName3[rt.Name3], rt)
}

// CandidatesFor returns the registered candidate types for a 3-letter
// residue code, in declaration order, or nil if the code is unknown.
func (s *ResidueTypeSet) CandidatesFor(code string) []*ResidueType {
	return s.byName3[code]
}

// SynthesizeLigandType builds a single-candidate ResidueType on the fly for
// an unrecognized het group, from the atom names actually observed in the
// file: a ligand has no canonical schema to compare against, so its
// "mainchain" and "full atom list" are both exactly what was observed, and
// it always scores a perfect match. Used for HETATM groups with no
// registered ResidueType (e.g. bound metals, cofactors named only by a
// HETNAM record), so they survive BuildPose instead of being dropped as
// UnrecognizedResidue.
func SynthesizeLigandType(name3 string, observedAtoms []string) *ResidueType {
	return &ResidueType{
		Name3:     name3,
		Atoms:     append([]string(nil), observedAtoms...),
		Mainchain: nil,
		Polymer:   false,
	}
}
