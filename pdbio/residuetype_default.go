package pdbio

// standardMainchain is the four-atom protein backbone, shared by every
// canonical amino acid type.
var standardMainchain = []string{" N  ", " CA ", " C  ", " O  "}

// aminoAcidSidechains lists the heavy sidechain atoms for the 20 canonical
// amino acids, in the PDB's conventional declaration order. Hydrogens are
// omitted: PDBRecordStream's source format rarely carries them, and
// BuildPose's candidate scoring operates on what ATOM records actually
// carry.
var aminoAcidSidechains = map[string][]string{
	"GLY": {},
	"ALA": {" CB "},
	"SER": {" CB ", " OG "},
	"CYS": {" CB ", " SG "},
	"THR": {" CB ", " OG1", " CG2"},
	"VAL": {" CB ", " CG1", " CG2"},
	"LEU": {" CB ", " CG ", " CD1", " CD2"},
	"ILE": {" CB ", " CG1", " CG2", " CD1"},
	"PRO": {" CB ", " CG ", " CD "},
	"MET": {" CB ", " CG ", " SD ", " CE "},
	"ASP": {" CB ", " CG ", " OD1", " OD2"},
	"ASN": {" CB ", " CG ", " OD1", " ND2"},
	"GLU": {" CB ", " CG ", " CD ", " OE1", " OE2"},
	"GLN": {" CB ", " CG ", " CD ", " OE1", " NE2"},
	"LYS": {" CB ", " CG ", " CD ", " CE ", " NZ "},
	"ARG": {" CB ", " CG ", " CD ", " NE ", " CZ ", " NH1", " NH2"},
	"HIS": {" CB ", " CG ", " ND1", " CD2", " CE1", " NE2"},
	"PHE": {" CB ", " CG ", " CD1", " CD2", " CE1", " CE2", " CZ "},
	"TYR": {" CB ", " CG ", " CD1", " CD2", " CE1", " CE2", " CZ ", " OH "},
	"TRP": {" CB ", " CG ", " CD1", " CD2", " NE1", " CE2", " CE3", " CZ2", " CZ3", " CH2"},
}

// disulfideCapable is the set of residue codes BuildPose's post-pass may
// promote to VariantDisulfide, based on a LINK record joining two SG atoms.
var disulfideCapable = map[string]bool{"CYS": true}

// DefaultResidueTypeSet returns a ResidueTypeSet covering the 20 canonical
// amino acids as single-candidate polymer types, for callers that don't
// supply their own (e.g. from a force-field-specific params directory, out
// of scope for this module). Spec §4.3's ResidueTypeSet is a process-wide,
// read-only-after-init handle; this constructor is meant to be called once
// and the result shared across BuildPose calls.
func DefaultResidueTypeSet() *ResidueTypeSet {
	s := NewResidueTypeSet()
	for code, sidechain := range aminoAcidSidechains {
		atoms := make([]string, 0, len(standardMainchain)+len(sidechain))
		atoms = append(atoms, standardMainchain...)
		atoms = append(atoms, sidechain...)
		s.Register(&ResidueType{
			Name3:            code,
			Atoms:            atoms,
			Mainchain:        standardMainchain,
			Polymer:          true,
			DisulfideCapable: disulfideCapable[code],
		})
	}
	return s
}
