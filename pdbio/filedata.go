package pdbio

import "github.com/rosettacommons/mcore/molecule"

// RemarkEntry is one REMARK record: a remark number and its free-text body.
type RemarkEntry struct {
	Number int
	Text   string
}

// LinkRecord describes an explicit bond between two atoms (spec §6.1),
// e.g. a glycosidic or disulfide-like linkage not implied by chain
// connectivity.
type LinkRecord struct {
	Atom1    string
	AltLoc1  byte
	ResName1 string
	ChainID1 byte
	ResSeq1  int
	ICode1   byte

	Atom2    string
	AltLoc2  byte
	ResName2 string
	ChainID2 byte
	ResSeq2  int
	ICode2   byte

	Length float64
}

// Chain is an ordered run of residues sharing one (possibly blank,
// possibly remapped) chain id.
type Chain struct {
	ID       string
	Residues []*molecule.Residue
	// Branch marks a chain whose first residue is the acceptor side of a
	// LINK record rooted in a different chain, per original_source's
	// is_branch_point/link_map handling (spec §4.7 supplement). Set by
	// markBranchChains once Parse has collected both Chains and Links.
	Branch bool
}

// CarbohydrateResidueKey locates a residue by file position (chain, resSeq,
// iCode) without needing a TER count, matching the key original_source's
// carbohydrate_residue_type_base_names map uses.
type CarbohydrateResidueKey struct {
	ChainID byte
	ResSeq  int
	ICode   byte
}

// FileData is the structured result of Parse and the input to Emit.
//
// Record types whose column layout spec §6.1 doesn't specify (HEADER,
// TITLE, COMPND, KEYWDS, EXPDTA, CRYST1) are kept as trimmed raw lines:
// Parse/Emit treat them as opaque cosmetic metadata, never consulted by
// BuildPose. SSBOND/MODRES/CONECT are supplemented per original_source but
// likewise kept as raw passthrough text, since nothing in this module
// derives structured fields from them beyond round-tripping the bytes.
// SEQRES lines are recognized by Classify but dropped by Parse.
type FileData struct {
	Header string
	Title  []string
	Compnd []string
	Keywds []string
	Expdta []string
	Cryst1 string

	Remarks []RemarkEntry

	Chains []*Chain
	Links  []LinkRecord

	Hetnam      map[string]string
	HetnamOrder []string

	// CarbohydrateBaseNames maps a specific sugar residue's file position to
	// the free-text "base residue type" name Rosetta-ready HETNAM records
	// carry for carbohydrate hetIDs (spec §4.7), keyed the way
	// original_source's parse_heterogen_name_for_carbohydrate_residues keys
	// carbohydrate_residue_type_base_names: by residue position, not hetID,
	// since the same hetID can label many distinct sugar residues.
	CarbohydrateBaseNames map[CarbohydrateResidueKey]string

	SSBonds []string
	ModRes  []string
	Conect  []string

	ModelCount int
}

func newFileData() *FileData {
	return &FileData{
		Hetnam:                make(map[string]string),
		CarbohydrateBaseNames: make(map[CarbohydrateResidueKey]string),
	}
}

// findChainByID returns the chain with the given id, or nil if none has
// been seen yet. Unlike chainByID it never creates one, so lookups that
// should not have the side effect of fabricating a chain (e.g. resolving a
// LINK record's endpoints) can tell "not found" from "found".
func (f *FileData) findChainByID(id string) *Chain {
	for _, c := range f.Chains {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// chainByID returns the chain with the given id, creating and appending it
// (in first-seen order) if absent.
func (f *FileData) chainByID(id string) *Chain {
	if c := f.findChainByID(id); c != nil {
		return c
	}
	c := &Chain{ID: id}
	f.Chains = append(f.Chains, c)
	return c
}
