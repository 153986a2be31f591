package pdbio

import (
	"strconv"
	"strings"
)

// isCarbohydrateHetID reports whether a hetID follows the "Rosetta-ready"
// sentence-case convention original_source's store_heterogen_names uses to
// recognize a carbohydrate code (e.g. "Glc" for glucose) as opposed to the
// vague, all-caps hetID a plain HETNAM otherwise carries (e.g. "GLC"). The
// real CODE_TO_ROOT_MAP table isn't available to this module, so membership
// is decided by the documented casing rule rather than a guessed code list.
func isCarbohydrateHetID(hetID string) bool {
	if len(hetID) == 0 {
		return false
	}
	if hetID[0] < 'A' || hetID[0] > 'Z' {
		return false
	}
	for i := 1; i < len(hetID); i++ {
		if hetID[i] < 'a' || hetID[i] > 'z' {
			return false
		}
	}
	return true
}

// parseCarbohydratePosition decodes a carbohydrate HETNAM's text field,
// which original_source documents as carrying a residue position rather
// than free text: a 1-character chain id, a 4-character resSeq, a
// 1-character insertion code, a separating space, and then the base residue
// type name starting at the 8th character.
func parseCarbohydratePosition(text string) (key CarbohydrateResidueKey, baseName string, ok bool) {
	if len(text) < 7 {
		return CarbohydrateResidueKey{}, "", false
	}
	chainID := text[0]
	resSeq, err := strconv.Atoi(strings.TrimSpace(text[1:5]))
	if err != nil {
		return CarbohydrateResidueKey{}, "", false
	}
	iCode := text[5]
	// text[6] is the separating space; the base name starts at text[7].
	baseName = text[7:]
	return CarbohydrateResidueKey{ChainID: chainID, ResSeq: resSeq, ICode: iCode}, baseName, true
}

// markBranchChains sets Chain.Branch on every chain whose first residue is
// the acceptor side of a LINK record rooted in a different chain, per
// original_source's is_branch_point derivation from link_map: a residue
// that LINK names as one endpoint, with the other endpoint elsewhere, heads
// a branch rather than continuing its donor's backbone.
func markBranchChains(fd *FileData) {
	for _, link := range fd.Links {
		donor := fd.findChainByID(string(link.ChainID1))
		acceptor := fd.findChainByID(string(link.ChainID2))
		if donor == nil || acceptor == nil || donor == acceptor {
			continue
		}
		if len(acceptor.Residues) == 0 {
			continue
		}
		first := acceptor.Residues[0]
		if first.Key.ResSeq == link.ResSeq2 && first.Key.ICode == link.ICode2 {
			acceptor.Branch = true
		}
	}
}
