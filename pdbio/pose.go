package pdbio

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/rosettacommons/mcore/geom"
	"github.com/rosettacommons/mcore/molecule"
)

// BuildOptions configures BuildPose (spec §4.7, invariant 10).
type BuildOptions struct {
	// ExitIfMissingHeavyAtoms turns a "< 3 mainchain atoms present" residue
	// into a fatal MissingHeavyAtoms error instead of a skip-with-warning.
	ExitIfMissingHeavyAtoms bool
	// RenumberPDBInfoBasedOnConfChains renumbers every residue's PDBResSeq
	// sequentially within its pose chain, starting at 1, instead of keeping
	// the resSeq read from the file.
	RenumberPDBInfoBasedOnConfChains bool
	// StartFromExistingNumbering, when RenumberPDBInfoBasedOnConfChains is
	// also set, starts each chain's renumbering from that chain's first
	// residue's original resSeq rather than from 1.
	StartFromExistingNumbering bool
}

// minMainchainAtomsPresent is spec §4.7's missing-backbone-atom cutoff: a
// candidate with fewer than this many mainchain atoms observed in the file
// is too incomplete to build, regardless of score.
const minMainchainAtomsPresent = 3

// PoseBond is a bond between two residues' atoms attached in BuildPose's
// post-pass, derived from a LINK record. Disulfide bonds between two
// disulfide-capable SG atoms are marked Disulfide.
type PoseBond struct {
	Residue1, Atom1 string
	Residue2, Atom2 string
	Length          float64
	Disulfide       bool
}

// PoseResidue is one built residue: its selected ResidueType, the atoms
// read from the file, which declared atoms are missing, and its place in
// the pose's chain/numbering scheme.
type PoseResidue struct {
	Type    *ResidueType
	Variant ResidueVariant
	Atoms   []molecule.Atom

	// Missing lists declared ResidueType atom names absent from Atoms, in
	// Type.Atoms order.
	Missing []string

	PDBChainID byte
	PDBResSeq  int
	PDBICode   byte

	ChainIndex int // which Pose.Chains entry this residue belongs to.
	SeqPos     int // 1-based position within ChainIndex.

	// BondedToPrevious is true if this residue was appended by a polymer
	// bond to the previous residue in its pose chain; false for the first
	// residue of a chain (jump-appended).
	BondedToPrevious bool
}

// XYZ returns the coordinate of name (a raw 4-character PDB atom name)
// among r's observed atoms, and whether it is present.
func (r *PoseResidue) XYZ(name string) (geom.Vec3, bool) {
	for _, a := range r.Atoms {
		if a.Name == name {
			return a.XYZ, true
		}
	}
	return geom.Vec3{}, false
}

// Pose is the built structure: an ordered list of residues grouped into
// chains, plus any LINK-derived bonds attached in the post-pass.
type Pose struct {
	Chains []string
	// ChainBranch mirrors Chains: ChainBranch[i] is true when Chains[i] was
	// fed by FileData.Chains[i].Branch (a LINK-rooted branch off another
	// chain), consulted by attachTerminusVariants to assign
	// VariantBranchLower instead of an ordinary lower terminus.
	ChainBranch []bool
	Residues    []*PoseResidue
	Bonds       []PoseBond
}

func mainchainPresentCount(mainchain []string, observed map[string]bool) int {
	n := 0
	for _, name := range mainchain {
		if observed[name] {
			n++
		}
	}
	return n
}

// scoreCandidate returns (atomsNotInType, atomsNotInXYZ): the two-key sort
// spec §4.7 scores candidates by, lower-is-better on both.
func scoreCandidate(rt *ResidueType, observed map[string]bool) (int, int) {
	notInType := 0
	for name := range observed {
		if !rt.HasAtom(name) {
			notInType++
		}
	}
	notInXYZ := 0
	for _, name := range rt.Atoms {
		if !observed[name] {
			notInXYZ++
		}
	}
	return notInType, notInXYZ
}

// selectCandidate picks the best-scoring ResidueType for a residue's
// observed atom set, per spec §4.7: minimize (atomsNotInType, atomsNotInXYZ)
// lexicographically, tie-break by declaration order (lowest index wins).
func selectCandidate(candidates []*ResidueType, observed map[string]bool) *ResidueType {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	bestA, bestB := scoreCandidate(best, observed)
	for _, c := range candidates[1:] {
		a, b := scoreCandidate(c, observed)
		if a < bestA || (a == bestA && b < bestB) {
			best, bestA, bestB = c, a, b
		}
	}
	return best
}

// candidatesWithBaseName narrows candidates to those whose BaseName matches,
// mirroring the original reader's rejection of a carbohydrate ResidueType
// whose residue_type_base_name disagrees with the HETNAM-derived base name
// for that position.
func candidatesWithBaseName(candidates []*ResidueType, baseName string) []*ResidueType {
	var out []*ResidueType
	for _, c := range candidates {
		if c.BaseName == baseName {
			out = append(out, c)
		}
	}
	return out
}

// polymerCompatible reports whether two consecutive residues should be
// bond-appended (same pose chain) rather than jump-appended (new chain):
// both must be polymer types, belong to the same PDB chain id, and carry no
// intervening TER record (the residue accumulator in Parse already encodes
// TER boundaries into ResidueKey.TERCount, so a TERCount change here means a
// jump regardless of chain id).
func polymerCompatible(prev, cur *molecule.Residue, prevType, curType *ResidueType) bool {
	if prevType == nil || curType == nil || !prevType.Polymer || !curType.Polymer {
		return false
	}
	if prev.Key.ChainID != cur.Key.ChainID {
		return false
	}
	return prev.Key.TERCount == cur.Key.TERCount
}

// BuildPose assembles a Pose from a parsed FileData. Errors for individual
// residues (UnrecognizedResidue, MissingHeavyAtoms) are collected and
// returned alongside a best-effort Pose built from the residues that did
// succeed, except that a MissingHeavyAtoms error under
// options.ExitIfMissingHeavyAtoms aborts the whole build immediately.
func BuildPose(fd *FileData, types *ResidueTypeSet, options BuildOptions) (*Pose, []error) {
	pose := &Pose{}
	var errs []error

	var prevResidue *molecule.Residue
	var prevType *ResidueType
	chainStartIdx := -1

	for _, ch := range fd.Chains {
		for _, res := range ch.Residues {
			observed := make(map[string]bool, len(res.Atoms))
			var observedOrder []string
			for _, name := range res.AtomNames() {
				observed[name] = true
				observedOrder = append(observedOrder, name)
			}

			candidates := types.CandidatesFor(res.Atoms[0].ResName)
			hetero := res.Atoms[0].Heteroatom
			if len(candidates) == 0 && hetero {
				candidates = []*ResidueType{SynthesizeLigandType(res.Atoms[0].ResName, observedOrder)}
			}
			if len(candidates) == 0 {
				errs = append(errs, &UnrecognizedResidue{
					Code:     res.Atoms[0].ResName,
					Position: residuePosition(res),
				})
				continue
			}

			if baseName, ok := fd.CarbohydrateBaseNames[CarbohydrateResidueKey{
				ChainID: res.Key.ChainID, ResSeq: res.Key.ResSeq, ICode: res.Key.ICode,
			}]; ok {
				if narrowed := candidatesWithBaseName(candidates, baseName); len(narrowed) > 0 {
					candidates = narrowed
				}
			}

			chosen := selectCandidate(candidates, observed)
			if chosen.Polymer {
				present := mainchainPresentCount(chosen.Mainchain, observed)
				if present < minMainchainAtomsPresent {
					var missing []string
					for _, name := range chosen.Mainchain {
						if !observed[name] {
							missing = append(missing, name)
						}
					}
					err := &MissingHeavyAtoms{Position: residuePosition(res), Atoms: missing}
					if options.ExitIfMissingHeavyAtoms {
						return nil, append(errs, err)
					}
					log.Error.Printf("pdbio: skipping %s: %v", residuePosition(res), err)
					errs = append(errs, err)
					continue
				}
			}

			bonded := prevType != nil && polymerCompatible(prevResidue, res, prevType, chosen)
			if !bonded {
				pose.Chains = append(pose.Chains, string(res.Key.ChainID))
				pose.ChainBranch = append(pose.ChainBranch, ch.Branch)
				chainStartIdx = len(pose.Residues)
			}

			var missing []string
			for _, name := range chosen.Atoms {
				if !observed[name] {
					missing = append(missing, name)
				}
			}

			pr := &PoseResidue{
				Type:             chosen,
				Atoms:            res.Atoms,
				Missing:          missing,
				PDBChainID:       res.Key.ChainID,
				PDBResSeq:        res.Key.ResSeq,
				PDBICode:         res.Key.ICode,
				ChainIndex:       len(pose.Chains) - 1,
				SeqPos:           len(pose.Residues) - chainStartIdx + 1,
				BondedToPrevious: bonded,
			}
			pose.Residues = append(pose.Residues, pr)

			prevResidue, prevType = res, chosen
		}
		prevResidue, prevType = nil, nil // a Chain boundary from FileData is always a jump.
	}

	attachTerminusVariants(pose)
	attachLinks(pose, fd.Links)
	fillMissingGeometry(pose)
	if options.RenumberPDBInfoBasedOnConfChains {
		renumber(pose, options.StartFromExistingNumbering)
	}

	return pose, errs
}

func residuePosition(res *molecule.Residue) ResiduePosition {
	return ResiduePosition{ChainID: string(res.Key.ChainID), ResSeq: res.Key.ResSeq, ICode: res.Key.ICode}
}

// attachTerminusVariants marks the first residue of each pose chain
// LowerTerminus (or BranchLower, when FileData.Chains[i].Branch marked the
// chain as LINK-rooted off another chain) and the last UpperTerminus, per
// spec §4.7's post-pass.
func attachTerminusVariants(pose *Pose) {
	if len(pose.Residues) == 0 {
		return
	}
	for i, r := range pose.Residues {
		isFirstOfChain := i == 0 || pose.Residues[i-1].ChainIndex != r.ChainIndex
		isLastOfChain := i == len(pose.Residues)-1 || pose.Residues[i+1].ChainIndex != r.ChainIndex
		branch := r.ChainIndex < len(pose.ChainBranch) && pose.ChainBranch[r.ChainIndex]
		switch {
		case isFirstOfChain && branch:
			r.Variant = VariantBranchLower
		case isFirstOfChain && isLastOfChain:
			// single-residue chain: lower terminus wins over upper terminus.
			r.Variant = VariantLowerTerminus
		case isFirstOfChain:
			r.Variant = VariantLowerTerminus
		case isLastOfChain:
			r.Variant = VariantUpperTerminus
		}
	}
}

func findResidue(pose *Pose, chainID byte, resSeq int, iCode byte) *PoseResidue {
	for _, r := range pose.Residues {
		if r.PDBChainID == chainID && r.PDBResSeq == resSeq && r.PDBICode == iCode {
			return r
		}
	}
	return nil
}

// attachLinks converts each FileData LINK record into a PoseBond, marking
// SG-SG bonds between two disulfide-capable cysteines as disulfides and
// promoting both residues' Variant to VariantDisulfide.
func attachLinks(pose *Pose, links []LinkRecord) {
	for _, l := range links {
		r1 := findResidue(pose, l.ChainID1, l.ResSeq1, l.ICode1)
		r2 := findResidue(pose, l.ChainID2, l.ResSeq2, l.ICode2)
		if r1 == nil || r2 == nil {
			continue
		}
		disulfide := l.Atom1 == " SG " && l.Atom2 == " SG " &&
			r1.Type.DisulfideCapable && r2.Type.DisulfideCapable
		if disulfide {
			r1.Variant, r2.Variant = VariantDisulfide, VariantDisulfide
		}
		pose.Bonds = append(pose.Bonds, PoseBond{
			Residue1: fmt.Sprintf("%c%d%c", l.ChainID1, l.ResSeq1, orSpace(l.ICode1)), Atom1: l.Atom1,
			Residue2: fmt.Sprintf("%c%d%c", l.ChainID2, l.ResSeq2, orSpace(l.ICode2)), Atom2: l.Atom2,
			Length:    l.Length,
			Disulfide: disulfide,
		})
	}
}

// fillMissingGeometry assigns a position to every missing mainchain atom by
// averaging the residue's other present mainchain atoms, and to every
// missing sidechain atom by copying CA (or the residue's first present
// atom, for ligands with no CA). This is a coarse placeholder geometry, not
// a rotamer-aware rebuild: spec §4.7 only requires that missing positions
// be filled "by geometry from available neighbors", not that the fill be
// chemically ideal.
func fillMissingGeometry(pose *Pose) {
	for _, r := range pose.Residues {
		if len(r.Missing) == 0 {
			continue
		}
		anchor, anchorOK := r.XYZ(" CA ")
		if !anchorOK && len(r.Atoms) > 0 {
			anchor, anchorOK = r.Atoms[0].XYZ, true
		}
		if !anchorOK {
			continue
		}

		var sum geom.Vec3
		count := 0
		for _, name := range r.Type.Mainchain {
			if xyz, ok := r.XYZ(name); ok {
				sum = sum.Add(xyz)
				count++
			}
		}
		mainchainAvg := anchor
		if count > 0 {
			mainchainAvg = sum.Scale(1.0 / float64(count))
		}

		for _, name := range r.Missing {
			isMainchain := false
			for _, mc := range r.Type.Mainchain {
				if mc == name {
					isMainchain = true
					break
				}
			}
			pos := anchor
			if isMainchain {
				pos = mainchainAvg
			}
			r.Atoms = append(r.Atoms, molecule.Atom{
				Name:              name,
				ResName:           r.Type.Name3,
				ChainID:           r.PDBChainID,
				ResSeq:            r.PDBResSeq,
				ICode:             r.PDBICode,
				XYZ:               pos,
				Occupancy:         0,
				OccupancyOverride: true,
			})
		}
	}
}

// renumber overwrites PDBResSeq sequentially within each pose chain, per
// options.RenumberPDBInfoBasedOnConfChains (invariant 10).
func renumber(pose *Pose, startFromExisting bool) {
	chainStart := make(map[int]int)
	next := make(map[int]int)
	for _, r := range pose.Residues {
		if _, ok := chainStart[r.ChainIndex]; !ok {
			base := 1
			if startFromExisting {
				base = r.PDBResSeq
			}
			chainStart[r.ChainIndex] = base
			next[r.ChainIndex] = base
		}
		r.PDBResSeq = next[r.ChainIndex]
		next[r.ChainIndex]++
	}
}
