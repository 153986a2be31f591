package voxel

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/rosettacommons/mcore/geom"
	"github.com/rosettacommons/mcore/molecule"
)

// Defaults per spec §4.2/§6.3.
const (
	DefaultMaxDistance             = 55.0
	DefaultCell                    = 0.1
	DefaultMovingAtomRadius        = 1.0
	DefaultClashCutoffDistance     = 0.8
	DefaultNumClashAtomCutoff      = 3
	DefaultPhysicalClashDistCutoff = 1.2
	cellDiagonalError              = 0.02
)

// BuildOptions configures VDWBinChecker.Build.
type BuildOptions struct {
	// RadiusTable supplies per-element van der Waals radii. If nil,
	// molecule.DefaultRadiusTable() is used.
	RadiusTable molecule.RadiusTable
	// MovingAtomRadius is added to each painted atom's VDW radius to
	// account for the radius of the atoms that will later be tested for
	// clash against this grid.
	MovingAtomRadius float64
	// ClashCutoffDistance is subtracted from the effective paint radius:
	// two atoms closer than this are considered touching, not clashing.
	ClashCutoffDistance float64
	// IgnoreResidues lists residue keys in the scene that should not be
	// painted (e.g. the residue(s) a mover is about to replace).
	IgnoreResidues map[molecule.ResidueKey]bool
	// ExcludeMovingPhosphate skips every scene atom whose name is in
	// PrependBoundaryNames, in whichever residue it occurs; whether the
	// atom is adjacent to a prepend boundary is not checked.
	ExcludeMovingPhosphate bool
	// PrependBoundaryNames lists atom names treated as the moving
	// phosphate when ExcludeMovingPhosphate is set (default: {" P  ",
	// " OP1", " OP2", " OP3"}, the backbone phosphate atoms).
	PrependBoundaryNames map[string]bool
	// KeepExactScene, when true, retains the scene atoms that pass Build's
	// missing-density, IgnoreResidues and ExcludeMovingPhosphate filters
	// (not just their voxelized footprint) so ClashExact can later run an
	// O(atoms²) re-check.
	KeepExactScene bool
}

func (o BuildOptions) effectiveRadiusTable() molecule.RadiusTable {
	if o.RadiusTable != nil {
		return o.RadiusTable
	}
	return molecule.DefaultRadiusTable()
}

func (o BuildOptions) effectiveMovingAtomRadius() float64 {
	if o.MovingAtomRadius != 0 {
		return o.MovingAtomRadius
	}
	return DefaultMovingAtomRadius
}

func (o BuildOptions) effectiveClashCutoffDistance() float64 {
	if o.ClashCutoffDistance != 0 {
		return o.ClashCutoffDistance
	}
	return DefaultClashCutoffDistance
}

var defaultPrependPhosphateAtoms = map[string]bool{
	" P  ": true,
	" OP1": true,
	" OP2": true,
	" OP3": true,
}

// BuildStats reports what happened during a Build call.
type BuildStats struct {
	AtomsPainted          int
	AtomsSkippedOutOfRange int
	AtomsIgnored          int
}

// VDWBinChecker wraps a BinGrid with the build/query policy described in
// spec §4.2: effective-radius painting on build, short-circuiting count-cutoff
// clash queries, and an optional exact O(atoms_moving x atoms_scene) re-check.
type VDWBinChecker struct {
	grid *BinGrid
	opts BuildOptions

	exactScene []molecule.Atom // retained only if opts.KeepExactScene.
}

// NewVDWBinChecker creates a checker around a freshly anchored BinGrid.
func NewVDWBinChecker(reference geom.Vec3, maxDistance, cell float64) (*VDWBinChecker, error) {
	if maxDistance == 0 {
		maxDistance = DefaultMaxDistance
	}
	if cell == 0 {
		cell = DefaultCell
	}
	grid, err := Empty(reference, maxDistance, cell)
	if err != nil {
		return nil, err
	}
	return &VDWBinChecker{grid: grid}, nil
}

// Grid exposes the underlying BinGrid, e.g. for Dump.
func (c *VDWBinChecker) Grid() *BinGrid { return c.grid }

// Build paints scene into the checker's grid, skipping ignored residues and
// virtualized (missing-density) atoms. Build may be called multiple times
// with different scenes to paint their union (spec: "multiple scenes may be
// painted into the same grid").
func (c *VDWBinChecker) Build(scene []molecule.Atom, opts BuildOptions) (BuildStats, error) {
	c.opts = opts
	table := opts.effectiveRadiusTable()
	movingRadius := opts.effectiveMovingAtomRadius()
	clashCutoff := opts.effectiveClashCutoffDistance()

	prependNames := opts.PrependBoundaryNames
	if prependNames == nil {
		prependNames = defaultPrependPhosphateAtoms
	}

	var stats BuildStats
	if opts.KeepExactScene && c.exactScene == nil {
		c.exactScene = []molecule.Atom{}
	}
	for _, a := range scene {
		if a.MissingDensity() {
			continue
		}
		key := molecule.ResidueKey{ResSeq: a.ResSeq, ICode: a.ICode, ChainID: a.ChainID, TERCount: a.TERCount}
		if opts.IgnoreResidues != nil && opts.IgnoreResidues[key] {
			stats.AtomsIgnored++
			continue
		}
		if opts.ExcludeMovingPhosphate && prependNames[a.Name] {
			stats.AtomsIgnored++
			continue
		}
		if opts.KeepExactScene {
			c.exactScene = append(c.exactScene, a)
		}
		rEff := a.VDWRadius(table) + movingRadius - clashCutoff - cellDiagonalError
		if rEff <= 0 {
			stats.AtomsSkippedOutOfRange++
			continue
		}
		painted := c.grid.PaintSphere(a.XYZ, rEff)
		if painted == 0 && !c.grid.sphereTouchesGrid(a.XYZ, rEff) {
			stats.AtomsSkippedOutOfRange++
		} else {
			stats.AtomsPainted++
		}
	}
	return stats, nil
}

// ClashCount returns the number of moving atoms (after virtualization
// filtering) whose world position lands in an occupied voxel, short-
// circuiting once the running count reaches cutoff. cutoff<=0 uses
// DefaultNumClashAtomCutoff.
func (c *VDWBinChecker) ClashCount(movingAtoms []molecule.Atom, cutoff int) int {
	if cutoff <= 0 {
		cutoff = DefaultNumClashAtomCutoff
	}
	count := 0
	for _, a := range movingAtoms {
		if a.MissingDensity() {
			continue
		}
		if c.grid.OccupiedWorld(a.XYZ) {
			count++
			if count >= cutoff {
				return count
			}
		}
	}
	return count
}

// Clash reports whether ClashCount(movingAtoms, cutoff) >= cutoff.
func (c *VDWBinChecker) Clash(movingAtoms []molecule.Atom, cutoff int) bool {
	if cutoff <= 0 {
		cutoff = DefaultNumClashAtomCutoff
	}
	return c.ClashCount(movingAtoms, cutoff) >= cutoff
}

// ClashExact bypasses the grid and runs an O(atoms_moving * atoms_scene)
// distance test against the retained exact scene (Build must have been
// called with KeepExactScene). distCutoff<=0 uses
// DefaultPhysicalClashDistCutoff.
func (c *VDWBinChecker) ClashExact(movingAtoms []molecule.Atom, distCutoff float64, countCutoff int) (bool, error) {
	if c.exactScene == nil {
		return false, errors.New("voxel: ClashExact requires Build(..., BuildOptions{KeepExactScene: true})")
	}
	if distCutoff <= 0 {
		distCutoff = DefaultPhysicalClashDistCutoff
	}
	if countCutoff <= 0 {
		countCutoff = DefaultNumClashAtomCutoff
	}
	count := 0
	for _, m := range movingAtoms {
		if m.MissingDensity() {
			continue
		}
		for _, s := range c.exactScene {
			if s.MissingDensity() {
				continue
			}
			if geom.Dist(m.XYZ, s.XYZ) <= distCutoff {
				count++
				if count >= countCutoff {
					return true, nil
				}
				break
			}
		}
	}
	return false, nil
}

// Align superimposes source onto target using the landmark atoms named in
// namePairs (each name looked up in both atom lists, first occurrence
// wins), and returns the RMSD. It returns an
// *AlignmentOutOfToleranceError if the superposition's RMSD, or any
// individual landmark atom's post-alignment distance, exceeds 0.001 Å.
func Align(sourceAtoms, targetAtoms []molecule.Atom, namePairs []string) (geom.Transform, float64, error) {
	if len(namePairs) < 3 {
		return geom.Transform{}, 0, errors.New("voxel: Align requires at least 3 named landmark atoms")
	}
	srcByName := indexAtomsByName(sourceAtoms)
	tgtByName := indexAtomsByName(targetAtoms)

	var mobile, target []geom.Vec3
	for _, name := range namePairs {
		s, ok := srcByName[name]
		if !ok {
			return geom.Transform{}, 0, errors.Errorf("voxel: Align: source missing landmark atom %q", name)
		}
		t, ok := tgtByName[name]
		if !ok {
			return geom.Transform{}, 0, errors.Errorf("voxel: Align: target missing landmark atom %q", name)
		}
		mobile = append(mobile, s.XYZ)
		target = append(target, t.XYZ)
	}

	tr, rmsd, err := geom.Kabsch(mobile, target)
	if err != nil {
		return geom.Transform{}, 0, errors.Wrap(err, "voxel: Align")
	}

	const tolerance = 0.001
	if rmsd > tolerance {
		return tr, rmsd, &AlignmentOutOfToleranceError{RMSD: rmsd, Cutoff: tolerance}
	}
	for i, m := range mobile {
		d := geom.Dist(tr.Apply(m), target[i])
		if d > tolerance {
			if log.At(log.Debug) {
				log.Debug.Printf("voxel: Align: landmark %s post-alignment distance %v exceeds tolerance", namePairs[i], d)
			}
			return tr, rmsd, &AlignmentOutOfToleranceError{RMSD: d, Cutoff: tolerance}
		}
	}
	return tr, rmsd, nil
}

func indexAtomsByName(atoms []molecule.Atom) map[string]molecule.Atom {
	m := make(map[string]molecule.Atom, len(atoms))
	for _, a := range atoms {
		if _, ok := m[a.Name]; !ok {
			m[a.Name] = a
		}
	}
	return m
}

// AlignmentOutOfToleranceError is returned when a superposition's RMSD (or a
// landmark atom's post-alignment distance) exceeds the 0.001 Å tolerance.
type AlignmentOutOfToleranceError struct {
	RMSD, Cutoff float64
}

func (e *AlignmentOutOfToleranceError) Error() string {
	return fmt.Sprintf("voxel: alignment out of tolerance: rmsd %v > cutoff %v", e.RMSD, e.Cutoff)
}
