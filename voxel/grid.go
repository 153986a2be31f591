package voxel

import (
	"fmt"
	"io"
	"math"

	"github.com/grailbio/base/bitset"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/simd"
	"github.com/pkg/errors"

	"github.com/rosettacommons/mcore/geom"
)

// wordBits is the number of occupancy bits packed per storage word, the same
// constant circular.Bitmap exposes as BitsPerWord.
const wordBits = simd.BitsPerWord

// referenceEpsilon is the tolerance below which two reference points are
// considered identical for the purposes of AlreadyInitializedError.
const referenceEpsilon = 1e-6

// maxOutOfRangeWarnings bounds how many "atom out of grid range" messages a
// single BinGrid logs before going silent (spec: "at most K warnings").
const maxOutOfRangeWarnings = 10

// AlreadyInitializedError is returned by Init when a BinGrid has already been
// anchored to a different reference point.
type AlreadyInitializedError struct {
	Got, Expected geom.Vec3
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("voxel: grid already initialized with reference %+v, got %+v", e.Expected, e.Got)
}

// ReferenceMismatchError describes an anchor that does not match the grid's
// existing reference point. No function in this package returns it; a
// second Init is reported as *AlreadyInitializedError.
type ReferenceMismatchError struct {
	Got, Expected geom.Vec3
}

func (e *ReferenceMismatchError) Error() string {
	return fmt.Sprintf("voxel: reference mismatch: got %+v, expected %+v", e.Got, e.Expected)
}

// BinGrid is a dense, word-packed 3-D boolean occupancy field anchored at a
// reference point. See package doc for the rationale.
//
// BinGrid is not safe for concurrent use: painting writes the bitset, and
// every Occupied/OccupiedWorld query records that the grid was queried.
type BinGrid struct {
	reference   geom.Vec3
	cell        float64
	maxDistance float64
	b           int // half-width in cells
	dim         int // 2*b

	// words is the occupancy bitset, one bit per cell, packed the same way
	// circular.Bitmap packs a row: []uintptr so it can be handed directly to
	// bitset.NewNonzeroWordScanner.
	words []uintptr
	// nonzeroWords tracks len of the nonzero subset of words, the same
	// running count circular.Bitmap.Set keeps in wordPops, so Dump can scan
	// straight to the occupied words instead of walking every cell.
	nonzeroWords int

	initialized     bool
	queried         bool
	outOfRangeWarns int
}

// Empty constructs a fresh, unpainted BinGrid anchored at reference, with
// half-width ceil(maxDistance/cell) cells in every axis.
func Empty(reference geom.Vec3, maxDistance, cell float64) (*BinGrid, error) {
	g := &BinGrid{}
	if err := g.Init(reference, maxDistance, cell); err != nil {
		return nil, err
	}
	return g, nil
}

// Init anchors g at reference with the given geometry. It may be called
// exactly once on a zero-value BinGrid; subsequent calls succeed only as a
// no-op when reference matches the existing anchor within tolerance, and
// otherwise return *AlreadyInitializedError.
func (g *BinGrid) Init(reference geom.Vec3, maxDistance, cell float64) error {
	if g.initialized {
		if geom.Dist(reference, g.reference) > referenceEpsilon {
			return &AlreadyInitializedError{Got: reference, Expected: g.reference}
		}
		return nil
	}
	b := int(math.Ceil(maxDistance / cell))
	if b <= 0 {
		return errors.Errorf("voxel: degenerate grid geometry: maxDistance=%v cell=%v", maxDistance, cell)
	}
	dim := 2 * b
	nBits := dim * dim * dim
	nWords := (nBits + wordBits - 1) / wordBits

	g.reference = reference
	g.cell = cell
	g.maxDistance = maxDistance
	g.b = b
	g.dim = dim
	g.words = make([]uintptr, nWords)
	g.initialized = true
	return nil
}

// Reference returns the grid's anchor point.
func (g *BinGrid) Reference() geom.Vec3 { return g.reference }

// Cell returns the grid's voxel edge length.
func (g *BinGrid) Cell() float64 { return g.cell }

// MaxDistance returns the grid's configured maximum radius.
func (g *BinGrid) MaxDistance() float64 { return g.maxDistance }

// Dim returns the per-axis cell count (2*B).
func (g *BinGrid) Dim() int { return g.dim }

// cellIndex maps a world-space point to 0-based cell coordinates, reporting
// ok=false if the point falls outside [0, dim) on any axis.
func (g *BinGrid) cellIndex(p geom.Vec3) (ix, iy, iz int, ok bool) {
	fx := math.Floor((p.X-g.reference.X)/g.cell) + float64(g.b)
	fy := math.Floor((p.Y-g.reference.Y)/g.cell) + float64(g.b)
	fz := math.Floor((p.Z-g.reference.Z)/g.cell) + float64(g.b)
	ix, iy, iz = int(fx), int(fy), int(fz)
	if ix < 0 || ix >= g.dim || iy < 0 || iy >= g.dim || iz < 0 || iz >= g.dim {
		return 0, 0, 0, false
	}
	return ix, iy, iz, true
}

func (g *BinGrid) bitIndex(ix, iy, iz int) int {
	return (ix*g.dim+iy)*g.dim + iz
}

// unbitIndex inverts bitIndex, recovering cell coordinates from a flat bit
// position (used by Dump, which walks set bits rather than coordinates).
func (g *BinGrid) unbitIndex(idx int) (ix, iy, iz int) {
	iz = idx % g.dim
	rem := idx / g.dim
	iy = rem % g.dim
	ix = rem / g.dim
	return ix, iy, iz
}

func (g *BinGrid) setBit(idx int) {
	wordIdx := idx / wordBits
	word := g.words[wordIdx]
	if word == 0 {
		g.nonzeroWords++
	}
	g.words[wordIdx] = word | (uintptr(1) << uint(idx%wordBits))
}

func (g *BinGrid) testBit(idx int) bool {
	return g.words[idx/wordBits]&(uintptr(1)<<uint(idx%wordBits)) != 0
}

// requireBuilt panics with a ContractViolation-style message if g has not
// been initialized. Per spec, build must precede any query.
func (g *BinGrid) requireBuilt(op string) {
	if !g.initialized {
		log.Panicf("voxel: %s called on an un-built BinGrid (contract violation)", op)
	}
}

// requireUnqueried panics if g has already served a query and is being
// painted again without an explicit Reset. Per spec, builder operations on an
// already-queried grid are a contract violation unless explicitly rebuilt.
func (g *BinGrid) requireUnqueried(op string) {
	if g.queried {
		log.Panicf("voxel: %s called on a BinGrid that has already been queried (contract violation; call Reset first)", op)
	}
}

// Reset clears all occupancy and the queried flag, keeping the same
// reference/geometry, so a caller can rebuild against the same anchor.
func (g *BinGrid) Reset() {
	g.requireBuilt("Reset")
	for i := range g.words {
		g.words[i] = 0
	}
	g.nonzeroWords = 0
	g.queried = false
	g.outOfRangeWarns = 0
}

// PaintSphere marks every voxel whose center lies within radius of center as
// occupied. Voxels whose centers fall outside the grid are silently skipped
// after at most maxOutOfRangeWarnings log messages. Returns the number of
// voxels newly marked occupied.
func (g *BinGrid) PaintSphere(center geom.Vec3, radius float64) int {
	g.requireBuilt("PaintSphere")
	g.requireUnqueried("PaintSphere")
	if radius <= 0 {
		return 0
	}

	rCells := int(math.Ceil(radius/g.cell)) + 1
	fcx := (center.X-g.reference.X)/g.cell + float64(g.b)
	fcy := (center.Y-g.reference.Y)/g.cell + float64(g.b)
	fcz := (center.Z-g.reference.Z)/g.cell + float64(g.b)
	baseIx, baseIy, baseIz := int(math.Floor(fcx)), int(math.Floor(fcy)), int(math.Floor(fcz))

	painted := 0
	for dx := -rCells; dx <= rCells; dx++ {
		ix := baseIx + dx
		if ix < 0 || ix >= g.dim {
			continue
		}
		for dy := -rCells; dy <= rCells; dy++ {
			iy := baseIy + dy
			if iy < 0 || iy >= g.dim {
				continue
			}
			for dz := -rCells; dz <= rCells; dz++ {
				iz := baseIz + dz
				if iz < 0 || iz >= g.dim {
					continue
				}
				voxelCenter := geom.Vec3{
					X: g.reference.X + (float64(ix)-float64(g.b)+0.5)*g.cell,
					Y: g.reference.Y + (float64(iy)-float64(g.b)+0.5)*g.cell,
					Z: g.reference.Z + (float64(iz)-float64(g.b)+0.5)*g.cell,
				}
				if geom.SqDist(voxelCenter, center) > radius*radius {
					continue
				}
				idx := g.bitIndex(ix, iy, iz)
				if !g.testBit(idx) {
					g.setBit(idx)
					painted++
				}
			}
		}
	}
	if painted == 0 {
		// Sphere may be entirely out of range; warn at most K times.
		if !g.sphereTouchesGrid(center, radius) && g.outOfRangeWarns < maxOutOfRangeWarnings {
			log.Debug.Printf("voxel: sphere at %+v r=%v painted 0 voxels (out of grid range)", center, radius)
			g.outOfRangeWarns++
		}
	}
	return painted
}

func (g *BinGrid) sphereTouchesGrid(center geom.Vec3, radius float64) bool {
	_, _, _, ok := g.cellIndex(center)
	return ok || radius >= g.maxDistance
}

// Occupied reports whether the given 0-based cell coordinates are marked.
// Out-of-range coordinates return false.
func (g *BinGrid) Occupied(ix, iy, iz int) bool {
	g.requireBuilt("Occupied")
	g.queried = true
	if ix < 0 || ix >= g.dim || iy < 0 || iy >= g.dim || iz < 0 || iz >= g.dim {
		return false
	}
	return g.testBit(g.bitIndex(ix, iy, iz))
}

// OccupiedWorld reports whether the voxel containing world-space point p is
// occupied. Points outside the grid's range return false (tolerant policy).
func (g *BinGrid) OccupiedWorld(p geom.Vec3) bool {
	g.requireBuilt("OccupiedWorld")
	g.queried = true
	ix, iy, iz, ok := g.cellIndex(p)
	if !ok {
		return false
	}
	return g.testBit(g.bitIndex(ix, iy, iz))
}

// Dump writes one line per occupied voxel's world-space center, for
// debugging. It does not mark the grid as queried (it's a read-only
// diagnostic, not a clash query).
//
// Rather than walking every cell, it scans directly to occupied words with
// bitset.NewNonzeroWordScanner, the same primitive circular.Bitmap.NewRowScanner
// uses to skip empty rows: at the default grid size almost every word is
// zero, so this turns the dump from a dim^3 scan into one proportional to the
// number of set bits.
func (g *BinGrid) Dump(w io.Writer) error {
	g.requireBuilt("Dump")
	if g.nonzeroWords == 0 {
		return nil
	}
	// The scanner clears the bits it visits, so it runs over a copy.
	words := append([]uintptr(nil), g.words...)
	for scanner, idx := bitset.NewNonzeroWordScanner(words, g.nonzeroWords); idx != -1; idx = scanner.Next() {
		ix, iy, iz := g.unbitIndex(idx)
		c := geom.Vec3{
			X: g.reference.X + (float64(ix)-float64(g.b)+0.5)*g.cell,
			Y: g.reference.Y + (float64(iy)-float64(g.b)+0.5)*g.cell,
			Z: g.reference.Z + (float64(iz)-float64(g.b)+0.5)*g.cell,
		}
		if _, err := fmt.Fprintf(w, "%v %v %v\n", c.X, c.Y, c.Z); err != nil {
			return err
		}
	}
	return nil
}
