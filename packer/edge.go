package packer

// Edge is a residue pair: two lazy energy matrices (one per endpoint's
// cache perspective), a sparse amino-acid-pair possibility mask, and the
// scalar pair energy currently contributed to the graph's total.
type Edge struct {
	ID EdgeID

	node0, node1 NodeID
	n0, n1       *Node

	// m0 caches energies as seen from node0: rows = node1's state,
	// columns = node0's recent-history slot. m1 is the mirror image.
	m0, m1 *lazyMatrix

	// aaPairPossible[aa0][aa1] is false when no rotamer pair of those two
	// amino-acid types can possibly interact; such pairs short-circuit to
	// energy 0 without ever consulting the cache or the scorer.
	aaPairPossible [][]bool

	currentPairEnergy float64
}

func newEdge(id EdgeID, n0, n1 *Node, maxAA0, maxAA1 int) *Edge {
	e := &Edge{
		ID:    id,
		node0: n0.ID,
		node1: n1.ID,
		n0:    n0,
		n1:    n1,
		m0:    newLazyMatrix(n1.NumStates, n0.history.Capacity()),
		m1:    newLazyMatrix(n0.NumStates, n1.history.Capacity()),
	}
	e.aaPairPossible = make([][]bool, maxAA0+1)
	for i := range e.aaPairPossible {
		row := make([]bool, maxAA1+1)
		for j := range row {
			row[j] = true // default: all aa-type pairs are possible.
		}
		e.aaPairPossible[i] = row
	}
	n0.addIncidentEdge(id)
	n1.addIncidentEdge(id)
	return e
}

// Other returns the node id on the far side of this edge from n.
func (e *Edge) Other(n NodeID) NodeID {
	if n == e.node0 {
		return e.node1
	}
	return e.node0
}

// side returns 0 if n is node0, 1 if n is node1. Panics if n is not an
// endpoint of e.
func (e *Edge) side(n NodeID) int {
	switch n {
	case e.node0:
		return 0
	case e.node1:
		return 1
	default:
		panic("packer: node is not an endpoint of this edge (contract violation)")
	}
}

// SetAAPairPossible configures the sparse mask. aa0/aa1 are the amino-acid
// type tags as returned by Node.AAOf for node0/node1 respectively.
func (e *Edge) SetAAPairPossible(aa0, aa1 int, possible bool) {
	if aa0 < 0 || aa0 >= len(e.aaPairPossible) {
		return
	}
	if aa1 < 0 || aa1 >= len(e.aaPairPossible[aa0]) {
		return
	}
	e.aaPairPossible[aa0][aa1] = possible
}

func (e *Edge) maskAllows(aa0, aa1 int) bool {
	if aa0 < 0 || aa0 >= len(e.aaPairPossible) {
		return true
	}
	if aa1 < 0 || aa1 >= len(e.aaPairPossible[aa0]) {
		return true
	}
	return e.aaPairPossible[aa0][aa1]
}

// CurrentPairEnergy returns the pair energy currently contributing to the
// graph's total (i.e. the energy between both endpoints' current states).
func (e *Edge) CurrentPairEnergy() float64 { return e.currentPairEnergy }

// energyFor computes the pair energy for (state0, state1), consulting and
// populating the lazy matrices as policy allows, and applying the sparse
// mask short-circuit. slot0/slot1 are the recent-history slots that state0/
// state1 occupy (0 if not in the respective history, e.g. a fresh alt
// state). cache0/cache1 enable writing/reading the matrix for each side.
func (e *Edge) energyFor(scorer Scorer, state0, slot0 int, state1, slot1 int, cache0, cache1 bool) float64 {
	aa0 := e.n0.AAOf(state0)
	aa1 := e.n1.AAOf(state1)
	if !e.maskAllows(aa0, aa1) {
		return 0
	}

	if cache0 && slot0 != 0 {
		if v, ok := e.m0.Get(state1, slot0); ok {
			return v
		}
	}
	if cache1 && slot1 != 0 {
		if v, ok := e.m1.Get(state0, slot1); ok {
			return v
		}
	}

	v := scorer.Pair(e.node0, state0, e.node1, state1)
	if cache0 && slot0 != 0 {
		e.m0.Set(state1, slot0, v)
	}
	if cache1 && slot1 != 0 {
		e.m1.Set(state0, slot1, v)
	}
	return v
}

// scorerPair computes the pair energy for (state0, state1) straight from the
// scorer, applying the sparse mask short-circuit but never consulting or
// populating m0/m1. Graph.resync uses this instead of energyFor so its
// from-scratch recompute can't just be reading back the same cached values
// its CacheDrift check is supposed to be validating.
func (e *Edge) scorerPair(scorer Scorer, state0, state1 int) float64 {
	aa0 := e.n0.AAOf(state0)
	aa1 := e.n1.AAOf(state1)
	if !e.maskAllows(aa0, aa1) {
		return 0
	}
	return scorer.Pair(e.node0, state0, e.node1, state1)
}

// EnergyForAltState computes the pair energy between changing (at altState,
// occupying altSlot in its own history once committed) and the peer node,
// currently at peerState/peerSlot. changing must be an endpoint of e.
func (e *Edge) EnergyForAltState(scorer Scorer, changing NodeID, altState, altSlot int, peerState, peerSlot int, cacheChanging, cachePeer bool) float64 {
	if e.side(changing) == 0 {
		return e.energyFor(scorer, altState, altSlot, peerState, peerSlot, cacheChanging, cachePeer)
	}
	return e.energyFor(scorer, peerState, peerSlot, altState, altSlot, cachePeer, cacheChanging)
}

// ResetSlot invalidates the cache entries keyed to the given recent-history
// slot on the named side, because that slot now refers to a different
// state.
func (e *Edge) ResetSlot(n NodeID, slot int) {
	if slot == 0 {
		return
	}
	switch e.side(n) {
	case 0:
		e.m0.ResetColumn(slot)
	default:
		e.m1.ResetColumn(slot)
	}
}

// setCurrentPairEnergy records e's contribution to the graph total once both
// endpoints have settled on their new current states.
func (e *Edge) setCurrentPairEnergy(v float64) { e.currentPairEnergy = v }
