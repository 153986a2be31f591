package packer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingScorer records how many times Pair is invoked in total, to prove
// cache hits avoid redundant scorer calls.
type countingScorer struct {
	pairCalls int
	value     float64
}

func (s *countingScorer) OneBody(NodeID, int) float64 { return 0 }

func (s *countingScorer) Pair(NodeID, int, NodeID, int) float64 {
	s.pairCalls++
	return s.value
}

func newTestEdge() (*Node, *Node, *Edge) {
	n0 := NewNode(1, 5, 3)
	n1 := NewNode(2, 5, 3)
	e := newEdge(1, n0, n1, 2, 2)
	return n0, n1, e
}

func TestEdgeEnergyForCachesPerSlot(t *testing.T) {
	n0, n1, e := newTestEdge()
	scorer := &countingScorer{value: 4.5}

	slot0, slot1 := 1, 1
	v1 := e.energyFor(scorer, 2, slot0, 3, slot1, true, true)
	require.Equal(t, 4.5, v1)
	require.Equal(t, 1, scorer.pairCalls)

	v2 := e.energyFor(scorer, 2, slot0, 3, slot1, true, true)
	assert.Equal(t, 4.5, v2)
	assert.Equal(t, 1, scorer.pairCalls, "second lookup at the same slot should hit cache")

	_ = n0
	_ = n1
}

func TestEdgeEnergyForFreshSlotNeverCaches(t *testing.T) {
	n0, n1, e := newTestEdge()
	_ = n0
	_ = n1
	scorer := &countingScorer{value: 1.0}

	e.energyFor(scorer, 2, 0, 3, 0, true, true)
	e.energyFor(scorer, 2, 0, 3, 0, true, true)
	assert.Equal(t, 2, scorer.pairCalls, "slot 0 means absent-from-history: must never be cached")
}

func TestEdgeMaskShortCircuitsWithoutScorerCall(t *testing.T) {
	n0, n1, e := newTestEdge()
	n0.AAType[2] = 1
	n1.AAType[3] = 1
	e.SetAAPairPossible(1, 1, false)

	scorer := &countingScorer{value: 9.0}
	v := e.energyFor(scorer, 2, 1, 3, 1, true, true)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, 0, scorer.pairCalls)
}

func TestEdgeResetSlotInvalidatesOwnSideOnly(t *testing.T) {
	_, _, e := newTestEdge()
	scorer := &countingScorer{value: 2.0}

	e.energyFor(scorer, 2, 1, 3, 1, true, true)
	require.Equal(t, 1, scorer.pairCalls)

	e.ResetSlot(1, 1) // node0's slot 1 invalidated
	e.energyFor(scorer, 2, 1, 3, 1, true, false)
	assert.Equal(t, 2, scorer.pairCalls, "own-side cache entry must be gone after ResetSlot")
	_, ok := e.m1.Get(2, 1)
	assert.True(t, ok, "peer-side entry keyed by node0's real state must survive")
}

func TestEdgeResetSlotZeroIsNoop(t *testing.T) {
	_, _, e := newTestEdge()
	assert.NotPanics(t, func() { e.ResetSlot(1, 0) })
}

func TestEdgeSideIsContractViolation(t *testing.T) {
	_, _, e := newTestEdge()
	assert.Panics(t, func() { e.side(99) })
}

func TestEdgeEnergyForAltStateOrdersArgumentsByEndpoint(t *testing.T) {
	_, _, e := newTestEdge()
	scorer := &recordingScorer{}

	e.EnergyForAltState(scorer, 1 /* node0 */, 2, 1, 3, 1, true, true)
	require.Len(t, scorer.calls, 1)
	assert.Equal(t, [4]int{1, 2, 2, 3}, scorer.calls[0])

	scorer.calls = nil
	e.EnergyForAltState(scorer, 2 /* node1 */, 3, 1, 2, 1, false, false)
	require.Len(t, scorer.calls, 1)
	assert.Equal(t, [4]int{1, 2, 2, 3}, scorer.calls[0])
}

// recordingScorer records the (nodeA, stateA, nodeB, stateB) argument tuple
// of every Pair call, to check argument ordering.
type recordingScorer struct {
	calls [][4]int
}

func (s *recordingScorer) OneBody(NodeID, int) float64 { return 0 }

func (s *recordingScorer) Pair(nodeA NodeID, stateA int, nodeB NodeID, stateB int) float64 {
	s.calls = append(s.calls, [4]int{int(nodeA), stateA, int(nodeB), stateB})
	return 0
}
