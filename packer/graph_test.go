package packer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableScorer scores purely from fixed one-body/pair tables, keyed by
// (node, state) and (nodeA, stateA, nodeB, stateB) respectively. Missing
// pair entries default to 0 either order.
type tableScorer struct {
	oneBody   map[NodeID]map[int]float64
	pair      map[[4]int]float64
	pairCalls int
}

func newTableScorer() *tableScorer {
	return &tableScorer{
		oneBody: make(map[NodeID]map[int]float64),
		pair:    make(map[[4]int]float64),
	}
}

func (s *tableScorer) setOneBody(n NodeID, state int, e float64) {
	if s.oneBody[n] == nil {
		s.oneBody[n] = make(map[int]float64)
	}
	s.oneBody[n][state] = e
}

func (s *tableScorer) setPair(a NodeID, sa int, b NodeID, sb int, e float64) {
	s.pair[[4]int{int(a), sa, int(b), sb}] = e
	s.pair[[4]int{int(b), sb, int(a), sa}] = e
}

func (s *tableScorer) OneBody(n NodeID, state int) float64 {
	return s.oneBody[n][state]
}

func (s *tableScorer) Pair(a NodeID, sa int, b NodeID, sb int) float64 {
	s.pairCalls++
	return s.pair[[4]int{int(a), sa, int(b), sb}]
}

// TestScenarioS2SingleNodeAnneal: one unpaired node, Consider/Commit/Revert
// must track CurrentEnergy purely off one-body terms.
func TestScenarioS2SingleNodeAnneal(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 10.0)
	scorer.setOneBody(1, 2, 3.0)

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)

	total := g.SetState(1, 1)
	assert.Equal(t, 10.0, total)
	assert.Equal(t, 10.0, g.CurrentEnergy())

	delta, prev := g.Consider(1, 2)
	assert.Equal(t, 10.0, prev)
	assert.Equal(t, 3.0-10.0, delta)
	assert.Equal(t, 10.0, g.CurrentEnergy(), "Consider must not mutate current energy")

	newTotal := g.Commit()
	assert.Equal(t, 3.0, newTotal)
	assert.Equal(t, 3.0, g.CurrentEnergy())
}

// TestScenarioS2RevertPurity: Revert must leave the graph's energy and state
// bit-for-bit as it was before Consider.
func TestScenarioS2RevertPurity(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 10.0)
	scorer.setOneBody(1, 2, 3.0)

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	g.SetState(1, 1)

	g.Consider(1, 2)
	g.Revert()

	assert.Equal(t, 10.0, g.CurrentEnergy())
	assert.Equal(t, 1, g.Node(1).CurrentState())
	assert.False(t, g.Node(1).HasPendingAlt())
}

// TestScenarioS3TwoNodePair checks incremental energy accounting across an
// edge: total = oneBody(A) + oneBody(B) + pair(A,B).
func TestScenarioS3TwoNodePair(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 1.0)
	scorer.setOneBody(2, 1, 2.0)
	scorer.setPair(1, 1, 2, 1, 5.0)
	scorer.setOneBody(1, 2, 4.0)
	scorer.setPair(1, 2, 2, 1, 0.5)

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	g.AddNode(2, 2)
	g.AddEdge(1, 2, 1, 1)

	g.SetState(1, 1)
	total := g.SetState(2, 1)
	assert.Equal(t, 1.0+2.0+5.0, total)

	delta, prev := g.Consider(1, 2)
	assert.Equal(t, 1.0+5.0, prev)
	assert.Equal(t, (4.0+0.5)-(1.0+5.0), delta)

	newTotal := g.Commit()
	assert.Equal(t, 2.0+4.0+0.5, newTotal)
	assert.Equal(t, 2.0+4.0+0.5, g.CurrentEnergy())
}

// TestScenarioS4SparseMaskShortCircuit verifies that a masked-off amino-acid
// pair never reaches the scorer, across a full Consider/Commit cycle.
func TestScenarioS4SparseMaskShortCircuit(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 0)
	scorer.setOneBody(2, 1, 0)
	scorer.setPair(1, 1, 2, 1, 99.0) // should never be read

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	n1 := g.AddNode(1, 2)
	n2 := g.AddNode(2, 2)
	n1.AAType[1] = 1
	n2.AAType[1] = 1
	e := g.AddEdge(1, 2, 1, 1)
	e.SetAAPairPossible(1, 1, false)

	g.SetState(1, 1)
	total := g.SetState(2, 1)
	assert.Equal(t, 0.0, total)
	assert.Equal(t, 0, scorer.pairCalls, "masked pair must short-circuit without calling the scorer")
}

// TestInvariantEnergyConsistencyAcrossSetAll: SetAll's two-phase finalize
// must match the incremental total from setting states one at a time.
func TestInvariantEnergyConsistencyAcrossSetAll(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 1.5)
	scorer.setOneBody(2, 1, 2.5)
	scorer.setPair(1, 1, 2, 1, 0.25)

	incremental := NewGraph(scorer, GraphOptions{HistorySize: 2})
	incremental.AddNode(1, 2)
	incremental.AddNode(2, 2)
	incremental.AddEdge(1, 2, 1, 1)
	incremental.SetState(1, 1)
	incrementalTotal := incremental.SetState(2, 1)

	bulk := NewGraph(scorer, GraphOptions{HistorySize: 2})
	bulk.AddNode(1, 2)
	bulk.AddNode(2, 2)
	bulk.AddEdge(1, 2, 1, 1)
	bulkTotal := bulk.SetAll(map[NodeID]int{1: 1, 2: 1})

	assert.Equal(t, incrementalTotal, bulkTotal)
}

// TestInvariantCommitWithoutConsiderPanics enforces the Consider-before-Commit
// contract.
func TestInvariantCommitWithoutConsiderPanics(t *testing.T) {
	scorer := newTableScorer()
	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	assert.Panics(t, func() { g.Commit() })
}

func TestInvariantRevertWithoutConsiderPanics(t *testing.T) {
	scorer := newTableScorer()
	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	assert.Panics(t, func() { g.Revert() })
}

// TestInvariantSinglePendingAltAcrossGraph: Consider on a second node while
// the first has a pending alt is a contract violation.
func TestInvariantSinglePendingAltAcrossGraph(t *testing.T) {
	scorer := newTableScorer()
	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	g.AddNode(2, 2)
	g.SetState(1, 1)
	g.SetState(2, 1)

	g.Consider(1, 2)
	assert.Panics(t, func() { g.Consider(2, 2) })
}

// TestBlanketUnassignZeroesEverything matches the spec's contract that
// unassigning resets total energy and every node's state.
func TestBlanketUnassignZeroesEverything(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 10.0)
	scorer.setOneBody(2, 1, 5.0)
	scorer.setPair(1, 1, 2, 1, 1.0)

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	g.AddNode(2, 2)
	g.AddEdge(1, 2, 1, 1)
	g.SetState(1, 1)
	g.SetState(2, 1)
	require.NotEqual(t, 0.0, g.CurrentEnergy())

	g.BlanketUnassign()
	assert.Equal(t, 0.0, g.CurrentEnergy())
	assert.False(t, g.Node(1).IsAssigned())
	assert.False(t, g.Node(2).IsAssigned())
}

// TestEnergyForGroupSumsOnlyInternalEdges checks that a cross-group edge is
// excluded while an internal one is included.
func TestEnergyForGroupSumsOnlyInternalEdges(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 1.0)
	scorer.setOneBody(2, 1, 2.0)
	scorer.setOneBody(3, 1, 4.0)
	scorer.setPair(1, 1, 2, 1, 0.5)
	scorer.setPair(2, 1, 3, 1, 100.0) // crosses the group boundary

	g := NewGraph(scorer, GraphOptions{HistorySize: 2})
	g.AddNode(1, 2)
	g.AddNode(2, 2)
	g.AddNode(3, 2)
	g.AddEdge(1, 2, 1, 1)
	g.AddEdge(2, 3, 1, 1)
	g.SetAll(map[NodeID]int{1: 1, 2: 1, 3: 1})

	const group GroupID = 0
	g.AddNodeToGroup(group, 1)
	g.AddNodeToGroup(group, 2)

	assert.Equal(t, 1.0+2.0+0.5, g.EnergyForGroup(group))
}

func TestResyncRepairsManuallyCorruptedTotal(t *testing.T) {
	scorer := newTableScorer()
	scorer.setOneBody(1, 1, 7.0)

	g := NewGraph(scorer, GraphOptions{HistorySize: 2, ResyncInterval: 1})
	g.AddNode(1, 2)
	g.SetState(1, 1)

	g.runningTotal = 999 // simulate drift
	g.checkDrift()
	assert.Equal(t, 7.0, g.CurrentEnergy())
}
