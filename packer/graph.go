package packer

import (
	"math"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
)

// groupNodeKey lets NodeID values sit in an llrb.Tree, giving group
// membership tests the same byKey/byIndex dual-index shape the teacher uses
// for shard lookups: a tree for ordered membership, a slice for iteration
// order.
type groupNodeKey NodeID

// Compare implements llrb.Comparable.
func (k groupNodeKey) Compare(c llrb.Comparable) int {
	return int(k) - int(c.(groupNodeKey))
}

// nodeGroup is a caller-defined subset of a Graph's nodes.
type nodeGroup struct {
	byID  llrb.Tree
	order []NodeID
}

func (grp *nodeGroup) has(node NodeID) bool {
	return grp.byID.Get(groupNodeKey(node)) != nil
}

// GroupID tags a caller-defined subset of nodes for EnergyForGroup.
type GroupID int

// cacheDriftTolerance is the periodic-resync delta above which a CacheDrift
// is logged (spec §7: drift > 1e-3).
const cacheDriftTolerance = 1e-3

// defaultResyncInterval is how many commits elapse between from-scratch
// re-sums (spec §4.6: "periodically (every C=1024 commits)").
const defaultResyncInterval = 1024

// defaultHistorySize is H, the default RecentHistoryQueue capacity.
const defaultHistorySize = 10

// CachePolicy decides whether an edge should cache pair energies for a given
// node's side, per spec §4.4's acceptance-rate heuristic / Open Question.
type CachePolicy interface {
	ShouldCache(n *Node) bool
}

// AlwaysCache is the default policy: always populate and consult the lazy
// matrices. Per spec §9's Open Question decision, this is preferred over the
// acceptance-rate toggle outside of packing-specific workloads.
type AlwaysCache struct{}

// ShouldCache implements CachePolicy.
func (AlwaysCache) ShouldCache(*Node) bool { return true }

// AdaptiveCachePolicy switches a node's incident edges to recompute-on-
// demand mode once its recent rejection count (out of the last 20
// commit/revert outcomes) reaches RejectionThreshold. A zero
// RejectionThreshold uses the spec's example constant of 10.
type AdaptiveCachePolicy struct {
	RejectionThreshold int
}

// ShouldCache implements CachePolicy.
func (p AdaptiveCachePolicy) ShouldCache(n *Node) bool {
	threshold := p.RejectionThreshold
	if threshold <= 0 {
		threshold = 10
	}
	return n.ring.rejectionCount() < threshold
}

// GraphOptions configures a Graph at construction time.
type GraphOptions struct {
	// HistorySize is H, the per-node RecentHistoryQueue capacity. Must be
	// set before any node is sampled; defaults to 10.
	HistorySize int
	// CachePolicy decides whether edges cache pair energies. Defaults to
	// AlwaysCache.
	CachePolicy CachePolicy
	// ResyncInterval is how many commits elapse between from-scratch
	// re-sums. Defaults to 1024.
	ResyncInterval int
}

func (o GraphOptions) historySize() int {
	if o.HistorySize > 0 {
		return o.HistorySize
	}
	return defaultHistorySize
}

func (o GraphOptions) cachePolicy() CachePolicy {
	if o.CachePolicy != nil {
		return o.CachePolicy
	}
	return AlwaysCache{}
}

func (o GraphOptions) resyncInterval() int {
	if o.ResyncInterval > 0 {
		return o.ResyncInterval
	}
	return defaultResyncInterval
}

// Graph owns a set of nodes and edges and drives Metropolis-style
// consider/commit/revert steps against a Scorer. Graph is not safe for
// concurrent use; all sampling is caller-serialized (spec §5).
type Graph struct {
	scorer         Scorer
	historySize    int
	cachePolicy    CachePolicy
	resyncInterval int

	nodes     map[NodeID]*Node
	nodeOrder []NodeID
	edges     map[EdgeID]*Edge
	edgeOrder []EdgeID
	nextEdge  EdgeID

	groups map[GroupID]*nodeGroup

	hasPending  bool
	pendingNode NodeID
	commitCount int

	runningTotal float64
}

// NewGraph creates an empty Graph bound to scorer.
func NewGraph(scorer Scorer, opts GraphOptions) *Graph {
	return &Graph{
		scorer:         scorer,
		historySize:    opts.historySize(),
		cachePolicy:    opts.cachePolicy(),
		resyncInterval: opts.resyncInterval(),
		nodes:          make(map[NodeID]*Node),
		edges:          make(map[EdgeID]*Edge),
		groups:         make(map[GroupID]*nodeGroup),
	}
}

// AddNode creates a node with the given number of states and returns it.
// id must be unique within the graph.
func (g *Graph) AddNode(id NodeID, numStates int) *Node {
	if _, exists := g.nodes[id]; exists {
		log.Panicf("packer: node %v already exists", id)
	}
	n := NewNode(id, numStates, g.historySize)
	g.nodes[id] = n
	g.nodeOrder = append(g.nodeOrder, id)
	return n
}

// AddEdge creates an edge between n0 and n1. maxAA0/maxAA1 size the sparse
// amino-acid-pair mask; pass the largest AAType tag used on each side.
func (g *Graph) AddEdge(n0, n1 NodeID, maxAA0, maxAA1 int) *Edge {
	a := g.mustNode(n0)
	b := g.mustNode(n1)
	g.nextEdge++
	e := newEdge(g.nextEdge, a, b, maxAA0, maxAA1)
	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	return e
}

func (g *Graph) mustNode(id NodeID) *Node {
	n, ok := g.nodes[id]
	if !ok {
		log.Panicf("packer: unknown node %v", id)
	}
	return n
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node { return g.nodes[id] }

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id EdgeID) *Edge { return g.edges[id] }

// AddNodeToGroup tags node as belonging to group, for EnergyForGroup.
func (g *Graph) AddNodeToGroup(group GroupID, node NodeID) {
	g.mustNode(node)
	grp, ok := g.groups[group]
	if !ok {
		grp = &nodeGroup{}
		g.groups[group] = grp
	}
	key := groupNodeKey(node)
	if grp.byID.Get(key) == nil {
		grp.byID.Insert(key)
		grp.order = append(grp.order, node)
	}
}

// BlanketUnassign sets every node to unassigned and zeroes the total energy.
func (g *Graph) BlanketUnassign() {
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		n.currentState = 0
		n.currentOneBody = 0
		n.altPending = false
	}
	for _, eid := range g.edgeOrder {
		g.edges[eid].setCurrentPairEnergy(0)
	}
	g.runningTotal = 0
	g.hasPending = false
	g.pendingNode = 0
}

// SetState assigns node directly to state (no Consider/Commit dance),
// recomputing the total incrementally against peers' current states
// (unassigned peers contribute 0). Returns the new total energy.
func (g *Graph) SetState(id NodeID, state int) float64 {
	if g.hasPending {
		log.Panicf("packer: SetState(%v) called with a pending alt-state on node %v (contract violation)", id, g.pendingNode)
	}
	node := g.mustNode(id)
	oldOneBody := node.currentOneBody
	newOneBody := g.scorer.OneBody(id, state)

	evictedSlot, evicted := node.history.Push(state)
	if evicted {
		for _, eid := range node.incidentEdges {
			g.edges[eid].ResetSlot(id, evictedSlot)
		}
	}
	mySlot := node.history.PositionOf(state)

	delta := newOneBody - oldOneBody
	for _, eid := range node.incidentEdges {
		e := g.edges[eid]
		peer := g.nodes[e.Other(id)]
		oldPair := e.CurrentPairEnergy()
		var newPair float64
		if peer.IsAssigned() {
			peerSlot := peer.history.PositionOf(peer.currentState)
			newPair = e.EnergyForAltState(g.scorer, id, state, mySlot, peer.currentState, peerSlot,
				g.cachePolicy.ShouldCache(node), g.cachePolicy.ShouldCache(peer))
		}
		e.setCurrentPairEnergy(newPair)
		delta += newPair - oldPair
	}

	node.currentState = state
	node.currentOneBody = newOneBody
	g.runningTotal += delta
	return g.runningTotal
}

// SetAll partially assigns every (node, state) pair in states, then
// finalizes: this two-phase sequencing avoids reading an inconsistent peer
// state mid-assignment during bulk initialization.
func (g *Graph) SetAll(states map[NodeID]int) float64 {
	if g.hasPending {
		log.Panicf("packer: SetAll called with a pending alt-state on node %v (contract violation)", g.pendingNode)
	}
	for id, state := range states {
		node := g.mustNode(id)
		newOneBody := g.scorer.OneBody(id, state)
		evictedSlot, evicted := node.history.Push(state)
		if evicted {
			for _, eid := range node.incidentEdges {
				g.edges[eid].ResetSlot(id, evictedSlot)
			}
		}
		node.currentState = state
		node.currentOneBody = newOneBody
	}
	return g.resync()
}

// Consider projects node onto alt and returns the resulting delta-energy
// plus the energy node currently contributes (one-body + incident pair
// energies). It changes no current state or energy; it records alt as the
// pending alt-state and may fill edge caches. At most one alt-state may be pending
// across the whole graph; Consider on a different node while one is already
// pending is a contract violation.
func (g *Graph) Consider(id NodeID, alt int) (delta float64, prevTotalAtNode float64) {
	if g.hasPending && g.pendingNode != id {
		log.Panicf("packer: Consider(%v) called while node %v has a pending alt-state (contract violation)", id, g.pendingNode)
	}
	node := g.mustNode(id)

	prevTotalAtNode = node.currentOneBody
	for _, eid := range node.incidentEdges {
		prevTotalAtNode += g.edges[eid].CurrentPairEnergy()
	}

	altOneBody := g.scorer.OneBody(id, alt)
	altSlot := node.history.PositionOf(alt)
	altTotal := altOneBody
	changingCache := g.cachePolicy.ShouldCache(node)
	for _, eid := range node.incidentEdges {
		e := g.edges[eid]
		peer := g.nodes[e.Other(id)]
		if !peer.IsAssigned() {
			continue
		}
		peerSlot := peer.history.PositionOf(peer.currentState)
		altTotal += e.EnergyForAltState(g.scorer, id, alt, altSlot, peer.currentState, peerSlot,
			changingCache, g.cachePolicy.ShouldCache(peer))
	}

	node.altPending = true
	node.altState = alt
	node.altOneBody = altOneBody
	g.hasPending = true
	g.pendingNode = id

	return altTotal - prevTotalAtNode, prevTotalAtNode
}

// Commit promotes the pending alt-state to current and returns the new
// total energy. Commit with no prior Consider is a contract violation.
func (g *Graph) Commit() float64 {
	if !g.hasPending {
		log.Panicf("packer: Commit called with no pending Consider (contract violation)")
	}
	id := g.pendingNode
	node := g.nodes[id]

	evictedSlot, evicted := node.history.Push(node.altState)
	if evicted {
		for _, eid := range node.incidentEdges {
			g.edges[eid].ResetSlot(id, evictedSlot)
		}
	}
	mySlot := node.history.PositionOf(node.altState)

	delta := node.altOneBody - node.currentOneBody
	for _, eid := range node.incidentEdges {
		e := g.edges[eid]
		peer := g.nodes[e.Other(id)]
		oldPair := e.CurrentPairEnergy()
		var newPair float64
		if peer.IsAssigned() {
			peerSlot := peer.history.PositionOf(peer.currentState)
			newPair = e.EnergyForAltState(g.scorer, id, node.altState, mySlot, peer.currentState, peerSlot,
				g.cachePolicy.ShouldCache(node), g.cachePolicy.ShouldCache(peer))
		}
		e.setCurrentPairEnergy(newPair)
		delta += newPair - oldPair
	}

	node.currentState = node.altState
	node.currentOneBody = node.altOneBody
	node.altPending = false
	node.ring.push(true)

	g.hasPending = false
	g.pendingNode = 0
	g.runningTotal += delta
	g.commitCount++

	if g.commitCount%g.resyncInterval == 0 {
		g.checkDrift()
	}
	return g.runningTotal
}

// Revert cancels the pending Consider with no state change. Revert with no
// prior Consider is a contract violation.
func (g *Graph) Revert() {
	if !g.hasPending {
		log.Panicf("packer: Revert called with no pending Consider (contract violation)")
	}
	node := g.nodes[g.pendingNode]
	node.altPending = false
	node.ring.push(false)
	g.hasPending = false
	g.pendingNode = 0
}

// CurrentEnergy returns the graph's total energy.
func (g *Graph) CurrentEnergy() float64 { return g.runningTotal }

// EnergyForGroup sums the one-body energies of assigned nodes in group, plus
// the pair energies of edges whose both endpoints are in group.
func (g *Graph) EnergyForGroup(group GroupID) float64 {
	grp, ok := g.groups[group]
	if !ok {
		return 0
	}
	total := 0.0
	for _, id := range grp.order {
		n := g.nodes[id]
		if n.IsAssigned() {
			total += n.currentOneBody
		}
	}
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		if grp.has(e.node0) && grp.has(e.node1) {
			total += e.CurrentPairEnergy()
		}
	}
	return total
}

// resync recomputes every one-body and pair energy from scratch via the
// scorer — bypassing the lazy matrices entirely, via Edge.scorerPair rather
// than energyFor, so a resync cannot simply read back the same cached value
// it exists to validate — resets runningTotal, and returns it. Used by
// SetAll's finalize phase and by the periodic CacheDrift self-check.
func (g *Graph) resync() float64 {
	total := 0.0
	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		if n.IsAssigned() {
			n.currentOneBody = g.scorer.OneBody(id, n.currentState)
			total += n.currentOneBody
		}
	}
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		n0, n1 := g.nodes[e.node0], g.nodes[e.node1]
		var pair float64
		if n0.IsAssigned() && n1.IsAssigned() {
			pair = e.scorerPair(g.scorer, n0.currentState, n1.currentState)
		}
		e.setCurrentPairEnergy(pair)
		total += pair
	}
	g.runningTotal = total
	return total
}

func (g *Graph) checkDrift() {
	before := g.runningTotal
	after := g.resync()
	if math.Abs(after-before) > cacheDriftTolerance {
		log.Error.Printf("packer: cache drift detected after %d commits: running=%v resynced=%v drift=%v",
			g.commitCount, before, after, after-before)
	}
}
