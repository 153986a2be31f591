package packer

// NodeID identifies a residue position within a Graph.
type NodeID int

// EdgeID identifies a residue pair within a Graph.
type EdgeID int

const acceptRingSize = 20

// acceptRing is a fixed-size ring buffer of accept/reject outcomes, used by
// the adaptive caching-mode heuristic.
type acceptRing struct {
	outcomes [acceptRingSize]bool // true = accepted
	filled   [acceptRingSize]bool
	pos      int
}

func (r *acceptRing) push(accepted bool) {
	r.outcomes[r.pos] = accepted
	r.filled[r.pos] = true
	r.pos = (r.pos + 1) % acceptRingSize
}

func (r *acceptRing) rejectionCount() int {
	n := 0
	for i, f := range r.filled {
		if f && !r.outcomes[i] {
			n++
		}
	}
	return n
}

// Node is a residue position: a state machine over (unassigned, assigned)
// plus at most one pending alt-state projection.
type Node struct {
	ID        NodeID
	NumStates int
	// AAType maps state (1..NumStates) to a sparse amino-acid type tag in
	// 1..A, consulted by incident edges' sparse masks. Index 0 is unused.
	AAType []int

	currentState   int // 0 = unassigned
	currentOneBody float64

	history *RecentHistoryQueue
	ring    acceptRing

	incidentEdges []EdgeID

	altPending bool
	altState   int
	altOneBody float64
}

// NewNode creates a node with numStates states (1-based) and the given
// recent-history capacity.
func NewNode(id NodeID, numStates int, historySize int) *Node {
	return &Node{
		ID:        id,
		NumStates: numStates,
		AAType:    make([]int, numStates+1),
		history:   NewRecentHistoryQueue(historySize, numStates),
	}
}

// CurrentState returns the node's current state, or 0 if unassigned.
func (n *Node) CurrentState() int { return n.currentState }

// CurrentOneBody returns the one-body energy of the node's current state.
func (n *Node) CurrentOneBody() float64 { return n.currentOneBody }

// IsAssigned reports whether the node has a current state.
func (n *Node) IsAssigned() bool { return n.currentState != 0 }

// HasPendingAlt reports whether Consider has been called without a matching
// Commit or Revert.
func (n *Node) HasPendingAlt() bool { return n.altPending }

// AAOf returns the amino-acid type tag of state, or 0 if state is 0
// (unassigned) or out of range.
func (n *Node) AAOf(state int) int {
	if state <= 0 || state >= len(n.AAType) {
		return 0
	}
	return n.AAType[state]
}

// History exposes the node's recent-history queue (read-only use intended;
// mutation happens only through assign/commit).
func (n *Node) History() *RecentHistoryQueue { return n.history }

// IncidentEdges returns the ids of edges incident on this node.
func (n *Node) IncidentEdges() []EdgeID { return n.incidentEdges }

func (n *Node) addIncidentEdge(e EdgeID) {
	n.incidentEdges = append(n.incidentEdges, e)
}

// AcceptanceRate returns the fraction of the last (up to 20) commit/revert
// outcomes that were acceptances, used by the adaptive caching heuristic.
func (n *Node) AcceptanceRate() float64 {
	total, accepted := 0, 0
	for i, f := range n.ring.filled {
		if !f {
			continue
		}
		total++
		if n.ring.outcomes[i] {
			accepted++
		}
	}
	if total == 0 {
		return 1 // no history yet: assume caching pays off.
	}
	return float64(accepted) / float64(total)
}
