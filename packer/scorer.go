package packer

// Scorer computes one-body and rotamer-pair energies for the packer graph.
// Implementations are externally owned (e.g. backed by a real score
// function and rotamer library) and are captured by the graph as a
// non-owning reference at construction time, per spec §9's replacement for
// shared-ownership singletons.
type Scorer interface {
	// OneBody returns the one-body energy of node in the given state.
	OneBody(node NodeID, state int) float64
	// Pair returns the pairwise energy between nodeA in stateA and nodeB in
	// stateB. Implementations need not be symmetric in argument order, but
	// in practice almost always are.
	Pair(nodeA NodeID, stateA int, nodeB NodeID, stateB int) float64
}
