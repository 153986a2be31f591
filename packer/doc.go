// Package packer implements the linear-memory pairwise interaction graph
// (LMIG) used by simulated-annealing side-chain packing: nodes are residue
// positions, edges are residue pairs, and each edge caches a bounded window
// of recently visited rotamer-pair energies instead of the full S_i x S_j
// table, keeping total memory O(N*K) rather than O(N^2).
//
// The graph is a single-threaded, caller-serialized state machine: Consider
// must precede Commit or Revert, and at most one alt-state may be pending
// across the whole graph at a time, because an alt's delta-energy
// calculation reads peer nodes' current (not alt) state.
package packer
