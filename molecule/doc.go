// Package molecule defines the atom- and residue-level record types shared
// by the voxel clash checker and the PDB record stream. It has no parsing or
// I/O logic of its own.
package molecule
