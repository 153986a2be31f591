// Package geom contains the small set of 3-D vector and rigid-superposition
// routines shared by voxel and pdbio. It intentionally knows nothing about
// PDB records, rotamers, or voxel grids.
package geom
