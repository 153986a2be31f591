// Package voxel implements a dense 3-D occupancy grid (BinGrid) and a
// builder/query layer (VDWBinChecker) on top of it.
//
// A BinGrid pre-bakes the union of a static scene's van-der-Waals exclusion
// spheres into a word-packed boolean cube, so that a later clash test for a
// moving fragment is a handful of array loads instead of an O(atoms)
// distance computation. The bit-packing follows the same word/popcount
// bookkeeping as circular.Bitmap, generalized from a circular row-major
// layout to a flat cube since BinGrid's occupancy never expires.
package voxel
