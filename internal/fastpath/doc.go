// Package fastpath provides small byte-scanning helpers for fixed-width
// text formats. It is the generic-only counterpart of the teacher's
// biosimd split: pdbio's columns are scanned a handful of bytes at a
// time, far below the width where an amd64 SIMD kernel would pay for
// itself, so only the generic path is implemented here.
package fastpath
