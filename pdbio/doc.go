// Package pdbio parses and emits the Protein Data Bank fixed-width text
// format, and assembles parsed records into an in-memory Pose against a
// caller-supplied ResidueTypeSet.
//
// Emit writes a FileData back out as PDB text that Parse reads again. The
// round trip is not byte-for-byte and not complete: atom serials are
// renumbered, a TER line follows every chain, and MODEL/ENDMDL, SEQRES and
// carbohydrate HETNAM records are not written (see Emit).
package pdbio
