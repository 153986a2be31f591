package pdbio

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/rosettacommons/mcore/molecule"
)

const lineWidth = 80

// Emit renders a FileData back into a PDB-formatted blob. ATOM/HETATM/TER/
// REMARK/HETNAM/LINK lines are rendered per the column layout in spec §6.1,
// using the same column constants Parse reads from; the other kept records
// are written back as stored. Re-parsing the result does not always give an
// equal FileData: atom serials are renumbered from 1, a TER line follows
// every chain (so TERCount can differ from the source), no MODEL/ENDMDL
// lines are written, and CarbohydrateBaseNames entries are not emitted.
func Emit(fd *FileData) []byte {
	var buf bytes.Buffer

	writeRaw := func(s string) {
		if s == "" {
			return
		}
		buf.WriteString(s)
		buf.WriteByte('\n')
	}
	writeRaw(fd.Header)
	for _, l := range fd.Title {
		writeRaw(l)
	}
	for _, l := range fd.Compnd {
		writeRaw(l)
	}
	for _, l := range fd.Keywds {
		writeRaw(l)
	}
	for _, l := range fd.Expdta {
		writeRaw(l)
	}
	writeRaw(fd.Cryst1)
	for _, r := range fd.Remarks {
		buf.Write(emitRemark(r))
		buf.WriteByte('\n')
	}
	for _, id := range fd.HetnamOrder {
		buf.Write(emitHetnam(id, fd.Hetnam[id]))
		buf.WriteByte('\n')
	}
	for _, l := range fd.SSBonds {
		writeRaw(l)
	}
	for _, l := range fd.ModRes {
		writeRaw(l)
	}
	for _, link := range fd.Links {
		buf.Write(emitLink(link))
		buf.WriteByte('\n')
	}

	serial := 1
	for _, ch := range fd.Chains {
		for _, res := range ch.Residues {
			for _, a := range res.Atoms {
				buf.Write(emitAtom(a, serial))
				buf.WriteByte('\n')
				serial++
			}
		}
		buf.Write(blankLine("TER"))
		buf.WriteByte('\n')
	}
	for _, l := range fd.Conect {
		writeRaw(l)
	}
	buf.Write(blankLine("END"))
	buf.WriteByte('\n')

	return buf.Bytes()
}

func blankLine(recordType string) []byte {
	line := make([]byte, lineWidth)
	for i := range line {
		line[i] = ' '
	}
	copy(line, recordType)
	return line
}

// putField writes s left-justified into the 1-based inclusive column range
// [start, end], truncating if s is too long.
func putField(line []byte, start, end int, s string) {
	lo, hi := start-1, end
	if hi > len(line) {
		hi = len(line)
	}
	width := hi - lo
	if width <= 0 {
		return
	}
	if len(s) > width {
		s = s[:width]
	}
	copy(line[lo:lo+len(s)], s)
}

// putRightField writes s right-justified into the 1-based inclusive column
// range [start, end], truncating from the left if s is too long.
func putRightField(line []byte, start, end int, s string) {
	lo, hi := start-1, end
	if hi > len(line) {
		hi = len(line)
	}
	width := hi - lo
	if width <= 0 {
		return
	}
	if len(s) > width {
		s = s[len(s)-width:]
	}
	offset := lo + (width - len(s))
	copy(line[offset:offset+len(s)], s)
}

func orSpace(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

func emitAtom(a molecule.Atom, serial int) []byte {
	recordType := "ATOM  "
	if a.Heteroatom {
		recordType = "HETATM"
	}
	line := blankLine(recordType)
	putRightField(line, colAtomSerialStart, colAtomSerialEnd, strconv.Itoa(serial))
	putField(line, colAtomNameStart, colAtomNameEnd, a.Name)
	line[colAltLoc-1] = orSpace(a.AltLoc)
	putField(line, colResNameStart, colResNameEnd, a.ResName)
	line[colChainID-1] = orSpace(a.ChainID)
	putRightField(line, colResSeqStart, colResSeqEnd, strconv.Itoa(a.ResSeq))
	line[colICode-1] = orSpace(a.ICode)
	putRightField(line, colXStart, colXEnd, fmt.Sprintf("%.3f", a.XYZ.X))
	putRightField(line, colYStart, colYEnd, fmt.Sprintf("%.3f", a.XYZ.Y))
	putRightField(line, colZStart, colZEnd, fmt.Sprintf("%.3f", a.XYZ.Z))
	putRightField(line, colOccStart, colOccEnd, fmt.Sprintf("%.2f", a.Occupancy))
	putRightField(line, colTempStart, colTempEnd, fmt.Sprintf("%.2f", a.TempFactor))
	putField(line, colElementStart, colElementEnd, a.Element)
	return line
}

func emitRemark(r RemarkEntry) []byte {
	line := blankLine("REMARK")
	putRightField(line, colRemarkNumStart, colRemarkNumEnd, strconv.Itoa(r.Number))
	putField(line, colRemarkTextStart, colRemarkTextEnd, r.Text)
	return line
}

func emitHetnam(hetID, text string) []byte {
	line := blankLine("HETNAM")
	putField(line, colHetIDStart, colHetIDEnd, hetID)
	putField(line, colHetTextStart, colHetTextEnd, text)
	return line
}

func emitLink(l LinkRecord) []byte {
	line := blankLine("LINK  ")
	putField(line, colLinkName1Start, colLinkName1End, l.Atom1)
	line[colLinkAltLoc1-1] = orSpace(l.AltLoc1)
	putField(line, colLinkResName1Start, colLinkResName1End, l.ResName1)
	line[colLinkChainID1-1] = orSpace(l.ChainID1)
	putRightField(line, colLinkResSeq1Start, colLinkResSeq1End, strconv.Itoa(l.ResSeq1))
	line[colLinkICode1-1] = orSpace(l.ICode1)

	putField(line, colLinkName2Start, colLinkName2End, l.Atom2)
	line[colLinkAltLoc2-1] = orSpace(l.AltLoc2)
	putField(line, colLinkResName2Start, colLinkResName2End, l.ResName2)
	line[colLinkChainID2-1] = orSpace(l.ChainID2)
	putRightField(line, colLinkResSeq2Start, colLinkResSeq2End, strconv.Itoa(l.ResSeq2))
	line[colLinkICode2-1] = orSpace(l.ICode2)

	putRightField(line, colLinkLengthStart, colLinkLengthEnd, fmt.Sprintf("%.2f", l.Length))
	return line
}
