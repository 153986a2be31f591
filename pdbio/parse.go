package pdbio

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"github.com/rosettacommons/mcore/geom"
	"github.com/rosettacommons/mcore/internal/fastpath"
	"github.com/rosettacommons/mcore/molecule"
)

// ParseOptions configures Parse (spec §4.7).
type ParseOptions struct {
	// NewChainOrder remaps chain ids seen in models after the first
	// through an A-Z0-9 alphabet, one letter per model. Fatal (via
	// log.Panicf, a ContractViolation) past the 8th model.
	NewChainOrder bool
	// StopAtENDMDL makes Parse stop reading at the first ENDMDL record,
	// rather than continuing into subsequent models.
	StopAtENDMDL bool
}

const chainRemapAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const maxRemapModels = 8

// splitLines splits blob on LF or CR(LF), dropping empty lines, per spec
// §4.7 step 1.
func splitLines(blob []byte) [][]byte {
	normalized := bytes.ReplaceAll(blob, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
	raw := bytes.Split(normalized, []byte("\n"))
	lines := make([][]byte, 0, len(raw))
	for _, l := range raw {
		if len(l) == 0 {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

type residueAccumulator struct {
	key     molecule.ResidueKey
	chainID string
	atoms   []molecule.Atom
}

// Parse turns a PDB-formatted blob into a FileData. Malformed records are
// skipped and reported in the returned error slice (spec §7's per-line
// recovery policy); a nil/empty slice means every record parsed cleanly.
func Parse(blob []byte, opts ParseOptions) (*FileData, []error) {
	fd := newFileData()
	var errs []error

	terCount := 0
	model := 1
	modelsSeenForRemap := 0
	remapIdx := make(map[byte]int)
	stopped := false

	var pending *residueAccumulator
	flush := func() {
		if pending == nil {
			return
		}
		res := molecule.NewResidue(pending.key, pending.atoms)
		ch := fd.chainByID(pending.chainID)
		ch.Residues = append(ch.Residues, res)
		pending = nil
	}

	for i, raw := range splitLines(blob) {
		if stopped {
			break
		}
		lineNo := i + 1
		switch Classify(raw) {
		case RecordModel:
			modelsSeenForRemap++
			if modelsSeenForRemap > 1 {
				model++
			}
			if opts.NewChainOrder && modelsSeenForRemap > maxRemapModels {
				log.Panicf("pdbio: chain-id remap overflow: model %d exceeds the %d-model limit (contract violation)",
					modelsSeenForRemap, maxRemapModels)
			}
		case RecordAtom, RecordHetatm:
			atom, chainByte, err := parseAtomLine(raw, Classify(raw) == RecordHetatm, terCount)
			if err != nil {
				errs = append(errs, &ParseError{LineNo: lineNo, Kind: err.Error()})
				continue
			}
			if opts.NewChainOrder && model > 1 {
				chainByte = remapChainByte(remapIdx, chainByte, model)
			}
			key := molecule.ResidueKey{ResSeq: atom.ResSeq, ICode: atom.ICode, ChainID: chainByte, TERCount: terCount}
			if pending == nil || pending.key != key {
				flush()
				pending = &residueAccumulator{key: key, chainID: string(chainByte)}
			}
			pending.atoms = append(pending.atoms, atom)
		case RecordTer:
			flush()
			terCount++
		case RecordEndmdl:
			if opts.StopAtENDMDL {
				stopped = true
			}
		case RecordRemark:
			num, text := parseRemarkLine(raw)
			fd.Remarks = append(fd.Remarks, RemarkEntry{Number: num, Text: text})
		case RecordHetnam:
			hetID, text := parseHetnamLine(raw)
			if isCarbohydrateHetID(hetID) {
				if key, baseName, ok := parseCarbohydratePosition(text); ok {
					fd.CarbohydrateBaseNames[key] = baseName
				}
				continue
			}
			if _, ok := fd.Hetnam[hetID]; !ok {
				fd.HetnamOrder = append(fd.HetnamOrder, hetID)
			}
			fd.Hetnam[hetID] += text
		case RecordLink:
			link, err := parseLinkLine(raw)
			if err != nil {
				errs = append(errs, &ParseError{LineNo: lineNo, Kind: err.Error()})
				continue
			}
			fd.Links = append(fd.Links, link)
		case RecordHeader:
			fd.Header = rawTrimRight(raw)
		case RecordTitle:
			fd.Title = append(fd.Title, rawTrimRight(raw))
		case RecordCompnd:
			fd.Compnd = append(fd.Compnd, rawTrimRight(raw))
		case RecordKeywds:
			fd.Keywds = append(fd.Keywds, rawTrimRight(raw))
		case RecordExpdta:
			fd.Expdta = append(fd.Expdta, rawTrimRight(raw))
		case RecordCryst1:
			fd.Cryst1 = rawTrimRight(raw)
		case RecordSsbond:
			fd.SSBonds = append(fd.SSBonds, rawTrimRight(raw))
		case RecordModres:
			fd.ModRes = append(fd.ModRes, rawTrimRight(raw))
		case RecordConect:
			fd.Conect = append(fd.Conect, rawTrimRight(raw))
		case RecordEnd:
			// no fields; presence alone is significant for Emit.
		default:
			// RecordSeqres and RecordUnknown: not consulted by any
			// component; dropped rather than kept, per spec step 1
			// ("drop empty lines") generalized to drop lines this module
			// has no use for. SEQRES content does not feed BuildPose
			// here (residue identity comes from ATOM/HETATM records).
		}
	}
	flush()

	fd.ModelCount = model
	markBranchChains(fd)
	return fd, errs
}

func rawTrimRight(line []byte) string {
	return strings.TrimRight(string(line), " ")
}

func remapChainByte(remapIdx map[byte]int, orig byte, model int) byte {
	idx, ok := remapIdx[orig]
	if !ok {
		idx = len(remapIdx)
		remapIdx[orig] = idx
	}
	pos := idx
	if pos >= len(chainRemapAlphabet) {
		pos = len(chainRemapAlphabet) - 1
	}
	return chainRemapAlphabet[pos]
}

func firstByteOrSpace(b []byte) byte {
	if len(b) == 0 {
		return ' '
	}
	return b[0]
}

func parseFloatField(b []byte) (float64, bool) {
	trimmed := fastpath.TrimFixedWidth(b)
	if len(trimmed) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(trimmed), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseAtomLine(raw []byte, hetero bool, terCount int) (molecule.Atom, byte, error) {
	serialField := fastpath.TrimFixedWidth(fastpath.Column(raw, colAtomSerialStart, colAtomSerialEnd))
	serial, err := strconv.Atoi(string(serialField))
	if err != nil {
		return molecule.Atom{}, 0, errors.Wrap(err, "bad atom serial")
	}

	name := string(fastpath.Column(raw, colAtomNameStart, colAtomNameEnd))
	altLoc := firstByteOrSpace(fastpath.Column(raw, colAltLoc, colAltLoc))
	resName := string(fastpath.TrimFixedWidth(fastpath.Column(raw, colResNameStart, colResNameEnd)))
	chainID := firstByteOrSpace(fastpath.Column(raw, colChainID, colChainID))

	resSeqField := fastpath.TrimFixedWidth(fastpath.Column(raw, colResSeqStart, colResSeqEnd))
	resSeq, err := strconv.Atoi(string(resSeqField))
	if err != nil {
		return molecule.Atom{}, 0, errors.Wrap(err, "bad resSeq")
	}
	iCode := firstByteOrSpace(fastpath.Column(raw, colICode, colICode))

	x, xOK := parseFloatField(fastpath.Column(raw, colXStart, colXEnd))
	y, yOK := parseFloatField(fastpath.Column(raw, colYStart, colYEnd))
	z, zOK := parseFloatField(fastpath.Column(raw, colZStart, colZEnd))
	occOverride := !(xOK && yOK && zOK)

	occ := 1.0
	if occField := fastpath.TrimFixedWidth(fastpath.Column(raw, colOccStart, colOccEnd)); len(occField) > 0 {
		if v, err := strconv.ParseFloat(string(occField), 64); err == nil {
			occ = v
		}
	}
	var temp float64
	if tempField := fastpath.TrimFixedWidth(fastpath.Column(raw, colTempStart, colTempEnd)); len(tempField) > 0 {
		temp, _ = strconv.ParseFloat(string(tempField), 64)
	}
	element := string(fastpath.Column(raw, colElementStart, colElementEnd))

	atom := molecule.Atom{
		Heteroatom:        hetero,
		Serial:            serial,
		Name:              name,
		AltLoc:            altLoc,
		ResName:           resName,
		ChainID:           chainID,
		ResSeq:            resSeq,
		ICode:             iCode,
		XYZ:               geom.Vec3{X: x, Y: y, Z: z},
		Occupancy:         occ,
		TempFactor:        temp,
		Element:           element,
		TERCount:          terCount,
		OccupancyOverride: occOverride,
	}
	return atom, chainID, nil
}

func parseRemarkLine(raw []byte) (int, string) {
	numField := fastpath.TrimFixedWidth(fastpath.Column(raw, colRemarkNumStart, colRemarkNumEnd))
	num, _ := strconv.Atoi(string(numField))
	text := string(fastpath.Column(raw, colRemarkTextStart, colRemarkTextEnd))
	return num, text
}

func parseHetnamLine(raw []byte) (hetID string, text string) {
	hetID = string(fastpath.TrimFixedWidth(fastpath.Column(raw, colHetIDStart, colHetIDEnd)))
	text = strings.TrimRight(string(fastpath.Column(raw, colHetTextStart, colHetTextEnd)), " ")
	return hetID, text
}

func parseLinkLine(raw []byte) (LinkRecord, error) {
	resSeq1Field := fastpath.TrimFixedWidth(fastpath.Column(raw, colLinkResSeq1Start, colLinkResSeq1End))
	resSeq1, err := strconv.Atoi(string(resSeq1Field))
	if err != nil {
		return LinkRecord{}, errors.Wrap(err, "bad LINK resSeq1")
	}
	resSeq2Field := fastpath.TrimFixedWidth(fastpath.Column(raw, colLinkResSeq2Start, colLinkResSeq2End))
	resSeq2, err := strconv.Atoi(string(resSeq2Field))
	if err != nil {
		return LinkRecord{}, errors.Wrap(err, "bad LINK resSeq2")
	}
	length, _ := parseFloatField(fastpath.Column(raw, colLinkLengthStart, colLinkLengthEnd))

	return LinkRecord{
		Atom1:    string(fastpath.Column(raw, colLinkName1Start, colLinkName1End)),
		AltLoc1:  firstByteOrSpace(fastpath.Column(raw, colLinkAltLoc1, colLinkAltLoc1)),
		ResName1: string(fastpath.TrimFixedWidth(fastpath.Column(raw, colLinkResName1Start, colLinkResName1End))),
		ChainID1: firstByteOrSpace(fastpath.Column(raw, colLinkChainID1, colLinkChainID1)),
		ResSeq1:  resSeq1,
		ICode1:   firstByteOrSpace(fastpath.Column(raw, colLinkICode1, colLinkICode1)),

		Atom2:    string(fastpath.Column(raw, colLinkName2Start, colLinkName2End)),
		AltLoc2:  firstByteOrSpace(fastpath.Column(raw, colLinkAltLoc2, colLinkAltLoc2)),
		ResName2: string(fastpath.TrimFixedWidth(fastpath.Column(raw, colLinkResName2Start, colLinkResName2End))),
		ChainID2: firstByteOrSpace(fastpath.Column(raw, colLinkChainID2, colLinkChainID2)),
		ResSeq2:  resSeq2,
		ICode2:   firstByteOrSpace(fastpath.Column(raw, colLinkICode2, colLinkICode2)),

		Length: length,
	}, nil
}
