package pdbio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s6Line = "ATOM      1  N   ALA A   1      11.104  13.207  10.000  1.00 20.00           N  "

// TestScenarioS6ParseMinimalRecord is spec's exact minimal-record example.
func TestScenarioS6ParseMinimalRecord(t *testing.T) {
	fd, errs := Parse([]byte(s6Line), ParseOptions{})
	require.Empty(t, errs)
	require.Len(t, fd.Chains, 1)
	require.Len(t, fd.Chains[0].Residues, 1)

	res := fd.Chains[0].Residues[0]
	require.Len(t, res.Atoms, 1)
	a := res.Atoms[0]

	assert.Equal(t, " N  ", a.Name)
	assert.Equal(t, "ALA", a.ResName)
	assert.Equal(t, byte('A'), a.ChainID)
	assert.Equal(t, 1, a.ResSeq)
	assert.InDelta(t, 11.104, a.XYZ.X, 1e-9)
	assert.InDelta(t, 13.207, a.XYZ.Y, 1e-9)
	assert.InDelta(t, 10.000, a.XYZ.Z, 1e-9)
	assert.InDelta(t, 1.00, a.Occupancy, 1e-9)
	assert.InDelta(t, 20.00, a.TempFactor, 1e-9)
	assert.Equal(t, " N", a.Element)
}

// TestScenarioS6EmitRoundTrip checks the byte-exact re-emit of the minimal
// record, modulo trailing spaces.
func TestScenarioS6EmitRoundTrip(t *testing.T) {
	fd, errs := Parse([]byte(s6Line), ParseOptions{})
	require.Empty(t, errs)

	out := Emit(fd)
	lines := splitLines(out)
	require.NotEmpty(t, lines)

	var atomLine string
	for _, l := range lines {
		if Classify(l) == RecordAtom {
			atomLine = string(l)
			break
		}
	}
	require.NotEmpty(t, atomLine)
	assert.Equal(t, s6Line, trimTrailingSpace(atomLine))
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

func TestParseNonNumericCoordinateSetsOccupancyOverride(t *testing.T) {
	line := "ATOM      1  N   ALA A   1         nan     nan     nan  1.00 20.00           N  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)
	a := fd.Chains[0].Residues[0].Atoms[0]
	assert.True(t, a.OccupancyOverride)
	assert.Equal(t, 0.0, a.XYZ.X)
}

func TestParseMissingOccupancyDefaultsToOne(t *testing.T) {
	line := "ATOM      1  N   ALA A   1      11.104  13.207  10.000                       N  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)
	a := fd.Chains[0].Residues[0].Atoms[0]
	assert.Equal(t, 1.0, a.Occupancy)
}

func TestParseTERIncrementsCounterAndSplitsResidues(t *testing.T) {
	blob := s6Line + "\n" +
		"TER                                                                           \n" +
		"ATOM      2  N   GLY A   1      12.000  14.000  11.000  1.00 20.00           N  "
	fd, errs := Parse([]byte(blob), ParseOptions{})
	require.Empty(t, errs)
	require.Len(t, fd.Chains, 1)
	require.Len(t, fd.Chains[0].Residues, 2)
	assert.Equal(t, 0, fd.Chains[0].Residues[0].Key.TERCount)
	assert.Equal(t, 1, fd.Chains[0].Residues[1].Key.TERCount)
}

func TestParseBlankChainIDIsPreservedLiterally(t *testing.T) {
	line := "ATOM      1  N   ALA     1      11.104  13.207  10.000  1.00 20.00           N  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)
	require.Len(t, fd.Chains, 1)
	assert.Equal(t, " ", fd.Chains[0].ID)
}

func TestParseSkipsMalformedAtomLine(t *testing.T) {
	line := "ATOM      X  N   ALA A   1      11.104  13.207  10.000  1.00 20.00           N  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Len(t, errs, 1)
	assert.Empty(t, fd.Chains)
}

func TestParseHetnamConcatenatesContinuations(t *testing.T) {
	blob := "HETNAM     HEM PROTOPORPHYRIN IX CONTAINING FE                                \n" +
		"HETNAM  2  HEM PART TWO                                                       "
	fd, errs := Parse([]byte(blob), ParseOptions{})
	require.Empty(t, errs)
	assert.Contains(t, fd.Hetnam["HEM"], "PROTOPORPHYRIN")
	assert.Contains(t, fd.Hetnam["HEM"], "PART TWO")
}

func TestParseStopAtENDMDLOption(t *testing.T) {
	blob := "MODEL        1                                                                 \n" +
		s6Line + "\n" +
		"ENDMDL                                                                         \n" +
		"ATOM      2  N   GLY A   1      12.000  14.000  11.000  1.00 20.00           N  "
	fd, errs := Parse([]byte(blob), ParseOptions{StopAtENDMDL: true})
	require.Empty(t, errs)
	require.Len(t, fd.Chains, 1)
	require.Len(t, fd.Chains[0].Residues, 1)
}
