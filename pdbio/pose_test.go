package pdbio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoResidueChain = "ATOM      1  N   ALA A   1      11.104  13.207  10.000  1.00 20.00           N  \n" +
	"ATOM      2  CA  ALA A   1      12.104  13.207  10.000  1.00 20.00           C  \n" +
	"ATOM      3  C   ALA A   1      13.104  13.207  10.000  1.00 20.00           C  \n" +
	"ATOM      4  O   ALA A   1      14.104  13.207  10.000  1.00 20.00           O  \n" +
	"ATOM      5  N   GLY A   2      15.104  13.207  10.000  1.00 20.00           N  \n" +
	"ATOM      6  CA  GLY A   2      16.104  13.207  10.000  1.00 20.00           C  \n" +
	"ATOM      7  C   GLY A   2      17.104  13.207  10.000  1.00 20.00           C  \n" +
	"ATOM      8  O   GLY A   2      18.104  13.207  10.000  1.00 20.00           O  "

func TestBuildPoseSelectsCandidateAndBondsSameChain(t *testing.T) {
	fd, errs := Parse([]byte(twoResidueChain), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	assert.Empty(t, perrs)
	require.Len(t, pose.Residues, 2)
	assert.Equal(t, "ALA", pose.Residues[0].Type.Name3)
	assert.Equal(t, "GLY", pose.Residues[1].Type.Name3)
	assert.False(t, pose.Residues[0].BondedToPrevious)
	assert.True(t, pose.Residues[1].BondedToPrevious)
	assert.Equal(t, 0, pose.Residues[0].ChainIndex)
	assert.Equal(t, 0, pose.Residues[1].ChainIndex)
}

func TestBuildPoseAttachesTerminusVariants(t *testing.T) {
	fd, errs := Parse([]byte(twoResidueChain), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Empty(t, perrs)
	require.Len(t, pose.Residues, 2)
	assert.Equal(t, VariantLowerTerminus, pose.Residues[0].Variant)
	assert.Equal(t, VariantUpperTerminus, pose.Residues[1].Variant)
}

func TestBuildPoseSeparatesChainsOnTER(t *testing.T) {
	blob := twoResidueChain + "\n" +
		"TER                                                                           \n" +
		"ATOM      9  N   ALA A   3      20.000  20.000  20.000  1.00 20.00           N  \n" +
		"ATOM     10  CA  ALA A   3      21.000  20.000  20.000  1.00 20.00           C  \n" +
		"ATOM     11  C   ALA A   3      22.000  20.000  20.000  1.00 20.00           C  \n" +
		"ATOM     12  O   ALA A   3      23.000  20.000  20.000  1.00 20.00           O  "
	fd, errs := Parse([]byte(blob), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Empty(t, perrs)
	require.Len(t, pose.Residues, 3)
	assert.False(t, pose.Residues[2].BondedToPrevious)
	assert.NotEqual(t, pose.Residues[1].ChainIndex, pose.Residues[2].ChainIndex)
}

func TestBuildPoseUnrecognizedResidueIsCollectedNotFatal(t *testing.T) {
	line := "ATOM      1  X1  ZZZ A   1      11.104  13.207  10.000  1.00 20.00           X  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Len(t, perrs, 1)
	_, ok := perrs[0].(*UnrecognizedResidue)
	assert.True(t, ok)
	assert.Empty(t, pose.Residues)
}

func TestBuildPoseMissingHeavyAtomsSkipsWithoutExitFlag(t *testing.T) {
	line := "ATOM      1  CA  ALA A   1      11.104  13.207  10.000  1.00 20.00           C  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Len(t, perrs, 1)
	_, ok := perrs[0].(*MissingHeavyAtoms)
	assert.True(t, ok)
	assert.Empty(t, pose.Residues)
}

func TestBuildPoseMissingHeavyAtomsFailsHardUnderExitFlag(t *testing.T) {
	line := "ATOM      1  CA  ALA A   1      11.104  13.207  10.000  1.00 20.00           C  "
	fd, errs := Parse([]byte(line), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{ExitIfMissingHeavyAtoms: true})
	assert.Nil(t, pose)
	require.Len(t, perrs, 1)
	_, ok := perrs[0].(*MissingHeavyAtoms)
	assert.True(t, ok)
}

func TestBuildPoseFillsMissingSidechainAtomFromAnchor(t *testing.T) {
	fd, errs := Parse([]byte(twoResidueChain), ParseOptions{}) // ALA has no CB here
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Empty(t, perrs)
	ala := pose.Residues[0]
	assert.Contains(t, ala.Missing, " CB ")
	_, ok := ala.XYZ(" CB ")
	assert.True(t, ok, "missing sidechain atom should be filled by the geometry pass")
}

func TestBuildPoseRenumbersWhenRequested(t *testing.T) {
	blob := "ATOM      1  N   ALA A   5      11.104  13.207  10.000  1.00 20.00           N  \n" +
		"ATOM      2  CA  ALA A   5      12.104  13.207  10.000  1.00 20.00           C  \n" +
		"ATOM      3  C   ALA A   5      13.104  13.207  10.000  1.00 20.00           C  \n" +
		"ATOM      4  O   ALA A   5      14.104  13.207  10.000  1.00 20.00           O  "
	fd, errs := Parse([]byte(blob), ParseOptions{})
	require.Empty(t, errs)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{RenumberPDBInfoBasedOnConfChains: true})
	require.Empty(t, perrs)
	assert.Equal(t, 1, pose.Residues[0].PDBResSeq)
}

func TestBuildPoseDisulfideLinkPromotesVariant(t *testing.T) {
	blob := "ATOM      1  N   CYS A   1      11.104  13.207  10.000  1.00 20.00           N  \n" +
		"ATOM      2  CA  CYS A   1      12.104  13.207  10.000  1.00 20.00           C  \n" +
		"ATOM      3  C   CYS A   1      13.104  13.207  10.000  1.00 20.00           C  \n" +
		"ATOM      4  O   CYS A   1      14.104  13.207  10.000  1.00 20.00           O  \n" +
		"ATOM      5  SG  CYS A   1      15.104  13.207  10.000  1.00 20.00           S  \n" +
		"TER                                                                           \n" +
		"ATOM      6  N   CYS B   1      20.104  23.207  10.000  1.00 20.00           N  \n" +
		"ATOM      7  CA  CYS B   1      21.104  23.207  10.000  1.00 20.00           C  \n" +
		"ATOM      8  C   CYS B   1      22.104  23.207  10.000  1.00 20.00           C  \n" +
		"ATOM      9  O   CYS B   1      23.104  23.207  10.000  1.00 20.00           O  \n" +
		"ATOM     10  SG  CYS B   1      24.104  23.207  10.000  1.00 20.00           S  \n" +
		"LINK         SG  CYS A   1                 SG  CYS B   1                  2.05    \n"
	fd, errs := Parse([]byte(blob), ParseOptions{})
	require.Empty(t, errs)
	require.Len(t, fd.Links, 1)

	pose, perrs := BuildPose(fd, DefaultResidueTypeSet(), BuildOptions{})
	require.Empty(t, perrs)
	require.Len(t, pose.Bonds, 1)
	assert.True(t, pose.Bonds[0].Disulfide)
	for _, r := range pose.Residues {
		assert.Equal(t, VariantDisulfide, r.Variant)
	}
}
