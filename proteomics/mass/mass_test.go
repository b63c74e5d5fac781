package mass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMass(t *testing.T) {
	assert.Equal(t, Mass(1_000_000_000), ToMass(1.0))
	assert.Equal(t, Mass(18_010_564_700), WaterMono)
	assert.InDelta(t, 18.0105647, WaterMono.Dalton(), 1e-9)
}

func TestSequenceMass(t *testing.T) {
	c := NewCalculator(nil)

	// Single glycine: residue plus water
	mono, avg, err := c.SequenceMass("G")
	require.NoError(t, err)
	assert.Equal(t, ToMass(57.021463735)+WaterMono, mono)
	assert.Equal(t, ToMass(57.0519)+WaterAverage, avg)

	// Empty sequence is just water
	mono, _, err = c.SequenceMass("")
	require.NoError(t, err)
	assert.Equal(t, WaterMono, mono)
}

func TestSequenceMassDeterministic(t *testing.T) {
	c := NewCalculator(nil)
	const seq = "PEPTIDEKRSTVWYALG"
	first, firstAvg, err := c.SequenceMass(seq)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		mono, avg, err := c.SequenceMass(seq)
		require.NoError(t, err)
		assert.Equal(t, first, mono)
		assert.Equal(t, firstAvg, avg)
	}
}

func TestSequenceMassUnknownResidue(t *testing.T) {
	c := NewCalculator(nil)
	_, _, err := c.SequenceMass("PEXPTIDE")
	require.Error(t, err)
	var unknownErr *ErrUnknownResidue
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, byte('X'), unknownErr.Residue)
	assert.Equal(t, 2, unknownErr.Offset)

	// B and Z have no table entry either, they must be expanded upstream
	_, _, err = c.SequenceMass("PEBTIDE")
	assert.Error(t, err)
}

func TestStaticModifications(t *testing.T) {
	// Carbamidomethylation of cysteine, the usual fixed modification
	c := NewCalculator([]Modification{
		{Residue: 'C', Position: PositionAnywhere, Mono: ToMass(57.021464), Average: ToMass(57.0513)},
	})
	plain := NewCalculator(nil)

	withMod, _, err := c.SequenceMass("ACCK")
	aRequire := require.New(t)
	aRequire.NoError(err)
	without, _, err := plain.SequenceMass("ACCK")
	aRequire.NoError(err)
	assert.Equal(t, without+2*ToMass(57.021464), withMod)
}

func TestTerminusModifications(t *testing.T) {
	c := NewCalculator([]Modification{
		{Position: PositionNTerm, Mono: ToMass(1.0), Average: ToMass(1.0)},
		{Residue: 'K', Position: PositionCTerm, Mono: ToMass(2.0), Average: ToMass(2.0)},
	})
	plain := NewCalculator(nil)

	withMod, _, err := c.SequenceMass("PEPTIDEK")
	require.NoError(t, err)
	without, _, err := plain.SequenceMass("PEPTIDEK")
	require.NoError(t, err)
	// N-term always applies, C-term only because the sequence ends in K
	assert.Equal(t, without+ToMass(1.0)+ToMass(2.0), withMod)

	withMod, _, err = c.SequenceMass("PEPTIDER")
	require.NoError(t, err)
	without, _, err = plain.SequenceMass("PEPTIDER")
	require.NoError(t, err)
	assert.Equal(t, without+ToMass(1.0), withMod)
}

func TestResidueTable(t *testing.T) {
	assert.True(t, KnownResidue('A'))
	assert.True(t, KnownResidue('J'))
	assert.False(t, KnownResidue('X'))
	assert.False(t, KnownResidue('B'))
	assert.Equal(t, byte('O'), Heaviest().Code)
	assert.Equal(t, byte('G'), Lightest().Code)

	// I, L and J are isobaric
	assert.Equal(t, Lookup('I').Mono, Lookup('L').Mono)
	assert.Equal(t, Lookup('I').Mono, Lookup('J').Mono)
}
