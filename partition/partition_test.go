package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openproteomics/pepdb/proteomics/mass"
)

func TestRouteBoundaryTieBreak(t *testing.T) {
	table := Table{
		{Lower: 0, Upper: 100},
		{Lower: 100, Upper: 200},
		{Lower: 200, Upper: 300},
	}

	// A mass exactly on a boundary routes to the partition that starts
	// there, never the one that ends there.
	idx, err := table.Route(100)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = table.Route(99)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = table.Route(200)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = table.Route(0)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestRouteOutsideTable(t *testing.T) {
	table := Table{{Lower: 100, Upper: 200}}

	_, err := table.Route(99)
	var noPart *ErrNoPartition
	require.ErrorAs(t, err, &noPart)
	assert.Equal(t, mass.Mass(99), noPart.Mass)

	_, err = table.Route(200)
	assert.ErrorAs(t, err, &noPart)
}

func TestRouteStable(t *testing.T) {
	table := Bootstrap(100, 5, 60)
	c := mass.NewCalculator(nil)
	mono, _, err := c.SequenceMass("PEPTIDEK")
	require.NoError(t, err)

	first, err := table.Route(mono)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Bootstrap(100, 5, 60).Route(mono)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestValidate(t *testing.T) {
	table := Table{
		{Lower: 0, Upper: 100},
		{Lower: 100, Upper: 200},
	}
	assert.NoError(t, table.Validate(0, 199))
	assert.Error(t, table.Validate(0, 200), "upper bound is exclusive")
	assert.Error(t, table.Validate(0, 500))

	gappy := Table{
		{Lower: 0, Upper: 100},
		{Lower: 150, Upper: 200},
	}
	assert.Error(t, gappy.Validate(0, 199))

	assert.Error(t, Table{}.Validate(0, 1))
	assert.Error(t, Table{{Lower: 10, Upper: 10}}.Validate(10, 10))
}

func TestBootstrap(t *testing.T) {
	for _, count := range []int{1, 4, 100} {
		table := Bootstrap(count, 5, 60)
		assert.Len(t, table, count)
		require.NoError(t, table.Validate(Lowest(5), Highest(60)))

		// Every possible extreme routes somewhere
		_, err := table.Route(Lowest(5))
		assert.NoError(t, err)
		_, err = table.Route(Highest(60))
		assert.NoError(t, err)
	}
}
