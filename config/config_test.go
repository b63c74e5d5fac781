package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openproteomics/pepdb/proteomics/mass"
)

func TestDefault_Check(t *testing.T) {
	c := Default()
	assert.NoError(t, c.Check())
}

func TestConfig_LoadYAML(t *testing.T) {
	yamlText := `
enzyme:
  name: Trypsin
  max_missed_cleavages: 3
  min_peptide_length: 6
  max_peptide_length: 50
modifications:
  - residue: C
    mono_delta: 57.021464
    average_delta: 57.0513
equalize_leucine: true
workers: 4
batch_size: 500
partitions: 10
retry:
  min_interval: 1s
  max_interval: 10s
  attempts: 3
store:
  type: memory
http:
  address: ":8000"
`
	c := Default()
	require.NoError(t, c.LoadYAML([]byte(yamlText), false))
	require.NoError(t, c.Check())

	assert.Equal(t, "Trypsin", c.Enzyme.Name)
	assert.Equal(t, 3, c.Enzyme.MaxMissedCleavages)
	assert.True(t, c.EqualizeLeucine)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, time.Second, c.Retry.MinInterval)
	// Defaults survive a partial load
	assert.Equal(t, DefaultBatchTimeout, c.BatchTimeout)
	assert.Equal(t, DefaultStatsInterval, c.StatsInterval)
}

func TestConfig_LoadYAML_UnknownKey(t *testing.T) {
	c := Default()
	err := c.LoadYAML([]byte("no_such_key: 42\n"), false)
	assert.Error(t, err)
}

func TestConfig_LoadYAML_ExpandEnv(t *testing.T) {
	t.Setenv("PEPDB_TEST_WORKERS", "3")
	c := Default()
	require.NoError(t, c.LoadYAML([]byte("workers: ${PEPDB_TEST_WORKERS}\n"), true))
	assert.Equal(t, 3, c.Workers)
}

func TestConfig_Check_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown enzyme", func(c *Config) { c.Enzyme.Name = "pepsinogen" }},
		{"negative missed cleavages", func(c *Config) { c.Enzyme.MaxMissedCleavages = -1 }},
		{"inverted length range", func(c *Config) { c.Enzyme.MaxPeptideLength = c.Enzyme.MinPeptideLength - 1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero partitions", func(c *Config) { c.Partitions = 0 }},
		{"no store", func(c *Config) { c.Store.Type = "" }},
		{"bad mod residue", func(c *Config) {
			c.Modifications = []Modification{{Residue: "XX", MonoDelta: 1, AverageDelta: 1}}
		}},
		{"bad mod position", func(c *Config) {
			c.Modifications = []Modification{{Residue: "C", Position: "sideways", MonoDelta: 1, AverageDelta: 1}}
		}},
		{"bad http address", func(c *Config) { c.HTTP.Address = "8000" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			assert.Error(t, c.Check())
		})
	}
}

func TestConfig_Digester(t *testing.T) {
	c := Default()
	d, err := c.Digester()
	require.NoError(t, err)
	assert.Equal(t, 2, d.MaxMissedCleavages)
	assert.Equal(t, "trypsin", d.Rule.Name)
}

func TestConfig_MassCalculator(t *testing.T) {
	c := Default()
	c.Modifications = []Modification{
		{Residue: "C", MonoDelta: 57.021464, AverageDelta: 57.0513},
	}
	calc, err := c.MassCalculator()
	require.NoError(t, err)

	plain := mass.NewCalculator(nil)
	mono, _, err := calc.SequenceMass("C")
	require.NoError(t, err)
	base, _, err := plain.SequenceMass("C")
	require.NoError(t, err)
	assert.Equal(t, mass.ToMass(57.021464), mono-base)
}

func TestConfig_PartitionTable(t *testing.T) {
	c := Default()
	table := c.PartitionTable()
	assert.Len(t, table, c.Partitions)
	assert.NoError(t, table.Validate(
		mass.Lightest().Mono*mass.Mass(c.Enzyme.MinPeptideLength)+mass.WaterMono,
		mass.Heaviest().Mono*mass.Mass(c.Enzyme.MaxPeptideLength)+mass.WaterMono,
	))
}
