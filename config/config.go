// Package config implements the YAML config file parser
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/openproteomics/pepdb/config/logger"
	"github.com/openproteomics/pepdb/partition"
	"github.com/openproteomics/pepdb/proteomics/enzyme"
	"github.com/openproteomics/pepdb/proteomics/mass"
)

const (
	// DefaultBatchTimeout bounds a single partition batch write. A slow
	// partition must not stall the whole run beyond its retry budget.
	DefaultBatchTimeout = time.Minute

	// DefaultStatsInterval is the default interval for progress logging
	DefaultStatsInterval = 30 * time.Second
)

// Config is the config root object
type Config struct {
	Enzyme          Enzyme         `yaml:"enzyme"`
	Modifications   []Modification `yaml:"modifications"`
	EqualizeLeucine bool           `yaml:"equalize_leucine"` // store I/L as J

	Workers      int           `yaml:"workers"`
	BatchSize    int           `yaml:"batch_size"` // peptides per partition batch
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	Retry        Retry         `yaml:"retry"`
	Partitions   int           `yaml:"partitions"`

	Store  Store         `yaml:"store"`
	Report Report        `yaml:"report"`
	HTTP   HTTP          `yaml:"http"`
	Log    logger.Config `yaml:"log"`

	StatsInterval time.Duration `yaml:"stats_interval"`

	// Set to current version by main
	Version string `yaml:"-"`
}

// Enzyme configures the digestion
type Enzyme struct {
	Name               string `yaml:"name"`
	MaxMissedCleavages int    `yaml:"max_missed_cleavages"`
	MinPeptideLength   int    `yaml:"min_peptide_length"`
	MaxPeptideLength   int    `yaml:"max_peptide_length"`
}

// Modification is a static mass delta applied during mass computation
type Modification struct {
	Residue      string  `yaml:"residue"`  // one letter code, may be empty for terminus mods
	Position     string  `yaml:"position"` // anywhere (default), n_terminus, c_terminus
	MonoDelta    float64 `yaml:"mono_delta"`    // Dalton
	AverageDelta float64 `yaml:"average_delta"` // Dalton
}

// Retry bounds the exponential backoff for transient store failures
type Retry struct {
	MinInterval time.Duration `yaml:"min_interval"`
	MaxInterval time.Duration `yaml:"max_interval"`
	Attempts    int           `yaml:"attempts"`
}

// Store selects and configures the peptide store backend
type Store struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

// Report selects the simpleblob backend that receives run reports and the
// unprocessable protein log
type Report struct {
	Type    string                 `yaml:"type"`
	Options map[string]interface{} `yaml:"options"`
}

// HTTP configures the HTTP server with Prometheus metrics and status page
type HTTP struct {
	Address string `yaml:"address"` // Address like ":8000"
}

// Check validates a Config instance
func (c Config) Check() error {
	if err := c.Log.Check(); err != nil {
		return err
	}
	if _, err := enzyme.ByName(c.Enzyme.Name); err != nil {
		return fmt.Errorf("enzyme.name: %v", err)
	}
	if c.Enzyme.MaxMissedCleavages < 0 {
		return fmt.Errorf("enzyme.max_missed_cleavages: must not be negative")
	}
	if c.Enzyme.MinPeptideLength < 1 {
		return fmt.Errorf("enzyme.min_peptide_length: must be at least 1")
	}
	if c.Enzyme.MaxPeptideLength < c.Enzyme.MinPeptideLength {
		return fmt.Errorf("enzyme.max_peptide_length: must not be below enzyme.min_peptide_length")
	}
	for i, m := range c.Modifications {
		if _, err := m.toMass(); err != nil {
			return fmt.Errorf("modifications[%d]: %v", i, err)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers: must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size: must be at least 1")
	}
	if c.BatchTimeout < time.Second {
		return fmt.Errorf("batch_timeout: too short timeout")
	}
	if c.Partitions < 1 {
		return fmt.Errorf("partitions: must be at least 1")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts: must be at least 1")
	}
	if c.Retry.MinInterval <= 0 || c.Retry.MaxInterval < c.Retry.MinInterval {
		return fmt.Errorf("retry: min_interval must be positive and max_interval at least min_interval")
	}
	if c.Store.Type == "" {
		return fmt.Errorf("store.type: no store backend configured")
	}
	if c.HTTP.Address != "" {
		if _, _, err := net.SplitHostPort(c.HTTP.Address); err != nil {
			return fmt.Errorf("http.address: %v", err)
		}
	}
	if c.StatsInterval < time.Second {
		return fmt.Errorf("stats_interval: too short interval")
	}
	return nil
}

// Digester builds the digestion engine described by the config.
// Check must have passed.
func (c Config) Digester() (*enzyme.Digester, error) {
	rule, err := enzyme.ByName(c.Enzyme.Name)
	if err != nil {
		return nil, err
	}
	return &enzyme.Digester{
		Rule:               rule,
		MaxMissedCleavages: c.Enzyme.MaxMissedCleavages,
		MinLength:          c.Enzyme.MinPeptideLength,
		MaxLength:          c.Enzyme.MaxPeptideLength,
		EqualizeLeucine:    c.EqualizeLeucine,
	}, nil
}

// MassCalculator builds the mass calculator with the configured static
// modifications.
func (c Config) MassCalculator() (*mass.Calculator, error) {
	mods := make([]mass.Modification, 0, len(c.Modifications))
	for i, m := range c.Modifications {
		mm, err := m.toMass()
		if err != nil {
			return nil, fmt.Errorf("modifications[%d]: %v", i, err)
		}
		mods = append(mods, mm)
	}
	return mass.NewCalculator(mods), nil
}

// PartitionTable builds the immutable boundary table for the configured
// partition count and peptide length range.
func (c Config) PartitionTable() partition.Table {
	return partition.Bootstrap(c.Partitions, c.Enzyme.MinPeptideLength, c.Enzyme.MaxPeptideLength)
}

func (m Modification) toMass() (mass.Modification, error) {
	out := mass.Modification{
		Mono:    mass.ToMass(m.MonoDelta),
		Average: mass.ToMass(m.AverageDelta),
	}
	switch m.Position {
	case "", "anywhere":
		out.Position = mass.PositionAnywhere
		if len(m.Residue) != 1 {
			return out, fmt.Errorf("residue: need exactly one letter code, got %q", m.Residue)
		}
	case "n_terminus":
		out.Position = mass.PositionNTerm
	case "c_terminus":
		out.Position = mass.PositionCTerm
	default:
		return out, fmt.Errorf("position: unknown position %q", m.Position)
	}
	if m.Residue != "" {
		if len(m.Residue) != 1 || !mass.KnownResidue(m.Residue[0]) {
			return out, fmt.Errorf("residue: unknown residue %q", m.Residue)
		}
		out.Residue = m.Residue[0]
	}
	return out, nil
}

// String returns the config as a YAML string.
func (c Config) String() string {
	y, err := yaml.Marshal(c)
	if err != nil {
		logrus.Panicf("YAML marshal of config failed: %v", err) // Should never happen
	}
	return string(y)
}

// LoadYAML loads config from YAML. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAML(yamlContents []byte, expandEnv bool) error {
	if expandEnv {
		yamlContents = []byte(os.ExpandEnv(string(yamlContents)))
	}
	return yaml.UnmarshalStrict(yamlContents, c)
}

// LoadYAMLFile loads config from a YAML file. Any set value overwrites any existing value,
// but omitted keys are untouched.
func (c *Config) LoadYAMLFile(fpath string, expandEnv bool) error {
	contents, err := os.ReadFile(fpath)
	if err != nil {
		return errors.Wrap(err, "open yaml file")
	}
	return c.LoadYAML(contents, expandEnv)
}

// Default returns a Config with default settings
func Default() Config {
	return Config{
		Enzyme: Enzyme{
			Name:               "trypsin",
			MaxMissedCleavages: 2,
			MinPeptideLength:   5,
			MaxPeptideLength:   60,
		},
		Workers:       8,
		BatchSize:     1000,
		BatchTimeout:  DefaultBatchTimeout,
		Partitions:    100,
		Retry: Retry{
			MinInterval: 500 * time.Millisecond,
			MaxInterval: 30 * time.Second,
			Attempts:    5,
		},
		Store:         Store{Type: "memory"},
		Report:        Report{Type: "memory"},
		Log:           logger.DefaultConfig,
		StatsInterval: DefaultStatsInterval,
	}
}
