package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Altius/stampipes/programs/kmer_match/kmerindex"
	"gopkg.in/yaml.v3"
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is a specification of barcode -> output files
type Config struct {
	Inputs       []string          `json:"inputs" yaml:"inputs"`             // A list of file strings
	Destinations map[string]string `json:"destinations" yaml:"destinations"` // Map of barcode sequences to output filenames
	Whitelist    string            `json:"whitelist" yaml:"whitelist"`       // Optional barcode file; fixes barcode order
	Unmatched    string            `json:"unmatched" yaml:"unmatched"`       // Reads without a unique best barcode
	Report       string            `json:"report" yaml:"report"`             // Per-read assignment TSV

	KmerSize int `json:"kmer_size" yaml:"kmer_size"`
	MaxHits  int `json:"max_hits" yaml:"max_hits"`
	MinKmers int `json:"min_kmers" yaml:"min_kmers"`
	Threads  int `json:"threads" yaml:"threads"`
}

// readConfigFile parses a YAML or JSON config. JSON is read by the YAML
// decoder as-is.
func readConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	c, err := configFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filename, err)
	}
	return c, nil
}

func configFromYAML(data []byte) (*Config, error) {
	c := Config{}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.KmerSize == 0 {
		c.KmerSize = kmerindex.DefaultKmerSize
	}
	if c.MaxHits == 0 {
		c.MaxHits = kmerindex.DefaultMaxHits
	}
	if c.MinKmers == 0 {
		c.MinKmers = kmerindex.DefaultMinKmers
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
}

func (c *Config) validate() error {
	switch {
	case len(c.Inputs) == 0:
		return fmt.Errorf("%w: no inputs", errInvalidConfig)
	case len(c.Destinations) == 0 && c.Whitelist == "":
		return fmt.Errorf("%w: no destinations or whitelist", errInvalidConfig)
	case c.KmerSize < 1:
		return fmt.Errorf("%w: kmer_size %d", errInvalidConfig, c.KmerSize)
	case c.MaxHits < 1:
		return fmt.Errorf("%w: max_hits %d", errInvalidConfig, c.MaxHits)
	case c.MinKmers < 1:
		return fmt.Errorf("%w: min_kmers %d", errInvalidConfig, c.MinKmers)
	case c.Threads < 1:
		return fmt.Errorf("%w: threads %d", errInvalidConfig, c.Threads)
	}
	return nil
}

// queryOptions returns the ranking bounds for the k-mer index.
func (c *Config) queryOptions() kmerindex.QueryOptions {
	return kmerindex.QueryOptions{MaxHits: c.MaxHits, MinKmers: c.MinKmers}
}

// barcodes returns the whitelist in identifier order: the whitelist file's
// order when one is configured, otherwise the destination barcodes sorted.
// Every destination barcode must appear in the whitelist.
func (c *Config) barcodes() ([]string, error) {
	if c.Whitelist == "" {
		barcodes := make([]string, 0, len(c.Destinations))
		for bc := range c.Destinations {
			barcodes = append(barcodes, strings.ToUpper(bc))
		}
		sort.Strings(barcodes)
		return barcodes, nil
	}

	barcodes, err := readWhitelist(c.Whitelist)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(barcodes))
	for _, bc := range barcodes {
		known[bc] = struct{}{}
	}
	var missing []string
	for bc := range c.Destinations {
		if _, ok := known[strings.ToUpper(bc)]; !ok {
			missing = append(missing, bc)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: destination barcodes not in whitelist %s: %s",
			errInvalidConfig, c.Whitelist, strings.Join(missing, ","))
	}
	return barcodes, nil
}
