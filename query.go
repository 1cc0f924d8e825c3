package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Altius/stampipes/programs/kmer_match/kmerindex"
	"github.com/shenwei356/xopen"
)

// queryFlags are the settings of the query subcommand.
type queryFlags struct {
	whitelist   string
	reads       string
	output      string
	kmerSize    int
	maxHits     int
	minKmers    int
	reportEmpty bool
}

// runQuery scores each query sequence against the whitelist and writes one
// TSV row per hit: query, rank, barcode, shared k-mers.
func runQuery(opts queryFlags, args []string) error {
	log := componentLogger("query")

	if opts.whitelist == "" {
		return errors.New("must supply --whitelist")
	}
	queries := make([]string, 0, len(args))
	for _, arg := range args {
		queries = append(queries, strings.ToUpper(arg))
	}
	if opts.reads != "" {
		seqs, err := readSequences(opts.reads)
		if err != nil {
			return fmt.Errorf("reading queries %s: %w", opts.reads, err)
		}
		queries = append(queries, seqs...)
	}
	if len(queries) == 0 {
		return errors.New("no query sequences: pass them as arguments or with --reads")
	}

	barcodes, err := readWhitelist(opts.whitelist)
	if err != nil {
		return err
	}
	idx, err := kmerindex.Build(barcodes, opts.kmerSize)
	if err != nil {
		return err
	}
	log.Debug("built k-mer index", "barcodes", idx.Len(), "kmers", idx.NumKmers(), "k", idx.K())

	out, err := xopen.Wopen(opts.output)
	if err != nil {
		return err
	}
	err = writeHits(out, idx, queries, kmerindex.QueryOptions{MaxHits: opts.maxHits, MinKmers: opts.minKmers}, opts.reportEmpty)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeHits(w io.Writer, idx *kmerindex.Index, queries []string, opts kmerindex.QueryOptions, reportEmpty bool) error {
	var matched int
	for _, q := range queries {
		hits := idx.Query(q, opts)
		if len(hits) == 0 {
			if reportEmpty {
				if _, err := fmt.Fprintf(w, "%s\t0\t*\t0\n", q); err != nil {
					return err
				}
			}
			continue
		}
		matched++
		for rank, hit := range hits {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", q, rank+1, hit.Barcode, hit.Count); err != nil {
				return err
			}
		}
	}
	componentLogger("query").Info("scored queries", "queries", len(queries), "matched", matched)
	return nil
}
