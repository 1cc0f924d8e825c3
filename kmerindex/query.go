package kmerindex

import (
	"cmp"
	"slices"
)

const (
	// DefaultMaxHits is the number of ranked hits returned by default.
	DefaultMaxHits = 10
	// DefaultMinKmers is the default number of shared k-mers a barcode
	// needs to be reported.
	DefaultMinKmers = 2
)

// QueryOptions bounds a query's result. Fields left at zero (or negative)
// take their defaults.
type QueryOptions struct {
	MaxHits  int
	MinKmers int
}

// DefaultQueryOptions returns the options used by Occurrences.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{MaxHits: DefaultMaxHits, MinKmers: DefaultMinKmers}
}

func (o QueryOptions) withDefaults() QueryOptions {
	if o.MaxHits < 1 {
		o.MaxHits = DefaultMaxHits
	}
	if o.MinKmers < 1 {
		o.MinKmers = DefaultMinKmers
	}
	return o
}

// Hit is one whitelist entry sharing k-mers with a query.
type Hit struct {
	ID      int    // position in the whitelist
	Barcode string // the whitelist entry
	Count   int    // shared k-mers, counting every index occurrence
}

// Occurrences is Query with DefaultQueryOptions.
func (idx *Index) Occurrences(seq string) []Hit {
	return idx.Query(seq, DefaultQueryOptions())
}

// Query returns the whitelist entries sharing at least opts.MinKmers k-mers
// with seq, best first, at most opts.MaxHits of them. Equal counts are
// ordered by whitelist position. The result is empty when nothing qualifies.
func (idx *Index) Query(seq string, opts QueryOptions) []Hit {
	opts = opts.withDefaults()

	n := KmerCount(len(seq), idx.k)
	if n == 0 {
		return []Hit{}
	}

	counts := make(map[int]int)
	for i := 0; i < n; i++ {
		for _, id := range idx.postings[seq[i:i+idx.k]] {
			counts[id]++
		}
	}

	hits := make([]Hit, 0, len(counts))
	for id, count := range counts {
		if count < opts.MinKmers {
			continue
		}
		hits = append(hits, Hit{ID: id, Barcode: idx.barcodes[id], Count: count})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(hits) > opts.MaxHits {
		hits = hits[:opts.MaxHits]
	}
	return hits
}
