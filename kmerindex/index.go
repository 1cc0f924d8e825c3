package kmerindex

import (
	"errors"
	"fmt"
	"slices"
)

// DefaultKmerSize is the k-mer length used when the caller has no
// preference.
const DefaultKmerSize = 6

// ErrInvalidKmerSize is returned by Build for a k-mer length below 1.
var ErrInvalidKmerSize = errors.New("kmerindex: k-mer size must be at least 1")

// Index is an inverted index from k-mer to the positions of the whitelist
// entries containing it. It is immutable once Build returns.
type Index struct {
	k        int
	barcodes []string
	postings map[string][]int // k-mer -> barcode ids, one entry per occurrence
}

// Build indexes whitelist with k-mers of length k. Identifiers are positions
// in whitelist; the slice is copied, so later changes by the caller do not
// affect the index. Entries shorter than k are kept but never match.
func Build(whitelist []string, k int) (*Index, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKmerSize, k)
	}
	idx := &Index{
		k:        k,
		barcodes: slices.Clone(whitelist),
		postings: make(map[string][]int),
	}
	for id, barcode := range idx.barcodes {
		for i, n := 0, KmerCount(len(barcode), k); i < n; i++ {
			kmer := barcode[i : i+k]
			idx.postings[kmer] = append(idx.postings[kmer], id)
		}
	}
	return idx, nil
}

// K returns the k-mer length of the index.
func (idx *Index) K() int { return idx.k }

// Len returns the number of whitelist entries, including unindexable ones.
func (idx *Index) Len() int { return len(idx.barcodes) }

// NumKmers returns the number of distinct k-mers in the index.
func (idx *Index) NumKmers() int { return len(idx.postings) }

// Barcode returns the whitelist entry with the given identifier.
func (idx *Index) Barcode(id int) (string, bool) {
	if id < 0 || id >= len(idx.barcodes) {
		return "", false
	}
	return idx.barcodes[id], true
}

// Barcodes returns a copy of the whitelist in identifier order.
func (idx *Index) Barcodes() []string {
	return slices.Clone(idx.barcodes)
}

// Postings returns a copy of the identifiers indexed under kmer. An id
// appears once per occurrence of kmer in that barcode.
func (idx *Index) Postings(kmer string) []int {
	return slices.Clone(idx.postings[kmer])
}
