// Package kmerindex matches short sequences (cell barcodes, UMIs) against a
// fixed whitelist by counting shared k-mers.
//
// An Index is built once from the whitelist and is read-only afterwards, so
// a single Index may be queried from any number of goroutines.
//
//	idx, err := kmerindex.Build(barcodes, 5)
//	if err != nil {
//		return err
//	}
//	for _, hit := range idx.Occurrences(read) {
//		fmt.Println(hit.Barcode, hit.Count)
//	}
//
// Every sliding-window occurrence of a k-mer is indexed, including repeats
// within one barcode, and every index hit is counted at query time. A
// barcode with an internally repeated k-mer therefore scores that k-mer
// more than once.
package kmerindex
