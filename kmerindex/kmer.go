package kmerindex

// KmerCount returns the number of k-mers a sliding window of length k
// produces over a string of the given length.
func KmerCount(length, k int) int {
	if k < 1 || length < k {
		return 0
	}
	return length - k + 1
}

// Kmers returns all overlapping substrings of length k of seq, left to
// right. Strings shorter than k have no k-mers.
func Kmers(seq string, k int) []string {
	n := KmerCount(len(seq), k)
	if n == 0 {
		return nil
	}
	kmers := make([]string, 0, n)
	for i := 0; i < n; i++ {
		kmers = append(kmers, seq[i:i+k])
	}
	return kmers
}
