package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shenwei356/xopen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSequencesText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "barcodes.txt", "# 10x v2\nAAACAAGTATCTCCCA\n\n  aaacaatctactagca  \r\nGTACTCCGTGCTTCTC")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAACAAGTATCTCCCA", "AAACAATCTACTAGCA", "GTACTCCGTGCTTCTC"}, seqs)
}

func TestReadSequencesFasta(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "barcodes.fa", ">bc1 first\nAAACAAGTAT\nCTCCCA\n>bc2\naaacaatctactagca\n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAACAAGTATCTCCCA", "AAACAATCTACTAGCA"}, seqs)
}

func TestReadSequencesFastq(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "barcodes.fq", fastqRecord("r1", "", "ACGTACGT")+fastqRecord("r2", "", "TTTTGGGG"))
	seqs, err := readSequences(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGTACGT", "TTTTGGGG"}, seqs)
}

func TestReadSequencesGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "barcodes.txt.gz")
	w, err := xopen.Wopen(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "ACGTACGT\nTTTTGGGG\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	seqs, err := readSequences(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACGTACGT", "TTTTGGGG"}, seqs)
}

func TestReadSequencesBlank(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blank.txt", "\n\n  \n")
	seqs, err := readSequences(path)
	require.NoError(t, err)
	assert.Empty(t, seqs)
}

func TestReadWhitelistMissing(t *testing.T) {
	_, err := readWhitelist(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading whitelist")
}

// withStdin replaces os.Stdin with a pipe holding content for the test.
func withStdin(t *testing.T, content string) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	stdin := os.Stdin
	os.Stdin = r
	t.Cleanup(func() {
		os.Stdin = stdin
		r.Close()
	})
}

func TestReadSequencesStdin(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"text", "acgtacgt\nTTTTGGGG\n"},
		{"fastq", fastqRecord("r1", "", "ACGTACGT") + fastqRecord("r2", "", "TTTTGGGG")},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			withStdin(t, test.content)
			seqs, err := readSequences("-")
			require.NoError(t, err)
			assert.Equal(t, []string{"ACGTACGT", "TTTTGGGG"}, seqs)
		})
	}
}

func TestReadWhitelistStdin(t *testing.T) {
	withStdin(t, ">bc1\nAAACAAGTATCTCCCA\n>bc2\nGTACTCCGTGCTTCTC\n")
	barcodes, err := readWhitelist("-")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAACAAGTATCTCCCA", "GTACTCCGTGCTTCTC"}, barcodes)
}
