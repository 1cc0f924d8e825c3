package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime/pprof"
	"testing"

	"github.com/Altius/stampipes/programs/kmer_match/kmerindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteHits(t *testing.T) {
	idx, err := kmerindex.Build([]string{"AAACAAGTATCTCCCA", "AAACAATCTACTAGCA"}, 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = writeHits(&buf, idx, []string{"AAACAAGTATCTCCCA", "AAA"}, kmerindex.DefaultQueryOptions(), false)
	require.NoError(t, err)
	assert.Equal(t,
		"AAACAAGTATCTCCCA\t1\tAAACAAGTATCTCCCA\t12\n"+
			"AAACAAGTATCTCCCA\t2\tAAACAATCTACTAGCA\t2\n",
		buf.String())

	buf.Reset()
	err = writeHits(&buf, idx, []string{"AAA"}, kmerindex.DefaultQueryOptions(), true)
	require.NoError(t, err)
	assert.Equal(t, "AAA\t0\t*\t0\n", buf.String())
}

func TestQueryCommand(t *testing.T) {
	dir := t.TempDir()
	whitelist := writeFile(t, dir, "whitelist.txt", "AAACAAGTATCTCCCA\nAAACAATCTACTAGCA\nGATCTAGCATTGCGGC\n")
	reads := writeFile(t, dir, "reads.txt", "AAACATCTGCTAGCACTATA\n")
	output := filepath.Join(dir, "hits.tsv")

	require.NoError(t, execute([]string{
		"--log-level", "error",
		"query", "--whitelist", whitelist, "--kmer-size", "5", "--min-kmers", "3",
		"--reads", reads, "--output", output, "AAACAAGTATCTCCCA",
	}))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t,
		"AAACAAGTATCTCCCA\t1\tAAACAAGTATCTCCCA\t12\n"+
			"AAACATCTGCTAGCACTATA\t1\tAAACAATCTACTAGCA\t3\n",
		string(got))
}

func TestQueryCommandCase(t *testing.T) {
	dir := t.TempDir()
	whitelist := writeFile(t, dir, "whitelist.txt", "AAACAAGTATCTCCCA\n")
	reads := writeFile(t, dir, "reads.txt", "aaacaagtatctccca\n")
	output := filepath.Join(dir, "hits.tsv")

	err := execute([]string{
		"--log-level", "error",
		"query", "-w", whitelist, "-k", "5", "--report-empty",
		"-r", reads, "-o", output, "aaacaagtatctccca",
	})
	require.NoError(t, err)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	row := "AAACAAGTATCTCCCA\t1\tAAACAAGTATCTCCCA\t12\n"
	assert.Equal(t, row+row, string(got))
}

func TestQueryCommandErrors(t *testing.T) {
	dir := t.TempDir()
	whitelist := writeFile(t, dir, "whitelist.txt", "AAACAAGTATCTCCCA\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no whitelist", []string{"query", "ACGTACGT"}},
		{"no queries", []string{"query", "--whitelist", whitelist}},
		{"bad kmer size", []string{"query", "--whitelist", whitelist, "--kmer-size", "0", "ACGTACGT"}},
		{"missing whitelist", []string{"query", "--whitelist", filepath.Join(dir, "nope.txt"), "ACGTACGT"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Error(t, execute(append([]string{"--log-level", "error"}, test.args...)))
		})
	}
}

func TestDemuxCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.fq", sampleReads())
	out := filepath.Join(dir, "a.fq")
	config := writeFile(t, dir, "config.json", `{
  "inputs": ["`+input+`"],
  "destinations": {"`+bcA+`": "`+out+`"},
  "kmer_size": 5
}`)

	require.NoError(t, execute([]string{"--log-level", "error", "demux", "--configfile", config}))
	// Without B in the whitelist r7 is no longer a tie.
	assert.Equal(t, []string{"r1", "r2", "r7"}, readIDs(t, out))

	assert.Error(t, execute([]string{"demux"}))
}

func TestExecuteStopsProfileOnError(t *testing.T) {
	dir := t.TempDir()
	cpuprofile := filepath.Join(dir, "cpu.pprof")
	memprofile := filepath.Join(dir, "mem.pprof")

	err := execute([]string{
		"--log-level", "error", "--cpuprofile", cpuprofile, "--memprofile", memprofile,
		"demux", "--configfile", filepath.Join(dir, "missing.yaml"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.yaml")

	for _, path := range []string{cpuprofile, memprofile} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), path)
	}

	// Profiling is free again once execute returns.
	var buf bytes.Buffer
	require.NoError(t, pprof.StartCPUProfile(&buf))
	pprof.StopCPUProfile()
}
