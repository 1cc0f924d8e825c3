package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// readWhitelist loads barcodes from filename, keeping file order.
func readWhitelist(filename string) ([]string, error) {
	barcodes, err := readSequences(filename)
	if err != nil {
		return nil, fmt.Errorf("reading whitelist %s: %w", filename, err)
	}
	return barcodes, nil
}

// readSequences reads upper-cased sequences from filename in file order.
// FASTA and FASTQ files contribute one sequence per record; anything else
// is read as one sequence per line, skipping blank lines and '#' comments.
// Compressed files are handled by xopen. The file is opened once, so "-"
// reads stdin.
func readSequences(filename string) ([]string, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	first, err := peekByte(fh.Reader)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	switch first {
	case '>', '@':
		return readFastxSequences(fh)
	}
	return readLineSequences(fh)
}

// peekByte skips leading whitespace and returns the next byte without
// consuming it.
func peekByte(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, r.UnreadByte()
	}
}

func readFastxSequences(r io.Reader) ([]string, error) {
	fq, err := fastx.NewReaderFromIO(nil, r, "")
	if err != nil {
		return nil, err
	}

	var seqs []string
	for {
		record, err := fq.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		seqs = append(seqs, string(bytes.ToUpper(record.Seq.Seq)))
	}
	return seqs, nil
}

func readLineSequences(r io.Reader) ([]string, error) {
	var seqs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		seqs = append(seqs, string(bytes.ToUpper(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return seqs, nil
}

// barcodeFromDesc returns the text after the last ':' of a FASTQ
// description, e.g. "1:N:0:ACGTACGT" -> "ACGTACGT".
func barcodeFromDesc(desc []byte) string {
	lastColonPos := bytes.LastIndexByte(desc, ':')
	return string(bytes.ToUpper(bytes.TrimSpace(desc[lastColonPos+1:])))
}
