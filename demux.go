package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Altius/stampipes/programs/kmer_match/kmerindex"
	"github.com/cheggaaa/pb/v3"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
	"golang.org/x/sync/errgroup"
)

const (
	bufSize   = 10
	chunkSize = 1000
	cacheSize = 128
)

type outcome int

const (
	outcomeAssigned outcome = iota
	outcomeAmbiguous
	outcomeNoHit
	outcomeNoDestination
)

func (o outcome) String() string {
	switch o {
	case outcomeAssigned:
		return "assigned"
	case outcomeAmbiguous:
		return "ambiguous"
	case outcomeNoHit:
		return "no_hit"
	case outcomeNoDestination:
		return "no_destination"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// demuxStats counts reads by outcome.
type demuxStats struct {
	Reads         int64
	Assigned      int64
	Ambiguous     int64
	NoHit         int64
	NoDestination int64
}

func (s *demuxStats) add(o outcome) {
	s.Reads++
	switch o {
	case outcomeAssigned:
		s.Assigned++
	case outcomeAmbiguous:
		s.Ambiguous++
	case outcomeNoHit:
		s.NoHit++
	case outcomeNoDestination:
		s.NoDestination++
	}
}

type readResult struct {
	barcode string // as observed in the read header
	hits    []kmerindex.Hit
	outcome outcome
}

// best returns the top hit, if any.
func (r readResult) best() (kmerindex.Hit, bool) {
	if len(r.hits) == 0 {
		return kmerindex.Hit{}, false
	}
	return r.hits[0], true
}

// classify decides whether hits name a single barcode. A read is only
// assigned when its top hit beats the runner-up.
func classify(hits []kmerindex.Hit) outcome {
	switch {
	case len(hits) == 0:
		return outcomeNoHit
	case len(hits) > 1 && hits[1].Count == hits[0].Count:
		return outcomeAmbiguous
	}
	return outcomeAssigned
}

// scoreChunk queries the index for every record, splitting the chunk into
// at most threads contiguous spans, one goroutine each. Results are in
// record order.
func scoreChunk(idx *kmerindex.Index, opts kmerindex.QueryOptions, records []*fastx.Record, threads int) ([]readResult, error) {
	results := make([]readResult, len(records))
	span := (len(records) + threads - 1) / threads
	if span == 0 {
		return results, nil
	}

	var g errgroup.Group
	for start := 0; start < len(records); start += span {
		end := min(start+span, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				barcode := barcodeFromDesc(records[i].Desc)
				hits := idx.Query(barcode, opts)
				results[i] = readResult{barcode: barcode, hits: hits, outcome: classify(hits)}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// demuxer holds the open outputs of one run.
type demuxer struct {
	config       *Config
	idx          *kmerindex.Index
	opts         kmerindex.QueryOptions
	destinations map[int]*RecordWriter // barcode id -> writer
	writers      []*RecordWriter       // each file once
	unmatched    *RecordWriter
	report       *xopen.Writer
	stats        demuxStats
}

func demux(config *Config, progress bool) (*demuxStats, error) {
	log := componentLogger("demux")

	barcodes, err := config.barcodes()
	if err != nil {
		return nil, err
	}
	idx, err := kmerindex.Build(barcodes, config.KmerSize)
	if err != nil {
		return nil, err
	}
	log.Info("built k-mer index",
		"barcodes", idx.Len(), "kmers", idx.NumKmers(), "k", idx.K())

	d := &demuxer{
		config: config,
		idx:    idx,
		opts:   config.queryOptions(),
	}
	// Ties are only visible with at least two hits.
	d.opts.MaxHits = max(d.opts.MaxHits, 2)

	if err := d.open(); err != nil {
		d.close()
		return nil, err
	}

	var bar *pb.ProgressBar
	if progress {
		bar = pb.Simple.Start64(0)
		defer bar.Finish()
	}

	for _, inputFilename := range config.Inputs {
		log.Info("reading input", "file", inputFilename)
		if err := d.demuxFile(inputFilename, bar); err != nil {
			d.close()
			return nil, err
		}
	}

	if err := d.close(); err != nil {
		return nil, err
	}
	log.Info("done",
		"reads", d.stats.Reads,
		"assigned", d.stats.Assigned,
		"ambiguous", d.stats.Ambiguous,
		"no_hit", d.stats.NoHit,
		"no_destination", d.stats.NoDestination)
	return &d.stats, nil
}

// open creates one writer per distinct output file.
func (d *demuxer) open() error {
	ids := make(map[string]int, d.idx.Len())
	for id, bc := range d.idx.Barcodes() {
		if _, seen := ids[bc]; !seen {
			ids[bc] = id
		}
	}

	d.destinations = make(map[int]*RecordWriter)
	fileLookup := make(map[string]*RecordWriter)
	for barcode, filename := range d.config.Destinations {
		id := ids[strings.ToUpper(barcode)]
		// Check if it's already open!
		if fh, opened := fileLookup[filename]; opened {
			d.destinations[id] = fh
			continue
		}
		fh, err := NewRecordWriter(filename, cacheSize)
		if err != nil {
			return err
		}
		d.destinations[id] = fh
		d.writers = append(d.writers, fh)
		fileLookup[filename] = fh
	}

	if d.config.Unmatched != "" {
		fh, opened := fileLookup[d.config.Unmatched]
		if !opened {
			var err error
			if fh, err = NewRecordWriter(d.config.Unmatched, cacheSize); err != nil {
				return err
			}
			d.writers = append(d.writers, fh)
		}
		d.unmatched = fh
	}

	if d.config.Report != "" {
		report, err := xopen.Wopen(d.config.Report)
		if err != nil {
			return err
		}
		d.report = report
		if _, err := io.WriteString(report, "read\tbarcode\toutcome\tmatch\tcount\trunner_up\n"); err != nil {
			return err
		}
	}
	return nil
}

func (d *demuxer) close() error {
	log := componentLogger("demux")
	var errs []error
	for _, w := range d.writers {
		log.Debug("closing output", "file", w.filename, "records", w.Written())
		errs = append(errs, w.Close())
	}
	d.writers = nil
	if d.report != nil {
		errs = append(errs, d.report.Close())
		d.report = nil
	}
	return errors.Join(errs...)
}

func (d *demuxer) demuxFile(filename string, bar *pb.ProgressBar) error {
	fq, err := fastx.NewDefaultReader(filename)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filename, err)
	}

	chunks := fq.ChunkChan(bufSize, chunkSize)
	for chunk := range chunks {
		if chunk.Err != nil {
			drainChunks(fq, chunks)
			return fmt.Errorf("reading %s: %w", filename, chunk.Err)
		}
		results, err := scoreChunk(d.idx, d.opts, chunk.Data, d.config.Threads)
		if err != nil {
			drainChunks(fq, chunks)
			return fmt.Errorf("scoring %s: %w", filename, err)
		}
		for i, record := range chunk.Data {
			if err := d.route(record, &results[i]); err != nil {
				drainChunks(fq, chunks)
				return err
			}
		}
		if bar != nil {
			bar.Add(len(chunk.Data))
		}
	}
	fq.Close()
	return nil
}

// drainChunks lets the reader goroutine behind chunks run to completion
// after the consumer has stopped, then closes the reader.
func drainChunks(fq *fastx.Reader, chunks <-chan fastx.RecordChunk) {
	go func() {
		for range chunks {
		}
		fq.Close()
	}()
}

// route sends one scored record to its destination, or to the unmatched
// output.
func (d *demuxer) route(record *fastx.Record, result *readResult) error {
	dest := d.unmatched
	if result.outcome == outcomeAssigned {
		best, _ := result.best()
		if fh, ok := d.destinations[best.ID]; ok {
			dest = fh
		} else {
			result.outcome = outcomeNoDestination
		}
	}
	d.stats.add(result.outcome)

	if dest != nil {
		dest.Write(record)
	}
	if d.report != nil {
		return d.writeReport(record, result)
	}
	return nil
}

func (d *demuxer) writeReport(record *fastx.Record, result *readResult) error {
	match, count, runnerUp := "*", 0, 0
	if best, ok := result.best(); ok {
		match, count = best.Barcode, best.Count
	}
	if len(result.hits) > 1 {
		runnerUp = result.hits[1].Count
	}
	_, err := fmt.Fprintf(d.report, "%s\t%s\t%s\t%s\t%d\t%d\n",
		record.ID, result.barcode, result.outcome, match, count, runnerUp)
	return err
}
