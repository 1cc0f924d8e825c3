package main

import (
	"fmt"

	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// RecordWriter writes records in an async fashion
// Call Close() when you're done!
type RecordWriter struct {
	filename string
	writer   *xopen.Writer
	cache    []*fastx.Record
	records  chan []*fastx.Record
	errors   chan error
	written  int64
}

func (w *RecordWriter) Write(record *fastx.Record) {
	w.cache = append(w.cache, record)
	if cap(w.cache) == len(w.cache) {
		w.Flush()
	}
}

// Close flushes pending records, waits for the background writer and
// closes the file. It returns the error from closing the file, if any.
func (w *RecordWriter) Close() error {
	w.Flush()

	close(w.records)
	if err := <-w.errors; err != nil {
		return fmt.Errorf("closing %s: %w", w.filename, err)
	}
	return nil
}

func (w *RecordWriter) Flush() {
	if len(w.cache) == 0 {
		return
	}
	w.written += int64(len(w.cache))
	w.records <- w.cache
	// The background goroutine owns the old slice now.
	w.cache = make([]*fastx.Record, 0, cap(w.cache))
}

// Written returns the number of records handed to the writer.
func (w *RecordWriter) Written() int64 {
	return w.written + int64(len(w.cache))
}

// NewRecordWriter creates a nice new writer
// cachesize: How many records to buffer at a time
func NewRecordWriter(filename string, cachesize int) (*RecordWriter, error) {

	writer, err := xopen.Wopen(filename)
	if err != nil {
		return nil, err
	}

	w := RecordWriter{
		filename: filename,
		cache:    make([]*fastx.Record, 0, cachesize),
		records:  make(chan []*fastx.Record, 0), // 0 means unbuffered.
		errors:   make(chan error, 1),
		writer:   writer,
	}

	go func(w *RecordWriter) {
		writer := w.writer
		for records := range w.records {
			for _, record := range records {
				record.FormatToWriter(writer, 100000)
			}
		}
		w.errors <- writer.Close()
		close(w.errors)
	}(&w)
	return &w, nil
}
