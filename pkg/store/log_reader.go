package store

import (
	"io"
	"os"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// LogReader provides sequential access to records in a data file
type LogReader struct {
	file    *os.File
	decoder *tsv.Reader
	base    int64 // file offset the decoder started at
	config  LogReaderConfig
}

// fileSource hides the file's Close method so the decoder never closes it.
type fileSource struct{ io.Reader }

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	r := &LogReader{file: file, config: config}
	if err := r.Seek(config.StartOffset); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

// ReadNext reads the next record into rec. It returns io.EOF after the
// last record.
func (r *LogReader) ReadNext(rec *schema.Record) error {
	ok, err := r.decoder.Next()
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	return rec.Fill(r.decoder)
}

// ReadAt reads the record starting at offset without moving the
// sequential position.
func (r *LogReader) ReadAt(offset int64, rec *schema.Record) error {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	decoder, err := tsv.NewReader(fileSource{file}, tsv.ReaderConfig{BufferSize: r.config.BufferSize})
	if err != nil {
		return err
	}
	ok, err := decoder.Next()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCorruption
	}
	return rec.Fill(decoder)
}

// Seek sets the read offset, which must be the start of a record
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	decoder, err := tsv.NewReader(fileSource{r.file}, tsv.ReaderConfig{BufferSize: r.config.BufferSize})
	if err != nil {
		return err
	}
	r.decoder = decoder
	r.base = offset
	return nil
}

// Offset returns the current read offset: the start of the next record
// after a successful ReadNext.
func (r *LogReader) Offset() int64 {
	return r.base + r.decoder.Offset()
}

// Iterator returns a streaming iterator over the remaining records of the
// configured schema
func (r *LogReader) Iterator() RecordIterator {
	return &logRecordIterator{reader: r, record: r.config.Schema.NewRecord()}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

// logRecordIterator implements RecordIterator for streaming access
type logRecordIterator struct {
	reader *LogReader
	record *schema.Record
	offset int64
	err    error
}

func (it *logRecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.offset = it.reader.Offset()
	if err := it.reader.ReadNext(it.record); err != nil {
		if err != io.EOF {
			it.err = err
		}
		return false
	}
	return true
}

func (it *logRecordIterator) Record() *schema.Record {
	return it.record
}

func (it *logRecordIterator) Offset() int64 {
	return it.offset
}

func (it *logRecordIterator) Err() error {
	return it.err
}

func (it *logRecordIterator) Close() error {
	// The reader is owned by the caller
	return nil
}
