package store

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// LogWriter handles append-only writes of TSV records to a data file
type LogWriter struct {
	file       *os.File
	writer     *bufio.Writer
	scratch    bytes.Buffer
	encoder    *tsv.Writer
	fsyncTimer *time.Timer
	config     LogWriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
	records    int64
	closed     bool
}

// NewLogWriter creates a new log writer with the given configuration
func NewLogWriter(config LogWriterConfig) (*LogWriter, error) {
	if config.Schema == nil {
		return nil, fmt.Errorf("log writer for %s: schema is required", config.FilePath)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	// Seek to end for append behavior
	if _, err := file.Seek(0, 2); err != nil {
		_ = file.Close()
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	size := config.BufferSize
	if size <= 0 {
		size = 4096
	}
	writer := &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, size),
		config: config,
		offset: stat.Size(),
	}
	writer.resetEncoder()

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			if !writer.closed {
				_ = writer.sync()
			}
		})
	}

	return writer, nil
}

// resetEncoder drops any partially encoded record.
func (w *LogWriter) resetEncoder() {
	w.scratch.Reset()
	w.encoder = tsv.NewWriter(&w.scratch, tsv.WriterConfig{})
}

// Put appends a record to the file and returns the offset it starts at.
// A record that fails to encode leaves the file untouched.
func (w *LogWriter) Put(rec *schema.Record) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if !w.config.Schema.Compatible(rec.Schema()) {
		return 0, fmt.Errorf("record of %s does not fit %s", rec.Schema().Name, w.config.Schema.Name)
	}

	w.scratch.Reset()
	if err := rec.Emit(w.encoder); err != nil {
		w.resetEncoder()
		return 0, err
	}

	n, err := w.writer.Write(w.scratch.Bytes())
	if err != nil {
		return 0, err
	}

	recordOffset := w.offset
	w.offset += int64(n)
	w.records++

	// Sync immediately if no fsync interval configured
	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, nil
}

// Sync forces a fsync to disk
func (w *LogWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrClosed
	}
	return w.sync()
}

func (w *LogWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close closes the log writer and ensures all data is synced
func (w *LogWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the file
func (w *LogWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Records returns the number of records appended by this writer
func (w *LogWriter) Records() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.records
}

// Path returns the file path
func (w *LogWriter) Path() string {
	return w.config.FilePath
}
