package store

import (
	"time"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
)

// LogWriterConfig holds configuration for the log writer
type LogWriterConfig struct {
	FilePath      string         // Path to the record file
	Schema        *schema.Schema // Layout of every record in the file
	FsyncInterval time.Duration  // How often to fsync (0 = every write)
	BufferSize    int            // Write buffer size
}

// LogReaderConfig holds configuration for the log reader
type LogReaderConfig struct {
	FilePath    string         // Path to the record file
	Schema      *schema.Schema // Layout used by Iterator
	StartOffset int64          // Offset to start reading from
	BufferSize  int            // Read buffer size
}

// RecordIterator provides streaming access to records. The record returned
// by Record is reused by the next call to Next.
type RecordIterator interface {
	Next() bool
	Record() *schema.Record
	Offset() int64 // Start offset of the current record
	Err() error
	Close() error
}

// RecoveryResult reports what Recover found in a record file
type RecoveryResult struct {
	RecordsValidated int64
	Truncated        bool // the file was cut at the first malformed record
	FileSizeBefore   int64
	FileSizeAfter    int64
	RecoveryTime     int64 // nanoseconds
	FirstError       error `json:"-"`
}

// Errors
var (
	ErrCorruption = &StoreError{"data corruption detected"}
	ErrClosed     = &StoreError{"record file closed"}
)

// StoreError represents a record file error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
