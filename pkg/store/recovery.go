package store

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// Recover validates a record file against s and truncates it after the
// last well-formed record. Everything from the first malformed record on
// is discarded, which repairs a torn tail left by a crash mid-write.
func Recover(filePath string, s *schema.Schema) (*RecoveryResult, error) {
	startTime := time.Now()

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RecoveryResult{RecoveryTime: time.Since(startTime).Nanoseconds()}, nil
		}
		return nil, err
	}

	result := &RecoveryResult{
		FileSizeBefore: fileInfo.Size(),
		FileSizeAfter:  fileInfo.Size(),
	}

	lastValidOffset, err := validate(filePath, s, result)
	if err != nil {
		return nil, err
	}

	if result.FirstError != nil {
		file, err := os.OpenFile(filePath, os.O_RDWR, 0600)
		if err != nil {
			return nil, err
		}
		if err := file.Truncate(lastValidOffset); err != nil {
			file.Close()
			return nil, err
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
		result.FileSizeAfter = lastValidOffset
		result.Truncated = true
	}

	result.RecoveryTime = time.Since(startTime).Nanoseconds()
	return result, nil
}

// validate reads records until the end of the file or the first malformed
// record, and returns the offset just past the last good one. Only I/O
// failures are returned as errors.
func validate(filePath string, s *schema.Schema, result *RecoveryResult) (int64, error) {
	reader, err := NewLogReader(LogReaderConfig{FilePath: filePath, Schema: s})
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	rec := s.NewRecord()
	var lastValidOffset int64
	for {
		err := reader.ReadNext(rec)
		if err == io.EOF {
			return lastValidOffset, nil
		}
		if err != nil {
			if !errors.Is(err, tsv.ErrFormat) && !errors.Is(err, schema.ErrNullViolation) {
				return 0, err
			}
			result.FirstError = err
			return lastValidOffset, nil
		}
		result.RecordsValidated++
		lastValidOffset = reader.Offset()
	}
}
