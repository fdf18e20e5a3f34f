// Package tsv reads and writes typed records in a tab separated text format.
//
// A stream is a sequence of records. Each record is a fixed, ordered list of
// cells whose count and types are agreed between writer and reader outside
// the stream; there is no header row and no embedded schema.
//
// # Record Format
//
// Cells are separated by a tab (0x09) and every record ends with a newline
// (0x0A). A backslash (0x5C) starts an escape sequence:
//
//	\N          null cell (the whole cell)
//	\<TAB>      literal tab inside text
//	\<LF>       literal newline inside text
//	\\          literal backslash inside text
//
// Values are encoded as follows:
//   - boolean: 1 or 0
//   - byte, short, int, long: signed decimal, no leading zeros
//   - float, double: shortest decimal text that reads back to the same bits;
//     infinities and NaN are written as +Inf, -Inf and NaN
//   - decimal: canonical decimal string, scale preserved
//   - text: UTF-8 with the escapes above; an empty string is zero bytes
//   - date: YYYY-MM-DD
//   - datetime: YYYY-MM-DD HH:MM:SS
//
// When decoding dates and datetimes, a year, month or day of zero decodes as
// null, so 0000-00-00 reads back as a null cell.
//
// # Usage
//
// Writing:
//
//	w := tsv.NewWriter(file, tsv.WriterConfig{})
//	defer w.Close()
//
//	if err := w.EmitInt(value.NewInt(1)); err != nil {
//	    return err
//	}
//	if err := w.EmitString(value.NewString("hello")); err != nil {
//	    return err
//	}
//	if err := w.EndRecord(); err != nil {
//	    return err
//	}
//
// Reading, with holders reused across records:
//
//	r, err := tsv.NewReader(file, tsv.ReaderConfig{})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	var id value.IntOption
//	var name value.StringOption
//	for {
//	    ok, err := r.Next()
//	    if err != nil || !ok {
//	        return err
//	    }
//	    if err := r.FillInt(&id); err != nil {
//	        return err
//	    }
//	    if err := r.FillString(&name); err != nil {
//	        return err
//	    }
//	    if err := r.EndRecord(); err != nil {
//	        return err
//	    }
//	}
//
// # Error Handling
//
// Grammar violations return a *FormatError, which matches ErrFormat with
// errors.Is and carries the record number, cell index and byte offset.
// Failures of the underlying stream are returned unchanged. Neither is
// recoverable: the reader does not resynchronize to the next record.
//
// Filling fewer or more cells than a record holds is not detected cell by
// cell. EndRecord only checks that the last cell read was the last one of
// its record.
//
// # Character Sets
//
// Streams are UTF-8 unless a charset from golang.org/x/text is configured.
// Malformed input and characters the charset cannot represent are format
// errors, never replaced.
//
// # Thread Safety
//
// Reader and Writer hold per-stream cursor state and scratch buffers and
// must not be shared between goroutines without external locking.
package tsv
