package tsv

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/cockroachdb/apd/v3"

	"github.com/asakusafw/asakusafw-sub019/pkg/calendar"
	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

const (
	// lineDrainThreshold is the pending line size at which a cell boundary
	// drains the line to the stream before the record ends.
	lineDrainThreshold = 64 * 1024
	// maxRetainedLine caps the line buffer capacity kept between records.
	maxRetainedLine = 1 << 20
)

// WriterConfig holds configuration for a Writer.
type WriterConfig struct {
	Charset    encoding.Encoding // Stream charset, nil for UTF-8
	BufferSize int               // Transfer buffer size (0 = 4096)
}

// Writer encodes records to a stream. Callers emit one holder per cell in
// schema order and then call EndRecord.
//
// Output is not buffered beyond the record in progress; wrap the stream in
// a bufio.Writer for small writes. A Writer is not safe for concurrent use.
type Writer struct {
	out      io.Writer
	encoder  *encoding.Encoder
	line     []byte
	transfer []byte
	cell     int
	record   int64
	offset   int64 // bytes handed to out
	closed   bool
}

// NewWriter creates a Writer over w. The Writer takes ownership of w: Close
// closes it if it is an io.Closer.
func NewWriter(w io.Writer, config WriterConfig) *Writer {
	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	writer := &Writer{
		out:      w,
		line:     make([]byte, 0, size),
		transfer: make([]byte, size),
	}
	if config.Charset != nil {
		writer.encoder = config.Charset.NewEncoder()
	}
	return writer
}

// Emit encodes o as the next cell, dispatching on its kind.
func (w *Writer) Emit(o value.Option) error {
	switch o := o.(type) {
	case *value.BoolOption:
		return w.EmitBool(o)
	case *value.ByteOption:
		return w.EmitByte(o)
	case *value.ShortOption:
		return w.EmitShort(o)
	case *value.IntOption:
		return w.EmitInt(o)
	case *value.LongOption:
		return w.EmitLong(o)
	case *value.FloatOption:
		return w.EmitFloat(o)
	case *value.DoubleOption:
		return w.EmitDouble(o)
	case *value.DecimalOption:
		return w.EmitDecimal(o)
	case *value.StringOption:
		return w.EmitString(o)
	case *value.DateOption:
		return w.EmitDate(o)
	case *value.DateTimeOption:
		return w.EmitDateTime(o)
	default:
		return fmt.Errorf("tsv: unsupported holder %T", o)
	}
}

// EmitBool encodes a boolean cell as 1 or 0.
func (w *Writer) EmitBool(o *value.BoolOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	if o.Get() {
		w.line = append(w.line, '1')
	} else {
		w.line = append(w.line, '0')
	}
	return w.endCell()
}

// EmitByte encodes a byte cell.
func (w *Writer) EmitByte(o *value.ByteOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendInt(w.line, int64(o.Get()), 10)
	return w.endCell()
}

// EmitShort encodes a short cell.
func (w *Writer) EmitShort(o *value.ShortOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendInt(w.line, int64(o.Get()), 10)
	return w.endCell()
}

// EmitInt encodes an int cell.
func (w *Writer) EmitInt(o *value.IntOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendInt(w.line, int64(o.Get()), 10)
	return w.endCell()
}

// EmitLong encodes a long cell.
func (w *Writer) EmitLong(o *value.LongOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendInt(w.line, o.Get(), 10)
	return w.endCell()
}

// EmitFloat encodes a float cell in the shortest form that reads back as
// the same float32. Infinities and NaN are written as +Inf, -Inf and NaN.
func (w *Writer) EmitFloat(o *value.FloatOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendFloat(w.line, float64(o.Get()), 'g', -1, 32)
	return w.endCell()
}

// EmitDouble encodes a double cell in the shortest form that reads back as
// the same float64.
func (w *Writer) EmitDouble(o *value.DoubleOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	w.line = strconv.AppendFloat(w.line, o.Get(), 'g', -1, 64)
	return w.endCell()
}

// EmitDecimal encodes a decimal cell in its canonical string form, which
// keeps the scale.
func (w *Writer) EmitDecimal(o *value.DecimalOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	d := o.Get()
	if d.Form != apd.Finite {
		return w.formatError("decimal is not finite", value.ErrNonFiniteDecimal)
	}
	w.line = append(w.line, d.String()...)
	return w.endCell()
}

// EmitString encodes a text cell, escaping tabs, newlines and backslashes.
// The text must be valid UTF-8.
func (w *Writer) EmitString(o *value.StringOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	p := o.Bytes()
	for i := 0; i < len(p); {
		c := p[i]
		if c < utf8.RuneSelf {
			switch c {
			case CellSeparator, RecordSeparator, EscapeChar:
				w.line = append(w.line, EscapeChar, c)
			default:
				w.line = append(w.line, c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(p[i:])
		if r == utf8.RuneError && size == 1 {
			return w.formatError(fmt.Sprintf("malformed UTF-8 at text byte %d", i), encoding.ErrInvalidUTF8)
		}
		w.line = append(w.line, p[i:i+size]...)
		i += size
	}
	return w.endCell()
}

// EmitDate encodes a date cell as YYYY-MM-DD. Dates outside
// 0001-01-01..9999-12-31 are rejected.
func (w *Writer) EmitDate(o *value.DateOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	if !calendar.ValidDay(o.Get()) {
		return w.formatError(fmt.Sprintf("day count %d", o.Get()), ErrDateRange)
	}
	w.line = calendar.AppendDate(w.line, o.Get())
	return w.endCell()
}

// EmitDateTime encodes a datetime cell as YYYY-MM-DD HH:MM:SS, with the
// same range as EmitDate.
func (w *Writer) EmitDateTime(o *value.DateTimeOption) error {
	if done, err := w.beginCell(o); done || err != nil {
		return err
	}
	if !calendar.ValidSecond(o.Get()) {
		return w.formatError(fmt.Sprintf("second count %d", o.Get()), ErrDateRange)
	}
	w.line = calendar.AppendDateTime(w.line, o.Get())
	return w.endCell()
}

// EndRecord terminates the current record and writes it to the stream.
func (w *Writer) EndRecord() error {
	if w.closed {
		return ErrClosed
	}
	w.line = append(w.line, RecordSeparator)
	w.cell = 0
	w.record++
	return w.drain()
}

// Flush writes the pending part of the current record and flushes the
// stream if it has a Flush method.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if err := w.drain(); err != nil {
		return err
	}
	if f, ok := w.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close terminates an unfinished record, flushes and closes the stream if
// it is an io.Closer. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	var errs []error
	if w.cell > 0 {
		errs = append(errs, w.EndRecord())
	}
	errs = append(errs, w.Flush())
	w.closed = true
	if c, ok := w.out.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Records returns the number of records ended so far.
func (w *Writer) Records() int64 {
	return w.record
}

// Offset returns the number of bytes written to the stream.
func (w *Writer) Offset() int64 {
	return w.offset
}

// beginCell opens a cell and encodes it completely when o is null. It
// reports done when nothing is left to encode.
func (w *Writer) beginCell(o value.Option) (done bool, err error) {
	if w.closed {
		return false, ErrClosed
	}
	if w.cell > 0 {
		w.line = append(w.line, CellSeparator)
	}
	if o.IsNull() {
		w.line = append(w.line, null...)
		return true, w.endCell()
	}
	return false, nil
}

func (w *Writer) endCell() error {
	w.cell++
	if len(w.line) >= lineDrainThreshold {
		return w.drain()
	}
	return nil
}

// drain writes the line buffer to the stream through the transfer buffer.
func (w *Writer) drain() error {
	if len(w.line) == 0 {
		return nil
	}
	var err error
	if w.encoder == nil {
		err = w.copyLine()
	} else {
		err = w.encodeLine()
	}
	if err != nil {
		return err
	}
	if cap(w.line) > maxRetainedLine {
		w.line = make([]byte, 0, len(w.transfer))
	} else {
		w.line = w.line[:0]
	}
	return nil
}

func (w *Writer) copyLine() error {
	for p := w.line; len(p) > 0; {
		n := copy(w.transfer, p)
		if err := w.write(w.transfer[:n]); err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (w *Writer) encodeLine() error {
	w.encoder.Reset()
	src := w.line
	for len(src) > 0 {
		nDst, nSrc, err := w.encoder.Transform(w.transfer, src, true)
		if nDst > 0 {
			if werr := w.write(w.transfer[:nDst]); werr != nil {
				return werr
			}
		}
		src = src[nSrc:]
		switch {
		case err == nil:
		case errors.Is(err, transform.ErrShortDst) && (nDst > 0 || nSrc > 0):
		default:
			return w.formatError("cannot encode text in the stream charset", err)
		}
	}
	return nil
}

func (w *Writer) write(p []byte) error {
	n, err := w.out.Write(p)
	w.offset += int64(n)
	return err
}

func (w *Writer) formatError(msg string, cause error) *FormatError {
	return &FormatError{
		Record: w.record + 1,
		Cell:   w.cell,
		Offset: w.offset + int64(len(w.line)),
		State:  StateInCell,
		Msg:    msg,
		Err:    cause,
	}
}
