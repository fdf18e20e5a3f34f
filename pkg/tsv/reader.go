package tsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"

	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/calendar"
	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

// specialFloat matches the non-numeric spellings of infinities and NaN.
var specialFloat = regexp.MustCompile(`(?is)^(?:(\+?inf.*)|(-inf.*)|([+-]?nan))$`)

// ReaderConfig holds configuration for a Reader.
type ReaderConfig struct {
	Charset    encoding.Encoding // Stream charset, nil for UTF-8
	BufferSize int               // Read buffer size (0 = 4096)
}

// Reader decodes records from a stream. Callers fill one holder per cell in
// schema order between Next and EndRecord.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	in     *bufio.Reader
	src    *sourceReader
	closer io.Closer
	cur    cursor
	offset int64 // bytes consumed, including the lookahead
	record int64
	cell   int

	scratch []byte // numeric spans, grows as needed
	chunk   []byte // text staging, fixed capacity
	closed  bool
}

// NewReader creates a Reader over r and reads the first byte of lookahead.
// The Reader takes ownership of r: Close closes it if it is an io.Closer,
// and so does NewReader when it fails.
func NewReader(r io.Reader, config ReaderConfig) (*Reader, error) {
	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	closer, _ := r.(io.Closer)
	src := &sourceReader{r: r}
	reader := &Reader{
		in:      bufio.NewReaderSize(decodingReader(src, config.Charset), size),
		src:     src,
		closer:  closer,
		cur:     cursor{state: StateRecordEnd},
		scratch: make([]byte, 0, initialScratch),
		chunk:   make([]byte, 0, textChunkSize),
	}

	c, err := reader.read()
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	reader.cur.lookahead = c
	return reader, nil
}

// Next advances to the next record. It returns false at the end of the
// stream.
func (r *Reader) Next() (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	r.cur.beginRecord()
	r.cell = 0
	if r.cur.lookahead == eof {
		return false, nil
	}
	r.record++
	return true, nil
}

// EndRecord verifies that the current record was terminated by a record
// separator.
func (r *Reader) EndRecord() error {
	if !r.cur.atRecordEnd() {
		if r.cur.state == StateStreamEnd {
			return r.formatError("unterminated record at end of stream", nil)
		}
		return r.formatError("record separator expected", nil)
	}
	return nil
}

// Close closes the underlying stream if it is an io.Closer.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// State returns the current cursor state.
func (r *Reader) State() State {
	return r.cur.state
}

// Offset returns the byte offset of the lookahead, which is the first byte
// of the next cell or record.
func (r *Reader) Offset() int64 {
	if r.cur.lookahead == eof {
		return r.offset
	}
	return r.offset - 1
}

// Record returns the 1-based number of the current record.
func (r *Reader) Record() int64 {
	return r.record
}

// Fill decodes the next cell into o, dispatching on its kind.
func (r *Reader) Fill(o value.Option) error {
	switch o := o.(type) {
	case *value.BoolOption:
		return r.FillBool(o)
	case *value.ByteOption:
		return r.FillByte(o)
	case *value.ShortOption:
		return r.FillShort(o)
	case *value.IntOption:
		return r.FillInt(o)
	case *value.LongOption:
		return r.FillLong(o)
	case *value.FloatOption:
		return r.FillFloat(o)
	case *value.DoubleOption:
		return r.FillDouble(o)
	case *value.DecimalOption:
		return r.FillDecimal(o)
	case *value.StringOption:
		return r.FillString(o)
	case *value.DateOption:
		return r.FillDate(o)
	case *value.DateTimeOption:
		return r.FillDateTime(o)
	default:
		return fmt.Errorf("tsv: unsupported holder %T", o)
	}
}

// FillBool decodes a boolean cell.
func (r *Reader) FillBool(o *value.BoolOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	switch r.cur.lookahead {
	case '1':
		o.Modify(true)
	case '0':
		o.Modify(false)
	default:
		return r.formatError("invalid boolean "+describe(r.cur.lookahead), nil)
	}
	c, err := r.read()
	if err != nil {
		return err
	}
	return r.endCell(c)
}

// FillByte decodes a byte cell. Values outside the int8 range are
// truncated.
func (r *Reader) FillByte(o *value.ByteOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := readInteger[int32](r)
	if err != nil {
		return err
	}
	o.Modify(int8(v))
	return r.endCell(sep)
}

// FillShort decodes a short cell. Values outside the int16 range are
// truncated.
func (r *Reader) FillShort(o *value.ShortOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := readInteger[int32](r)
	if err != nil {
		return err
	}
	o.Modify(int16(v))
	return r.endCell(sep)
}

// FillInt decodes an int cell.
func (r *Reader) FillInt(o *value.IntOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := readInteger[int32](r)
	if err != nil {
		return err
	}
	o.Modify(v)
	return r.endCell(sep)
}

// FillLong decodes a long cell.
func (r *Reader) FillLong(o *value.LongOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := readInteger[int64](r)
	if err != nil {
		return err
	}
	o.Modify(v)
	return r.endCell(sep)
}

// FillFloat decodes a float cell.
func (r *Reader) FillFloat(o *value.FloatOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := r.readFloat(32)
	if err != nil {
		return err
	}
	o.Modify(float32(v))
	return r.endCell(sep)
}

// FillDouble decodes a double cell.
func (r *Reader) FillDouble(o *value.DoubleOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	v, sep, err := r.readFloat(64)
	if err != nil {
		return err
	}
	o.Modify(v)
	return r.endCell(sep)
}

// FillDecimal decodes a decimal cell.
func (r *Reader) FillDecimal(o *value.DecimalOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	span, sep, err := r.readSpan()
	if err != nil {
		return err
	}
	if err := o.ModifyString(string(span)); err != nil {
		return r.formatError("invalid decimal", err)
	}
	return r.endCell(sep)
}

// FillString decodes a text cell, undoing escapes. Text of any length is
// staged through a fixed buffer and appended to o.
func (r *Reader) FillString(o *value.StringOption) error {
	if !r.cur.canStartCell() {
		return r.formatError(r.cur.cellStartError(), nil)
	}
	r.cur.state = StateInCell
	o.Reset()
	r.chunk = r.chunk[:0]

	c := r.cur.lookahead
	switch {
	case c == EscapeChar:
		r.cur.state = StateMidEscape
		next, err := r.read()
		if err != nil {
			return err
		}
		if next == NullMarker {
			o.SetNull()
			if c, err = r.read(); err != nil {
				return err
			}
			return r.endCell(c)
		}
		b, err := r.unescape(next)
		if err != nil {
			return err
		}
		r.chunk = append(r.chunk, b)
	case isSeparator(c):
		return r.endCell(c)
	default:
		r.chunk = append(r.chunk, byte(c))
	}

	for {
		c, err := r.read()
		if err != nil {
			return err
		}
		if isSeparator(c) {
			o.Append(r.chunk)
			return r.endCell(c)
		}
		if c == EscapeChar {
			r.cur.state = StateMidEscape
			trailing, err := r.read()
			if err != nil {
				return err
			}
			b, err := r.unescape(trailing)
			if err != nil {
				return err
			}
			r.chunk = append(r.chunk, b)
		} else {
			r.chunk = append(r.chunk, byte(c))
		}
		if len(r.chunk) == cap(r.chunk) {
			o.Append(r.chunk)
			r.chunk = r.chunk[:0]
		}
	}
}

// FillDate decodes a YYYY-MM-DD cell. A zero year, month or day decodes
// as null.
func (r *Reader) FillDate(o *value.DateOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	year, month, day, err := r.readDate()
	if err != nil {
		return err
	}
	c, err := r.read()
	if err != nil {
		return err
	}
	if !isSeparator(c) {
		return r.formatError("missing separator after date, got "+describe(c), nil)
	}
	if year == 0 || month == 0 || day == 0 {
		o.SetNull()
	} else {
		o.Modify(calendar.DayFromDate(year, month, day))
	}
	return r.endCell(c)
}

// FillDateTime decodes a YYYY-MM-DD HH:MM:SS cell. A zero year, month or
// day decodes as null.
func (r *Reader) FillDateTime(o *value.DateTimeOption) error {
	if done, err := r.beginCell(o); done || err != nil {
		return err
	}
	year, month, day, err := r.readDate()
	if err != nil {
		return err
	}
	if err := r.consume(dateTimeSeparator); err != nil {
		return err
	}
	hour, err := r.readDigits(2)
	if err != nil {
		return err
	}
	if err := r.consume(timeSeparator); err != nil {
		return err
	}
	minute, err := r.readDigits(2)
	if err != nil {
		return err
	}
	if err := r.consume(timeSeparator); err != nil {
		return err
	}
	second, err := r.readDigits(2)
	if err != nil {
		return err
	}
	c, err := r.read()
	if err != nil {
		return err
	}
	if !isSeparator(c) {
		return r.formatError("missing separator after datetime, got "+describe(c), nil)
	}
	if year == 0 || month == 0 || day == 0 {
		o.SetNull()
	} else {
		o.Modify(calendar.SecondFromDateTime(year, month, day, hour, minute, second))
	}
	return r.endCell(c)
}

// beginCell checks that a cell may start here and consumes a null marker.
// It reports done when the cell was null and has been consumed.
func (r *Reader) beginCell(o value.Option) (done bool, err error) {
	if !r.cur.canStartCell() {
		return false, r.formatError(r.cur.cellStartError(), nil)
	}
	r.cur.state = StateInCell
	if r.cur.lookahead != EscapeChar {
		return false, nil
	}

	r.cur.state = StateMidEscape
	c, err := r.read()
	if err != nil {
		return false, err
	}
	if c != NullMarker {
		return false, r.formatError(fmt.Sprintf("cannot recognize escape %s for %v", describe(c), o.Kind()), nil)
	}
	o.SetNull()
	if c, err = r.read(); err != nil {
		return false, err
	}
	return true, r.endCell(c)
}

// endCell requires c to be a separator, records it and refills the
// lookahead.
func (r *Reader) endCell(c int) error {
	if !isSeparator(c) {
		return r.formatError("missing separator, got "+describe(c), nil)
	}
	r.cur.endCell(c)
	r.cell++
	next, err := r.read()
	if err != nil {
		return err
	}
	r.cur.lookahead = next
	return nil
}

// readInteger decodes an optionally negative decimal integer starting at
// the lookahead and returns it with the separator that ended it. Overflow
// wraps.
func readInteger[T int32 | int64](r *Reader) (T, int, error) {
	c := r.cur.lookahead
	negative := false
	if c == '-' {
		negative = true
		var err error
		if c, err = r.read(); err != nil {
			return 0, 0, err
		}
	}
	if isSeparator(c) {
		return 0, 0, r.formatError("empty number", nil)
	}

	var v T
	for !isSeparator(c) {
		if c < '0' || c > '9' {
			return 0, 0, r.formatError("invalid character in number "+describe(c), nil)
		}
		v = v*10 + T(c-'0')
		var err error
		if c, err = r.read(); err != nil {
			return 0, 0, err
		}
	}
	if negative {
		v = -v
	}
	return v, c, nil
}

// readFloat decodes the current cell as a float of the given bit size and
// returns it with the separator that ended it.
func (r *Reader) readFloat(bitSize int) (float64, int, error) {
	span, sep, err := r.readSpan()
	if err != nil {
		return 0, 0, err
	}
	text := string(span)
	v, err := strconv.ParseFloat(text, bitSize)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		// out of range values saturate to infinity or zero
		return v, sep, nil
	}
	m := specialFloat.FindStringSubmatchIndex(text)
	switch {
	case m == nil:
		return 0, 0, r.formatError(fmt.Sprintf("invalid floating-point number %q", text), nil)
	case m[2] >= 0:
		return math.Inf(1), sep, nil
	case m[4] >= 0:
		return math.Inf(-1), sep, nil
	default:
		return math.NaN(), sep, nil
	}
}

// readSpan collects the raw bytes of the current cell into the scratch
// buffer. The result aliases the scratch buffer and is valid until the next
// call.
func (r *Reader) readSpan() ([]byte, int, error) {
	c := r.cur.lookahead
	if isSeparator(c) {
		return nil, 0, r.formatError("empty value", nil)
	}
	r.scratch = append(r.scratch[:0], byte(c))
	for {
		c, err := r.read()
		if err != nil {
			return nil, 0, err
		}
		if isSeparator(c) {
			return r.scratch, c, nil
		}
		r.scratch = append(r.scratch, byte(c))
	}
}

// readDate reads YYYY-MM-DD starting at the lookahead.
func (r *Reader) readDate() (year, month, day int, err error) {
	first, err := r.digit(r.cur.lookahead)
	if err != nil {
		return 0, 0, 0, err
	}
	rest, err := r.readDigits(3)
	if err != nil {
		return 0, 0, 0, err
	}
	year = first*1000 + rest
	if err = r.consume(dateSeparator); err != nil {
		return 0, 0, 0, err
	}
	if month, err = r.readDigits(2); err != nil {
		return 0, 0, 0, err
	}
	if month > 12 {
		return 0, 0, 0, r.formatError(fmt.Sprintf("month %d out of range", month), nil)
	}
	if err = r.consume(dateSeparator); err != nil {
		return 0, 0, 0, err
	}
	if day, err = r.readDigits(2); err != nil {
		return 0, 0, 0, err
	}
	return year, month, day, nil
}

// readDigits reads exactly n decimal digits.
func (r *Reader) readDigits(n int) (int, error) {
	total := 0
	for i := 0; i < n; i++ {
		c, err := r.read()
		if err != nil {
			return 0, err
		}
		d, err := r.digit(c)
		if err != nil {
			return 0, err
		}
		total = total*10 + d
	}
	return total, nil
}

func (r *Reader) digit(c int) (int, error) {
	if c < '0' || c > '9' {
		return 0, r.formatError("invalid character in number "+describe(c), nil)
	}
	return c - '0', nil
}

// consume reads one byte and requires it to be expect.
func (r *Reader) consume(expect byte) error {
	c, err := r.read()
	if err != nil {
		return err
	}
	if c != int(expect) {
		return r.formatError(fmt.Sprintf("expected %q, got %s", expect, describe(c)), nil)
	}
	return nil
}

// unescape maps the byte after an escape character to its literal value.
func (r *Reader) unescape(c int) (byte, error) {
	switch c {
	case EscapeChar:
		r.cur.state = StateInCell
		return EscapeChar, nil
	case CellSeparator:
		r.cur.state = StateInCell
		return CellSeparator, nil
	case RecordSeparator:
		r.cur.state = StateInCell
		return RecordSeparator, nil
	default:
		return 0, r.formatError("invalid escape sequence "+describe(c), nil)
	}
}

// read returns the next byte of the stream, or eof. Transcoding failures
// are reported as format errors.
func (r *Reader) read() (int, error) {
	b, err := r.in.ReadByte()
	if err != nil {
		if err == io.EOF {
			return eof, nil
		}
		if r.src.isDecodeError(err) {
			return 0, r.formatError("malformed character data", err)
		}
		return 0, err
	}
	r.offset++
	return int(b), nil
}

func (r *Reader) formatError(msg string, cause error) *FormatError {
	return &FormatError{
		Record: r.record,
		Cell:   r.cell,
		Offset: r.offset,
		State:  r.cur.state,
		Msg:    msg,
		Err:    cause,
	}
}
