package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/asakusafw/asakusafw-sub019/pkg/calendar"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

// Record is a reusable set of holders laid out by a schema.
type Record struct {
	schema *Schema
	cells  []value.Option
}

// Schema returns the record layout.
func (r *Record) Schema() *Schema { return r.schema }

// Len returns the number of cells.
func (r *Record) Len() int { return len(r.cells) }

// Cell returns the holder at i.
func (r *Record) Cell(i int) value.Option { return r.cells[i] }

// Reset sets every cell to null.
func (r *Record) Reset() {
	for _, c := range r.cells {
		c.SetNull()
	}
}

// Fill reads every cell of the current record and its terminator from rd.
// Next must have returned true. A null in a non-nullable field is reported
// with ErrNullViolation after the whole record is consumed, so the reader
// stays usable.
func (r *Record) Fill(rd *tsv.Reader) error {
	for _, c := range r.cells {
		if err := rd.Fill(c); err != nil {
			return err
		}
	}
	if err := rd.EndRecord(); err != nil {
		return err
	}
	return r.Check()
}

// Emit writes every cell and the record terminator to w. Nothing is
// written when Check fails.
func (r *Record) Emit(w *tsv.Writer) error {
	if err := r.Check(); err != nil {
		return err
	}
	for _, c := range r.cells {
		if err := w.Emit(c); err != nil {
			return err
		}
	}
	return w.EndRecord()
}

// Check reports the first non-nullable field that holds null.
func (r *Record) Check() error {
	for i, c := range r.cells {
		if c.IsNull() && !r.schema.Fields[i].Nullable {
			return fmt.Errorf("%w: %s.%s", ErrNullViolation, r.schema.Name, r.schema.Fields[i].Name)
		}
	}
	return nil
}

// MarshalTSV encodes the record as one TSV line including its terminator.
func (r *Record) MarshalTSV() ([]byte, error) {
	var buf bytes.Buffer
	w := tsv.NewWriter(&buf, tsv.WriterConfig{})
	if err := r.Emit(w); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalTSV decodes exactly one TSV record from data.
func (r *Record) UnmarshalTSV(data []byte) error {
	rd, err := tsv.NewReader(bytes.NewReader(data), tsv.ReaderConfig{})
	if err != nil {
		return err
	}
	defer rd.Close()
	ok, err := rd.Next()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: empty record", tsv.ErrFormat)
	}
	if err := r.Fill(rd); err != nil {
		return err
	}
	if more, err := rd.Next(); err != nil || more {
		return fmt.Errorf("%w: trailing data after record", tsv.ErrFormat)
	}
	return nil
}

// Values returns the cells as JSON friendly values: nil for null, bool,
// integer and float64 numbers, and strings for decimals, text and dates.
// Non-finite floats become the strings "NaN", "+Inf" and "-Inf".
func (r *Record) Values() []any {
	out := make([]any, len(r.cells))
	for i, c := range r.cells {
		out[i] = jsonValue(c)
	}
	return out
}

// Map returns Values keyed by field name.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.cells))
	for i, c := range r.cells {
		m[r.schema.Fields[i].Name] = jsonValue(c)
	}
	return m
}

// SetMap assigns the named values with Set. Unknown names are errors and
// fields absent from m become null.
func (r *Record) SetMap(m map[string]any) error {
	for name := range m {
		if r.schema.Index(name) < 0 {
			return fmt.Errorf("unknown field %q in %s", name, r.schema.Name)
		}
	}
	for i, f := range r.schema.Fields {
		if err := r.Set(i, m[f.Name]); err != nil {
			return err
		}
	}
	return nil
}

func jsonValue(c value.Option) any {
	if c.IsNull() {
		return nil
	}
	switch c := c.(type) {
	case *value.BoolOption:
		return c.Get()
	case *value.ByteOption:
		return c.Get()
	case *value.ShortOption:
		return c.Get()
	case *value.IntOption:
		return c.Get()
	case *value.LongOption:
		return c.Get()
	case *value.FloatOption:
		return floatValue(float64(c.Get()), 32)
	case *value.DoubleOption:
		return floatValue(c.Get(), 64)
	case *value.DecimalOption:
		return c.Get().String()
	case *value.StringOption:
		return c.Get()
	case *value.DateOption:
		return calendar.FormatDate(c.Get())
	case *value.DateTimeOption:
		return calendar.FormatDateTime(c.Get())
	}
	return nil
}

func floatValue(f float64, bitSize int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bitSize)
	}
	return f
}

// Set assigns v to cell i. Accepted inputs are nil, bool, Go integers and
// floats, json.Number, *apd.Decimal, time.Time, and strings in the cell's
// text form.
func (r *Record) Set(i int, v any) error {
	if i < 0 || i >= len(r.cells) {
		return fmt.Errorf("field index %d out of range", i)
	}
	if err := set(r.cells[i], v); err != nil {
		return fmt.Errorf("field %q: %w", r.schema.Fields[i].Name, err)
	}
	return nil
}

func set(c value.Option, v any) error {
	switch v := v.(type) {
	case nil:
		c.SetNull()
		return nil
	case string:
		return setString(c, v)
	case json.Number:
		return setString(c, v.String())
	case bool:
		if b, ok := c.(*value.BoolOption); ok {
			b.Modify(v)
			return nil
		}
	case int:
		return setString(c, strconv.Itoa(v))
	case int64:
		return setString(c, strconv.FormatInt(v, 10))
	case float64:
		return setFloat(c, v)
	case float32:
		return setFloat(c, float64(v))
	case *apd.Decimal:
		if d, ok := c.(*value.DecimalOption); ok {
			if v.Form != apd.Finite {
				return value.ErrNonFiniteDecimal
			}
			d.Modify(v)
			return nil
		}
	case time.Time:
		switch c := c.(type) {
		case *value.DateOption:
			c.ModifyTime(v)
			return nil
		case *value.DateTimeOption:
			c.ModifyTime(v)
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %s", v, c.Kind())
}

func setFloat(c value.Option, f float64) error {
	switch c := c.(type) {
	case *value.FloatOption:
		c.Modify(float32(f))
		return nil
	case *value.DoubleOption:
		c.Modify(f)
		return nil
	case *value.DecimalOption:
		var d apd.Decimal
		if _, err := d.SetFloat64(f); err != nil {
			return err
		}
		if d.Form != apd.Finite {
			return value.ErrNonFiniteDecimal
		}
		c.Modify(&d)
		return nil
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return fmt.Errorf("%v is not an exact integer", f)
	}
	return setString(c, strconv.FormatInt(int64(f), 10))
}

func setString(c value.Option, s string) error {
	switch c := c.(type) {
	case *value.BoolOption:
		switch strings.ToLower(s) {
		case "1", "true":
			c.Modify(true)
		case "0", "false":
			c.Modify(false)
		default:
			return fmt.Errorf("invalid boolean %q", s)
		}
	case *value.ByteOption:
		n, err := strconv.ParseInt(s, 10, 8)
		if err != nil {
			return err
		}
		c.Modify(int8(n))
	case *value.ShortOption:
		n, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return err
		}
		c.Modify(int16(n))
	case *value.IntOption:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return err
		}
		c.Modify(int32(n))
	case *value.LongOption:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		c.Modify(n)
	case *value.FloatOption:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		c.Modify(float32(f))
	case *value.DoubleOption:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		c.Modify(f)
	case *value.DecimalOption:
		return c.ModifyString(s)
	case *value.StringOption:
		c.Modify(s)
	case *value.DateOption:
		days := calendar.ParseDate(s)
		if days < 0 {
			return fmt.Errorf("invalid date %q", s)
		}
		c.Modify(days)
	case *value.DateTimeOption:
		seconds := calendar.ParseDateTime(s)
		if seconds < 0 {
			return fmt.Errorf("invalid datetime %q", s)
		}
		c.Modify(seconds)
	default:
		return fmt.Errorf("unsupported holder %T", c)
	}
	return nil
}
