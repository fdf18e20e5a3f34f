package postgres

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/asakusafw/asakusafw-sub019/pkg/calendar"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

// toPG converts a holder to a value pgx can encode for its column type.
// Null becomes nil.
func toPG(o value.Option) (any, error) {
	if o.IsNull() {
		return nil, nil
	}
	switch o := o.(type) {
	case *value.BoolOption:
		return o.Get(), nil
	case *value.ByteOption:
		return int16(o.Get()), nil
	case *value.ShortOption:
		return o.Get(), nil
	case *value.IntOption:
		return o.Get(), nil
	case *value.LongOption:
		return o.Get(), nil
	case *value.FloatOption:
		return o.Get(), nil
	case *value.DoubleOption:
		return o.Get(), nil
	case *value.DecimalOption:
		return numericOf(o.Get()), nil
	case *value.StringOption:
		return o.Get(), nil
	case *value.DateOption:
		return pgtype.Date{Time: o.Time(), Valid: true}, nil
	case *value.DateTimeOption:
		return pgtype.Timestamp{Time: o.Time(), Valid: true}, nil
	}
	return nil, fmt.Errorf("unsupported holder %T", o)
}

func numericOf(d *apd.Decimal) pgtype.Numeric {
	coeff := new(big.Int).Set(d.Coeff.MathBigInt())
	if d.Negative {
		coeff.Neg(coeff)
	}
	return pgtype.Numeric{Int: coeff, Exp: d.Exponent, Valid: true}
}

func decimalOf(n pgtype.Numeric) (*apd.Decimal, error) {
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return nil, value.ErrNonFiniteDecimal
	}
	coeff := new(big.Int)
	if n.Int != nil {
		coeff.Set(n.Int)
	}
	negative := coeff.Sign() < 0
	if negative {
		coeff.Neg(coeff)
	}
	d := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(coeff), n.Exp)
	d.Negative = negative
	return d, nil
}

// scanTargets holds one pgtype destination per schema field.
type scanTargets struct {
	dest []any
}

func newScanTargets(s *schema.Schema) *scanTargets {
	dest := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		switch f.Type {
		case value.KindBool:
			dest[i] = new(pgtype.Bool)
		case value.KindByte, value.KindShort:
			dest[i] = new(pgtype.Int2)
		case value.KindInt:
			dest[i] = new(pgtype.Int4)
		case value.KindLong:
			dest[i] = new(pgtype.Int8)
		case value.KindFloat:
			dest[i] = new(pgtype.Float4)
		case value.KindDouble:
			dest[i] = new(pgtype.Float8)
		case value.KindDecimal:
			dest[i] = new(pgtype.Numeric)
		case value.KindString:
			dest[i] = new(pgtype.Text)
		case value.KindDate:
			dest[i] = new(pgtype.Date)
		case value.KindDateTime:
			dest[i] = new(pgtype.Timestamp)
		}
	}
	return &scanTargets{dest: dest}
}

// assign copies the scanned values into rec.
func (t *scanTargets) assign(rec *schema.Record) error {
	for i, d := range t.dest {
		cell := rec.Cell(i)
		if err := assignCell(cell, d); err != nil {
			return fmt.Errorf("column %s: %w", rec.Schema().Fields[i].Name, err)
		}
	}
	return nil
}

func assignCell(cell value.Option, src any) error {
	switch src := src.(type) {
	case *pgtype.Bool:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.BoolOption).Modify(src.Bool)
	case *pgtype.Int2:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		switch cell := cell.(type) {
		case *value.ByteOption:
			if src.Int16 < math.MinInt8 || src.Int16 > math.MaxInt8 {
				return fmt.Errorf("%d out of byte range", src.Int16)
			}
			cell.Modify(int8(src.Int16))
		case *value.ShortOption:
			cell.Modify(src.Int16)
		}
	case *pgtype.Int4:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.IntOption).Modify(src.Int32)
	case *pgtype.Int8:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.LongOption).Modify(src.Int64)
	case *pgtype.Float4:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.FloatOption).Modify(src.Float32)
	case *pgtype.Float8:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.DoubleOption).Modify(src.Float64)
	case *pgtype.Numeric:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		d, err := decimalOf(*src)
		if err != nil {
			return err
		}
		cell.(*value.DecimalOption).Modify(d)
	case *pgtype.Text:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		cell.(*value.StringOption).Modify(src.String)
	case *pgtype.Date:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		if src.InfinityModifier != pgtype.Finite {
			return fmt.Errorf("infinite date")
		}
		if !calendar.ValidYear(src.Time.Year()) {
			return fmt.Errorf("date %s: %w", src.Time.Format("2006-01-02"), tsv.ErrDateRange)
		}
		cell.(*value.DateOption).ModifyTime(src.Time)
	case *pgtype.Timestamp:
		if !src.Valid {
			cell.SetNull()
			return nil
		}
		if src.InfinityModifier != pgtype.Finite {
			return fmt.Errorf("infinite timestamp")
		}
		if !calendar.ValidYear(src.Time.Year()) {
			return fmt.Errorf("timestamp %s: %w", src.Time.Format(time.DateTime), tsv.ErrDateRange)
		}
		cell.(*value.DateTimeOption).ModifyTime(src.Time)
	default:
		return fmt.Errorf("unsupported scan target %T", src)
	}
	return nil
}
