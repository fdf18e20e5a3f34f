package value

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// ErrNonFiniteDecimal is returned when a decimal is infinite or NaN.
var ErrNonFiniteDecimal = errors.New("decimal value must be finite")

// DecimalOption holds a nullable arbitrary-precision decimal.
type DecimalOption struct {
	value   apd.Decimal
	present bool
}

// NewDecimal returns a DecimalOption holding a copy of d.
func NewDecimal(d *apd.Decimal) *DecimalOption { return new(DecimalOption).Modify(d) }

// NewDecimalString returns a DecimalOption holding the decimal s, for
// example "-10.50" or "1E+3".
func NewDecimalString(s string) (*DecimalOption, error) {
	o := new(DecimalOption)
	if err := o.ModifyString(s); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *DecimalOption) Kind() Kind { return KindDecimal }

func (o *DecimalOption) IsNull() bool { return !o.present }

func (o *DecimalOption) SetNull() {
	o.value.SetInt64(0)
	o.present = false
}

// Get returns the held decimal. The result is owned by the holder and
// changes on the next mutation.
func (o *DecimalOption) Get() *apd.Decimal {
	return &o.value
}

// Modify sets the value to a copy of d.
func (o *DecimalOption) Modify(d *apd.Decimal) *DecimalOption {
	o.value.Set(d)
	o.present = true
	return o
}

// ModifyString parses s and sets the value. The holder is unchanged on error.
func (o *DecimalOption) ModifyString(s string) error {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return fmt.Errorf("invalid decimal %q: %w", s, ErrNonFiniteDecimal)
	}
	o.Modify(&d)
	return nil
}
