// Package value provides nullable, in-place mutable holders for the scalar
// cell types of a record.
//
// The zero value of every holder is null. Codecs fill holders supplied by the
// caller, so one set of holders can be reused for every record of a stream.
package value

import "fmt"

// Kind identifies the scalar type of a holder.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindByte
	KindShort
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindDecimal
	KindString
	KindDate
	KindDateTime
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindBool:     "boolean",
	KindByte:     "byte",
	KindShort:    "short",
	KindInt:      "int",
	KindLong:     "long",
	KindFloat:    "float",
	KindDouble:   "double",
	KindDecimal:  "decimal",
	KindString:   "text",
	KindDate:     "date",
	KindDateTime: "datetime",
}

// String returns the type name used in schema files.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the kind named name.
func ParseKind(name string) (Kind, error) {
	for k := KindBool; k <= KindDateTime; k++ {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown value type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindInvalid || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("cannot marshal %v", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Option is a nullable holder of one scalar kind.
type Option interface {
	Kind() Kind
	IsNull() bool
	SetNull()
}

// New returns a null holder of kind k.
func New(k Kind) (Option, error) {
	switch k {
	case KindBool:
		return new(BoolOption), nil
	case KindByte:
		return new(ByteOption), nil
	case KindShort:
		return new(ShortOption), nil
	case KindInt:
		return new(IntOption), nil
	case KindLong:
		return new(LongOption), nil
	case KindFloat:
		return new(FloatOption), nil
	case KindDouble:
		return new(DoubleOption), nil
	case KindDecimal:
		return new(DecimalOption), nil
	case KindString:
		return new(StringOption), nil
	case KindDate:
		return new(DateOption), nil
	case KindDateTime:
		return new(DateTimeOption), nil
	default:
		return nil, fmt.Errorf("no holder for %v", k)
	}
}
