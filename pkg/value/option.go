package value

// scalar is the storage shared by the fixed-size holders.
type scalar[T any] struct {
	value   T
	present bool
}

// IsNull reports whether the holder has no value.
func (s *scalar[T]) IsNull() bool {
	return !s.present
}

// SetNull discards the value.
func (s *scalar[T]) SetNull() {
	var zero T
	s.value = zero
	s.present = false
}

// Get returns the value, or the zero value of T when null.
func (s *scalar[T]) Get() T {
	return s.value
}

func (s *scalar[T]) set(v T) {
	s.value = v
	s.present = true
}

// BoolOption holds a nullable boolean.
type BoolOption struct{ scalar[bool] }

// NewBool returns a BoolOption holding v.
func NewBool(v bool) *BoolOption { return new(BoolOption).Modify(v) }

func (o *BoolOption) Kind() Kind { return KindBool }

// Modify sets the value.
func (o *BoolOption) Modify(v bool) *BoolOption {
	o.set(v)
	return o
}

// ByteOption holds a nullable 8-bit signed integer.
type ByteOption struct{ scalar[int8] }

// NewByte returns a ByteOption holding v.
func NewByte(v int8) *ByteOption { return new(ByteOption).Modify(v) }

func (o *ByteOption) Kind() Kind { return KindByte }

// Modify sets the value.
func (o *ByteOption) Modify(v int8) *ByteOption {
	o.set(v)
	return o
}

// ShortOption holds a nullable 16-bit signed integer.
type ShortOption struct{ scalar[int16] }

// NewShort returns a ShortOption holding v.
func NewShort(v int16) *ShortOption { return new(ShortOption).Modify(v) }

func (o *ShortOption) Kind() Kind { return KindShort }

// Modify sets the value.
func (o *ShortOption) Modify(v int16) *ShortOption {
	o.set(v)
	return o
}

// IntOption holds a nullable 32-bit signed integer.
type IntOption struct{ scalar[int32] }

// NewInt returns an IntOption holding v.
func NewInt(v int32) *IntOption { return new(IntOption).Modify(v) }

func (o *IntOption) Kind() Kind { return KindInt }

// Modify sets the value.
func (o *IntOption) Modify(v int32) *IntOption {
	o.set(v)
	return o
}

// LongOption holds a nullable 64-bit signed integer.
type LongOption struct{ scalar[int64] }

// NewLong returns a LongOption holding v.
func NewLong(v int64) *LongOption { return new(LongOption).Modify(v) }

func (o *LongOption) Kind() Kind { return KindLong }

// Modify sets the value.
func (o *LongOption) Modify(v int64) *LongOption {
	o.set(v)
	return o
}

// FloatOption holds a nullable 32-bit IEEE 754 number.
type FloatOption struct{ scalar[float32] }

// NewFloat returns a FloatOption holding v.
func NewFloat(v float32) *FloatOption { return new(FloatOption).Modify(v) }

func (o *FloatOption) Kind() Kind { return KindFloat }

// Modify sets the value.
func (o *FloatOption) Modify(v float32) *FloatOption {
	o.set(v)
	return o
}

// DoubleOption holds a nullable 64-bit IEEE 754 number.
type DoubleOption struct{ scalar[float64] }

// NewDouble returns a DoubleOption holding v.
func NewDouble(v float64) *DoubleOption { return new(DoubleOption).Modify(v) }

func (o *DoubleOption) Kind() Kind { return KindDouble }

// Modify sets the value.
func (o *DoubleOption) Modify(v float64) *DoubleOption {
	o.set(v)
	return o
}
