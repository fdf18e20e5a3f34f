package value

// StringOption holds nullable text as UTF-8 bytes. The backing buffer is
// kept across mutations so a reused holder stops allocating once it has
// grown to the longest value seen.
type StringOption struct {
	buf     []byte
	present bool
}

// NewString returns a StringOption holding s.
func NewString(s string) *StringOption { return new(StringOption).Modify(s) }

func (o *StringOption) Kind() Kind { return KindString }

func (o *StringOption) IsNull() bool { return !o.present }

func (o *StringOption) SetNull() {
	o.buf = o.buf[:0]
	o.present = false
}

// Reset sets the value to the empty string.
func (o *StringOption) Reset() *StringOption {
	o.buf = o.buf[:0]
	o.present = true
	return o
}

// Append appends p to the value. A null holder becomes present first.
func (o *StringOption) Append(p []byte) *StringOption {
	if !o.present {
		o.Reset()
	}
	o.buf = append(o.buf, p...)
	return o
}

// Modify sets the value to s.
func (o *StringOption) Modify(s string) *StringOption {
	o.buf = append(o.buf[:0], s...)
	o.present = true
	return o
}

// Bytes returns the value. The slice aliases the holder's buffer and is
// only valid until the next mutation.
func (o *StringOption) Bytes() []byte {
	return o.buf
}

// Get returns the value as a string, or "" when null.
func (o *StringOption) Get() string {
	return string(o.buf)
}

// Len returns the length of the value in bytes.
func (o *StringOption) Len() int {
	return len(o.buf)
}
