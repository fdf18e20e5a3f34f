package tsv

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// LookupCharset returns the encoding registered under name, such as
// "shift_jis" or "windows-1252". It returns nil for UTF-8 and for the empty
// name, which Reader and Writer treat as native UTF-8.
func LookupCharset(name string) (encoding.Encoding, error) {
	if name == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return nil, nil
	}
	return enc, nil
}

// decodingReader returns src transcoded to strictly valid UTF-8.
func decodingReader(src io.Reader, charset encoding.Encoding) io.Reader {
	if charset == nil {
		return transform.NewReader(src, encoding.UTF8Validator)
	}
	// x/text decoders substitute U+FFFD for bytes they cannot map; treat
	// any substitution as malformed input.
	return transform.NewReader(src, transform.Chain(charset.NewDecoder(), strictUTF8{rejectReplacement: true}))
}

// sourceReader remembers the last failure of the underlying stream so that
// it can be told apart from transcoding failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// isDecodeError reports whether err came from transcoding rather than
// from the underlying stream.
func (s *sourceReader) isDecodeError(err error) bool {
	if s.err != nil && errors.Is(err, s.err) {
		return false
	}
	return true
}

// strictUTF8 copies valid UTF-8 and fails on anything else.
type strictUTF8 struct {
	transform.NopResetter
	rejectReplacement bool
}

func (t strictUTF8) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if c := src[nSrc]; c < utf8.RuneSelf {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError {
			if size == 1 {
				if !atEOF && !utf8.FullRune(src[nSrc:]) {
					return nDst, nSrc, transform.ErrShortSrc
				}
				return nDst, nSrc, errMalformedInput
			}
			if t.rejectReplacement {
				return nDst, nSrc, errMalformedInput
			}
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], src[nSrc:nSrc+size])
		nSrc += size
	}
	return nDst, nSrc, nil
}
