package tsv

const (
	// CellSeparator ends every cell but the last of a record.
	CellSeparator = '\t'
	// RecordSeparator ends every record.
	RecordSeparator = '\n'
	// EscapeChar starts an escape sequence.
	EscapeChar = '\\'
	// NullMarker follows EscapeChar in a null cell.
	NullMarker = 'N'

	// eof is the lookahead value at the end of the stream.
	eof = -1

	dateSeparator     = '-'
	dateTimeSeparator = ' '
	timeSeparator     = ':'

	defaultBufferSize = 4096
	textChunkSize     = 2048
	initialScratch    = 64
)

// null is the complete encoding of a null cell.
var null = []byte{EscapeChar, NullMarker}

func isSeparator(c int) bool {
	return c == eof || c == CellSeparator || c == RecordSeparator
}
