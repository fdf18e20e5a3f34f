package tsv

// State is the position of a Reader within the record grammar.
type State uint8

const (
	// StateRecordEnd follows a record separator, and is the initial state.
	// No cell may start until Next is called.
	StateRecordEnd State = iota
	// StateRecordStart follows Next: the lookahead is the first byte of
	// the record.
	StateRecordStart
	// StateCellBoundary follows a cell separator.
	StateCellBoundary
	// StateInCell is inside a cell body.
	StateInCell
	// StateMidEscape follows an escape character.
	StateMidEscape
	// StateStreamEnd follows a cell that was terminated by the end of the
	// stream instead of a separator.
	StateStreamEnd
)

var stateNames = [...]string{
	StateRecordEnd:    "record-end",
	StateRecordStart:  "record-start",
	StateCellBoundary: "cell-boundary",
	StateInCell:       "in-cell",
	StateMidEscape:    "mid-escape",
	StateStreamEnd:    "stream-end",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// cursor is the lexer position of a Reader: the grammar state and one
// byte of lookahead.
type cursor struct {
	state     State
	lookahead int
}

// beginRecord moves to the head of a new record.
func (c *cursor) beginRecord() {
	c.state = StateRecordStart
}

// canStartCell reports whether a cell may be read at the lookahead.
func (c *cursor) canStartCell() bool {
	return (c.state == StateRecordStart || c.state == StateCellBoundary) && c.lookahead != eof
}

// cellStartError explains why canStartCell is false.
func (c *cursor) cellStartError() string {
	switch {
	case c.state == StateRecordEnd:
		return "cell is not started: record already ended"
	case c.state == StateStreamEnd || c.lookahead == eof:
		return "cell is not started: unexpected end of stream"
	default:
		return "cell is not started: previous cell is incomplete"
	}
}

// endCell records the separator that terminated the current cell.
func (c *cursor) endCell(separator int) {
	switch separator {
	case CellSeparator:
		c.state = StateCellBoundary
	case RecordSeparator:
		c.state = StateRecordEnd
	default:
		c.state = StateStreamEnd
	}
}

// atRecordEnd reports whether the last cell was terminated by a record
// separator.
func (c *cursor) atRecordEnd() bool {
	return c.state == StateRecordEnd
}
