package tsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorTransitions(t *testing.T) {
	c := cursor{state: StateRecordEnd, lookahead: 'a'}
	assert.False(t, c.canStartCell(), "no cell before Next")
	assert.True(t, c.atRecordEnd())
	assert.Contains(t, c.cellStartError(), "record already ended")

	c.beginRecord()
	assert.True(t, c.canStartCell())
	assert.False(t, c.atRecordEnd())

	c.endCell(CellSeparator)
	assert.Equal(t, StateCellBoundary, c.state)
	assert.True(t, c.canStartCell())
	assert.False(t, c.atRecordEnd())

	c.endCell(RecordSeparator)
	assert.Equal(t, StateRecordEnd, c.state)
	assert.False(t, c.canStartCell())
	assert.True(t, c.atRecordEnd())

	c.beginRecord()
	c.endCell(eof)
	assert.Equal(t, StateStreamEnd, c.state)
	assert.False(t, c.atRecordEnd())
	assert.Contains(t, c.cellStartError(), "end of stream")
}

func TestCursorRejectsCellAtEOF(t *testing.T) {
	c := cursor{state: StateCellBoundary, lookahead: eof}
	assert.False(t, c.canStartCell())

	c = cursor{state: StateMidEscape, lookahead: 'x'}
	assert.False(t, c.canStartCell())
	assert.Contains(t, c.cellStartError(), "incomplete")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "mid-escape", StateMidEscape.String())
	assert.Equal(t, "unknown", State(99).String())
}
