package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// copySource feeds TSV records to CopyFrom.
type copySource struct {
	reader *tsv.Reader
	record *schema.Record
	values []any
	err    error
}

var _ pgx.CopyFromSource = (*copySource)(nil)

func newCopySource(reader *tsv.Reader, s *schema.Schema) *copySource {
	return &copySource{reader: reader, record: s.NewRecord()}
}

func (c *copySource) Next() bool {
	if c.err != nil {
		return false
	}
	ok, err := c.reader.Next()
	if err != nil {
		c.err = err
		return false
	}
	if !ok {
		return false
	}
	if err := c.record.Fill(c.reader); err != nil {
		c.err = fmt.Errorf("record %d: %w", c.reader.Record(), err)
		return false
	}
	// COPY encodes each row before asking for the next one, but a fresh
	// slice keeps the source safe for any consumer.
	values := make([]any, c.record.Len())
	for i := range values {
		v, err := toPG(c.record.Cell(i))
		if err != nil {
			c.err = fmt.Errorf("record %d field %s: %w", c.reader.Record(), c.record.Schema().Fields[i].Name, err)
			return false
		}
		values[i] = v
	}
	c.values = values
	return true
}

func (c *copySource) Values() ([]any, error) {
	return c.values, c.err
}

func (c *copySource) Err() error {
	return c.err
}
