package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(`
name: events
fields:
  - {name: id, type: long}
  - {name: body, type: text}
  - {name: at, type: datetime, nullable: true}
`))
	require.NoError(t, err)
	return s
}

func testRecord(t *testing.T, s *schema.Schema, id int64, body string) *schema.Record {
	t.Helper()
	rec := s.NewRecord()
	require.NoError(t, rec.Set(0, id))
	require.NoError(t, rec.Set(1, body))
	return rec
}
