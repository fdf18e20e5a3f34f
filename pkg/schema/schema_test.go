package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

const ordersYAML = `
name: orders
fields:
  - name: id
    type: long
  - name: item
    type: text
  - name: price
    type: decimal
  - name: ordered
    type: date
    nullable: true
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(ordersYAML))
	require.NoError(t, err)

	assert.Equal(t, "orders", s.Name)
	require.Len(t, s.Fields, 4)
	assert.Equal(t, Field{Name: "id", Type: value.KindLong}, s.Fields[0])
	assert.Equal(t, value.KindString, s.Fields[1].Type)
	assert.Equal(t, Field{Name: "ordered", Type: value.KindDate, Nullable: true}, s.Fields[3])
	assert.Equal(t, 2, s.Index("price"))
	assert.Equal(t, -1, s.Index("missing"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"not yaml", "name: [", "invalid schema"},
		{"unknown type", "name: a\nfields:\n  - {name: x, type: money}\n", "unknown value type"},
		{"no fields", "name: a\n", "has no fields"},
		{"bad schema name", "name: 'a b'\nfields:\n  - {name: x, type: int}\n", "bad schema name"},
		{"bad field name", "name: a\nfields:\n  - {name: '1x', type: int}\n", "bad name"},
		{"duplicate field", "name: a\nfields:\n  - {name: x, type: int}\n  - {name: x, type: text}\n", "duplicate field"},
		{"missing type", "name: a\nfields:\n  - {name: x}\n", "field \"x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := Parse([]byte(ordersYAML))
	require.NoError(t, err)

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: decimal")

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersYAML), 0600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "orders", s.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read schema")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte(ordersYAML), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.yml"),
		[]byte("name: users\nfields:\n  - {name: id, type: int}\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0600))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, reg.Names())

	s, ok := reg.Get("users")
	require.True(t, ok)
	assert.Equal(t, value.KindInt, s.Fields[0].Type)

	_, ok = reg.Get("nope")
	assert.False(t, ok)

	err = reg.Register(s)
	assert.ErrorContains(t, err, "already registered")
}

func TestLoadDirMissing(t *testing.T) {
	reg, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
}
