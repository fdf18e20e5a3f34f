package postgres

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
	"github.com/asakusafw/asakusafw-sub019/pkg/value"
)

// fakeDB records COPY calls and serves canned query results.
type fakeDB struct {
	table   pgx.Identifier
	columns []string
	copied  [][]any
	copyErr error

	query   string
	args    []any
	rows    [][]any
	ncols   int
	rowsErr error
}

func (db *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	db.table, db.columns = table, columns
	var n int64
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		db.copied = append(db.copied, values)
		n++
	}
	if err := src.Err(); err != nil {
		db.copied = nil
		return 0, errors.New("copy aborted")
	}
	if db.copyErr != nil {
		return 0, db.copyErr
	}
	return n, nil
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.query, db.args = sql, args
	return &fakeRows{data: db.rows, ncols: db.ncols, err: db.rowsErr, pos: -1}, nil
}

type fakeRows struct {
	data  [][]any
	ncols int
	err   error
	pos   int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	return make([]pgconn.FieldDescription, r.ncols)
}
func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error {
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.data[r.pos][i]))
	}
	return nil
}
func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

func allTypesSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(`
name: all_types
fields:
  - {name: b, type: boolean, nullable: true}
  - {name: y, type: byte, nullable: true}
  - {name: s, type: short, nullable: true}
  - {name: i, type: int, nullable: true}
  - {name: l, type: long, nullable: true}
  - {name: f, type: float, nullable: true}
  - {name: d, type: double, nullable: true}
  - {name: m, type: decimal, nullable: true}
  - {name: t, type: text, nullable: true}
  - {name: dt, type: date, nullable: true}
  - {name: ts, type: datetime, nullable: true}
`))
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	db := &fakeDB{}
	s := allTypesSchema(t)
	input := "1\t-8\t300\t70000\t-5\t1.5\t2.25\t-12.340\ttext\t2024-02-29\t2024-02-29 13:14:15\n" +
		"\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\n"

	n, err := Load(context.Background(), db, "sales.all_types", s, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, pgx.Identifier{"sales", "all_types"}, db.table)
	assert.Equal(t, []string{"b", "y", "s", "i", "l", "f", "d", "m", "t", "dt", "ts"}, db.columns)

	require.Len(t, db.copied, 2)
	row := db.copied[0]
	assert.Equal(t, true, row[0])
	assert.Equal(t, int16(-8), row[1])
	assert.Equal(t, int16(300), row[2])
	assert.Equal(t, int32(70000), row[3])
	assert.Equal(t, int64(-5), row[4])
	assert.Equal(t, float32(1.5), row[5])
	assert.Equal(t, 2.25, row[6])
	assert.Equal(t, pgtype.Numeric{Int: big.NewInt(-12340), Exp: -3, Valid: true}, row[7])
	assert.Equal(t, "text", row[8])
	assert.Equal(t, pgtype.Date{Time: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Valid: true}, row[9])
	assert.Equal(t, pgtype.Timestamp{Time: time.Date(2024, 2, 29, 13, 14, 15, 0, time.UTC), Valid: true}, row[10])

	for _, v := range db.copied[1] {
		assert.Nil(t, v)
	}
}

func TestLoadReportsSourceError(t *testing.T) {
	db := &fakeDB{}
	s := allTypesSchema(t)

	_, err := Load(context.Background(), db, "t", s, strings.NewReader("1\tnope\n"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, tsv.ErrFormat)
	assert.Contains(t, err.Error(), "record 1")
	assert.Empty(t, db.copied)
}

func TestLoadReportsDatabaseError(t *testing.T) {
	db := &fakeDB{copyErr: errors.New("relation does not exist")}
	s, err := schema.Parse([]byte("name: one\nfields:\n  - {name: x, type: int}\n"))
	require.NoError(t, err)

	_, err = Load(context.Background(), db, "missing", s, strings.NewReader("1\n"), nil)
	assert.ErrorContains(t, err, "copy into missing: relation does not exist")
}

func TestDump(t *testing.T) {
	s := allTypesSchema(t)
	db := &fakeDB{
		ncols: len(s.Fields),
		rows: [][]any{
			{
				pgtype.Bool{Bool: false, Valid: true},
				pgtype.Int2{Int16: 127, Valid: true},
				pgtype.Int2{Int16: -300, Valid: true},
				pgtype.Int4{Int32: 1 << 30, Valid: true},
				pgtype.Int8{Int64: -1 << 40, Valid: true},
				pgtype.Float4{Float32: 0.5, Valid: true},
				pgtype.Float8{Float64: -1e100, Valid: true},
				pgtype.Numeric{Int: big.NewInt(150), Exp: -2, Valid: true},
				pgtype.Text{String: "a\tb", Valid: true},
				pgtype.Date{Time: time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC), Valid: true},
				pgtype.Timestamp{Time: time.Date(2000, 1, 1, 0, 0, 1, 0, time.UTC), Valid: true},
			},
			{
				pgtype.Bool{}, pgtype.Int2{}, pgtype.Int2{}, pgtype.Int4{}, pgtype.Int8{}, pgtype.Float4{},
				pgtype.Float8{}, pgtype.Numeric{}, pgtype.Text{}, pgtype.Date{}, pgtype.Timestamp{},
			},
		},
	}

	var out bytes.Buffer
	n, err := Dump(context.Background(), db, "SELECT * FROM all_types WHERE b = $1", s, &out, nil, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []any{false}, db.args)
	assert.Equal(t,
		"0\t127\t-300\t1073741824\t-1099511627776\t0.5\t-1e+100\t1.50\ta\\\tb\t1999-12-31\t2000-01-01 00:00:01\n"+
			"\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\t\\N\n",
		out.String())
}

func TestDumpErrors(t *testing.T) {
	one, err := schema.Parse([]byte("name: one\nfields:\n  - {name: x, type: byte}\n"))
	require.NoError(t, err)

	t.Run("column count", func(t *testing.T) {
		db := &fakeDB{ncols: 2}
		_, err := Dump(context.Background(), db, "SELECT 1, 2", one, &bytes.Buffer{}, nil)
		assert.ErrorIs(t, err, ErrColumnMismatch)
	})

	t.Run("byte range", func(t *testing.T) {
		db := &fakeDB{ncols: 1, rows: [][]any{{pgtype.Int2{Int16: 200, Valid: true}}}}
		_, err := Dump(context.Background(), db, "SELECT 200", one, &bytes.Buffer{}, nil)
		assert.ErrorContains(t, err, "out of byte range")
	})

	t.Run("null in required field", func(t *testing.T) {
		db := &fakeDB{ncols: 1, rows: [][]any{{pgtype.Int2{}}}}
		_, err := Dump(context.Background(), db, "SELECT NULL", one, &bytes.Buffer{}, nil)
		assert.ErrorIs(t, err, schema.ErrNullViolation)
	})

	t.Run("date outside four digit years", func(t *testing.T) {
		dates, err := schema.Parse([]byte("name: dates\nfields:\n  - {name: d, type: date}\n  - {name: ts, type: datetime}\n"))
		require.NoError(t, err)
		ok := pgtype.Timestamp{Time: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}

		for name, row := range map[string][]any{
			"BC date":      {pgtype.Date{Time: time.Date(0, 12, 31, 0, 0, 0, 0, time.UTC), Valid: true}, ok},
			"year 10000":   {pgtype.Date{Time: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true}, ok},
			"BC timestamp": {pgtype.Date{Time: ok.Time, Valid: true}, pgtype.Timestamp{Time: time.Date(-1, 6, 1, 0, 0, 0, 0, time.UTC), Valid: true}},
		} {
			var out bytes.Buffer
			db := &fakeDB{ncols: 2, rows: [][]any{row}}
			_, err := Dump(context.Background(), db, "SELECT d, ts FROM t", dates, &out, nil)
			assert.ErrorIs(t, err, tsv.ErrDateRange, name)
			assert.Empty(t, out.String(), name)
		}
	})

	t.Run("rows error", func(t *testing.T) {
		db := &fakeDB{ncols: 1, rowsErr: errors.New("connection reset")}
		_, err := Dump(context.Background(), db, "SELECT 1", one, &bytes.Buffer{}, nil)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestNumericConversion(t *testing.T) {
	for _, s := range []string{"0", "-0.001", "123456789012345678901234567890.5", "1E+5", "-7"} {
		o, err := value.NewDecimalString(s)
		require.NoError(t, err)

		back, err := decimalOf(numericOf(o.Get()))
		require.NoError(t, err)
		assert.Equal(t, 0, back.Cmp(o.Get()), s)
		assert.Equal(t, o.Get().String(), back.String(), s)
	}

	_, err := decimalOf(pgtype.Numeric{NaN: true, Valid: true})
	assert.ErrorIs(t, err, value.ErrNonFiniteDecimal)
	_, err = decimalOf(pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true})
	assert.ErrorIs(t, err, value.ErrNonFiniteDecimal)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), config.Postgres{})
	assert.ErrorContains(t, err, "not configured")

	_, err = Connect(context.Background(), config.Postgres{URL: "://bad"})
	assert.ErrorContains(t, err, "failed to parse database URL")
}
