package storage

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/japanese"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

func openTestStore(t *testing.T) *DatasetStore {
	t.Helper()
	store, err := Open(Config{InMemory: true, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func productSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(`
name: products
fields:
  - {name: code, type: int}
  - {name: name, type: text}
  - {name: price, type: decimal, nullable: true}
`))
	require.NoError(t, err)
	return s
}

func TestCreateGetList(t *testing.T) {
	store := openTestStore(t)
	s := productSchema(t)

	first, err := store.Create("spring", s)
	require.NoError(t, err)
	_, err = ksuid.Parse(first.ID)
	require.NoError(t, err)
	second, err := store.Create("summer", s)
	require.NoError(t, err)

	got, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "spring", got.Name)
	assert.Equal(t, s, got.Schema)
	assert.Equal(t, int64(0), got.Records)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestGetUnknown(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(ksuid.New().String())
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	_, err = store.Get("not-a-ksuid")
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestAppendAndScan(t *testing.T) {
	store := openTestStore(t)
	s := productSchema(t)
	ds, err := store.Create("items", s)
	require.NoError(t, err)

	var recs []*schema.Record
	for i, name := range []string{"pen", "ink\tblack", "paper"} {
		rec := s.NewRecord()
		require.NoError(t, rec.Set(0, i))
		require.NoError(t, rec.Set(1, name))
		recs = append(recs, rec)
	}
	require.NoError(t, recs[0].Set(2, "1.25"))

	count, err := store.Append(ds.ID, recs...)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var got [][]any
	err = store.Scan(ds.ID, func(rec *schema.Record) error {
		got = append(got, rec.Values())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int32(0), "pen", "1.25"},
		{int32(1), "ink\tblack", nil},
		{int32(2), "paper", nil},
	}, got)

	stop := errors.New("stop")
	calls := 0
	err = store.Scan(ds.ID, func(*schema.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestAppendIsAtomic(t *testing.T) {
	store := openTestStore(t)
	s := productSchema(t)
	ds, err := store.Create("items", s)
	require.NoError(t, err)

	good := s.NewRecord()
	require.NoError(t, good.Set(0, 1))
	require.NoError(t, good.Set(1, "ok"))
	bad := s.NewRecord()

	_, err = store.Append(ds.ID, good, bad)
	assert.ErrorIs(t, err, schema.ErrNullViolation)

	other, err := schema.Parse([]byte("name: other\nfields:\n  - {name: x, type: long}\n"))
	require.NoError(t, err)
	rec := other.NewRecord()
	require.NoError(t, rec.Set(0, 1))
	_, err = store.Append(ds.ID, rec)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	meta, err := store.Get(ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), meta.Records)
}

func TestImportExport(t *testing.T) {
	store := openTestStore(t)
	ds, err := store.Create("items", productSchema(t))
	require.NoError(t, err)

	input := "1\tpen\t1.50\n2\tnote\\\nbook\t\\N\n3\t鉛筆\t0.80\n"
	added, err := store.Import(ds.ID, strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), added)

	added, err = store.Import(ds.ID, strings.NewReader("4\teraser\t\\N\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	var out bytes.Buffer
	n, err := store.Export(ds.ID, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Equal(t, input+"4\teraser\t\\N\n", out.String())

	meta, err := store.Get(ds.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.Records)
}

func TestImportIsAtomic(t *testing.T) {
	store := openTestStore(t)
	ds, err := store.Create("items", productSchema(t))
	require.NoError(t, err)

	_, err = store.Import(ds.ID, strings.NewReader("1\tpen\t1.50\nx\tbad\t\\N\n"), nil)
	assert.ErrorIs(t, err, tsv.ErrFormat)
	assert.Contains(t, err.Error(), "record 2")

	_, err = store.Import(ds.ID, strings.NewReader("1\tpen\t1.50"), nil)
	assert.ErrorIs(t, err, tsv.ErrFormat)

	n, err := store.Export(ds.ID, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestImportExportCharset(t *testing.T) {
	store := openTestStore(t)
	ds, err := store.Create("items", productSchema(t))
	require.NoError(t, err)

	var sjis bytes.Buffer
	w := tsv.NewWriter(&sjis, tsv.WriterConfig{Charset: japanese.ShiftJIS})
	rec := productSchema(t).NewRecord()
	require.NoError(t, rec.Set(0, 1))
	require.NoError(t, rec.Set(1, "消しゴム"))
	require.NoError(t, rec.Emit(w))
	require.NoError(t, w.Close())

	encoded := sjis.Bytes()
	_, err = store.Import(ds.ID, bytes.NewReader(encoded), japanese.ShiftJIS)
	require.NoError(t, err)

	var utf8Out, sjisOut bytes.Buffer
	_, err = store.Export(ds.ID, &utf8Out, nil)
	require.NoError(t, err)
	assert.Equal(t, "1\t消しゴム\t\\N\n", utf8Out.String())

	_, err = store.Export(ds.ID, &sjisOut, japanese.ShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, encoded, sjisOut.Bytes())
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	keep, err := store.Create("keep", productSchema(t))
	require.NoError(t, err)
	drop, err := store.Create("drop", productSchema(t))
	require.NoError(t, err)

	_, err = store.Import(keep.ID, strings.NewReader("1\ta\t\\N\n"), nil)
	require.NoError(t, err)
	_, err = store.Import(drop.ID, strings.NewReader("2\tb\t\\N\n"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(drop.ID))
	assert.ErrorIs(t, store.Delete(drop.ID), ErrDatasetNotFound)

	_, err = store.Get(drop.ID)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, store.Scan(drop.ID, func(*schema.Record) error { return nil }), ErrDatasetNotFound)

	var out bytes.Buffer
	_, err = store.Export(keep.ID, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, "1\ta\t\\N\n", out.String())

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	ds, err := store.Create("durable", productSchema(t))
	require.NoError(t, err)
	_, err = store.Import(ds.ID, strings.NewReader("7\tseven\t7.0\n"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	n, err := store.Export(ds.ID, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "7\tseven\t7.0\n", out.String())
}

func TestRowKeysSortBySequence(t *testing.T) {
	id := ksuid.New().String()
	assert.Equal(t, -1, bytes.Compare(rowKey(id, 255), rowKey(id, 256)))
	assert.True(t, bytes.HasPrefix(rowKey(id, 1), rowPrefix(id)))
	assert.Equal(t, -1, bytes.Compare(rowKey(id, 1<<63), prefixUpperBound(rowPrefix(id))))
}
