// Package storage stages schema-bound datasets in pebble.
//
// Each dataset is identified by a KSUID. Its metadata lives under
// "_meta/<id>" as JSON, and each record is stored under "<id>/r/<seq>" with
// an 8-byte big-endian sequence number, so iteration order is append order.
// Every row value is exactly one encoded TSV record, terminator included.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

var (
	// ErrDatasetNotFound is returned for unknown dataset ids.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrSchemaMismatch is returned when records do not fit the dataset.
	ErrSchemaMismatch = errors.New("record does not match dataset schema")
)

const (
	metaPrefix = "_meta/"
	rowInfix   = "/r/"
	// importLogInterval is how many records an import stages between
	// progress log entries.
	importLogInterval = 1024
)

// Dataset describes one staged dataset.
type Dataset struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Schema  *schema.Schema `json:"schema"`
	Created time.Time      `json:"created"`
	Records int64          `json:"records"`
	NextSeq uint64         `json:"next_seq"`
}

// Config holds configuration for a DatasetStore.
type Config struct {
	Path     string      // Directory of the pebble database
	InMemory bool        // Keep everything in memory; Path is ignored
	Logger   *zap.Logger // Defaults to a no-op logger
}

// DatasetStore keeps datasets in a pebble database. It is safe for
// concurrent use; writes to the store are serialized.
type DatasetStore struct {
	db     *pebble.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// Open opens or creates the store.
func Open(config Config) (*DatasetStore, error) {
	opts := &pebble.Options{}
	path := config.Path
	if config.InMemory {
		opts.FS = vfs.NewMem()
		path = ""
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetStore{db: db, logger: logger}, nil
}

// Create registers an empty dataset bound to s.
func (s *DatasetStore) Create(name string, sch *schema.Schema) (*Dataset, error) {
	if err := sch.Validate(); err != nil {
		return nil, err
	}
	ds := &Dataset{
		ID:      ksuid.New().String(),
		Name:    name,
		Schema:  sch,
		Created: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putMeta(s.db, ds); err != nil {
		return nil, err
	}
	s.logger.Info("dataset created", zap.String("id", ds.ID), zap.String("name", name), zap.String("schema", sch.Name))
	return ds, nil
}

// Get returns the dataset metadata.
func (s *DatasetStore) Get(id string) (*Dataset, error) {
	if _, err := ksuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	data, closer, err := s.db.Get(metaKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("corrupt metadata for dataset %s: %w", id, err)
	}
	return &ds, nil
}

// List returns every dataset, oldest first.
func (s *DatasetStore) List() ([]*Dataset, error) {
	iter, err := s.db.NewIter(prefixOptions([]byte(metaPrefix)))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Dataset
	for iter.First(); iter.Valid(); iter.Next() {
		var ds Dataset
		if err := json.Unmarshal(iter.Value(), &ds); err != nil {
			return nil, fmt.Errorf("corrupt metadata under %q: %w", iter.Key(), err)
		}
		out = append(out, &ds)
	}
	return out, iter.Error()
}

// Append adds records to the dataset and returns the new record count.
// Either every record is stored or none is.
func (s *DatasetStore) Append(id string, records ...*schema.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for i, rec := range records {
		if !ds.Schema.Compatible(rec.Schema()) {
			return 0, fmt.Errorf("%w: record %d is %s, dataset is %s", ErrSchemaMismatch, i, rec.Schema().Name, ds.Schema.Name)
		}
		if err := s.stage(batch, ds, rec); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := s.putMeta(batch, ds); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return ds.Records, nil
}

// Import reads TSV records from r into the dataset and returns how many
// were added. The import is atomic: on any error nothing is stored.
func (s *DatasetStore) Import(id string, r io.Reader, charset encoding.Encoding) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := s.Get(id)
	if err != nil {
		return 0, err
	}
	reader, err := tsv.NewReader(r, tsv.ReaderConfig{Charset: charset})
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	batch := s.db.NewBatch()
	defer batch.Close()

	before := ds.Records
	rec := ds.Schema.NewRecord()
	for {
		ok, err := reader.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		if err := rec.Fill(reader); err != nil {
			return 0, fmt.Errorf("record %d: %w", reader.Record(), err)
		}
		if err := s.stage(batch, ds, rec); err != nil {
			return 0, fmt.Errorf("record %d: %w", reader.Record(), err)
		}
		if (ds.Records-before)%importLogInterval == 0 {
			s.logger.Debug("import progress", zap.String("id", id), zap.Int64("records", ds.Records-before),
				zap.Int("batch_bytes", batch.Len()))
		}
	}

	if err := s.putMeta(batch, ds); err != nil {
		return 0, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	added := ds.Records - before
	s.logger.Info("dataset imported", zap.String("id", id), zap.Int64("records", added))
	return added, nil
}

// Scan calls fn for every record in append order. The record is reused
// between calls. An error from fn stops the scan and is returned.
func (s *DatasetStore) Scan(id string, fn func(*schema.Record) error) error {
	ds, err := s.Get(id)
	if err != nil {
		return err
	}
	iter, err := s.db.NewIter(prefixOptions(rowPrefix(id)))
	if err != nil {
		return err
	}
	defer iter.Close()

	rec := ds.Schema.NewRecord()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := rec.UnmarshalTSV(iter.Value()); err != nil {
			return fmt.Errorf("corrupt row %x: %w", iter.Key(), err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Export writes every record of the dataset to w as TSV and returns the
// record count. w is flushed but not closed.
func (s *DatasetStore) Export(id string, w io.Writer, charset encoding.Encoding) (int64, error) {
	writer := tsv.NewWriter(w, tsv.WriterConfig{Charset: charset})
	err := s.Scan(id, func(rec *schema.Record) error {
		return rec.Emit(writer)
	})
	if err != nil {
		return writer.Records(), err
	}
	return writer.Records(), writer.Flush()
}

// Delete removes the dataset and all of its records.
func (s *DatasetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Get(id); err != nil {
		return err
	}
	prefix := rowPrefix(id)
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(prefix, prefixUpperBound(prefix), nil); err != nil {
		return err
	}
	if err := batch.Delete(metaKey(id), nil); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return err
	}
	s.logger.Info("dataset deleted", zap.String("id", id))
	return nil
}

// Close closes the database.
func (s *DatasetStore) Close() error {
	return s.db.Close()
}

// stage encodes rec into the batch under the dataset's next sequence.
func (s *DatasetStore) stage(batch *pebble.Batch, ds *Dataset, rec *schema.Record) error {
	data, err := rec.MarshalTSV()
	if err != nil {
		return err
	}
	if err := batch.Set(rowKey(ds.ID, ds.NextSeq), data, nil); err != nil {
		return err
	}
	ds.NextSeq++
	ds.Records++
	return nil
}

func (s *DatasetStore) putMeta(w pebble.Writer, ds *Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return w.Set(metaKey(ds.ID), data, pebble.Sync)
}

func metaKey(id string) []byte {
	return []byte(metaPrefix + id)
}

func rowPrefix(id string) []byte {
	return []byte(id + rowInfix)
}

func rowKey(id string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(rowPrefix(id), seq)
}

func prefixOptions(prefix []byte) *pebble.IterOptions {
	return &pebble.IterOptions{LowerBound: prefix, UpperBound: prefixUpperBound(prefix)}
}

// prefixUpperBound returns the smallest key greater than every key with
// the prefix. Prefixes here always end in '/', so incrementing the last
// byte cannot overflow.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	end[len(end)-1]++
	return end
}
