// Package postgres moves TSV records in and out of PostgreSQL.
//
// Load streams a TSV stream into a table with the COPY protocol. Dump runs a
// query and writes its rows as TSV. Both map schema types to columns as
// follows:
//
//	boolean   bool
//	byte      int2 (range checked on dump)
//	short     int2
//	int       int4
//	long      int8
//	float     float4
//	double    float8
//	decimal   numeric
//	text      text
//	date      date
//	datetime  timestamp (without time zone)
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/config"
	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// ErrColumnMismatch is returned when a query result does not fit the schema.
var ErrColumnMismatch = errors.New("query columns do not match schema")

// DB is the subset of pgx used here. *pgxpool.Pool, *pgx.Conn and pgx.Tx
// satisfy it.
type DB interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var logger = zap.NewNop()

// SetLogger configures the package logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("postgres url is not configured")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Load copies every record of r into table, using the schema field names as
// column names. table may be schema qualified ("sales.orders"). COPY is
// atomic: on error no rows are inserted.
func Load(ctx context.Context, db DB, table string, s *schema.Schema, r io.Reader, charset encoding.Encoding) (int64, error) {
	reader, err := tsv.NewReader(r, tsv.ReaderConfig{Charset: charset})
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	columns := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		columns[i] = f.Name
	}

	src := newCopySource(reader, s)
	n, err := db.CopyFrom(ctx, identifier(table), columns, src)
	if err != nil {
		// The source error is more precise than the one COPY reports.
		if srcErr := src.Err(); srcErr != nil {
			return 0, srcErr
		}
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	logger.Info("table loaded", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

// Dump runs query and writes each row to w as TSV. The result columns must
// match the schema fields in number and order. w is flushed, not closed.
func Dump(ctx context.Context, db DB, query string, s *schema.Schema, w io.Writer, charset encoding.Encoding, args ...any) (int64, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	if fields := rows.FieldDescriptions(); fields != nil && len(fields) != len(s.Fields) {
		return 0, fmt.Errorf("%w: %d columns, schema %s has %d fields", ErrColumnMismatch, len(fields), s.Name, len(s.Fields))
	}

	writer := tsv.NewWriter(w, tsv.WriterConfig{Charset: charset})
	rec := s.NewRecord()
	holders := newScanTargets(s)
	for rows.Next() {
		if err := rows.Scan(holders.dest...); err != nil {
			return writer.Records(), fmt.Errorf("row %d: %w", writer.Records()+1, err)
		}
		if err := holders.assign(rec); err != nil {
			return writer.Records(), fmt.Errorf("row %d: %w", writer.Records()+1, err)
		}
		if err := rec.Emit(writer); err != nil {
			return writer.Records(), fmt.Errorf("row %d: %w", writer.Records()+1, err)
		}
	}
	if err := rows.Err(); err != nil {
		return writer.Records(), err
	}
	if err := writer.Flush(); err != nil {
		return writer.Records(), err
	}
	logger.Info("query dumped", zap.String("schema", s.Name), zap.Int64("rows", writer.Records()))
	return writer.Records(), nil
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}
