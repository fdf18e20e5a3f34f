package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"github.com/asakusafw/asakusafw-sub019/pkg/schema"
	"github.com/asakusafw/asakusafw-sub019/pkg/store"
	"github.com/asakusafw/asakusafw-sub019/pkg/tsv"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <schema> <input> [output]",
	Short: "Convert between JSON lines and TSV records",
	Long: `Convert records between JSON lines (one object per line, keyed by field name)
and TSV. Use "-" for standard input or output.

With --from jsonl and an output file, records are appended to the file and
synced at the configured fsync interval.

Examples:
  tsvio convert orders orders.jsonl orders.tsv
  tsvio convert orders orders.tsv --from tsv --charset shift_jis > orders.jsonl`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		cfg := configFrom(cmd)

		sch, err := resolveSchema(cfg, args[0])
		if err != nil {
			return err
		}
		charset, err := streamCharset(cmd)
		if err != nil {
			return err
		}
		output := ""
		if len(args) == 3 {
			output = args[2]
		}

		in, err := openInput(cmd, args[1])
		if err != nil {
			return err
		}
		defer in.Close()

		var n int64
		switch from {
		case "jsonl":
			if output != "" && output != "-" && charset == nil {
				n, err = appendJSONLines(in, output, sch, cfg.Codec.FsyncInterval)
				break
			}
			var out io.WriteCloser
			if out, err = createOutput(cmd, output); err != nil {
				return err
			}
			n, err = jsonLinesToTSV(in, out, sch, charset)
			err = errors.Join(err, out.Close())
		case "tsv":
			var out io.WriteCloser
			if out, err = createOutput(cmd, output); err != nil {
				return err
			}
			n, err = tsvToJSONLines(in, out, sch, charset)
			err = errors.Join(err, out.Close())
		default:
			return fmt.Errorf("unknown input format %q (want jsonl or tsv)", from)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Converted %d records\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().String("from", "jsonl", "Input format: jsonl or tsv")
	addCharsetFlag(convertCmd)
}

// decodeJSONLines calls fn with a record for every JSON object in r
func decodeJSONLines(r io.Reader, sch *schema.Schema, fn func(*schema.Record) error) (int64, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	rec := sch.NewRecord()
	var n int64
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		if err := rec.SetMap(obj); err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		if err := fn(rec); err != nil {
			return n, fmt.Errorf("line %d: %w", n+1, err)
		}
		n++
	}
}

// jsonLinesToTSV encodes JSON lines as TSV records in the given charset
func jsonLinesToTSV(r io.Reader, w io.Writer, sch *schema.Schema, charset encoding.Encoding) (int64, error) {
	bw := bufio.NewWriter(w)
	writer := tsv.NewWriter(bw, tsv.WriterConfig{Charset: charset})
	n, err := decodeJSONLines(r, sch, func(rec *schema.Record) error {
		return rec.Emit(writer)
	})
	if err != nil {
		return n, err
	}
	return n, writer.Flush()
}

// appendJSONLines appends JSON lines as UTF-8 records to a record file
func appendJSONLines(r io.Reader, path string, sch *schema.Schema, fsyncInterval time.Duration) (int64, error) {
	writer, err := store.NewLogWriter(store.LogWriterConfig{
		FilePath:      path,
		Schema:        sch,
		FsyncInterval: fsyncInterval,
	})
	if err != nil {
		return 0, err
	}
	n, err := decodeJSONLines(r, sch, func(rec *schema.Record) error {
		_, err := writer.Put(rec)
		return err
	})
	return n, errors.Join(err, writer.Close())
}

// tsvToJSONLines decodes TSV records and writes one JSON object per line
func tsvToJSONLines(r io.Reader, w io.Writer, sch *schema.Schema, charset encoding.Encoding) (int64, error) {
	reader, err := tsv.NewReader(r, tsv.ReaderConfig{Charset: charset})
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	rec := sch.NewRecord()
	var n int64
	for {
		ok, err := reader.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			break
		}
		if err := rec.Fill(reader); err != nil {
			return n, err
		}
		if err := enc.Encode(rec.Map()); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}
